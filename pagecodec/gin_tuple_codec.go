package pagecodec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// GinCategory tells normal keys apart from the placeholder entries the
// inverted-list tree keeps for null and empty items.
type GinCategory uint8

const (
	GinCategoryNormKey GinCategory = iota
	GinCategoryNullKey
	GinCategoryEmptyItem
	GinCategoryNullItem
)

const (
	ginPostingTreeFlag uint8 = 1 << 0
	ginDownlinkFlag    uint8 = 1 << 1

	// count and length fields in front of every compressed posting list
	postingListHeaderSize = 4
)

// GinEntryTuple is an entry of the inverted-list entry tree. Entries on inner
// pages carry a downlink; entries on leaf pages carry either an inline posting
// list or the root of a posting tree.
type GinEntryTuple struct {
	Attribute uint8
	Category  GinCategory
	Key       []byte

	HasDownlink bool
	Downlink    uint32

	IsPostingTree   bool
	PostingTreeRoot uint32

	Postings []ItemPointer

	// PostingSize is the encoded size of the inline posting list.
	PostingSize int
}

func EncodeGinEntryTuple(tuple GinEntryTuple) []byte {

	b := make([]byte, 0, 16+len(tuple.Key)+len(tuple.Postings)*2)

	flags := uint8(0)
	if tuple.IsPostingTree {
		flags |= ginPostingTreeFlag
	}
	if tuple.HasDownlink {
		flags |= ginDownlinkFlag
	}

	b = append(b, flags, tuple.Attribute, uint8(tuple.Category))
	b = binary.LittleEndian.AppendUint16(b, uint16(len(tuple.Key)))
	b = append(b, tuple.Key...)

	switch {
	case tuple.HasDownlink:
		b = binary.LittleEndian.AppendUint32(b, tuple.Downlink)
	case tuple.IsPostingTree:
		b = binary.LittleEndian.AppendUint32(b, tuple.PostingTreeRoot)
	default:
		b = append(b, EncodePostingList(tuple.Postings)...)
	}
	return b
}

func DecodeGinEntryTuple(element []byte) (GinEntryTuple, error) {

	reader := newElementReader(element)

	tuple := GinEntryTuple{}

	flags := reader.uint8()
	tuple.Attribute = reader.uint8()
	tuple.Category = GinCategory(reader.uint8())
	tuple.Key = reader.bytes(int(reader.uint16()))

	tuple.HasDownlink = flags&ginDownlinkFlag != 0
	tuple.IsPostingTree = flags&ginPostingTreeFlag != 0

	switch {
	case tuple.HasDownlink:
		tuple.Downlink = reader.uint32()
	case tuple.IsPostingTree:
		tuple.PostingTreeRoot = reader.uint32()
	default:
		if reader.err != nil {
			break
		}
		postings, size, err := DecodePostingList(element[reader.pointer:])
		if err != nil {
			return GinEntryTuple{}, err
		}
		tuple.Postings = postings
		tuple.PostingSize = size
	}

	if reader.err != nil {
		return GinEntryTuple{}, reader.err
	}
	return tuple, nil
}

// EncodePostingList compresses a sorted list of item pointers as varint deltas.
func EncodePostingList(items []ItemPointer) []byte {

	body := make([]byte, 0, len(items)*2)

	previous := uint64(0)
	for _, item := range items {
		key := item.key()
		body = binary.AppendUvarint(body, key-previous)
		previous = key
	}

	b := make([]byte, 0, postingListHeaderSize+len(body))
	b = binary.LittleEndian.AppendUint16(b, uint16(len(items)))
	b = binary.LittleEndian.AppendUint16(b, uint16(len(body)))
	return append(b, body...)
}

// DecodePostingList returns the item pointers of a compressed list and the number of bytes it occupied.
func DecodePostingList(data []byte) ([]ItemPointer, int, error) {

	reader := newElementReader(data)

	count := int(reader.uint16())
	body := reader.take(int(reader.uint16()))

	if reader.err != nil {
		return nil, 0, reader.err
	}

	items := make([]ItemPointer, 0, count)

	previous := uint64(0)
	pointer := 0
	for range count {
		delta, n := binary.Uvarint(body[pointer:])
		if n <= 0 {
			return nil, 0, errors.Mark(errors.Newf("corrupt posting list after %d items", len(items)), ErrNotATreePage)
		}
		pointer += n
		previous += delta
		items = append(items, itemPointerFromKey(previous))
	}

	return items, postingListHeaderSize + len(body), nil
}

// GinPostingItem is a downlink on an inner page of a posting tree.
type GinPostingItem struct {
	Child uint32
	Key   ItemPointer
}

func EncodeGinPostingItem(item GinPostingItem) []byte {

	b := make([]byte, 0, 4+itemPointerSize)
	b = binary.LittleEndian.AppendUint32(b, item.Child)
	return appendItemPointer(b, item.Key)
}

func DecodeGinPostingItem(element []byte) (GinPostingItem, error) {

	reader := newElementReader(element)

	item := GinPostingItem{
		Child: reader.uint32(),
		Key:   reader.itemPointer(),
	}

	if reader.err != nil {
		return GinPostingItem{}, reader.err
	}
	return item, nil
}

// A posting tree leaf page stores one compressed segment per slot.

func EncodeGinPostingSegment(items []ItemPointer) []byte {
	return EncodePostingList(items)
}

func DecodeGinPostingSegment(element []byte) ([]ItemPointer, error) {

	items, _, err := DecodePostingList(element)
	return items, err
}
