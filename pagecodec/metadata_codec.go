package pagecodec

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

const (
	MetaDataPageId = 0

	metaDataMagic = uint32(0x31584449) // "IDX1"

	// CurrentFormatVersion is written by this build of the store.
	CurrentFormatVersion uint16 = 3
)

// KeyOrdering names the sort order a tree uses for one attribute.
type KeyOrdering uint8

const (
	OrderingBytes KeyOrdering = iota
	OrderingInt64
)

func (ordering KeyOrdering) String() string {

	switch ordering {
	case OrderingBytes:
		return "bytes"
	case OrderingInt64:
		return "int64"
	default:
		return "unknown"
	}
}

// Compare orders two keys of an attribute using this ordering. Int64 keys are
// 8-byte little-endian two's complement; shorter keys sort first.
func (ordering KeyOrdering) Compare(a, b []byte) int {

	if ordering == OrderingInt64 && len(a) == 8 && len(b) == 8 {

		x := int64(binary.LittleEndian.Uint64(a))
		y := int64(binary.LittleEndian.Uint64(b))

		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}

	return bytes.Compare(a, b)
}

func EncodeInt64Key(value int64) []byte {
	return binary.LittleEndian.AppendUint64(nil, uint64(value))
}

// MetaData describes one tree file. It is stored on page 0 of the file.
type MetaData struct {
	Name          string
	Family        TreeFamily
	FormatVersion uint16
	RootPageId    uint64
	Orderings     []KeyOrdering
}

func (metadata *MetaData) NumAttributes() int {
	return len(metadata.Orderings)
}

type MetaDataCodec struct {
	headerCodec HeaderCodec
}

func DefaultMetaDataCodec() MetaDataCodec {
	return MetaDataCodec{headerCodec: DefaultHeaderCodec()}
}

// EncodeMetaDataPage serializes the tree description into a full page image.
func (codec MetaDataCodec) EncodeMetaDataPage(metadata *MetaData) []byte {

	data := make([]byte, PageSize)

	codec.headerCodec.encodePageHeader(data, &Header{
		Family:         metadata.Family,
		Flags:          FlagMeta,
		FreeSpaceBegin: uint16(codec.headerCodec.getHeaderSize()),
		FreeSpaceEnd:   PageSize,
		RightLink:      InvalidPageId,
	})

	pointer := codec.headerCodec.getHeaderSize()

	binary.LittleEndian.PutUint32(data[pointer:], metaDataMagic)
	pointer += 4

	binary.LittleEndian.PutUint16(data[pointer:], metadata.FormatVersion)
	pointer += 2

	binary.LittleEndian.PutUint64(data[pointer:], metadata.RootPageId)
	pointer += 8

	binary.LittleEndian.PutUint16(data[pointer:], uint16(len(metadata.Name)))
	pointer += 2

	copy(data[pointer:], metadata.Name)
	pointer += len(metadata.Name)

	data[pointer] = uint8(len(metadata.Orderings))
	pointer++

	for _, ordering := range metadata.Orderings {
		data[pointer] = uint8(ordering)
		pointer++
	}

	codec.headerCodec.UpdateCRC(data)

	return data
}

// DecodeMetaDataPage restores the tree description from page 0.
func (codec MetaDataCodec) DecodeMetaDataPage(data []byte) (*MetaData, error) {

	if len(data) != PageSize {
		return nil, errors.Mark(errors.Newf("metadata page has %d bytes", len(data)), ErrNotATreePage)
	}

	family := TreeFamily(data[codec.headerCodec.config.familyOffset])

	header, err := codec.headerCodec.DecodePageHeader(data, family)
	if err != nil {
		return nil, err
	}

	if !header.IsMeta() {
		return nil, errors.Mark(errors.New("page 0 is not a metadata page"), ErrNotATreePage)
	}

	reader := newElementReader(data[codec.headerCodec.getHeaderSize():])

	if magic := reader.uint32(); magic != metaDataMagic {
		return nil, errors.Mark(errors.Newf("bad metadata magic %#x", magic), ErrNotATreePage)
	}

	metadata := &MetaData{Family: family}
	metadata.FormatVersion = reader.uint16()

	rootLow := uint64(reader.uint32())
	rootHigh := uint64(reader.uint32())
	metadata.RootPageId = rootHigh<<32 | rootLow

	metadata.Name = string(reader.bytes(int(reader.uint16())))

	numAttributes := int(reader.uint8())
	metadata.Orderings = make([]KeyOrdering, 0, numAttributes)
	for range numAttributes {
		metadata.Orderings = append(metadata.Orderings, KeyOrdering(reader.uint8()))
	}

	if reader.err != nil {
		return nil, reader.err
	}
	return metadata, nil
}
