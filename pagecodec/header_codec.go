package pagecodec

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cockroachdb/errors"
)

const (
	PageSize      = 4096
	InvalidPageId = ^uint64(0)
)

// TreeFamily identifies which of the three tree layouts a page belongs to.
type TreeFamily uint8

const (
	FamilyNone TreeFamily = iota
	FamilyGist
	FamilyGin
	FamilySpgist
)

func (family TreeFamily) String() string {

	switch family {
	case FamilyGist:
		return "gist"
	case FamilyGin:
		return "gin"
	case FamilySpgist:
		return "spgist"
	default:
		return "unknown"
	}
}

// ParseTreeFamily maps a family name back to its TreeFamily.
func ParseTreeFamily(name string) (TreeFamily, error) {

	switch name {
	case "gist":
		return FamilyGist, nil
	case "gin":
		return FamilyGin, nil
	case "spgist":
		return FamilySpgist, nil
	}
	return FamilyNone, errors.Newf("unknown tree family %q", name)
}

// page flags
const (
	FlagLeaf    uint8 = 1 << 0
	FlagDeleted uint8 = 1 << 1
	FlagData    uint8 = 1 << 2
	FlagMeta    uint8 = 1 << 3
)

var ErrNotATreePage = errors.New("not a tree page")

type Header struct {
	Crc            uint32
	Family         TreeFamily
	Flags          uint8
	NumSlots       uint16
	FreeSpaceBegin uint16
	FreeSpaceEnd   uint16
	NPlaceholder   uint16
	NRedirection   uint16
	RightLink      uint64

	// IsNew is set for an all-zero block that was allocated but never initialized.
	IsNew bool
}

func (header *Header) IsLeaf() bool {
	return header.Flags&FlagLeaf != 0
}

func (header *Header) IsDeleted() bool {
	return header.Flags&FlagDeleted != 0
}

func (header *Header) IsData() bool {
	return header.Flags&FlagData != 0
}

func (header *Header) IsMeta() bool {
	return header.Flags&FlagMeta != 0
}

func (header *Header) FreeBytes() int {
	return int(header.FreeSpaceEnd) - int(header.FreeSpaceBegin)
}

type HeaderConfig struct {

	// header field offsets
	crcOffset            int
	familyOffset         int
	flagsOffset          int
	numSlotsOffset       int
	freeSpaceBeginOffset int
	freeSpaceEndOffset   int
	nPlaceholderOffset   int
	nRedirectionOffset   int
	rightLinkOffset      int

	// constants
	headerSize int
}

func defaultHeaderConfig() HeaderConfig {

	return HeaderConfig{
		crcOffset:            0,
		familyOffset:         4,
		flagsOffset:          5,
		numSlotsOffset:       6,
		freeSpaceBeginOffset: 8,
		freeSpaceEndOffset:   10,
		nPlaceholderOffset:   12,
		nRedirectionOffset:   14,
		rightLinkOffset:      16,

		headerSize: 24,
	}
}

// HeaderSize is the number of bytes at the start of every page taken by the header.
const HeaderSize = 24

// PageCapacity is the number of bytes a page can spend on slots and tuples.
const PageCapacity = PageSize - HeaderSize

type HeaderCodec struct {
	config HeaderConfig
}

func DefaultHeaderCodec() HeaderCodec {
	return HeaderCodec{
		config: defaultHeaderConfig(),
	}
}

func (codec HeaderCodec) getHeaderSize() int {
	return codec.config.headerSize
}

// DecodePageHeader validates a page and returns its decoded header.
// An all-zero page decodes as a new, empty leaf page of the expected family.
func (codec HeaderCodec) DecodePageHeader(page []byte, family TreeFamily) (*Header, error) {

	if len(page) != PageSize {
		return nil, errors.Mark(errors.Newf("page has %d bytes, expected %d", len(page), PageSize), ErrNotATreePage)
	}

	if isPageEmpty(page) {
		return &Header{
			Family:         family,
			Flags:          FlagLeaf,
			FreeSpaceBegin: uint16(codec.config.headerSize),
			FreeSpaceEnd:   PageSize,
			RightLink:      InvalidPageId,
			IsNew:          true,
		}, nil
	}

	h := codec.decodeHeaderFields(page)

	if !CheckCRC(page[4:], h.Crc) {
		return nil, errors.Mark(errors.New("page checksum mismatch"), ErrNotATreePage)
	}

	if h.Family != family {
		return nil, errors.Mark(errors.Newf("page belongs to a %s tree, expected %s", h.Family, family), ErrNotATreePage)
	}

	slotRegionEnd := codec.config.headerSize + int(h.NumSlots)*defaultSlotConfig().slotSize

	if int(h.FreeSpaceBegin) != slotRegionEnd || h.FreeSpaceBegin > h.FreeSpaceEnd || int(h.FreeSpaceEnd) > PageSize {
		return nil, errors.Mark(errors.Newf("inconsistent free space pointers begin=%d end=%d slots=%d", h.FreeSpaceBegin, h.FreeSpaceEnd, h.NumSlots), ErrNotATreePage)
	}

	return h, nil
}

func (codec HeaderCodec) decodeHeaderFields(page []byte) *Header {

	return &Header{
		Crc:            binary.LittleEndian.Uint32(page[codec.config.crcOffset:]),
		Family:         TreeFamily(page[codec.config.familyOffset]),
		Flags:          page[codec.config.flagsOffset],
		NumSlots:       binary.LittleEndian.Uint16(page[codec.config.numSlotsOffset:]),
		FreeSpaceBegin: binary.LittleEndian.Uint16(page[codec.config.freeSpaceBeginOffset:]),
		FreeSpaceEnd:   binary.LittleEndian.Uint16(page[codec.config.freeSpaceEndOffset:]),
		NPlaceholder:   binary.LittleEndian.Uint16(page[codec.config.nPlaceholderOffset:]),
		NRedirection:   binary.LittleEndian.Uint16(page[codec.config.nRedirectionOffset:]),
		RightLink:      binary.LittleEndian.Uint64(page[codec.config.rightLinkOffset:]),
	}
}

// encodePageHeader writes every header field except the CRC.
func (codec HeaderCodec) encodePageHeader(page []byte, header *Header) {

	page[codec.config.familyOffset] = byte(header.Family)
	page[codec.config.flagsOffset] = header.Flags
	binary.LittleEndian.PutUint16(page[codec.config.numSlotsOffset:], header.NumSlots)
	binary.LittleEndian.PutUint16(page[codec.config.freeSpaceBeginOffset:], header.FreeSpaceBegin)
	binary.LittleEndian.PutUint16(page[codec.config.freeSpaceEndOffset:], header.FreeSpaceEnd)
	binary.LittleEndian.PutUint16(page[codec.config.nPlaceholderOffset:], header.NPlaceholder)
	binary.LittleEndian.PutUint16(page[codec.config.nRedirectionOffset:], header.NRedirection)
	binary.LittleEndian.PutUint64(page[codec.config.rightLinkOffset:], header.RightLink)
}

func isPageEmpty(page []byte) bool {

	for _, b := range page {
		if b != 0 {
			return false
		}
	}
	return true
}

// setCRC is used to set the value of the CRC field in the header
func (codec HeaderCodec) setCRC(headerBytes []byte, crc uint32) {
	binary.LittleEndian.PutUint32(headerBytes[codec.config.crcOffset:], crc)
}

func generateCRC(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

func CheckCRC(data []byte, crc uint32) bool {

	return crc32.ChecksumIEEE(data) == crc
}

// UpdateCRC recomputes the checksum over everything after the CRC field.
func (codec HeaderCodec) UpdateCRC(page []byte) {

	data := page[4:]
	header := page[:codec.config.headerSize]

	codec.setCRC(header, generateCRC(data))
}
