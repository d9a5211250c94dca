package pagecodec

import (
	"github.com/cockroachdb/errors"
)

var ErrPageFull = errors.New("not enough free space on page")

// PageBuilder lays out a slotted page: slots grow forward from the header,
// tuples grow backward from the end of the page.
type PageBuilder struct {
	page        []byte
	header      *Header
	headerCodec HeaderCodec
	slotCodec   SlotCodec
}

func NewPageBuilder(family TreeFamily, flags uint8) *PageBuilder {

	headerCodec := DefaultHeaderCodec()

	return &PageBuilder{
		page: make([]byte, PageSize),
		header: &Header{
			Family:         family,
			Flags:          flags,
			FreeSpaceBegin: uint16(headerCodec.getHeaderSize()),
			FreeSpaceEnd:   PageSize,
			RightLink:      InvalidPageId,
		},
		headerCodec: headerCodec,
		slotCodec:   DefaultSlotCodec(),
	}
}

func (builder *PageBuilder) SetRightLink(pageId uint64) *PageBuilder {

	builder.header.RightLink = pageId
	return builder
}

func (builder *PageBuilder) SetFlags(flags uint8) *PageBuilder {

	builder.header.Flags = flags
	return builder
}

// SetPlaceholderCounts records the placeholder and redirect counters kept by space-partition pages.
func (builder *PageBuilder) SetPlaceholderCounts(nPlaceholder, nRedirection uint16) *PageBuilder {

	builder.header.NPlaceholder = nPlaceholder
	builder.header.NRedirection = nRedirection
	return builder
}

// Fits reports whether a tuple of the given size can still be appended.
func (builder *PageBuilder) Fits(tupleSize int) bool {
	return builder.header.FreeBytes() >= tupleSize+builder.slotCodec.getSlotSize()
}

func (builder *PageBuilder) NumSlots() uint16 {
	return builder.header.NumSlots
}

// AppendTuple stores a tuple in the next slot and returns its 1-indexed offset.
func (builder *PageBuilder) AppendTuple(tuple []byte) (uint16, error) {

	if !builder.Fits(len(tuple)) {
		return InvalidOffset, errors.Wrapf(ErrPageFull, "tuple of %d bytes, %d bytes free", len(tuple), builder.header.FreeBytes())
	}

	builder.header.FreeSpaceEnd -= uint16(len(tuple))
	copy(builder.page[builder.header.FreeSpaceEnd:], tuple)

	slot := Slot{elementSize: uint16(len(tuple)), elementPointer: builder.header.FreeSpaceEnd}
	builder.header.FreeSpaceBegin = builder.slotCodec.appendSlot(builder.page, builder.header.FreeSpaceBegin, slot)
	builder.header.NumSlots++

	return builder.header.NumSlots, nil
}

// Bytes finalizes the header and checksum and returns the page image.
func (builder *PageBuilder) Bytes() []byte {

	builder.headerCodec.encodePageHeader(builder.page, builder.header)
	builder.headerCodec.UpdateCRC(builder.page)

	page := make([]byte, PageSize)
	copy(page, builder.page)
	return page
}
