package pagecodec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// FirstOffset is the offset of the first slot on a page. Slots are 1-indexed.
const FirstOffset uint16 = 1

type Slot struct {
	elementSize    uint16
	elementPointer uint16
}

type SlotConfig struct {

	// slot field offsets within slot
	elementSizeOffset    int
	elementPointerOffset int

	// constants
	slotSize int
}

func defaultSlotConfig() SlotConfig {

	return SlotConfig{
		elementSizeOffset:    0,
		elementPointerOffset: 2,

		slotSize: 4,
	}
}

type SlotCodec struct {
	config      SlotConfig
	headerCodec HeaderCodec
}

func DefaultSlotCodec() SlotCodec {

	return SlotCodec{
		config:      defaultSlotConfig(),
		headerCodec: DefaultHeaderCodec(),
	}
}

func (codec SlotCodec) getSlotSize() int {
	return codec.config.slotSize
}

// decodeSlot takes a slice of bytes representing a slot, and returns a decoded slot struct
func (codec SlotCodec) decodeSlot(slotBytes []byte) Slot {

	return Slot{
		elementSize:    binary.LittleEndian.Uint16(slotBytes[codec.config.elementSizeOffset:]),
		elementPointer: binary.LittleEndian.Uint16(slotBytes[codec.config.elementPointerOffset:]),
	}
}

// encodeSlot takes a slot struct and returns an encoded slice of bytes representing this slot
func (codec SlotCodec) encodeSlot(slot Slot) []byte {

	b := make([]byte, 0, codec.config.slotSize)

	b = binary.LittleEndian.AppendUint16(b, slot.elementSize)
	b = binary.LittleEndian.AppendUint16(b, slot.elementPointer)

	return b
}

// appendSlot writes a slot at the free space begin pointer and returns the updated pointer.
func (codec SlotCodec) appendSlot(page []byte, freeSpaceBegin uint16, slot Slot) (updatedFreeSpaceBegin uint16) {

	copy(page[freeSpaceBegin:], codec.encodeSlot(slot))

	return freeSpaceBegin + uint16(codec.config.slotSize)
}

// Element returns the bytes of the tuple stored at a 1-indexed slot offset.
// The returned slice aliases the page.
func (codec SlotCodec) Element(page []byte, numSlots uint16, offset uint16) ([]byte, error) {

	if offset < FirstOffset || offset > numSlots {
		return nil, errors.Newf("slot offset %d out of range [1, %d]", offset, numSlots)
	}

	pointer := codec.headerCodec.getHeaderSize() + int(offset-1)*codec.config.slotSize

	slot := codec.decodeSlot(page[pointer : pointer+codec.config.slotSize])

	begin := int(slot.elementPointer)
	end := begin + int(slot.elementSize)

	if begin < codec.headerCodec.getHeaderSize() || end > len(page) {
		return nil, errors.Mark(errors.Newf("slot %d points outside the page (%d, %d)", offset, begin, end), ErrNotATreePage)
	}

	return page[begin:end], nil
}
