package pagecodec

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/errors"
)

const (
	InvalidBlock  = ^uint32(0)
	InvalidOffset = uint16(0)

	itemPointerSize = 6
)

// ItemPointer addresses one slot of one page: a row reference or a child pointer.
type ItemPointer struct {
	Block  uint32
	Offset uint16
}

var InvalidItemPointer = ItemPointer{Block: InvalidBlock, Offset: InvalidOffset}

func (pointer ItemPointer) IsValid() bool {
	return pointer.Block != InvalidBlock && pointer.Offset != InvalidOffset
}

func (pointer ItemPointer) String() string {
	return fmt.Sprintf("(%d,%d)", pointer.Block, pointer.Offset)
}

// Less orders pointers by block, then offset.
func (pointer ItemPointer) Less(other ItemPointer) bool {

	if pointer.Block != other.Block {
		return pointer.Block < other.Block
	}
	return pointer.Offset < other.Offset
}

func (pointer ItemPointer) key() uint64 {
	return uint64(pointer.Block)<<16 | uint64(pointer.Offset)
}

func itemPointerFromKey(key uint64) ItemPointer {
	return ItemPointer{Block: uint32(key >> 16), Offset: uint16(key)}
}

func appendItemPointer(b []byte, pointer ItemPointer) []byte {

	b = binary.LittleEndian.AppendUint32(b, pointer.Block)
	b = binary.LittleEndian.AppendUint16(b, pointer.Offset)
	return b
}

func decodeItemPointer(b []byte) (ItemPointer, error) {

	if len(b) < itemPointerSize {
		return InvalidItemPointer, errors.Mark(errors.New("truncated item pointer"), ErrNotATreePage)
	}

	return ItemPointer{
		Block:  binary.LittleEndian.Uint32(b),
		Offset: binary.LittleEndian.Uint16(b[4:]),
	}, nil
}
