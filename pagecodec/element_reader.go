package pagecodec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// nullLength marks a null variable-length field.
const nullLength = 0xFFFF

// elementReader walks the fields of an encoded tuple. The first short read
// sticks in err and every later read returns zero values.
type elementReader struct {
	data    []byte
	pointer int
	err     error
}

func newElementReader(data []byte) *elementReader {
	return &elementReader{data: data}
}

func (reader *elementReader) take(n int) []byte {

	if reader.err != nil {
		return nil
	}

	if reader.pointer+n > len(reader.data) {
		reader.err = errors.Mark(errors.Newf("truncated tuple: need %d bytes at %d, have %d", n, reader.pointer, len(reader.data)), ErrNotATreePage)
		return nil
	}

	b := reader.data[reader.pointer : reader.pointer+n]
	reader.pointer += n
	return b
}

func (reader *elementReader) uint8() uint8 {

	b := reader.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (reader *elementReader) uint16() uint16 {

	b := reader.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (reader *elementReader) uint32() uint32 {

	b := reader.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (reader *elementReader) itemPointer() ItemPointer {

	b := reader.take(itemPointerSize)
	if b == nil {
		return InvalidItemPointer
	}
	pointer, _ := decodeItemPointer(b)
	return pointer
}

// bytes copies n bytes out of the tuple.
func (reader *elementReader) bytes(n int) []byte {

	b := reader.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// nullableBytes reads a length-prefixed field; a nullLength prefix yields nil.
func (reader *elementReader) nullableBytes() []byte {

	length := reader.uint16()
	if reader.err != nil || length == nullLength {
		return nil
	}
	return reader.bytes(int(length))
}

func appendNullableBytes(b []byte, value []byte) []byte {

	if value == nil {
		return binary.LittleEndian.AppendUint16(b, nullLength)
	}
	b = binary.LittleEndian.AppendUint16(b, uint16(len(value)))
	return append(b, value...)
}
