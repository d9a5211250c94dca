package pagecodec

const gistInvalidFlag uint8 = 1 << 0

// GistTuple is an entry of the balanced pointer tree. On inner pages Pointer.Block
// is the child page, on leaf pages Pointer is the row reference.
type GistTuple struct {
	Invalid bool
	Pointer ItemPointer

	// Values holds one entry per attribute, nil for a null attribute.
	Values [][]byte
}

func (tuple GistTuple) ChildPageId() uint64 {
	return uint64(tuple.Pointer.Block)
}

func EncodeGistTuple(tuple GistTuple) []byte {

	b := make([]byte, 0, 8+len(tuple.Values)*8)

	flags := uint8(0)
	if tuple.Invalid {
		flags |= gistInvalidFlag
	}

	b = append(b, flags)
	b = appendItemPointer(b, tuple.Pointer)
	b = append(b, uint8(len(tuple.Values)))

	for _, value := range tuple.Values {
		b = appendNullableBytes(b, value)
	}
	return b
}

func DecodeGistTuple(element []byte) (GistTuple, error) {

	reader := newElementReader(element)

	tuple := GistTuple{}
	tuple.Invalid = reader.uint8()&gistInvalidFlag != 0
	tuple.Pointer = reader.itemPointer()

	numValues := int(reader.uint8())
	tuple.Values = make([][]byte, 0, numValues)

	for range numValues {
		tuple.Values = append(tuple.Values, reader.nullableBytes())
	}

	if reader.err != nil {
		return GistTuple{}, reader.err
	}
	return tuple, nil
}
