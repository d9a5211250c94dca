package pagecodec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// SpgistTupleState is the lifecycle state of a space-partition tuple. Exactly one holds.
type SpgistTupleState uint8

const (
	SpgistLive SpgistTupleState = iota
	SpgistRedirect
	SpgistDead
	SpgistPlaceholder
)

func (state SpgistTupleState) String() string {

	switch state {
	case SpgistLive:
		return "live"
	case SpgistRedirect:
		return "redirect"
	case SpgistDead:
		return "dead"
	case SpgistPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

type SpgistLeaf struct {
	HeapPointer ItemPointer

	// NextOffset chains leaf tuples that hang off the same parent node, InvalidOffset ends the chain.
	NextOffset uint16
	Datum      []byte
}

type SpgistNode struct {
	// Label is nil when the node has no label.
	Label []byte
	Child ItemPointer
}

type SpgistInner struct {
	AllTheSame bool

	// Prefix is nil when the inner tuple has no prefix.
	Prefix []byte
	Nodes  []SpgistNode
}

// SpgistTuple is a tagged variant: Leaf is set for live tuples on leaf pages,
// Inner for live tuples on inner pages, Redirect for redirect tuples.
type SpgistTuple struct {
	State    SpgistTupleState
	Leaf     *SpgistLeaf
	Inner    *SpgistInner
	Redirect ItemPointer
}

func EncodeSpgistTuple(tuple SpgistTuple) []byte {

	b := []byte{uint8(tuple.State)}

	switch tuple.State {

	case SpgistLive:
		if tuple.Leaf != nil {
			b = appendItemPointer(b, tuple.Leaf.HeapPointer)
			b = binary.LittleEndian.AppendUint16(b, tuple.Leaf.NextOffset)
			b = appendNullableBytes(b, tuple.Leaf.Datum)
			return b
		}

		allTheSame := uint8(0)
		if tuple.Inner.AllTheSame {
			allTheSame = 1
		}
		b = append(b, allTheSame)
		b = appendNullableBytes(b, tuple.Inner.Prefix)
		b = binary.LittleEndian.AppendUint16(b, uint16(len(tuple.Inner.Nodes)))

		for _, node := range tuple.Inner.Nodes {
			b = appendNullableBytes(b, node.Label)
			b = appendItemPointer(b, node.Child)
		}

	case SpgistRedirect, SpgistDead:
		b = appendItemPointer(b, tuple.Redirect)
	}

	return b
}

// DecodeSpgistTuple decodes a tuple; leafPage selects the live tuple layout.
func DecodeSpgistTuple(element []byte, leafPage bool) (SpgistTuple, error) {

	reader := newElementReader(element)

	tuple := SpgistTuple{State: SpgistTupleState(reader.uint8())}

	switch tuple.State {

	case SpgistLive:
		if leafPage {
			leaf := &SpgistLeaf{}
			leaf.HeapPointer = reader.itemPointer()
			leaf.NextOffset = reader.uint16()
			leaf.Datum = reader.nullableBytes()
			tuple.Leaf = leaf
			break
		}

		inner := &SpgistInner{}
		inner.AllTheSame = reader.uint8() != 0
		inner.Prefix = reader.nullableBytes()

		numNodes := int(reader.uint16())
		inner.Nodes = make([]SpgistNode, 0, numNodes)

		for range numNodes {
			node := SpgistNode{}
			node.Label = reader.nullableBytes()
			node.Child = reader.itemPointer()
			inner.Nodes = append(inner.Nodes, node)
		}
		tuple.Inner = inner

	case SpgistRedirect, SpgistDead:
		tuple.Redirect = reader.itemPointer()

	case SpgistPlaceholder:

	default:
		return SpgistTuple{}, errors.Mark(errors.Newf("unknown tuple state %d", tuple.State), ErrNotATreePage)
	}

	if reader.err != nil {
		return SpgistTuple{}, reader.err
	}
	return tuple, nil
}
