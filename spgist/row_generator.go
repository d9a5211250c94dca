package spgist

import (
	"log/slog"

	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
	"github.com/cockroachdb/errors"
)

// Row describes one live tuple at Tid. Leaf rows carry Leaf; inner rows carry
// the node that is about to be descended. Nil pointers stand for null columns.
type Row struct {
	Tid        pagecodec.ItemPointer
	AllTheSame *bool
	Node       *int
	Level      int
	TidPointer *pagecodec.ItemPointer
	Prefix     []byte
	Label      []byte
	Leaf       []byte
}

func (row Row) IsLeaf() bool {
	return row.Node == nil
}

// frame points at a tuple still to be visited. It holds no lock.
type frame struct {
	pointer   pagecodec.ItemPointer
	nextLabel int
	level     int
}

// RowGenerator walks the tree depth-first with an explicit stack. A page is
// locked only while one tuple is read; frames made stale by concurrent changes
// are dropped.
type RowGenerator struct {
	store treewalk.PageStore
	stack treewalk.Stack[frame]
}

var _ treewalk.Generator[Row] = (*RowGenerator)(nil)

func NewRowGenerator(store treewalk.PageStore, root uint64) *RowGenerator {

	generator := &RowGenerator{store: store}
	generator.stack.Push(frame{
		pointer:   pagecodec.ItemPointer{Block: uint32(root), Offset: pagecodec.FirstOffset},
		nextLabel: 0,
		level:     1,
	})

	return generator
}

func (generator *RowGenerator) Next() (Row, bool, error) {

	for {
		current, ok := generator.stack.Pop()
		if !ok {
			return Row{}, false, nil
		}

		if !current.pointer.IsValid() {
			continue
		}

		row, emitted, err := generator.visit(current)
		if err != nil {
			generator.Close()
			return Row{}, false, err
		}

		if emitted {
			return row, true, nil
		}
	}
}

// visit reads the tuple a frame points at and pushes the frames that follow it.
func (generator *RowGenerator) visit(current frame) (Row, bool, error) {

	page, err := treewalk.LoadPage(generator.store, uint64(current.pointer.Block), pagecodec.FamilySpgist)
	if err != nil {
		return Row{}, false, err
	}
	defer page.Release()

	if current.pointer.Offset > page.SlotCount() {
		slog.Debug("dropping stale frame", "pointer", current.pointer.String(), "slots", page.SlotCount(), "function", "visit", "at", "spgist.RowGenerator")
		return Row{}, false, nil
	}

	element, err := page.Slot(current.pointer.Offset)
	if err != nil {
		return Row{}, false, errors.Mark(err, treewalk.ErrNotATreePage)
	}

	tuple, err := pagecodec.DecodeSpgistTuple(element, page.IsLeaf())
	if err != nil {
		return Row{}, false, errors.Wrapf(err, "tuple %s", current.pointer)
	}

	if tuple.State != pagecodec.SpgistLive {
		return Row{}, false, nil
	}

	if tuple.Leaf != nil {

		if tuple.Leaf.NextOffset != pagecodec.InvalidOffset {
			generator.stack.Push(frame{
				pointer: pagecodec.ItemPointer{Block: current.pointer.Block, Offset: tuple.Leaf.NextOffset},
				level:   current.level,
			})
		}

		return Row{
			Tid:   current.pointer,
			Level: current.level,
			Leaf:  tuple.Leaf.Datum,
		}, true, nil
	}

	inner := tuple.Inner

	for i := current.nextLabel; i < len(inner.Nodes); i++ {

		node := inner.Nodes[i]
		if !node.Child.IsValid() {
			continue
		}

		generator.stack.Push(frame{pointer: current.pointer, nextLabel: i + 1, level: current.level})
		generator.stack.Push(frame{pointer: node.Child, nextLabel: 0, level: current.level + 1})

		allTheSame := inner.AllTheSame
		nodeIndex := i
		child := node.Child

		return Row{
			Tid:        current.pointer,
			AllTheSame: &allTheSame,
			Node:       &nodeIndex,
			Level:      current.level,
			TidPointer: &child,
			Prefix:     inner.Prefix,
			Label:      node.Label,
		}, true, nil
	}

	return Row{}, false, nil
}

// Close drops every pending frame. No lock is held between calls.
func (generator *RowGenerator) Close() {
	generator.stack.Drain(nil)
}
