package gist

import (
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
)

// Row is one tuple of the tree. Level starts at 1 for tuples on the root page.
type Row struct {
	Level int
	Valid bool

	// Payload holds the attribute values, nil for an invalid inner tuple.
	Payload [][]byte
}

// RowGenerator emits one row per tuple in depth-first order. It keeps the
// pages of the current path read-locked between calls to Next; Close releases them.
type RowGenerator struct {
	walker   *walker
	numAttrs int
}

var _ treewalk.Generator[Row] = (*RowGenerator)(nil)

func NewRowGenerator(store treewalk.PageStore, root uint64, numAttrs int) *RowGenerator {

	return &RowGenerator{
		walker:   newWalker(store, root, -1),
		numAttrs: numAttrs,
	}
}

func (generator *RowGenerator) Next() (Row, bool, error) {

	current, ok, err := generator.walker.next()

	if err != nil || !ok {
		return Row{}, false, err
	}

	row := Row{
		Level: current.depth + 1,
		Valid: !current.tuple.Invalid,
	}

	if row.Valid {
		row.Payload = current.tuple.Values
		if len(row.Payload) < generator.numAttrs {
			padded := make([][]byte, generator.numAttrs)
			copy(padded, row.Payload)
			row.Payload = padded
		}
	}

	return row, true, nil
}

// Close releases every page lock the generator holds. It may be called more than once.
func (generator *RowGenerator) Close() {
	generator.walker.close()
}
