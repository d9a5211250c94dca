package treewalk

import (
	"fmt"
	"strings"

	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
)

// Stats accumulates the totals of a structural walk.
type Stats struct {
	Level           int
	NumPages        int
	NumLeafPages    int
	NumTuple        int
	NumInvalidTuple int
	NumLeafTuple    int
	TupleSize       int
	LeafTupleSize   int
	TotalSize       int
}

// AddPage records one visited page at the given depth, root being depth 0.
func (stats *Stats) AddPage(depth int, numTuples int, freeBytes int) {

	stats.NumPages++
	stats.TupleSize += pagecodec.PageCapacity - freeBytes
	stats.TotalSize += pagecodec.PageSize
	stats.NumTuple += numTuples

	if depth > stats.Level {
		stats.Level = depth
	}
}

func (stats *Stats) AddLeafPage(numTuples int, freeBytes int) {

	stats.NumLeafPages++
	stats.NumLeafTuple += numTuples
	stats.LeafTupleSize += pagecodec.PageCapacity - freeBytes
}

func (stats *Stats) AddInvalidTuple() {
	stats.NumInvalidTuple++
}

func (stats *Stats) Report() string {

	var sb strings.Builder

	fmt.Fprintf(&sb, "Number of levels:          %d\n", stats.Level+1)
	fmt.Fprintf(&sb, "Number of pages:           %d\n", stats.NumPages)
	fmt.Fprintf(&sb, "Number of leaf pages:      %d\n", stats.NumLeafPages)
	fmt.Fprintf(&sb, "Number of tuples:          %d\n", stats.NumTuple)
	fmt.Fprintf(&sb, "Number of invalid tuples:  %d\n", stats.NumInvalidTuple)
	fmt.Fprintf(&sb, "Number of leaf tuples:     %d\n", stats.NumLeafTuple)
	fmt.Fprintf(&sb, "Total size of tuples:      %d bytes\n", stats.TupleSize)
	fmt.Fprintf(&sb, "Total size of leaf tuples: %d bytes\n", stats.LeafTupleSize)
	fmt.Fprintf(&sb, "Total size of index:       %d bytes\n", stats.TotalSize)

	return sb.String()
}
