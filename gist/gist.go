package gist

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
	"github.com/xlab/treeprint"
)

// CollectStats walks the tree below root and totals its pages and tuples.
// A negative maxDepth walks the whole tree. Partial totals are never returned.
func CollectStats(store treewalk.PageStore, root uint64, maxDepth int) (treewalk.Stats, error) {

	stats := treewalk.Stats{}

	w := newWalker(store, root, maxDepth)
	w.onVisit = func(v visit) {

		numTuples := int(v.page.SlotCount())

		stats.AddPage(v.depth, numTuples, v.page.FreeBytes())
		if v.page.IsLeaf() {
			stats.AddLeafPage(numTuples, v.page.FreeBytes())
		}
	}

	for {
		current, ok, err := w.next()

		if err != nil {
			slog.Error("gist stat walk failed", "root", root, "error", err.Error(), "function", "CollectStats", "at", "gist")
			return treewalk.Stats{}, err
		}

		if !ok {
			break
		}

		if !current.leaf && current.tuple.Invalid {
			stats.AddInvalidTuple()
		}
	}

	return stats, nil
}

const dumpInitialSize = 1024

// DumpText renders one line per page, children indented below their parent.
func DumpText(store treewalk.PageStore, root uint64, maxDepth int) (string, error) {

	buf := make([]byte, 0, dumpInitialSize)

	w := newWalker(store, root, maxDepth)
	w.onVisit = func(v visit) {

		// grow ahead of the next line the same way for every page
		for len(buf)+v.depth*4+128 >= cap(buf) {
			grown := make([]byte, len(buf), cap(buf)*2)
			copy(grown, buf)
			buf = grown
		}

		buf = fmt.Appendf(buf, "%s%d(l:%d) blk: %d numTuple: %d free: %db(%.2f%%) rightlink:%d (%s)\n",
			strings.Repeat(" ", v.depth*4),
			v.parentOffset,
			v.depth,
			v.page.PageId(),
			v.page.SlotCount(),
			v.page.FreeBytes(),
			fillPercent(v.page.FreeBytes()),
			uint32(v.page.RightLink()),
			rightLinkState(v.page),
		)
	}

	if err := w.run(); err != nil {
		slog.Error("gist dump failed", "root", root, "error", err.Error(), "function", "DumpText", "at", "gist")
		return "", err
	}

	return string(buf), nil
}

func fillPercent(freeBytes int) float64 {
	return 100.0 * float64(pagecodec.PageCapacity-freeBytes) / float64(pagecodec.PageCapacity)
}

func rightLinkState(page *treewalk.Page) string {

	if page.IsRightmost() {
		return "InvalidBlockNumber"
	}
	return "OK"
}

// Render builds the same traversal as DumpText as a printable tree.
func Render(store treewalk.PageStore, root uint64, maxDepth int) (treeprint.Tree, error) {

	tree := treeprint.NewWithRoot(fmt.Sprintf("gist root blk %d", root))

	// branches[d] is the most recent branch opened at depth d
	branches := make([]treeprint.Tree, 0)

	w := newWalker(store, root, maxDepth)
	w.onVisit = func(v visit) {

		label := fmt.Sprintf("blk %d: %d tuples, %d bytes free", v.page.PageId(), v.page.SlotCount(), v.page.FreeBytes())
		if v.page.IsLeaf() {
			label += " (leaf)"
		}

		parent := tree
		if v.depth > 0 {
			parent = branches[v.depth-1]
		}

		branch := parent.AddMetaBranch(v.parentOffset, label)

		branches = append(branches[:v.depth], branch)
	}

	if err := w.run(); err != nil {
		return nil, err
	}
	return tree, nil
}
