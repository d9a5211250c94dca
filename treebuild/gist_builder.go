package treebuild

import (
	bpm "github.com/Adarsh-Kmt/IndexInspector/bufferpoolmanager"
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/cockroachdb/errors"
)

type GistRow struct {
	Pointer pagecodec.ItemPointer
	Values  [][]byte
}

type GistOptions struct {
	Name          string
	NumAttributes int

	// Fanout caps the number of tuples per page.
	Fanout        int
	FormatVersion uint16
}

// BuildGist writes a balanced pointer tree holding rows in the given order.
// Every inner tuple carries the values of the first row below it.
func BuildGist(disk bpm.DiskManager, rows []GistRow, options GistOptions) (*pagecodec.MetaData, error) {

	if options.Fanout < 2 {
		options.Fanout = 32
	}

	orderings := make([]pagecodec.KeyOrdering, options.NumAttributes)
	metadata := newMetaData(options.Name, pagecodec.FamilyGist, options.FormatVersion, orderings)

	leaves := make([]*node[GistRow], 0)
	for _, items := range chunk(rows, options.Fanout) {
		leaves = append(leaves, &node[GistRow]{items: items})
	}

	if len(leaves) == 0 {
		leaves = append(leaves, &node[GistRow]{})
	}

	levels := buildLevels(leaves, options.Fanout)
	assignPageIds(levels, RootPageId)

	pages := pageSet{}

	for _, level := range levels {
		for i, n := range level {

			page, err := encodeGistNode(n, rightLink(level, i))
			if err != nil {
				return nil, errors.Wrapf(err, "encoding page %d", n.pageId)
			}
			pages[n.pageId] = page
		}
	}

	ordered, err := pages.ordered()
	if err != nil {
		return nil, err
	}
	return metadata, WriteTree(disk, metadata, ordered)
}

func encodeGistNode(n *node[GistRow], rightLink uint64) ([]byte, error) {

	if n.children == nil {

		builder := pagecodec.NewPageBuilder(pagecodec.FamilyGist, pagecodec.FlagLeaf).SetRightLink(rightLink)

		for _, row := range n.items {
			if _, err := builder.AppendTuple(pagecodec.EncodeGistTuple(pagecodec.GistTuple{Pointer: row.Pointer, Values: row.Values})); err != nil {
				return nil, err
			}
		}
		return builder.Bytes(), nil
	}

	builder := pagecodec.NewPageBuilder(pagecodec.FamilyGist, 0).SetRightLink(rightLink)

	for _, child := range n.children {

		tuple := pagecodec.GistTuple{
			Pointer: pagecodec.ItemPointer{Block: uint32(child.pageId), Offset: pagecodec.FirstOffset},
			Values:  firstGistValues(child),
		}
		if _, err := builder.AppendTuple(pagecodec.EncodeGistTuple(tuple)); err != nil {
			return nil, err
		}
	}
	return builder.Bytes(), nil
}

func firstGistValues(n *node[GistRow]) [][]byte {

	for n.children != nil {
		n = n.children[0]
	}

	if len(n.items) == 0 {
		return nil
	}
	return n.items[0].Values
}
