package treebuild

import (
	"slices"

	bpm "github.com/Adarsh-Kmt/IndexInspector/bufferpoolmanager"
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/cockroachdb/errors"
)

type GinEntry struct {
	Attribute uint8
	Category  pagecodec.GinCategory
	Key       []byte
	Items     []pagecodec.ItemPointer
}

type GinOptions struct {
	Name      string
	Orderings []pagecodec.KeyOrdering

	// Fanout caps entries per entry page and downlinks per posting tree page.
	Fanout int

	// Entries with more items than PostingListLimit get a posting tree.
	PostingListLimit int

	// SegmentSize items go in one posting segment, SegmentsPerPage segments on one data leaf.
	SegmentSize     int
	SegmentsPerPage int

	FormatVersion uint16
}

func (options *GinOptions) applyDefaults() {

	if options.Fanout < 2 {
		options.Fanout = 64
	}
	if options.PostingListLimit <= 0 {
		options.PostingListLimit = 32
	}
	if options.SegmentSize <= 0 {
		options.SegmentSize = 64
	}
	if options.SegmentsPerPage <= 0 {
		options.SegmentsPerPage = 4
	}
}

// CompareGinEntries orders entries attribute first, then category, then key.
// Keys are only compared for normal keys.
func CompareGinEntries(orderings []pagecodec.KeyOrdering, a, b GinEntry) int {

	if a.Attribute != b.Attribute {
		return int(a.Attribute) - int(b.Attribute)
	}

	if a.Category != b.Category {
		return int(a.Category) - int(b.Category)
	}

	if a.Category != pagecodec.GinCategoryNormKey {
		return 0
	}
	return orderings[a.Attribute].Compare(a.Key, b.Key)
}

// BuildGin writes an inverted-list tree. Entries are sorted before writing and
// their item lists are sorted too.
func BuildGin(disk bpm.DiskManager, entries []GinEntry, options GinOptions) (*pagecodec.MetaData, error) {

	options.applyDefaults()

	for _, entry := range entries {
		if int(entry.Attribute) >= len(options.Orderings) {
			return nil, errors.Newf("entry for attribute %d, tree has %d attributes", entry.Attribute, len(options.Orderings))
		}
	}

	metadata := newMetaData(options.Name, pagecodec.FamilyGin, options.FormatVersion, options.Orderings)

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b GinEntry) int {
		return CompareGinEntries(options.Orderings, a, b)
	})

	for i := range sorted {
		sorted[i].Items = slices.Clone(sorted[i].Items)
		slices.SortFunc(sorted[i].Items, comparePointers)
	}

	leaves := make([]*node[GinEntry], 0)
	for _, items := range chunk(sorted, options.Fanout) {
		leaves = append(leaves, &node[GinEntry]{items: items})
	}
	if len(leaves) == 0 {
		leaves = append(leaves, &node[GinEntry]{})
	}

	levels := buildLevels(leaves, options.Fanout)
	nextPageId := assignPageIds(levels, RootPageId)

	pages := pageSet{}

	// posting trees go after the entry tree
	postingRoots := make(map[int]uint32)
	for i, entry := range sorted {

		if len(entry.Items) <= options.PostingListLimit {
			continue
		}

		root, next, err := buildPostingTree(pages, entry.Items, nextPageId, options)
		if err != nil {
			return nil, errors.Wrapf(err, "posting tree of entry %q", entry.Key)
		}
		postingRoots[i] = root
		nextPageId = next
	}

	entryIndex := 0
	for _, level := range levels {
		for i, n := range level {

			var page []byte
			var err error

			if n.children == nil {
				page, err = encodeGinEntryLeaf(n, rightLink(level, i), postingRoots, entryIndex)
				entryIndex += len(n.items)
			} else {
				page, err = encodeGinEntryInner(n, rightLink(level, i))
			}

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

func comparePointers(a, b pagecodec.ItemPointer) int {

	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

func encodeGinEntryLeaf(n *node[GinEntry], rightLink uint64, postingRoots map[int]uint32, firstIndex int) ([]byte, error) {

	builder := pagecodec.NewPageBuilder(pagecodec.FamilyGin, pagecodec.FlagLeaf).SetRightLink(rightLink)

	for i, entry := range n.items {

		tuple := pagecodec.GinEntryTuple{
			Attribute: entry.Attribute,
			Category:  entry.Category,
			Key:       entry.Key,
		}

		if root, exists := postingRoots[firstIndex+i]; exists {
			tuple.IsPostingTree = true
			tuple.PostingTreeRoot = root
		} else {
			tuple.Postings = entry.Items
		}

		if _, err := builder.AppendTuple(pagecodec.EncodeGinEntryTuple(tuple)); err != nil {
			return nil, err
		}
	}
	return builder.Bytes(), nil
}

// encodeGinEntryInner writes one downlink per child, keyed by the child's last entry.
func encodeGinEntryInner(n *node[GinEntry], rightLink uint64) ([]byte, error) {

	builder := pagecodec.NewPageBuilder(pagecodec.FamilyGin, 0).SetRightLink(rightLink)

	for _, child := range n.children {

		last := lastGinEntry(child)

		tuple := pagecodec.GinEntryTuple{
			Attribute:   last.Attribute,
			Category:    last.Category,
			Key:         last.Key,
			HasDownlink: true,
			Downlink:    uint32(child.pageId),
		}

		if _, err := builder.AppendTuple(pagecodec.EncodeGinEntryTuple(tuple)); err != nil {
			return nil, err
		}
	}
	return builder.Bytes(), nil
}

func lastGinEntry(n *node[GinEntry]) GinEntry {

	for n.children != nil {
		n = n.children[len(n.children)-1]
	}

	if len(n.items) == 0 {
		return GinEntry{}
	}
	return n.items[len(n.items)-1]
}

// buildPostingTree writes a posting tree for items starting at page firstPageId.
// It returns the root page and the next free page id.
func buildPostingTree(pages pageSet, items []pagecodec.ItemPointer, firstPageId uint64, options GinOptions) (uint32, uint64, error) {

	leaves := make([]*node[[]pagecodec.ItemPointer], 0)
	for _, segments := range chunk(chunk(items, options.SegmentSize), options.SegmentsPerPage) {
		leaves = append(leaves, &node[[]pagecodec.ItemPointer]{items: segments})
	}

	levels := buildLevels(leaves, options.Fanout)
	nextPageId := assignPageIds(levels, firstPageId)

	for _, level := range levels {
		for i, n := range level {

			var builder *pagecodec.PageBuilder

			if n.children == nil {

				builder = pagecodec.NewPageBuilder(pagecodec.FamilyGin, pagecodec.FlagData|pagecodec.FlagLeaf)
				for _, segment := range n.items {
					if _, err := builder.AppendTuple(pagecodec.EncodeGinPostingSegment(segment)); err != nil {
						return 0, 0, err
					}
				}

			} else {

				builder = pagecodec.NewPageBuilder(pagecodec.FamilyGin, pagecodec.FlagData)
				for _, child := range n.children {

					item := pagecodec.GinPostingItem{Child: uint32(child.pageId), Key: lastPosting(child)}
					if _, err := builder.AppendTuple(pagecodec.EncodeGinPostingItem(item)); err != nil {
						return 0, 0, err
					}
				}
			}

			pages[n.pageId] = builder.SetRightLink(rightLink(level, i)).Bytes()
		}
	}

	return uint32(levels[0][0].pageId), nextPageId, nil
}

func lastPosting(n *node[[]pagecodec.ItemPointer]) pagecodec.ItemPointer {

	for n.children != nil {
		n = n.children[len(n.children)-1]
	}

	segment := n.items[len(n.items)-1]
	return segment[len(segment)-1]
}
