package treebuild

import (
	"log/slog"

	bpm "github.com/Adarsh-Kmt/IndexInspector/bufferpoolmanager"
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/cockroachdb/errors"
)

// RootPageId is where every builder places the root of the tree.
const RootPageId = 1

// WriteTree writes the metapage to page 0 and pages[i] to page i+1.
func WriteTree(disk bpm.DiskManager, metadata *pagecodec.MetaData, pages [][]byte) error {

	if err := disk.WritePage(pagecodec.MetaDataPageId, pagecodec.DefaultMetaDataCodec().EncodeMetaDataPage(metadata)); err != nil {
		return errors.Wrapf(err, "writing metapage of %s", metadata.Name)
	}

	for i, page := range pages {

		if err := disk.WritePage(uint64(i+1), page); err != nil {
			return errors.Wrapf(err, "writing page %d of %s", i+1, metadata.Name)
		}
	}

	slog.Debug("tree written", "name", metadata.Name, "family", metadata.Family.String(), "pages", len(pages)+1, "function", "WriteTree", "at", "treebuild")

	return nil
}

func newMetaData(name string, family pagecodec.TreeFamily, formatVersion uint16, orderings []pagecodec.KeyOrdering) *pagecodec.MetaData {

	if formatVersion == 0 {
		formatVersion = pagecodec.CurrentFormatVersion
	}

	return &pagecodec.MetaData{
		Name:          name,
		Family:        family,
		FormatVersion: formatVersion,
		RootPageId:    RootPageId,
		Orderings:     orderings,
	}
}

func chunk[T any](items []T, size int) [][]T {

	chunks := make([][]T, 0, (len(items)+size-1)/size)

	for begin := 0; begin < len(items); begin += size {
		end := min(begin+size, len(items))
		chunks = append(chunks, items[begin:end])
	}
	return chunks
}

// node is one page of a balanced tree under construction.
type node[T any] struct {
	pageId   uint64
	items    []T
	children []*node[T]
}

// buildLevels groups leaves into parents of at most fanout children until one
// root remains. levels[0] is the root level.
func buildLevels[T any](leaves []*node[T], fanout int) [][]*node[T] {

	levels := [][]*node[T]{leaves}

	for len(levels[0]) > 1 {

		parents := make([]*node[T], 0)
		for _, children := range chunk(levels[0], fanout) {
			parents = append(parents, &node[T]{children: children})
		}
		levels = append([][]*node[T]{parents}, levels...)
	}
	return levels
}

// assignPageIds numbers pages level by level, left to right, starting at first.
// It returns the next free page id.
func assignPageIds[T any](levels [][]*node[T], first uint64) uint64 {

	pageId := first
	for _, level := range levels {
		for _, n := range level {
			n.pageId = pageId
			pageId++
		}
	}
	return pageId
}

func rightLink[T any](level []*node[T], i int) uint64 {

	if i+1 < len(level) {
		return level[i+1].pageId
	}
	return pagecodec.InvalidPageId
}

// pageSet collects encoded pages by page id.
type pageSet map[uint64][]byte

func (pages pageSet) ordered() ([][]byte, error) {

	ordered := make([][]byte, len(pages))

	for pageId, page := range pages {

		if pageId < RootPageId || pageId > uint64(len(pages)) {
			return nil, errors.Newf("page %d left a hole in the tree file", pageId)
		}
		ordered[pageId-1] = page
	}
	return ordered, nil
}

func appendAll(builder *pagecodec.PageBuilder, tuples [][]byte) error {

	for _, tuple := range tuples {
		if _, err := builder.AppendTuple(tuple); err != nil {
			return err
		}
	}
	return nil
}
