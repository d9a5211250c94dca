package treebuild

import (
	bpm "github.com/Adarsh-Kmt/IndexInspector/bufferpoolmanager"
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/cockroachdb/errors"
)

type SpgistRow struct {
	HeapPointer pagecodec.ItemPointer
	Datum       []byte
}

type SpgistOptions struct {
	Name string

	// Groups of at most LeafChainLimit rows are stored as one leaf chain.
	LeafChainLimit int
	FormatVersion  uint16
}

// spgistWriter packs tuples into pages. Page 1 only ever holds the root tuple.
type spgistWriter struct {
	builders  []*pagecodec.PageBuilder
	innerPage int
	leafPage  int
	limit     int
}

// BuildSpgist writes a radix-style space-partition tree: inner tuples split
// rows on the byte at their depth, nodes label that byte and rows that end at
// this depth share an unlabeled node. Small groups become leaf chains.
func BuildSpgist(disk bpm.DiskManager, rows []SpgistRow, options SpgistOptions) (*pagecodec.MetaData, error) {

	if options.LeafChainLimit <= 0 {
		options.LeafChainLimit = 8
	}

	metadata := newMetaData(options.Name, pagecodec.FamilySpgist, options.FormatVersion, []pagecodec.KeyOrdering{pagecodec.OrderingBytes})

	writer := &spgistWriter{innerPage: -1, leafPage: -1, limit: options.LeafChainLimit}

	if len(rows) <= options.LeafChainLimit {

		writer.builders = append(writer.builders, pagecodec.NewPageBuilder(pagecodec.FamilySpgist, pagecodec.FlagLeaf))
		if _, err := writer.writeChain(0, rows); err != nil {
			return nil, err
		}

	} else {

		writer.builders = append(writer.builders, pagecodec.NewPageBuilder(pagecodec.FamilySpgist, 0))

		inner, err := writer.buildInner(rows, 0)
		if err != nil {
			return nil, err
		}
		if _, err := writer.builders[0].AppendTuple(pagecodec.EncodeSpgistTuple(inner)); err != nil {
			return nil, err
		}
	}

	pages := make([][]byte, 0, len(writer.builders))
	for _, builder := range writer.builders {
		pages = append(pages, builder.Bytes())
	}

	return metadata, WriteTree(disk, metadata, pages)
}

// buildInner writes everything below an inner tuple and returns the tuple itself.
func (writer *spgistWriter) buildInner(rows []SpgistRow, depth int) (pagecodec.SpgistTuple, error) {

	labels := make([][]byte, 0)
	groups := make(map[string][]SpgistRow)

	for _, row := range rows {

		var label []byte
		if depth < len(row.Datum) {
			label = []byte{row.Datum[depth]}
		}

		key := string(label)
		if label == nil {
			key = "\x00null"
		}

		if _, exists := groups[key]; !exists {
			labels = append(labels, label)
		}
		groups[key] = append(groups[key], row)
	}

	inner := &pagecodec.SpgistInner{AllTheSame: len(labels) == 1}

	for _, label := range labels {

		key := string(label)
		if label == nil {
			key = "\x00null"
		}
		group := groups[key]

		child, err := writer.buildChild(group, depth+1, label == nil)
		if err != nil {
			return pagecodec.SpgistTuple{}, err
		}
		inner.Nodes = append(inner.Nodes, pagecodec.SpgistNode{Label: label, Child: child})
	}

	return pagecodec.SpgistTuple{State: pagecodec.SpgistLive, Inner: inner}, nil
}

func (writer *spgistWriter) buildChild(rows []SpgistRow, depth int, exhausted bool) (pagecodec.ItemPointer, error) {

	if len(rows) <= writer.limit || exhausted || allShorter(rows, depth) {

		page, err := writer.pageFor(&writer.leafPage, pagecodec.FlagLeaf, chainSize(rows))
		if err != nil {
			return pagecodec.InvalidItemPointer, err
		}
		return writer.writeChain(page, rows)
	}

	inner, err := writer.buildInner(rows, depth)
	if err != nil {
		return pagecodec.InvalidItemPointer, err
	}

	tuple := pagecodec.EncodeSpgistTuple(inner)

	page, err := writer.pageFor(&writer.innerPage, 0, len(tuple)+4)
	if err != nil {
		return pagecodec.InvalidItemPointer, err
	}

	offset, err := writer.builders[page].AppendTuple(tuple)
	if err != nil {
		return pagecodec.InvalidItemPointer, err
	}
	return pagecodec.ItemPointer{Block: uint32(page + 1), Offset: offset}, nil
}

// writeChain stores rows on one page, each pointing at the next, and returns the head.
func (writer *spgistWriter) writeChain(page int, rows []SpgistRow) (pagecodec.ItemPointer, error) {

	if len(rows) == 0 {
		return pagecodec.InvalidItemPointer, nil
	}

	builder := writer.builders[page]
	first := builder.NumSlots() + 1

	for i, row := range rows {

		next := pagecodec.InvalidOffset
		if i+1 < len(rows) {
			next = first + uint16(i) + 1
		}

		tuple := pagecodec.SpgistTuple{
			State: pagecodec.SpgistLive,
			Leaf:  &pagecodec.SpgistLeaf{HeapPointer: row.HeapPointer, NextOffset: next, Datum: row.Datum},
		}
		if _, err := builder.AppendTuple(pagecodec.EncodeSpgistTuple(tuple)); err != nil {
			return pagecodec.InvalidItemPointer, errors.Wrapf(err, "leaf chain of %d rows", len(rows))
		}
	}

	return pagecodec.ItemPointer{Block: uint32(page + 1), Offset: first}, nil
}

// pageFor returns the index of a page with room for size bytes, starting a new one if needed.
func (writer *spgistWriter) pageFor(current *int, flags uint8, size int) (int, error) {

	if *current >= 0 && writer.builders[*current].Fits(size) {
		return *current, nil
	}

	if size > pagecodec.PageCapacity {
		return 0, errors.Wrapf(pagecodec.ErrPageFull, "%d bytes never fit on one page", size)
	}

	writer.builders = append(writer.builders, pagecodec.NewPageBuilder(pagecodec.FamilySpgist, flags))
	*current = len(writer.builders) - 1

	return *current, nil
}

func chainSize(rows []SpgistRow) int {

	size := 0
	for _, row := range rows {
		size += len(pagecodec.EncodeSpgistTuple(pagecodec.SpgistTuple{State: pagecodec.SpgistLive, Leaf: &pagecodec.SpgistLeaf{Datum: row.Datum}})) + 4
	}
	// Fits adds one more slot on top
	return size - 4
}

func allShorter(rows []SpgistRow, depth int) bool {

	for _, row := range rows {
		if depth < len(row.Datum) {
			return false
		}
	}
	return true
}
