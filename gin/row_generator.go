package gin

import (
	"log/slog"

	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
	"github.com/cockroachdb/errors"
)

// Row is one distinct key of the scanned attribute and the number of rows it points at.
// Count is exact for inline posting lists and an estimate for posting trees.
type Row struct {
	Value    []byte
	Null     bool
	Category pagecodec.GinCategory
	Count    int
}

// entryKey is the copy of the last emitted entry used to find it again.
type entryKey struct {
	attribute uint8
	category  pagecodec.GinCategory
	key       []byte
}

// RowGenerator emits the keys of one attribute in key order. It holds no page
// lock between calls to Next and finds its position again on every call, so
// pages may split or move right in between.
type RowGenerator struct {
	store    treewalk.PageStore
	metadata *pagecodec.MetaData
	attr     int

	pageId  uint64
	offset  uint16
	current entryKey
	haveKey bool

	finished bool
}

var _ treewalk.Generator[Row] = (*RowGenerator)(nil)

// NewRowGenerator validates attr against the tree before any page is read.
func NewRowGenerator(store treewalk.PageStore, metadata *pagecodec.MetaData, attr int) (*RowGenerator, error) {

	if attr < 0 || attr >= metadata.NumAttributes() {
		return nil, errors.Wrapf(treewalk.ErrWrongColumnIndex, "attribute %d, %s has %d", attr, metadata.Name, metadata.NumAttributes())
	}

	return &RowGenerator{
		store:    store,
		metadata: metadata,
		attr:     attr,
		pageId:   metadata.RootPageId,
		offset:   pagecodec.InvalidOffset,
	}, nil
}

func (generator *RowGenerator) loadPage(pageId uint64) (*treewalk.Page, error) {
	return treewalk.LoadPage(generator.store, pageId, pagecodec.FamilyGin)
}

func (generator *RowGenerator) entryAt(page *treewalk.Page, offset uint16) (pagecodec.GinEntryTuple, error) {

	element, err := page.Slot(offset)
	if err != nil {
		return pagecodec.GinEntryTuple{}, errors.Mark(err, treewalk.ErrNotATreePage)
	}

	entry, err := pagecodec.DecodeGinEntryTuple(element)
	if err != nil {
		return pagecodec.GinEntryTuple{}, errors.Wrapf(err, "page %d offset %d", page.PageId(), offset)
	}
	return entry, nil
}

// descendLeftmost follows first downlinks until it reaches an entry leaf. The returned page is locked.
func (generator *RowGenerator) descendLeftmost(page *treewalk.Page) (*treewalk.Page, error) {

	for !page.IsLeaf() {

		if page.SlotCount() == 0 {
			page.Release()
			return nil, errors.Mark(errors.Newf("inner page %d has no downlinks", page.PageId()), treewalk.ErrNotATreePage)
		}

		entry, err := generator.entryAt(page, pagecodec.FirstOffset)
		page.Release()

		if err != nil {
			return nil, err
		}

		if !entry.HasDownlink {
			return nil, errors.Mark(errors.Newf("entry on inner page %d has no downlink", page.PageId()), treewalk.ErrNotATreePage)
		}

		if page, err = generator.loadPage(uint64(entry.Downlink)); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// advancePage moves right while the offset is past the last slot of the page.
// It returns false, still holding the rightmost page, once no sibling is left.
func (generator *RowGenerator) advancePage(page *treewalk.Page) (*treewalk.Page, bool, error) {

	for generator.offset > page.SlotCount() {

		if page.IsRightmost() {
			return page, false, nil
		}

		sibling, err := generator.loadPage(page.RightLink())
		if err != nil {
			page.Release()
			return nil, false, err
		}

		page.Release()

		page = sibling
		generator.pageId = page.PageId()
		generator.offset = pagecodec.FirstOffset
	}
	return page, true, nil
}

// compareEntry orders the remembered key against an entry: attribute, then
// category, then key. Entries of the same non-normal category compare equal.
func (generator *RowGenerator) compareEntry(entry pagecodec.GinEntryTuple) int {

	if generator.current.attribute != entry.Attribute {
		return int(generator.current.attribute) - int(entry.Attribute)
	}

	if generator.current.category != entry.Category {
		return int(generator.current.category) - int(entry.Category)
	}

	if entry.Category != pagecodec.GinCategoryNormKey {
		return 0
	}

	if int(entry.Attribute) >= len(generator.metadata.Orderings) {
		return -1
	}
	return generator.metadata.Orderings[entry.Attribute].Compare(generator.current.key, entry.Key)
}

// refindPosition locks the page holding the remembered entry and points the
// offset at it. On the first call it positions just before the first entry of
// the leaf level. It returns false, with the page still locked, when the entry
// cannot be found any more.
func (generator *RowGenerator) refindPosition() (*treewalk.Page, bool, error) {

	page, err := generator.loadPage(generator.pageId)
	if err != nil {
		return nil, false, err
	}

	if page, err = generator.descendLeftmost(page); err != nil {
		return nil, false, err
	}
	generator.pageId = page.PageId()

	if !generator.haveKey {

		generator.offset = pagecodec.FirstOffset

		page, ok, err := generator.advancePage(page)
		if err != nil {
			return nil, false, err
		}

		// Next steps onto the first entry
		generator.offset = pagecodec.InvalidOffset
		return page, ok, nil
	}

	for {
		var ok bool
		if page, ok, err = generator.advancePage(page); err != nil || !ok {
			return page, false, err
		}

		entry, err := generator.entryAt(page, generator.offset)
		if err != nil {
			page.Release()
			return nil, false, err
		}

		if generator.compareEntry(entry) == 0 {
			return page, true, nil
		}

		generator.offset++
	}
}

func (generator *RowGenerator) Next() (Row, bool, error) {

	if generator.finished {
		return Row{}, false, nil
	}

	page, ok, err := generator.refindPosition()
	if err != nil {
		generator.finished = true
		return Row{}, false, err
	}

	if !ok {
		page.Release()
		generator.finished = true
		return Row{}, false, nil
	}

	var entry pagecodec.GinEntryTuple

	for {
		generator.offset++

		if page, ok, err = generator.advancePage(page); err != nil {
			generator.finished = true
			return Row{}, false, err
		}

		if !ok {
			page.Release()
			generator.finished = true
			return Row{}, false, nil
		}

		if entry, err = generator.entryAt(page, generator.offset); err != nil {
			page.Release()
			generator.finished = true
			return Row{}, false, err
		}

		if int(entry.Attribute) == generator.attr {
			break
		}
	}

	generator.current = entryKey{attribute: entry.Attribute, category: entry.Category, key: entry.Key}
	generator.haveKey = true

	page.Release()

	row := Row{Category: entry.Category, Null: entry.Category != pagecodec.GinCategoryNormKey}
	if !row.Null {
		row.Value = entry.Key
	}

	if entry.IsPostingTree {

		count, err := EstimatePostingTree(generator.store, uint64(entry.PostingTreeRoot))
		if err != nil {
			generator.finished = true
			return Row{}, false, err
		}
		row.Count = count

	} else {
		row.Count = len(entry.Postings)
	}

	slog.Debug("gin entry emitted", "attr", generator.attr, "page", generator.pageId, "offset", generator.offset, "count", row.Count, "function", "Next", "at", "gin.RowGenerator")

	return row, true, nil
}

// Close ends the scan. The generator holds no locks between calls, so there is nothing to release.
func (generator *RowGenerator) Close() {
	generator.finished = true
}
