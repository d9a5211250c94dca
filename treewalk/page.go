package treewalk

import (
	"log/slog"

	bpm "github.com/Adarsh-Kmt/IndexInspector/bufferpoolmanager"
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/cockroachdb/errors"
)

// PageStore is the part of the buffer pool the walkers need.
type PageStore interface {
	NewReadGuard(pageId uint64) (*bpm.ReadGuard, error)
	NumPages() (uint64, error)
}

// Page is a read-locked, validated tree page. The lock is held until Release.
type Page struct {
	guard     *bpm.ReadGuard
	header    *pagecodec.Header
	slotCodec pagecodec.SlotCodec
}

// LoadPage pins and read-locks a page and validates it as a page of the given family.
// On failure nothing stays locked.
func LoadPage(store PageStore, pageId uint64, family pagecodec.TreeFamily) (*Page, error) {

	guard, err := store.NewReadGuard(pageId)

	if err != nil {
		return nil, errors.Wrapf(err, "locking page %d", pageId)
	}

	header, err := pagecodec.DefaultHeaderCodec().DecodePageHeader(guard.GetPageData(), family)

	if err != nil {
		guard.Done()
		slog.Debug("page failed validation", "pageId", pageId, "error", err.Error(), "function", "LoadPage", "at", "treewalk")
		return nil, errors.Wrapf(err, "page %d", pageId)
	}

	return &Page{
		guard:     guard,
		header:    header,
		slotCodec: pagecodec.DefaultSlotCodec(),
	}, nil
}

func (page *Page) PageId() uint64 {
	return page.guard.GetPageId()
}

func (page *Page) Header() *pagecodec.Header {
	return page.header
}

func (page *Page) SlotCount() uint16 {
	return page.header.NumSlots
}

// Slot returns the tuple bytes at a 1-indexed offset. The slice aliases the
// locked page and must be copied before Release.
func (page *Page) Slot(offset uint16) ([]byte, error) {

	if !page.guard.IsActive() {
		return nil, errors.Newf("page %d was already released", page.guard.GetPageId())
	}

	return page.slotCodec.Element(page.guard.GetPageData(), page.header.NumSlots, offset)
}

func (page *Page) IsLeaf() bool {
	return page.header.IsLeaf()
}

func (page *Page) IsDeleted() bool {
	return page.header.IsDeleted()
}

func (page *Page) IsData() bool {
	return page.header.IsData()
}

func (page *Page) IsNew() bool {
	return page.header.IsNew
}

func (page *Page) FreeBytes() int {
	return page.header.FreeBytes()
}

// RightLink is the right sibling, or pagecodec.InvalidPageId on the rightmost page.
func (page *Page) RightLink() uint64 {
	return page.header.RightLink
}

func (page *Page) IsRightmost() bool {
	return page.header.RightLink == pagecodec.InvalidPageId
}

// Release unlocks and unpins the page. It returns false if the page was already released.
func (page *Page) Release() bool {
	return page.guard.Done()
}
