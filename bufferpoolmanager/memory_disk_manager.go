package bufferpoolmanager

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"
)

type memoryPage struct {
	pageId uint64
	data   []byte
}

func memoryPageLess(a, b memoryPage) bool {
	return a.pageId < b.pageId
}

// MemoryDiskManager keeps page images in an ordered in-memory tree. Tests and
// tree builders use it in place of a file.
type MemoryDiskManager struct {
	mutex *sync.RWMutex
	pages *btree.BTreeG[memoryPage]
}

func NewMemoryDiskManager() *MemoryDiskManager {

	return &MemoryDiskManager{
		mutex: &sync.RWMutex{},
		pages: btree.NewG[memoryPage](16, memoryPageLess),
	}
}

func (disk *MemoryDiskManager) ReadPage(pageId uint64) ([]byte, error) {

	disk.mutex.RLock()
	defer disk.mutex.RUnlock()

	numPages := disk.numPages()

	if pageId >= numPages {
		return nil, errors.Wrapf(ErrPageOutOfRange, "page %d, store has %d pages", pageId, numPages)
	}

	data := make([]byte, PAGE_SIZE)

	// pages skipped by a sparse write read back as zeroed, never initialized pages
	if page, exists := disk.pages.Get(memoryPage{pageId: pageId}); exists {
		copy(data, page.data)
	}
	return data, nil
}

func (disk *MemoryDiskManager) WritePage(pageId uint64, data []byte) error {

	if err := checkPageImage(data); err != nil {
		return err
	}

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	image := make([]byte, PAGE_SIZE)
	copy(image, data)

	disk.pages.ReplaceOrInsert(memoryPage{pageId: pageId, data: image})
	return nil
}

func (disk *MemoryDiskManager) NumPages() (uint64, error) {

	disk.mutex.RLock()
	defer disk.mutex.RUnlock()

	return disk.numPages(), nil
}

func (disk *MemoryDiskManager) numPages() uint64 {

	last, exists := disk.pages.Max()

	if !exists {
		return 0
	}
	return last.pageId + 1
}

func (disk *MemoryDiskManager) Close() error {
	return nil
}
