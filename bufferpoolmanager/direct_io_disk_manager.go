package bufferpoolmanager

import (
	"log/slog"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ncw/directio"
)

// DirectIODiskManager uses Direct I/O to read/write pages of data directly between user process memory and disk controller.
// Direct I/O bypasses the kernel page cache, so an inspection pass over a large tree does not evict
// the pages the database itself keeps hot.
type DirectIODiskManager struct {
	file  *os.File
	mutex *sync.Mutex
}

func NewDirectIODiskManager(filePath string) (*DirectIODiskManager, error) {

	slog.Info("Opening file in DIRECT I/O mode", "filePath", filePath, "function", "NewDirectIODiskManager", "at", "DirectIODiskManager")

	file, err := directio.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)

	if err != nil {
		return nil, errors.Wrapf(err, "opening %s with direct I/O", filePath)
	}

	return &DirectIODiskManager{
		file:  file,
		mutex: &sync.Mutex{},
	}, nil
}

// ReadPage reads a page into a block aligned for O_DIRECT.
func (disk *DirectIODiskManager) ReadPage(pageId uint64) ([]byte, error) {

	numPages, err := disk.NumPages()

	if err != nil {
		return nil, err
	}

	if pageId >= numPages {
		return nil, errors.Wrapf(ErrPageOutOfRange, "page %d, file has %d pages", pageId, numPages)
	}

	block := directio.AlignedBlock(PAGE_SIZE)

	// ReadAt issues pread, so concurrent readers do not race on the file offset.
	n, err := disk.file.ReadAt(block, int64(pageId)*PAGE_SIZE)

	if err != nil {
		slog.Error("Failed to read page", "pageId", pageId, "error", err.Error(), "function", "ReadPage", "at", "DirectIODiskManager")
		return nil, err
	}

	if n != PAGE_SIZE {
		return nil, errors.Newf("incomplete read of page %d: %d bytes", pageId, n)
	}

	return block, nil
}

func (disk *DirectIODiskManager) WritePage(pageId uint64, data []byte) error {

	if err := checkPageImage(data); err != nil {
		return err
	}

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	block := directio.AlignedBlock(PAGE_SIZE)
	copy(block, data)

	n, err := disk.file.WriteAt(block, int64(pageId)*PAGE_SIZE)

	if err != nil {
		slog.Error("Failed to write page", "pageId", pageId, "error", err.Error(), "function", "WritePage", "at", "DirectIODiskManager")
		return err
	}

	if n != PAGE_SIZE {
		return errors.Newf("incomplete write of page %d: %d bytes", pageId, n)
	}
	return nil
}

func (disk *DirectIODiskManager) NumPages() (uint64, error) {

	info, err := disk.file.Stat()

	if err != nil {
		return 0, err
	}
	return uint64(info.Size()) / PAGE_SIZE, nil
}

func (disk *DirectIODiskManager) Close() error {
	return disk.file.Close()
}
