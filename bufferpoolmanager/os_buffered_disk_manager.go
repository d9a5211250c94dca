package bufferpoolmanager

import (
	"log/slog"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
)

// OSBufferedDiskManager reads pages through the kernel page cache. It is the
// fallback for file systems that reject O_DIRECT, such as tmpfs.
type OSBufferedDiskManager struct {
	file  *os.File
	mutex *sync.Mutex
}

func NewOSBufferedDiskManager(filePath string) (*OSBufferedDiskManager, error) {

	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)

	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filePath)
	}

	// inspection reads pages mostly in file order
	if err := adviseSequential(file); err != nil {
		slog.Warn("could not advise sequential access", "filePath", filePath, "error", err.Error(), "function", "NewOSBufferedDiskManager", "at", "OSBufferedDiskManager")
	}

	return &OSBufferedDiskManager{
		file:  file,
		mutex: &sync.Mutex{},
	}, nil
}

func (disk *OSBufferedDiskManager) ReadPage(pageId uint64) ([]byte, error) {

	numPages, err := disk.NumPages()

	if err != nil {
		return nil, err
	}

	if pageId >= numPages {
		return nil, errors.Wrapf(ErrPageOutOfRange, "page %d, file has %d pages", pageId, numPages)
	}

	data := make([]byte, PAGE_SIZE)

	n, err := readPageAt(disk.file, data, int64(pageId)*PAGE_SIZE)

	if err != nil {
		return nil, err
	}

	if n != PAGE_SIZE {
		return nil, errors.Newf("incomplete read of page %d: %d bytes", pageId, n)
	}
	return data, nil
}

func (disk *OSBufferedDiskManager) WritePage(pageId uint64, data []byte) error {

	if err := checkPageImage(data); err != nil {
		return err
	}

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	n, err := disk.file.WriteAt(data, int64(pageId)*PAGE_SIZE)

	if err != nil {
		return err
	}

	if n != PAGE_SIZE {
		return errors.Newf("incomplete write of page %d: %d bytes", pageId, n)
	}
	return nil
}

func (disk *OSBufferedDiskManager) NumPages() (uint64, error) {

	info, err := disk.file.Stat()

	if err != nil {
		return 0, err
	}
	return uint64(info.Size()) / PAGE_SIZE, nil
}

func (disk *OSBufferedDiskManager) Close() error {
	return disk.file.Close()
}
