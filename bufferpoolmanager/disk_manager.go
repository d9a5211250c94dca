package bufferpoolmanager

import (
	"github.com/cockroachdb/errors"
)

var ErrPageOutOfRange = errors.New("page id beyond end of file")

// DiskManager reads and writes whole pages of a tree file.
type DiskManager interface {

	// ReadPage returns a copy of the page image, or ErrPageOutOfRange.
	ReadPage(pageId uint64) ([]byte, error)

	// WritePage stores a full page image, extending the file if needed.
	WritePage(pageId uint64, data []byte) error

	// NumPages returns the number of pages the file holds.
	NumPages() (uint64, error)

	Close() error
}

func checkPageImage(data []byte) error {

	if len(data) != PAGE_SIZE {
		return errors.Newf("page image has %d bytes, expected %d", len(data), PAGE_SIZE)
	}
	return nil
}

// CopyPages copies every page of src into dst, page 0 first.
func CopyPages(src DiskManager, dst DiskManager) (uint64, error) {

	numPages, err := src.NumPages()

	if err != nil {
		return 0, err
	}

	for pageId := range numPages {

		data, err := src.ReadPage(pageId)
		if err != nil {
			return pageId, errors.Wrapf(err, "reading page %d", pageId)
		}

		if err := dst.WritePage(pageId, data); err != nil {
			return pageId, errors.Wrapf(err, "writing page %d", pageId)
		}
	}
	return numPages, nil
}
