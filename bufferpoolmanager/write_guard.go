package bufferpoolmanager

import (
	"log/slog"

	"github.com/cockroachdb/errors"
)

// WriteGuard is used to provide exclusive write access to a page stored in a frame in the buffer pool manager.
// The inspection code never takes one; tree builders and writers racing the inspectors do.
type WriteGuard struct {

	// active is used to prevent users from using a write guard once its Done function has been called.
	active     bool
	pageId     uint64
	page       *Frame
	bufferPool BufferPoolManager
}

// NewWriteGuard returns an active write guard.
// All guards corresponding to a page share a RW lock.
func (bufferPool *SimpleBufferPoolManager) NewWriteGuard(pageId uint64) (*WriteGuard, error) {

	page, err := bufferPool.fetchPage(pageId)

	if err != nil {
		slog.Error("Failed to fetch page for write guard", "pageId", pageId, "error", err.Error(), "function", "NewWriteGuard", "at", "SimpleBufferPoolManager")
		return nil, err
	}

	page.mutex.Lock()

	guard := &WriteGuard{
		active:     true,
		pageId:     pageId,
		page:       page,
		bufferPool: bufferPool,
	}

	return guard, nil
}

// GetPageId returns the page ID of the page corresponding to the write guard.
func (guard *WriteGuard) GetPageId() uint64 {
	return guard.pageId
}

// GetPageData returns the mutable page image.
func (guard *WriteGuard) GetPageData() []byte {

	if !guard.active {
		return nil
	}
	return guard.page.data
}

// ReplacePage overwrites the whole page image and marks the frame dirty.
func (guard *WriteGuard) ReplacePage(data []byte) error {

	if !guard.active {
		return errors.New("write guard is no longer active")
	}

	if len(data) != len(guard.page.data) {
		return errors.Newf("page image has %d bytes, frame holds %d", len(data), len(guard.page.data))
	}

	copy(guard.page.data, data)
	guard.page.dirty = true

	return nil
}

// SetDirtyFlag is used to set the dirty flag of the frame in the buffer pool manager
// where the page is stored.
func (guard *WriteGuard) SetDirtyFlag() bool {

	if !guard.active {
		return false
	}

	guard.page.dirty = true

	return true
}

// Done is used to decrease the pin count of the page, and ensure the exclusive lock is released.
// A guard becomes inactive and cannot be reused if this function returns true.
func (guard *WriteGuard) Done() bool {

	if !guard.active {
		return false
	}

	guard.page.mutex.Unlock()

	_ = guard.bufferPool.unpinPage(guard.pageId)

	guard.page = nil
	guard.bufferPool = nil
	guard.active = false

	return true

}
