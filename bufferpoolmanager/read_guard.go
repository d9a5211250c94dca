package bufferpoolmanager

// ReadGuard is used to provide shared read access to a page stored in a frame in the buffer pool manager.
type ReadGuard struct {
	active     bool
	pageId     uint64
	page       *Frame
	bufferPool BufferPoolManager
}

// NewReadGuard returns an active read guard.
// All read guards corresponding to a page share a RW lock.
func (bufferPool *SimpleBufferPoolManager) NewReadGuard(pageId uint64) (*ReadGuard, error) {

	page, err := bufferPool.fetchPage(pageId)

	if err != nil {
		return nil, err
	}

	page.mutex.RLock()

	guard := &ReadGuard{
		active:     true,
		pageId:     pageId,
		page:       page,
		bufferPool: bufferPool,
	}

	return guard, nil

}

// Done is used to decrease the pin count of the page, and release the shared lock.
// A guard becomes inactive and cannot be reused if this function returns true.
func (guard *ReadGuard) Done() bool {

	if !guard.active {
		return false
	}

	guard.page.mutex.RUnlock()

	_ = guard.bufferPool.unpinPage(guard.pageId)

	guard.page = nil
	guard.bufferPool = nil
	guard.active = false

	return true
}

// GetPageId returns the page ID of the page corresponding to the read guard.
func (guard *ReadGuard) GetPageId() uint64 {
	return guard.pageId
}

// GetPageData returns the page image. The slice must not be used after Done.
func (guard *ReadGuard) GetPageData() []byte {

	if !guard.active {
		return nil
	}
	return guard.page.data
}

func (guard *ReadGuard) IsActive() bool {
	return guard.active
}
