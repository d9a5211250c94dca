package bufferpoolmanager

import (
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
)

const PAGE_SIZE = 4096

type FrameID int

var ErrNoFreeFrames = errors.New("all frames in the buffer pool are pinned")

// Frame holds one page image in memory. Guards on the same page share its RW lock.
type Frame struct {
	pageId   uint64
	data     []byte
	pinCount int
	dirty    bool
	mutex    *sync.RWMutex
}

// BufferPoolManager hands out latched pages. Readers take a ReadGuard, writers a WriteGuard.
type BufferPoolManager interface {
	NewReadGuard(pageId uint64) (*ReadGuard, error)
	NewWriteGuard(pageId uint64) (*WriteGuard, error)

	// NumPages returns the number of pages in the underlying file.
	NumPages() (uint64, error)

	// PinnedPages returns the number of frames currently pinned by a guard.
	PinnedPages() int

	Close() error

	unpinPage(pageId uint64) error
}

type SimpleBufferPoolManager struct {
	mutex *sync.Mutex

	frames     []*Frame
	pageTable  map[uint64]FrameID
	freeFrames []FrameID

	replacer Replacer
	disk     DiskManager
	pageSize int
}

func NewSimpleBufferPoolManager(numFrames int, pageSize int, replacer Replacer, disk DiskManager) (*SimpleBufferPoolManager, error) {

	if numFrames <= 0 {
		return nil, errors.Newf("buffer pool needs at least one frame, got %d", numFrames)
	}

	if pageSize != PAGE_SIZE {
		return nil, errors.Newf("unsupported page size %d", pageSize)
	}

	frames := make([]*Frame, numFrames)
	freeFrames := make([]FrameID, 0, numFrames)

	for i := range numFrames {
		frames[i] = &Frame{mutex: &sync.RWMutex{}}
		freeFrames = append(freeFrames, FrameID(i))
	}

	return &SimpleBufferPoolManager{
		mutex:      &sync.Mutex{},
		frames:     frames,
		pageTable:  make(map[uint64]FrameID),
		freeFrames: freeFrames,
		replacer:   replacer,
		disk:       disk,
		pageSize:   pageSize,
	}, nil
}

// fetchPage pins the frame holding pageId, reading the page from disk if it is not cached.
func (bufferPool *SimpleBufferPoolManager) fetchPage(pageId uint64) (*Frame, error) {

	bufferPool.mutex.Lock()
	defer bufferPool.mutex.Unlock()

	if frameId, exists := bufferPool.pageTable[pageId]; exists {

		frame := bufferPool.frames[frameId]
		frame.pinCount++

		if frame.pinCount == 1 {
			bufferPool.replacer.remove(frameId)
		}
		return frame, nil
	}

	frameId, err := bufferPool.acquireFrame()

	if err != nil {
		return nil, err
	}

	frame := bufferPool.frames[frameId]

	data, err := bufferPool.disk.ReadPage(pageId)

	if err != nil {
		bufferPool.freeFrames = append(bufferPool.freeFrames, frameId)
		return nil, errors.Wrapf(err, "reading page %d", pageId)
	}

	frame.pageId = pageId
	frame.data = data
	frame.pinCount = 1
	frame.dirty = false

	bufferPool.pageTable[pageId] = frameId

	slog.Debug("page loaded into frame", "pageId", pageId, "frameId", frameId, "function", "fetchPage", "at", "SimpleBufferPoolManager")

	return frame, nil
}

// acquireFrame returns an unused frame, evicting the least recently used page if necessary.
// The caller must hold the pool mutex.
func (bufferPool *SimpleBufferPoolManager) acquireFrame() (FrameID, error) {

	if len(bufferPool.freeFrames) > 0 {

		frameId := bufferPool.freeFrames[0]
		bufferPool.freeFrames = bufferPool.freeFrames[1:]
		return frameId, nil
	}

	frameId, ok := bufferPool.replacer.victim()

	if !ok {
		return 0, ErrNoFreeFrames
	}

	victim := bufferPool.frames[frameId]

	if victim.dirty {

		if err := bufferPool.disk.WritePage(victim.pageId, victim.data); err != nil {

			slog.Error("failed to flush evicted page", "pageId", victim.pageId, "error", err.Error(), "function", "acquireFrame", "at", "SimpleBufferPoolManager")
			bufferPool.replacer.insert(frameId)
			return 0, err
		}
	}

	slog.Debug("evicting page", "pageId", victim.pageId, "frameId", frameId, "function", "acquireFrame", "at", "SimpleBufferPoolManager")

	delete(bufferPool.pageTable, victim.pageId)
	victim.data = nil
	victim.dirty = false

	return frameId, nil
}

// unpinPage decrements the pin count of a page. A frame with no pins becomes an eviction candidate.
func (bufferPool *SimpleBufferPoolManager) unpinPage(pageId uint64) error {

	bufferPool.mutex.Lock()
	defer bufferPool.mutex.Unlock()

	frameId, exists := bufferPool.pageTable[pageId]

	if !exists {
		return errors.Newf("page %d is not in the buffer pool", pageId)
	}

	frame := bufferPool.frames[frameId]

	if frame.pinCount <= 0 {
		return errors.Newf("page %d is not pinned", pageId)
	}

	frame.pinCount--

	if frame.pinCount == 0 {
		bufferPool.replacer.insert(frameId)
	}
	return nil
}

func (bufferPool *SimpleBufferPoolManager) NumPages() (uint64, error) {

	bufferPool.mutex.Lock()
	defer bufferPool.mutex.Unlock()

	numPages, err := bufferPool.disk.NumPages()
	if err != nil {
		return 0, err
	}

	// dirty frames may hold pages that were never written to disk yet
	for pageId := range bufferPool.pageTable {
		if pageId+1 > numPages {
			numPages = pageId + 1
		}
	}
	return numPages, nil
}

func (bufferPool *SimpleBufferPoolManager) PinnedPages() int {

	bufferPool.mutex.Lock()
	defer bufferPool.mutex.Unlock()

	pinned := 0
	for _, frame := range bufferPool.frames {
		if frame.pinCount > 0 {
			pinned++
		}
	}
	return pinned
}

// FlushAll writes every dirty frame back to disk.
func (bufferPool *SimpleBufferPoolManager) FlushAll() error {

	bufferPool.mutex.Lock()
	defer bufferPool.mutex.Unlock()

	for _, frameId := range bufferPool.pageTable {

		frame := bufferPool.frames[frameId]

		if !frame.dirty {
			continue
		}

		if err := bufferPool.disk.WritePage(frame.pageId, frame.data); err != nil {
			return err
		}
		frame.dirty = false
	}
	return nil
}

func (bufferPool *SimpleBufferPoolManager) Close() error {

	if err := bufferPool.FlushAll(); err != nil {
		return err
	}

	return bufferPool.disk.Close()
}
