package bufferpoolmanager

import (
	"encoding/binary"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// LevelDBDiskManager stores page images in LevelDB, keyed by the big-endian
// page id so that key order matches page order. A snapshot of a live tree file
// is taken by copying every page into one, after which inspection runs against
// the snapshot instead of the file.
type LevelDBDiskManager struct {
	db *leveldb.DB
}

func NewLevelDBDiskManager(path string) (*LevelDBDiskManager, error) {

	db, err := leveldb.OpenFile(path, nil)

	if err != nil {
		return nil, errors.Wrapf(err, "opening snapshot %s", path)
	}

	slog.Info("opened page snapshot", "path", path, "function", "NewLevelDBDiskManager", "at", "LevelDBDiskManager")

	return &LevelDBDiskManager{db: db}, nil
}

// NewInMemoryLevelDBDiskManager returns a snapshot store that lives only in memory.
func NewInMemoryLevelDBDiskManager() (*LevelDBDiskManager, error) {

	db, err := leveldb.Open(storage.NewMemStorage(), nil)

	if err != nil {
		return nil, err
	}
	return &LevelDBDiskManager{db: db}, nil
}

func pageKey(pageId uint64) []byte {

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, pageId)
	return key
}

func (disk *LevelDBDiskManager) ReadPage(pageId uint64) ([]byte, error) {

	data, err := disk.db.Get(pageKey(pageId), nil)

	if errors.Is(err, leveldb.ErrNotFound) {

		numPages, countErr := disk.NumPages()
		if countErr != nil {
			return nil, countErr
		}

		if pageId >= numPages {
			return nil, errors.Wrapf(ErrPageOutOfRange, "page %d, snapshot has %d pages", pageId, numPages)
		}
		return make([]byte, PAGE_SIZE), nil
	}

	if err != nil {
		return nil, err
	}

	if err := checkPageImage(data); err != nil {
		return nil, errors.Wrapf(err, "snapshot page %d", pageId)
	}
	return data, nil
}

func (disk *LevelDBDiskManager) WritePage(pageId uint64, data []byte) error {

	if err := checkPageImage(data); err != nil {
		return err
	}
	return disk.db.Put(pageKey(pageId), data, nil)
}

func (disk *LevelDBDiskManager) NumPages() (uint64, error) {

	iter := disk.db.NewIterator(nil, nil)
	defer iter.Release()

	if !iter.Last() {
		return 0, iter.Error()
	}

	return binary.BigEndian.Uint64(iter.Key()) + 1, iter.Error()
}

func (disk *LevelDBDiskManager) Close() error {
	return disk.db.Close()
}
