package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	bpm "github.com/Adarsh-Kmt/IndexInspector/bufferpoolmanager"
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/cockroachdb/errors"
)

var (
	ErrNotAnIndex     = errors.New("relation is not an index")
	ErrWrongIndexType = errors.New("index has wrong type")
)

const (
	treeFileSuffix    = ".idx"
	snapshotDirSuffix = ".ldb"
)

// Catalog resolves tree names to files under one data directory.
type Catalog struct {
	dir      string
	directIO bool
	snapshot bool
}

type Option func(*Catalog)

// WithDirectIO opens tree files with O_DIRECT, falling back to buffered reads
// when the file system refuses it.
func WithDirectIO(enabled bool) Option {
	return func(catalog *Catalog) {
		catalog.directIO = enabled
	}
}

// WithSnapshots resolves names to LevelDB page snapshots instead of tree files.
func WithSnapshots(enabled bool) Option {
	return func(catalog *Catalog) {
		catalog.snapshot = enabled
	}
}

func New(dir string, options ...Option) *Catalog {

	catalog := &Catalog{dir: dir}
	for _, option := range options {
		option(catalog)
	}
	return catalog
}

func (catalog *Catalog) Dir() string {
	return catalog.dir
}

// TreePath is the tree file a name resolves to.
func (catalog *Catalog) TreePath(name string) string {
	return filepath.Join(catalog.dir, name+treeFileSuffix)
}

// SnapshotPath is the snapshot directory a name resolves to.
func (catalog *Catalog) SnapshotPath(name string) string {
	return filepath.Join(catalog.dir, name+snapshotDirSuffix)
}

// List returns the names of every tree file in the data directory.
func (catalog *Catalog) List() ([]string, error) {

	entries, err := os.ReadDir(catalog.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", catalog.dir)
	}

	suffix := treeFileSuffix
	if catalog.snapshot {
		suffix = snapshotDirSuffix
	}

	names := make([]string, 0)
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), suffix) {
			names = append(names, strings.TrimSuffix(entry.Name(), suffix))
		}
	}
	sort.Strings(names)

	return names, nil
}

// Tree is a resolved tree: its decoded metapage and the pages behind it.
type Tree struct {
	Name     string
	MetaData *pagecodec.MetaData
	Disk     bpm.DiskManager
}

func (tree *Tree) Close() error {
	return tree.Disk.Close()
}

// Open resolves name, decodes its metapage and checks that it is a tree of the
// given family. FamilyNone accepts any family.
func (catalog *Catalog) Open(name string, family pagecodec.TreeFamily) (*Tree, error) {

	disk, err := catalog.openDisk(name)
	if err != nil {
		return nil, err
	}

	metadata, err := ReadMetaData(disk)
	if err != nil {
		_ = disk.Close()
		return nil, errors.Wrapf(err, "%s", name)
	}

	if family != pagecodec.FamilyNone {
		if err := CheckFamily(metadata, family); err != nil {
			_ = disk.Close()
			return nil, err
		}
	}

	slog.Debug("tree opened", "name", name, "family", family.String(), "formatVersion", metadata.FormatVersion, "function", "Open", "at", "Catalog")

	return &Tree{Name: name, MetaData: metadata, Disk: disk}, nil
}

func (catalog *Catalog) openDisk(name string) (bpm.DiskManager, error) {

	if name == "" || strings.ContainsRune(name, filepath.Separator) {
		return nil, errors.Wrapf(ErrNotAnIndex, "bad name %q", name)
	}

	if catalog.snapshot {

		path := catalog.SnapshotPath(name)
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(ErrNotAnIndex, "no snapshot %s", path)
		}
		return bpm.NewLevelDBDiskManager(path)
	}

	path := catalog.TreePath(name)
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(ErrNotAnIndex, "no tree file %s", path)
	}

	if catalog.directIO {

		disk, err := bpm.NewDirectIODiskManager(path)
		if err == nil {
			return disk, nil
		}
		slog.Warn("direct I/O unavailable, using buffered reads", "path", path, "error", err.Error(), "function", "openDisk", "at", "Catalog")
	}

	return bpm.NewOSBufferedDiskManager(path)
}

// Create opens a new, empty tree file for name, replacing any existing one.
func (catalog *Catalog) Create(name string) (bpm.DiskManager, error) {

	if err := os.MkdirAll(catalog.dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", catalog.dir)
	}

	path := catalog.TreePath(name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "removing %s", path)
	}
	return bpm.NewOSBufferedDiskManager(path)
}

// ReadMetaData decodes page 0 of a tree.
func ReadMetaData(disk bpm.DiskManager) (*pagecodec.MetaData, error) {

	page, err := disk.ReadPage(pagecodec.MetaDataPageId)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "reading metapage"), ErrNotAnIndex)
	}

	metadata, err := pagecodec.DefaultMetaDataCodec().DecodeMetaDataPage(page)
	if err != nil {
		return nil, errors.Mark(err, ErrNotAnIndex)
	}
	return metadata, nil
}

func CheckFamily(metadata *pagecodec.MetaData, family pagecodec.TreeFamily) error {

	if metadata.Family != family {
		return errors.Wrapf(ErrWrongIndexType, "%s is a %s tree, expected %s", metadata.Name, metadata.Family, family)
	}
	return nil
}
