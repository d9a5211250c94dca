package main

import (
	"log/slog"
	"sync"

	bpm "github.com/Adarsh-Kmt/IndexInspector/bufferpoolmanager"
	"github.com/Adarsh-Kmt/IndexInspector/catalog"
	"github.com/Adarsh-Kmt/IndexInspector/config"
	"github.com/Adarsh-Kmt/IndexInspector/export"
	"github.com/Adarsh-Kmt/IndexInspector/fullscan"
	"github.com/Adarsh-Kmt/IndexInspector/gin"
	"github.com/Adarsh-Kmt/IndexInspector/gist"
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/server"
	"github.com/Adarsh-Kmt/IndexInspector/spgist"
	"github.com/cockroachdb/errors"
)

var ErrUnknownKind = errors.New("unknown inspection kind")

// openTree is a tree file with the buffer pool that caches its pages.
type openTree struct {
	tree       *catalog.Tree
	bufferPool *bpm.SimpleBufferPoolManager
}

// InspectEngine opens trees by name and runs reports and row walks over them.
// Opened trees stay cached until Close.
type InspectEngine struct {
	config  *config.Config
	catalog *catalog.Catalog

	openTreesMutex *sync.Mutex
	openTrees      map[string]*openTree
}

var _ server.Inspector = (*InspectEngine)(nil)

func NewInspectEngine(cfg *config.Config, cat *catalog.Catalog) *InspectEngine {

	return &InspectEngine{
		config:         cfg,
		catalog:        cat,
		openTreesMutex: &sync.Mutex{},
		openTrees:      make(map[string]*openTree),
	}
}

// openTree returns the cached tree for name, opening it on first use.
// FamilyNone accepts a tree of any family.
func (engine *InspectEngine) openTree(name string, family pagecodec.TreeFamily) (*openTree, error) {

	engine.openTreesMutex.Lock()
	defer engine.openTreesMutex.Unlock()

	opened, exists := engine.openTrees[name]

	if !exists {

		tree, err := engine.catalog.Open(name, pagecodec.FamilyNone)
		if err != nil {
			return nil, err
		}

		bufferPool, err := bpm.NewSimpleBufferPoolManager(engine.config.PageCacheFrames, bpm.PAGE_SIZE, bpm.NewLRUReplacer(), tree.Disk)
		if err != nil {
			_ = tree.Close()
			return nil, err
		}

		opened = &openTree{tree: tree, bufferPool: bufferPool}
		engine.openTrees[name] = opened
	}

	if family != pagecodec.FamilyNone {
		if err := catalog.CheckFamily(opened.tree.MetaData, family); err != nil {
			return nil, err
		}
	}

	return opened, nil
}

// openFeature opens name for a feature and checks the tree's format supports it.
func (engine *InspectEngine) openFeature(name string, family pagecodec.TreeFamily, feature catalog.Feature) (*openTree, error) {

	opened, err := engine.openTree(name, family)
	if err != nil {
		return nil, err
	}

	if err := catalog.Require(opened.tree.MetaData, feature); err != nil {
		return nil, err
	}
	return opened, nil
}

func (engine *InspectEngine) GistStat(name string) (string, error) {

	opened, err := engine.openFeature(name, pagecodec.FamilyGist, catalog.FeatureGistStat)
	if err != nil {
		return catalog.Placeholder(err)
	}

	stats, err := gist.CollectStats(opened.bufferPool, opened.tree.MetaData.RootPageId, -1)
	if err != nil {
		return "", err
	}
	return stats.Report(), nil
}

// GistTree dumps the page structure down to maxDepth; a negative depth walks the whole tree.
func (engine *InspectEngine) GistTree(name string, maxDepth int) (string, error) {

	opened, err := engine.openFeature(name, pagecodec.FamilyGist, catalog.FeatureGistTree)
	if err != nil {
		return catalog.Placeholder(err)
	}

	return gist.DumpText(opened.bufferPool, opened.tree.MetaData.RootPageId, maxDepth)
}

// GistTreePretty renders the page structure as an indented tree.
func (engine *InspectEngine) GistTreePretty(name string, maxDepth int) (string, error) {

	opened, err := engine.openFeature(name, pagecodec.FamilyGist, catalog.FeatureGistTree)
	if err != nil {
		return catalog.Placeholder(err)
	}

	tree, err := gist.Render(opened.bufferPool, opened.tree.MetaData.RootPageId, maxDepth)
	if err != nil {
		return "", err
	}
	return tree.String(), nil
}

func (engine *InspectEngine) GinStatPage(name string) (string, error) {

	opened, err := engine.openFeature(name, pagecodec.FamilyGin, catalog.FeatureGinStatPage)
	if err != nil {
		return catalog.Placeholder(err)
	}

	report, err := fullscan.GinStatPage(opened.bufferPool, opened.tree.MetaData)
	if err != nil {
		return "", err
	}
	return report.String(), nil
}

func (engine *InspectEngine) SpgistStat(name string) (string, error) {

	opened, err := engine.openFeature(name, pagecodec.FamilySpgist, catalog.FeatureSpgistStat)
	if err != nil {
		return catalog.Placeholder(err)
	}

	report, err := fullscan.SpgistStat(opened.bufferPool)
	if err != nil {
		return "", err
	}
	return report.String(), nil
}

func (engine *InspectEngine) gistCursor(name string) (server.Cursor, error) {

	opened, err := engine.openFeature(name, pagecodec.FamilyGist, catalog.FeatureGistPrint)
	if err != nil {
		return nil, err
	}

	metadata := opened.tree.MetaData
	numAttrs := metadata.NumAttributes()
	generator := gist.NewRowGenerator(opened.bufferPool, metadata.RootPageId, numAttrs)

	return server.GeneratorCursor[gist.Row](gist.Columns(numAttrs), generator, func(row gist.Row) []string {
		return row.Cells(numAttrs)
	}), nil
}

func (engine *InspectEngine) ginCursor(name string, attr int) (server.Cursor, error) {

	opened, err := engine.openFeature(name, pagecodec.FamilyGin, catalog.FeatureGinStat)
	if err != nil {
		return nil, err
	}

	metadata := opened.tree.MetaData
	generator, err := gin.NewRowGenerator(opened.bufferPool, metadata, attr)
	if err != nil {
		return nil, err
	}

	ordering := metadata.Orderings[attr]
	return server.GeneratorCursor[gin.Row](gin.Columns, generator, func(row gin.Row) []string {
		return row.Cells(ordering)
	}), nil
}

func (engine *InspectEngine) spgistCursor(name string) (server.Cursor, error) {

	opened, err := engine.openFeature(name, pagecodec.FamilySpgist, catalog.FeatureSpgistPrint)
	if err != nil {
		return nil, err
	}

	generator := spgist.NewRowGenerator(opened.bufferPool, opened.tree.MetaData.RootPageId)

	return server.GeneratorCursor[spgist.Row](spgist.Columns, generator, spgist.Row.Cells), nil
}

// OpenCursor starts a row walk: gist_print, gin_stat or spgist_print.
// attr only applies to gin_stat.
func (engine *InspectEngine) OpenCursor(kind string, name string, attr int) (server.Cursor, error) {

	switch kind {
	case catalog.FeatureGistPrint.Name:
		return engine.gistCursor(name)
	case catalog.FeatureGinStat.Name:
		return engine.ginCursor(name, attr)
	case catalog.FeatureSpgistPrint.Name:
		return engine.spgistCursor(name)
	}
	return nil, errors.Wrapf(ErrUnknownKind, "cursor %q", kind)
}

// Report runs a whole-tree report: gist_stat, gist_tree, gin_statpage or spgist_stat.
func (engine *InspectEngine) Report(kind string, name string) (string, error) {

	switch kind {
	case catalog.FeatureGistStat.Name:
		return engine.GistStat(name)
	case catalog.FeatureGistTree.Name:
		return engine.GistTree(name, -1)
	case catalog.FeatureGinStatPage.Name:
		return engine.GinStatPage(name)
	case catalog.FeatureSpgistStat.Name:
		return engine.SpgistStat(name)
	}
	return "", errors.Wrapf(ErrUnknownKind, "report %q", kind)
}

// Export copies every row of name into a table of the SQLite database at dbPath.
// The tree's family picks the row walk; attr only applies to inverted-list trees.
func (engine *InspectEngine) Export(name string, dbPath string, attr int) (int, error) {

	opened, err := engine.openTree(name, pagecodec.FamilyNone)
	if err != nil {
		return 0, err
	}

	sink, err := export.NewSQLiteSink(dbPath, engine.config.Export.TablePrefix)
	if err != nil {
		return 0, err
	}
	defer sink.Close()

	metadata := opened.tree.MetaData

	switch metadata.Family {

	case pagecodec.FamilyGist:
		if err := catalog.Require(metadata, catalog.FeatureGistPrint); err != nil {
			return 0, err
		}
		generator := gist.NewRowGenerator(opened.bufferPool, metadata.RootPageId, metadata.NumAttributes())
		return sink.ExportGist(name, metadata.NumAttributes(), generator)

	case pagecodec.FamilyGin:
		if err := catalog.Require(metadata, catalog.FeatureGinStat); err != nil {
			return 0, err
		}
		generator, err := gin.NewRowGenerator(opened.bufferPool, metadata, attr)
		if err != nil {
			return 0, err
		}
		return sink.ExportGin(name, attr, generator)

	case pagecodec.FamilySpgist:
		if err := catalog.Require(metadata, catalog.FeatureSpgistPrint); err != nil {
			return 0, err
		}
		return sink.ExportSpgist(name, spgist.NewRowGenerator(opened.bufferPool, metadata.RootPageId))
	}

	return 0, errors.Wrapf(catalog.ErrWrongIndexType, "%s has family %s", name, metadata.Family)
}

// Snapshot copies the pages of a tree file into a LevelDB store at outDir.
func (engine *InspectEngine) Snapshot(name string, outDir string) (uint64, error) {

	opened, err := engine.openTree(name, pagecodec.FamilyNone)
	if err != nil {
		return 0, err
	}

	// cached dirty frames never exist here, but flushing keeps the copy exact
	if err := opened.bufferPool.FlushAll(); err != nil {
		return 0, err
	}

	snapshot, err := bpm.NewLevelDBDiskManager(outDir)
	if err != nil {
		return 0, err
	}

	copied, err := bpm.CopyPages(opened.tree.Disk, snapshot)
	if closeErr := snapshot.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, errors.Wrapf(err, "snapshotting %s", name)
	}

	slog.Info("snapshot written", "name", name, "pages", copied, "out", outDir, "function", "Snapshot", "at", "InspectEngine")
	return copied, nil
}

// Drain runs a cursor to exhaustion.
func Drain(cursor server.Cursor) ([][]string, error) {

	defer cursor.Close()

	rows := make([][]string, 0)
	for {
		cells, ok, err := cursor.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, cells)
	}
}

func (engine *InspectEngine) Close() error {

	engine.openTreesMutex.Lock()
	defer engine.openTreesMutex.Unlock()

	var errs error
	for name, opened := range engine.openTrees {

		if pinned := opened.bufferPool.PinnedPages(); pinned != 0 {
			slog.Warn("closing tree with pinned pages", "name", name, "pinned", pinned, "function", "Close", "at", "InspectEngine")
		}
		errs = errors.CombineErrors(errs, opened.bufferPool.Close())
		delete(engine.openTrees, name)
	}
	return errs
}
