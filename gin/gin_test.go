package gin

import (
	"fmt"
	"testing"

	bpm "github.com/Adarsh-Kmt/IndexInspector/bufferpoolmanager"
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treebuild"
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

// countingStore records how many pages were locked through it.
type countingStore struct {
	treewalk.PageStore
	reads int
}

func (store *countingStore) NewReadGuard(pageId uint64) (*bpm.ReadGuard, error) {

	store.reads++
	return store.PageStore.NewReadGuard(pageId)
}

type GinTestSuite struct {
	suite.Suite
	disk       *bpm.MemoryDiskManager
	bufferPool *bpm.SimpleBufferPoolManager
	orderings  []pagecodec.KeyOrdering
}

func (gs *GinTestSuite) SetupTest() {

	gs.disk = bpm.NewMemoryDiskManager()

	bufferPool, err := bpm.NewSimpleBufferPoolManager(8, bpm.PAGE_SIZE, bpm.NewLRUReplacer(), gs.disk)
	gs.Require().NoError(err)

	gs.bufferPool = bufferPool
	gs.orderings = []pagecodec.KeyOrdering{pagecodec.OrderingBytes, pagecodec.OrderingInt64}
}

func (gs *GinTestSuite) TearDownTest() {

	gs.Assert().Equal(0, gs.bufferPool.PinnedPages())
	gs.Assert().NoError(gs.bufferPool.Close())
}

func items(block uint32, n int) []pagecodec.ItemPointer {

	pointers := make([]pagecodec.ItemPointer, 0, n)
	for i := range n {
		pointers = append(pointers, pagecodec.ItemPointer{Block: block + uint32(i/100), Offset: uint16(i%100 + 1)})
	}
	return pointers
}

func (gs *GinTestSuite) build(entries []treebuild.GinEntry, options treebuild.GinOptions) *pagecodec.MetaData {

	options.Name = "words"
	options.Orderings = gs.orderings

	metadata, err := treebuild.BuildGin(gs.disk, entries, options)
	gs.Require().NoError(err)
	return metadata
}

func (gs *GinTestSuite) drain(metadata *pagecodec.MetaData, attr int) []Row {

	generator, err := NewRowGenerator(gs.bufferPool, metadata, attr)
	gs.Require().NoError(err)

	rows, err := treewalk.Drain[Row](generator)
	gs.Require().NoError(err)
	return rows
}

func (gs *GinTestSuite) TestCatAndDog() {

	metadata := gs.build([]treebuild.GinEntry{
		{Attribute: 0, Key: []byte("dog"), Items: items(20, 5)},
		{Attribute: 1, Key: pagecodec.EncodeInt64Key(7), Items: items(30, 2)},
		{Attribute: 0, Key: []byte("cat"), Items: items(10, 3)},
	}, treebuild.GinOptions{})

	rows := gs.drain(metadata, 0)

	gs.Require().Len(rows, 2)
	gs.Assert().Equal(Row{Value: []byte("cat"), Count: 3}, rows[0])
	gs.Assert().Equal(Row{Value: []byte("dog"), Count: 5}, rows[1])

	rows = gs.drain(metadata, 1)
	gs.Require().Len(rows, 1)
	gs.Assert().Equal(pagecodec.EncodeInt64Key(7), rows[0].Value)
}

func (gs *GinTestSuite) TestInt64Ordering() {

	metadata := gs.build([]treebuild.GinEntry{
		{Attribute: 1, Key: pagecodec.EncodeInt64Key(300), Items: items(1, 1)},
		{Attribute: 1, Key: pagecodec.EncodeInt64Key(-5), Items: items(1, 1)},
		{Attribute: 1, Key: pagecodec.EncodeInt64Key(3), Items: items(1, 1)},
	}, treebuild.GinOptions{})

	rows := gs.drain(metadata, 1)

	gs.Require().Len(rows, 3)
	gs.Assert().Equal(pagecodec.EncodeInt64Key(-5), rows[0].Value)
	gs.Assert().Equal(pagecodec.EncodeInt64Key(3), rows[1].Value)
	gs.Assert().Equal(pagecodec.EncodeInt64Key(300), rows[2].Value)
}

func (gs *GinTestSuite) TestManyPages() {

	entries := make([]treebuild.GinEntry, 0, 100)
	for i := range 100 {
		entries = append(entries, treebuild.GinEntry{Key: []byte(fmt.Sprintf("word-%03d", i)), Items: items(uint32(i), i%7+1)})
	}

	metadata := gs.build(entries, treebuild.GinOptions{Fanout: 4})

	rows := gs.drain(metadata, 0)

	gs.Require().Len(rows, 100)
	for i, row := range rows {
		gs.Assert().Equal([]byte(fmt.Sprintf("word-%03d", i)), row.Value)
		gs.Assert().Equal(i%7+1, row.Count)
	}
}

func (gs *GinTestSuite) TestNullCategories() {

	metadata := gs.build([]treebuild.GinEntry{
		{Category: pagecodec.GinCategoryEmptyItem, Items: items(1, 1)},
		{Category: pagecodec.GinCategoryNullKey, Items: items(1, 2)},
		{Key: []byte("cat"), Items: items(1, 3)},
	}, treebuild.GinOptions{})

	rows := gs.drain(metadata, 0)

	gs.Require().Len(rows, 3)

	gs.Assert().False(rows[0].Null)
	gs.Assert().Equal(3, rows[0].Count)

	gs.Assert().True(rows[1].Null)
	gs.Assert().Nil(rows[1].Value)
	gs.Assert().Equal(pagecodec.GinCategoryNullKey, rows[1].Category)
	gs.Assert().Equal(2, rows[1].Count)

	gs.Assert().True(rows[2].Null)
	gs.Assert().Equal(1, rows[2].Count)
}

func (gs *GinTestSuite) TestPostingTreeEstimate() {

	metadata := gs.build([]treebuild.GinEntry{
		{Key: []byte("big"), Items: items(1, 300)},
		{Key: []byte("medium"), Items: items(9, 30)},
		{Key: []byte("small"), Items: items(5, 4)},
	}, treebuild.GinOptions{Fanout: 4, PostingListLimit: 8, SegmentSize: 10, SegmentsPerPage: 3})

	rows := gs.drain(metadata, 0)

	gs.Require().Len(rows, 3)

	// 3 root downlinks, 4 on the leftmost inner page, 30 items on the leftmost leaf
	gs.Assert().Equal(360, rows[0].Count)

	// a single leaf page is counted exactly
	gs.Assert().Equal(30, rows[1].Count)
	gs.Assert().Equal(4, rows[2].Count)
}

func (gs *GinTestSuite) TestWrongColumnIndexBeforeAnyRead() {

	metadata := gs.build([]treebuild.GinEntry{{Key: []byte("cat"), Items: items(1, 1)}}, treebuild.GinOptions{})

	store := &countingStore{PageStore: gs.bufferPool}

	_, err := NewRowGenerator(store, metadata, 2)
	gs.Assert().True(errors.Is(err, treewalk.ErrWrongColumnIndex))

	_, err = NewRowGenerator(store, metadata, -1)
	gs.Assert().True(errors.Is(err, treewalk.ErrWrongColumnIndex))

	gs.Assert().Equal(0, store.reads)
}

func (gs *GinTestSuite) TestEmptyTree() {

	metadata := gs.build(nil, treebuild.GinOptions{})

	gs.Assert().Empty(gs.drain(metadata, 0))
}

func (gs *GinTestSuite) TestNoLockHeldBetweenPulls() {

	metadata := gs.build([]treebuild.GinEntry{
		{Key: []byte("cat"), Items: items(1, 3)},
		{Key: []byte("dog"), Items: items(1, 5)},
	}, treebuild.GinOptions{})

	generator, err := NewRowGenerator(gs.bufferPool, metadata, 0)
	gs.Require().NoError(err)

	_, ok, err := generator.Next()
	gs.Require().NoError(err)
	gs.Require().True(ok)

	gs.Assert().Equal(0, gs.bufferPool.PinnedPages())

	generator.Close()

	_, ok, err = generator.Next()
	gs.Assert().NoError(err)
	gs.Assert().False(ok)
}

func (gs *GinTestSuite) TestRefindPositionIsIdempotent() {

	entries := make([]treebuild.GinEntry, 0, 20)
	for i := range 20 {
		entries = append(entries, treebuild.GinEntry{Key: []byte(fmt.Sprintf("k%02d", i)), Items: items(1, 1)})
	}
	metadata := gs.build(entries, treebuild.GinOptions{Fanout: 4})

	generator, err := NewRowGenerator(gs.bufferPool, metadata, 0)
	gs.Require().NoError(err)

	for range 6 {
		_, ok, err := generator.Next()
		gs.Require().NoError(err)
		gs.Require().True(ok)
	}

	page, ok, err := generator.refindPosition()
	gs.Require().NoError(err)
	gs.Require().True(ok)
	firstPage, firstOffset := page.PageId(), generator.offset
	page.Release()

	page, ok, err = generator.refindPosition()
	gs.Require().NoError(err)
	gs.Require().True(ok)
	gs.Assert().Equal(firstPage, page.PageId())
	gs.Assert().Equal(firstOffset, generator.offset)
	page.Release()

	row, ok, err := generator.Next()
	gs.Require().NoError(err)
	gs.Require().True(ok)
	gs.Assert().Equal([]byte("k06"), row.Value)
}

func entryPage(keys []string, rightLink uint64) []byte {

	builder := pagecodec.NewPageBuilder(pagecodec.FamilyGin, pagecodec.FlagLeaf).SetRightLink(rightLink)
	for _, key := range keys {
		tuple := pagecodec.GinEntryTuple{Key: []byte(key), Postings: items(1, 1)}
		if _, err := builder.AppendTuple(pagecodec.EncodeGinEntryTuple(tuple)); err != nil {
			panic(err)
		}
	}
	return builder.Bytes()
}

// splitPage moves the tail of page 2 onto a new page 4 linked between 2 and 3.
func (gs *GinTestSuite) splitPage(left []string, right []string) {

	gs.Require().NoError(gs.disk.WritePage(4, entryPage(right, 3)))

	guard, err := gs.bufferPool.NewWriteGuard(2)
	gs.Require().NoError(err)
	defer guard.Done()

	gs.Require().NoError(guard.ReplacePage(entryPage(left, 4)))
}

func (gs *GinTestSuite) buildTwoLeaves() *pagecodec.MetaData {

	entries := make([]treebuild.GinEntry, 0, 8)
	for _, key := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		entries = append(entries, treebuild.GinEntry{Key: []byte(key), Items: items(1, 1)})
	}

	// root on page 1, leaves a-d on page 2 and e-h on page 3
	return gs.build(entries, treebuild.GinOptions{Fanout: 4})
}

func (gs *GinTestSuite) pull(generator *RowGenerator, n int) []string {

	keys := make([]string, 0, n)
	for range n {
		row, ok, err := generator.Next()
		gs.Require().NoError(err)
		if !ok {
			break
		}
		keys = append(keys, string(row.Value))
	}
	return keys
}

func (gs *GinTestSuite) TestResumeAfterRightSplit() {

	metadata := gs.buildTwoLeaves()

	generator, err := NewRowGenerator(gs.bufferPool, metadata, 0)
	gs.Require().NoError(err)
	defer generator.Close()

	gs.Assert().Equal([]string{"a", "b"}, gs.pull(generator, 2))

	gs.splitPage([]string{"a", "b"}, []string{"c", "d"})

	gs.Assert().Equal([]string{"c", "d", "e", "f", "g", "h"}, gs.pull(generator, 10))
}

func (gs *GinTestSuite) TestResumeWhenCurrentEntryMovedRight() {

	metadata := gs.buildTwoLeaves()

	generator, err := NewRowGenerator(gs.bufferPool, metadata, 0)
	gs.Require().NoError(err)
	defer generator.Close()

	gs.Assert().Equal([]string{"a", "b", "c"}, gs.pull(generator, 3))

	gs.splitPage([]string{"a"}, []string{"b", "c", "d"})

	gs.Assert().Equal([]string{"d", "e", "f", "g", "h"}, gs.pull(generator, 10))
}

func TestGin(t *testing.T) {
	suite.Run(t, new(GinTestSuite))
}

func (gs *GinTestSuite) TestCells() {

	row := Row{Value: pagecodec.EncodeInt64Key(-12), Count: 4}
	gs.Assert().Equal([]string{"-12", "4"}, row.Cells(pagecodec.OrderingInt64))
	gs.Assert().Equal([]string{"cat", "3"}, Row{Value: []byte("cat"), Count: 3}.Cells(pagecodec.OrderingBytes))
	gs.Assert().Equal([]string{"NULL", "2"}, Row{Null: true, Category: pagecodec.GinCategoryNullKey, Count: 2}.Cells(pagecodec.OrderingBytes))
}
