package treebuild

import (
	"testing"

	bpm "github.com/Adarsh-Kmt/IndexInspector/bufferpoolmanager"
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/stretchr/testify/suite"
)

type TreeBuildTestSuite struct {
	suite.Suite
	disk *bpm.MemoryDiskManager
}

func (ts *TreeBuildTestSuite) SetupTest() {
	ts.disk = bpm.NewMemoryDiskManager()
}

func (ts *TreeBuildTestSuite) header(pageId uint64, family pagecodec.TreeFamily) (*pagecodec.Header, []byte) {

	page, err := ts.disk.ReadPage(pageId)
	ts.Require().NoError(err)

	header, err := pagecodec.DefaultHeaderCodec().DecodePageHeader(page, family)
	ts.Require().NoError(err)

	return header, page
}

func (ts *TreeBuildTestSuite) TestGistLayout() {

	rows := make([]GistRow, 10)
	metadata, err := BuildGist(ts.disk, rows, GistOptions{Name: "g", NumAttributes: 2, Fanout: 3})
	ts.Require().NoError(err)

	ts.Assert().Equal(2, metadata.NumAttributes())

	// 4 leaves, 2 inner pages, 1 root
	numPages, err := ts.disk.NumPages()
	ts.Require().NoError(err)
	ts.Assert().Equal(uint64(8), numPages)

	root, _ := ts.header(RootPageId, pagecodec.FamilyGist)
	ts.Assert().False(root.IsLeaf())
	ts.Assert().Equal(uint16(2), root.NumSlots)

	leaf, _ := ts.header(4, pagecodec.FamilyGist)
	ts.Assert().True(leaf.IsLeaf())
	ts.Assert().Equal(uint64(5), leaf.RightLink)

	last, _ := ts.header(7, pagecodec.FamilyGist)
	ts.Assert().Equal(uint16(1), last.NumSlots)
	ts.Assert().Equal(pagecodec.InvalidPageId, last.RightLink)

	page, err := ts.disk.ReadPage(pagecodec.MetaDataPageId)
	ts.Require().NoError(err)

	decoded, err := pagecodec.DefaultMetaDataCodec().DecodeMetaDataPage(page)
	ts.Require().NoError(err)
	ts.Assert().Equal(metadata, decoded)
}

func (ts *TreeBuildTestSuite) TestGinSortsEntries() {

	_, err := BuildGin(ts.disk, []GinEntry{
		{Attribute: 1, Key: []byte("a")},
		{Attribute: 0, Key: []byte("z")},
		{Attribute: 0, Key: []byte("b")},
	}, GinOptions{Name: "words", Orderings: []pagecodec.KeyOrdering{pagecodec.OrderingBytes, pagecodec.OrderingBytes}})
	ts.Require().NoError(err)

	root, page := ts.header(RootPageId, pagecodec.FamilyGin)
	ts.Require().Equal(uint16(3), root.NumSlots)

	keys := make([]string, 0, 3)
	for offset := pagecodec.FirstOffset; offset <= root.NumSlots; offset++ {

		element, err := pagecodec.DefaultSlotCodec().Element(page, root.NumSlots, offset)
		ts.Require().NoError(err)

		entry, err := pagecodec.DecodeGinEntryTuple(element)
		ts.Require().NoError(err)
		keys = append(keys, string(entry.Key))
	}
	ts.Assert().Equal([]string{"b", "z", "a"}, keys)
}

func (ts *TreeBuildTestSuite) TestGinRejectsUnknownAttribute() {

	_, err := BuildGin(ts.disk, []GinEntry{{Attribute: 3}}, GinOptions{Orderings: []pagecodec.KeyOrdering{pagecodec.OrderingBytes}})
	ts.Assert().Error(err)
}

func (ts *TreeBuildTestSuite) TestGinPostingTreePages() {

	pointers := make([]pagecodec.ItemPointer, 0, 100)
	for i := range 100 {
		pointers = append(pointers, pagecodec.ItemPointer{Block: uint32(i), Offset: 1})
	}

	_, err := BuildGin(ts.disk, []GinEntry{{Key: []byte("k"), Items: pointers}}, GinOptions{
		Orderings:        []pagecodec.KeyOrdering{pagecodec.OrderingBytes},
		PostingListLimit: 10,
		SegmentSize:      25,
		SegmentsPerPage:  2,
	})
	ts.Require().NoError(err)

	// entry leaf, then a data root over two data leaves
	dataRoot, _ := ts.header(2, pagecodec.FamilyGin)
	ts.Assert().True(dataRoot.IsData())
	ts.Assert().False(dataRoot.IsLeaf())
	ts.Assert().Equal(uint16(2), dataRoot.NumSlots)

	dataLeaf, _ := ts.header(3, pagecodec.FamilyGin)
	ts.Assert().True(dataLeaf.IsData())
	ts.Assert().True(dataLeaf.IsLeaf())
	ts.Assert().Equal(uint64(4), dataLeaf.RightLink)
}

func (ts *TreeBuildTestSuite) TestSpgistRootIsFirstTupleOfPageOne() {

	rows := make([]SpgistRow, 0, 20)
	for i := range 20 {
		rows = append(rows, SpgistRow{Datum: []byte{byte('a' + i%4), byte(i)}})
	}

	_, err := BuildSpgist(ts.disk, rows, SpgistOptions{Name: "s", LeafChainLimit: 3})
	ts.Require().NoError(err)

	root, page := ts.header(RootPageId, pagecodec.FamilySpgist)
	ts.Require().Equal(uint16(1), root.NumSlots)
	ts.Assert().False(root.IsLeaf())

	element, err := pagecodec.DefaultSlotCodec().Element(page, root.NumSlots, pagecodec.FirstOffset)
	ts.Require().NoError(err)

	tuple, err := pagecodec.DecodeSpgistTuple(element, false)
	ts.Require().NoError(err)
	ts.Require().NotNil(tuple.Inner)
	ts.Assert().Len(tuple.Inner.Nodes, 4)
	ts.Assert().False(tuple.Inner.AllTheSame)
}

func TestTreeBuild(t *testing.T) {
	suite.Run(t, new(TreeBuildTestSuite))
}
