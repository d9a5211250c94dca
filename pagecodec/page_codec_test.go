package pagecodec

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type PageCodecTestSuite struct {
	suite.Suite
	headerCodec HeaderCodec
	slotCodec   SlotCodec
}

func (ps *PageCodecTestSuite) SetupTest() {
	ps.headerCodec = DefaultHeaderCodec()
	ps.slotCodec = DefaultSlotCodec()
}

func (ps *PageCodecTestSuite) TestBuildAndDecodePage() {

	builder := NewPageBuilder(FamilyGist, FlagLeaf).SetRightLink(7)

	first, err := builder.AppendTuple([]byte("alpha"))
	ps.Require().NoError(err)
	second, err := builder.AppendTuple([]byte("beta"))
	ps.Require().NoError(err)

	ps.Assert().Equal(uint16(1), first)
	ps.Assert().Equal(uint16(2), second)

	page := builder.Bytes()

	header, err := ps.headerCodec.DecodePageHeader(page, FamilyGist)
	ps.Require().NoError(err)

	ps.Assert().True(header.IsLeaf())
	ps.Assert().False(header.IsDeleted())
	ps.Assert().Equal(uint16(2), header.NumSlots)
	ps.Assert().Equal(uint64(7), header.RightLink)
	ps.Assert().Equal(PageCapacity-2*4-len("alpha")-len("beta"), header.FreeBytes())

	element, err := ps.slotCodec.Element(page, header.NumSlots, 2)
	ps.Require().NoError(err)
	ps.Assert().Equal([]byte("beta"), element)

	_, err = ps.slotCodec.Element(page, header.NumSlots, 3)
	ps.Assert().Error(err)
}

func (ps *PageCodecTestSuite) TestEmptyPageIsNew() {

	header, err := ps.headerCodec.DecodePageHeader(make([]byte, PageSize), FamilySpgist)
	ps.Require().NoError(err)

	ps.Assert().True(header.IsNew)
	ps.Assert().True(header.IsLeaf())
	ps.Assert().Equal(PageCapacity, header.FreeBytes())
	ps.Assert().Equal(InvalidPageId, header.RightLink)
}

func (ps *PageCodecTestSuite) TestCorruptPageRejected() {

	page := NewPageBuilder(FamilyGin, FlagLeaf).Bytes()
	page[PageSize-1] ^= 0xFF

	_, err := ps.headerCodec.DecodePageHeader(page, FamilyGin)
	ps.Assert().True(errors.Is(err, ErrNotATreePage))
}

func (ps *PageCodecTestSuite) TestWrongFamilyRejected() {

	page := NewPageBuilder(FamilyGin, FlagLeaf).Bytes()

	_, err := ps.headerCodec.DecodePageHeader(page, FamilyGist)
	ps.Assert().True(errors.Is(err, ErrNotATreePage))

	_, err = ps.headerCodec.DecodePageHeader(page[:100], FamilyGin)
	ps.Assert().True(errors.Is(err, ErrNotATreePage))
}

func (ps *PageCodecTestSuite) TestPageFull() {

	builder := NewPageBuilder(FamilyGist, FlagLeaf)
	big := make([]byte, PageCapacity-4)

	_, err := builder.AppendTuple(big)
	ps.Require().NoError(err)

	_, err = builder.AppendTuple([]byte{1})
	ps.Assert().True(errors.Is(err, ErrPageFull))
}

func (ps *PageCodecTestSuite) TestGistTuple() {

	tuple := GistTuple{
		Invalid: true,
		Pointer: ItemPointer{Block: 12, Offset: 3},
		Values:  [][]byte{[]byte("box"), nil, {}},
	}

	decoded, err := DecodeGistTuple(EncodeGistTuple(tuple))
	ps.Require().NoError(err)

	ps.Assert().Equal(tuple, decoded)
	ps.Assert().Equal(uint64(12), decoded.ChildPageId())

	_, err = DecodeGistTuple([]byte{0, 1, 2})
	ps.Assert().True(errors.Is(err, ErrNotATreePage))
}

func (ps *PageCodecTestSuite) TestGinEntryTupleInlinePostings() {

	postings := []ItemPointer{{Block: 1, Offset: 4}, {Block: 1, Offset: 9}, {Block: 300, Offset: 1}}

	tuple := GinEntryTuple{Attribute: 1, Category: GinCategoryNormKey, Key: []byte("cat"), Postings: postings}

	decoded, err := DecodeGinEntryTuple(EncodeGinEntryTuple(tuple))
	ps.Require().NoError(err)

	ps.Assert().Equal(uint8(1), decoded.Attribute)
	ps.Assert().Equal([]byte("cat"), decoded.Key)
	ps.Assert().Equal(postings, decoded.Postings)
	ps.Assert().False(decoded.IsPostingTree)
	ps.Assert().Equal(len(EncodePostingList(postings)), decoded.PostingSize)
}

func (ps *PageCodecTestSuite) TestGinEntryTuplePostingTreeAndDownlink() {

	tree, err := DecodeGinEntryTuple(EncodeGinEntryTuple(GinEntryTuple{Key: []byte("dog"), IsPostingTree: true, PostingTreeRoot: 9}))
	ps.Require().NoError(err)
	ps.Assert().True(tree.IsPostingTree)
	ps.Assert().Equal(uint32(9), tree.PostingTreeRoot)

	inner, err := DecodeGinEntryTuple(EncodeGinEntryTuple(GinEntryTuple{Category: GinCategoryNullKey, HasDownlink: true, Downlink: 5}))
	ps.Require().NoError(err)
	ps.Assert().True(inner.HasDownlink)
	ps.Assert().Equal(uint32(5), inner.Downlink)
	ps.Assert().Equal(GinCategoryNullKey, inner.Category)
}

func (ps *PageCodecTestSuite) TestGinPostingItemsAndSegments() {

	item, err := DecodeGinPostingItem(EncodeGinPostingItem(GinPostingItem{Child: 4, Key: ItemPointer{Block: 8, Offset: 2}}))
	ps.Require().NoError(err)
	ps.Assert().Equal(uint32(4), item.Child)
	ps.Assert().Equal(ItemPointer{Block: 8, Offset: 2}, item.Key)

	items := make([]ItemPointer, 0, 50)
	for i := range 50 {
		items = append(items, ItemPointer{Block: uint32(i / 10), Offset: uint16(i%10 + 1)})
	}

	segment, err := DecodeGinPostingSegment(EncodeGinPostingSegment(items))
	ps.Require().NoError(err)
	ps.Assert().Equal(items, segment)
}

func (ps *PageCodecTestSuite) TestSpgistTupleStates() {

	leaf := SpgistTuple{State: SpgistLive, Leaf: &SpgistLeaf{HeapPointer: ItemPointer{Block: 3, Offset: 1}, NextOffset: 4, Datum: []byte("p")}}

	decoded, err := DecodeSpgistTuple(EncodeSpgistTuple(leaf), true)
	ps.Require().NoError(err)
	ps.Assert().Equal(leaf, decoded)

	inner := SpgistTuple{State: SpgistLive, Inner: &SpgistInner{
		AllTheSame: true,
		Prefix:     nil,
		Nodes: []SpgistNode{
			{Label: []byte("a"), Child: ItemPointer{Block: 2, Offset: 1}},
			{Label: nil, Child: InvalidItemPointer},
		},
	}}

	decoded, err = DecodeSpgistTuple(EncodeSpgistTuple(inner), false)
	ps.Require().NoError(err)
	ps.Assert().Equal(inner, decoded)

	redirect := SpgistTuple{State: SpgistRedirect, Redirect: ItemPointer{Block: 6, Offset: 2}}
	decoded, err = DecodeSpgistTuple(EncodeSpgistTuple(redirect), false)
	ps.Require().NoError(err)
	ps.Assert().Equal(redirect, decoded)

	decoded, err = DecodeSpgistTuple(EncodeSpgistTuple(SpgistTuple{State: SpgistPlaceholder}), true)
	ps.Require().NoError(err)
	ps.Assert().Equal(SpgistPlaceholder, decoded.State)

	_, err = DecodeSpgistTuple([]byte{9}, true)
	ps.Assert().True(errors.Is(err, ErrNotATreePage))
}

func (ps *PageCodecTestSuite) TestMetaDataPage() {

	codec := DefaultMetaDataCodec()

	metadata := &MetaData{
		Name:          "words_idx",
		Family:        FamilyGin,
		FormatVersion: CurrentFormatVersion,
		RootPageId:    1,
		Orderings:     []KeyOrdering{OrderingBytes, OrderingInt64},
	}

	decoded, err := codec.DecodeMetaDataPage(codec.EncodeMetaDataPage(metadata))
	ps.Require().NoError(err)

	ps.Assert().Equal(metadata, decoded)
	ps.Assert().Equal(2, decoded.NumAttributes())

	_, err = codec.DecodeMetaDataPage(NewPageBuilder(FamilyGin, FlagLeaf).Bytes())
	ps.Assert().True(errors.Is(err, ErrNotATreePage))
}

func TestPageCodec(t *testing.T) {
	suite.Run(t, new(PageCodecTestSuite))
}

func (ps *PageCodecTestSuite) TestKeyOrdering() {

	ps.Assert().Equal(-1, OrderingBytes.Compare([]byte("cat"), []byte("dog")))
	ps.Assert().Equal(0, OrderingBytes.Compare([]byte("dog"), []byte("dog")))

	ps.Assert().Equal(-1, OrderingInt64.Compare(EncodeInt64Key(-5), EncodeInt64Key(3)))
	ps.Assert().Equal(1, OrderingInt64.Compare(EncodeInt64Key(300), EncodeInt64Key(2)))

	// byte-wise these would compare the other way round
	ps.Assert().Equal(1, OrderingBytes.Compare(EncodeInt64Key(-5), EncodeInt64Key(3)))
}
