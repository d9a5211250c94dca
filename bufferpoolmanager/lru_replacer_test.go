package bufferpoolmanager

import (
	"container/list"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type LRUReplacerTestSuite struct {
	suite.Suite
	replacer *LRUReplacer
}

func (rs *LRUReplacerTestSuite) SetupTest() {

	l := list.New()
	frame5 := l.PushFront(FrameID(5))
	frame1 := l.PushFront(FrameID(1))
	frame4 := l.PushFront(FrameID(4))
	frame3 := l.PushFront(FrameID(3))

	frameMap := map[FrameID]*list.Element{}

	frameMap[5] = frame5
	frameMap[1] = frame1
	frameMap[4] = frame4
	frameMap[3] = frame3

	rs.replacer = &LRUReplacer{
		mutex:    &sync.Mutex{},
		frameMap: frameMap,
		list:     l,
	}
}

func (rs *LRUReplacerTestSuite) TestLRUReplacerInsert() {

	rs.replacer.insert(2)

	rs.Suite.Assert().Equal(5, rs.replacer.size())

	MRU := rs.replacer.list.Front()

	rs.Suite.Assert().Equal(FrameID(2), MRU.Value.(FrameID))
}

func (rs *LRUReplacerTestSuite) TestLRUReplacerInsertExistingMovesToFront() {

	rs.replacer.insert(5)

	rs.Suite.Assert().Equal(4, rs.replacer.size())
	rs.Suite.Assert().Equal(FrameID(5), rs.replacer.list.Front().Value.(FrameID))
}

func (rs *LRUReplacerTestSuite) TestLRUReplacerVictim() {

	victim, ok := rs.replacer.victim()

	rs.Suite.Assert().True(ok)
	rs.Suite.Assert().Equal(FrameID(5), victim)
	rs.Suite.Assert().Equal(3, rs.replacer.size())
}

func (rs *LRUReplacerTestSuite) TestLRUReplacerVictimEmpty() {

	replacer := NewLRUReplacer()

	_, ok := replacer.victim()

	rs.Suite.Assert().False(ok)
}

func (rs *LRUReplacerTestSuite) TestLRUReplacerRemove() {

	rs.replacer.remove(1)

	_, exists := rs.replacer.frameMap[1]

	rs.Suite.Assert().Equal(false, exists)

	// removing an absent frame is a no-op
	rs.replacer.remove(42)
	rs.Suite.Assert().Equal(3, rs.replacer.size())
}

func TestLRUReplacer(t *testing.T) {

	suite.Run(t, new(LRUReplacerTestSuite))
}
