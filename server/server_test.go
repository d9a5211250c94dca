package server

import (
	"encoding/binary"
	"fmt"
	"net"
	"testing"
	"time"

	bpm "github.com/Adarsh-Kmt/IndexInspector/bufferpoolmanager"
	"github.com/Adarsh-Kmt/IndexInspector/gist"
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treebuild"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

// gistInspector serves one in-memory tree under the name "points".
type gistInspector struct {
	bufferPool    *bpm.SimpleBufferPoolManager
	pinnedAtClose int
}

func (inspector *gistInspector) OpenCursor(kind string, name string, attr int) (Cursor, error) {

	if kind != "gist_tree" || name != "points" {
		return nil, errors.Newf("no %s cursor for %s", kind, name)
	}

	generator := gist.NewRowGenerator(inspector.bufferPool, treebuild.RootPageId, 1)
	return GeneratorCursor[gist.Row](gist.Columns(1), generator, func(row gist.Row) []string { return row.Cells(1) }), nil
}

func (inspector *gistInspector) Report(kind string, name string) (string, error) {

	stats, err := gist.CollectStats(inspector.bufferPool, treebuild.RootPageId, -1)
	if err != nil {
		return "", err
	}
	return stats.Report(), nil
}

func (inspector *gistInspector) Close() error {

	inspector.pinnedAtClose = inspector.bufferPool.PinnedPages()
	return inspector.bufferPool.Close()
}

type InspectorServerTestSuite struct {
	suite.Suite
	inspector *gistInspector
	server    *Server
	conn      net.Conn
	stopped   chan struct{}
}

func (test *InspectorServerTestSuite) SetupTest() {

	disk := bpm.NewMemoryDiskManager()

	rows := make([]treebuild.GistRow, 0, 100)
	for i := range 100 {
		rows = append(rows, treebuild.GistRow{
			Pointer: pagecodec.ItemPointer{Block: uint32(i / 10), Offset: uint16(i%10 + 1)},
			Values:  [][]byte{[]byte(fmt.Sprintf("key-%03d", i))},
		})
	}
	_, err := treebuild.BuildGist(disk, rows, treebuild.GistOptions{Name: "points", NumAttributes: 1, Fanout: 4})
	test.Require().NoError(err)

	bufferPool, err := bpm.NewSimpleBufferPoolManager(8, bpm.PAGE_SIZE, bpm.NewLRUReplacer(), disk)
	test.Require().NoError(err)

	test.inspector = &gistInspector{bufferPool: bufferPool}

	server, err := NewServer("127.0.0.1:0", test.inspector)
	test.Require().NoError(err)
	test.server = server

	test.stopped = make(chan struct{})
	go func() {
		server.Run()
		close(test.stopped)
	}()

	conn, err := net.Dial("tcp", server.Addr().String())
	test.Require().NoError(err)
	test.conn = conn
}

func (test *InspectorServerTestSuite) TearDownTest() {

	test.server.Shutdown()

	shutdownMessage, err := readNBytes(test.conn, 1)
	test.Require().NoError(err)
	test.Require().Equal("S", string(shutdownMessage))

	test.Require().NoError(test.conn.Close())

	select {
	case <-test.stopped:
	case <-time.After(5 * time.Second):
		test.FailNow("server did not stop")
	}

	test.Assert().Equal(0, test.inspector.pinnedAtClose)
}

func (test *InspectorServerTestSuite) send(opCode byte, body []byte) {

	request := []byte{opCode}
	request = binary.LittleEndian.AppendUint32(request, uint32(len(body)))
	request = append(request, body...)

	n, err := test.conn.Write(request)
	test.Require().NoError(err)
	test.Require().Equal(len(request), n)
}

func (test *InspectorServerTestSuite) receive() (byte, *bodyReader) {

	opCode, err := readNBytes(test.conn, 1)
	test.Require().NoError(err)

	body, err := readRequestBody(test.conn)
	test.Require().NoError(err)

	return opCode[0], &bodyReader{data: body}
}

func readStrings(reader *bodyReader) []string {

	count := reader.uint32()
	values := make([]string, 0, count)
	for range count {
		values = append(values, reader.string())
	}
	return values
}

func openBody(kind string, name string, attr uint32) []byte {

	body := appendString(nil, kind)
	body = appendString(body, name)
	return binary.LittleEndian.AppendUint32(body, attr)
}

func cursorBody(cursorId uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, cursorId)
}

func (test *InspectorServerTestSuite) open() uint32 {

	test.send('O', openBody("gist_tree", "points", 0))

	opCode, reader := test.receive()
	test.Require().Equal(byte(opOK), opCode)

	cursorId := reader.uint32()
	test.Assert().Equal([]string{"level", "valid", "a1"}, readStrings(reader))
	test.Require().NoError(reader.finish())

	return cursorId
}

func (test *InspectorServerTestSuite) fetch(cursorId uint32) ([]string, bool) {

	test.send('F', cursorBody(cursorId))

	opCode, reader := test.receive()
	switch opCode {
	case opRow:
		return readStrings(reader), true
	case opDone:
		return nil, false
	}

	test.FailNow("unexpected response", "op code %q: %s", opCode, reader.string())
	return nil, false
}

func (test *InspectorServerTestSuite) TestPing() {

	test.send('P', nil)

	opCode, reader := test.receive()
	test.Assert().Equal(byte(opOK), opCode)
	test.Assert().NoError(reader.finish())
}

func (test *InspectorServerTestSuite) TestFetchUntilDone() {

	cursorId := test.open()

	rows := 0
	for {
		cells, ok := test.fetch(cursorId)
		if !ok {
			break
		}
		test.Require().Len(cells, 3)
		rows++
	}
	test.Assert().Equal(134, rows)

	// an exhausted cursor is gone
	test.send('F', cursorBody(cursorId))
	opCode, reader := test.receive()
	test.Assert().Equal(byte(opError), opCode)
	test.Assert().Contains(reader.string(), ErrUnknownCursor.Error())
}

func (test *InspectorServerTestSuite) TestCursorsAreIndependent() {

	first := test.open()
	second := test.open()
	test.Assert().NotEqual(first, second)

	a, ok := test.fetch(first)
	test.Require().True(ok)
	_, ok = test.fetch(first)
	test.Require().True(ok)

	b, ok := test.fetch(second)
	test.Require().True(ok)
	test.Assert().Equal(a, b)

	test.send('C', cursorBody(first))
	opCode, _ := test.receive()
	test.Assert().Equal(byte(opOK), opCode)

	test.send('C', cursorBody(second))
	opCode, _ = test.receive()
	test.Assert().Equal(byte(opOK), opCode)

	test.Assert().Equal(0, test.inspector.bufferPool.PinnedPages())
}

func (test *InspectorServerTestSuite) TestDroppedConnectionClosesCursors() {

	conn, err := net.Dial("tcp", test.server.Addr().String())
	test.Require().NoError(err)

	request := []byte{'O'}
	body := openBody("gist_tree", "points", 0)
	request = binary.LittleEndian.AppendUint32(request, uint32(len(body)))
	request = append(request, body...)
	_, err = conn.Write(request)
	test.Require().NoError(err)

	opCode, err := readNBytes(conn, 1)
	test.Require().NoError(err)
	test.Require().Equal(byte(opOK), opCode[0])
	body, err = readRequestBody(conn)
	test.Require().NoError(err)

	cursorId := (&bodyReader{data: body}).uint32()

	request = []byte{'F'}
	request = binary.LittleEndian.AppendUint32(request, 4)
	request = append(request, cursorBody(cursorId)...)
	_, err = conn.Write(request)
	test.Require().NoError(err)

	opCode, err = readNBytes(conn, 1)
	test.Require().NoError(err)
	test.Require().Equal(byte(opRow), opCode[0])
	_, err = readRequestBody(conn)
	test.Require().NoError(err)

	// the open cursor holds the pages on its path
	test.Require().Positive(test.inspector.bufferPool.PinnedPages())

	test.Require().NoError(conn.Close())

	test.Assert().Eventually(func() bool {
		return test.inspector.bufferPool.PinnedPages() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func (test *InspectorServerTestSuite) TestUnknownKind() {

	test.send('O', openBody("gin_stat", "points", 0))

	opCode, reader := test.receive()
	test.Assert().Equal(byte(opError), opCode)
	test.Assert().Contains(reader.string(), "no gin_stat cursor")
}

func (test *InspectorServerTestSuite) TestReport() {

	test.send('R', append(appendString(nil, "gist_stat"), appendString(nil, "points")...))

	opCode, reader := test.receive()
	test.Require().Equal(byte(opOK), opCode)
	test.Assert().Contains(reader.string(), "Number of tuples:          134")
}

func (test *InspectorServerTestSuite) TestMalformedRequest() {

	test.send('F', []byte{1, 2})

	opCode, reader := test.receive()
	test.Assert().Equal(byte(opError), opCode)
	test.Assert().Contains(reader.string(), ErrMalformedRequest.Error())

	test.send('X', nil)

	opCode, reader = test.receive()
	test.Assert().Equal(byte(opError), opCode)
	test.Assert().Contains(reader.string(), "invalid op code")
}

func TestInspectorServer(t *testing.T) {

	suite.Run(t, new(InspectorServerTestSuite))
}
