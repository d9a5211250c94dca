package server

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
)

const pollInterval = 100 * time.Millisecond

type Server struct {
	listener net.Listener

	inspector Inspector

	nextCursorId atomic.Uint32

	shutdown     chan struct{}
	shutdownOnce *sync.Once
}

func NewServer(addr string, inspector Inspector) (*Server, error) {

	listener, err := net.Listen("tcp", addr)

	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", addr)
	}
	return &Server{
		inspector:    inspector,
		listener:     listener,
		shutdown:     make(chan struct{}),
		shutdownOnce: &sync.Once{},
	}, nil
}

// Addr is the address the server accepts connections on.
func (server *Server) Addr() net.Addr {
	return server.listener.Addr()
}

func handleShutdown(conn net.Conn) {

	if _, err := conn.Write(encodeShutdownMessage()); err != nil {
		slog.Error("error while sending shutdown message", "error", err.Error(), "function", "handleShutdown", "at", "Server")
	}

	if err := conn.Close(); err != nil {
		slog.Error("error while closing connection", "error", err.Error(), "function", "handleShutdown", "at", "Server")
	}
}

func writeResponse(conn net.Conn, response []byte) {

	if _, err := conn.Write(response); err != nil {
		slog.Error("error while writing to connection", "error", err.Error(), "function", "writeResponse", "at", "Server")
	}
}

func sendErrorResponse(conn net.Conn, err error, message string) {

	slog.Error(message, "error", err.Error(), "function", "sendErrorResponse", "at", "Server")
	writeResponse(conn, encodeErrorResponse(err))
}

// handleRequest serves one request. It returns false once the connection
// can no longer be read.
func (server *Server) handleRequest(conn net.Conn, reader io.Reader, opCode byte, session *session) bool {

	body, err := readRequestBody(reader)
	if err != nil {
		sendErrorResponse(conn, err, "error while reading request")
		return false
	}

	switch opCode {

	// PING
	case 'P':
		writeResponse(conn, encodeOKResponse())

	// OPEN cursor
	case 'O':
		open, err := decodeOpenRequestBody(body)
		if err != nil {
			sendErrorResponse(conn, err, "error while decoding open request")
			return true
		}

		cursor, err := server.inspector.OpenCursor(open.kind, open.name, open.attr)
		if err != nil {
			sendErrorResponse(conn, err, "error while opening cursor")
			return true
		}

		cursorId := server.nextCursorId.Add(1)
		session.add(cursorId, cursor)

		slog.Debug("cursor opened", "cursorId", cursorId, "kind", open.kind, "name", open.name, "function", "handleRequest", "at", "Server")
		writeResponse(conn, encodeOpenResponse(cursorId, cursor.Columns()))

	// FETCH one row
	case 'F':
		cursorId, err := decodeCursorRequestBody(body)
		if err != nil {
			sendErrorResponse(conn, err, "error while decoding fetch request")
			return true
		}

		cursor, err := session.get(cursorId)
		if err != nil {
			sendErrorResponse(conn, err, "error while fetching")
			return true
		}

		cells, ok, err := cursor.Next()
		if err != nil {
			_ = session.remove(cursorId)
			sendErrorResponse(conn, err, "error while fetching")
			return true
		}

		if !ok {
			_ = session.remove(cursorId)
			writeResponse(conn, encodeDoneResponse())
			return true
		}

		writeResponse(conn, encodeRowResponse(cells))

	// CLOSE cursor
	case 'C':
		cursorId, err := decodeCursorRequestBody(body)
		if err != nil {
			sendErrorResponse(conn, err, "error while decoding close request")
			return true
		}

		if err := session.remove(cursorId); err != nil {
			sendErrorResponse(conn, err, "error while closing cursor")
			return true
		}
		writeResponse(conn, encodeOKResponse())

	// REPORT
	case 'R':
		report, err := decodeReportRequestBody(body)
		if err != nil {
			sendErrorResponse(conn, err, "error while decoding report request")
			return true
		}

		text, err := server.inspector.Report(report.kind, report.name)
		if err != nil {
			sendErrorResponse(conn, err, "error while running report")
			return true
		}
		writeResponse(conn, encodeReportResponse(text))

	// SHUTDOWN
	case 'S':
		slog.Info("server received shut down message", "function", "handleRequest", "at", "Server")
		server.Shutdown()

	default:
		sendErrorResponse(conn, errors.Wrapf(ErrMalformedRequest, "invalid op code %q", opCode), "invalid op code")
	}

	return true
}

func (server *Server) handleClient(conn net.Conn, wg *sync.WaitGroup) {

	defer wg.Done()

	session := newSession()
	defer session.closeAll()

	reader := bufio.NewReader(conn)

	for {

		select {

		case <-server.shutdown:
			slog.Info("client exiting", "function", "handleClient", "at", "Server")
			handleShutdown(conn)
			return

		default:
		}

		// poll for the op code so a shutdown is noticed between requests
		if err := conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			slog.Error("error while setting read deadline", "error", err.Error(), "function", "handleClient", "at", "Server")
		}

		opCode, err := reader.ReadByte()

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Error("error while reading op code", "error", err.Error(), "function", "handleClient", "at", "Server")
			}
			_ = conn.Close()
			return
		}

		_ = conn.SetReadDeadline(time.Time{})

		if !server.handleRequest(conn, reader, opCode, session) {
			_ = conn.Close()
			return
		}
	}
}

func (server *Server) listen(listenerWaitGroup, clientWaitGroup *sync.WaitGroup) {

	defer listenerWaitGroup.Done()

	for {

		conn, err := server.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			slog.Info("listener closed", "function", "listen", "at", "Server")
			return
		}
		if err != nil {
			slog.Error("error while accepting connection", "error", err.Error(), "function", "listen", "at", "Server")
			continue
		}

		slog.Info(fmt.Sprintf("client joined from %s", conn.RemoteAddr().String()), "function", "listen", "at", "Server")
		clientWaitGroup.Add(1)
		go server.handleClient(conn, clientWaitGroup)
	}
}

// Run serves clients until Shutdown, then waits for them to leave and closes
// the inspector.
func (server *Server) Run() {

	clientWaitGroup := &sync.WaitGroup{}
	listenerWaitGroup := &sync.WaitGroup{}

	listenerWaitGroup.Add(1)
	go server.listen(listenerWaitGroup, clientWaitGroup)

	slog.Info("waiting for shutdown", "addr", server.Addr().String(), "function", "Run", "at", "Server")
	listenerWaitGroup.Wait()
	slog.Info("waiting for clients to exit", "function", "Run", "at", "Server")
	clientWaitGroup.Wait()

	if err := server.inspector.Close(); err != nil {
		slog.Error("error while closing inspector", "error", err.Error(), "function", "Run", "at", "Server")
	}
}

func (server *Server) Shutdown() {

	server.shutdownOnce.Do(func() {

		slog.Info("shutdown initiated", "function", "Shutdown", "at", "Server")
		close(server.shutdown)
		if err := server.listener.Close(); err != nil {
			slog.Error("error while closing listener", "error", err.Error(), "function", "Shutdown", "at", "Server")
		}
	})
}
