package server

import (
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
	"github.com/cockroachdb/errors"
)

var ErrUnknownCursor = errors.New("unknown cursor")

// Cursor is an open row walk. Each Next is exactly one step of the walk.
type Cursor interface {
	Columns() []string
	Next() (cells []string, ok bool, err error)
	Close()
}

// Inspector opens cursors and runs reports over named trees.
type Inspector interface {
	OpenCursor(kind string, name string, attr int) (Cursor, error)
	Report(kind string, name string) (string, error)
	Close() error
}

type generatorCursor[R any] struct {
	columns   []string
	generator treewalk.Generator[R]
	cells     func(R) []string
}

// GeneratorCursor renders the rows of generator through cells.
func GeneratorCursor[R any](columns []string, generator treewalk.Generator[R], cells func(R) []string) Cursor {
	return &generatorCursor[R]{columns: columns, generator: generator, cells: cells}
}

func (cursor *generatorCursor[R]) Columns() []string {
	return cursor.columns
}

func (cursor *generatorCursor[R]) Next() ([]string, bool, error) {

	row, ok, err := cursor.generator.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	return cursor.cells(row), true, nil
}

func (cursor *generatorCursor[R]) Close() {
	cursor.generator.Close()
}

// session holds the cursors one connection has open. Cursors outlive the
// request that opened them and are closed with the connection.
type session struct {
	cursors map[uint32]Cursor
}

func newSession() *session {
	return &session{cursors: make(map[uint32]Cursor)}
}

func (session *session) add(cursorId uint32, cursor Cursor) {
	session.cursors[cursorId] = cursor
}

func (session *session) get(cursorId uint32) (Cursor, error) {

	cursor, ok := session.cursors[cursorId]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCursor, "cursor %d", cursorId)
	}
	return cursor, nil
}

func (session *session) remove(cursorId uint32) error {

	cursor, err := session.get(cursorId)
	if err != nil {
		return err
	}

	cursor.Close()
	delete(session.cursors, cursorId)
	return nil
}

func (session *session) closeAll() {

	for cursorId, cursor := range session.cursors {
		cursor.Close()
		delete(session.cursors, cursorId)
	}
}
