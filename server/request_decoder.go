package server

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

const maxRequestBodyLength = 1 << 20

var ErrMalformedRequest = errors.New("malformed request")

type request struct {
	opCode string
	body   []byte
}

func readNBytes(reader io.Reader, N int) ([]byte, error) {

	data := make([]byte, N)

	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, err
	}

	return data, nil
}

// readRequestBody reads the length-prefixed body that follows an op code.
func readRequestBody(reader io.Reader) ([]byte, error) {

	bodyLengthBytes, err := readNBytes(reader, 4)
	if err != nil {
		return nil, err
	}

	bodyLength := binary.LittleEndian.Uint32(bodyLengthBytes)
	if bodyLength > maxRequestBodyLength {
		return nil, errors.Wrapf(ErrMalformedRequest, "body of %d bytes", bodyLength)
	}

	return readNBytes(reader, int(bodyLength))
}

// bodyReader walks the fields of a request body. The first short read sticks.
type bodyReader struct {
	data []byte
	err  error
}

func (reader *bodyReader) uint32() uint32 {

	if reader.err != nil {
		return 0
	}
	if len(reader.data) < 4 {
		reader.err = errors.Wrap(ErrMalformedRequest, "truncated integer")
		return 0
	}

	value := binary.LittleEndian.Uint32(reader.data)
	reader.data = reader.data[4:]
	return value
}

func (reader *bodyReader) string() string {

	length := reader.uint32()
	if reader.err != nil {
		return ""
	}
	if uint32(len(reader.data)) < length {
		reader.err = errors.Wrap(ErrMalformedRequest, "truncated string")
		return ""
	}

	value := string(reader.data[:length])
	reader.data = reader.data[length:]
	return value
}

func (reader *bodyReader) finish() error {

	if reader.err == nil && len(reader.data) != 0 {
		reader.err = errors.Wrapf(ErrMalformedRequest, "%d trailing bytes", len(reader.data))
	}
	return reader.err
}

type openRequest struct {
	kind string
	name string
	attr int
}

func decodeOpenRequestBody(body []byte) (openRequest, error) {

	reader := &bodyReader{data: body}

	open := openRequest{
		kind: reader.string(),
		name: reader.string(),
		attr: int(reader.uint32()),
	}

	return open, reader.finish()
}

func decodeCursorRequestBody(body []byte) (uint32, error) {

	reader := &bodyReader{data: body}
	cursorId := reader.uint32()
	return cursorId, reader.finish()
}

type reportRequest struct {
	kind string
	name string
}

func decodeReportRequestBody(body []byte) (reportRequest, error) {

	reader := &bodyReader{data: body}

	report := reportRequest{
		kind: reader.string(),
		name: reader.string(),
	}

	return report, reader.finish()
}
