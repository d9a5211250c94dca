package server

import "encoding/binary"

const (
	opOK       = 'O'
	opError    = 'E'
	opRow      = 'R'
	opDone     = 'D'
	opShutdown = 'S'
)

func appendString(b []byte, value string) []byte {

	b = binary.LittleEndian.AppendUint32(b, uint32(len(value)))
	return append(b, value...)
}

func appendStrings(b []byte, values []string) []byte {

	b = binary.LittleEndian.AppendUint32(b, uint32(len(values)))
	for _, value := range values {
		b = appendString(b, value)
	}
	return b
}

// frame prefixes body with its op code and length.
func frame(opCode byte, body []byte) []byte {

	response := make([]byte, 0, 1+4+len(body))
	response = append(response, opCode)
	response = binary.LittleEndian.AppendUint32(response, uint32(len(body)))
	return append(response, body...)
}

func encodeOKResponse() []byte {
	return frame(opOK, nil)
}

func encodeOpenResponse(cursorId uint32, columns []string) []byte {

	body := binary.LittleEndian.AppendUint32(nil, cursorId)
	return frame(opOK, appendStrings(body, columns))
}

func encodeRowResponse(cells []string) []byte {
	return frame(opRow, appendStrings(nil, cells))
}

func encodeDoneResponse() []byte {
	return frame(opDone, nil)
}

func encodeReportResponse(report string) []byte {
	return frame(opOK, appendString(nil, report))
}

func encodeErrorResponse(err error) []byte {
	return frame(opError, appendString(nil, err.Error()))
}

func encodeShutdownMessage() []byte {
	return []byte{opShutdown}
}
