package proto

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
)

var crlfBytes = []byte(CRLF)

// ReadResponse reads and parses a single reply from r.
// Reply format: <STATUS> [<param>*]\r\n[<data>\r\n]
//
// A data block follows OK, RESERVED and FOUND; its size is the param at
// index 0 for OK and index 1 for RESERVED and FOUND. Exactly size+2 bytes
// are read, the trailing CRLF is verified and dropped.
//
// Errors:
//   - ConnectionError: the socket failed while reading (reset, deadline)
//   - UnexpectedResponseError: the reply is malformed, including a stream
//     that ends before a complete status line or data block, and a data
//     block not terminated by CRLF
func ReadResponse(r *bufio.Reader) (*Response, error) {
	// Falls back to ReadBytes if line exceeds buffer size.
	// ReadSlice has already consumed the head of the line at that point.
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		head := append([]byte(nil), line...)
		var rest []byte
		rest, err = r.ReadBytes('\n')
		line = append(head, rest...)
	}
	if err != nil {
		return nil, lineError(line, err)
	}

	line = bytes.TrimSuffix(line, []byte{'\n'})
	line = bytes.TrimSuffix(line, []byte{'\r'})

	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return nil, &UnexpectedResponseError{Message: "empty response line"}
	}

	status, err := ParseStatus(fields[0])
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Status: status,
		Params: fields[1:],
	}

	index, ok := status.bodySizeIndex()
	if !ok {
		return resp, nil
	}

	size, err := resp.bodySize(index)
	if err != nil {
		return nil, err
	}

	// Read data + CRLF together in single read
	data := make([]byte, size+2)
	if _, err := io.ReadFull(r, data); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &UnexpectedResponseError{Message: "data block shorter than announced size " + strconv.Itoa(size), Err: io.ErrUnexpectedEOF}
		}
		return nil, &ConnectionError{Op: "read", Err: err}
	}

	if !bytes.HasSuffix(data, crlfBytes) {
		return nil, &UnexpectedResponseError{Message: "data block longer than announced size " + strconv.Itoa(size)}
	}

	resp.Body = data[:size]
	return resp, nil
}

// lineError classifies a failed status line read. A stream ending before a
// complete line is a malformed reply, anything else is a socket failure.
func lineError(line []byte, err error) error {
	if err != io.EOF {
		return &ConnectionError{Op: "read", Err: err}
	}
	if len(line) == 0 {
		return &UnexpectedResponseError{Message: "empty response line", Err: io.EOF}
	}
	return &UnexpectedResponseError{Message: "truncated response line", Err: io.ErrUnexpectedEOF}
}

func (r *Response) bodySize(index int) (int, error) {
	token, err := r.Param(index)
	if err != nil {
		return 0, &UnexpectedResponseError{Message: string(r.Status) + " response missing size"}
	}

	if strings.HasPrefix(token, "-") {
		return 0, &UnexpectedResponseError{Message: "negative size in " + string(r.Status) + " response"}
	}

	size, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, &UnexpectedResponseError{Message: "invalid size in " + string(r.Status) + " response", Err: err}
	}
	if size > MaxBodySize {
		return 0, &UnexpectedResponseError{Message: "size out of bounds in " + string(r.Status) + " response"}
	}
	return int(size), nil
}
