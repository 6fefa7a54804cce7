package testutils

import (
	"bytes"
	"net"
	"strings"
	"time"
)

// ConnectionMock is a net.Conn replaying scripted server replies.
// Reads drain the replies in order and return io.EOF once they are exhausted.
// Writes are recorded and can be inspected with GetWrittenRequest.
type ConnectionMock struct {
	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer
	closed   bool

	// WriteErr, when set, is returned by every Write.
	WriteErr error

	// ReadErr, when set, is returned by every Read.
	ReadErr error

	// DeadlineErr, when set, is returned by every SetDeadline.
	DeadlineErr error
}

// NewConnectionMock creates a mock connection replying responseData in order.
func NewConnectionMock(responseData ...string) *ConnectionMock {
	return &ConnectionMock{
		readBuf:  bytes.NewBufferString(strings.Join(responseData, "")),
		writeBuf: &bytes.Buffer{},
	}
}

func (m *ConnectionMock) Read(b []byte) (n int, err error) {
	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	return m.readBuf.Read(b)
}

func (m *ConnectionMock) Write(b []byte) (n int, err error) {
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	return m.writeBuf.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (m *ConnectionMock) IsClosed() bool {
	return m.closed
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 11300}
}

// SetDeadline fails with DeadlineErr if set, and with net.ErrClosed once closed.
func (m *ConnectionMock) SetDeadline(t time.Time) error {
	if m.DeadlineErr != nil {
		return m.DeadlineErr
	}
	if m.closed {
		return net.ErrClosed
	}
	return nil
}

func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }

// GetWrittenRequest returns the raw request bytes written to the mock connection
func (m *ConnectionMock) GetWrittenRequest() string {
	return m.writeBuf.String()
}

// ResetWrittenRequest forgets the bytes written so far.
func (m *ConnectionMock) ResetWrittenRequest() {
	m.writeBuf.Reset()
}

