package beanstalk

import (
	"bufio"
	"context"
	"net"

	"github.com/pior/beanstalk/proto"
)

// Connection is a single beanstalkd connection.
// It performs one request/response exchange at a time and is not safe for
// concurrent use.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

// NewConnection wraps an established net.Conn.
func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
	}
}

// Send writes cmd and reads its reply.
//
// The context deadline, if any, applies to the whole exchange. Without a
// deadline the exchange blocks until the server replies, which is what a
// plain reserve expects.
func (c *Connection) Send(ctx context.Context, cmd *proto.Command) (*proto.Response, error) {
	if err := c.write(ctx, cmd); err != nil {
		return nil, err
	}
	return proto.ReadResponse(c.reader)
}

// SendNoReply writes cmd without waiting for a reply.
func (c *Connection) SendNoReply(ctx context.Context, cmd *proto.Command) error {
	return c.write(ctx, cmd)
}

func (c *Connection) write(ctx context.Context, cmd *proto.Command) error {
	if err := ctx.Err(); err != nil {
		return &proto.ConnectionError{Op: string(cmd.Kind), Err: err}
	}

	// Set deadline based on context
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return &proto.ConnectionError{Op: "deadline", Err: err}
	}

	if err := proto.WriteCommand(c.writer, cmd); err != nil {
		return &proto.ConnectionError{Op: "write", Err: err}
	}
	return nil
}

// RemoteAddr returns the server address.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying connection.
func (c *Connection) Close() error {
	return c.conn.Close()
}
