// Package proto provides a low-level wire protocol implementation for the
// beanstalkd work queue protocol.
//
// It covers serialization of commands and parsing of replies, without
// owning a connection. The beanstalk package builds the client on top of it.
//
// # Core Types
//
//   - Command: a command keyword, its arguments, an optional job body, and
//     the statuses that count as success or expected failure for it
//   - Response: a parsed reply with its status, string params and body
//   - Status, CommandKind: closed vocabularies of wire keywords
//
// # Serialization and Parsing
//
// WriteCommand serializes commands to wire format:
//
//	cmd := proto.NewPut([]byte("hello"), 0, 0, 60*time.Second)
//	err := proto.WriteCommand(bw, cmd) // put 0 0 60 5\r\nhello\r\n
//
// ReadResponse parses a reply, including the data block of OK, RESERVED
// and FOUND replies:
//
//	resp, err := proto.ReadResponse(br)
//	if err != nil {
//	    if proto.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	    return err
//	}
//	id, err := resp.JobID()
//
// Stats and list replies carry YAML bodies, decoded with BodyAsMap and
// BodyAsList.
//
// # Error Handling
//
// Every failure is one of three kinds:
//
//   - ConnectionError: the connection is broken
//   - UnexpectedResponseError: the reply violates the protocol, framing is unreliable
//   - CommandFailedError: the server reported an expected failure such as NOT_FOUND
//
// The package performs no retries.
package proto
