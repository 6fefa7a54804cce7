package proto

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pior/beanstalk/internal"
)

// Buffer pool for building commands.
// Typical command is well under 128 bytes, bodies are written separately.
var bufferPool = internal.NewBufferPool(128, 64*1024)

// ValidateTubeName checks a tube name against the beanstalkd grammar:
// 1-200 bytes of letters, digits and "-+/;.$_()", not starting with a hyphen.
func ValidateTubeName(name string) error {
	if len(name) == 0 {
		return &InvalidTubeNameError{Message: "tube name is empty"}
	}
	if len(name) > MaxTubeNameLength {
		return &InvalidTubeNameError{Message: "tube name exceeds maximum length of 200 bytes"}
	}
	if name[0] == '-' {
		return &InvalidTubeNameError{Message: "tube name starts with a hyphen"}
	}
	for i := 0; i < len(name); i++ {
		if !isTubeNameByte(name[i]) {
			return &InvalidTubeNameError{Message: "tube name contains invalid character " + quote(name[i:i+1])}
		}
	}
	return nil
}

func isTubeNameByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '-', '+', '/', ';', '.', '$', '_', '(', ')':
		return true
	}
	return false
}

// AppendCommand appends the wire encoding of cmd to dst.
// Format: <name>[ <arg>...][ <bytes>]\r\n[<data>\r\n]
func AppendCommand(dst []byte, cmd *Command) []byte {
	dst = appendCommandLine(dst, cmd)
	if cmd.Body != nil {
		dst = append(dst, cmd.Body...)
		dst = append(dst, CRLF...)
	}
	return dst
}

func appendCommandLine(dst []byte, cmd *Command) []byte {
	dst = append(dst, cmd.Kind...)
	for _, arg := range cmd.Args {
		dst = append(dst, Space...)
		dst = append(dst, arg...)
	}
	if cmd.Body != nil {
		dst = append(dst, Space...)
		dst = strconv.AppendInt(dst, int64(len(cmd.Body)), 10)
	}
	return append(dst, CRLF...)
}

// WriteCommand serializes cmd to wire format and writes it to w.
//
// When w is a *bufio.Writer the command is flushed before returning, so a
// reply can be read right after. Other writers receive the command line in
// a single write followed by the data block.
func WriteCommand(w io.Writer, cmd *Command) error {
	// Optimize for bufio.Writer (used by Connection)
	if bw, ok := w.(*bufio.Writer); ok {
		return writeCommandBuffered(bw, cmd)
	}

	// Other writers (tests, etc.) get a pooled buffer
	return writeCommandUnbuffered(w, cmd)
}

func writeCommandBuffered(bw *bufio.Writer, cmd *Command) error {
	bw.WriteString(string(cmd.Kind))
	for _, arg := range cmd.Args {
		bw.WriteString(Space)
		bw.WriteString(arg)
	}
	if cmd.Body != nil {
		bw.WriteString(Space)
		bw.WriteString(strconv.Itoa(len(cmd.Body)))
	}
	bw.WriteString(CRLF)

	if cmd.Body != nil {
		if _, err := bw.Write(cmd.Body); err != nil {
			return err
		}
		bw.WriteString(CRLF)
	}

	// bufio.Writer keeps the first error, Flush reports it
	return bw.Flush()
}

func writeCommandUnbuffered(w io.Writer, cmd *Command) error {
	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	buf.Write(appendCommandLine(buf.AvailableBuffer(), cmd))

	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}

	if cmd.Body != nil {
		if len(cmd.Body) > 0 {
			if _, err := w.Write(cmd.Body); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, CRLF); err != nil {
			return err
		}
	}

	return nil
}
