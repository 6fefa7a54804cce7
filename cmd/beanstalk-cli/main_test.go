package main

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pior/beanstalk/proto"
	"github.com/stretchr/testify/require"
)

// scriptedServer replies to each request line with the next reply.
// Data blocks of put requests are skipped.
type scriptedServer struct {
	port int

	mu       sync.Mutex
	requests []string
}

func newScriptedServer(t *testing.T, replies ...string) *scriptedServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	s := &scriptedServer{port: listener.Addr().(*net.TCPAddr).Port}

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")

			s.mu.Lock()
			s.requests = append(s.requests, line)
			s.mu.Unlock()

			fields := strings.Fields(line)
			if len(fields) == 5 && fields[0] == "put" {
				size, _ := strconv.Atoi(fields[4])
				r.Discard(size + 2)
			}
			if fields[0] == "quit" || len(replies) == 0 {
				return
			}

			conn.Write([]byte(replies[0]))
			replies = replies[1:]
		}
	}()

	return s
}

func (s *scriptedServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func runCLI(t *testing.T, port int, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--host", "127.0.0.1", "--port", strconv.Itoa(port), "--timeout", "1s"}, args...))

	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestPut(t *testing.T) {
	server := newScriptedServer(t, "INSERTED 42\r\n")

	out, err := runCLI(t, server.port, "", "put", "--priority", "10", "--ttr", "30s", "hello")
	require.NoError(t, err)
	require.Equal(t, "inserted: 42\n", out)

	require.Eventually(t, func() bool { return len(server.Requests()) == 2 }, time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"put 10 0 30 5", "quit"}, server.Requests())
}

func TestPutFromStdinWithTube(t *testing.T) {
	server := newScriptedServer(t, "USING emails\r\n", "WATCHING 2\r\n", "WATCHING 1\r\n", "INSERTED 7\r\n")

	out, err := runCLI(t, server.port, "from stdin", "--tube", "emails", "put")
	require.NoError(t, err)
	require.Equal(t, "inserted: 7\n", out)

	requests := server.Requests()
	require.Equal(t, []string{"use emails", "watch emails", "ignore default"}, requests[:3])
	require.Equal(t, "put 2147483648 0 120 10", requests[3])
}

func TestReserveTimedOut(t *testing.T) {
	server := newScriptedServer(t, "TIMED_OUT\r\n")

	out, err := runCLI(t, server.port, "", "reserve", "--wait", "0s")
	require.NoError(t, err)
	require.Equal(t, "no job\n", out)
	require.Equal(t, "reserve-with-timeout 0", server.Requests()[0])
}

func TestReserveAndDelete(t *testing.T) {
	server := newScriptedServer(t, "RESERVED 3 5\r\nhello\r\n", "DELETED\r\n")

	out, err := runCLI(t, server.port, "", "reserve", "--action", "delete")
	require.NoError(t, err)
	require.Equal(t, "id: 3\nbody: hello\n", out)
	require.Equal(t, []string{"reserve", "delete 3"}, server.Requests()[:2])
}

func TestStatsTube(t *testing.T) {
	body := "name: jobs\ncurrent-jobs-ready: 2\n"
	server := newScriptedServer(t, fmt.Sprintf("OK %d\r\n%s\r\n", len(body), body))

	out, err := runCLI(t, server.port, "", "stats-tube", "jobs")
	require.NoError(t, err)
	require.Equal(t, "current-jobs-ready: 2\nname: jobs\n", out)
}

func TestDeleteNotFound(t *testing.T) {
	server := newScriptedServer(t, "NOT_FOUND\r\n")

	_, err := runCLI(t, server.port, "", "delete", "99")
	require.True(t, proto.IsStatus(err, proto.StatusNotFound))
}

func TestInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"tube name", []string{"--tube", "-bad", "tubes"}},
		{"job id", []string{"delete", "abc"}},
		{"log level", []string{"--log-level", "loud", "tubes"}},
		{"action", []string{"reserve", "--action", "explode"}},
		{"pause delay", []string{"pause", "jobs", "soon"}},
		{"partition tube", []string{"put", "--partitions", "ok,bad tube", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// port 1 is never dialed, arguments are rejected first
			_, err := runCLI(t, 1, "", tt.args...)
			require.Error(t, err)

			var connErr *proto.ConnectionError
			require.NotErrorAs(t, err, &connErr)
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)

	level, err = parseLevel("")
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)

	_, err = parseLevel("trace")
	require.Error(t, err)
}
