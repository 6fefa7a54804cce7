package beanstalk

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/pior/beanstalk/internal/testutils"
	"github.com/pior/beanstalk/proto"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBreakerClient(t *testing.T, responses ...string) (*Client, *testutils.ConnectionMock) {
	t.Helper()
	config := DefaultConfig()
	config.NewCircuitBreaker = NewCircuitBreakerConfig(1, time.Minute, time.Minute)

	mock := testutils.NewConnectionMock(responses...)
	return NewClientFromConn(mock, config), mock
}

func TestNewCircuitBreakerConfig(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Second, time.Second)("127.0.0.1:11300")
	require.NotNil(t, cb)

	// Should start in closed state
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Execute_Success(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Second, time.Second)("test")

	result, err := cb.Execute(func() (*proto.Response, error) {
		return &proto.Response{Status: proto.StatusDeleted}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, proto.StatusDeleted, result.Status)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Execute_Failure(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, time.Minute)("test")

	// First few failures should keep circuit closed
	for range 2 {
		_, err := cb.Execute(func() (*proto.Response, error) {
			return nil, &proto.ConnectionError{Op: "read", Err: io.EOF}
		})
		require.Error(t, err)
		assert.Equal(t, gobreaker.StateClosed, cb.State())
	}

	// Third failure should open the circuit
	_, err := cb.Execute(func() (*proto.Response, error) {
		return nil, &proto.UnexpectedResponseError{Message: "garbage"}
	})
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestIsBreakerSuccess(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, true},
		{"command failed", &proto.CommandFailedError{Command: proto.CmdDelete, Status: proto.StatusNotFound}, true},
		{"wrapped command failed", fmt.Errorf("wrapped: %w", &proto.CommandFailedError{Status: proto.StatusTimedOut}), true},
		{"connection error", &proto.ConnectionError{Op: "read", Err: io.EOF}, false},
		{"unexpected response", &proto.UnexpectedResponseError{Message: "bad"}, false},
		{"unknown error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsBreakerSuccess(tt.err))
		})
	}
}

func TestClient_WithCircuitBreaker_Opens(t *testing.T) {
	client, mock := newBreakerClient(t)
	mock.ReadErr = io.ErrClosedPipe

	require.NotNil(t, client.CircuitBreaker())

	for range 3 {
		err := client.Delete(t.Context(), 1)
		requireConnectionError(t, err)
		require.ErrorIs(t, err, io.ErrClosedPipe)
	}
	assert.Equal(t, gobreaker.StateOpen, client.CircuitBreaker().State())

	mock.ResetWrittenRequest()
	err := client.Delete(t.Context(), 1)
	requireConnectionError(t, err)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Empty(t, mock.GetWrittenRequest(), "open breaker must not touch the socket")

	require.Equal(t, uint64(4), client.ClientStats().Errors)
}

func TestClient_WithCircuitBreaker_IgnoresCommandFailures(t *testing.T) {
	client, _ := newBreakerClient(t, "NOT_FOUND\r\n", "NOT_FOUND\r\n", "NOT_FOUND\r\n", "NOT_FOUND\r\n", "DELETED\r\n")

	for range 4 {
		err := client.Delete(t.Context(), 1)
		requireCommandFailed(t, err, proto.StatusNotFound)
	}
	require.NoError(t, client.Delete(t.Context(), 1))

	cb := client.CircuitBreaker()
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, uint32(5), cb.Counts().TotalSuccesses)
	assert.Zero(t, cb.Counts().TotalFailures)
}

func TestClient_WithCircuitBreaker_CountsUnexpectedStatus(t *testing.T) {
	client, _ := newBreakerClient(t, "INTERNAL_ERROR\r\n")

	requireUnexpected(t, client.Delete(t.Context(), 1))
	assert.Equal(t, uint32(1), client.CircuitBreaker().Counts().TotalFailures)
}

func TestClient_WithoutCircuitBreaker(t *testing.T) {
	client, _ := newTestClient(t, "DELETED\r\n")

	assert.Nil(t, client.CircuitBreaker())
	require.NoError(t, client.Delete(t.Context(), 1))
}

func TestClient_WithCircuitBreaker_Recovers(t *testing.T) {
	config := DefaultConfig()
	config.NewCircuitBreaker = NewCircuitBreakerConfig(1, time.Minute, 20*time.Millisecond)

	mock := testutils.NewConnectionMock("DELETED\r\n")
	client := NewClientFromConn(mock, config)
	cb := client.CircuitBreaker()
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	mock.ReadErr = io.ErrClosedPipe
	for range 3 {
		requireConnectionError(t, client.Delete(t.Context(), 1))
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	mock.ReadErr = nil
	require.Eventually(t, func() bool {
		return cb.State() == gobreaker.StateHalfOpen
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, client.Delete(t.Context(), 1))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
