package beanstalk

import (
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultPort is the port beanstalkd listens on by default.
	DefaultPort = 11300

	// DefaultPriority sits in the middle of the priority range.
	// Lower values are more urgent.
	DefaultPriority uint32 = 1 << 31

	// DefaultTTR is the time a worker has to process a job before it is
	// released back to the ready queue.
	DefaultTTR = 120 * time.Second

	// DefaultConnectTimeout bounds address resolution and dialing.
	DefaultConnectTimeout = 120 * time.Second
)

// Config holds the connection settings and the job defaults of a Client.
type Config struct {
	// Host is a hostname or an IP literal.
	Host string

	// Port of the beanstalkd server.
	Port int

	// ConnectTimeout bounds resolution and dialing. Zero means no timeout.
	ConnectTimeout time.Duration

	// DefaultPriority, DefaultDelay and DefaultTTR are used by PutDefault,
	// Job.ReleaseDefault and Job.BuryDefault.
	DefaultPriority uint32
	DefaultDelay    time.Duration
	DefaultTTR      time.Duration

	// Dialer is the net.Dialer used to open the connection.
	// If nil, a net.Dialer with ConnectTimeout is used.
	Dialer *net.Dialer

	// Resolver resolves Host when it is not an IP literal.
	// If nil, net.DefaultResolver is used.
	Resolver *net.Resolver

	// Logger receives connection lifecycle and round trip records.
	// If nil, nothing is logged.
	Logger *slog.Logger

	// SelectTube picks the tube used by PutPartitioned.
	// If nil, uses DefaultTubeSelector (xxh3 + Jump Hash).
	SelectTube TubeSelector

	// NewCircuitBreaker creates a circuit breaker for the server address.
	// Called once, on the first successful connect. If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) CircuitBreaker
}

// DefaultConfig returns the configuration for a beanstalkd on localhost.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            DefaultPort,
		ConnectTimeout:  DefaultConnectTimeout,
		DefaultPriority: DefaultPriority,
		DefaultDelay:    0,
		DefaultTTR:      DefaultTTR,
	}
}

// ConfigFromEnv overlays BEANSTALK_* environment variables onto cfg.
// Unparsable values are ignored.
//
//	BEANSTALK_HOST             host name or IP
//	BEANSTALK_PORT             port number
//	BEANSTALK_CONNECT_TIMEOUT  Go duration, e.g. "5s"
func ConfigFromEnv(cfg *Config) {
	if v := os.Getenv("BEANSTALK_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("BEANSTALK_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 65535 {
			cfg.Port = n
		}
	}
	if v := os.Getenv("BEANSTALK_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.ConnectTimeout = d
		}
	}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (c *Config) dialer() *net.Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &net.Dialer{Timeout: c.ConnectTimeout}
}

func (c *Config) resolver() *net.Resolver {
	if c.Resolver != nil {
		return c.Resolver
	}
	return net.DefaultResolver
}
