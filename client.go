package beanstalk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/pior/beanstalk/proto"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrNotConnected is wrapped in the ConnectionError returned by operations
	// attempted before Connect or after Close.
	ErrNotConnected = errors.New("beanstalk: client is not connected")

	// ErrNoAddress is wrapped in the ConnectionError returned when the host
	// resolves to no address.
	ErrNoAddress = errors.New("beanstalk: host resolved to no address")

	// ErrNoTubes is returned by PutPartitioned for an empty tube list.
	// Nothing is sent and the connection stays usable.
	ErrNoTubes error = usageError("beanstalk: no tube to partition over")
)

// usageError is a caller mistake detected before anything is sent.
type usageError string

func (e usageError) Error() string { return string(e) }

// ShouldCloseConnection returns false - the connection was not used
func (e usageError) ShouldCloseConnection() bool { return false }

// quitTimeout bounds the best-effort quit sent by Close.
const quitTimeout = time.Second

// Client is a beanstalkd client bound to a single connection.
//
// The protocol is strictly request-then-reply: a Client performs one exchange
// at a time and does no locking. It is not safe for concurrent use. Callers
// sharing a Client (or a Job and its Client) across goroutines must serialize
// access themselves. ClientStats is the exception and may be read at any time.
//
// A Client never reconnects on its own. After an error for which
// proto.ShouldCloseConnection reports true, call Reconnect or Close.
type Client struct {
	config     Config
	logger     *slog.Logger
	selectTube TubeSelector

	conn           *Connection
	addr           string
	circuitBreaker CircuitBreaker // nil if not configured

	stats *clientStatsCollector
}

// NewClient creates a client that is not connected yet. Call Connect before use.
func NewClient(config Config) *Client {
	selectTube := config.SelectTube
	if selectTube == nil {
		selectTube = DefaultTubeSelector
	}

	return &Client{
		config:     config,
		logger:     config.logger(),
		selectTube: selectTube,
		stats:      newClientStatsCollector(),
	}
}

// Connect resolves the configured host and opens the connection.
func Connect(ctx context.Context, config Config) (*Client, error) {
	client := NewClient(config)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// NewClientFromConn creates a client over an established connection.
func NewClientFromConn(conn net.Conn, config Config) *Client {
	client := NewClient(config)
	client.attach(conn)
	return client
}

// Connect resolves the configured host and opens the connection.
// It does nothing if the client is already connected.
//
// Config.ConnectTimeout bounds resolution and dialing together.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	if c.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	addr, err := c.resolve(ctx)
	if err != nil {
		c.stats.recordError()
		c.logger.Warn("beanstalk resolve failed",
			slog.String("host", c.config.Host),
			slog.String("error", err.Error()),
		)
		return err
	}

	netConn, err := c.config.dialer().DialContext(ctx, "tcp", addr)
	if err != nil {
		c.stats.recordError()
		c.logger.Warn("beanstalk dial failed",
			slog.String("addr", addr),
			slog.String("error", err.Error()),
		)
		return &proto.ConnectionError{Op: "dial", Err: err}
	}

	c.attach(netConn)
	return nil
}

// Reconnect drops the current connection, if any, and connects again.
// It is never called by the client itself.
func (c *Client) Reconnect(ctx context.Context) error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return c.Connect(ctx)
}

// Close sends quit, best effort, and closes the connection.
// Any later operation fails with a ConnectionError until Connect is called.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
	defer cancel()
	_ = c.conn.SendNoReply(ctx, proto.NewQuit())

	err := c.conn.Close()
	c.conn = nil
	c.logger.Info("beanstalk connection closed", slog.String("addr", c.addr))

	if err != nil {
		return &proto.ConnectionError{Op: "close", Err: err}
	}
	return nil
}

// IsConnected reports whether the client holds an open connection.
func (c *Client) IsConnected() bool {
	return c.conn != nil
}

// Addr returns the address of the last connection, empty if never connected.
func (c *Client) Addr() string {
	return c.addr
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// ClientStats returns a snapshot of client statistics.
func (c *Client) ClientStats() ClientStats {
	return c.stats.snapshot()
}

// CircuitBreaker returns the circuit breaker guarding the connection, nil if
// none is configured or the client never connected.
func (c *Client) CircuitBreaker() CircuitBreaker {
	return c.circuitBreaker
}

func (c *Client) attach(netConn net.Conn) {
	c.conn = NewConnection(netConn)
	c.addr = netConn.RemoteAddr().String()

	if c.circuitBreaker == nil && c.config.NewCircuitBreaker != nil {
		c.circuitBreaker = c.config.NewCircuitBreaker(c.addr)
	}

	c.stats.recordConnect()
	c.logger.Info("beanstalk connected", slog.String("addr", c.addr))
}

// resolve returns the address to dial. IP literals are used as is, names are
// resolved and the first IPv4 address wins, the first address otherwise.
func (c *Client) resolve(ctx context.Context) (string, error) {
	port := strconv.Itoa(c.config.Port)

	if ip := net.ParseIP(c.config.Host); ip != nil {
		return net.JoinHostPort(ip.String(), port), nil
	}

	addrs, err := c.config.resolver().LookupIPAddr(ctx, c.config.Host)
	if err != nil {
		return "", &proto.ConnectionError{Op: "resolve", Err: err}
	}

	ip := selectIP(addrs)
	if ip == nil {
		return "", &proto.ConnectionError{Op: "resolve", Err: fmt.Errorf("%w: %s", ErrNoAddress, c.config.Host)}
	}
	return net.JoinHostPort(ip.String(), port), nil
}

func selectIP(addrs []net.IPAddr) net.IP {
	for _, addr := range addrs {
		if ip4 := addr.IP.To4(); ip4 != nil {
			return ip4
		}
	}
	if len(addrs) > 0 {
		return addrs[0].IP
	}
	return nil
}

// execute performs one exchange and classifies the reply against the
// command's status sets. The response is returned only on success.
// If a circuit breaker is configured, the exchange is wrapped with it.
func (c *Client) execute(ctx context.Context, cmd *proto.Command) (*proto.Response, error) {
	if c.conn == nil {
		c.stats.recordError()
		return nil, &proto.ConnectionError{Op: string(cmd.Kind), Err: ErrNotConnected}
	}

	var resp *proto.Response
	var err error

	if c.circuitBreaker != nil {
		resp, err = c.circuitBreaker.Execute(func() (*proto.Response, error) {
			return c.executeDirect(ctx, cmd)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &proto.ConnectionError{Op: string(cmd.Kind), Err: err}
		}
	} else {
		resp, err = c.executeDirect(ctx, cmd)
	}

	if err != nil {
		c.recordFailure(cmd, err)
		return nil, err
	}

	c.logger.Debug("beanstalk command",
		slog.String("cmd", string(cmd.Kind)),
		slog.String("status", string(resp.Status)),
	)
	return resp, nil
}

// executeDirect performs the exchange without circuit breaker.
func (c *Client) executeDirect(ctx context.Context, cmd *proto.Command) (*proto.Response, error) {
	resp, err := c.conn.Send(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := classify(cmd, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// classify maps a reply status to nil, a CommandFailedError or an
// UnexpectedResponseError.
func classify(cmd *proto.Command, resp *proto.Response) error {
	switch {
	case cmd.IsOK(resp.Status):
		return nil
	case cmd.IsExpectedError(resp.Status):
		return &proto.CommandFailedError{Command: cmd.Kind, Status: resp.Status}
	default:
		return &proto.UnexpectedResponseError{Message: "status " + string(resp.Status) + " for " + string(cmd.Kind)}
	}
}

func (c *Client) recordFailure(cmd *proto.Command, err error) {
	if !proto.ShouldCloseConnection(err) {
		c.stats.recordCommandFailure()
		c.logger.Debug("beanstalk command failed",
			slog.String("cmd", string(cmd.Kind)),
			slog.String("error", err.Error()),
		)
		return
	}

	c.stats.recordError()
	c.logger.Warn("beanstalk command error",
		slog.String("cmd", string(cmd.Kind)),
		slog.String("addr", c.addr),
		slog.String("error", err.Error()),
	)
}

// Put inserts a job into the tube in use and returns its id.
//
// JOB_TOO_BIG, DRAINING and BURIED (server out of memory, the job was buried
// and its id is lost) surface as a CommandFailedError.
func (c *Client) Put(ctx context.Context, body []byte, priority uint32, delay, ttr time.Duration) (uint64, error) {
	resp, err := c.execute(ctx, proto.NewPut(body, priority, delay, ttr))
	if err != nil {
		return 0, err
	}

	id, err := resp.JobID()
	if err != nil {
		return 0, err
	}

	c.stats.recordPut()
	return id, nil
}

// PutDefault inserts a job with the configured default priority, delay and TTR.
func (c *Client) PutDefault(ctx context.Context, body []byte) (uint64, error) {
	return c.Put(ctx, body, c.config.DefaultPriority, c.config.DefaultDelay, c.config.DefaultTTR)
}

// PutPartitioned selects one of tubes for key, switches to it and inserts the
// job with the configured defaults. Jobs with the same key always land in the
// same tube for a given tube list.
//
// The selected tube stays in use after the call. An empty tube list fails
// with ErrNoTubes.
func (c *Client) PutPartitioned(ctx context.Context, key string, tubes []string, body []byte) (string, uint64, error) {
	if len(tubes) == 0 {
		return "", 0, ErrNoTubes
	}

	tube := tubes[c.selectTube(key, len(tubes))]

	if _, err := c.Use(ctx, tube); err != nil {
		return "", 0, err
	}

	id, err := c.PutDefault(ctx, body)
	if err != nil {
		return "", 0, err
	}
	return tube, id, nil
}

// Reserve waits for a job from the watched tubes.
//
// DEADLINE_SOON surfaces as a CommandFailedError.
func (c *Client) Reserve(ctx context.Context) (*Job, error) {
	return c.reserve(ctx, proto.NewReserve())
}

// ReserveWithTimeout waits at most timeout for a job from the watched tubes.
// The server replies TIMED_OUT when no job became available, which surfaces
// as a CommandFailedError. A zero timeout polls.
func (c *Client) ReserveWithTimeout(ctx context.Context, timeout time.Duration) (*Job, error) {
	return c.reserve(ctx, proto.NewReserveWithTimeout(timeout))
}

func (c *Client) reserve(ctx context.Context, cmd *proto.Command) (*Job, error) {
	job, err := c.job(ctx, cmd, true)
	if err != nil {
		return nil, err
	}
	c.stats.recordReserve()
	return job, nil
}

// Kick moves up to bound jobs of the tube in use back to the ready queue.
// Buried jobs are kicked first, delayed jobs only when none is buried.
// Returns the number of jobs kicked.
func (c *Client) Kick(ctx context.Context, bound uint32) (uint64, error) {
	resp, err := c.execute(ctx, proto.NewKick(bound))
	if err != nil {
		return 0, err
	}

	count, err := resp.IntParam(0)
	if err != nil {
		return 0, err
	}

	c.stats.recordKick(count)
	return count, nil
}

// KickJob moves a single buried or delayed job back to the ready queue.
func (c *Client) KickJob(ctx context.Context, id uint64) error {
	if _, err := c.execute(ctx, proto.NewKickJob(id)); err != nil {
		return err
	}
	c.stats.recordKick(1)
	return nil
}

// Peek returns the job with the given id without reserving it.
func (c *Client) Peek(ctx context.Context, id uint64) (*Job, error) {
	return c.job(ctx, proto.NewPeek(id), false)
}

// PeekReady returns the next ready job of the tube in use.
func (c *Client) PeekReady(ctx context.Context) (*Job, error) {
	return c.job(ctx, proto.NewPeekReady(), false)
}

// PeekDelayed returns the delayed job of the tube in use with the shortest delay left.
func (c *Client) PeekDelayed(ctx context.Context) (*Job, error) {
	return c.job(ctx, proto.NewPeekDelayed(), false)
}

// PeekBuried returns the next buried job of the tube in use.
func (c *Client) PeekBuried(ctx context.Context) (*Job, error) {
	return c.job(ctx, proto.NewPeekBuried(), false)
}

func (c *Client) job(ctx context.Context, cmd *proto.Command, reserved bool) (*Job, error) {
	resp, err := c.execute(ctx, cmd)
	if err != nil {
		return nil, err
	}

	id, err := resp.JobID()
	if err != nil {
		return nil, err
	}

	return &Job{
		id:       id,
		body:     resp.Body,
		reserved: reserved,
		client:   c,
	}, nil
}

// ListTubes returns the names of all existing tubes.
func (c *Client) ListTubes(ctx context.Context) ([]string, error) {
	return c.list(ctx, proto.NewListTubes())
}

// ListTubesWatched returns the names of the tubes watched by this connection.
func (c *Client) ListTubesWatched(ctx context.Context) ([]string, error) {
	return c.list(ctx, proto.NewListTubesWatched())
}

func (c *Client) list(ctx context.Context, cmd *proto.Command) ([]string, error) {
	resp, err := c.execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return resp.BodyAsList()
}

// Stats returns the server statistics.
func (c *Client) Stats(ctx context.Context) (map[string]string, error) {
	return c.statsMap(ctx, proto.NewStats())
}

// StatsJob returns the statistics of a job, including its tube, state and priority.
func (c *Client) StatsJob(ctx context.Context, id uint64) (map[string]string, error) {
	return c.statsMap(ctx, proto.NewStatsJob(id))
}

// StatsTube returns the statistics of a tube.
func (c *Client) StatsTube(ctx context.Context, tube string) (map[string]string, error) {
	return c.statsMap(ctx, proto.NewStatsTube(tube))
}

func (c *Client) statsMap(ctx context.Context, cmd *proto.Command) (map[string]string, error) {
	resp, err := c.execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return resp.BodyAsMap()
}

// ListTubeUsed returns the name of the tube in use.
func (c *Client) ListTubeUsed(ctx context.Context) (string, error) {
	return c.tubeName(ctx, proto.NewListTubeUsed())
}

// Use selects the tube that Put, PeekReady, PeekDelayed, PeekBuried and Kick
// operate on. Returns the tube name echoed by the server.
func (c *Client) Use(ctx context.Context, tube string) (string, error) {
	return c.tubeName(ctx, proto.NewUse(tube))
}

func (c *Client) tubeName(ctx context.Context, cmd *proto.Command) (string, error) {
	resp, err := c.execute(ctx, cmd)
	if err != nil {
		return "", err
	}
	return resp.Param(0)
}

// Watch adds tube to the watch list used by Reserve.
// Returns the number of watched tubes.
func (c *Client) Watch(ctx context.Context, tube string) (uint64, error) {
	return c.watchCount(ctx, proto.NewWatch(tube))
}

// Ignore removes tube from the watch list.
// Returns the number of watched tubes. Ignoring the last watched tube fails
// with NOT_IGNORED as a CommandFailedError.
func (c *Client) Ignore(ctx context.Context, tube string) (uint64, error) {
	return c.watchCount(ctx, proto.NewIgnore(tube))
}

func (c *Client) watchCount(ctx context.Context, cmd *proto.Command) (uint64, error) {
	resp, err := c.execute(ctx, cmd)
	if err != nil {
		return 0, err
	}
	return resp.IntParam(0)
}

// PauseTube delays new reservations from tube for delay.
func (c *Client) PauseTube(ctx context.Context, tube string, delay time.Duration) error {
	_, err := c.execute(ctx, proto.NewPauseTube(tube, delay))
	return err
}

// Delete removes a job. The job must be reserved by this connection, or be
// ready, delayed or buried.
func (c *Client) Delete(ctx context.Context, id uint64) error {
	if _, err := c.execute(ctx, proto.NewDelete(id)); err != nil {
		return err
	}
	c.stats.recordDelete()
	return nil
}

// Release puts a reserved job back into the ready queue, or the delayed queue
// when delay is positive. A job the server could not requeue is buried, which
// is a success too.
func (c *Client) Release(ctx context.Context, id uint64, priority uint32, delay time.Duration) error {
	if _, err := c.execute(ctx, proto.NewRelease(id, priority, delay)); err != nil {
		return err
	}
	c.stats.recordRelease()
	return nil
}

// Bury moves a reserved job to the buried state with a new priority.
func (c *Client) Bury(ctx context.Context, id uint64, priority uint32) error {
	if _, err := c.execute(ctx, proto.NewBury(id, priority)); err != nil {
		return err
	}
	c.stats.recordBury()
	return nil
}

// Touch extends the time-to-run of a reserved job.
func (c *Client) Touch(ctx context.Context, id uint64) error {
	if _, err := c.execute(ctx, proto.NewTouch(id)); err != nil {
		return err
	}
	c.stats.recordTouch()
	return nil
}
