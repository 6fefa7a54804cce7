package proto

import (
	"slices"
	"strconv"
	"time"
)

// Command represents a beanstalkd request.
// It carries the wire elements and the statuses that count as success (OK)
// and as expected domain failure (Errors) for this particular command.
// Any other status is a protocol anomaly.
type Command struct {
	// Kind is the command keyword
	Kind CommandKind

	// Args are the space separated arguments, in wire order.
	// They must not contain whitespace.
	Args []string

	// Body is the job data (put only). Its length is appended to the
	// command line. nil means the command has no data block.
	Body []byte

	OK     []Status
	Errors []Status
}

// IsOK reports whether status is a success outcome for the command.
func (c *Command) IsOK(status Status) bool {
	return slices.Contains(c.OK, status)
}

// IsExpectedError reports whether status is an expected failure for the command.
func (c *Command) IsExpectedError(status Status) bool {
	return slices.Contains(c.Errors, status)
}

// Build returns the wire encoding of the command.
func (c *Command) Build() []byte {
	return AppendCommand(nil, c)
}

func newCommand(kind CommandKind, args []string, ok []Status, errs ...Status) *Command {
	return &Command{Kind: kind, Args: args, OK: ok, Errors: errs}
}

// FormatSeconds encodes d as whole seconds. Negative durations encode as 0.
func FormatSeconds(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return strconv.FormatInt(int64(d/time.Second), 10)
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func formatPriority(pri uint32) string {
	return strconv.FormatUint(uint64(pri), 10)
}

// NewPut builds a put command. A nil body is sent as an empty job.
func NewPut(body []byte, priority uint32, delay, ttr time.Duration) *Command {
	if body == nil {
		body = []byte{}
	}
	cmd := newCommand(CmdPut,
		[]string{formatPriority(priority), FormatSeconds(delay), FormatSeconds(ttr)},
		[]Status{StatusInserted},
		StatusJobTooBig, StatusBuried, StatusDraining,
	)
	cmd.Body = body
	return cmd
}

// NewReserve builds a reserve command that waits indefinitely.
func NewReserve() *Command {
	return newCommand(CmdReserve, nil, []Status{StatusReserved}, StatusTimedOut, StatusDeadlineSoon)
}

// NewReserveWithTimeout builds a reserve-with-timeout command.
func NewReserveWithTimeout(timeout time.Duration) *Command {
	return newCommand(CmdReserveWithTimeout, []string{FormatSeconds(timeout)},
		[]Status{StatusReserved}, StatusTimedOut, StatusDeadlineSoon)
}

func NewKick(bound uint32) *Command {
	return newCommand(CmdKick, []string{strconv.FormatUint(uint64(bound), 10)}, []Status{StatusKicked})
}

func NewKickJob(id uint64) *Command {
	return newCommand(CmdKickJob, []string{formatID(id)}, []Status{StatusKicked}, StatusNotFound)
}

func NewPeek(id uint64) *Command {
	return newPeek(CmdPeek, []string{formatID(id)})
}

func NewPeekReady() *Command {
	return newPeek(CmdPeekReady, nil)
}

func NewPeekDelayed() *Command {
	return newPeek(CmdPeekDelayed, nil)
}

func NewPeekBuried() *Command {
	return newPeek(CmdPeekBuried, nil)
}

func newPeek(kind CommandKind, args []string) *Command {
	return newCommand(kind, args, []Status{StatusFound}, StatusNotFound)
}

func NewListTubes() *Command {
	return newCommand(CmdListTubes, nil, []Status{StatusOK})
}

func NewListTubeUsed() *Command {
	return newCommand(CmdListTubeUsed, nil, []Status{StatusUsing})
}

func NewListTubesWatched() *Command {
	return newCommand(CmdListTubesWatched, nil, []Status{StatusOK})
}

func NewUse(tube string) *Command {
	return newCommand(CmdUse, []string{tube}, []Status{StatusUsing})
}

func NewWatch(tube string) *Command {
	return newCommand(CmdWatch, []string{tube}, []Status{StatusWatching})
}

func NewIgnore(tube string) *Command {
	return newCommand(CmdIgnore, []string{tube}, []Status{StatusWatching}, StatusNotIgnored)
}

func NewStats() *Command {
	return newCommand(CmdStats, nil, []Status{StatusOK})
}

func NewStatsJob(id uint64) *Command {
	return newCommand(CmdStatsJob, []string{formatID(id)}, []Status{StatusOK}, StatusNotFound)
}

func NewStatsTube(tube string) *Command {
	return newCommand(CmdStatsTube, []string{tube}, []Status{StatusOK}, StatusNotFound)
}

// NewPauseTube builds a pause-tube command delaying new reservations in tube.
func NewPauseTube(tube string, delay time.Duration) *Command {
	return newCommand(CmdPauseTube, []string{tube, FormatSeconds(delay)}, []Status{StatusPaused}, StatusNotFound)
}

func NewDelete(id uint64) *Command {
	return newCommand(CmdDelete, []string{formatID(id)}, []Status{StatusDeleted}, StatusNotFound)
}

// NewRelease builds a release command. A job released past the server's
// capacity is buried instead, so BURIED is a success too.
func NewRelease(id uint64, priority uint32, delay time.Duration) *Command {
	return newCommand(CmdRelease,
		[]string{formatID(id), formatPriority(priority), FormatSeconds(delay)},
		[]Status{StatusReleased, StatusBuried},
		StatusNotFound,
	)
}

func NewBury(id uint64, priority uint32) *Command {
	return newCommand(CmdBury, []string{formatID(id), formatPriority(priority)}, []Status{StatusBuried}, StatusNotFound)
}

func NewTouch(id uint64) *Command {
	return newCommand(CmdTouch, []string{formatID(id)}, []Status{StatusTouched}, StatusNotFound)
}

// NewQuit builds a quit command. The server closes the connection without replying.
func NewQuit() *Command {
	return newCommand(CmdQuit, nil, nil)
}
