package proto

// CommandKind is a beanstalkd command keyword.
type CommandKind string

// Status is a beanstalkd reply keyword.
type Status string

// Protocol delimiters
const (
	// CRLF is the line terminator for the beanstalkd protocol
	CRLF = "\r\n"

	// Space separates command tokens
	Space = " "
)

// MaxBodySize bounds the size announced by a reply before the client
// allocates a buffer for it. beanstalkd caps job size with -z, which is
// far below this.
const MaxBodySize = 1 << 30

// MaxTubeNameLength is the longest tube name accepted by beanstalkd.
const MaxTubeNameLength = 200

// Producer commands
const (
	// CmdPut submits a job to the tube currently in use.
	//
	// Wire format: put <pri> <delay> <ttr> <bytes>\r\n<data>\r\n
	//
	// Replies: INSERTED <id>, BURIED <id>, EXPECTED_CRLF, JOB_TOO_BIG, DRAINING
	CmdPut CommandKind = "put"

	// CmdUse selects the tube used by subsequent put commands.
	//
	// Wire format: use <tube>\r\n
	//
	// Replies: USING <tube>
	CmdUse CommandKind = "use"
)

// Worker commands
const (
	CmdReserve            CommandKind = "reserve"              // reserve\r\n
	CmdReserveWithTimeout CommandKind = "reserve-with-timeout" // reserve-with-timeout <seconds>\r\n
	CmdDelete             CommandKind = "delete"               // delete <id>\r\n
	CmdRelease            CommandKind = "release"              // release <id> <pri> <delay>\r\n
	CmdBury               CommandKind = "bury"                 // bury <id> <pri>\r\n
	CmdTouch              CommandKind = "touch"                // touch <id>\r\n
	CmdWatch              CommandKind = "watch"                // watch <tube>\r\n
	CmdIgnore             CommandKind = "ignore"               // ignore <tube>\r\n
)

// Other commands
const (
	CmdPeek             CommandKind = "peek"
	CmdPeekReady        CommandKind = "peek-ready"
	CmdPeekDelayed      CommandKind = "peek-delayed"
	CmdPeekBuried       CommandKind = "peek-buried"
	CmdKick             CommandKind = "kick"
	CmdKickJob          CommandKind = "kick-job"
	CmdStats            CommandKind = "stats"
	CmdStatsJob         CommandKind = "stats-job"
	CmdStatsTube        CommandKind = "stats-tube"
	CmdListTubes        CommandKind = "list-tubes"
	CmdListTubeUsed     CommandKind = "list-tube-used"
	CmdListTubesWatched CommandKind = "list-tubes-watched"
	CmdPauseTube        CommandKind = "pause-tube"
	CmdQuit             CommandKind = "quit"
)

// Reply statuses
const (
	// StatusOK carries a YAML body: OK <bytes>\r\n<data>\r\n
	StatusOK Status = "OK"

	// StatusFound carries a job: FOUND <id> <bytes>\r\n<data>\r\n
	StatusFound Status = "FOUND"

	// StatusReserved carries a job: RESERVED <id> <bytes>\r\n<data>\r\n
	StatusReserved Status = "RESERVED"

	StatusNotFound     Status = "NOT_FOUND"
	StatusDeadlineSoon Status = "DEADLINE_SOON"
	StatusTimedOut     Status = "TIMED_OUT"
	StatusDeleted      Status = "DELETED"
	StatusReleased     Status = "RELEASED"
	StatusBuried       Status = "BURIED"
	StatusKicked       Status = "KICKED"
	StatusUsing        Status = "USING"
	StatusWatching     Status = "WATCHING"
	StatusTouched      Status = "TOUCHED"
	StatusInserted     Status = "INSERTED"
	StatusNotIgnored   Status = "NOT_IGNORED"
	StatusPaused       Status = "PAUSED"

	// Server errors, valid as a reply to any command
	StatusOutOfMemory    Status = "OUT_OF_MEMORY"
	StatusInternalError  Status = "INTERNAL_ERROR"
	StatusDraining       Status = "DRAINING"
	StatusBadFormat      Status = "BAD_FORMAT"
	StatusUnknownCommand Status = "UNKNOWN_COMMAND"
	StatusExpectedCRLF   Status = "EXPECTED_CRLF"
	StatusJobTooBig      Status = "JOB_TOO_BIG"
)

var knownStatuses = map[string]Status{
	string(StatusOK):             StatusOK,
	string(StatusFound):          StatusFound,
	string(StatusNotFound):       StatusNotFound,
	string(StatusReserved):       StatusReserved,
	string(StatusDeadlineSoon):   StatusDeadlineSoon,
	string(StatusTimedOut):       StatusTimedOut,
	string(StatusDeleted):        StatusDeleted,
	string(StatusReleased):       StatusReleased,
	string(StatusBuried):         StatusBuried,
	string(StatusKicked):         StatusKicked,
	string(StatusUsing):          StatusUsing,
	string(StatusWatching):       StatusWatching,
	string(StatusTouched):        StatusTouched,
	string(StatusInserted):       StatusInserted,
	string(StatusNotIgnored):     StatusNotIgnored,
	string(StatusOutOfMemory):    StatusOutOfMemory,
	string(StatusInternalError):  StatusInternalError,
	string(StatusDraining):       StatusDraining,
	string(StatusBadFormat):      StatusBadFormat,
	string(StatusUnknownCommand): StatusUnknownCommand,
	string(StatusExpectedCRLF):   StatusExpectedCRLF,
	string(StatusJobTooBig):      StatusJobTooBig,
	string(StatusPaused):         StatusPaused,
}

// ParseStatus maps a reply keyword to its Status.
// Unknown keywords are reported as an UnexpectedResponseError.
func ParseStatus(token string) (Status, error) {
	s, ok := knownStatuses[token]
	if !ok {
		return "", &UnexpectedResponseError{Message: "unknown status " + quote(token)}
	}
	return s, nil
}

func (s Status) String() string {
	return string(s)
}

func (k CommandKind) String() string {
	return string(k)
}

// HasBody reports whether replies with this status are followed by a data block.
func (s Status) HasBody() bool {
	_, ok := s.bodySizeIndex()
	return ok
}

// bodySizeIndex returns the position of the byte count among the reply params.
func (s Status) bodySizeIndex() (int, bool) {
	switch s {
	case StatusOK:
		return 0, true
	case StatusReserved, StatusFound:
		return 1, true
	default:
		return 0, false
	}
}
