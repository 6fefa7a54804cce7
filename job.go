package beanstalk

import (
	"context"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/pior/beanstalk/proto"
)

// Job is a handle on a job returned by Reserve, ReserveWithTimeout or a Peek
// operation. It holds the job id and body and acts through the Client that
// produced it, so it shares the Client's concurrency rules and must not be
// used after the Client is closed.
//
// A reserved job becomes not reserved once deleted, released or buried.
// Release, Bury and Touch on a job that is not reserved do nothing and
// return nil.
type Job struct {
	id       uint64
	body     []byte
	reserved bool
	client   *Client
}

// ID returns the server-assigned job id.
func (j *Job) ID() uint64 {
	return j.id
}

// Body returns the job data.
func (j *Job) Body() []byte {
	return j.body
}

// BodyString returns the job data as a string.
// Fails with an UnexpectedResponseError if the data is not valid UTF-8.
func (j *Job) BodyString() (string, error) {
	if !utf8.Valid(j.body) {
		return "", &proto.UnexpectedResponseError{Message: "job " + strconv.FormatUint(j.id, 10) + " body is not valid UTF-8"}
	}
	return string(j.body), nil
}

// Reserved reports whether the job is still reserved by this client.
func (j *Job) Reserved() bool {
	return j.reserved
}

func (j *Job) String() string {
	state := "not reserved"
	if j.reserved {
		state = "reserved"
	}
	return "job " + strconv.FormatUint(j.id, 10) + " (" + state + ", " + strconv.Itoa(len(j.body)) + " bytes)"
}

// Delete removes the job, whether reserved or not.
// The job is no longer reserved once the server confirmed the deletion.
func (j *Job) Delete(ctx context.Context) error {
	if err := j.client.Delete(ctx, j.id); err != nil {
		return err
	}
	j.reserved = false
	return nil
}

// Release puts the job back into the ready queue with the given priority and delay.
func (j *Job) Release(ctx context.Context, priority uint32, delay time.Duration) error {
	if !j.reserved {
		return nil
	}
	if err := j.client.Release(ctx, j.id, priority, delay); err != nil {
		return err
	}
	j.reserved = false
	return nil
}

// ReleaseDefault releases the job keeping its current priority, with the
// configured default delay.
func (j *Job) ReleaseDefault(ctx context.Context) error {
	if !j.reserved {
		return nil
	}
	return j.Release(ctx, j.priority(ctx), j.client.config.DefaultDelay)
}

// Bury buries the job with the given priority.
func (j *Job) Bury(ctx context.Context, priority uint32) error {
	if !j.reserved {
		return nil
	}
	if err := j.client.Bury(ctx, j.id, priority); err != nil {
		return err
	}
	j.reserved = false
	return nil
}

// BuryDefault buries the job keeping its current priority.
func (j *Job) BuryDefault(ctx context.Context) error {
	if !j.reserved {
		return nil
	}
	return j.Bury(ctx, j.priority(ctx))
}

// Touch extends the time-to-run of the reservation.
func (j *Job) Touch(ctx context.Context) error {
	if !j.reserved {
		return nil
	}
	return j.client.Touch(ctx, j.id)
}

// Kick moves the job back to the ready queue if it is buried or delayed.
func (j *Job) Kick(ctx context.Context) error {
	return j.client.KickJob(ctx, j.id)
}

// Stats returns the job statistics.
func (j *Job) Stats(ctx context.Context) (map[string]string, error) {
	return j.client.StatsJob(ctx, j.id)
}

// priority returns the job priority from its statistics, or the configured
// default priority when it cannot be obtained.
func (j *Job) priority(ctx context.Context) uint32 {
	stats, err := j.Stats(ctx)
	if err != nil {
		return j.client.config.DefaultPriority
	}

	pri, err := strconv.ParseUint(stats["pri"], 10, 32)
	if err != nil {
		return j.client.config.DefaultPriority
	}
	return uint32(pri)
}
