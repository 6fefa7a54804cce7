package beanstalk

import (
	"time"

	"github.com/pior/beanstalk/proto"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards the round trips of a Client.
// *gobreaker.CircuitBreaker[*proto.Response] implements it.
type CircuitBreaker interface {
	Execute(req func() (*proto.Response, error)) (*proto.Response, error)
	State() gobreaker.State
	Counts() gobreaker.Counts
}

var _ CircuitBreaker = (*gobreaker.CircuitBreaker[*proto.Response])(nil)

// NewCircuitBreakerConfig returns a function that creates circuit breakers for servers.
// This is a helper for common use cases, assign it to Config.NewCircuitBreaker.
//
// The breaker trips when at least 3 requests were seen and 60% of them failed.
// Only transport failures and protocol anomalies count as failures, a
// CommandFailedError (NOT_FOUND, TIMED_OUT...) is a successful exchange.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) CircuitBreaker {
	return func(serverAddr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: IsBreakerSuccess,
		}
		return gobreaker.NewCircuitBreaker[*proto.Response](settings)
	}
}

// IsBreakerSuccess reports whether err leaves the connection healthy.
// Use it as gobreaker.Settings.IsSuccessful for custom breakers.
func IsBreakerSuccess(err error) bool {
	return !proto.ShouldCloseConnection(err)
}
