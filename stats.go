package beanstalk

import (
	"sync/atomic"
)

// ClientStats contains statistics about client operations.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: Puts, Reserves, Deletes, Releases, Buries, Touches, Kicks
//   - Counters: CommandFailures (expected failures), Errors (connection and protocol)
//   - Counters: Connects
type ClientStats struct {
	Puts            uint64 // Jobs inserted (INSERTED)
	Reserves        uint64 // Jobs reserved
	Deletes         uint64 // Jobs deleted
	Releases        uint64 // Jobs released (RELEASED or BURIED)
	Buries          uint64 // Jobs buried
	Touches         uint64 // Jobs touched
	Kicks           uint64 // Jobs kicked, per job
	CommandFailures uint64 // Replies in the command's expected failure set
	Errors          uint64 // Connection errors and unexpected responses
	Connects        uint64 // Successful connects
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - client updates its own stats.
type clientStatsCollector struct {
	stats ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{}
}

func (c *clientStatsCollector) recordPut()     { atomic.AddUint64(&c.stats.Puts, 1) }
func (c *clientStatsCollector) recordReserve() { atomic.AddUint64(&c.stats.Reserves, 1) }
func (c *clientStatsCollector) recordDelete()  { atomic.AddUint64(&c.stats.Deletes, 1) }
func (c *clientStatsCollector) recordRelease() { atomic.AddUint64(&c.stats.Releases, 1) }
func (c *clientStatsCollector) recordBury()    { atomic.AddUint64(&c.stats.Buries, 1) }
func (c *clientStatsCollector) recordTouch()   { atomic.AddUint64(&c.stats.Touches, 1) }
func (c *clientStatsCollector) recordConnect() { atomic.AddUint64(&c.stats.Connects, 1) }

func (c *clientStatsCollector) recordKick(n uint64) {
	atomic.AddUint64(&c.stats.Kicks, n)
}

func (c *clientStatsCollector) recordCommandFailure() {
	atomic.AddUint64(&c.stats.CommandFailures, 1)
}

func (c *clientStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Puts:            atomic.LoadUint64(&c.stats.Puts),
		Reserves:        atomic.LoadUint64(&c.stats.Reserves),
		Deletes:         atomic.LoadUint64(&c.stats.Deletes),
		Releases:        atomic.LoadUint64(&c.stats.Releases),
		Buries:          atomic.LoadUint64(&c.stats.Buries),
		Touches:         atomic.LoadUint64(&c.stats.Touches),
		Kicks:           atomic.LoadUint64(&c.stats.Kicks),
		CommandFailures: atomic.LoadUint64(&c.stats.CommandFailures),
		Errors:          atomic.LoadUint64(&c.stats.Errors),
		Connects:        atomic.LoadUint64(&c.stats.Connects),
	}
}
