package feedgen

import "time"

// Counters reported by a Pusher.
const (
	// StatRecords counts documents added to a feed.
	StatRecords = "feed.records"
	// StatFailed counts documents which could not be read, parsed or encoded.
	StatFailed = "feed.failed"
	// StatSent counts feeds handed to the sink.
	StatSent = "feed.sent"
	// StatBytes counts the bytes of sent feeds.
	StatBytes = "feed.bytes"
)

// Statter is the interface that stats collectors must implement to get stats
// out of a Pusher.
type Statter interface {
	Count(name string, value int64, rate float64, tags ...string)
	Gauge(name string, value float64, rate float64, tags ...string)
	Histogram(name string, value float64, rate float64, tags ...string)
	Set(name string, value string, rate float64, tags ...string)
	Timing(name string, value time.Duration, rate float64, tags ...string)
}

// NopStatter does nothing.
type NopStatter struct{}

// Count does nothing.
func (NopStatter) Count(name string, value int64, rate float64, tags ...string) {}

// Gauge does nothing.
func (NopStatter) Gauge(name string, value float64, rate float64, tags ...string) {}

// Histogram does nothing.
func (NopStatter) Histogram(name string, value float64, rate float64, tags ...string) {}

// Set does nothing.
func (NopStatter) Set(name string, value string, rate float64, tags ...string) {}

// Timing does nothing.
func (NopStatter) Timing(name string, value time.Duration, rate float64, tags ...string) {}

// Logger is the interface that loggers must implement to get feed logs.
// Printf is used for problems with a document that do not stop it from being
// sent; Debugf traces every property written. The loggers of
// github.com/pilosa/pilosa/logger satisfy it.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

// NopLogger logs nothing.
type NopLogger struct{}

// Printf does nothing.
func (NopLogger) Printf(format string, v ...interface{}) {}

// Debugf does nothing.
func (NopLogger) Debugf(format string, v ...interface{}) {}
