package testevents

import "time"

// HTTP status code constants.
const (
	StatusOK       = 200
	StatusAccepted = 202
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultSettleDelay   = 2 * time.Second
	PercentageMultiplier = 100

	// engineFeedCapacity is the number of recent events the daemon keeps.
	engineFeedCapacity = 50
)
