package gatewayclient

import (
	"time"

	"github.com/beefsack/go-rate"
)

type IdentifyRateLimiter interface {
	Try() (bool, time.Duration)
}

type CommandRateLimiter interface {
	Try() (bool, time.Duration)
}

func NewCommandRateLimiter() CommandRateLimiter {
	burstSize, duration := 120, 60*time.Second
	burstSize -= 4 // reserve 4 calls for heartbeat
	burstSize -= 1 // reserve one call, in case discord requests a heartbeat

	return rate.New(burstSize, duration)
}

func NewLocalIdentifyRateLimiter() IdentifyRateLimiter {
	return rate.New(1, 5*time.Second)
}

type unlimited struct{}

func (unlimited) Try() (bool, time.Duration) {
	return true, 0
}

// NewUnlimitedRateLimiter never rejects a call.
func NewUnlimitedRateLimiter() CommandRateLimiter {
	return unlimited{}
}
