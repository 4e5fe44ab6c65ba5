// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit spaces outbound language-model requests. Stages take a
// Limiter so tests can substitute one that does not sleep.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between requests when none is configured.
const DefaultInterval = time.Second

// Limiter blocks until the next request may be sent.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Every returns a token bucket of size one that admits one event per
// interval. The bucket starts full, so the first Wait returns immediately.
// A negative interval disables limiting; zero uses DefaultInterval.
func Every(interval time.Duration) *rate.Limiter {
	switch {
	case interval < 0:
		return rate.NewLimiter(rate.Inf, 1)
	case interval == 0:
		interval = DefaultInterval
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// None admits every event without waiting. It still honours cancellation.
var None Limiter = noLimit{}

type noLimit struct{}

func (noLimit) Wait(ctx context.Context) error {
	return ctx.Err()
}
