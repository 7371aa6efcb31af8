// Package rate turns cumulative counters into per-second rates.
package rate

import (
	"log/slog"
	"time"
)

type baseline struct {
	value uint64
	at    time.Time
	rate  float64
}

// Engine keeps one baseline per scope. It is owned by a single goroutine.
type Engine struct {
	scopes map[string]*baseline
	log    *slog.Logger
	resets int
}

func New(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{scopes: make(map[string]*baseline), log: log}
}

// Rate returns the per-second increase of value since the previous call for
// scope. The first call for a scope returns 0. A call that is not later than
// the previous one returns the previous rate. A counter that went backwards
// is taken to have restarted from zero.
func (e *Engine) Rate(scope string, value uint64, at time.Time) float64 {
	b, ok := e.scopes[scope]
	if !ok {
		e.scopes[scope] = &baseline{value: value, at: at}
		return 0
	}

	elapsed := at.Sub(b.at)
	if elapsed <= 0 {
		b.value, b.at = value, at
		return b.rate
	}

	delta := e.delta(scope, b.value, value)
	b.rate = float64(delta) / elapsed.Seconds()
	b.value, b.at = value, at
	return b.rate
}

// Delta is Rate without the division. ok is false on the first call for a
// scope and when no time has passed.
func (e *Engine) Delta(scope string, value uint64, at time.Time) (delta uint64, elapsed time.Duration, ok bool) {
	b, found := e.scopes[scope]
	if !found {
		e.scopes[scope] = &baseline{value: value, at: at}
		return 0, 0, false
	}

	elapsed = at.Sub(b.at)
	if elapsed <= 0 {
		b.value, b.at = value, at
		return 0, 0, false
	}

	delta = e.delta(scope, b.value, value)
	b.rate = float64(delta) / elapsed.Seconds()
	b.value, b.at = value, at
	return delta, elapsed, true
}

func (e *Engine) delta(scope string, prev, cur uint64) uint64 {
	if cur < prev {
		e.resets++
		e.log.Debug("counter went backwards, assuming restart", "scope", scope, "previous", prev, "current", cur)
		return cur
	}
	return cur - prev
}

// Resets counts discontinuities seen across all scopes.
func (e *Engine) Resets() int {
	return e.resets
}

// Forget drops the baseline for scope so the next call is a cold start.
func (e *Engine) Forget(scope string) {
	delete(e.scopes, scope)
}
