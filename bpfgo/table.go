package bpfgo

import (
	"context"
	"errors"
	"iter"
)

var (
	// ErrUnavailable means a required table is not published under the pin directory.
	ErrUnavailable = errors.New("table unavailable")
	// ErrKeyAbsent means a key had no value at lookup time.
	ErrKeyAbsent = errors.New("key absent")
)

// Table is a read-only handle on one counter table. Keys and values are the
// producer's raw bytes; layout decoding lives in layout.go.
//
// FirstKey and NextKey return a nil key once the table is exhausted. NextKey
// on a key that has since been deleted may restart from the beginning, the
// way kernel hash maps do.
type Table interface {
	Name() string
	Lookup(key []byte) ([]byte, error)
	FirstKey() ([]byte, error)
	NextKey(key []byte) ([]byte, error)
	Close() error
}

// Opener resolves table names against a base location.
type Opener interface {
	Open(name string) (Table, error)
}

// maxRestarts bounds how often one walk may fall back into keys it already
// visited. Each deletion racing the walk can send the cursor back to the
// first key.
const maxRestarts = 32

// Cursor walks a Table with the first/next protocol. The walk is weakly
// consistent: entries deleted between key fetch and lookup are skipped and
// counted once each, keys seen again after a cursor restart are yielded once,
// and the walk stops once Limit distinct entries were yielded.
type Cursor struct {
	Table Table
	Limit int

	// Skipped counts distinct keys that vanished before their lookup.
	Skipped int
	// Truncated is set when Limit entries were yielded and more remained.
	Truncated bool
	// Restarts counts how often the walk fell back into visited keys. A walk
	// that exceeds maxRestarts ends early without setting Truncated.
	Restarts int

	err error
}

// Err reports the first read failure that ended the walk early.
func (c *Cursor) Err() error {
	return c.err
}

// Unstable reports whether the walk gave up after too many restarts.
func (c *Cursor) Unstable() bool {
	return c.Restarts > maxRestarts
}

// All yields key/value pairs until the table is exhausted, the limit is hit,
// ctx is cancelled, the restart budget is spent or a read fails. Only newly
// seen keys count toward the limit.
func (c *Cursor) All(ctx context.Context) iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		seen := make(map[string]struct{})
		vanished := make(map[string]struct{})

		// run is the length of the current stretch of already visited keys.
		// A stretch longer than the number of distinct keys visited means
		// the cursor is cycling, which counts as another restart.
		run := 0

		key, err := c.Table.FirstKey()
		for {
			if err != nil {
				c.err = err
				return
			}
			if key == nil {
				return
			}
			if err := ctx.Err(); err != nil {
				c.err = err
				return
			}

			k := string(key)
			_, isSeen := seen[k]
			_, isVanished := vanished[k]
			if isSeen || isVanished {
				if run == 0 || run > len(seen)+len(vanished) {
					c.Restarts++
					run = 0
					if c.Unstable() {
						return
					}
				}
				run++
			} else {
				run = 0
			}
			if isSeen {
				key, err = c.Table.NextKey(key)
				continue
			}
			if len(seen) >= c.Limit {
				c.Truncated = true
				return
			}

			val, lerr := c.Table.Lookup(key)
			switch {
			case errors.Is(lerr, ErrKeyAbsent):
				if !isVanished {
					vanished[k] = struct{}{}
					c.Skipped++
				}
			case lerr != nil:
				c.err = lerr
				return
			default:
				delete(vanished, k)
				seen[k] = struct{}{}
				if !yield(key, val) {
					return
				}
			}

			key, err = c.Table.NextKey(key)
		}
	}
}
