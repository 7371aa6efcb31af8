// Package dns annotates addresses with reverse-DNS names.
package dns

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"
)

const defaultTTL = 10 * time.Minute

type entry struct {
	name string
	exp  time.Time
}

// LookupFunc resolves an address to PTR names.
type LookupFunc func(ctx context.Context, addr string) ([]string, error)

// Resolver caches PTR lookups, failed ones included.
type Resolver struct {
	lookup LookupFunc
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]entry
}

// NewResolver uses the system resolver when lookup is nil.
func NewResolver(lookup LookupFunc) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver.LookupAddr
	}
	return &Resolver{
		lookup: lookup,
		ttl:    defaultTTL,
		now:    time.Now,
		cache:  make(map[string]entry),
	}
}

// Resolve returns the first PTR name for addr without the trailing dot, or ""
// when there is none.
func (r *Resolver) Resolve(ctx context.Context, addr string) string {
	r.mu.Lock()
	if e, ok := r.cache[addr]; ok && r.now().Before(e.exp) {
		r.mu.Unlock()
		return e.name
	}
	r.mu.Unlock()

	var name string
	names, err := r.lookup(ctx, addr)
	if err == nil && len(names) > 0 {
		name = strings.TrimSuffix(names[0], ".")
	}

	r.mu.Lock()
	r.cache[addr] = entry{name: name, exp: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return name
}
