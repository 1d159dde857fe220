// Package nodes tracks the health of the storage endpoints a verifier may
// fetch from, and decides the order in which they are tried.
package nodes

import (
	"sync"
	"time"
)

type health struct {
	url         string
	successes   uint64
	failures    uint64
	lastSuccess time.Time
	lastFailure time.Time
}

// Registry holds one primary endpoint and any number of replicas. State is
// in-process only and resets on restart.
type Registry struct {
	mu       sync.Mutex
	primary  string
	replicas []string
	entries  map[string]*health
}

func NewRegistry(primary string, replicas []string) *Registry {
	r := &Registry{
		primary:  primary,
		replicas: append([]string(nil), replicas...),
		entries:  map[string]*health{},
	}
	// The primary always has an entry; replicas are registered lazily on
	// first recorded outcome.
	r.entries[primary] = &health{url: primary}

	return r
}

// Candidates returns the endpoints in preference order. The primary leads
// on a cold registry; a replica that has succeeded more recently than the
// primary last failed is promoted to the front while the primary stays
// bad, which avoids hammering a known-bad primary.
func (r *Registry) Candidates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, 1+len(r.replicas))
	out = append(out, r.primary)
	out = append(out, r.replicas...)

	front := r.preferred()
	if front == r.primary {
		return out
	}

	reordered := make([]string, 0, len(out))
	reordered = append(reordered, front)
	for _, url := range out {
		if url != front {
			reordered = append(reordered, url)
		}
	}

	return reordered
}

func (r *Registry) preferred() string {
	p := r.entries[r.primary]
	primaryBad := !p.lastFailure.IsZero() && p.lastFailure.After(p.lastSuccess)
	if !primaryBad {
		return r.primary
	}

	best := r.primary
	var bestSuccess time.Time
	for _, url := range r.replicas {
		h, ok := r.entries[url]
		if !ok {
			continue
		}
		if h.lastSuccess.After(p.lastFailure) && h.lastSuccess.After(bestSuccess) {
			best = url
			bestSuccess = h.lastSuccess
		}
	}

	return best
}

// RecordOutcome updates an endpoint's health after a fetch attempt. Unknown
// endpoints are registered on the fly.
func (r *Registry) RecordOutcome(url string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.entries[url]
	if !ok {
		h = &health{url: url}
		r.entries[url] = h

		known := url == r.primary
		for _, replica := range r.replicas {
			if replica == url {
				known = true
				break
			}
		}
		if !known {
			r.replicas = append(r.replicas, url)
		}
	}

	now := time.Now()
	if success {
		h.successes++
		h.lastSuccess = now
	} else {
		h.failures++
		h.lastFailure = now
	}
}

// Snapshot reports per-endpoint success/failure counts, keyed by url.
func (r *Registry) Snapshot() map[string][2]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][2]uint64, len(r.entries))
	for url, h := range r.entries {
		out[url] = [2]uint64{h.successes, h.failures}
	}

	return out
}
