package store

import "time"

// StalenessPolicy decides when a cached snapshot is too old to serve. A zero
// lastUpdated is always stale, so an empty cache is never served.
type StalenessPolicy struct {
	TTL time.Duration
	Now func() time.Time
}

// NewStalenessPolicy builds a policy with a default clock.
func NewStalenessPolicy(ttl time.Duration) StalenessPolicy {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return StalenessPolicy{TTL: ttl, Now: time.Now}
}

// IsStale reports whether data stamped at lastUpdated has aged out. Fresh
// means strictly younger than the TTL.
func (p StalenessPolicy) IsStale(lastUpdated time.Time) bool {
	if lastUpdated.IsZero() {
		return true
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return now().Sub(lastUpdated) >= p.TTL
}
