// Package metrics counts session-core outcomes with lock-free atomic
// counters and renders them in Prometheus text exposition format. No
// metrics library is involved; the handler is mounted like any other
// route.
package metrics

import "sync/atomic"

// ID names one counter.
type ID uint16

const (
	LoginSuccess ID = iota
	LoginFailure
	LoginRateLimited
	TwoFactorRequired
	TwoFactorFailure
	RefreshSuccess
	RefreshFailure
	RefreshReuseDetected
	Logout
	TokenBlacklisted
	AuthenticateDenied
	AuthorizeDenied
	RegisterSuccess
	RegisterDuplicate
	PasswordChange
	PasswordResetRequest
	PasswordResetConfirm
	BackupCodeUsed
	idCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Registry holds the process-wide counters. A nil *Registry is valid and
// counts nothing.
type Registry struct {
	enabled  bool
	counters [idCount]paddedCounter
}

// NewRegistry returns an enabled registry.
func NewRegistry() *Registry {
	return &Registry{enabled: true}
}

// Inc adds one to the counter.
func (r *Registry) Inc(id ID) {
	if r == nil || !r.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&r.counters[id].value, 1)
}

// Value reads one counter.
func (r *Registry) Value(id ID) uint64 {
	if r == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&r.counters[id].value)
}

// Snapshot copies all counters at once. Values are individually atomic,
// not a consistent cut; that is fine for monitoring.
func (r *Registry) Snapshot() map[ID]uint64 {
	out := make(map[ID]uint64, int(idCount))
	if r == nil || !r.enabled {
		return out
	}
	for id := ID(0); id < idCount; id++ {
		out[id] = atomic.LoadUint64(&r.counters[id].value)
	}
	return out
}
