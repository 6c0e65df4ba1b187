// Package audit buffers and delivers security-relevant events emitted by
// the session core. Delivery is asynchronous and never blocks the
// credential path; under backpressure events are counted and dropped
// rather than stalling a login.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Actions recorded by the session core.
const (
	ActionRegister        = "account.register"
	ActionLogin           = "session.login"
	ActionRefresh         = "session.refresh"
	ActionLogout          = "session.logout"
	ActionPasswordChange  = "account.password_change"
	ActionPasswordReset   = "account.password_reset"
	ActionEmailVerified   = "account.email_verified"
	ActionTwoFactorSetup  = "account.2fa_setup"
	ActionTwoFactorEnable = "account.2fa_enable"
	ActionTwoFactorOff    = "account.2fa_disable"
)

// Event is one audit record. Email is included only for actions where the
// account is not yet resolvable by ID (failed logins).
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	AccountID string            `json:"account_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives delivered events.
type Sink interface {
	Deliver(ctx context.Context, event Event)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Deliver(context.Context, Event) {}

// ChannelSink hands events to a consumer through a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Deliver(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.events }

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Deliver(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte{'\n'})
}
