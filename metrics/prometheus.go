package metrics

import (
	"net/http"
	"strconv"
	"strings"
)

type counterDef struct {
	id   ID
	name string
	help string
}

var counterDefs = []counterDef{
	{LoginSuccess, "lexcrm_login_success_total", "Successful logins."},
	{LoginFailure, "lexcrm_login_failure_total", "Failed logins (bad credentials or inactive account)."},
	{LoginRateLimited, "lexcrm_login_rate_limited_total", "Logins rejected by the rate limiter."},
	{TwoFactorRequired, "lexcrm_two_factor_required_total", "Logins paused pending a second factor."},
	{TwoFactorFailure, "lexcrm_two_factor_failure_total", "Rejected two-factor codes."},
	{RefreshSuccess, "lexcrm_refresh_success_total", "Successful refresh-token rotations."},
	{RefreshFailure, "lexcrm_refresh_failure_total", "Failed refresh attempts."},
	{RefreshReuseDetected, "lexcrm_refresh_reuse_detected_total", "Refresh attempts with an already-rotated token."},
	{Logout, "lexcrm_logout_total", "Logouts."},
	{TokenBlacklisted, "lexcrm_token_blacklisted_total", "Access tokens blacklisted."},
	{AuthenticateDenied, "lexcrm_authenticate_denied_total", "Bearer tokens rejected by the authentication gate."},
	{AuthorizeDenied, "lexcrm_authorize_denied_total", "Permission checks denied."},
	{RegisterSuccess, "lexcrm_register_success_total", "Accounts created."},
	{RegisterDuplicate, "lexcrm_register_duplicate_total", "Registrations rejected for duplicate identity."},
	{PasswordChange, "lexcrm_password_change_total", "Password changes."},
	{PasswordResetRequest, "lexcrm_password_reset_request_total", "Password reset requests."},
	{PasswordResetConfirm, "lexcrm_password_reset_confirm_total", "Password resets completed."},
	{BackupCodeUsed, "lexcrm_backup_code_used_total", "Backup codes consumed as a second factor."},
}

// AuditDropSource reports shed audit events for the exporter.
type AuditDropSource interface {
	Dropped() uint64
}

// Exporter renders a Registry in Prometheus text exposition format.
type Exporter struct {
	registry *Registry
	audit    AuditDropSource
}

// NewExporter wires the registry and an optional audit drop source.
func NewExporter(registry *Registry, audit AuditDropSource) *Exporter {
	return &Exporter{registry: registry, audit: audit}
}

// Handler serves the exposition at GET time.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render produces the full exposition text.
func (e *Exporter) Render() string {
	if e == nil {
		return ""
	}
	snapshot := e.registry.Snapshot()

	var b strings.Builder
	b.Grow(4096)
	for _, def := range counterDefs {
		writeCounter(&b, def.name, def.help, snapshot[def.id])
	}
	if e.audit != nil {
		writeCounter(&b, "lexcrm_audit_dropped_total",
			"Audit events shed under dispatcher backpressure.", e.audit.Dropped())
	}
	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(help)
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}
