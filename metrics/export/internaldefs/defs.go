// Package internaldefs holds the shared metric name table consumed by
// the exporter packages. It exists so the Prometheus and OpenTelemetry
// exporters render identical metric names from one definition.
package internaldefs

import (
	authcore "github.com/pagespace/authcore"
)

// CounterDef binds one engine counter to its exported name.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its exported name.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful credential logins."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed credential logins."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Logins denied by the throttle."},
	{ID: authcore.MetricAccountLocked, Name: "authcore_account_locked_total", Help: "Lockouts triggered by the failed-attempt guard."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Issued sessions."},
	{ID: authcore.MetricSessionValidated, Name: "authcore_session_validated_total", Help: "Successful session validations."},
	{ID: authcore.MetricSessionRejected, Name: "authcore_session_rejected_total", Help: "Soft-failed session validations."},
	{ID: authcore.MetricSessionRevoked, Name: "authcore_session_revoked_total", Help: "Single-session revocations."},
	{ID: authcore.MetricLogoutAll, Name: "authcore_logout_all_total", Help: "Bulk user-session revocations."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "First-use refresh redemptions."},
	{ID: authcore.MetricRefreshGraceReplay, Name: "authcore_refresh_grace_replay_total", Help: "Idempotent grace-window refresh replays."},
	{ID: authcore.MetricRefreshRateLimited, Name: "authcore_refresh_rate_limited_total", Help: "Redemptions denied by the throttle."},
	{ID: authcore.MetricTokenReuseBlocked, Name: "authcore_token_reuse_blocked_total", Help: "Redemptions of consumed tokens outside the grace window."},
	{ID: authcore.MetricRotationSuccess, Name: "authcore_rotation_success_total", Help: "First-use device-token rotations."},
	{ID: authcore.MetricRotationGraceReplay, Name: "authcore_rotation_grace_replay_total", Help: "Grace-window rotation replays."},
	{ID: authcore.MetricDevicePolicyRejected, Name: "authcore_device_policy_rejected_total", Help: "Device tokens invalidated by a tokenVersion bump."},
	{ID: authcore.MetricDeviceTokenEnsured, Name: "authcore_device_token_ensured_total", Help: "Validate-or-create device token outcomes."},
	{ID: authcore.MetricAuditLogged, Name: "authcore_audit_logged_total", Help: "Events appended to the audit chain."},
	{ID: authcore.MetricAuditFailed, Name: "authcore_audit_failed_total", Help: "Swallowed audit write failures."},
	{ID: authcore.MetricOAuthVerified, Name: "authcore_oauth_verified_total", Help: "Accepted provider ID tokens."},
	{ID: authcore.MetricOAuthRejected, Name: "authcore_oauth_rejected_total", Help: "Rejected provider ID tokens."},
}

// HistogramDefs lists every exported histogram in render order.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricValidateLatency, Name: "authcore_validate_latency_seconds", Help: "Session validation latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are metric-name-safe spellings of the bounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative counts
// both exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
