package core

// Services registered by the runtime before any module is loaded.
const (
	ServiceCredentials = "tgflow.credentials" // client.Credentials
	ServiceClients     = "tgflow.clients"     // client.Factory
	ServiceAuth        = "tgflow.auth"        // *auth.Machine
	ServiceRunner      = "tgflow.runner"      // *command.Runner
	ServiceSessions    = "tgflow.sessions"    // sessionstore.Store
	ServiceMetrics     = "telemetry.metrics"  // *telemetry.Metrics
	ServiceAudit       = "security.audit"     // *security.AuditLogger
	ServiceRateLimiter = "security.ratelimiter"
	ServiceRedactor    = "security.redactor"
	ServiceConfigPath  = "config.path"
)
