// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"time"
)

const (
	EnvironmentLocal      = "local"
	EnvironmentProduction = "production"
)

// EnvSpec is the basic environment configuration setup needed for the app to start
type EnvSpec struct {
	OtelGRPCEndpoint string  `envconfig:"otel_grpc_endpoint"`
	OtelHTTPEndpoint string  `envconfig:"otel_http_endpoint"`
	TracingEnabled   bool    `envconfig:"tracing_enabled" default:"true"`
	TracingRatio     float64 `envconfig:"tracing_sample_ratio" default:"1"`

	LogLevel string `envconfig:"log_level" default:"error"`
	Debug    bool   `envconfig:"debug" default:"false"`

	Port        int    `envconfig:"port" default:"8080"`
	Environment string `envconfig:"environment" default:"local"`
	FrontendURL string `envconfig:"frontend_url" default:"http://localhost:3000"`

	CORSAllowedOrigins []string `envconfig:"cors_allowed_origins" default:"*"`
	AuthRateLimit      int      `envconfig:"auth_rate_limit" default:"10"`

	SecretKey            string        `envconfig:"secret_key" required:"true"`
	AccessTokenLifetime  time.Duration `envconfig:"access_token_lifetime" default:"60m"`
	RefreshTokenLifetime time.Duration `envconfig:"refresh_token_lifetime" default:"168h"`
	AccountTokenTimeout  time.Duration `envconfig:"account_token_timeout" default:"72h"`
	CookieDomain         string        `envconfig:"cookie_domain"`

	InvitationExpiryDays  int           `envconfig:"invitation_expiry_days" default:"7"`
	MaxInvitationResends  int           `envconfig:"max_invitation_resends" default:"3"`
	InviteEmailMaxRetries int           `envconfig:"invite_email_max_retries" default:"3"`
	InviteEmailRetryDelay time.Duration `envconfig:"invite_email_retry_delay" default:"60s"`

	DSN string `envconfig:"DSN" required:"true"`

	DBMaxConns        int32         `envconfig:"db_max_conns" default:"25"`
	DBMinConns        int32         `envconfig:"db_min_conns" default:"2"`
	DBMaxConnLifetime time.Duration `envconfig:"db_max_conn_lifetime" default:"1h"`
	DBMaxConnIdleTime time.Duration `envconfig:"db_max_conn_idle_time" default:"30m"`

	RedisAddr     string `envconfig:"redis_addr" default:"localhost:6379"`
	RedisPassword string `envconfig:"redis_password"`
	RedisDB       int    `envconfig:"redis_db" default:"0"`

	NatsURL string `envconfig:"nats_url" default:"nats://localhost:4222"`

	SMTPHost     string `envconfig:"smtp_host" default:"localhost"`
	SMTPPort     int    `envconfig:"smtp_port" default:"587"`
	SMTPUsername string `envconfig:"smtp_username"`
	SMTPPassword string `envconfig:"smtp_password"`
	EmailFrom    string `envconfig:"email_from" default:"no-reply@localhost"`

	S3Endpoint       string        `envconfig:"s3_endpoint"`
	S3Region         string        `envconfig:"s3_region" default:"us-east-1"`
	S3AccessKey      string        `envconfig:"s3_access_key"`
	S3SecretKey      string        `envconfig:"s3_secret_key"`
	S3Bucket         string        `envconfig:"s3_bucket" default:"care-media"`
	S3ForcePathStyle bool          `envconfig:"s3_force_path_style" default:"true"`
	S3PresignTTL     time.Duration `envconfig:"s3_presign_ttl" default:"15m"`
}

// InvitationLifetime converts the configured expiry in days to a duration
func (e *EnvSpec) InvitationLifetime() time.Duration {
	return time.Duration(e.InvitationExpiryDays) * 24 * time.Hour
}

// SecureCookies reports whether auth cookies must carry the Secure flag
func (e *EnvSpec) SecureCookies() bool {
	return e.Environment != EnvironmentLocal
}
