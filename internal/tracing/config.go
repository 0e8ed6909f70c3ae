// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tracing

import (
	"github.com/canonical/care-service/internal/logging"
)

// Config selects the span exporter.
// The gRPC endpoint wins over the HTTP one; with neither set spans go to stdout.
type Config struct {
	ServiceName      string
	OtelHTTPEndpoint string
	OtelGRPCEndpoint string
	// SampleRatio is the share of root spans kept, values outside (0, 1] keep all of them
	SampleRatio float64
	Logger      logging.LoggerInterface

	Enabled bool
}

func (c *Config) service() string {
	if c.ServiceName == "" {
		return serviceName
	}
	return c.ServiceName
}

func (c *Config) ratio() float64 {
	if c.SampleRatio <= 0 || c.SampleRatio > 1 {
		return 1
	}
	return c.SampleRatio
}

func NewConfig(enabled bool, service, otelGRPCEndpoint, otelHTTPEndpoint string, sampleRatio float64, logger logging.LoggerInterface) *Config {
	c := new(Config)

	c.Enabled = enabled
	c.ServiceName = service
	c.OtelGRPCEndpoint = otelGRPCEndpoint
	c.OtelHTTPEndpoint = otelHTTPEndpoint
	c.SampleRatio = sampleRatio
	c.Logger = logger

	return c
}

func NewNoopConfig() *Config {
	return &Config{ServiceName: serviceName}
}
