// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package monitoring

// MonitorInterface records the care service metrics.
// Tags are plain label maps, missing labels are recorded as empty strings.
type MonitorInterface interface {
	GetService() string
	// SetResponseTimeMetric observes an HTTP latency, tagged by route and status
	SetResponseTimeMetric(map[string]string, float64) error
	// SetDependencyAvailability flags a backing component (postgres, redis, nats, smtp) as up (1) or down (0)
	SetDependencyAvailability(map[string]string, float64) error
	// IncNotificationCounter counts a processed email task, tagged by kind and outcome
	IncNotificationCounter(map[string]string) error
}
