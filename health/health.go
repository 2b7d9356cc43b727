package health

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout bounds checks that are given a context without a deadline.
const DefaultTimeout = 5 * time.Second

// QueueLen is the part of a queue client a QueueCheck needs.
type QueueLen interface {
	Len(ctx context.Context) (int64, error)
}

// RunningCheck reports whether a named loop is running.
func RunningCheck(name string, running bool) Report {
	if !running {
		return Unhealthy(fmt.Sprintf("%s is not running", name), map[string]any{"component": name})
	}
	return Healthy(fmt.Sprintf("%s is running", name))
}

// QueueCheck reads the queue depth. An unreachable queue is unhealthy; a
// depth above maxBacklog is degraded. A maxBacklog of zero or less turns
// the backlog check off.
func QueueCheck(ctx context.Context, q QueueLen, maxBacklog int64) Report {
	if q == nil {
		return Unhealthy("queue client is not configured", nil)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	depth, err := q.Len(ctx)
	if err != nil {
		return Unhealthy("queue is unreachable", map[string]any{"error": err.Error()})
	}
	if maxBacklog > 0 && depth > maxBacklog {
		return Degraded(
			fmt.Sprintf("queue backlog %d exceeds %d", depth, maxBacklog),
			map[string]any{"depth": depth, "max_backlog": maxBacklog},
		)
	}
	return Healthy(fmt.Sprintf("queue depth %d", depth))
}

// Combine aggregates reports into one. With no reports it is healthy.
func Combine(reports ...Report) Report {
	if len(reports) == 0 {
		return Healthy("no checks provided")
	}

	var unhealthy, degraded []string
	var healthyCount int

	for _, r := range reports {
		msg := r.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch r.Status {
		case StatusUnhealthy:
			unhealthy = append(unhealthy, msg)
		case StatusDegraded:
			degraded = append(degraded, msg)
		case StatusHealthy:
			healthyCount++
		}
	}

	if len(unhealthy) > 0 {
		return Unhealthy(
			fmt.Sprintf("%d check(s) failed", len(unhealthy)),
			map[string]any{
				"total":         len(reports),
				"unhealthy":     len(unhealthy),
				"degraded":      len(degraded),
				"healthy":       healthyCount,
				"failed_checks": unhealthy,
			},
		)
	}
	if len(degraded) > 0 {
		return Degraded(
			fmt.Sprintf("%d check(s) degraded", len(degraded)),
			map[string]any{
				"total":           len(reports),
				"degraded":        len(degraded),
				"healthy":         healthyCount,
				"degraded_checks": degraded,
			},
		)
	}
	return Healthy(fmt.Sprintf("all %d check(s) passed", len(reports)))
}
