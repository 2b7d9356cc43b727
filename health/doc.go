// Package health reports the operational state of riskvault processes.
//
// A check returns a Report. Combine folds several reports into one with
// this priority:
//
//   - Unhealthy: if any report is unhealthy
//   - Degraded: if any report is degraded and none is unhealthy
//   - Healthy: otherwise
//
// The worker serves the combined report of its checks on /healthz.
//
//	report := health.Combine(
//	    health.RunningCheck("worker", running),
//	    health.QueueCheck(ctx, client, 10000),
//	)
//	if report.IsUnhealthy() {
//	    log.Printf("unhealthy: %s %+v", report.Message, report.Details)
//	}
package health
