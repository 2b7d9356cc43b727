// Package riskvault turns security event logs into a prioritized risk
// register.
//
// The pipeline is a single synchronous pass:
//
//	records -> event.Table -> detectors -> findings -> scorer -> classifier -> register
//
// Detectors flag credential brute forcing, port scanning and activity from
// watchlisted sources. Each finding is scored on Severity, Probability and
// Detectability (higher is worse on every axis), its Risk Priority Number is
// RPN = S × P × D, and the RPN is classified as Critical, Moderate or Low.
//
// # Getting Started
//
//	cfg, err := config.Load("riskvault.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := riskvault.Analyze(ctx, records, cfg,
//		riskvault.WithLogger(logger),
//	)
//	if err != nil {
//		log.Fatal(err) // invalid configuration; nothing ran
//	}
//	for _, e := range res.Register.Entries {
//		fmt.Println(e.Rank, e.Level, e.Score, e.Description)
//	}
//
// # Errors
//
// Malformed records (no timestamp or event type) are left out and reported
// in Result.Rejected; they never fail a run. An invalid configuration fails
// with an error matching ErrInvalidConfiguration before any record is
// touched. An input with no usable records yields an empty register.
//
// # Observability
//
// WithTracer and WithMeter attach OpenTelemetry spans per stage and
// counters for analysed records, findings and entries per level.
//
// # Packages
//
//   - event: log records, event types and aliases, the event table
//   - detect: brute-force, port-scan and watchlist detectors
//   - score: scales, scoring policies and the scorer
//   - risk: levels, thresholds and the classifier
//   - register: the register builder, summaries and filters
//   - config: the configuration bundle and its etcd source
//   - ingest, report: CSV/JSON input readers and register exports
//   - queue, worker, serve: Redis batch worker and gRPC server
package riskvault
