// Package worker runs the analysis pipeline on batches taken from the Redis
// queue.
//
// A Worker pops batches with a configurable number of goroutines, analyses
// each one and publishes a report on the batch's channel. Batch IDs seen
// recently are remembered in an LRU cache so a redelivered batch is not
// analysed twice. Publishing is retried with exponential backoff; a report
// that still cannot be published is dropped from the cache so a redelivery
// is analysed again. Progress is exported as Prometheus metrics, served with
// a JSON health report by Handler.
//
// Run wires all of this from a configuration file section and blocks until
// SIGINT or SIGTERM:
//
//	cfg, err := config.Load("riskvault.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := worker.Run(cfg); err != nil {
//		log.Fatal(err)
//	}
package worker
