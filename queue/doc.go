// Package queue carries log batches to analysis workers and their reports
// back, over Redis.
//
// Producers push a Batch (either decoded log records or a raw log payload
// with its format) onto a shared list; workers pop batches, run the
// analysis pipeline, and publish a Report on a batch-specific pub/sub
// channel. The report is also stored under a key with a TTL, so a producer
// that subscribes late can still collect it.
//
// # Redis Key Schema
//
// All keys share a configurable prefix (default "riskvault"):
//   - <prefix>:batches - List of pending batches (LPUSH/BRPOP)
//   - <prefix>:reports:<batchID> - Pub/Sub channel for the batch's report
//   - <prefix>:report:<batchID> - String holding the last report, with TTL
//   - <prefix>:worker:<workerID>:health - Heartbeat with 30s TTL
//   - <prefix>:workers - Counter of running workers
//
// # Usage
//
//	client, err := queue.NewRedisClient(queue.RedisOptions{
//		URL:    "redis://localhost:6379",
//		Prefix: "riskvault",
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	reports, err := client.Subscribe(ctx, batch.ID)
//	if err != nil {
//		return err
//	}
//	if err := client.Push(ctx, batch); err != nil {
//		return err
//	}
//	r := <-reports
//
// RedisClient is safe for concurrent use by multiple goroutines.
package queue
