// Package serve exposes the analysis pipeline over gRPC.
//
// The riskvault.v1.Analyzer service has one unary method, Analyze, whose
// request and response are google.protobuf.Struct messages, so any gRPC
// client can call it without generated stubs. The request carries either
// decoded records or a raw log payload with its format, plus an optional
// YAML configuration override; the response is the exported register
// document. The standard gRPC health service is registered alongside.
//
// # Usage
//
//	analyzer, err := serve.NewAnalyzer(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	srv, err := serve.NewServer(serve.DefaultConfig(), analyzer,
//		serve.WithAddress(":50051"),
//		serve.WithGracefulShutdown(10*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := srv.Serve(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// Clients use AnalyzerClient:
//
//	client := serve.NewAnalyzerClient(conn)
//	resp, err := client.AnalyzeRecords(ctx, serve.Request{Records: records})
//
// # Status Codes
//
//   - InvalidArgument: the request or its configuration override is invalid
//   - Canceled / DeadlineExceeded: the call's context ended mid-run
//   - Internal: anything else
package serve
