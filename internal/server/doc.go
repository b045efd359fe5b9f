// Package server exposes host diagnostics and filesystem scans over HTTP.
//
// Routes:
//
//	GET  /              greeting
//	GET  /health        liveness
//	GET  /ready         readiness
//	GET  /metrics       Prometheus metrics
//	GET  /diagnose      host, memory, network and process snapshot
//	GET  /info/cpu      per-CPU usage
//	GET  /info/memory   memory and swap usage
//	POST /search        {"pattern": "...", "path": "...", "show_full_path": true}
//	POST /file/largest  {"path": "...", "count": 10}
//
// API routes pass through metrics, request id, panic recovery, rate limiting and request
// logging middleware. Errors are returned as ErrorResponse documents.
//
// A largest-file scan can take minutes on a full disk. While it runs, the running
// files-scanned total is logged every progress interval and added to the
// jolt_files_scanned_total counter.
package server
