// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

/*
Package supervisor runs Heimdall's long-lived services under suture v4.

	RootSupervisor ("heimdall")
	├── RelaySupervisor ("relay-layer")
	│   ├── relay-pipeline   connection manager + persistence writer
	│   ├── journal-gc       value log GC (if JOURNAL_ENABLED)
	│   └── nats-mirror      JetStream republisher (if NATS_ENABLED)
	└── APISupervisor ("api-layer")
	    ├── websocket-hub
	    └── http-server

A crash in the API layer never restarts the relay, and a mirror that keeps
failing backs off inside the relay layer without touching the pipeline's
restart budget. Supervisor events are logged through sutureslog, which the
caller feeds with a slog.Logger backed by zerolog.

Cancelling the context passed to Serve is the single shutdown signal: the
pipeline drains, the hub closes its clients and the HTTP server shuts down
gracefully, each bounded by TreeConfig.ShutdownTimeout.
*/
package supervisor
