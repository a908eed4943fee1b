// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

/*
Package main is the entry point for the Heimdall server.

Heimdall keeps one client connection open to a live game session, records the
chat messages and join/leave activity it observes, and serves that history and
a live feed over HTTP.

# Application Architecture

	RootSupervisor ("heimdall")
	├── RelaySupervisor ("relay-layer")
	│   ├── relay-pipeline (upstream connector + persistence writer)
	│   ├── journal-gc (optional, JOURNAL_ENABLED)
	│   └── nats-mirror (optional, NATS_ENABLED)
	└── APISupervisor ("api-layer")
	    ├── websocket-hub
	    └── http-server

Startup order:

 1. Configuration: .env, then Koanf defaults, config file and environment
 2. Logging: zerolog, JSON or console
 3. Database: DuckDB, SQLite or PostgreSQL
 4. Dead-letter journal: BadgerDB
 5. Presence tracker and broadcast fan-out
 6. Relay pipeline
 7. NATS mirror
 8. HTTP API, SSE and websocket feeds
 9. Supervisor tree, until SIGINT or SIGTERM

# Configuration

The required settings are the upstream address and credentials:

	export VELOREN_SERVER=gateway.example.net:14004
	export VELOREN_USERNAME=heimdall
	export VELOREN_PASSWORD=secret
	export VELOREN_TRUSTED_AUTH_SERVER=auth.example.net
	./heimdall

Storage selection:

	DB_DIALECT=sqlite DB_PATH=/data/heimdall.db ./heimdall
	DB_DIALECT=postgres DATABASE_URL=postgres://user:pw@db/heimdall ./heimdall

# Signal Handling

On SIGINT or SIGTERM the tree is cancelled. The connector reports the last
roster offline, the writer drains the ingress queue, live streams are closed,
and the HTTP server shuts down within SERVER_SHUTDOWN_TIMEOUT.
*/
package main
