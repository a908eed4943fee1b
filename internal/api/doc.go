// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

/*
Package api is the HTTP surface of Heimdall.

Routes (all JSON responses use models.APIResponse):

	GET    /api/v1/health/live             process is up
	GET    /api/v1/health/ready            store reachable and upstream connected
	GET    /api/v1/players?alias=          ids of players whose alias contains alias
	GET    /api/v1/players/{id}            one player
	GET    /api/v1/players/{id}/playtime   reconstructed online duration
	GET    /api/v1/presence                sorted ids of online players
	GET    /api/v1/messages?before=        50 newest messages with id < before
	POST   /api/v1/messages/query          filtered, paginated message history
	GET    /api/v1/events                  live envelopes as server-sent events
	GET    /api/v1/ws                      live envelopes over a websocket
	GET    /api/v1/journal?limit=          dead-letter journal entries
	DELETE /api/v1/journal/{id}            discard a journal entry
	GET    /metrics                        Prometheus metrics

The middleware stack comes from the chi ecosystem: request ids wired into the
logging context, real IP extraction, panic recovery, go-chi/cors and
go-chi/httprate. Live streams are read-only views of the broadcast fan-out;
a slow client skips ahead instead of slowing the relay.
*/
package api
