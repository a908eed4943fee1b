// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

/*
Package websocket streams live envelopes to browser clients.

Every Client owns a private fan-out subscription. A reader goroutine pulls
envelopes from the subscription and hands them to the client's writePump,
which is the only goroutine that writes to the connection. The readPump
answers application-level pings and notices when the peer goes away.

Wire format, server to client:

	{"type":"message","data":{"id":7,"player_id":3,"message":"hi","ty":"World","time":"..."}}
	{"type":"activity","data":{"player_id":3,"time":"...","online":true}}
	{"type":"lagged","data":{"missed":12}}
	{"type":"pong","data":null}

A slow client never slows the writer or other clients: when it falls behind
the fan-out buffer it skips ahead and receives a lagged notice with the
number of envelopes it missed.

The Hub tracks connected clients and closes them all when its Serve context
ends, so it runs as a supervised service.
*/
package websocket
