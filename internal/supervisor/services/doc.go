// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

/*
Package services adapts components whose lifecycle is not already a
context-aware Serve method to suture.Service.

Most Heimdall components (the relay pipeline, the journal GC loop, the NATS
mirror, the websocket hub) implement Serve(ctx) error directly and are added to
the tree as-is. The HTTP server is the exception: *http.Server blocks in
ListenAndServe and stops through Shutdown, so HTTPServerService bridges the
two.

Return values follow suture's conventions:

	nil         stopped cleanly, not restarted
	error       crashed, restarted with backoff
	ctx.Err()   shutdown requested
*/
package services
