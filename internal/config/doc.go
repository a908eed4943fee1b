// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

/*
Package config loads Heimdall's configuration.

Sources are layered with koanf, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, ./config.yaml or /etc/heimdall/config.yaml
 3. Environment variables listed in envMappings

Load additionally reads a .env file from the working directory into the
process environment before the koanf layers run.

Minimal environment for a run:

	VELOREN_SERVER=game.example.net:14004
	VELOREN_USERNAME=heimdall
	VELOREN_PASSWORD=secret
	VELOREN_TRUSTED_AUTH_SERVER=auth.example.net
*/
package config
