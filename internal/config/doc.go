// Package config handles configuration loading for nasohub.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	transport:
//	  matrix:
//	    access_token: "${MATRIX_ACCESS_TOKEN}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: ":3000"
//
// Transport credentials (required):
//
//	transport:
//	  matrix:
//	    homeserver: "https://matrix.org"
//	    user_id: "@nasohub:matrix.org"
//	    access_token: "${MATRIX_ACCESS_TOKEN}"
//	    server_name: "matrix.org"
//
// Ledger persistence (empty path keeps the ledger in memory):
//
//	database:
//	  path: "/var/lib/nasohub/gateway.db"
//
// Inbound dedupe cache:
//
//	dedupe:
//	  ttl: "5m"
//	  max_size: 10000
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
