// Package config loads runtime configuration for the journal sync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-e string   base URL of the sync backend
//	-u string   user id rows are merged into
//	-d string   path to the local SQLite database
//	-i int      auto-sync interval (seconds)
//	-t int      HTTP request timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "endpoint_url": "https://sync.example.com",
//	  "user_id": "u-1",
//	  "database_path": "journal.db",
//	  "sync_interval": "30s",
//	  "http_timeout": "10s",
//	  "push_batch_size": 100,
//	  "pull_batch_size": 200,
//	  "sync_enabled": true
//	}
package config
