package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/bujoapp/journalsync/internal/flagx"
	"github.com/bujoapp/journalsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so intervals can be strings like "30s" or integer
// nanoseconds; values are copied into the runtime Config afterwards.
type JsonConfig struct {
	EndpointURL     string         `json:"endpoint_url"`
	AuthToken       string         `json:"auth_token"`
	UserID          string         `json:"user_id"`
	DatabasePath    string         `json:"database_path"`
	SyncInterval    timex.Duration `json:"sync_interval"`
	MaxSyncInterval timex.Duration `json:"max_sync_interval"`
	HTTPTimeout     timex.Duration `json:"http_timeout"`
	PushBatchSize   int            `json:"push_batch_size"`
	PullBatchSize   int            `json:"pull_batch_size"`
	SyncEnabled     *bool          `json:"sync_enabled"`
}

// parseJson overlays cfg with values from the JSON file named by -c/-config.
// Absent file path means no JSON layer; fields the file omits keep their
// earlier values. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.EndpointURL != "" {
		cfg.EndpointURL = jc.EndpointURL
	}
	if jc.AuthToken != "" {
		cfg.AuthToken = jc.AuthToken
	}
	if jc.UserID != "" {
		cfg.UserID = jc.UserID
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.MaxSyncInterval.Duration != 0 {
		cfg.MaxSyncInterval = time.Duration(jc.MaxSyncInterval.Duration)
	}
	if jc.HTTPTimeout.Duration != 0 {
		cfg.HTTPTimeout = time.Duration(jc.HTTPTimeout.Duration)
	}
	if jc.PushBatchSize > 0 {
		cfg.PushBatchSize = jc.PushBatchSize
	}
	if jc.PullBatchSize > 0 {
		cfg.PullBatchSize = jc.PullBatchSize
	}
	if jc.SyncEnabled != nil {
		cfg.SyncEnabled = *jc.SyncEnabled
	}
}
