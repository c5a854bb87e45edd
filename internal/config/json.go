package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/flagx"
	"github.com/ledgerkeeper/ledgerkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "24h" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	LocalDBPath string `json:"local_db_path"`
	RemoteDSN   string `json:"remote_dsn"`

	TokenSecret string         `json:"token_secret"`
	TokenTTL    timex.Duration `json:"token_ttl"`

	SyncStrategy   string         `json:"sync_strategy"`
	SyncRetryCount uint64         `json:"sync_retry_count"`
	SyncRetryBase  timex.Duration `json:"sync_retry_base"`

	S3Region    string `json:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3Bucket    string `json:"s3_bucket"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.ConfigFilePath().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies set fields into the provided Config; empty JSON values keep
//     the current (default) value.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.ConfigFilePath()
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

	if jc.LocalDBPath != "" {
		cfg.LocalDBPath = jc.LocalDBPath
	}
	if jc.RemoteDSN != "" {
		cfg.RemoteDSN = jc.RemoteDSN
	}
	if jc.TokenSecret != "" {
		cfg.TokenSecret = jc.TokenSecret
	}
	if jc.TokenTTL.Duration != 0 {
		cfg.TokenTTL = time.Duration(jc.TokenTTL.Duration)
	}
	if jc.SyncStrategy != "" {
		cfg.SyncStrategy = jc.SyncStrategy
	}
	if jc.SyncRetryCount != 0 {
		cfg.SyncRetryCount = jc.SyncRetryCount
	}
	if jc.SyncRetryBase.Duration != 0 {
		cfg.SyncRetryBase = time.Duration(jc.SyncRetryBase.Duration)
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3Endpoint != "" {
		cfg.S3Endpoint = jc.S3Endpoint
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3AccessKey != "" {
		cfg.S3AccessKey = jc.S3AccessKey
	}
	if jc.S3SecretKey != "" {
		cfg.S3SecretKey = jc.S3SecretKey
	}
}
