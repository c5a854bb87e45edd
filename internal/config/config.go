package config

import "time"

// Config holds runtime settings for the LedgerKeeper CLI.
//
// Fields:
//   - LocalDBPath: path of the local SQLite database file.
//   - RemoteDSN: PostgreSQL connection string of the remote document store.
//     Empty means sync stays unavailable until configured.
//   - TokenSecret/TokenTTL: signing key and lifetime of session tokens.
//   - SyncStrategy: conflict resolution policy
//     (remoteWins|localWins|newestWins|userChoice).
//   - SyncRetryCount/SyncRetryBase: per-record upload retry budget and the
//     base of the exponential backoff.
//   - S3*: object storage for receipt attachments (MinIO-compatible).
type Config struct {
	LocalDBPath string
	RemoteDSN   string

	TokenSecret string
	TokenTTL    time.Duration

	SyncStrategy   string
	SyncRetryCount uint64
	SyncRetryBase  time.Duration

	S3Region    string
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDBPath = "ledgerkeeper.db"
	c.RemoteDSN = ""
	c.TokenSecret = ""
	c.TokenTTL = 24 * time.Hour
	c.SyncStrategy = "newestWins"
	c.SyncRetryCount = 3
	c.SyncRetryBase = time.Second
	c.S3Region = "us-east-1"
	c.S3Bucket = "ledgerkeeper-receipts"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
