// Package syncer implements the synchronization engine: change scanning,
// download merging, conflict resolution, tombstone lifecycle and the upload
// pipeline, orchestrated by Engine.Sync.
package syncer

import (
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
)

// Strategy selects how a conflicting concurrent edit is resolved.
type Strategy string

const (
	// StrategyRemoteWins discards the local change and accepts the remote state.
	StrategyRemoteWins Strategy = "remoteWins"
	// StrategyLocalWins keeps the local change pending; it will overwrite the
	// remote state on the next upload.
	StrategyLocalWins Strategy = "localWins"
	// StrategyNewestWins picks the side with the later updatedAt. Equal
	// timestamps keep the local side.
	StrategyNewestWins Strategy = "newestWins"
	// StrategyUserChoice parks the record in conflict state until the user
	// resolves it explicitly.
	StrategyUserChoice Strategy = "userChoice"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyRemoteWins, StrategyLocalWins, StrategyNewestWins, StrategyUserChoice:
		return true
	}
	return false
}

// Config carries the tunables of the sync engine.
type Config struct {
	// Strategy is the conflict resolution policy. Defaults to newestWins.
	Strategy Strategy

	// Retention maps entity types to how long synced tombstones are kept
	// locally before being purged. Types missing from the map fall back to
	// DefaultRetention.
	Retention        map[models.EntityType]time.Duration
	DefaultRetention time.Duration

	// RetryCount and RetryBase shape the exponential backoff applied to each
	// remote write before the record is marked failed.
	RetryCount uint64
	RetryBase  time.Duration

	// DeviceID is the per-install identifier recorded as tombstone provenance.
	DeviceID string
}

// DefaultConfig returns the stock configuration: newestWins, 30-day tombstone
// retention for reference data, 90 days for transactions, three retries with
// a one second base backoff.
func DefaultConfig() Config {
	return Config{
		Strategy: StrategyNewestWins,
		Retention: map[models.EntityType]time.Duration{
			models.EntityExpense: 90 * 24 * time.Hour,
			models.EntityIncome:  90 * 24 * time.Hour,
		},
		DefaultRetention: 30 * 24 * time.Hour,
		RetryCount:       3,
		RetryBase:        time.Second,
	}
}

// RetentionFor returns the tombstone retention window for the entity type.
func (c Config) RetentionFor(t models.EntityType) time.Duration {
	if d, ok := c.Retention[t]; ok {
		return d
	}
	return c.DefaultRetention
}
