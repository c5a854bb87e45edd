// Package cli implements the interactive LedgerKeeper shell: account
// commands, ledger entry management and sync control.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ledgerkeeper/ledgerkeeper/internal/attachments"
	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/config"
	"github.com/ledgerkeeper/ledgerkeeper/internal/filex"
	"github.com/ledgerkeeper/ledgerkeeper/internal/localdb"
	"github.com/ledgerkeeper/ledgerkeeper/internal/logging"
	"github.com/ledgerkeeper/ledgerkeeper/internal/remote"
	metarepo "github.com/ledgerkeeper/ledgerkeeper/internal/repositories/metadata"
	recrepo "github.com/ledgerkeeper/ledgerkeeper/internal/repositories/records"
	"github.com/ledgerkeeper/ledgerkeeper/internal/services"
	"github.com/ledgerkeeper/ledgerkeeper/internal/syncer"
)

type App struct {
	config *config.Config
	log    logging.Logger
	reader *bufio.Reader

	localDB *sql.DB
	repo    recrepo.Repository
	meta    metarepo.Repository

	remoteDB *sql.DB
	accounts *remote.Accounts

	// Session state, populated by Login and cleared by Logout.
	userName string
	ownerID  string
	token    string
	engine   *syncer.Engine
	ledger   services.LedgerService
}

// NewApp opens the local database (creating it under ./data when the
// configured path is a bare file name) and wires the repositories. The
// remote connection is established lazily on the first account command.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	dbPath := c.LocalDBPath
	if filepath.Dir(dbPath) == "." {
		dir, err := filex.EnsureDataDir("data")
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(dir, dbPath)
	}

	db, err := localdb.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	return &App{
		config:  c,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
		localDB: db,
		repo:    recrepo.NewSQLiteRepository(db),
		meta:    metarepo.NewSQLiteRepository(db),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

// Close releases the database handles.
func (a *App) Close() {
	if a.localDB != nil {
		_ = a.localDB.Close()
	}
	if a.remoteDB != nil {
		_ = a.remoteDB.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.ownerID != ""
}

// connectRemote establishes the shared remote connection on first use.
func (a *App) connectRemote(ctx context.Context) error {
	if a.remoteDB != nil {
		return nil
	}
	if a.config.RemoteDSN == "" {
		return errRemoteNotConfigured
	}
	db, err := remote.Open(ctx, a.config.RemoteDSN)
	if err != nil {
		return err
	}
	a.remoteDB = db
	a.accounts = remote.NewAccounts(db, []byte(a.config.TokenSecret), a.config.TokenTTL)
	return nil
}

// deviceID returns the per-install identifier, generating and persisting one
// on first use. It is recorded as tombstone provenance on deletions.
func (a *App) deviceID(ctx context.Context) (string, error) {
	raw, err := a.meta.Get(ctx, common.DeviceIDKey)
	if err != nil {
		return "", err
	}
	if raw != nil {
		return string(raw), nil
	}
	id := uuid.NewString()
	if err := a.meta.Set(ctx, common.DeviceIDKey, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}

// openSession wires the owner-scoped services after a successful login.
func (a *App) openSession(ctx context.Context, ownerID, userName, token string) error {
	device, err := a.deviceID(ctx)
	if err != nil {
		return err
	}

	var receipts attachments.Store
	if a.config.S3Bucket != "" && a.config.S3AccessKey != "" {
		receipts, err = attachments.NewS3Store(ctx, attachments.Config{
			Region:       a.config.S3Region,
			BaseEndpoint: a.config.S3Endpoint,
			Bucket:       a.config.S3Bucket,
			AccessKey:    a.config.S3AccessKey,
			SecretKey:    a.config.S3SecretKey,
		})
		if err != nil {
			return err
		}
	} else {
		// No object storage configured: receipts only live for the session.
		receipts = attachments.NewMemoryStore()
	}

	store := remote.NewPostgresStore(a.remoteDB, ownerID)
	tomb := syncer.NewTombstones(a.repo, receipts, a.log, device)
	a.engine = syncer.New(syncer.Config{
		Strategy:         syncer.Strategy(a.config.SyncStrategy),
		Retention:        syncer.DefaultConfig().Retention,
		DefaultRetention: syncer.DefaultConfig().DefaultRetention,
		RetryCount:       a.config.SyncRetryCount,
		RetryBase:        a.config.SyncRetryBase,
		DeviceID:         device,
	}, ownerID, a.repo, a.meta, store, tomb, a.log)
	a.ledger = services.NewLedgerService(ownerID, a.repo, tomb, receipts, a.log)
	a.ownerID = ownerID
	a.userName = userName
	a.token = token
	return nil
}
