package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
)

var errRemoteNotConfigured = errors.New("remote store is not configured (set remote_dsn)")

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username and password and creates a new account on
// the remote store.
func (a *App) Register(ctx context.Context) error {
	if err := a.connectRemote(ctx); err != nil {
		return err
	}

	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if _, err := a.accounts.Register(ctx, userName, password); err != nil {
		return err
	}

	fmt.Println("Success! You can now log in.")
	return nil
}

// Login authenticates against the remote account registry and opens the
// owner-scoped session (document store, sync engine, ledger service).
func (a *App) Login(ctx context.Context) error {
	if err := a.connectRemote(ctx); err != nil {
		return err
	}

	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	token, ownerID, err := a.accounts.Login(ctx, userName, password)
	if err != nil {
		return fmt.Errorf("login unsuccessful: %w", err)
	}

	if err := a.openSession(ctx, ownerID, userName, token); err != nil {
		return err
	}
	log.Printf("Login successful")
	return nil
}

// Logout drops the in-memory session. Local ledger data stays on disk; this
// is a local-first tool and the data belongs to the device.
func (a *App) Logout(ctx context.Context) error {
	a.userName = ""
	a.ownerID = ""
	a.token = ""
	a.engine = nil
	a.ledger = nil
	return nil
}
