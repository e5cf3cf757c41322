package cli

import (
	"bytes"
	"context"
	"errors"
	"log"

	"github.com/dmitrijs2005/otpkeeper/internal/client/client"
	"github.com/dmitrijs2005/otpkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errPassphraseMismatch = errors.New("passphrases do not match")

// Unlock prompts for the passphrase and unlocks the vault, or opens an
// agent session in agent mode. The passphrase is wiped before returning.
func (a *App) Unlock(ctx context.Context) error {
	if !a.isAgent() {
		has, err := a.vault.HasPassphrase(ctx)
		if err != nil {
			return err
		}
		if !has {
			return common.ErrNoPassphrase
		}
		if !a.vault.IsLocked() {
			a.printf("Already unlocked\n")
			return nil
		}
	}

	password, err := getPassword("Passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if a.isAgent() {
		if err := a.agent.Unlock(ctx, password); err != nil {
			if errors.Is(err, client.ErrUnauthorized) {
				return common.ErrorUnauthorized
			}
			return err
		}
		a.agentUnlocked = true
	} else if err := a.vault.Unlock(ctx, password); err != nil {
		return err
	}

	log.Printf("Unlocked")
	return nil
}

// Lock wipes the keys from memory, or ends the agent session.
func (a *App) Lock(ctx context.Context) error {
	if a.isAgent() {
		a.agentUnlocked = false
		if err := a.agent.Lock(ctx); err != nil {
			return err
		}
	} else {
		a.vault.Lock()
	}
	log.Printf("Locked")
	return nil
}

// Passwd sets a passphrase on an unprotected vault or changes the current
// one. The new passphrase is asked twice.
func (a *App) Passwd(ctx context.Context) error {
	if a.isAgent() {
		return errLocalOnly
	}

	has, err := a.vault.HasPassphrase(ctx)
	if err != nil {
		return err
	}

	var old []byte
	if has {
		old, err = getPassword("Current passphrase", a.out)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(old)
	}

	next, err := a.readNewPassphrase()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	if has {
		err = a.vault.ChangePassphrase(ctx, old, next)
	} else {
		err = a.vault.SetupPassphrase(ctx, next)
	}
	if err != nil {
		return err
	}

	a.printf("Passphrase saved\n")
	return nil
}

func (a *App) readNewPassphrase() ([]byte, error) {
	next, err := getPassword("New passphrase", a.out)
	if err != nil {
		return nil, err
	}
	confirm, err := getPassword("Repeat new passphrase", a.out)
	if err != nil {
		common.WipeByteArray(next)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(next, confirm) {
		common.WipeByteArray(next)
		return nil, errPassphraseMismatch
	}
	return next, nil
}

// Unpasswd removes the passphrase and stores secrets unencrypted.
func (a *App) Unpasswd(ctx context.Context) error {
	if a.isAgent() {
		return errLocalOnly
	}

	password, err := getPassword("Current passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.vault.RemovePassphrase(ctx, password); err != nil {
		return err
	}

	a.printf("Passphrase removed, secrets are stored unencrypted\n")
	return nil
}
