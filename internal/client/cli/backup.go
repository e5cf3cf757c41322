package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/otpkeeper/internal/common"
)

func (a *App) pathArg(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}

// Export writes a backup file readable only by the current user.
func (a *App) Export(ctx context.Context, args []string) error {
	if a.isAgent() {
		return errLocalOnly
	}
	path, err := a.pathArg(args, "Enter backup file path")
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := a.vault.Export(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	a.printf("Exported to %s\n", path)
	return nil
}

// Import merges a backup file. The backup passphrase is asked for only when
// the backup is encrypted.
func (a *App) Import(ctx context.Context, args []string) error {
	if a.isAgent() {
		return errLocalOnly
	}
	path, err := a.pathArg(args, "Enter backup file path")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	n, err := a.vault.Import(ctx, bytes.NewReader(data), nil)
	if errors.Is(err, common.ErrPassphraseRequired) {
		var pass []byte
		pass, err = getPassword("Backup passphrase", a.out)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(pass)
		n, err = a.vault.Import(ctx, bytes.NewReader(data), pass)
	}
	if err != nil {
		return err
	}

	a.printf("Imported %d account(s)\n", n)
	return nil
}
