package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/otpkeeper/internal/client/models"
	"github.com/dmitrijs2005/otpkeeper/internal/client/services"
	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"github.com/dmitrijs2005/otpkeeper/internal/otp"
)

var errAmbiguous = errors.New("ambiguous account reference")

// hashes returns account hashes in display order.
func (a *App) hashes(ctx context.Context) ([]string, error) {
	var out []string
	if a.isAgent() {
		list, err := a.agent.Codes(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range list {
			out = append(out, c.Hash)
		}
		return out, nil
	}

	list, err := a.vault.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		out = append(out, s.Hash)
	}
	return out, nil
}

// selectAccount resolves the first argument, or a prompted value, to an
// account hash. It accepts the 1-based number shown by list and codes, or
// a unique hash prefix.
func (a *App) selectAccount(ctx context.Context, args []string) (string, error) {
	var ref string
	if len(args) > 0 {
		ref = args[0]
	} else {
		var err error
		ref, err = getSimpleText(a.reader, "Enter account number or hash", a.out)
		if err != nil {
			return "", err
		}
	}
	if ref == "" {
		return "", fmt.Errorf("account: %w", common.ErrorNotFound)
	}

	hashes, err := a.hashes(ctx)
	if err != nil {
		return "", err
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(hashes) {
			return "", fmt.Errorf("account %d: %w", n, common.ErrorNotFound)
		}
		return hashes[n-1], nil
	}

	match := ""
	for _, h := range hashes {
		if strings.HasPrefix(h, ref) {
			if match != "" {
				return "", fmt.Errorf("%w: %q", errAmbiguous, ref)
			}
			match = h
		}
	}
	if match == "" {
		return "", fmt.Errorf("account %s: %w", ref, common.ErrorNotFound)
	}
	return match, nil
}

func (a *App) summary(ctx context.Context, hash string) (services.Summary, error) {
	list, err := a.vault.List(ctx)
	if err != nil {
		return services.Summary{}, err
	}
	for _, s := range list {
		if s.Hash == hash {
			return s, nil
		}
	}
	return services.Summary{}, fmt.Errorf("account %s: %w", hash, common.ErrorNotFound)
}

// List prints the accounts. It works while the vault is locked.
func (a *App) List(ctx context.Context) error {
	if a.isAgent() {
		return a.Codes(ctx)
	}

	list, err := a.vault.List(ctx)
	if err != nil {
		return err
	}
	writeSummaries(a.out, list)
	return nil
}

func (a *App) codeRows(ctx context.Context) ([]codeRow, error) {
	if a.isAgent() {
		list, err := a.agent.Codes(ctx)
		if err != nil {
			return nil, err
		}
		return rowsFromAgent(list), nil
	}

	list, err := a.vault.Codes(ctx, a.now())
	if err != nil {
		return nil, err
	}
	return rowsFromVault(list), nil
}

// Codes prints the current code of every account.
func (a *App) Codes(ctx context.Context) error {
	rows, err := a.codeRows(ctx)
	if err != nil {
		return err
	}
	writeCodes(a.out, rows)
	return nil
}

// Add collects an account from a form. Empty answers take the defaults of
// the chosen type.
func (a *App) Add(ctx context.Context) error {
	if a.isAgent() {
		return errLocalOnly
	}

	p, err := a.readParams()
	if err != nil {
		return err
	}

	s, err := a.vault.Add(ctx, p)
	if err != nil {
		return err
	}
	a.printf("Added %s (%s)\n", s.Label, shortHash(s.Hash))
	return nil
}

func (a *App) readParams() (models.Params, error) {
	var p models.Params
	var err error

	if p.Issuer, err = getSimpleText(a.reader, "Enter issuer", a.out); err != nil {
		return p, err
	}
	if p.Account, err = getSimpleText(a.reader, "Enter account name", a.out); err != nil {
		return p, err
	}
	secret, err := getPassword("Enter secret (Base32)", a.out)
	if err != nil {
		return p, err
	}
	p.Secret = string(secret)
	common.WipeByteArray(secret)

	kind, err := getSimpleText(a.reader, "Enter type: totp, hotp, battle, steam, hex, hhex [totp]", a.out)
	if err != nil {
		return p, err
	}
	p.Kind = models.KindTOTP
	if kind != "" {
		if p.Kind, err = models.ParseKind(kind); err != nil {
			return p, err
		}
	}

	alg, err := getSimpleText(a.reader, "Enter algorithm: SHA1, SHA256, SHA512 [SHA1]", a.out)
	if err != nil {
		return p, err
	}
	if alg != "" {
		if p.Algorithm, err = otp.ParseAlgorithm(alg); err != nil {
			return p, err
		}
	}

	if p.Kind != models.KindSteam {
		digits, err := a.readUint(fmt.Sprintf("Enter digits [%d]", p.Kind.DefaultDigits()))
		if err != nil {
			return p, err
		}
		p.Digits = int(digits)
	}

	if p.Kind.IsCounterBased() {
		p.Counter, err = a.readUint("Enter counter [0]")
	} else {
		var period uint64
		period, err = a.readUint(fmt.Sprintf("Enter period in seconds [%d]", otp.DefaultPeriod))
		p.Period = uint32(period)
	}
	return p, err
}

// readUint reads an optional unsigned number; empty input gives 0.
func (a *App) readUint(prompt string) (uint64, error) {
	s, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil || s == "" {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", otp.ErrInvalidParameter, s)
	}
	return n, nil
}

// AddURI adds the account described by an otpauth:// URI.
func (a *App) AddURI(ctx context.Context, args []string) error {
	var uri string
	if len(args) > 0 {
		uri = args[0]
	} else {
		var err error
		if uri, err = getSimpleText(a.reader, "Enter otpauth URI", a.out); err != nil {
			return err
		}
	}

	if a.isAgent() {
		hash, err := a.agent.AddURI(ctx, uri)
		if err != nil {
			return err
		}
		a.printf("Added %s\n", shortHash(hash))
		return nil
	}

	s, err := a.vault.AddURI(ctx, uri)
	if err != nil {
		return err
	}
	a.printf("Added %s (%s)\n", s.Label, shortHash(s.Hash))
	return nil
}

// Next advances a counter-based account and prints the new code.
func (a *App) Next(ctx context.Context, args []string) error {
	hash, err := a.selectAccount(ctx, args)
	if err != nil {
		return err
	}

	var code string
	if a.isAgent() {
		code, err = a.agent.Next(ctx, hash)
	} else {
		code, err = a.vault.Next(ctx, hash)
	}
	if err != nil {
		return err
	}
	a.printf("%s\n", code)
	return nil
}

// Pin toggles whether an account is listed first.
func (a *App) Pin(ctx context.Context, args []string) error {
	if a.isAgent() {
		return errLocalOnly
	}
	hash, err := a.selectAccount(ctx, args)
	if err != nil {
		return err
	}

	pinned, err := a.vault.TogglePin(ctx, hash)
	if err != nil {
		return err
	}
	if pinned {
		a.printf("Pinned\n")
	} else {
		a.printf("Unpinned\n")
	}
	return nil
}

// Edit changes issuer, account name, digits and period. Empty answers keep
// the current value.
func (a *App) Edit(ctx context.Context, args []string) error {
	if a.isAgent() {
		return errLocalOnly
	}
	hash, err := a.selectAccount(ctx, args)
	if err != nil {
		return err
	}
	cur, err := a.summary(ctx, hash)
	if err != nil {
		return err
	}

	var u models.EntryUpdate

	issuer, changed, err := GetOptional(a.reader, "Issuer", cur.Issuer, a.out)
	if err != nil {
		return err
	}
	if changed {
		u.Issuer = &issuer
	}

	account, changed, err := GetOptional(a.reader, "Account", cur.Account, a.out)
	if err != nil {
		return err
	}
	if changed {
		u.Account = &account
	}

	if cur.Kind != models.KindSteam {
		digits, changed, err := GetOptional(a.reader, "Digits", strconv.Itoa(cur.Digits), a.out)
		if err != nil {
			return err
		}
		if changed {
			n, err := strconv.Atoi(digits)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", otp.ErrInvalidParameter, digits)
			}
			u.Digits = &n
		}
	}

	if !cur.Kind.IsCounterBased() {
		period, changed, err := GetOptional(a.reader, "Period", strconv.Itoa(int(cur.Period)), a.out)
		if err != nil {
			return err
		}
		if changed {
			n, err := strconv.ParseUint(period, 10, 32)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", otp.ErrInvalidParameter, period)
			}
			p := uint32(n)
			u.Period = &p
		}
	}

	if err := a.vault.Update(ctx, hash, u); err != nil {
		return err
	}
	a.printf("Saved\n")
	return nil
}

// Delete removes an account after confirmation.
func (a *App) Delete(ctx context.Context, args []string) error {
	if a.isAgent() {
		return errLocalOnly
	}
	hash, err := a.selectAccount(ctx, args)
	if err != nil {
		return err
	}
	cur, err := a.summary(ctx, hash)
	if err != nil {
		return err
	}

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete %s? (y/N)", cur.Label), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		a.printf("Cancelled\n")
		return nil
	}

	if err := a.vault.Delete(ctx, hash); err != nil {
		return err
	}
	a.printf("Deleted %s\n", cur.Label)
	return nil
}

// QR writes the account's otpauth URI as a PNG QR code. The file name
// defaults to the short hash.
func (a *App) QR(ctx context.Context, args []string) error {
	if a.isAgent() {
		return errLocalOnly
	}
	hash, err := a.selectAccount(ctx, args)
	if err != nil {
		return err
	}

	path := shortHash(hash) + ".png"
	if len(args) > 1 {
		path = args[1]
	}

	png, err := a.vault.QRCode(ctx, hash, services.DefaultQRSize)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	a.printf("QR code written to %s\n", path)
	return nil
}
