// Package cli provides the interactive otpkeeper command-line client.
//
// It wires configuration, the local vault (or a running otpagent) and an
// interactive REPL. Typical flow: open the vault, ask for the passphrase when
// one is set, then execute user commands until exit.
//
// Key features:
//   - Lock / Unlock, set, change or remove the passphrase
//   - Add accounts from a form or an otpauth:// URI
//   - List accounts, show current codes, watch them refresh
//   - Advance HOTP counters, pin, edit and delete accounts
//   - Export / Import backups, write QR codes as PNG
//
// In agent mode (-a) only codes, next, adduri, lock and unlock are
// available; everything else needs direct access to the vault.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
