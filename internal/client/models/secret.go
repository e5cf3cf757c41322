package models

import "github.com/dmitrijs2005/otpkeeper/internal/cryptox"

// StoredSecret is the at-rest form of an entry's shared secret. Exactly one
// field is set: Plain when the vault has no passphrase, Encrypted when it
// does, Legacy for records written with the old reversible Base64 wrapping
// that still await migration.
type StoredSecret struct {
	Plain     string
	Encrypted *cryptox.EncryptedSecret
	Legacy    string
}

func (s StoredSecret) IsEncrypted() bool { return s.Encrypted != nil }

func (s StoredSecret) IsLegacy() bool { return s.Encrypted == nil && s.Legacy != "" }

func (s StoredSecret) IsZero() bool {
	return s.Encrypted == nil && s.Plain == "" && s.Legacy == ""
}
