// Package entries persists the vault's OTP entries.
//
// Get returns the whole collection and Set replaces it. Entries are stored
// as one JSON array under the "entries" key of a metadata.Repository, next
// to the vault salt and verifier, so a passphrase change rewrites entries
// and key material in one transaction.
//
// Each record carries its secret either as the Base32 string (no
// passphrase) or as the {ciphertext, nonce, salt} object.
//
//	store := entries.NewKVStore(metadata.NewSQLiteRepository(db))
//	list, err := store.Get(ctx)
package entries
