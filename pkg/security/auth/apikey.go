package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"casework-hq/auditexport/pkg/config"
)

type storedKey struct {
	digest    [sha256.Size]byte
	principal *Principal
	disabled  bool
}

// KeyStore validates API keys.
type KeyStore struct {
	keys []storedKey
}

// NewKeyStore builds a store from configuration. Keys must be non-empty.
func NewKeyStore(keys []config.APIKeyConfig) (*KeyStore, error) {
	store := &KeyStore{keys: make([]storedKey, 0, len(keys))}
	for i, k := range keys {
		if k.Key == "" {
			return nil, fmt.Errorf("key %d (%s) is empty", i, k.Name)
		}
		store.keys = append(store.keys, storedKey{
			digest:    sha256.Sum256([]byte(k.Key)),
			principal: &Principal{Name: k.Name, Scopes: k.Scopes},
			disabled:  k.Disabled,
		})
	}
	return store, nil
}

// Validate returns the principal owning key. Every stored key is compared so
// timing does not depend on which key matched.
func (s *KeyStore) Validate(key string) (*Principal, error) {
	if key == "" {
		return nil, ErrMissingKey
	}

	digest := sha256.Sum256([]byte(key))
	var match *storedKey
	for i := range s.keys {
		if subtle.ConstantTimeCompare(digest[:], s.keys[i].digest[:]) == 1 {
			match = &s.keys[i]
		}
	}
	if match == nil || match.disabled {
		return nil, ErrInvalidKey
	}
	return match.principal, nil
}

// Len returns the number of configured keys.
func (s *KeyStore) Len() int {
	return len(s.keys)
}
