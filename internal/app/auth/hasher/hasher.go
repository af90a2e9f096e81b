package hasher

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sync"

	"github.com/alexedwards/argon2id"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
)

var DefaultParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

type CredentialHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, record string) (bool, error)
	// DummyVerify burns the same work as a real Verify for callers that
	// have no record to check against.
	DummyVerify(plain string)
}

// Argon2id hashes with a per-call random salt and a process-wide pepper.
// Records are PHC strings: $argon2id$v=19$m=...,t=...,p=...$salt$key.
type Argon2id struct {
	pepper string
	params *argon2id.Params

	dummyOnce sync.Once
	dummy     string
}

func New(pepper string, params *argon2id.Params) *Argon2id {
	if params == nil {
		params = DefaultParams
	}
	return &Argon2id{pepper: pepper, params: params}
}

func (h *Argon2id) Hash(plain string) (string, error) {
	record, err := argon2id.CreateHash(plain+h.pepper, h.params)
	if err != nil {
		// CreateHash can only fail while reading the salt from crypto/rand.
		return "", errors.Join(customErrors.ErrHashingUnavailable, err)
	}
	return record, nil
}

func (h *Argon2id) Verify(plain, record string) (bool, error) {
	ok, err := argon2id.ComparePasswordAndHash(plain+h.pepper, record)
	if err != nil {
		return false, errors.Join(customErrors.ErrMalformedHash, err)
	}
	return ok, nil
}

func (h *Argon2id) DummyVerify(plain string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = argon2id.CreateHash("vinylkeeper-dummy-password", h.params)
	})
	if h.dummy == "" {
		return
	}
	_, _ = argon2id.ComparePasswordAndHash(plain+h.pepper, h.dummy)
}

// Stamp derives a short fingerprint of a stored record. Reset tokens carry
// it so they stop validating once the password has changed.
func Stamp(record string) string {
	sum := sha256.Sum256([]byte(record))
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}
