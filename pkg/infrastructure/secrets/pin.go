// Package secrets hashes account PINs so they are never stored in clear text.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	KeyBytes  = 32
	SaltBytes = 16
	scheme    = "argon2id"
)

// Params are the argon2id cost parameters
type Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
}

// DefaultParams matches the cost used for key encryption keys
var DefaultParams = Params{Memory: 1 << 16, Time: 1, Threads: 8}

// ErrMalformedHash is returned when an encoded hash cannot be parsed
var ErrMalformedHash = errors.New("malformed pin hash")

// PINHasher hashes and verifies PINs
type PINHasher struct {
	params Params
}

// NewPINHasher creates a hasher; zero params fall back to DefaultParams
func NewPINHasher(params Params) *PINHasher {
	if params.Memory == 0 || params.Time == 0 || params.Threads == 0 {
		params = DefaultParams
	}
	return &PINHasher{params: params}
}

// Hash returns "argon2id$m=<memory>,t=<time>,p=<threads>$<salt>$<key>" with base64 salt and key
func (h *PINHasher) Hash(pin string) (string, error) {
	if pin == "" {
		return "", errors.New("pin is required")
	}
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(pin), salt, h.params.Time, h.params.Memory, h.params.Threads, KeyBytes)
	defer Zero(key)

	return fmt.Sprintf("%s$m=%d,t=%d,p=%d$%s$%s", scheme,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether pin matches the encoded hash, using the parameters stored in it
func (h *PINHasher) Verify(pin, encoded string) (bool, error) {
	params, salt, want, err := decode(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(pin), salt, params.Time, params.Memory, params.Threads, uint32(len(want)))
	defer Zero(got)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// IsHash reports whether value looks like an encoded PIN hash
func IsHash(value string) bool {
	_, _, _, err := decode(value)
	return err == nil
}

func decode(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != scheme {
		return Params{}, nil, nil, ErrMalformedHash
	}
	var p Params
	if _, err := fmt.Sscanf(parts[1], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return Params{}, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if p.Memory == 0 || p.Time == 0 || p.Threads == 0 {
		return Params{}, nil, nil, ErrMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) != SaltBytes {
		return Params{}, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, ErrMalformedHash
	}
	return p, salt, key, nil
}

// Zero overwrites b
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
