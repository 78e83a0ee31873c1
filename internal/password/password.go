// Package password implements the account password hashing scheme.
//
// The plaintext is never hashed on its own: it is prefixed with the numeric
// account id as "{id}:{plaintext}" so identical passwords on different
// accounts never share a hash, and so the companion bot service can recompute
// hashes for the same account independently. For the same compatibility
// reason no server-side secret key is mixed in.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// Engine computes and verifies Argon2id password hashes in the standard PHC
// string format. Configure once at startup and treat as immutable.
type Engine struct {
	Memory      uint32 // memory cost in KiB
	Iterations  uint32 // time cost
	Parallelism uint8
	SaltLength  uint32 // ignored during Verify
	KeyLength   uint32
}

// NewEngine returns an Engine with the deployment-fixed parameters
// (8 iterations, 64 MiB).
func NewEngine() *Engine {
	return &Engine{
		Memory:      64 * 1024,
		Iterations:  8,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func encodePlaintext(userID int64, plaintext string) []byte {
	return []byte(fmt.Sprintf("%d:%s", userID, plaintext))
}

// Hash computes a PHC-encoded hash of the account-prefixed plaintext.
func (e *Engine) Hash(userID int64, plaintext string) (string, error) {
	salt := make([]byte, e.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey(
		encodePlaintext(userID, plaintext),
		salt,
		e.Iterations,
		e.Memory,
		e.Parallelism,
		e.KeyLength,
	)

	encoded := fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		e.Memory,
		e.Iterations,
		e.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))

	return encoded, nil
}

// Verify recomputes the hash under the parameters embedded in encodedHash and
// compares in constant time. Any parse failure yields (false, error); callers
// treat that as "not verified".
func (e *Engine) Verify(userID int64, plaintext, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		encodePlaintext(userID, plaintext),
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		params.KeyLength,
	)

	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}

func decodeHash(encodedHash string) (*Engine, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, nil, errors.New("invalid hash format")
	}
	if parts[1] != algorithmID {
		return nil, nil, nil, errors.New("unsupported algorithm")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}

	params := &Engine{}
	var p int
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &p); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid parameters: %w", err)
	}
	params.Parallelism = uint8(p)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid salt encoding: %w", err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid hash encoding: %w", err)
	}
	params.KeyLength = uint32(len(hash))

	return params, salt, hash, nil
}
