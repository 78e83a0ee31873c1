package password

import (
	"strings"
	"testing"
)

// small parameters to keep the suite fast; correctness is independent of cost
func testEngine() *Engine {
	return &Engine{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashVerifyRoundtrip(t *testing.T) {
	e := testEngine()
	hash, err := e.Hash(1, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	ok, err := e.Verify(1, "correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !ok {
		t.Fatal("Verify() = false for the original password")
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	e := testEngine()
	hash, err := e.Hash(1, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	ok, err := e.Verify(1, "incorrect horse", hash)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if ok {
		t.Fatal("Verify() = true for a different password")
	}
}

func TestUserIDBindsHash(t *testing.T) {
	e := testEngine()
	h1, err := e.Hash(1, "shared password")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	h2, err := e.Hash(2, "shared password")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	if h1 == h2 {
		t.Fatal("identical passwords on different accounts produced identical hashes")
	}

	// a hash computed for one account must not verify under another id
	ok, err := e.Verify(2, "shared password", h1)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if ok {
		t.Fatal("hash for user 1 verified under user 2")
	}
}

func TestVerifyUsesEmbeddedParameters(t *testing.T) {
	// hash with one parameter set, verify with an engine configured
	// differently; the PHC string carries the truth
	h, err := testEngine().Hash(7, "pw")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	ok, err := NewEngine().Verify(7, "pw", h)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !ok {
		t.Fatal("Verify() ignored the parameters embedded in the hash")
	}
}

func TestDefaultEngineParameters(t *testing.T) {
	e := NewEngine()
	if e.Iterations != 8 || e.Memory != 64*1024 {
		t.Fatalf("unexpected default parameters: t=%d m=%d", e.Iterations, e.Memory)
	}
	h, err := e.Hash(1, "pw")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	if !strings.HasPrefix(h, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", h)
	}
	if !strings.Contains(h, "m=65536,t=8,p=1") {
		t.Fatalf("hash does not carry the fixed parameters: %s", h)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	e := testEngine()
	for _, bad := range []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	} {
		ok, err := e.Verify(1, "pw", bad)
		if err == nil {
			t.Errorf("Verify(%q) expected an error", bad)
		}
		if ok {
			t.Errorf("Verify(%q) = true", bad)
		}
	}
}
