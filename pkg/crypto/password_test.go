package crypto

import (
	"strings"
	"testing"
)

// cheap parameters keep the suite fast; the format is identical
func newTestArgon2() *Argon2 {
	return &Argon2{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func setupPasswordHash(t *testing.T, password string) (*Argon2, string) {
	t.Helper()
	a := newTestArgon2()
	hash, err := a.Hash(password)
	if err != nil {
		t.Fatalf("Failed to setup hash: %v", err)
	}
	return a, hash
}

// Requirement: Hash produces a PHC-formatted argon2id string.
func TestArgon2Hash(t *testing.T) {
	t.Run("format validation", func(t *testing.T) {
		_, hash := setupPasswordHash(t, "testPassword123")

		tests := []struct {
			name  string
			check func(string) bool
			desc  string
		}{
			{
				name:  "has argon2id algorithm",
				check: func(h string) bool { return strings.HasPrefix(h, "$argon2id$") },
				desc:  "should start with $argon2id$",
			},
			{
				name:  "has correct version",
				check: func(h string) bool { return strings.Contains(h, "$v=19$") },
				desc:  "should contain version 19",
			},
			{
				name:  "embeds parameters",
				check: func(h string) bool { return strings.Contains(h, "$m=8192,t=1,p=1$") },
				desc:  "should contain the cost parameters",
			},
			{
				name:  "has 6 parts",
				check: func(h string) bool { return len(strings.Split(h, "$")) == 6 },
				desc:  "should have 6 parts",
			},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				if !test.check(hash) {
					t.Errorf("%s: %s", test.desc, hash)
				}
			})
		}
	})

	// Requirement: the same plaintext yields a different digest on each call.
	t.Run("generates unique salts", func(t *testing.T) {
		a := newTestArgon2()

		hash1, _ := a.Hash("samePassword")
		hash2, _ := a.Hash("samePassword")

		if hash1 == hash2 {
			t.Error("Same password should generate different hashes (unique salts)")
		}
	})
}

// Requirement: Verify is true iff the plaintext matches the digest.
func TestArgon2_Verify(t *testing.T) {
	tests := []struct {
		name     string
		password string
		attempt  string
		wantOk   bool
	}{
		{name: "correct password", password: "correctPassword", attempt: "correctPassword", wantOk: true},
		{name: "wrong password", password: "correctPassword", attempt: "wrongPassword", wantOk: false},
		{name: "case sensitive", password: "Password", attempt: "password", wantOk: false},
		{name: "empty password round trip", password: "", attempt: "", wantOk: true},
		{name: "empty attempt", password: "secret", attempt: "", wantOk: false},
		{name: "unicode", password: "пароль🔐", attempt: "пароль🔐", wantOk: true},
		{name: "single char difference", password: "thisIsAVeryLongPassword", attempt: "thisIsAVeryLongPasswore", wantOk: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			a, hash := setupPasswordHash(t, test.password)

			// Act
			ok, err := a.Verify(test.attempt, hash)

			// Assert
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if ok != test.wantOk {
				t.Errorf("Verify() = %v, want %v", ok, test.wantOk)
			}
		})
	}
}

// Requirement: an absent digest matches nothing and never errors.
func TestArgon2_Verify_EmptyHash(t *testing.T) {
	a := newTestArgon2()

	for _, password := range []string{"", "password", " "} {
		ok, err := a.Verify(password, "")
		if err != nil {
			t.Fatalf("Verify(%q, \"\") error = %v, want nil", password, err)
		}
		if ok {
			t.Fatalf("Verify(%q, \"\") = true, want false", password)
		}
	}
}

func TestArgon2_Verify_InvalidHashes(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{name: "invalid format", hash: "invalid-hash"},
		{name: "too few parts", hash: "$argon2id$v=19$m=65536,t=3,p=2$salt"},
		{name: "unsupported algorithm", hash: "$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"},
		{name: "wrong version", hash: "$argon2id$v=16$m=65536,t=3,p=2$c2FsdA$aGFzaA"},
		{name: "zero memory", hash: "$argon2id$v=19$m=0,t=3,p=2$c2FsdA$aGFzaA"},
		{name: "bad salt encoding", hash: "$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA"},
		{name: "bcrypt hash", hash: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			a := newTestArgon2()

			// Act
			ok, err := a.Verify("password", test.hash)

			// Assert
			if err == nil {
				t.Errorf("Verify() should return error for %s", test.name)
			}
			if ok {
				t.Errorf("Verify() should not match for %s", test.name)
			}
		})
	}
}

// Requirement: parameters are read back from the hash, not from the verifier.
func TestArgon2_Verify_AcrossInstances(t *testing.T) {
	// Arrange
	hasherA := &Argon2{Memory: 4 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 8, KeyLength: 16}
	hasherB := newTestArgon2()
	hash, err := hasherA.Hash("test")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// Act
	ok, err := hasherB.Verify("test", hash)

	// Assert
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("Verify() should verify hash from different instance")
	}
}

func TestArgon2_New_Defaults(t *testing.T) {
	// Arrange
	a := NewArgon2()

	tests := []struct {
		name     string
		actual   interface{}
		expected interface{}
	}{
		{name: "memory 64MB", actual: a.Memory, expected: uint32(64 * 1024)},
		{name: "iterations 3", actual: a.Iterations, expected: uint32(3)},
		{name: "parallelism 2", actual: a.Parallelism, expected: uint8(2)},
		{name: "salt length 16", actual: a.SaltLength, expected: uint32(16)},
		{name: "key length 32", actual: a.KeyLength, expected: uint32(32)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.actual != test.expected {
				t.Errorf("%s: got %v, want %v", test.name, test.actual, test.expected)
			}
		})
	}
}

func TestArgon2_Concurrent(t *testing.T) {
	// Arrange
	a := newTestArgon2()
	const goroutines = 10
	results := make(chan error, goroutines)

	// Act
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			password := strings.Repeat("a", i+1)
			hash, err := a.Hash(password)
			if err != nil {
				results <- err
				return
			}
			if _, err := a.Verify(password, hash); err != nil {
				results <- err
				return
			}
			results <- nil
		}(i)
	}

	// Assert
	for i := 0; i < goroutines; i++ {
		if err := <-results; err != nil {
			t.Errorf("Concurrent operation failed: %v", err)
		}
	}
}

// Requirement: Bcrypt follows the same empty-hash and mismatch contract.
func TestBcrypt_Verify(t *testing.T) {
	// Arrange
	b := &Bcrypt{Cost: 4}
	hash, err := b.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name    string
		attempt string
		hash    string
		wantOk  bool
		wantErr bool
	}{
		{name: "correct password", attempt: "s3cret", hash: hash, wantOk: true},
		{name: "wrong password", attempt: "nope", hash: hash, wantOk: false},
		{name: "empty hash", attempt: "s3cret", hash: "", wantOk: false},
		{name: "malformed hash", attempt: "s3cret", hash: "not-a-bcrypt-hash", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Act
			ok, err := b.Verify(test.attempt, test.hash)

			// Assert
			if (err != nil) != test.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, test.wantErr)
			}
			if ok != test.wantOk {
				t.Errorf("Verify() = %v, want %v", ok, test.wantOk)
			}
		})
	}
}

func TestBcrypt_HashIsSalted(t *testing.T) {
	b := &Bcrypt{Cost: 4}

	hash1, _ := b.Hash("same")
	hash2, _ := b.Hash("same")

	if hash1 == hash2 {
		t.Error("Same password should generate different bcrypt hashes")
	}
}

func FuzzArgon2_Hash(f *testing.F) {
	f.Add("")
	f.Add("test")
	f.Add("p@ssw0rd!#$%")
	f.Add(strings.Repeat("a", 128))
	f.Add("pass\x00word")

	f.Fuzz(func(t *testing.T, password string) {
		a := newTestArgon2()

		hash, err := a.Hash(password)
		if err != nil {
			t.Fatalf("Hash() error = %v", err)
		}
		if !strings.HasPrefix(hash, "$argon2id$") {
			t.Fatalf("Hash() should start with $argon2id$, got: %q", hash)
		}

		ok, err := a.Verify(password, hash)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !ok {
			t.Fatal("Verify() should return true for correct password")
		}
	})
}
