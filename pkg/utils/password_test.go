package utils

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Errorf("Unexpected hash format: %s", hash)
	}

	ok, err := VerifyPassword("correct horse", hash)
	if err != nil || !ok {
		t.Errorf("Expected password to verify, got %v %v", ok, err)
	}
	ok, err = VerifyPassword("wrong horse", hash)
	if err != nil || ok {
		t.Errorf("Expected mismatch, got %v %v", ok, err)
	}

	other, _ := HashPassword("correct horse")
	if other == hash {
		t.Error("Expected distinct salts")
	}
}

func TestVerifyPasswordOlderParams(t *testing.T) {
	hash, err := hashWith("pw", Argon2Params{Memory: 8 * 1024, Time: 1, Threads: 1, SaltLen: 8, KeyLen: 16})
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := VerifyPassword("pw", hash); err != nil || !ok {
		t.Errorf("Expected hash with older params to verify, got %v %v", ok, err)
	}
}

func TestVerifyPasswordInvalidHash(t *testing.T) {
	for _, h := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5", "$argon2id$v=18$m=1,t=1,p=1$c2FsdA$a2V5", "$argon2id$v=19$m=x$c2FsdA$a2V5"} {
		if _, err := VerifyPassword("pw", h); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("VerifyPassword(%q) err = %v, want ErrInvalidHash", h, err)
		}
	}
}
