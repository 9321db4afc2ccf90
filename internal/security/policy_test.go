package security

import (
	"errors"
	"testing"
)

func TestDefaultPasswordPolicy(t *testing.T) {
	policy := NewDefaultPasswordPolicy(8)

	cases := []struct {
		name     string
		password string
		email    string
		wantWeak bool
	}{
		{"acceptable", "Str0ng!Pass", "a@x.com", false},
		{"too short", "Ab1!xyz", "a@x.com", true},
		{"common password", "password123", "a@x.com", true},
		{"common password mixed case", "PASSWORD123", "a@x.com", true},
		{"contains email local part", "xx-johndoe-42", "johndoe@example.com", true},
		{"local part contains password", "john", "johnathan@example.com", true},
		{"short local part ignored", "abcdefgh1", "ab@example.com", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Validate(tc.password, tc.email)
			if tc.wantWeak && !errors.Is(err, ErrWeakPassword) {
				t.Fatalf("expected ErrWeakPassword, got %v", err)
			}
			if !tc.wantWeak && err != nil {
				t.Fatalf("expected acceptance, got %v", err)
			}
		})
	}
}

func TestOpaqueKeyShape(t *testing.T) {
	key, err := NewOpaqueKey()
	if err != nil {
		t.Fatalf("new opaque key: %v", err)
	}
	if len(key) != 40 {
		t.Fatalf("expected 40 hex chars, got %d", len(key))
	}
	other, err := NewOpaqueKey()
	if err != nil {
		t.Fatalf("new opaque key: %v", err)
	}
	if key == other {
		t.Fatal("consecutive keys collided")
	}
}
