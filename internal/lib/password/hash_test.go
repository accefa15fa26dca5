package password

import (
	"testing"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{name: "regular password", password: "password123"},
		{name: "password with special chars", password: "p@ssw0rd!@#$%^&*()"},
		{name: "long password", password: "verylongpasswordwithmorethanfiftycharacters"},
		{name: "short password", password: "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotHash, err := Hash(tt.password, MinCost)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if gotHash == "" {
				t.Error("Hash() returned empty digest")
			}
			if err := Compare(gotHash, tt.password); err != nil {
				t.Errorf("generated hash doesn't verify against original password: %v", err)
			}
		})
	}
}

func TestHash_BelowMinCostIsRaised(t *testing.T) {
	digest, err := Hash("password123", 4)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if err := Compare(digest, "password123"); err != nil {
		t.Errorf("digest hashed below MinCost still failed to verify: %v", err)
	}
}

func TestCompare(t *testing.T) {
	correctHash, err := Hash("correct_password", MinCost)
	if err != nil {
		t.Fatalf("failed to create test hash: %v", err)
	}

	anotherHash, err := Hash("another_password", MinCost)
	if err != nil {
		t.Fatalf("failed to create test hash: %v", err)
	}

	tests := []struct {
		name        string
		hash        string
		password    string
		shouldMatch bool
	}{
		{name: "matching password", hash: correctHash, password: "correct_password", shouldMatch: true},
		{name: "wrong password", hash: correctHash, password: "wrong_password", shouldMatch: false},
		{name: "different hash same password", hash: anotherHash, password: "correct_password", shouldMatch: false},
		{name: "empty password", hash: correctHash, password: "", shouldMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Compare(tt.hash, tt.password)
			if tt.shouldMatch && err != nil {
				t.Errorf("Compare() should succeed, got error: %v", err)
			}
			if !tt.shouldMatch && err == nil {
				t.Error("Compare() should fail, but got no error")
			}
		})
	}
}

func TestHash_DifferentPasswordsProduceDifferentHashes(t *testing.T) {
	hash1, err := Hash("password1", MinCost)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	hash2, err := Hash("password2", MinCost)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash1 == hash2 {
		t.Error("different passwords produced identical hashes")
	}
}
