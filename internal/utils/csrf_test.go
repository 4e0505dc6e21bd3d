package utils

import "testing"

func TestCsrfBuildAndVerify(t *testing.T) {
	manager := NewCsrfManager("csrf-secret")

	token, hash, err := manager.BuildToken()
	if err != nil {
		t.Fatalf("Failed to build token: %v", err)
	}
	if token == "" || hash == "" {
		t.Fatal("Expected non-empty token and hash")
	}
	if token == hash {
		t.Error("Expected token and hash to differ")
	}

	if !manager.VerifyToken(token, hash) {
		t.Error("Expected a freshly built pair to verify")
	}
}

func TestCsrfVerifyRejectsTampering(t *testing.T) {
	manager := NewCsrfManager("csrf-secret")

	token, hash, err := manager.BuildToken()
	if err != nil {
		t.Fatalf("Failed to build token: %v", err)
	}

	if manager.VerifyToken(token+"x", hash) {
		t.Error("Expected a tampered token to fail verification")
	}
	if manager.VerifyToken(token, hash+"x") {
		t.Error("Expected a tampered hash to fail verification")
	}
	if manager.VerifyToken("", hash) {
		t.Error("Expected an empty token to fail verification")
	}
	if manager.VerifyToken(token, "") {
		t.Error("Expected an empty hash to fail verification")
	}
}

func TestCsrfVerifyRejectsForeignSecret(t *testing.T) {
	manager := NewCsrfManager("csrf-secret")
	other := NewCsrfManager("other-secret")

	token, hash, err := other.BuildToken()
	if err != nil {
		t.Fatalf("Failed to build token: %v", err)
	}

	if manager.VerifyToken(token, hash) {
		t.Error("Expected a pair built under another secret to fail verification")
	}
}
