package settlement

import (
	"strings"
	"testing"
)

func TestNewVoucherCode_Shape(t *testing.T) {
	code, err := newVoucherCode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(code, codePrefix) {
		t.Errorf("missing prefix: %s", code)
	}
	if len(code) != len(codePrefix)+codeLength {
		t.Errorf("unexpected length %d: %s", len(code), code)
	}
	for _, c := range code[len(codePrefix):] {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("character %q outside alphabet in %s", c, code)
		}
	}
}

func TestNewVoucherCode_NoConfusableCharacters(t *testing.T) {
	for _, forbidden := range "0O1IL" {
		if strings.ContainsRune(codeAlphabet, forbidden) {
			t.Errorf("alphabet contains confusable character %q", forbidden)
		}
	}
}

func TestNewVoucherCode_Varies(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := newVoucherCode()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 100 {
		t.Errorf("expected 100 distinct codes, got %d", len(seen))
	}
}
