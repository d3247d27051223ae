package ident

import (
	"strings"
	"testing"
)

func TestNewClassCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := NewClassCode()
		if len(code) != ClassCodeLength {
			t.Fatalf("expected length %d, got %q", ClassCodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("unexpected character %q in code %q", r, code)
			}
		}
	}
}

func TestNewStudentID(t *testing.T) {
	id := NewStudentID()
	if !strings.HasPrefix(id, "S-") {
		t.Errorf("expected S- prefix, got %q", id)
	}
	if len(id) != 2+ClassCodeLength {
		t.Errorf("expected length %d, got %q", 2+ClassCodeLength, id)
	}
}

func TestNewTeacherID(t *testing.T) {
	id := NewTeacherID()
	if !strings.HasPrefix(id, "T-") {
		t.Errorf("expected T- prefix, got %q", id)
	}
	if id == NewTeacherID() {
		t.Error("expected distinct teacher IDs")
	}
}
