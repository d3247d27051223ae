// Package ident generates the short opaque codes that identify
// classrooms and participants. Codes are random but not guaranteed
// unique; uniqueness is enforced by the store at insert time, and
// callers retry generation on rejection.
package ident

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ClassCodeLength is the fixed length of classroom codes.
const ClassCodeLength = 4

// NewClassCode returns a random fixed-length uppercase-alphanumeric
// classroom code.
func NewClassCode() string {
	return randomCode(ClassCodeLength)
}

// NewStudentID returns a role-prefixed anonymous student identifier,
// e.g. "S-7KQ2".
func NewStudentID() string {
	return "S-" + randomCode(ClassCodeLength)
}

// NewTeacherID returns a role-prefixed teacher identifier. Teacher IDs
// are long-lived (they own classroom rows), so they use a UUID rather
// than a short code.
func NewTeacherID() string {
	return "T-" + uuid.NewString()
}

func randomCode(n int) string {
	b := make([]byte, n)
	// rand.Read on crypto/rand never fails on supported platforms.
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}
