package model

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCamelotKey tests key-to-camelot lookups.
func TestCamelotKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key      string
		expected string
	}{
		{key: "Abm", expected: "1A"},
		{key: "G#m", expected: "1A"},
		{key: "B", expected: "1B"},
		{key: "Fm", expected: "4A"},
		{key: "C", expected: "8B"},
		{key: "E", expected: "12B"},
		{key: "Dd", expected: "3B"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			code, ok := CamelotKey(tt.key)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, code)
		})
	}
}

// TestCamelotKeyMiss tests that unknown spellings are reported as misses so
// the writer can pass them through unchanged.
func TestCamelotKeyMiss(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"H", "abm", "1A", ""} {
		_, ok := CamelotKey(key)
		assert.False(t, ok, "key %q", key)
	}
}

// TestCamelotCodomain tests that every table entry maps into the camelot
// wheel's code space.
func TestCamelotCodomain(t *testing.T) {
	t.Parallel()

	code := regexp.MustCompile(`^([1-9]|1[0-2])(A|B)$`)

	for _, entry := range camelotNotes {
		assert.Regexp(t, code, entry[1], "key %q", entry[0])
	}
}
