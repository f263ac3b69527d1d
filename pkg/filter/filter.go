// Package filter contains pure line filters for the batch engine. String
// filters have the type func(string) string and can be composed with Chain;
// every function here is safe to run concurrently.
package filter

import (
	"strings"
	"unicode/utf8"
)

// Identity returns the line unchanged.
func Identity(line string) string { return line }

// TrimSpace strips leading and trailing white space.
func TrimSpace(line string) string { return strings.TrimSpace(line) }

// Lower maps the line to lower case.
func Lower(line string) string { return strings.ToLower(line) }

// Field returns a filter that yields the index-th field (0-based) of a line.
// An empty sep splits on runs of white space like strings.Fields. Lines with
// fewer fields yield "".
func Field(index int, sep string) func(string) string {
	return func(line string) string {
		var parts []string
		if sep == "" {
			parts = strings.Fields(line)
		} else {
			parts = strings.Split(line, sep)
		}
		if index < 0 || index >= len(parts) {
			return ""
		}
		return parts[index]
	}
}

// Length returns the number of runes in the line.
func Length(line string) int64 {
	return int64(utf8.RuneCountInString(line))
}

// Chain applies filters left to right. Chain() is Identity.
func Chain(filters ...func(string) string) func(string) string {
	if len(filters) == 0 {
		return Identity
	}
	fs := append([]func(string) string(nil), filters...)
	return func(line string) string {
		for _, f := range fs {
			line = f(line)
		}
		return line
	}
}
