// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleCase normalizes an organization name, surrounding and repeated spaces are collapsed.
// A Caser holds state, one is built per call.
func TitleCase(s string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(s), " "))
}

// Slugify lowercases s, keeps letters, digits and hyphens and joins words with a hyphen
func Slugify(s string) string {
	var b strings.Builder

	pending := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pending = true
		}
	}

	return b.String()
}
