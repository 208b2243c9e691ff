// Package identifier turns transcribed plant identifiers into file name
// components and maps artifact file stems back to image base names.
package identifier

import (
	"strings"
	"unicode"
)

// Sanitize replaces every rune that is not a letter, digit or underscore
// with an underscore so the identifier can be used as a file name component.
func Sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, id)
}

// FileStem joins the image base name and a sanitized identifier.
// An empty identifier yields the base name alone.
func FileStem(baseName, id string) string {
	if id == "" {
		return baseName
	}
	return baseName + "." + id
}

// BaseName recovers the image base name from a stem built by FileStem.
func BaseName(stem, id string) string {
	if id == "" {
		return stem
	}
	return strings.TrimSuffix(stem, "."+id)
}
