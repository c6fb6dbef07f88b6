package model

import (
	"mime"
	"path/filepath"
	"strings"
)

var whitespaceReplacer = strings.NewReplacer(" ", "_", "\t", "_")

// SanitizeFileName replaces whitespace with underscores. The sanitized
// name is only ever used for mime-type inference; the caller-visible
// entity name keeps its original spelling.
func SanitizeFileName(name string) string {
	return whitespaceReplacer.Replace(strings.TrimSpace(name))
}

// MimeTypeByName infers a mime type from a filename's extension. The
// name is sanitized first because extension lookup mishandles embedded
// whitespace. Returns "" when the extension is unknown.
func MimeTypeByName(name string) string {
	ext := filepath.Ext(SanitizeFileName(name))
	if ext == "" {
		return ""
	}
	mt := mime.TypeByExtension(ext)
	// Strip parameters such as "; charset=utf-8"; backends want the bare type.
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// ExtensionOf returns the filename extension without the leading dot.
func ExtensionOf(name string) string {
	return strings.TrimPrefix(filepath.Ext(name), ".")
}
