package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "my_report_final.pdf", SanitizeFileName("my report final.pdf"))
	assert.Equal(t, "tabbed_name.txt", SanitizeFileName("tabbed\tname.txt"))
	assert.Equal(t, "plain.txt", SanitizeFileName("  plain.txt  "))
}

func TestMimeTypeByName(t *testing.T) {
	assert.Equal(t, "application/pdf", MimeTypeByName("my report final.pdf"))
	assert.Equal(t, "image/jpeg", MimeTypeByName("photo.jpg"))
	assert.Equal(t, "", MimeTypeByName("no-extension"))
	assert.Equal(t, "", MimeTypeByName("weird.zzzzz"))

	// Parameters like charset are stripped.
	assert.NotContains(t, MimeTypeByName("notes.txt"), ";")
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, "jpg", ExtensionOf("testfile.jpg"))
	assert.Equal(t, "", ExtensionOf("folder"))
	assert.Equal(t, "gz", ExtensionOf("archive.tar.gz"))
}
