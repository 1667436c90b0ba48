package imageproxy

import (
	"bytes"
	"strings"
)

// SniffLen is how many leading bytes the magic check needs.
const SniffLen = 16

// DetectImage inspects the first bytes of a body and reports the image
// content type if they match a known format. Covers PNG, JPEG, GIF,
// WEBP and SVG.
func DetectImage(prefix []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(prefix, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png", true
	case bytes.HasPrefix(prefix, []byte("\xff\xd8\xff")):
		return "image/jpeg", true
	case bytes.HasPrefix(prefix, []byte("GIF87a")), bytes.HasPrefix(prefix, []byte("GIF89a")):
		return "image/gif", true
	case len(prefix) >= 12 && bytes.Equal(prefix[0:4], []byte("RIFF")) && bytes.Equal(prefix[8:12], []byte("WEBP")):
		return "image/webp", true
	}

	// SVG is text; tolerate leading whitespace or an XML declaration.
	head := strings.TrimLeft(string(prefix), " \t\r\n")
	if strings.HasPrefix(head, "<svg") || strings.HasPrefix(head, "<?xml") {
		return "image/svg+xml", true
	}

	return "", false
}
