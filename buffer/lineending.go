package buffer

import "strings"

// LineEnding is the newline convention of a document's original text.
// The buffer normalizes all line endings to "\n" internally and
// remembers the convention for round-trip serialization.
type LineEnding uint8

const (
	// LineEndingUnix is "\n".
	LineEndingUnix LineEnding = iota
	// LineEndingWindows is "\r\n".
	LineEndingWindows
)

// String returns a human-readable name.
func (le LineEnding) String() string {
	if le == LineEndingWindows {
		return "windows"
	}
	return "unix"
}

// Sequence returns the byte sequence used when serializing.
func (le LineEnding) Sequence() string {
	if le == LineEndingWindows {
		return "\r\n"
	}
	return "\n"
}

// detectLineEnding samples the text for "\r\n".
func detectLineEnding(text string) LineEnding {
	if strings.Contains(text, "\r\n") {
		return LineEndingWindows
	}
	return LineEndingUnix
}

// normalizeLineEndings converts all line endings to "\n".
func normalizeLineEndings(text string) string {
	if !strings.ContainsRune(text, '\r') {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
