package validation

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

	windowsDeviceNames = map[string]struct{}{
		"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
		"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
		"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
	}
)

// SanitizeFilename reduces a client supplied name to a flat ASCII filename
// safe to join onto a server directory. Accents are decomposed and dropped,
// path separators and whitespace runs become "_", every other character
// outside [A-Za-z0-9_.-] is removed and leading or trailing dots and
// underscores are trimmed. The result may be empty.
func SanitizeFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var ascii strings.Builder
	ascii.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < 0x80 {
			ascii.WriteRune(r)
		}
	}

	s := ascii.String()
	s = strings.NewReplacer("/", " ", "\\", " ").Replace(s)
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")

	if s != "" {
		stem := strings.ToUpper(strings.SplitN(s, ".", 2)[0])
		if _, reserved := windowsDeviceNames[stem]; reserved {
			s = "_" + s
		}
	}
	return s
}

// ArtifactName derives the download filename for an uploaded workbook:
// prefix + sanitized base name without extension + ext. An upload whose name
// sanitizes to nothing falls back to "ledger".
func ArtifactName(uploadName, prefix, ext string) string {
	safe := SanitizeFilename(uploadName)
	if idx := strings.LastIndex(safe, "."); idx > 0 {
		safe = safe[:idx]
	}
	safe = strings.Trim(safe, "._")
	if safe == "" {
		safe = "ledger"
	}
	return prefix + safe + ext
}

// IsSafeFilename reports whether name is already in sanitized form.
func IsSafeFilename(name string) bool {
	return name != "" && SanitizeFilename(name) == name
}
