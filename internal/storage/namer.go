package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeName turns a client-supplied filename into a safe directory entry.
// The base name and extension are sanitized independently and the extension
// is lower-cased. Returns "" for input that has no usable name left, which
// callers must reject.
func SanitizeName(raw string) string {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
	base := path.Base(raw)
	if base == "" || base == "." || base == ".." || base == "/" {
		return ""
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = unsafeChars.ReplaceAllString(stem, "_")
	ext = strings.ToLower(unsafeChars.ReplaceAllString(ext, "_"))
	safe := stem + ext
	if strings.Trim(safe, "._") == "" {
		return ""
	}
	return safe
}

// SanitizeFolder restricts a folder token to the same character set as
// filenames, collapsing path separators to "_" so a token can never name
// more than one level. Empty or whitespace-only input yields "", the root
// token.
func SanitizeFolder(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	safe := unsafeChars.ReplaceAllString(strings.ReplaceAll(raw, "\\", "/"), "_")
	if strings.Trim(safe, "._") == "" {
		return ""
	}
	return safe
}

// ResolveCollisionSafeName returns desiredName if it is free inside dir,
// otherwise the first "name(N).ext" variant that is. Deterministic for a
// given directory state.
func ResolveCollisionSafeName(dir, desiredName string) string {
	ext := path.Ext(desiredName)
	stem := strings.TrimSuffix(desiredName, ext)
	candidate := desiredName
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s(%d)%s", stem, i, ext)
	}
}

// withinRoot reports whether p, after lexical cleaning, stays inside root.
// root must already be absolute.
func withinRoot(root, p string) bool {
	clean := filepath.Clean(p)
	return clean == root || strings.HasPrefix(clean, root+string(filepath.Separator))
}
