package asset

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNameLen = 48

// ID is the opaque identifier of an asset. It doubles as the asset's
// directory name.
type ID string

// NewID derives a unique identifier from the upload time and the original
// filename: <unix millis>-<sanitized base name>-<8 hex chars>.
func NewID(originalName string) ID {
	return newIDAt(time.Now(), originalName)
}

func newIDAt(now time.Time, originalName string) ID {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return ID(strconv.FormatInt(now.UnixMilli(), 10) + "-" + sanitizeName(originalName) + "-" + suffix)
}

// Valid reports whether id can safely name a directory below the store root.
func (id ID) Valid() bool {
	return validComponent(string(id))
}

func (id ID) String() string {
	return string(id)
}

// sanitizeName reduces a client filename to a short path-safe token without
// its extension.
func sanitizeName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}

	var b strings.Builder
	lastDash := false
	for _, r := range name {
		if isSafeRune(r) && r != '.' && r != '-' {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash && b.Len() > 0 {
			b.WriteByte('-')
			lastDash = true
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if len(out) > maxNameLen {
		out = strings.TrimRight(out[:maxNameLen], "-")
	}
	if out == "" {
		return "video"
	}
	return out
}

// validComponent accepts a single non-hidden path element made of safe runes.
func validComponent(s string) bool {
	if s == "" || s[0] == '.' || strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if !isSafeRune(r) {
			return false
		}
	}
	return true
}

func isSafeRune(r rune) bool {
	return r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r >= '0' && r <= '9' ||
		r == '-' || r == '_' || r == '.'
}
