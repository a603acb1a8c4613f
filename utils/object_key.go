package utils

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxKeyFileNameLength = 128

// NewObjectKey returns "<projectID>/<unixMillis>-<8 hex>-<sanitized name>".
// The random segment keeps keys unique when two files share a name and a millisecond.
func NewObjectKey(projectID uuid.UUID, fileName string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%d-%s-%s", projectID, now.UnixMilli(), suffix, SanitizeFileName(fileName))
}

func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}

	cleaned := strings.Trim(b.String(), "-.")
	if len(cleaned) > maxKeyFileNameLength {
		cleaned = cleaned[len(cleaned)-maxKeyFileNameLength:]
	}
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

// PublicURLBuilder maps object keys to public URLs of the form
// <BaseURL>/<Bucket>/<escaped key> and back.
type PublicURLBuilder struct {
	BaseURL string
	Bucket  string
}

func (b PublicURLBuilder) Build(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.prefix() + strings.Join(segments, "/")
}

// KeyFromURL recovers the object key from a URL produced by Build. Legacy
// Firebase-style URLs (".../o/<escaped key>?alt=media") are also understood.
func (b PublicURLBuilder) KeyFromURL(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	if escaped, found := strings.CutPrefix(raw, b.prefix()); found {
		escaped, _, _ = strings.Cut(escaped, "?")
		key, err := url.PathUnescape(escaped)
		if err != nil || key == "" {
			return "", false
		}
		return key, true
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	escapedPath := u.EscapedPath()

	if idx := strings.Index(escapedPath, "/"+url.PathEscape(b.Bucket)+"/"); idx >= 0 && b.Bucket != "" {
		key, err := url.PathUnescape(escapedPath[idx+len(b.Bucket)+2:])
		if err == nil && key != "" {
			return key, true
		}
	}

	if idx := strings.LastIndex(escapedPath, "/o/"); idx >= 0 {
		key, err := url.PathUnescape(escapedPath[idx+3:])
		if err == nil && key != "" {
			return key, true
		}
	}

	return "", false
}

func (b PublicURLBuilder) prefix() string {
	return strings.TrimRight(b.BaseURL, "/") + "/" + url.PathEscape(b.Bucket) + "/"
}
