package photos

import "strings"

// DefaultCDNBase is the origin photos are served from.
const DefaultCDNBase = "https://d3rolodexphotos.cloudfront.net"

// DefaultCDN serves keys from DefaultCDNBase.
var DefaultCDN = CDN{Base: DefaultCDNBase}

// CDN derives display URLs from storage keys.
type CDN struct {
	Base string
}

// URL returns Base + "/" + the percent encoded key, or "" for an empty key.
// Slashes in the key are encoded too, so the key travels as one path segment.
func (c CDN) URL(key string) string {
	if key == "" {
		return ""
	}
	base := c.Base
	if base == "" {
		base = DefaultCDNBase
	}
	return strings.TrimSuffix(base, "/") + "/" + encodeURIComponent(key)
}

// CDNURL is DefaultCDN.URL.
func CDNURL(key string) string {
	return DefaultCDN.URL(key)
}

// StorageKey is the canonical object key of a user's private photo.
func StorageKey(filename, identityID string) string {
	return "private/" + identityID + "/" + filename
}

const upperhex = "0123456789ABCDEF"

// encodeURIComponent escapes every byte except A-Z a-z 0-9 and - _ . ! ~ * ' ( ).
func encodeURIComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
