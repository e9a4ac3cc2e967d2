package storage

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
)

// CanonicalURL lowercases scheme and host, drops the fragment and a trailing
// slash, and sorts query parameters. Unparseable input is only trimmed.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}
	if u.Path == "/" {
		u.Path = ""
	}
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}
	return u.String()
}

// URLHash is the dedup key stored alongside the raw url.
func URLHash(raw string) string {
	sum := md5.Sum([]byte(CanonicalURL(raw)))
	return hex.EncodeToString(sum[:])
}
