// Package urlutil provides URL normalization, domain matching, and
// downloadable-file detection for the crawler and discovery engine.
package urlutil

import (
	"net/url"
	"strings"
)

// DownloadableExtensions are the file extensions treated as tabular
// downloads during discovery.
var DownloadableExtensions = []string{".pdf", ".xlsx", ".xls", ".csv"}

// Normalize canonicalizes a URL for consistent comparison: lowercases the
// scheme and host, drops default ports, strips the fragment and any
// trailing slash. The query string is kept.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" {
		if !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
			host += ":" + port
		}
	}

	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		path = "/"
	}

	out := url.URL{Scheme: scheme, Host: host, Path: path, RawQuery: u.RawQuery}
	return out.String()
}

// BaseURL returns scheme://host for a full URL.
func BaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Domain returns the hostname of a URL, e.g. "www.agmarknet.gov.in".
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// RootDomain returns the last two labels of the hostname, used for
// subdomain matching. Both sides of an internal-link comparison pass
// through here, so multi-part TLDs still compare consistently.
func RootDomain(raw string) string {
	domain := Domain(raw)
	parts := strings.Split(domain, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return domain
}

// IsInternal reports whether link (possibly relative) resolves to the same
// root domain as base.
func IsInternal(link, base string) bool {
	if link == "" {
		return false
	}
	return RootDomain(Resolve(link, base)) == RootDomain(base)
}

// Resolve resolves a possibly-relative link against a base URL.
func Resolve(link, base string) string {
	b, err := url.Parse(base)
	if err != nil {
		return link
	}
	l, err := url.Parse(link)
	if err != nil {
		return link
	}
	return b.ResolveReference(l).String()
}

// IsDownloadable reports whether the URL path ends in a known tabular file
// extension.
func IsDownloadable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range DownloadableExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// StripQuery removes the query string and fragment from a URL.
func StripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	out := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	return out.String()
}
