// Package scan implements the URL scanning pipeline: lexical feature
// extraction, classifier inference, trusted-domain override and verdict
// assembly.
package scan

import (
	"net"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"scanner_server/core/domain"

	"golang.org/x/net/publicsuffix"
)

// =============================================================================
// Pattern tables
// =============================================================================

var (
	// Two dotted quads separated by a slash, as the training set encoded IP hosts.
	ipPattern = regexp.MustCompile(
		`(([01]?\d\d?|2[0-4]\d|25[0-5])\.([01]?\d\d?|2[0-4]\d|25[0-5])\.([01]?\d\d?|2[0-4]\d|25[0-5])\.` +
			`([01]?\d\d?|2[0-4]\d|25[0-5])\/([01]?\d\d?|2[0-4]\d|25[0-5])\.([01]?\d\d?|2[0-4]\d|25[0-5])\.` +
			`([01]?\d\d?|2[0-4]\d|25[0-5])\.([01]?\d\d?|2[0-4]\d|25[0-5]))`)

	shortenerPattern = regexp.MustCompile(
		`bit\.ly|goo\.gl|shorte\.st|go2l\.ink|x\.co|ow\.ly|t\.co|tinyurl|tr\.im|is\.gd|cli\.gs|` +
			`yfrog\.com|migre\.me|ff\.im|tiny\.cc|url4\.eu|twit\.ac|su\.pr|twurl\.nl|snipurl\.com|` +
			`short\.to|BudURL\.com|ping\.fm|post\.ly|Just\.as|bkite\.com|snipr\.com|fic\.kr|loopt\.us|` +
			`doiop\.com|short\.ie|kl\.am|wp\.me|rubyurl\.com|om\.ly|to\.ly|bit\.do|t\.co|lnkd\.in|` +
			`db\.tt|qr\.ae|adf\.ly|goo\.gl|bitly\.com|cur\.lv|tinyurl\.com|ow\.ly|bit\.ly|ity\.im|` +
			`q\.gs|is\.gd|po\.st|bc\.vc|twitthis\.com|u\.to|j\.mp|buzurl\.com|cutt\.us|u\.bb|yourls\.org|` +
			`x\.co|prettylinkpro\.com|scrnch\.me|filoops\.info|vzturl\.com|qr\.net|1url\.com|tweez\.me|v\.gd|` +
			`tr\.im|link\.zip\.net`)

	suspiciousPattern = regexp.MustCompile(
		`PayPal|login|signin|bank|account|update|free|lucky|service|bonus|ebayisapi|webscr`)
)

// =============================================================================
// Extractor
// =============================================================================

// SuffixFunc returns the public suffix of a hostname and whether one was found.
type SuffixFunc func(hostname string) (string, bool)

// Extractor derives URLFeatures from a raw URL string. It is stateless and
// safe for concurrent use.
type Extractor struct {
	suffix SuffixFunc
}

// NewExtractor returns an extractor backed by the public suffix list.
func NewExtractor() *Extractor {
	return &Extractor{suffix: publicSuffix}
}

// NewExtractorWithSuffix returns an extractor using a custom suffix lookup.
func NewExtractorWithSuffix(fn SuffixFunc) *Extractor {
	if fn == nil {
		fn = publicSuffix
	}
	return &Extractor{suffix: fn}
}

// urlParts is the subset of a split URL the features look at. Every part is
// a raw substring of the input; nothing is decoded or re-encoded.
type urlParts struct {
	scheme string
	netloc string
	path   string
}

// Extract never fails. A part of the URL that cannot be recovered yields the
// zero default for the features that depend on it, and only those.
func (e *Extractor) Extract(rawURL string) domain.URLFeatures {
	f := domain.URLFeatures{
		URLLength:        utf8.RuneCountInString(rawURL),
		CountAt:          strings.Count(rawURL, "@"),
		CountQuestion:    strings.Count(rawURL, "?"),
		CountHyphen:      strings.Count(rawURL, "-"),
		CountEquals:      strings.Count(rawURL, "="),
		CountDot:         strings.Count(rawURL, "."),
		CountHash:        strings.Count(rawURL, "#"),
		CountPercent:     strings.Count(rawURL, "%"),
		CountPlus:        strings.Count(rawURL, "+"),
		CountDollar:      strings.Count(rawURL, "$"),
		CountExclamation: strings.Count(rawURL, "!"),
		CountAsterisk:    strings.Count(rawURL, "*"),
		CountComma:       strings.Count(rawURL, ","),
		CountSlashes:     strings.Count(rawURL, "//"),
		CountWWW:         strings.Count(rawURL, "www"),
		HasIP:            flag(ipPattern.MatchString(rawURL)),
		ShortURL:         flag(shortenerPattern.MatchString(rawURL)),
		Suspicious:       flag(suspiciousPattern.MatchString(rawURL)),
		AbnormalURL:      1,
	}
	f.CountLetters, f.CountDigits = countLettersDigits(rawURL)

	parts := splitURL(rawURL)

	f.HTTPS = flag(parts.scheme == "https")
	f.CountDir = strings.Count(parts.path, "/")
	f.CountEmbedDomain = strings.Count(parts.path, "//")
	f.FirstDirLength = firstDirLength(parts.path)

	if hostname, ok := hostnameOf(parts.netloc); ok {
		f.HostnameLength = utf8.RuneCountInString(hostname)
		f.AbnormalURL = flag(!strings.Contains(rawURL, hostname))
		if n, ok := e.suffixLength(hostname); ok {
			f.TLDLength = n
		}
	}

	return f
}

// Vector extracts features and returns them in canonical classifier order.
func (e *Extractor) Vector(rawURL string) domain.FeatureVector {
	return e.Extract(rawURL).Vector()
}

// paramSchemes are the schemes whose last path segment may carry ";params",
// which are not part of the path.
var paramSchemes = map[string]bool{
	"": true, "ftp": true, "hdl": true, "prospero": true, "http": true, "imap": true,
	"https": true, "shttp": true, "rtsp": true, "rtspu": true, "sip": true, "sips": true,
	"mms": true, "sftp": true, "tel": true,
}

// splitURL splits rawURL into scheme, authority and path without validating
// any of them. Escapes, ports and characters net/url rejects are kept as
// they are; only the boundaries between parts matter.
func splitURL(rawURL string) urlParts {
	s := strings.TrimLeftFunc(rawURL, func(r rune) bool { return r <= ' ' })
	s = strings.NewReplacer("\t", "", "\r", "", "\n", "").Replace(s)

	var p urlParts
	if i := strings.IndexByte(s, ':'); i > 0 && isSchemeStart(s[0]) && isScheme(s[:i]) {
		p.scheme = strings.ToLower(s[:i])
		s = s[i+1:]
	}

	if strings.HasPrefix(s, "//") {
		s = s[2:]
		end := strings.IndexAny(s, "/?#")
		if end < 0 {
			end = len(s)
		}
		p.netloc, s = s[:end], s[end:]
	}

	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if paramSchemes[p.scheme] {
		s = stripParams(s)
	}
	p.path = s
	return p
}

// stripParams drops ";params" from the last path segment.
func stripParams(path string) string {
	from := 0
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		from = i
	}
	if i := strings.IndexByte(path[from:], ';'); i >= 0 {
		return path[:from+i]
	}
	return path
}

func isSchemeStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isSchemeStart(c) && !(c >= '0' && c <= '9') && c != '+' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

// hostnameOf extracts the lower-cased host from an authority, dropping
// userinfo and port. A bracketed host must be a valid IP literal.
func hostnameOf(netloc string) (string, bool) {
	if netloc == "" {
		return "", false
	}
	if strings.Contains(netloc, "[") != strings.Contains(netloc, "]") {
		return "", false
	}

	host := netloc
	if i := strings.LastIndexByte(host, '@'); i >= 0 {
		host = host[i+1:]
	}

	if i := strings.IndexByte(host, '['); i >= 0 {
		host = host[i+1:]
		if j := strings.IndexByte(host, ']'); j >= 0 {
			host = host[:j]
		}
		if k := strings.IndexByte(host, '%'); k >= 0 {
			host = host[:k]
		}
		if net.ParseIP(host) == nil {
			return "", false
		}
	} else if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	host = strings.ToLower(host)
	return host, host != ""
}

func (e *Extractor) suffixLength(hostname string) (int, bool) {
	if net.ParseIP(hostname) != nil {
		return 0, false
	}
	suffix, ok := e.suffix(hostname)
	if !ok || suffix == "" {
		return 0, false
	}
	return utf8.RuneCountInString(suffix), true
}

// publicSuffix resolves hostname against the public suffix list. Hosts whose
// last label is not a listed rule are reported as unresolved.
func publicSuffix(hostname string) (string, bool) {
	hostname = strings.TrimSuffix(hostname, ".")
	if hostname == "" {
		return "", false
	}
	suffix, icann := publicsuffix.PublicSuffix(hostname)
	if !icann && !strings.Contains(suffix, ".") {
		return "", false
	}
	return suffix, true
}

func firstDirLength(path string) int {
	segments := strings.Split(path, "/")
	if len(segments) < 2 {
		return 0
	}
	return utf8.RuneCountInString(segments[1])
}

func countLettersDigits(s string) (letters, digits int) {
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	return letters, digits
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
