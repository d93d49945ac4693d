package scan

import (
	"net/url"
	"strings"

	"scanner_server/core/domain"
)

// DefaultOverrideConfidence is the confidence reported for an overridden verdict.
const DefaultOverrideConfidence = 95.0

// DefaultTrustedDomains are well-known domains whose URLs are never flagged.
var DefaultTrustedDomains = []string{
	"google.com", "www.google.com",
	"youtube.com", "www.youtube.com",
	"facebook.com", "www.facebook.com",
	"netflix.com", "www.netflix.com",
	"amazon.com", "www.amazon.com",
	"github.com", "www.github.com",
	"microsoft.com", "www.microsoft.com",
	"apple.com", "www.apple.com",
	"linkedin.com", "www.linkedin.com",
	"twitter.com", "www.twitter.com",
	"stackoverflow.com", "www.stackoverflow.com",
	"wikipedia.org", "www.wikipedia.org",
}

// =============================================================================
// Trust List
// =============================================================================

// TrustList is an immutable set of trusted domains.
type TrustList struct {
	domains map[string]struct{}
}

// NewTrustList normalizes and stores domains. Empty entries are ignored.
func NewTrustList(domains []string) *TrustList {
	t := &TrustList{domains: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" {
			continue
		}
		t.domains[d] = struct{}{}
	}
	return t
}

// DefaultTrustList returns the built-in list.
func DefaultTrustList() *TrustList {
	return NewTrustList(DefaultTrustedDomains)
}

// Contains reports whether hostname or any of its parent domains is trusted.
// mail.google.com matches google.com; evilgoogle.com does not.
func (t *TrustList) Contains(hostname string) bool {
	if t == nil || len(t.domains) == 0 {
		return false
	}
	h := strings.Trim(strings.ToLower(hostname), ".")
	for h != "" {
		if _, ok := t.domains[h]; ok {
			return true
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			return false
		}
		h = h[i+1:]
	}
	return false
}

// Len returns the number of trusted domains.
func (t *TrustList) Len() int {
	if t == nil {
		return 0
	}
	return len(t.domains)
}

// =============================================================================
// Trust Override
// =============================================================================

// TrustOverride replaces a non-benign raw label with benign for trusted hosts.
type TrustOverride struct {
	list       *TrustList
	confidence float64
}

// NewTrustOverride builds an override. A non-positive confidence selects the default.
func NewTrustOverride(list *TrustList, confidence float64) *TrustOverride {
	if list == nil {
		list = DefaultTrustList()
	}
	if confidence <= 0 || confidence > 100 {
		confidence = DefaultOverrideConfidence
	}
	return &TrustOverride{list: list, confidence: confidence}
}

// Apply returns the final label and confidence for rawURL. The raw values
// are returned unchanged unless the host is trusted and the raw label is
// not already benign.
func (o *TrustOverride) Apply(rawURL, rawLabel string, rawConfidence float64) (string, float64, bool) {
	if domain.IsBenign(rawLabel) {
		return rawLabel, rawConfidence, false
	}
	host, ok := trustHostname(rawURL)
	if !ok || !o.list.Contains(host) {
		return rawLabel, rawConfidence, false
	}
	return domain.LabelBenign, o.confidence, true
}

// Confidence returns the confidence assigned to overridden verdicts.
func (o *TrustOverride) Confidence() float64 {
	return o.confidence
}

func trustHostname(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	return host, host != ""
}
