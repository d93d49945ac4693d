package scan

import (
	"testing"
)

func TestTrustList_Contains(t *testing.T) {
	list := DefaultTrustList()

	tests := []struct {
		host string
		want bool
	}{
		{"google.com", true},
		{"www.google.com", true},
		{"mail.google.com", true},
		{"GOOGLE.COM", true},
		{"google.com.", true},
		{"evilgoogle.com", false},
		{"google.com.evil.net", false},
		{"example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := list.Contains(tt.host); got != tt.want {
				t.Errorf("Contains(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}

	if got := list.Len(); got != 24 {
		t.Errorf("default list has %d domains, want 24", got)
	}
}

func TestTrustList_Custom(t *testing.T) {
	list := NewTrustList([]string{" Example.ORG ", "", "."})
	if list.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", list.Len())
	}
	if !list.Contains("docs.example.org") {
		t.Error("subdomain of custom entry should be trusted")
	}
	if list.Contains("google.com") {
		t.Error("custom list must replace defaults")
	}
}

func TestTrustOverride_Apply(t *testing.T) {
	o := NewTrustOverride(DefaultTrustList(), 0)

	tests := []struct {
		name           string
		url            string
		rawLabel       string
		rawConfidence  float64
		wantLabel      string
		wantConfidence float64
		wantOverridden bool
	}{
		{"trusted phishing", "https://www.google.com/accounts", "phishing", 80, "benign", 95, true},
		{"trusted subdomain", "https://docs.github.com", "malware", 60, "benign", 95, true},
		{"trusted already benign", "https://www.google.com", "benign", 70, "benign", 70, false},
		{"benign label case-insensitive", "https://www.google.com", "Benign", 70, "Benign", 70, false},
		{"untrusted", "http://evil.com", "phishing", 80, "phishing", 80, false},
		{"lookalike", "http://evilgoogle.com", "phishing", 80, "phishing", 80, false},
		{"unparseable", "http://[::1", "phishing", 80, "phishing", 80, false},
		{"no host", "google.com", "phishing", 80, "phishing", 80, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, conf, overridden := o.Apply(tt.url, tt.rawLabel, tt.rawConfidence)
			if label != tt.wantLabel || conf != tt.wantConfidence || overridden != tt.wantOverridden {
				t.Errorf("Apply() = (%s, %v, %v), want (%s, %v, %v)",
					label, conf, overridden, tt.wantLabel, tt.wantConfidence, tt.wantOverridden)
			}
		})
	}
}

func TestTrustOverride_Confidence(t *testing.T) {
	if got := NewTrustOverride(nil, 0).Confidence(); got != DefaultOverrideConfidence {
		t.Errorf("default confidence = %v", got)
	}
	if got := NewTrustOverride(nil, 99).Confidence(); got != 99 {
		t.Errorf("custom confidence = %v", got)
	}
	if got := NewTrustOverride(nil, 150).Confidence(); got != DefaultOverrideConfidence {
		t.Errorf("out of range confidence = %v", got)
	}
}
