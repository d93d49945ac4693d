package config

import (
	"fmt"
	"os"
	"strings"

	"scanner_server/core/domain"

	"gopkg.in/yaml.v3"
)

// TrustListFile is the YAML layout of TRUST_LIST_FILE.
//
//	confidence: 95
//	domains:
//	  - google.com
//	  - github.com
type TrustListFile struct {
	Confidence float64  `yaml:"confidence"`
	Domains    []string `yaml:"domains"`
}

// LoadTrustList reads a trust list file. An empty domain list is an error:
// an empty file would silently disable the override.
func LoadTrustList(path string) (*TrustListFile, error) {
	var f TrustListFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	var domains []string
	for _, d := range f.Domains {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	if len(domains) == 0 {
		return nil, fmt.Errorf("trust list %s has no domains", path)
	}
	f.Domains = domains
	if f.Confidence < 0 || f.Confidence > 100 {
		return nil, fmt.Errorf("trust list %s: confidence %v out of range", path, f.Confidence)
	}
	return &f, nil
}

// BatchCasesFile is the YAML layout of a batch case file.
//
//	cases:
//	  - url: https://www.google.com
//	    expect: benign
type BatchCasesFile struct {
	Cases []domain.BatchCase `yaml:"cases"`
}

// LoadBatchCases reads validation cases from a YAML file.
func LoadBatchCases(path string) ([]domain.BatchCase, error) {
	var f BatchCasesFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	if len(f.Cases) == 0 {
		return nil, fmt.Errorf("batch file %s has no cases", path)
	}
	for i, c := range f.Cases {
		if strings.TrimSpace(c.URL) == "" {
			return nil, fmt.Errorf("batch file %s: case %d has no url", path, i)
		}
		if c.Expect == "" {
			f.Cases[i].Expect = domain.ExpectMalicious
		}
	}
	return f.Cases, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
