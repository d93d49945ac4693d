package model

import (
	"fmt"
	"strings"
)

// LabelExport is the serialized label decoder: class labels by index.
type LabelExport struct {
	Classes []string `json:"classes"`
}

// LabelDecoder maps class indexes to labels.
type LabelDecoder struct {
	classes []string
	index   map[string]int
}

// NewLabelDecoder validates the class list. Labels must be unique and
// non-empty; comparison for uniqueness ignores case.
func NewLabelDecoder(classes []string) (*LabelDecoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("label decoder has no classes")
	}
	d := &LabelDecoder{
		classes: append([]string(nil), classes...),
		index:   make(map[string]int, len(classes)),
	}
	for i, c := range classes {
		if strings.TrimSpace(c) == "" {
			return nil, fmt.Errorf("class %d is empty", i)
		}
		key := strings.ToLower(c)
		if _, dup := d.index[key]; dup {
			return nil, fmt.Errorf("duplicate class %q", c)
		}
		d.index[key] = i
	}
	return d, nil
}

// Decode returns the label for a class index.
func (d *LabelDecoder) Decode(index int) (string, error) {
	if index < 0 || index >= len(d.classes) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", index, len(d.classes))
	}
	return d.classes[index], nil
}

// Encode returns the index of label, ignoring case.
func (d *LabelDecoder) Encode(label string) (int, error) {
	i, ok := d.index[strings.ToLower(label)]
	if !ok {
		return 0, fmt.Errorf("unknown label %q", label)
	}
	return i, nil
}

// Classes returns the labels in index order.
func (d *LabelDecoder) Classes() []string {
	return append([]string(nil), d.classes...)
}

// Len returns the number of classes.
func (d *LabelDecoder) Len() int { return len(d.classes) }
