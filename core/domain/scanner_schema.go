package domain

// SchemaDiff describes how a list of feature names deviates from the
// expected schema.
type SchemaDiff struct {
	Missing    []string
	Unexpected []string
	OutOfOrder []string
}

// Empty reports whether the two schemas were identical.
func (d SchemaDiff) Empty() bool {
	return len(d.Missing) == 0 && len(d.Unexpected) == 0 && len(d.OutOfOrder) == 0
}

// DiffSchema compares got against want. Duplicated names count as unexpected.
func DiffSchema(got, want []string) SchemaDiff {
	var d SchemaDiff
	if equalNames(got, want) {
		return d
	}

	wanted := make(map[string]struct{}, len(want))
	for _, n := range want {
		wanted[n] = struct{}{}
	}

	seen := make(map[string]struct{}, len(got))
	var common []string
	for _, n := range got {
		if _, ok := wanted[n]; !ok {
			d.Unexpected = append(d.Unexpected, n)
			continue
		}
		if _, dup := seen[n]; dup {
			d.Unexpected = append(d.Unexpected, n)
			continue
		}
		seen[n] = struct{}{}
		common = append(common, n)
	}

	var expected []string
	for _, n := range want {
		if _, ok := seen[n]; ok {
			expected = append(expected, n)
		} else {
			d.Missing = append(d.Missing, n)
		}
	}

	// common and expected hold the same names; differing positions are out of order.
	for i := range common {
		if common[i] != expected[i] {
			d.OutOfOrder = append(d.OutOfOrder, common[i])
		}
	}
	return d
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
