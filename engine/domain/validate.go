package domain

import (
	"math"
	"strconv"
	"strings"
)

// ValidateBrand checks that a brand record can produce a node at all.
func ValidateBrand(b BrandRecord) error {
	if strings.TrimSpace(b.Brand) == "" {
		return NewValidationError(b.Brand, "", ErrMissingBrandName)
	}
	return nil
}

// ValidateModel checks that a model record has a usable display name.
// Records failing this check are dropped with a diagnostic, not an error.
func ValidateModel(brand string, m ModelRecord) error {
	if strings.TrimSpace(m.Name) == "" {
		return NewValidationError(brand, m.Name, ErrMissingModelName)
	}
	return nil
}

// TypeLabel coerces the loosely typed type field to a label, defaulting to
// DefaultType when the value is absent, not a string, or blank.
func TypeLabel(v any) string {
	s, ok := v.(string)
	if !ok {
		return DefaultType
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultType
	}
	return s
}

// Year coerces a loosely typed year value to an int. Non-numeric values are
// treated as absent.
func Year(v any) (int, bool) {
	switch y := v.(type) {
	case float64:
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return 0, false
		}
		return int(y), true
	case int:
		return y, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(y))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// EndYear recomputes a model's end year: open-ended for current production,
// else the supplied end year, else the start year (a single-year run), else
// unknown. Returns 0 for open-ended or unknown.
func EndYear(isCurrent bool, endYear any, startYear int, haveStart bool) int {
	if isCurrent {
		return 0
	}
	if y, ok := Year(endYear); ok {
		return y
	}
	if haveStart {
		return startYear
	}
	return 0
}
