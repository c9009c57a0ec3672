// Package strings provides string list helpers shared by configuration and
// the dashboard option lists.
package strings

import (
	"slices"
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  national_wk ", "manual_wk", "national_wk", ""})
//	// Returns: []string{"national_wk", "manual_wk"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// SplitList splits a comma-separated list and applies DedupeAndTrim.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(raw, ","))
}

// Options returns first followed by the sorted distinct non-empty values.
//
// Example:
//
//	Options("All Regions", []string{"Volta", "", "Ashanti", "Volta"})
//	// Returns: []string{"All Regions", "Ashanti", "Volta"}
func Options(first string, values []string) []string {
	distinct := DedupeAndTrim(values)
	slices.Sort(distinct)
	return append([]string{first}, distinct...)
}
