// Package strings holds small list helpers for configuration and identity data.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated setting into its trimmed, non-empty,
// distinct elements. Order is preserved; an empty input yields nil.
//
//	SplitList(" k1:9092, k2:9092,,k1:9092")
//	// []string{"k1:9092", "k2:9092"}
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return dedupe(strings.Split(s, ","), strings.TrimSpace)
}

// NormalizeNames lowercases and trims names, dropping empties and repeats.
// Group names from the identity store are compared this way.
func NormalizeNames(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
