package geo

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ValidZip reports whether s is exactly five ASCII digits.
func ValidZip(s string) bool {
	if len(s) != 5 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ValidStateAbbr reports whether s looks like a two-letter state
// abbreviation, in either case.
func ValidStateAbbr(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

// NormalizeStateAbbr upper-cases a state abbreviation.
func NormalizeStateAbbr(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeFIPSCounty zero-pads a combined state+county FIPS code to five
// digits. Crosswalk loaders that pass the code through a numeric column
// drop the leading zero ("1001" for Autauga, AL).
func NormalizeFIPSCounty(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	return padLeft(code, 5)
}

func padLeft(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

// NormalizeName canonicalizes free-text place names and search queries:
// NFC composition, trimmed, inner whitespace collapsed.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// FoldName returns the case-folded form of a normalized name for
// case-insensitive comparison.
func FoldName(s string) string {
	return cases.Fold().String(NormalizeName(s))
}
