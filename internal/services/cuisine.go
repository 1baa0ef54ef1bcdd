package services

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// CanonicalCuisine folds a cuisine label into the key used for equality
// checks and table lookups: NFC, collapsed whitespace, case-folded.
func CanonicalCuisine(name string) string {
	name = strings.Join(strings.Fields(norm.NFC.String(name)), " ")
	return cases.Fold().String(name)
}

// displayLabel turns an identifier such as "late_night" into "Late Night".
func displayLabel(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
