package layouts

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const appName = "Your account"

// CalculateTitle builds the document title.
func CalculateTitle(title string) string {
	if title != "" {
		return title + " - " + appName
	}
	return appName
}

// Title capitalises display labels such as provider or section names. A
// Caser keeps state, so each call gets its own.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}
