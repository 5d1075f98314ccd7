package locale

import (
	"golang.org/x/text/language"
)

// Supported are the languages results can be recorded in
var Supported = []language.Tag{
	language.English,
	language.Hindi,
	language.Marathi,
}

var matcher = language.NewMatcher(Supported)

// Resolve picks the supported language closest to requested. Blank or
// unparseable requests, and requests with no reasonable match, resolve to
// fallback.
func Resolve(requested, fallback string) string {
	if requested == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(requested)
	if err != nil || len(tags) == 0 {
		return fallback
	}

	_, index, confidence := matcher.Match(tags...)
	if confidence < language.High {
		return fallback
	}
	return Supported[index].String()
}
