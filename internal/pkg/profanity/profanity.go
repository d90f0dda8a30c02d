/*
Package profanity provides the predicate used to reject offensive chat text.

It wraps the go-away detector so the chat layer only sees a single IsProfane method,
and lets operators extend the default dictionary through configuration.
*/
package profanity

import (
	"strings"

	goaway "github.com/TwiN/go-away"
)

// Filter reports whether text contains profanity. It is safe for concurrent use.
type Filter struct {
	detector *goaway.ProfanityDetector
}

// New builds a Filter on the default dictionary plus extraWords.
func New(extraWords []string) *Filter {
	detector := goaway.NewProfanityDetector()

	if len(extraWords) > 0 {
		words := make([]string, 0, len(goaway.DefaultProfanities)+len(extraWords))
		words = append(words, goaway.DefaultProfanities...)
		for _, w := range extraWords {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				words = append(words, w)
			}
		}

		detector = detector.WithCustomDictionary(words, goaway.DefaultFalsePositives, goaway.DefaultFalseNegatives)
	}

	return &Filter{detector: detector}
}

// IsProfane reports whether text is flagged.
func (f *Filter) IsProfane(text string) bool {
	return f.detector.IsProfane(text)
}
