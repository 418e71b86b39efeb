package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

// Latin-script words are matched as whole words after CleanText.
var blockedWords = []string{
	"fuck",
	"shit",
	"bitch",
	"bastard",
	"asshole",
	"dick",
	"cunt",
	"slut",
	"whore",
	"retard",
}

// Thai is written without spaces, so these are matched as substrings of
// the lower-cased input.
var blockedSubstrings = []string{
	"เหี้ย",
	"ควย",
	"สัส",
	"แตด",
	"เยส",
	"เย็ด",
	"สัด",
	"เงี่ยน",
	"หี",
}

var (
	spaceRegex   = regexp.MustCompile(`\s+`)
	obfuscations = strings.NewReplacer(
		"@", "a",
		"4", "a",
		"3", "e",
		"!", "i",
		"1", "i",
		"0", "o",
		"$", "s",
		"5", "s",
		"7", "t",
		"+", "t",
	)
)

// CleanText lower-cases text, undoes common character substitutions,
// replaces non-letters with spaces and collapses repeated letters.
func CleanText(text string) string {
	cleaned := obfuscations.Replace(strings.ToLower(text))

	var b strings.Builder
	for _, r := range cleaned {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	cleaned = collapseRepeats(b.String())
	return strings.TrimSpace(spaceRegex.ReplaceAllString(cleaned, " "))
}

// collapseRepeats reduces runs of the same letter to one ("fuuuck" -> "fuck").
func collapseRepeats(text string) string {
	var b strings.Builder
	var last rune
	lastWasLetter := false
	for _, r := range text {
		isLetter := unicode.IsLetter(r)
		if isLetter && lastWasLetter && r == last {
			continue
		}
		b.WriteRune(r)
		last = r
		lastWasLetter = isLetter
	}
	return b.String()
}

// ContainsInappropriate reports whether text contains a blocked word and
// returns the matches.
func ContainsInappropriate(text string) (bool, []string) {
	var matched []string

	lower := strings.ToLower(text)
	for _, s := range blockedSubstrings {
		if strings.Contains(lower, s) {
			matched = append(matched, s)
		}
	}

	words := strings.Fields(CleanText(text))
	for _, blocked := range blockedWords {
		canonical := collapseRepeats(blocked)
		for _, w := range words {
			if w == canonical {
				matched = append(matched, blocked)
				break
			}
		}
	}
	return len(matched) > 0, matched
}

// CheckContent returns a validation error naming field when text is not
// acceptable for publishing.
func CheckContent(field, text string) error {
	if bad, _ := ContainsInappropriate(text); bad {
		return &utils.ValidationError{Field: field, Message: "Please keep the language polite"}
	}
	return nil
}
