package session

import (
	"errors"
	"strings"
	"unicode"

	"github.com/kontrolhq/kontrol-backend/internal/model"
)

// Identity gate errors. Both are user-correctable: the gate re-prompts with
// no retry limit.
var (
	ErrNameIncomplete = errors.New("full name must contain at least two words")
	ErrClassEmpty     = errors.New("class name must not be empty")
)

// maxNameTokens bounds the accepted name to surname/name/patronymic.
const maxNameTokens = 3

// maxClassRunes bounds the class label to prevent storage/display abuse.
const maxClassRunes = 6

// NormText trims and collapses internal whitespace.
func NormText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(word string) string {
	runes := []rune(strings.ToLower(word))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// NormalizeFullName collapses whitespace, keeps at most three tokens and
// capitalizes each for display consistency ("  ковалева   светлана " →
// "Ковалева Светлана"). The result may still be invalid; see
// ValidateFullName.
func NormalizeFullName(raw string) string {
	tokens := strings.Fields(raw)
	if len(tokens) > maxNameTokens {
		tokens = tokens[:maxNameTokens]
	}
	for i, t := range tokens {
		tokens[i] = capitalize(t)
	}
	return strings.Join(tokens, " ")
}

// NormalizeClassName strips all whitespace, upper-cases and truncates the
// class label ("10а" → "10А").
func NormalizeClassName(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	runes := []rune(b.String())
	if len(runes) > maxClassRunes {
		runes = runes[:maxClassRunes]
	}
	return string(runes)
}

// ValidateFullName normalizes and validates a raw name input. Single-token
// input is rejected.
func ValidateFullName(raw string) (string, error) {
	name := NormalizeFullName(raw)
	if len(strings.Fields(name)) < 2 {
		return "", ErrNameIncomplete
	}
	return name, nil
}

// NewIdentity builds a normalized Identity from raw form input.
func NewIdentity(rawName, rawClass string) (*model.Identity, error) {
	name, err := ValidateFullName(rawName)
	if err != nil {
		return nil, err
	}
	class := NormalizeClassName(rawClass)
	if class == "" {
		return nil, ErrClassEmpty
	}
	return &model.Identity{FullName: name, ClassName: class}, nil
}
