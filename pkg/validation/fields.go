package validation

import (
	"html"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Error is the typed result returned by the field validators below.
// Validators never panic on malformed input.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string { return e.Field + ": " + e.Reason }

func invalid(field, reason string) *Error { return &Error{Field: field, Reason: reason} }

// fieldChecker is a standalone validator instance for single-value checks,
// separate from the one wired into Gin's binding by Init.
var fieldChecker = validator.New()

var (
	personNameRx = regexp.MustCompile(`^[\p{L}\s'-]+$`)
	spacesRx     = regexp.MustCompile(`\s+`)
	taxIDRx      = regexp.MustCompile(`^[A-Za-z]{6}[0-9]{2}[ABCDEHLMPRSTabcdehlmprst][0-9]{2}[A-Za-z][0-9]{3}[A-Za-z]$`)
	vatNumberRx  = regexp.MustCompile(`^[0-9]{11}$`)
	phoneRx      = regexp.MustCompile(`^[0-9]{10}$`)
)

const (
	personNameMinLen = 2
	personNameMaxLen = 50

	ageMin = 18
	ageMax = 120
)

// PersonName normalizes and validates a surname or given name. The input is
// trimmed, typographic apostrophes are folded to ', and internal whitespace is
// collapsed to single spaces. The cleaned string must be 2-50 runes of Unicode
// letters, spaces, apostrophes and hyphens. With titleCase the first letter of
// every word is capitalized (a word starts after any non-letter, so O'Brien and
// Jean-Luc come out as expected); otherwise the result is lowercased.
// PersonName is idempotent on its own output.
func PersonName(input string, titleCase bool) (string, error) {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, "’", "'")
	s = spacesRx.ReplaceAllString(s, " ")

	if !personNameRx.MatchString(s) {
		return "", invalid("name", "only letters, spaces, apostrophes and hyphens are allowed")
	}
	if n := utf8.RuneCountInString(s); n < personNameMinLen || n > personNameMaxLen {
		return "", invalid("name", "must be between 2 and 50 characters")
	}

	if !titleCase {
		return strings.ToLower(s), nil
	}

	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String(), nil
}

// accentFolder maps the accented vowels that show up in Italian addresses to
// their plain ASCII equivalents, for storage normalization of emails.
var accentFolder = strings.NewReplacer(
	"à", "a", "á", "a", "è", "e", "é", "e", "ì", "i", "í", "i",
	"ò", "o", "ó", "o", "ù", "u", "ú", "u",
	"À", "a", "Á", "a", "È", "e", "É", "e", "Ì", "i", "Í", "i",
	"Ò", "o", "Ó", "o", "Ù", "u", "Ú", "u",
)

// CheckEmailSyntax validates email syntax without normalizing, for live
// verification of an address the user just typed.
func CheckEmailSyntax(input string) error {
	s := strings.TrimSpace(input)
	if err := fieldChecker.Var(s, "required,email"); err != nil {
		return invalid("email", "invalid email address")
	}
	return nil
}

// NormalizeEmail validates syntax and returns the storage form of the address:
// accents folded to ASCII, lowercased, at most maxLen characters. Idempotent.
func NormalizeEmail(input string, maxLen int) (string, error) {
	if err := CheckEmailSyntax(input); err != nil {
		return "", err
	}
	s := strings.ToLower(accentFolder.Replace(strings.TrimSpace(input)))
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		return "", invalid("email", "address too long")
	}
	return s, nil
}

// DateMode selects the age constraint applied by BirthDate.
type DateMode int

const (
	// DateUnbounded only requires a real calendar date.
	DateUnbounded DateMode = iota
	// DateBounded additionally requires the derived age to lie in (18, 120].
	DateBounded
)

// BirthDate parses a strict YYYY-MM-DD date. Round-tripping through Format
// rejects non-existent dates such as 2001-02-30, which time.Parse would
// otherwise normalize.
func BirthDate(input string, mode DateMode, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(input)
	t, err := time.Parse("2006-01-02", s)
	if err != nil || t.Format("2006-01-02") != s {
		return time.Time{}, invalid("date_of_birth", "not a valid date (use YYYY-MM-DD)")
	}
	if mode == DateBounded {
		years := now.Year() - t.Year()
		if years <= ageMin || years > ageMax {
			return time.Time{}, invalid("date_of_birth", "age outside the allowed range")
		}
	}
	return t, nil
}

// FormatDate renders a date back in the canonical zero-padded form.
func FormatDate(t time.Time) string { return t.Format("2006-01-02") }

// Adulthood classifies a person relative to the age of majority.
type Adulthood int

const (
	Minor Adulthood = iota
	Adult
)

func (a Adulthood) String() string {
	if a == Adult {
		return "ADULT"
	}
	return "MINOR"
}

// AdultStatus compares the birth date against now minus 18 years at day
// granularity. Turning 18 today already counts as Adult.
func AdultStatus(birth, now time.Time) Adulthood {
	thresholdYear := now.Year() - ageMin
	switch {
	case birth.Year() < thresholdYear:
		return Adult
	case birth.Year() > thresholdYear:
		return Minor
	}
	switch {
	case int(birth.Month()) < int(now.Month()):
		return Adult
	case int(birth.Month()) > int(now.Month()):
		return Minor
	}
	if birth.Day() <= now.Day() {
		return Adult
	}
	return Minor
}

// Level checks the enumerated member level.
func Level(v int) error {
	if v < 1 || v > 5 {
		return invalid("level", "must be an integer between 1 and 5")
	}
	return nil
}

// TaxID validates the syntactic shape of an Italian codice fiscale and
// returns it uppercased.
func TaxID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if !taxIDRx.MatchString(s) {
		return "", invalid("tax_id", "invalid tax code")
	}
	return strings.ToUpper(s), nil
}

// VATNumber validates an 11-digit Italian partita IVA.
func VATNumber(input string) (string, error) {
	s := strings.TrimSpace(input)
	if !vatNumberRx.MatchString(s) {
		return "", invalid("vat_number", "invalid VAT number")
	}
	return s, nil
}

// PhoneNumber validates a 10-digit national phone number.
func PhoneNumber(input string) (string, error) {
	s := strings.TrimSpace(input)
	if !phoneRx.MatchString(s) {
		return "", invalid("phone", "invalid phone number")
	}
	return s, nil
}

// SanitizeHTML escapes the HTML-significant characters in strings so values
// read back from storage can be embedded in markup. Maps and slices are walked
// recursively; non-string values pass through unchanged.
func SanitizeHTML(v any) any {
	switch x := v.(type) {
	case string:
		return html.EscapeString(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = SanitizeHTML(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = SanitizeHTML(val)
		}
		return out
	case []string:
		out := make([]string, len(x))
		for i, s := range x {
			out[i] = html.EscapeString(s)
		}
		return out
	default:
		return v
	}
}
