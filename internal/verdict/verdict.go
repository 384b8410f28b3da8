package verdict

import "strings"

// Verdict is the three-way classification assigned to every ingested claim.
type Verdict string

const (
	True    Verdict = "Verdadeiro"
	False   Verdict = "Falso"
	Partial Verdict = "Parcial"
)

// falseTerms is checked before trueTerms: a rating that mentions both
// ("falso, com partes verdadeiras") must land on the conservative side.
// Portuguese gendered forms are matched by stem (enganos-, verdadeir-).
var falseTerms = []string{
	"falso", "falsa", "false", "fake", "mentira", "incorrect", "incorrecto", "faux", "enganos",
}

var trueTerms = []string{
	"verdadeir", "true", "correct", "correto", "vrai", "autêntico",
}

// Classify maps a free-text rating phrase, in any of the supported languages,
// to a Verdict. Text with no recognized term falls back to Partial.
func Classify(text string) Verdict {
	lower := strings.ToLower(text)
	for _, term := range falseTerms {
		if strings.Contains(lower, term) {
			return False
		}
	}
	for _, term := range trueTerms {
		if strings.Contains(lower, term) {
			return True
		}
	}
	return Partial
}
