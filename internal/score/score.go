// Package score implements the heuristic confidence model that estimates
// how likely a scraped record belongs to the target researcher.
package score

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pubgrove/scholar-cli/internal/model"
)

// Input carries everything known about one candidate at scoring time.
// Only CandidateName and TargetName are required; the institution and field
// components contribute nothing when their inputs are absent.
type Input struct {
	CandidateName      string
	TargetName         string
	ScrapedInstitution string
	TargetInstitution  string
	ScrapedText        string
	FieldOfStudy       string
}

// Scorer evaluates candidates against a fixed configuration. Score is pure:
// identical inputs always produce identical output.
type Scorer struct {
	cfg Config
}

// New creates a Scorer with the given configuration.
func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score combines name, institution, and field-of-study signals into a
// confidence in [0,1], rounded to two decimals.
//
// Name handling covers the formats sources actually emit: "Ł. Madej",
// "L. Madej", and "Lukasz Madej" for the same person. Abbreviated names are
// downgraded so an initials-only hit never scores like a spelled-out match.
func (s *Scorer) Score(in Input) float64 {
	w := s.cfg.Weights

	candidate := foldName(in.CandidateName)
	target := foldName(in.TargetName)

	parts := strings.Fields(target)
	var firstName, lastName string
	if len(parts) > 0 {
		firstName = parts[0]
		lastName = parts[len(parts)-1]
	}

	nameScore := similarity(candidate, target)

	if strings.Contains(candidate, ".") {
		switch {
		case lastName != "" && strings.Contains(candidate, lastName):
			firstInitial := ""
			if r := []rune(firstName); len(r) > 0 {
				firstInitial = string(r[0])
			}
			if firstInitial != "" && strings.Contains(candidate, firstInitial) {
				nameScore = w.InitialsWithFirst
			} else {
				nameScore = w.InitialsLastOnly
			}
		default:
			nameScore = w.InitialsNoMatch
		}
	}

	// A spelled-out full name must not be penalized by the initials rule.
	if firstName != "" && lastName != "" &&
		strings.Contains(candidate, firstName) && strings.Contains(candidate, lastName) {
		if full := similarity(candidate, target); full > nameScore {
			nameScore = full
		}
	}

	total := nameScore * w.Name

	if in.ScrapedInstitution != "" && in.TargetInstitution != "" {
		instScore := partialSimilarity(
			strings.ToLower(in.ScrapedInstitution),
			strings.ToLower(in.TargetInstitution),
		)
		total += instScore * w.Institution
	}

	bonus, penalty := s.fieldSignal(in.ScrapedText, in.FieldOfStudy)
	total += bonus - penalty

	return model.RoundScore(total)
}

// fieldSignal computes the field-of-study bonus and wrong-field penalty.
// Both are zero unless text and a target field are present.
func (s *Scorer) fieldSignal(scrapedText, fieldOfStudy string) (bonus, penalty float64) {
	if scrapedText == "" || fieldOfStudy == "" {
		return 0, 0
	}
	w := s.cfg.Weights
	text := strings.ToLower(scrapedText)
	field := strings.ToLower(fieldOfStudy)

	for _, cat := range s.cfg.Keywords.WrongField {
		hits := countHits(text, cat.Keywords)
		if hits >= 2 {
			penalty = w.WrongFieldHeavy
			break
		}
		if hits == 1 && penalty < w.WrongFieldModerate {
			penalty = w.WrongFieldModerate
		}
	}

	inFamily := false
	for _, fam := range s.cfg.Keywords.FieldFamilies {
		if strings.Contains(field, fam) {
			inFamily = true
			break
		}
	}
	if !inFamily {
		return 0, penalty
	}

	switch hits := countHits(text, s.cfg.Keywords.Field); {
	case hits >= 3:
		bonus = w.FieldStrong
	case hits >= 2:
		bonus = w.FieldGood
	case hits >= 1:
		bonus = w.FieldWeak
	default:
		// No target-field vocabulary at all: mild penalty, but only when
		// no wrong-field signal already fired.
		if penalty == 0 {
			penalty = w.FieldAbsent
		}
	}
	return bonus, penalty
}

func countHits(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// similarity is a normalized edit-distance ratio in [0,1].
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return levenshtein.Similarity(a, b, levenshtein.NewParams())
}

// partialSimilarity is substring-tolerant: the shorter string is compared
// against every window of its own length in the longer one, keeping the
// best ratio. "AGH" against "AGH University of Science" scores 1.0.
func partialSimilarity(a, b string) float64 {
	sr, lr := []rune(a), []rune(b)
	if len(sr) > len(lr) {
		sr, lr = lr, sr
	}
	if len(sr) == 0 {
		return 0
	}
	short, long := string(sr), string(lr)
	if strings.Contains(long, short) {
		return 1
	}
	best := 0.0
	for i := 0; i+len(sr) <= len(lr); i++ {
		if sim := similarity(string(sr), string(lr[i:i+len(sr)])); sim > best {
			best = sim
		}
	}
	if best == 0 {
		best = similarity(short, long)
	}
	return best
}

var nameFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Map(foldStroke),
	norm.NFC,
)

// foldStroke maps the stroked Latin letters that NFD leaves intact, so
// "Łukasz" and "Lukasz" compare equal after folding.
func foldStroke(r rune) rune {
	switch r {
	case 'Ł':
		return 'L'
	case 'ł':
		return 'l'
	case 'Ø':
		return 'O'
	case 'ø':
		return 'o'
	case 'Đ':
		return 'D'
	case 'đ':
		return 'd'
	}
	return r
}

// foldName lower-cases and strips diacritics for comparison.
func foldName(s string) string {
	folded, _, err := transform.String(nameFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
