// Package learning is the correction-learning loop: humans submit
// correction patterns, approve or reject them, and the approved ones
// rewrite matching extraction output. Application is gated twice, by
// explicit approval and by a success-rate floor, so a bad pattern can
// never silently reach the fact stream.
package learning

import (
	"strings"

	"github.com/chartlinehq/chartline/internal/model"
)

// Matcher scores how well a correction pattern fits a fact
type Matcher struct{}

// NewMatcher creates a matcher
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Score returns the similarity of a pattern's original text to a fact
// in [0,1]. Type mismatch is always 0; an exact substring match is
// always 1; otherwise the better of token-set and character-sequence
// similarity, with a small bonus for matching context.
func (m *Matcher) Score(p *model.LearningPattern, f *model.Fact) float64 {
	if p.FactType != f.Type {
		return 0
	}

	patternText := normalize(p.OriginalText)
	factText := normalize(f.Text)
	if patternText == "" || factText == "" {
		return 0
	}

	if strings.Contains(factText, patternText) {
		return 1.0
	}

	score := tokenJaccard(patternText, factText)
	if seq := sequenceRatio(patternText, factText); seq > score {
		score = seq
	}

	if contextMatches(p, f) {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// tokenJaccard is intersection over union of the token sets
func tokenJaccard(a, b string) float64 {
	as := tokenSet(a)
	bs := tokenSet(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}

	intersection := 0
	for tok := range as {
		if bs[tok] {
			intersection++
		}
	}
	union := len(as) + len(bs) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// sequenceRatio is the Ratcliff-Obershelp similarity: twice the total
// matched characters over the combined length, matching blocks found
// recursively around the longest common substring.
func sequenceRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return 2 * float64(matchingChars(a, b)) / float64(len(a)+len(b))
}

func matchingChars(a, b string) int {
	ai, bi, n := longestCommonBlock(a, b)
	if n == 0 {
		return 0
	}
	return n + matchingChars(a[:ai], b[:bi]) + matchingChars(a[ai+n:], b[bi+n:])
}

// longestCommonBlock finds the longest common substring of a and b,
// returning its start offsets and length.
func longestCommonBlock(a, b string) (ai, bi, n int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	// prev[j] is the run length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > n {
					n = cur[j]
					ai = i - n
					bi = j - n
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, n
}

// contextMatches reports whether the pattern context agrees with the
// fact: same source document or any overlapping context entry.
func contextMatches(p *model.LearningPattern, f *model.Fact) bool {
	if p.Context == nil {
		return false
	}
	if doc, ok := p.Context["source_doc"]; ok && doc == f.SourceDoc {
		return true
	}
	for k, v := range p.Context {
		if fv, ok := f.Context[k]; ok && fv == v {
			return true
		}
	}
	return false
}
