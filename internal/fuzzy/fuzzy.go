// Package fuzzy scores string similarity on a 0..100 scale using the
// insertion/deletion edit distance, and ranks candidates against a query.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Scorer compares a query with a candidate.
type Scorer func(query, candidate string) float64

// indel counts a substitution as one deletion plus one insertion.
var indel = levenshtein.NewParams().SubCost(2)

// Ratio is the normalized indel similarity of a and b. Two empty strings are
// identical; one empty string scores 0.
func Ratio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	total := la + lb
	if total == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}
	d := levenshtein.Distance(a, b, indel)
	return 100 * float64(total-d) / float64(total)
}

// PartialRatio is the best Ratio between the shorter string and any window of
// the longer one, including windows cut short at either edge.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}
	needle := string(short)
	m, n := len(short), len(long)

	best := 0.0
	consider := func(window []rune) bool {
		if s := Ratio(needle, string(window)); s > best {
			best = s
		}
		return best == 100
	}
	for i := 1; i < m; i++ {
		if consider(long[:i]) {
			return best
		}
	}
	for i := 0; i+m <= n; i++ {
		if consider(long[i : i+m]) {
			return best
		}
	}
	for i := max(n-m+1, 1); i < n; i++ {
		if consider(long[i:]) {
			return best
		}
	}
	return best
}

// TokenSetRatio compares the whitespace-separated token sets of a and b,
// ignoring order and repetition. When one set contains the other the score
// is 100.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	for t := range ta {
		if _, ok := tb[t]; ok {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	if len(common) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(common, " ")
	diffA := strings.Join(onlyA, " ")
	diffB := strings.Join(onlyB, " ")
	combinedA, combinedB := diffA, diffB
	if sect != "" {
		combinedA = sect + " " + diffA
		combinedB = sect + " " + diffB
	}

	best := Ratio(combinedA, combinedB)
	if sect != "" {
		best = max(best, Ratio(sect, combinedA), Ratio(sect, combinedB))
	}
	return best
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Match is a candidate that met the cutoff.
type Match struct {
	Index int
	Score float64
}

// Extract scores every candidate against query and returns those scoring at
// least cutoff, best first. Equal scores are ordered by full-string Ratio and
// then by candidate position, so an exact match always leads.
func Extract(query string, candidates []string, scorer Scorer, cutoff float64) []Match {
	type ranked struct {
		Match
		tiebreak float64
	}
	var hits []ranked
	for i, c := range candidates {
		score := scorer(query, c)
		if score < cutoff {
			continue
		}
		hits = append(hits, ranked{Match: Match{Index: i, Score: score}, tiebreak: Ratio(query, c)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].tiebreak != hits[j].tiebreak {
			return hits[i].tiebreak > hits[j].tiebreak
		}
		return hits[i].Index < hits[j].Index
	})
	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = h.Match
	}
	return out
}
