package search

import (
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"
)

// memoSize bounds the similarity memo; scoring runs for every candidate of
// every keystroke.
const memoSize = 8192

type memoKey struct {
	query string
	text  string
}

// Scorer computes partial similarity scores and remembers them.
type Scorer struct {
	memo *lru.Cache[memoKey, int]
}

func NewScorer() *Scorer {
	memo, err := lru.New[memoKey, int](memoSize)
	if err != nil {
		// Only a non-positive size makes New fail.
		panic(err)
	}
	return &Scorer{memo: memo}
}

// Score returns the case-insensitive partial similarity (0-100) of query
// against text.
func (s *Scorer) Score(query, text string) int {
	key := memoKey{strings.ToLower(query), strings.ToLower(text)}
	if score, ok := s.memo.Get(key); ok {
		return score
	}
	score := PartialRatio(key.query, key.text)
	s.memo.Add(key, score)
	return score
}

// Len is the number of memoized scores.
func (s *Scorer) Len() int { return s.memo.Len() }

// PartialRatio slides the shorter string over the longer one and returns the
// best window similarity, where a window's similarity is the share of its
// characters that survive the edit distance to the shorter string.
func PartialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	if strings.Contains(string(long), string(short)) {
		return 100
	}

	n := len(short)
	needle := string(short)
	best := 0
	for i := 0; i+n <= len(long); i++ {
		dist := fuzzy.LevenshteinDistance(needle, string(long[i:i+n]))
		score := int(math.Round(100 * float64(n-dist) / float64(n)))
		if score > best {
			best = score
		}
	}
	return best
}

// Highlights returns the byte offsets of the runes of text matched by query, for
// rendering. Nil when query is not a subsequence of text.
func Highlights(query, text string) []int {
	matches := sfuzzy.Find(query, []string{text})
	if len(matches) == 0 {
		return nil
	}
	return matches[0].MatchedIndexes
}
