package normalizer

const (
	// DefaultThreshold is the general-purpose name matching threshold.
	DefaultThreshold = 85
	// PurificationThreshold is used when purifying fixtures across bookmakers.
	PurificationThreshold = 65
)

// Similarity scores two team names in [0,100]. Tokens are sorted before an Indel ratio is taken,
// so word order does not matter. Equal normalized forms always score 100; an empty form scores 0
// against anything else.
//
// A trailing club token is part of the word order problem ("Milan AC" vs "AC Milan"), so the
// names are scored both with and without suffix stripping and the higher score wins.
func Similarity(a, b string) int {
	return score(newForm(a), newForm(b))
}

// TeamsMatch reports whether two names score at least threshold.
func TeamsMatch(a, b string, threshold int) bool {
	return Similarity(a, b) >= threshold
}

// BestMatch returns the candidate scoring highest against target. Ties keep the earliest candidate.
// ok is false when no candidate reaches threshold.
func BestMatch(target string, candidates []string, threshold int) (best string, bestScore int, ok bool) {
	ft := newForm(target)
	if ft.normalized == "" {
		return "", 0, false
	}

	bestIdx := -1
	for i, c := range candidates {
		fc := newForm(c)
		if fc.normalized == "" {
			continue
		}
		if s := score(ft, fc); s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < threshold {
		return "", 0, false
	}
	return candidates[bestIdx], bestScore, true
}

func score(a, b form) int {
	if a.normalized == b.normalized {
		return 100
	}
	if a.normalized == "" || b.normalized == "" {
		return 0
	}
	s := ratio(sortedTokens(a.normalized), sortedTokens(b.normalized))
	if a.cosmetic != a.normalized || b.cosmetic != b.normalized {
		if alt := ratio(sortedTokens(a.cosmetic), sortedTokens(b.cosmetic)); alt > s {
			s = alt
		}
	}
	return s
}

// ratio is the normalized Indel similarity 100 * 2*LCS / (len(a)+len(b)), truncated so that
// ratio >= t holds exactly when the real-valued similarity reaches an integer threshold t.
func ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	lcs := lcsLength(ra, rb)
	return 2 * lcs * 100 / total
}

// lcsLength computes the longest common subsequence length with two rolling rows.
func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
