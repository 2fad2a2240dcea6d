package query

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kasuganosora/datagrid/internal/model"
)

// Match is one search hit (spec §4.4).
type Match struct {
	RowIndex    int
	RowID       model.RowID
	Column      string
	Value       interface{}
	MatchedText string
	Exact       bool
	Score       float64
}

// Result is the outcome of a search pass.
type Result struct {
	Matches          []Match
	TotalRowsSearched int
	Duration         time.Duration
}

// Request configures a basic search.
type Request struct {
	Text          string
	CaseSensitive bool
	WholeWord     bool
	Columns       []string // nil/empty means every column present on each row
}

// Search performs a basic substring/whole-word search over rows (spec
// §4.4's "Search" contract; scope filtering — which rows are included —
// is the caller's responsibility via the rows slice passed in, mirroring
// how the store resolves {AllData,VisibleData,SelectedData,FilteredData}
// into a row slice before calling into this pure function).
func Search(rows []model.Row, ids []model.RowID, req Request) Result {
	started := time.Now()
	needle := req.Text
	if !req.CaseSensitive {
		needle = strings.ToLower(needle)
	}

	var matches []Match
	for i, row := range rows {
		cols := req.Columns
		if len(cols) == 0 {
			cols = keysOf(row)
		}
		for _, col := range cols {
			val, ok := row[col]
			if !ok {
				continue
			}
			text := toStringValue(val)
			haystack := text
			if !req.CaseSensitive {
				haystack = strings.ToLower(haystack)
			}
			if req.WholeWord {
				if !wholeWordMatch(haystack, needle) {
					continue
				}
			} else if !strings.Contains(haystack, needle) {
				continue
			}
			var id model.RowID
			if i < len(ids) {
				id = ids[i]
			}
			matches = append(matches, Match{
				RowIndex:    i,
				RowID:       id,
				Column:      col,
				Value:       val,
				MatchedText: text,
				Exact:       haystack == needle,
				Score:       1,
			})
		}
	}

	return Result{
		Matches:          matches,
		TotalRowsSearched: len(rows),
		Duration:         time.Since(started),
	}
}

func wholeWordMatch(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	idx := 0
	for {
		pos := strings.Index(haystack[idx:], needle)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(needle)
		before := byte(' ')
		if start > 0 {
			before = haystack[start-1]
		}
		after := byte(' ')
		if end < len(haystack) {
			after = haystack[end]
		}
		if !isWordChar(before) && !isWordChar(after) {
			return true
		}
		idx = start + 1
		if idx >= len(haystack) {
			return false
		}
	}
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}

func keysOf(row model.Row) []string {
	out := make([]string, 0, len(row))
	for k := range row {
		if k == model.ReservedRowID || k == model.ReservedValidationAlerts {
			continue
		}
		out = append(out, k)
	}
	return out
}

// AdvancedRequest configures the richer search contract (spec §4.4
// "Advanced search adds mode, ranking, max-matches, fuzzy threshold, and
// optional parallel execution").
type AdvancedRequest struct {
	Request
	Mode           model.SearchMode
	Ranking        model.RankingMode
	MaxMatches     int
	FuzzyThreshold float64 // 0..1, minimum similarity to count as a fuzzy match
	Parallel       bool
	Parallelism    int
}

// AdvancedSearch runs req.Mode's matcher over rows, optionally in
// parallel chunks via errgroup (grounded on the teacher's workerpool-style
// fan-out, here expressed with the ecosystem-idiomatic errgroup rather than
// a hand-rolled WaitGroup), then ranks and truncates to MaxMatches.
func AdvancedSearch(ctx context.Context, rows []model.Row, ids []model.RowID, req AdvancedRequest) (Result, error) {
	started := time.Now()

	matcher, err := buildMatcher(req)
	if err != nil {
		return Result{}, err
	}

	var all []Match
	if req.Parallel && len(rows) > 0 {
		all, err = searchParallel(ctx, rows, ids, req, matcher)
		if err != nil {
			return Result{}, err
		}
	} else {
		all = searchSerial(rows, ids, req, matcher)
	}

	rank(all, req.Ranking)
	if req.MaxMatches > 0 && len(all) > req.MaxMatches {
		all = all[:req.MaxMatches]
	}

	return Result{Matches: all, TotalRowsSearched: len(rows), Duration: time.Since(started)}, nil
}

type matchFunc func(haystack string) (matched bool, score float64)

func buildMatcher(req AdvancedRequest) (matchFunc, error) {
	needle := req.Text
	if !req.CaseSensitive {
		needle = strings.ToLower(needle)
	}

	switch req.Mode {
	case model.SearchExact:
		return func(h string) (bool, float64) { return h == needle, boolScore(h == needle) }, nil
	case model.SearchStartsWith:
		return func(h string) (bool, float64) {
			ok := strings.HasPrefix(h, needle)
			return ok, boolScore(ok)
		}, nil
	case model.SearchEndsWith:
		return func(h string) (bool, float64) {
			ok := strings.HasSuffix(h, needle)
			return ok, boolScore(ok)
		}, nil
	case model.SearchRegex:
		re, err := regexp.Compile(req.Text)
		if err != nil {
			return nil, err
		}
		return func(h string) (bool, float64) {
			ok := re.MatchString(h)
			return ok, boolScore(ok)
		}, nil
	case model.SearchFuzzy:
		threshold := req.FuzzyThreshold
		if threshold <= 0 {
			threshold = 0.6
		}
		return func(h string) (bool, float64) {
			score := fuzzyScore(needle, h)
			return score >= threshold, score
		}, nil
	case model.SearchContains, "":
		return func(h string) (bool, float64) {
			ok := strings.Contains(h, needle)
			return ok, boolScore(ok)
		}, nil
	default:
		return func(h string) (bool, float64) {
			ok := strings.Contains(h, needle)
			return ok, boolScore(ok)
		}, nil
	}
}

func boolScore(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// fuzzyScore computes a normalized similarity in [0,1] based on the
// Levenshtein edit distance between needle and the best-matching window of
// haystack of the same length.
func fuzzyScore(needle, haystack string) float64 {
	if needle == "" {
		return 0
	}
	if len(haystack) <= len(needle) {
		return similarity(needle, haystack)
	}
	best := 0.0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		s := similarity(needle, haystack[i:i+len(needle)])
		if s > best {
			best = s
		}
	}
	return best
}

func similarity(a, b string) float64 {
	dist := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = minInt(minInt(del, ins), sub)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func searchSerial(rows []model.Row, ids []model.RowID, req AdvancedRequest, matcher matchFunc) []Match {
	var out []Match
	for i, row := range rows {
		out = append(out, matchRow(i, row, ids, req, matcher)...)
	}
	return out
}

func searchParallel(ctx context.Context, rows []model.Row, ids []model.RowID, req AdvancedRequest, matcher matchFunc) ([]Match, error) {
	workers := req.Parallelism
	if workers <= 0 {
		workers = 4
	}
	chunks := chunkIndices(len(rows), workers)

	results := make([][]Match, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for ci, chunk := range chunks {
		ci, chunk := ci, chunk
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			var local []Match
			for i := chunk[0]; i < chunk[1]; i++ {
				local = append(local, matchRow(i, rows[i], ids, req, matcher)...)
			}
			results[ci] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Match
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

func chunkIndices(n, workers int) [][2]int {
	if n == 0 {
		return nil
	}
	if workers > n {
		workers = n
	}
	size := (n + workers - 1) / workers
	var chunks [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, [2]int{start, end})
	}
	return chunks
}

func matchRow(i int, row model.Row, ids []model.RowID, req AdvancedRequest, matcher matchFunc) []Match {
	cols := req.Columns
	if len(cols) == 0 {
		cols = keysOf(row)
	}
	needle := req.Text
	if !req.CaseSensitive {
		needle = strings.ToLower(needle)
	}
	var out []Match
	for _, col := range cols {
		val, ok := row[col]
		if !ok {
			continue
		}
		text := toStringValue(val)
		haystack := text
		if !req.CaseSensitive {
			haystack = strings.ToLower(haystack)
		}
		matched, score := matcher(haystack)
		if !matched {
			continue
		}
		var id model.RowID
		if i < len(ids) {
			id = ids[i]
		}
		out = append(out, Match{
			RowIndex:    i,
			RowID:       id,
			Column:      col,
			Value:       val,
			MatchedText: text,
			Exact:       haystack == needle,
			Score:       score,
		})
	}
	return out
}

// rank orders matches in place per the requested ranking mode. RankNone
// preserves row-then-column discovery order.
func rank(matches []Match, mode model.RankingMode) {
	switch mode {
	case model.RankRelevance:
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	case model.RankPosition:
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].RowIndex < matches[j].RowIndex })
	case model.RankFrequency:
		freq := make(map[string]int)
		for _, m := range matches {
			freq[m.MatchedText]++
		}
		sort.SliceStable(matches, func(i, j int) bool { return freq[matches[i].MatchedText] > freq[matches[j].MatchedText] })
	}
}
