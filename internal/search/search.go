// Package search orchestrates keyword, semantic, and hybrid queries over
// the Lexical Index and the Chunk Store, and assembles ranked, snippeted
// results deduplicated to one hit per source.
package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/radhakrish-venkat/desktop-search/internal/domain"
	"github.com/radhakrish-venkat/desktop-search/internal/embed"
	"github.com/radhakrish-venkat/desktop-search/internal/index"
	"github.com/radhakrish-venkat/desktop-search/internal/logging"
	"github.com/radhakrish-venkat/desktop-search/internal/store"
	"github.com/radhakrish-venkat/desktop-search/internal/textproc"
)

// DefaultThreshold is the minimum semantic similarity score a candidate must
// clear before it is returned.
const DefaultThreshold = 0.3

// OverFetch multiplies the requested limit when querying the Chunk Store so
// post-filtering by threshold still leaves enough candidates.
const OverFetch = 3

// DefaultAlpha weights semantic score against keyword score in hybrid mode.
const DefaultAlpha = 0.5

// SnippetWindow is the character radius around the best match position.
const SnippetWindow = 200

// Service answers search queries against the Lexical Index and Chunk Store.
type Service struct {
	lexical  *index.LexicalIndex
	chunks   *store.ChunkStore
	embedder embed.Embedder
	log      *logging.Logger
}

// New builds a Service. embedder may be nil, in which case semantic
// queries return no results and hybrid queries rank on keyword scores
// alone.
func New(lexical *index.LexicalIndex, chunks *store.ChunkStore, embedder embed.Embedder) *Service {
	return &Service{lexical: lexical, chunks: chunks, embedder: embedder, log: logging.New("search")}
}

type scoredChunk struct {
	chunkID string
	score   float64
}

// Search runs one query in the given mode and returns ranked, deduplicated
// results, at most limit of them.
func (s *Service) Search(ctx context.Context, query string, kind domain.SearchKind, limit int, threshold float64) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	queryTokens := textproc.Tokenize(query)

	var chunks []scoredChunk
	var err error

	switch kind {
	case domain.SearchSemantic:
		chunks, err = s.semanticSearch(ctx, query, limit, threshold)
	case domain.SearchHybrid:
		chunks, err = s.hybridSearch(ctx, query, queryTokens, limit, threshold)
	default:
		chunks = s.keywordSearch(ctx, queryTokens, limit)
	}
	if err != nil {
		return nil, err
	}

	return s.hydrate(ctx, chunks, queryTokens, limit)
}

// keywordSearch unions the postings of every query token, scores each
// candidate chunk with TF-IDF, drops zero scores, and orders by score
// descending, tie-broken by ordinal then source_id.
func (s *Service) keywordSearch(ctx context.Context, queryTokens []string, limit int) []scoredChunk {
	candidates := make(map[string]struct{})
	for _, tok := range queryTokens {
		for chunkID := range s.lexical.Postings(tok) {
			candidates[chunkID] = struct{}{}
		}
	}

	type candidate struct {
		scoredChunk
		ordinal  int
		sourceID string
	}

	scored := make([]candidate, 0, len(candidates))
	for chunkID := range candidates {
		score := s.lexical.Score(queryTokens, chunkID)
		if score <= 0 {
			continue
		}
		c, err := s.chunks.Get(ctx, chunkID)
		if err != nil {
			continue
		}
		scored = append(scored, candidate{
			scoredChunk: scoredChunk{chunkID: chunkID, score: score},
			ordinal:     c.Ordinal,
			sourceID:    c.SourceID,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].ordinal != scored[j].ordinal {
			return scored[i].ordinal < scored[j].ordinal
		}
		return scored[i].sourceID < scored[j].sourceID
	})

	if len(scored) > limit*OverFetch {
		scored = scored[:limit*OverFetch]
	}
	out := make([]scoredChunk, len(scored))
	for i, c := range scored {
		out[i] = c.scoredChunk
	}
	return out
}

// semanticSearch embeds the query and ranks resident vectors by cosine
// similarity, over-fetching by OverFetch and filtering by threshold.
func (s *Service) semanticSearch(ctx context.Context, query string, limit int, threshold float64) ([]scoredChunk, error) {
	if s.embedder == nil {
		s.log.Warn("semantic search requested but no embedder configured")
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.log.Warn("query embedding failed", "err", err)
		return nil, nil
	}

	hits, err := s.chunks.QuerySemantic(ctx, vec, limit*OverFetch)
	if err != nil {
		return nil, err
	}

	scored := make([]scoredChunk, 0, len(hits))
	for _, h := range hits {
		if h.Score < threshold {
			continue
		}
		scored = append(scored, scoredChunk{chunkID: h.ChunkID, score: h.Score})
	}
	return scored, nil
}

// hybridSearch runs keyword and semantic search independently, min-max
// normalizes each score set to [0,1], and linearly combines them with
// DefaultAlpha. A candidate missing from one side contributes 0 for it.
func (s *Service) hybridSearch(ctx context.Context, query string, queryTokens []string, limit int, threshold float64) ([]scoredChunk, error) {
	keyword := s.keywordSearch(ctx, queryTokens, limit)
	semantic, err := s.semanticSearch(ctx, query, limit, threshold)
	if err != nil {
		return nil, err
	}

	keywordNorm := normalize(keyword)
	semanticNorm := normalize(semantic)

	combined := make(map[string]float64, len(keywordNorm)+len(semanticNorm))
	for id, v := range keywordNorm {
		combined[id] = (1 - DefaultAlpha) * v
	}
	for id, v := range semanticNorm {
		combined[id] += DefaultAlpha * v
	}

	scored := make([]scoredChunk, 0, len(combined))
	for id, v := range combined {
		scored = append(scored, scoredChunk{chunkID: id, score: v})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].chunkID < scored[j].chunkID
	})
	return scored, nil
}

// normalize min-max scales a score set into [0,1]. A single-element or
// constant-score set maps every member to 1.
func normalize(chunks []scoredChunk) map[string]float64 {
	out := make(map[string]float64, len(chunks))
	if len(chunks) == 0 {
		return out
	}

	min, max := chunks[0].score, chunks[0].score
	for _, c := range chunks {
		if c.score < min {
			min = c.score
		}
		if c.score > max {
			max = c.score
		}
	}

	spread := max - min
	for _, c := range chunks {
		if spread == 0 {
			out[c.chunkID] = 1
			continue
		}
		out[c.chunkID] = (c.score - min) / spread
	}
	return out
}

// hydrate resolves each scored chunk to its owning source, keeps only the
// best-scoring chunk per source_id, and generates a snippet from its text.
func (s *Service) hydrate(ctx context.Context, chunks []scoredChunk, queryTokens []string, limit int) ([]domain.SearchResult, error) {
	type hydrated struct {
		score float64
		chunk domain.Chunk
	}

	bestBySource := make(map[string]hydrated)
	order := make([]string, 0, len(chunks))
	for _, c := range chunks {
		chunk, err := s.chunks.Get(ctx, c.chunkID)
		if err != nil {
			continue
		}
		if existing, ok := bestBySource[chunk.SourceID]; !ok || c.score > existing.score {
			if !ok {
				order = append(order, chunk.SourceID)
			}
			bestBySource[chunk.SourceID] = hydrated{score: c.score, chunk: chunk}
		}
	}

	results := make([]domain.SearchResult, 0, len(order))
	for _, sourceID := range order {
		best := bestBySource[sourceID]
		var lastModified *time.Time
		if !best.chunk.Metadata.ModifiedAt.IsZero() {
			m := best.chunk.Metadata.ModifiedAt
			lastModified = &m
		}
		results = append(results, domain.SearchResult{
			SourceID:     best.chunk.SourceID,
			DisplayName:  best.chunk.Metadata.DisplayName,
			FileType:     best.chunk.Metadata.FileType,
			SizeBytes:    best.chunk.Metadata.SizeBytes,
			Score:        best.score,
			Snippet:      snippet(best.chunk.Text, queryTokens, SnippetWindow),
			Highlighted:  Highlight(best.chunk.Text, queryTokens, SnippetWindow),
			LastModified: lastModified,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

type match struct {
	pos   int
	token string
}

// matchWindow locates the character window snippet and Highlight both build
// on: the run of runes around the position maximizing the count of distinct
// query-token matches (ties broken by earliest position), plus the raw
// match positions within it. ok is false only for empty input text.
func matchWindow(text string, queryTokens []string, window int) (runes []rune, start, end int, matches []match, ok bool) {
	if text == "" {
		return nil, 0, 0, nil, false
	}
	lower := strings.ToLower(text)
	tokenSet := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		tokenSet[t] = struct{}{}
	}

	words := strings.FieldsFunc(lower, func(r rune) bool { return !isWordRune(r) })
	pos := 0
	for _, w := range words {
		idx := strings.Index(lower[pos:], w)
		if idx < 0 {
			continue
		}
		wstart := pos + idx
		if _, ok := tokenSet[w]; ok {
			matches = append(matches, match{pos: wstart, token: w})
		}
		pos = wstart + len(w)
	}

	runes = []rune(text)
	n := len(runes)
	if len(matches) == 0 {
		end := window * 2
		if end > n {
			end = n
		}
		return runes, 0, end, nil, true
	}

	bestPos, bestCount := matches[0].pos, 0
	for _, m := range matches {
		count := 0
		distinct := make(map[string]struct{})
		for _, other := range matches {
			if other.pos >= m.pos-window && other.pos <= m.pos+window {
				if _, seen := distinct[other.token]; !seen {
					distinct[other.token] = struct{}{}
					count++
				}
			}
		}
		if count > bestCount {
			bestCount = count
			bestPos = m.pos
		}
	}

	center := byteOffsetToRuneIndex(text, bestPos)
	start = center - window
	if start < 0 {
		start = 0
	}
	end = center + window
	if end > n {
		end = n
	}
	return runes, start, end, matches, true
}

// snippet finds the character window around the best query-token match,
// expands it to the nearest whitespace, and marks it with ellipses when
// truncated at either end.
func snippet(text string, queryTokens []string, window int) string {
	runes, start, end, _, ok := matchWindow(text, queryTokens, window)
	if !ok {
		return ""
	}
	return trimToWhitespace(runes, start, end)
}

// Highlight builds the same window as snippet, but wraps every matched
// query-token span inside it with ** markers so UIs can render the matches
// inline. The marker is fixed; callers post-process the markup as needed.
func Highlight(text string, queryTokens []string, window int) string {
	runes, start, end, matches, ok := matchWindow(text, queryTokens, window)
	if !ok {
		return ""
	}
	start, end = expandToWhitespace(runes, start, end)

	type span struct{ start, end int }
	spans := make([]span, 0, len(matches))
	for _, m := range matches {
		s := byteOffsetToRuneIndex(text, m.pos)
		e := s + len([]rune(m.token))
		if s < start || e > end {
			continue
		}
		spans = append(spans, span{s, e})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := spans[:0]
	for _, sp := range spans {
		if len(merged) > 0 && sp.start <= merged[len(merged)-1].end {
			if sp.end > merged[len(merged)-1].end {
				merged[len(merged)-1].end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}

	var inner strings.Builder
	cursor := start
	for _, sp := range merged {
		inner.WriteString(string(runes[cursor:sp.start]))
		inner.WriteString("**")
		inner.WriteString(string(runes[sp.start:sp.end]))
		inner.WriteString("**")
		cursor = sp.end
	}
	inner.WriteString(string(runes[cursor:end]))

	var b strings.Builder
	if start > 0 {
		b.WriteString("…")
	}
	b.WriteString(strings.TrimSpace(inner.String()))
	if end < len(runes) {
		b.WriteString("…")
	}
	return b.String()
}

func byteOffsetToRuneIndex(s string, byteOffset int) int {
	count := 0
	for i := range s {
		if i >= byteOffset {
			return count
		}
		count++
	}
	return count
}

func expandToWhitespace(runes []rune, start, end int) (int, int) {
	n := len(runes)
	for start > 0 && !isSpace(runes[start]) {
		start--
	}
	for end < n && !isSpace(runes[end-1]) {
		end++
	}
	return start, end
}

func trimToWhitespace(runes []rune, start, end int) string {
	start, end = expandToWhitespace(runes, start, end)
	n := len(runes)

	var b strings.Builder
	if start > 0 {
		b.WriteString("…")
	}
	b.WriteString(strings.TrimSpace(string(runes[start:end])))
	if end < n {
		b.WriteString("…")
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
