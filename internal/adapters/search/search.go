// Package search keeps a full-text index over article titles, keywords and
// abstracts.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/expertgraph/internal/domain/model"
	"github.com/okian/expertgraph/internal/domain/types"
	"github.com/okian/expertgraph/pkg/logger"
	"github.com/okian/expertgraph/pkg/metrics"
)

const (
	defaultCacheSize = 10000
	defaultLimit     = 20
	maxLimit         = 200
	maxPage          = 10_000

	// Keyword substring matching skips single letters and caps the number
	// of wildcard clauses per query.
	minSubstringLen   = 2
	maxSubstringTerms = 8

	fieldTitle    = "title"
	fieldKeywords = "keywords"
	fieldAbstract = "abstract"
	fieldAuthors  = "authors"
	fieldDomains  = "domains"
	fieldYear     = "year"

	// Keyword matches outrank title matches, which outrank abstract matches.
	boostKeywords = 3.0
	boostTitle    = 2.0
	boostAbstract = 1.0

	// Partial keyword matches rank below whole-word ones.
	boostSubstring = 0.5
)

var storedFields = []string{fieldTitle, fieldKeywords, fieldAbstract, fieldAuthors, fieldDomains, fieldYear}

// Index is an in-memory bleve index plus an LRU of the indexed articles.
type Index struct {
	index        bleve.Index
	cache        *lru.Cache[string, model.Article]
	cacheSize    int
	defaultLimit int
	log          logger.Logger
	closed       atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an empty in-memory index.
func New(opts ...Option) (*Index, error) {
	ix := &Index{
		cacheSize:    defaultCacheSize,
		defaultLimit: defaultLimit,
	}
	for _, opt := range opts {
		opt(ix)
	}

	idx, err := bleve.NewMemOnly(articleMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	cache, err := lru.New[string, model.Article](ix.cacheSize)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("create article cache: %w", err)
	}
	ix.index = idx
	ix.cache = cache
	return ix, nil
}

func articleMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Store = true

	stored := bleve.NewTextFieldMapping()
	stored.Store = true
	stored.Index = false

	year := bleve.NewNumericFieldMapping()
	year.Store = true
	year.Index = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(fieldTitle, text)
	doc.AddFieldMappingsAt(fieldKeywords, text)
	doc.AddFieldMappingsAt(fieldAbstract, text)
	doc.AddFieldMappingsAt(fieldAuthors, stored)
	doc.AddFieldMappingsAt(fieldDomains, stored)
	doc.AddFieldMappingsAt(fieldYear, year)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Index adds or replaces an article.
func (ix *Index) Index(ctx context.Context, a model.Article) error {
	if ix.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	id := strings.TrimSpace(a.ID)
	if id == "" {
		return fmt.Errorf("article without id: %w", ErrInvalidArgument)
	}

	doc := map[string]any{
		fieldTitle:    a.Title,
		fieldKeywords: a.Keywords,
		fieldAbstract: a.Abstract,
		fieldAuthors:  a.Authors,
		fieldDomains:  a.Domains,
		fieldYear:     float64(a.Year),
	}
	if err := ix.index.Index(id, doc); err != nil {
		return fmt.Errorf("index article %s: %w", id, err)
	}
	ix.cache.Add(id, a)

	if n, err := ix.index.DocCount(); err == nil {
		metrics.UpdateSearchIndexedDocs(n)
	}
	return nil
}

// Search returns one page of the articles matching q, best first. Pages start
// at 1; a non-positive page is the first. A non-positive limit uses the
// default; limits are capped.
func (ix *Index) Search(ctx context.Context, q string, page, limit int) (res types.SearchPage, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordSearch(float64(time.Since(start).Milliseconds()), err)
	}()

	if ix.closed.Load() {
		return res, ErrClosed
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return res, fmt.Errorf("empty search query: %w", ErrInvalidArgument)
	}
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		return res, fmt.Errorf("page %d beyond %d: %w", page, maxPage, ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	limit = ix.clampLimit(limit)

	req := bleve.NewSearchRequestOptions(buildQuery(q), limit, (page-1)*limit, false)
	req.Fields = storedFields
	found, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return res, fmt.Errorf("search %q: %w", q, err)
	}

	res = types.SearchPage{
		Articles: ix.resolve(found),
		Total:    found.Total,
		Page:     page,
		Limit:    limit,
	}
	if ix.log != nil {
		ix.log.Debug(ctx, "search served",
			logger.String("query", q),
			logger.Int("page", page),
			logger.Int("hits", len(res.Articles)),
		)
	}
	return res, nil
}

// Similar returns the articles sharing keywords or title terms with the
// article id, best first. The article itself and the exclude ids are never
// returned. An unknown id fails with ErrNotFound.
func (ix *Index) Similar(ctx context.Context, id string, exclude []string, limit int) (hits []types.ArticleHit, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordSearch(float64(time.Since(start).Milliseconds()), err)
	}()

	if ix.closed.Load() {
		return nil, ErrClosed
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("empty article id: %w", ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source, err := ix.article(ctx, id)
	if err != nil {
		return nil, err
	}

	texts := append([]string{source.Title}, source.Keywords...)
	clauses := make([]query.Query, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			clauses = append(clauses, matchFields(t))
		}
	}
	if len(clauses) == 0 {
		return []types.ArticleHit{}, nil
	}

	skip := []string{id}
	for _, e := range exclude {
		if e = strings.TrimSpace(e); e != "" {
			skip = append(skip, e)
		}
	}
	bq := bleve.NewBooleanQuery()
	bq.AddMust(bleve.NewDisjunctionQuery(clauses...))
	bq.AddMustNot(bleve.NewDocIDQuery(skip))

	req := bleve.NewSearchRequestOptions(bq, ix.clampLimit(limit), 0, false)
	req.Fields = storedFields
	found, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("similar to %s: %w", id, err)
	}
	return ix.resolve(found), nil
}

// article resolves an indexed article from the cache or its stored fields.
func (ix *Index) article(ctx context.Context, id string) (model.Article, error) {
	if a, ok := ix.cache.Get(id); ok {
		ix.hits.Add(1)
		return a, nil
	}
	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{id}), 1, 0, false)
	req.Fields = storedFields
	found, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return model.Article{}, fmt.Errorf("look up article %s: %w", id, err)
	}
	if len(found.Hits) == 0 {
		return model.Article{}, fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	ix.misses.Add(1)
	return fromFields(id, found.Hits[0].Fields), nil
}

func (ix *Index) clampLimit(limit int) int {
	if limit <= 0 {
		limit = ix.defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

// resolve turns bleve matches into articles, preferring cached copies.
func (ix *Index) resolve(res *bleve.SearchResult) []types.ArticleHit {
	out := make([]types.ArticleHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		a, ok := ix.cache.Get(h.ID)
		if ok {
			ix.hits.Add(1)
		} else {
			ix.misses.Add(1)
			a = fromFields(h.ID, h.Fields)
		}
		out = append(out, types.ArticleHit{
			ID:       a.ID,
			Title:    a.Title,
			Authors:  nonNil(a.Authors),
			Domains:  nonNil(a.Domains),
			Keywords: nonNil(a.Keywords),
			Abstract: a.Abstract,
			Year:     a.Year,
			Score:    h.Score,
		})
	}
	return out
}

// buildQuery matches q against every text field, plus a substring match of
// its terms inside keywords so that "learn" finds "reinforcement learning".
func buildQuery(q string) query.Query {
	mq := matchFields(q)
	if sub := keywordSubstrings(q); sub != nil {
		return bleve.NewDisjunctionQuery(mq, sub)
	}
	return mq
}

func matchFields(text string) query.Query {
	field := func(name string, boost float64) query.Query {
		mq := bleve.NewMatchQuery(text)
		mq.SetField(name)
		mq.SetBoost(boost)
		return mq
	}
	return bleve.NewDisjunctionQuery(
		field(fieldKeywords, boostKeywords),
		field(fieldTitle, boostTitle),
		field(fieldAbstract, boostAbstract),
	)
}

// keywordSubstrings requires every term of q to occur inside some keyword
// token. Wildcard characters in q are treated as separators.
func keywordSubstrings(q string) query.Query {
	terms := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	clauses := make([]query.Query, 0, len(terms))
	for _, t := range terms {
		if utf8.RuneCountInString(t) < minSubstringLen {
			continue
		}
		wq := bleve.NewWildcardQuery("*" + t + "*")
		wq.SetField(fieldKeywords)
		clauses = append(clauses, wq)
		if len(clauses) == maxSubstringTerms {
			break
		}
	}
	if len(clauses) == 0 {
		return nil
	}
	cq := bleve.NewConjunctionQuery(clauses...)
	cq.SetBoost(boostSubstring)
	return cq
}

// fromFields rebuilds an article from stored fields after it left the cache.
func fromFields(id string, fields map[string]any) model.Article {
	a := model.Article{
		ID:       id,
		Title:    fieldString(fields[fieldTitle]),
		Abstract: fieldString(fields[fieldAbstract]),
		Authors:  fieldStrings(fields[fieldAuthors]),
		Domains:  fieldStrings(fields[fieldDomains]),
		Keywords: fieldStrings(fields[fieldKeywords]),
	}
	if y, ok := fields[fieldYear].(float64); ok {
		a.Year = int(y)
	}
	return a
}

func fieldString(v any) string {
	s, _ := v.(string)
	return s
}

// fieldStrings handles bleve returning a single stored value as a scalar.
func fieldStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Remove drops an article from the index.
func (ix *Index) Remove(ctx context.Context, id string) error {
	if ix.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ix.index.Delete(id); err != nil {
		return fmt.Errorf("remove article %s: %w", id, err)
	}
	ix.cache.Remove(id)
	return nil
}

// Stats describes the index.
type Stats struct {
	Documents   uint64 `json:"documents"`
	CachedDocs  int    `json:"cachedDocs"`
	CacheHits   int64  `json:"cacheHits"`
	CacheMisses int64  `json:"cacheMisses"`
}

// Stats returns document and cache counts.
func (ix *Index) Stats() Stats {
	s := Stats{
		CachedDocs:  ix.cache.Len(),
		CacheHits:   ix.hits.Load(),
		CacheMisses: ix.misses.Load(),
	}
	if !ix.closed.Load() {
		if n, err := ix.index.DocCount(); err == nil {
			s.Documents = n
		}
	}
	return s
}

// Close releases the index. Further calls fail with ErrClosed.
func (ix *Index) Close() error {
	if !ix.closed.CompareAndSwap(false, true) {
		return nil
	}
	ix.cache.Purge()
	return ix.index.Close()
}
