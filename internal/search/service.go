package search

import (
	"context"
	"log/slog"
)

type meiliBackend interface {
	Searcher
	Indexer
}

type recordLoader interface {
	Searcher
	LoadAllRecords(ctx context.Context) ([]ArticleRecord, []PageRecord, error)
}

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili  meiliBackend
	pgfts  recordLoader
	logger *slog.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS, logger *slog.Logger) *Service {
	s := &Service{logger: logger}
	if meili != nil {
		s.meili = meili
	}
	if pgfts != nil {
		s.pgfts = pgfts
	}
	return s
}

func (s *Service) meiliReady() bool {
	return s.meili != nil && s.meili.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if q.TenantID == "" {
		return Response{Results: []Result{}, Query: q.Text}
	}
	if s.meiliReady() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("meilisearch failed, falling back to postgres", "err", err)
	}
	if s.pgfts == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}

	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		s.logger.Error("postgres search failed", "err", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexArticle indexes an article (fire-and-forget to Meilisearch).
func (s *Service) IndexArticle(a ArticleRecord) {
	s.async("index article", a.ID, func(m meiliBackend) error { return m.IndexArticles([]ArticleRecord{a}) })
}

// IndexPage indexes a page (fire-and-forget to Meilisearch).
func (s *Service) IndexPage(p PageRecord) {
	s.async("index page", p.ID, func(m meiliBackend) error { return m.IndexPages([]PageRecord{p}) })
}

func (s *Service) DeleteArticle(id string) {
	s.async("delete article", id, func(m meiliBackend) error { return m.DeleteArticle(id) })
}

func (s *Service) DeletePage(id string) {
	s.async("delete page", id, func(m meiliBackend) error { return m.DeletePage(id) })
}

func (s *Service) async(op, id string, fn func(meiliBackend) error) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := fn(s.meili); err != nil {
			s.logger.Warn("search index update failed", "op", op, "id", id, "err", err)
		}
	}()
}

// ReindexAllFromPG pushes every article and page from PostgreSQL into
// Meilisearch and reports how many records were sent.
func (s *Service) ReindexAllFromPG(ctx context.Context) (int, error) {
	if !s.meiliReady() || s.pgfts == nil {
		return 0, nil
	}
	articles, pages, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		return 0, err
	}
	if len(articles) > 0 {
		if err := s.meili.IndexArticles(articles); err != nil {
			return 0, err
		}
	}
	if len(pages) > 0 {
		if err := s.meili.IndexPages(pages); err != nil {
			return len(articles), err
		}
	}
	return len(articles) + len(pages), nil
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
