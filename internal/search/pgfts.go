package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

const tsQuery = "plainto_tsquery('english', $1)"

// buildSQL assembles the UNION ALL of the article and page sub-queries.
// $1 is the query text and $2 the tenant id.
func buildSQL(q Query) (countSQL, dataSQL string, ok bool) {
	status := ""
	if q.PublishedOnly {
		status = " AND status = 'published'"
	}

	var subQueries []string
	if q.FilterType == "" || q.FilterType == ResultArticle {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'article'::text AS type, id, title,
				ts_headline('english', content, %[1]s, 'MaxFragments=1,MaxWords=30') AS snippet,
				category, status,
				ts_rank(fts, %[1]s) AS rank
			FROM articles
			WHERE tenant_id = $2 AND fts @@ %[1]s%[2]s`, tsQuery, status))
	}
	if q.FilterType == "" || q.FilterType == ResultPage {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'page'::text AS type, id, title,
				ts_headline('english', content, %[1]s, 'MaxFragments=1,MaxWords=30') AS snippet,
				''::text AS category, status,
				ts_rank(fts, %[1]s) AS rank
			FROM pages
			WHERE tenant_id = $2 AND fts @@ %[1]s%[2]s`, tsQuery, status))
	}
	if len(subQueries) == 0 {
		return "", "", false
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	union := strings.Join(subQueries, " UNION ALL ")
	countSQL = fmt.Sprintf("SELECT count(*) FROM (%s) sub", union)
	dataSQL = fmt.Sprintf(`SELECT type, id, title, snippet, category, status
		FROM (%s) sub
		ORDER BY rank DESC, id
		LIMIT %d OFFSET %d`, union, limit, offset)
	return countSQL, dataSQL, true
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" || q.TenantID == "" {
		return nil, 0, nil
	}
	countSQL, dataSQL, ok := buildSQL(q)
	if !ok {
		return nil, 0, nil
	}
	args := []any{q.Text, q.TenantID}

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.Category, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every article and page for a full reindex.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ArticleRecord, []PageRecord, error) {
	articleRows, err := p.db.QueryContext(ctx, `
		SELECT id, tenant_id, title, content, category, status FROM articles
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load articles: %w", err)
	}
	defer articleRows.Close()

	articles := make([]ArticleRecord, 0)
	for articleRows.Next() {
		var a ArticleRecord
		if err := articleRows.Scan(&a.ID, &a.TenantID, &a.Title, &a.Content, &a.Category, &a.Status); err != nil {
			return nil, nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := articleRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate articles: %w", err)
	}

	pageRows, err := p.db.QueryContext(ctx, `
		SELECT id, tenant_id, title, content, page_type, status FROM pages
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load pages: %w", err)
	}
	defer pageRows.Close()

	pages := make([]PageRecord, 0)
	for pageRows.Next() {
		var pg PageRecord
		if err := pageRows.Scan(&pg.ID, &pg.TenantID, &pg.Title, &pg.Content, &pg.Type, &pg.Status); err != nil {
			return nil, nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, pg)
	}
	if err := pageRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate pages: %w", err)
	}
	return articles, pages, nil
}
