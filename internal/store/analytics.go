package store

import (
	"context"
	"database/sql"
	"fmt"

	"helpcenter/api/internal/analytics"
)

func (s *PostgresStore) InsertPageView(ctx context.Context, v analytics.PageView) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO page_views (tenant_id, path, country, viewed_at) VALUES ($1, $2, $3, $4)
	`, v.TenantID, v.Path, v.Country, v.At.UTC()); err != nil {
		return fmt.Errorf("insert page view: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertSearchEvent(ctx context.Context, e analytics.SearchEvent) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO search_events (tenant_id, term, searched_at) VALUES ($1, $2, $3)
	`, e.TenantID, e.Term, e.At.UTC()); err != nil {
		return fmt.Errorf("insert search event: %w", err)
	}
	return nil
}

// AnalyticsCounts aggregates a tenant's page views and search terms inside r.
func (s *PostgresStore) AnalyticsCounts(ctx context.Context, tenantID string, r analytics.Range) (analytics.Counts, error) {
	from, to := r.From.UTC(), r.To.UTC()
	c := analytics.Counts{
		Countries: make([]analytics.CountryCount, 0),
		Terms:     make([]analytics.TermCount, 0),
		Days:      make([]analytics.DayCount, 0),
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM page_views WHERE tenant_id=$1 AND viewed_at >= $2 AND viewed_at < $3
	`, tenantID, from, to).Scan(&c.TotalViews); err != nil {
		return analytics.Counts{}, fmt.Errorf("count page views: %w", err)
	}

	err := queryEach(ctx, s.db, func(rows *sql.Rows) error {
		var cc analytics.CountryCount
		if err := rows.Scan(&cc.Country, &cc.Visitors); err != nil {
			return err
		}
		c.Countries = append(c.Countries, cc)
		return nil
	}, `
		SELECT country, COUNT(*) FROM page_views
		WHERE tenant_id=$1 AND viewed_at >= $2 AND viewed_at < $3
		GROUP BY country
	`, tenantID, from, to)
	if err != nil {
		return analytics.Counts{}, fmt.Errorf("count countries: %w", err)
	}

	err = queryEach(ctx, s.db, func(rows *sql.Rows) error {
		var tc analytics.TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return err
		}
		c.Terms = append(c.Terms, tc)
		return nil
	}, `
		SELECT term, COUNT(*) AS n FROM search_events
		WHERE tenant_id=$1 AND searched_at >= $2 AND searched_at < $3
		GROUP BY term ORDER BY n DESC, term ASC LIMIT $4
	`, tenantID, from, to, analytics.TopTerms)
	if err != nil {
		return analytics.Counts{}, fmt.Errorf("count search terms: %w", err)
	}

	err = queryEach(ctx, s.db, func(rows *sql.Rows) error {
		var dc analytics.DayCount
		if err := rows.Scan(&dc.Date, &dc.Views); err != nil {
			return err
		}
		c.Days = append(c.Days, dc)
		return nil
	}, `
		SELECT to_char(viewed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*) FROM page_views
		WHERE tenant_id=$1 AND viewed_at >= $2 AND viewed_at < $3
		GROUP BY day ORDER BY day DESC
	`, tenantID, from, to)
	if err != nil {
		return analytics.Counts{}, fmt.Errorf("count days: %w", err)
	}
	return c, nil
}

func queryEach(ctx context.Context, db *sql.DB, scan func(*sql.Rows) error, query string, args ...any) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
