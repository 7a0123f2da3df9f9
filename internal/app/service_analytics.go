package app

import (
	"context"
	"errors"
	"strings"

	"helpcenter/api/internal/analytics"
	"helpcenter/api/internal/rbac"
)

// Analytics summarizes page views and search terms between the inclusive
// dates from and to (YYYY-MM-DD, both optional).
func (s *Service) Analytics(ctx context.Context, sess Session, from, to string) (analytics.Report, error) {
	if err := s.authorize(sess, rbac.ViewAnalytics); err != nil {
		return analytics.Report{}, err
	}
	r, err := analytics.ParseRange(from, to, s.now())
	if errors.Is(err, analytics.ErrInvalidRange) {
		return analytics.Report{}, validationError("range", err.Error())
	}
	if err != nil {
		return analytics.Report{}, err
	}
	counts, err := s.store.AnalyticsCounts(ctx, sess.TenantID, r)
	if err != nil {
		return analytics.Report{}, err
	}
	articles, err := s.store.ListArticles(ctx, sess.TenantID, "")
	if err != nil {
		return analytics.Report{}, err
	}
	views := make([]analytics.ArticleViews, 0, len(articles))
	for _, a := range articles {
		if a.Status == "published" {
			views = append(views, analytics.ArticleViews{ID: a.ID, Title: a.Title, Views: a.Views})
		}
	}
	return analytics.Build(r, counts, views), nil
}

func (s *Service) recordPageView(ctx context.Context, tenantID, path, country string) {
	if country == "" {
		country = analytics.UnknownCountry
	}
	v := analytics.PageView{TenantID: tenantID, Path: path, Country: country, At: s.now()}
	if err := s.store.InsertPageView(ctx, v); err != nil {
		s.logger.Warn("page view not recorded", "tenant_id", tenantID, "path", path, "err", err)
	}
}

func (s *Service) recordSearch(ctx context.Context, tenantID, text string) {
	term := analytics.NormalizeTerm(text)
	if term == "" {
		return
	}
	if err := s.store.InsertSearchEvent(ctx, analytics.SearchEvent{TenantID: tenantID, Term: term, At: s.now()}); err != nil {
		s.logger.Warn("search term not recorded", "tenant_id", tenantID, "err", err)
	}
}

func articlePath(articleID string) string {
	return "/articles/" + strings.TrimSpace(articleID)
}
