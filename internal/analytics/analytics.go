// Package analytics records help-center page views and search terms and
// summarizes them over a date range.
package analytics

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	dateLayout     = "2006-01-02"
	// TopTerms is how many search terms a report lists.
	TopTerms       = 10
	// TopArticles is how many articles a report lists.
	TopArticles    = 5
	// UnknownCountry is recorded when no country header is present.
	UnknownCountry = "Unknown"

	defaultSpanDays = 30
	maxSpanDays     = 366
	maxTermRunes    = 100
)

var ErrInvalidRange = errors.New("invalid date range")

type PageView struct {
	TenantID string
	Path     string
	Country  string
	At       time.Time
}

type SearchEvent struct {
	TenantID string
	Term     string
	At       time.Time
}

// Range is the half-open interval [From, To) of whole UTC days.
type Range struct {
	From time.Time
	To   time.Time
}

// ParseRange reads inclusive YYYY-MM-DD bounds. A missing end means today,
// a missing start means the 30 days ending at the end date.
func ParseRange(from, to string, now time.Time) (Range, error) {
	end := now.UTC().Truncate(24 * time.Hour)
	if to = strings.TrimSpace(to); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return Range{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrInvalidRange)
		}
		end = t
	}
	start := end.AddDate(0, 0, -(defaultSpanDays - 1))
	if from = strings.TrimSpace(from); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return Range{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrInvalidRange)
		}
		start = t
	}
	if start.After(end) {
		return Range{}, fmt.Errorf("%w: from is after to", ErrInvalidRange)
	}
	r := Range{From: start, To: end.AddDate(0, 0, 1)}
	if r.To.Sub(r.From) > maxSpanDays*24*time.Hour {
		return Range{}, fmt.Errorf("%w: at most %d days", ErrInvalidRange, maxSpanDays)
	}
	return r, nil
}

// NormalizeTerm lower-cases a search term and collapses its whitespace.
func NormalizeTerm(term string) string {
	term = strings.ToLower(strings.Join(strings.Fields(term), " "))
	for utf8.RuneCountInString(term) > maxTermRunes {
		_, size := utf8.DecodeLastRuneInString(term)
		term = term[:len(term)-size]
	}
	return strings.TrimSpace(term)
}

var countryHeaders = []string{"CF-IPCountry", "X-Country-Code", "X-Appengine-Country"}

// CountryFrom reads the visitor country set by the edge proxy.
func CountryFrom(h http.Header) string {
	for _, name := range countryHeaders {
		v := strings.ToUpper(strings.TrimSpace(h.Get(name)))
		if len(v) != 2 || v == "XX" || v == "T1" {
			continue
		}
		if v[0] < 'A' || v[0] > 'Z' || v[1] < 'A' || v[1] > 'Z' {
			continue
		}
		return v
	}
	return UnknownCountry
}

type CountryCount struct {
	Country  string `json:"country"`
	Visitors int64  `json:"visitors"`
}

type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

type DayCount struct {
	Date  string `json:"date"`
	Views int64  `json:"views"`
}

// Counts are the raw aggregates a store returns for one tenant and range.
type Counts struct {
	TotalViews int64
	Countries  []CountryCount
	Terms      []TermCount
	Days       []DayCount
}

type GeoStat struct {
	Country    string  `json:"country"`
	Visitors   int64   `json:"visitors"`
	Percentage float64 `json:"percentage"`
}

type ArticleViews struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Views int    `json:"views"`
}

type Report struct {
	From            string         `json:"from"`
	To              string         `json:"to"`
	TotalViews      int64          `json:"totalViews"`
	GeoStats        []GeoStat      `json:"geoStats"`
	SearchTerms     []TermCount    `json:"searchTerms"`
	DailyStats      []DayCount     `json:"dailyStats"`
	PopularArticles []ArticleViews `json:"popularArticles"`
}

// Build turns store aggregates into a report: countries by visitors with
// their share of all views, the top search terms, days newest first and
// the most viewed articles.
func Build(r Range, c Counts, articles []ArticleViews) Report {
	geo := make([]GeoStat, 0, len(c.Countries))
	for _, cc := range c.Countries {
		geo = append(geo, GeoStat{Country: cc.Country, Visitors: cc.Visitors, Percentage: percentage(cc.Visitors, c.TotalViews)})
	}
	sort.Slice(geo, func(i, j int) bool {
		if geo[i].Visitors != geo[j].Visitors {
			return geo[i].Visitors > geo[j].Visitors
		}
		return geo[i].Country < geo[j].Country
	})

	terms := append([]TermCount{}, c.Terms...)
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
	if len(terms) > TopTerms {
		terms = terms[:TopTerms]
	}

	days := append([]DayCount{}, c.Days...)
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })

	popular := make([]ArticleViews, 0, len(articles))
	for _, a := range articles {
		if a.Views > 0 {
			popular = append(popular, a)
		}
	}
	sort.SliceStable(popular, func(i, j int) bool { return popular[i].Views > popular[j].Views })
	if len(popular) > TopArticles {
		popular = popular[:TopArticles]
	}

	return Report{
		From:            r.From.Format(dateLayout),
		To:              r.To.AddDate(0, 0, -1).Format(dateLayout),
		TotalViews:      c.TotalViews,
		GeoStats:        geo,
		SearchTerms:     terms,
		DailyStats:      days,
		PopularArticles: popular,
	}
}

func percentage(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
