package search

import "context"

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultArticle ResultType = "article"
	ResultPage    ResultType = "page"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	Category string     `json:"category,omitempty"`
	Status   string     `json:"status"`
}

// Query describes a search request. TenantID is mandatory; results never
// cross tenants.
type Query struct {
	Text          string
	TenantID      string
	FilterType    ResultType // empty = all types
	PublishedOnly bool
	Limit         int
	Offset        int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexArticles(articles []ArticleRecord) error
	IndexPages(pages []PageRecord) error
	DeleteArticle(id string) error
	DeletePage(id string) error
}

// ArticleRecord is the data we index for a help article.
type ArticleRecord struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

// PageRecord is the data we index for a custom page.
type PageRecord struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Type     string `json:"type"`
	Status   string `json:"status"`
}
