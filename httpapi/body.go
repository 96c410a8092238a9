package httpapi

import "github.com/ggoodman/a11y-warehouse/a11yclient"

// ScanBody is the POST /scan request body.
type ScanBody struct {
	URL          string `json:"url" jsonschema:"required,format=uri"`
	PageInsights bool   `json:"page_insights,omitempty"`
}

func (b ScanBody) request() a11yclient.ScanRequest {
	return a11yclient.ScanRequest{URL: b.URL, PageInsights: b.PageInsights}
}

// CrawlBody is the POST /crawl request body for a single site.
type CrawlBody struct {
	URL          string `json:"url" jsonschema:"required,format=uri"`
	Subdomains   bool   `json:"subdomains,omitempty"`
	TLD          bool   `json:"tld,omitempty"`
	PageInsights bool   `json:"page_insights,omitempty"`
}

func (b CrawlBody) request() a11yclient.CrawlRequest {
	return a11yclient.CrawlRequest{
		URL:          b.URL,
		Subdomains:   b.Subdomains,
		TLD:          b.TLD,
		PageInsights: b.PageInsights,
	}
}
