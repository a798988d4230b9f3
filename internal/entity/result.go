package entity

import "time"

// Fetch statuses recorded on a scan result.
const (
	FetchStatusOK        = "ok"
	FetchStatusError     = "fetch_error"
	FetchStatusEmptyBody = "empty_body"
	FetchStatusParseErr  = "parse_error"
)

// ScanResult mirrors the `scan_results` table. Rows are append-only: one per
// processed target, never mutated after insert.
type ScanResult struct {
	ID              int64
	ScanID          int64
	TargetID        int64
	SourceURL       string
	SourceDomain    string
	FinalURL        string
	FinalDomain     string
	HTTPStatus      int
	FetchStatus     string
	RedirectChain   []string
	RobotsNoindex   bool
	XRobotsNoindex  bool
	BacklinkFound   bool
	BestLinkType    string
	AnchorText      string
	PageAuthority   *float64
	DomainAuthority *float64
	ProviderStatus  string
	ErrorMessage    *string
	FetchedAt       time.Time
	CreatedAt       time.Time

	// Links carries the matched backlinks when the result is being persisted.
	// Read paths leave it empty.
	Links []ScanLink
}

// ScanLink mirrors the `scan_links` table: one row per anchor recognized as
// pointing at the tracked domain. Write-once.
type ScanLink struct {
	ID          int64
	ResultID    int64
	Href        string
	ResolvedURL string
	Rel         string
	LinkType    string
	AnchorText  string
	IsTarget    bool
	CreatedAt   time.Time
}

// ResultAggregate summarizes one scan's results for trend comparisons.
type ResultAggregate struct {
	Total     int
	Backlinks int
	AvgDA     float64
}

// ResultFilters narrows and orders the Results projection.
type ResultFilters struct {
	FetchStatus string
	LinkType    string
	Search      string
	Sort        string // "id_desc" (default), "da_desc", "da_asc", "status_asc"
}
