package response

import (
	"time"

	"github.com/user/backlink-service/internal/entity"
)

// ScanResponse is the DTO for a scan, mirroring entity.Scan.
type ScanResponse struct {
	ID               int64      `json:"id"`
	ProjectID        int64      `json:"project_id"`
	RequestedBy      int64      `json:"requested_by"`
	Status           string     `json:"status"`
	Provider         string     `json:"provider"`
	RootDomain       string     `json:"root_domain"`
	TotalTargets     int        `json:"total_targets"`
	ProcessedTargets int        `json:"processed_targets"`
	CorrelationID    string     `json:"correlation_id"`
	ErrorSummary     *string    `json:"error_summary,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// FromScan converts the entity into its transport shape.
func FromScan(s *entity.Scan) ScanResponse {
	return ScanResponse{
		ID:               s.ID,
		ProjectID:        s.ProjectID,
		RequestedBy:      s.RequestedBy,
		Status:           s.Status,
		Provider:         s.Provider,
		RootDomain:       s.RootDomain,
		TotalTargets:     s.TotalTargets,
		ProcessedTargets: s.ProcessedTargets,
		CorrelationID:    s.CorrelationID,
		ErrorSummary:     s.ErrorSummary,
		CreatedAt:        s.CreatedAt,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
	}
}

// FromScans converts a list of scans.
func FromScans(scans []entity.Scan) []ScanResponse {
	out := make([]ScanResponse, 0, len(scans))
	for i := range scans {
		out = append(out, FromScan(&scans[i]))
	}
	return out
}

// ResultResponse is the DTO for one scan result row.
type ResultResponse struct {
	ID              int64    `json:"id"`
	SourceURL       string   `json:"source_url"`
	FinalURL        string   `json:"final_url"`
	HTTPStatus      int      `json:"http_status"`
	FetchStatus     string   `json:"fetch_status"`
	RedirectChain   []string `json:"redirect_chain"`
	RobotsNoindex   bool     `json:"robots_noindex"`
	XRobotsNoindex  bool     `json:"x_robots_noindex"`
	BacklinkFound   bool     `json:"backlink_found"`
	BestLinkType    string   `json:"best_link_type"`
	AnchorText      string   `json:"anchor_text,omitempty"`
	PageAuthority   *float64 `json:"page_authority,omitempty"`
	DomainAuthority *float64 `json:"domain_authority,omitempty"`
	ProviderStatus  string   `json:"provider_status"`
	ErrorMessage    *string  `json:"error_message,omitempty"`
}

// FromResults converts result entities into their transport shape.
func FromResults(results []entity.ScanResult) []ResultResponse {
	out := make([]ResultResponse, 0, len(results))
	for i := range results {
		r := &results[i]
		out = append(out, ResultResponse{
			ID:              r.ID,
			SourceURL:       r.SourceURL,
			FinalURL:        r.FinalURL,
			HTTPStatus:      r.HTTPStatus,
			FetchStatus:     r.FetchStatus,
			RedirectChain:   r.RedirectChain,
			RobotsNoindex:   r.RobotsNoindex,
			XRobotsNoindex:  r.XRobotsNoindex,
			BacklinkFound:   r.BacklinkFound,
			BestLinkType:    r.BestLinkType,
			AnchorText:      r.AnchorText,
			PageAuthority:   r.PageAuthority,
			DomainAuthority: r.DomainAuthority,
			ProviderStatus:  r.ProviderStatus,
			ErrorMessage:    r.ErrorMessage,
		})
	}
	return out
}
