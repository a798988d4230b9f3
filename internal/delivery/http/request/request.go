package request

// CreateScanRequest starts a backlink audit over a set of target URLs.
type CreateScanRequest struct {
	ProjectID   int64    `json:"project_id"`
	RequestedBy int64    `json:"requested_by"`
	RootDomain  string   `json:"root_domain"`
	URLs        []string `json:"urls"`
}
