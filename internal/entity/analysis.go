package entity

// Link categories derived from an anchor's rel attribute.
const (
	LinkTypeDofollow  = "dofollow"
	LinkTypeNofollow  = "nofollow"
	LinkTypeUGC       = "ugc"
	LinkTypeSponsored = "sponsored"
	LinkTypeNone      = "none"
)

// Analysis is the structured outcome of analyzing one target page. Per-target
// fetch and parse failures are represented here as data, never as errors.
type Analysis struct {
	SourceURL      string
	SourceDomain   string
	FinalURL       string
	FinalDomain    string
	HTTPStatus     int
	FetchStatus    string
	RedirectChain  []string
	RobotsNoindex  bool
	XRobotsNoindex bool
	BacklinkFound  bool
	BestLinkType   string
	AnchorText     string
	ErrorMessage   string
	Links          []MatchedLink
}

// MatchedLink is one anchor on the fetched page whose resolved host matches
// the tracked root domain.
type MatchedLink struct {
	Href        string
	ResolvedURL string
	Rel         string
	LinkType    string
	AnchorText  string
	IsTarget    bool
}
