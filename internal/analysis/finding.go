package analysis

// Categories a finding may be classified into. The model is instructed to
// pick one of these; anything else is kept verbatim but flagged unknown.
const (
	CategoryNetwork     = "Network Security"
	CategoryApplication = "Application Security"
	CategoryServer      = "Server & Desktop Security"
	CategoryPhysical    = "Physical Security"
	CategoryInformation = "Information Security"
)

var knownCategories = map[string]bool{
	CategoryNetwork:     true,
	CategoryApplication: true,
	CategoryServer:      true,
	CategoryPhysical:    true,
	CategoryInformation: true,
}

// KnownCategory reports whether c is one of the fixed classification
// categories.
func KnownCategory(c string) bool {
	return knownCategories[c]
}

// Finding is the structured result of analyzing one observation. Every
// non-blank input row produces exactly one Finding; failures surface as
// error-marked findings rather than dropped rows.
type Finding struct {
	Title          string
	Category       string
	CategoryKnown  bool
	Observation    string
	Recommendation string
	Actions        string
}
