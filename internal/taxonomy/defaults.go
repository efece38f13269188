package taxonomy

const (
	LeadershipGovernance   = "Leadership & Governance"
	CreativityInnovation   = "Creativity & Innovation"
	Replicability          = "Replicability"
	ImpactOfInitiatives    = "Impact of Urban Initiatives Implemented"
	SustainabilityOfChange = "Sustainability of the Transformation"
	IntegrationOfPlans     = "Integration of Plans"
)

var defaultPillars = []Pillar{
	{Name: LeadershipGovernance, Keywords: []string{"leadership", "governance", "vision", "foresight", "commitment", "government", "policy", "mayor", "council", "administration"}},
	{Name: CreativityInnovation, Keywords: []string{"creativity", "innovation", "master plan", "strategy", "implementation", "new models", "benchmarks", "technology", "digital", "smart city"}},
	{Name: Replicability, Keywords: []string{"replicable", "practices", "ideas", "adopted", "benefit", "other cities", "scalable", "transferable", "best practices"}},
	{Name: ImpactOfInitiatives, Keywords: []string{"urban initiatives", "positive changes", "urban environment", "local communities", "people", "impact", "transformation", "development"}},
	{Name: SustainabilityOfChange, Keywords: []string{"sustainability", "institutionalised processes", "unaffected by leadership changes", "buy-in", "local communities", "vision", "long-term"}},
	{Name: IntegrationOfPlans, Keywords: []string{"integration", "relation of plans", "regional", "metropolitan level", "coordination", "planning", "alignment"}},
}

var defaultCities = []City{
	{Name: "New York", Keyword: "new york", Flag: "🇺🇸"},
	{Name: "Singapore", Keyword: "singapore", Flag: "🇸🇬"},
	{Name: "Bilbao", Keyword: "bilbao", Flag: "🇪🇸"},
	{Name: "Seoul", Keyword: "seoul", Flag: "🇰🇷"},
	{Name: "Amsterdam", Keyword: "amsterdam", Flag: "🇳🇱"},
	{Name: "Barcelona", Keyword: "barcelona", Flag: "🇪🇸"},
	{Name: "Copenhagen", Keyword: "copenhagen", Flag: "🇩🇰"},
	{Name: "Melbourne", Keyword: "melbourne", Flag: "🇦🇺"},
}

// Default returns the built-in pillar taxonomy.
func Default() *Taxonomy {
	return MustNew(defaultPillars)
}

// DefaultCatalog returns the built-in city catalog.
func DefaultCatalog() *Catalog {
	return MustNewCatalog(defaultCities)
}
