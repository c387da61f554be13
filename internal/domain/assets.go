package domain

// Tables served by the read-only API
const (
	TableExistingPlants      = "existingh2plants"
	TableRenewables          = "renewablepowerplants"
	TableSiteRecommendations = "siterecommendations"
)

// Column projections used by the list endpoints
var (
	PlantListColumns     = []string{"id", "Latitude", "Longitude", "Plant_Name"}
	RenewableListColumns = []string{"id", "Station", "Latitude", "Longitude"}
)
