package config

import "time"

const (
	DefaultAppName     = "bdask"
	DefaultTurnTimeout = 120 * time.Second
	DefaultPrompt      = "Ask: "

	DefaultProvider = "openai"
	DefaultModel    = "openai/gpt-4.1"

	DefaultMaxInputLength  = 300
	DefaultMaxSearchLength = 300
	DefaultSQLTopK         = 100
	DefaultSearchResults   = 10
	DefaultHistoryTurns    = 6

	DefaultRouterMode = "llm"

	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
)

// Dataset keys recognised by the router.
const (
	DatasetInstitutions = "institutions"
	DatasetHospitals    = "hospitals"
	DatasetRestaurants  = "restaurants"
)

// DatasetKeys lists every dataset in registration order.
var DatasetKeys = []string{DatasetInstitutions, DatasetHospitals, DatasetRestaurants}

func defaultDatasets() map[string]DatasetConfig {
	return map[string]DatasetConfig{
		DatasetInstitutions: {
			Path:        "sqlite_db/institutions.db",
			Table:       "institutions",
			Description: "Use for universities, colleges, govt institutions in Bangladesh.",
		},
		DatasetHospitals: {
			Path:        "sqlite_db/hospitals.db",
			Table:       "hospitals",
			Description: "Use for hospitals, beds, doctors, facilities in Bangladesh.",
		},
		DatasetRestaurants: {
			Path:        "sqlite_db/restaurants.db",
			Table:       "restaurants",
			Description: "Use for restaurants, cuisine, ratings, locations in Bangladesh.",
		},
	}
}
