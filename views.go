package viewsync

// viewSources maps the logical view names consumers subscribe under to the
// base tables whose mutations drive their live updates. Several views share
// a base table. Views not listed here stream straight off a table with the
// same name.
var viewSources = map[string]string{
	"health":           "land_health",
	"risk":             "degradation_risk",
	"climate_forecast": "climate_data",
	"weather_realtime": "climate_data",
	"alerts":           "alerts",
	"recommendations":  "recommendations",
}

// SourceTable resolves a logical view name to its change-stream source table.
func SourceTable(view string) string {
	if table, ok := viewSources[view]; ok {
		return table
	}
	return view
}
