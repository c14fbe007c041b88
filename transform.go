package viewsync

// fieldAliases maps a source table to the view-shape aliases its stream
// records need. Keys are the alias column consumers expect, values are the
// table column that carries the data. Aliases are additions: the original
// column stays on the record, and an alias never clobbers a column the
// record already has.
var fieldAliases = map[string]map[string]string{
	"land_health": {
		"created_at": "observation_date",
		"updated_at": "observation_date",
	},
	"degradation_risk": {
		"risk_score": "total_risk_score",
		"factors":    "risk_factors",
		"created_at": "assessment_date",
	},
	"climate_data": {
		"temperature": "temp_avg",
		"rainfall":    "precipitation",
		"created_at":  "date",
	},
}

// TransformRecord reshapes a raw stream record from a source table into the
// field shape of the views served off that table. It is total: records from
// unmapped tables pass through unchanged, and a missing source column simply
// leaves its alias unset.
func TransformRecord(table string, rec Record) Record {
	if rec == nil {
		return nil
	}

	aliases, ok := fieldAliases[table]
	if !ok {
		return rec
	}

	out := rec.Clone()
	for alias, column := range aliases {
		if _, exists := out[alias]; exists {
			continue
		}
		if v, present := rec[column]; present {
			out[alias] = v
		}
	}

	return out
}
