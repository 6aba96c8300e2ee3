package completeness

// Report rendering for the two historical call conventions. Both shapes
// share the same top-level layout:
//
//	{"timestamps": [...], "timeseries": {<key>: {<fields>}, ...}}
//
// and differ only in the series key (identifier vs display name) and the
// field label style (underscore-joined vs spaced).

// ByID renders the report keyed by series identifier with underscore-joined
// field labels
func (r *Report) ByID() map[string]interface{} {
	series := make(map[string]interface{}, len(r.Series))

	for id, sr := range r.Series {
		series[id] = map[string]interface{}{
			"name":               sr.Name,
			"count":              sr.Count,
			"expected_count":     sr.ExpectedCount,
			"ratio":              sr.Ratio,
			"total_count":        sr.TotalCount,
			"avg_count":          sr.AvgCount,
			"avg_ratio":          sr.AvgRatio,
			"interval":           sr.Interval,
			"undefined_interval": sr.UndefinedInterval,
		}
	}

	return map[string]interface{}{
		"timestamps": r.Timestamps,
		"timeseries": series,
	}
}

// ByName renders the report keyed by series display name with spaced field
// labels, the convention of the older reporting call sites
func (r *Report) ByName() map[string]interface{} {
	series := make(map[string]interface{}, len(r.Series))

	for _, sr := range r.Series {
		series[sr.Name] = map[string]interface{}{
			"count":              sr.Count,
			"expected count":     sr.ExpectedCount,
			"ratio":              sr.Ratio,
			"total count":        sr.TotalCount,
			"avg count":          sr.AvgCount,
			"avg ratio":          sr.AvgRatio,
			"interval":           sr.Interval,
			"undefined interval": sr.UndefinedInterval,
		}
	}

	return map[string]interface{}{
		"timestamps": r.Timestamps,
		"timeseries": series,
	}
}
