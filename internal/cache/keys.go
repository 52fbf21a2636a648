package cache

// Cache key builders for the derived views the staging engine invalidates.

// OrgChartKey names the cached reporting-tree projection.
func OrgChartKey() string {
	return "org_chart:tree"
}

// ProfileFieldsKey names the cached profile schema listing.
func ProfileFieldsKey() string {
	return "profile_fields:all"
}

// DraftChangesKey names an actor's cached diff view.
func DraftChangesKey(actorID string) string {
	return "draft_changes:" + actorID
}
