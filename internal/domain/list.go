package domain

import "strings"

// ListLimit is the number of kartes the list view shows by default.
const ListLimit = 50

// NewListLimit resolves an optional ?limit= query value.
// Nil or non-positive values fall back to ListLimit; the limit is capped at
// 100 to prevent runaway queries.
func NewListLimit(limit *int) int {
	if limit == nil || *limit < 1 {
		return ListLimit
	}
	if *limit > 100 {
		return 100
	}
	return *limit
}

// ListQuery selects the rows of the list view: the Limit most recently
// updated kartes, narrowed to those whose list columns contain Search.
// The search applies inside the newest window, never beyond it.
type ListQuery struct {
	Limit  int
	Search string
}

// NewListQuery resolves the optional ?limit= and ?q= query values.
func NewListQuery(limit *int, search *string) ListQuery {
	q := ListQuery{Limit: NewListLimit(limit)}
	if search != nil {
		q.Search = strings.TrimSpace(*search)
	}
	return q
}

// Matches reports whether search occurs, case-insensitively, in any list
// column: karte no, staff, client org, departure date, persons or
// destination. A blank search matches everything.
func (i KarteInfo) Matches(search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, col := range []string{
		i.KarteNo, i.StaffName, i.ClientOrg, i.DepartureDate, i.PersonCount.String(), i.Destination,
	} {
		if strings.Contains(strings.ToLower(col), search) {
			return true
		}
	}
	return false
}

// NoMatchText is the list view's message for a search without results.
func NoMatchText(search string) string {
	return "「" + search + "」に一致するカルテはありません"
}
