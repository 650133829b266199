package powerbi

import (
	"net/url"
	"strconv"
)

// Query holds the OData parameters the Power BI API accepts on list
// endpoints. The zero value adds nothing to the request.
type Query struct {
	// Top limits how many rows the API returns.
	Top int
	// Skip offsets into the result set, for paging.
	Skip int
	// Filter is a raw OData $filter expression.
	Filter string
	// Expand pulls related entities into the response.
	Expand string
}

// encode renders the query as a URL query string. A nil receiver encodes
// to the empty string.
func (q *Query) encode() string {
	if q == nil {
		return ""
	}

	values := url.Values{}
	if q.Top > 0 {
		values.Set("$top", strconv.Itoa(q.Top))
	}
	if q.Skip > 0 {
		values.Set("$skip", strconv.Itoa(q.Skip))
	}
	if q.Filter != "" {
		values.Set("$filter", q.Filter)
	}
	if q.Expand != "" {
		values.Set("$expand", q.Expand)
	}
	return values.Encode()
}
