package repository

// ListParams describes a sorted page request.  Sort must already be one of
// the columns the repository allows; Order is "asc" or "desc".
type ListParams struct {
	Sort    string
	Order   string
	PerPage int
	Page    int
}

// Offset returns the row offset of the requested page.
func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// orderClause maps the request onto a whitelisted ORDER BY.  Unknown
// columns fall back to id so user input never reaches the SQL text.
func orderClause(p ListParams, columns map[string]string) string {
	col, ok := columns[p.Sort]
	if !ok {
		col = "id"
	}
	dir := "ASC"
	if p.Order == "desc" {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", id " + dir
}
