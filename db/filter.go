package db

import (
	"fmt"
	"strings"

	"github.com/rolodex-app/directory-services/models"
)

// columns maps filterable JSON field names to table columns.
type columns map[string]string

var (
	profileColumns = columns{
		"id":        "id",
		"firstName": "first_name",
		"lastName":  "last_name",
		"photoKey":  "photo_key",
		"owner":     "owner",
		"deleted":   "deleted",
	}
	groupColumns = columns{
		"id":    "id",
		"name":  "name",
		"type":  "type",
		"owner": "owner",
	}
	profileGroupColumns = columns{
		"id":        "id",
		"profileID": "profile_id",
		"groupID":   "group_id",
		"owner":     "owner",
	}
	insightColumns = columns{
		"id":        "id",
		"profileID": "profile_id",
		"owner":     "owner",
	}
)

// where renders f as a WHERE clause with positional parameters.
func (c columns) where(f models.Filter) (string, []interface{}, error) {
	if f.IsEmpty() {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(f.And))
	args := make([]interface{}, 0, len(f.And))
	for _, cond := range f.And {
		col, ok := c[cond.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: cannot filter on field %q", models.ErrValidation, cond.Field)
		}
		args = append(args, cond.Value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// page renders the ordering and window of a list query. It asks for one row
// more than the limit so the caller can tell whether another page exists.
func page(opts models.ListOptions, args []interface{}) (string, []interface{}, int, int, error) {
	offset, limit, err := opts.Window()
	if err != nil {
		return "", nil, 0, 0, err
	}
	args = append(args, limit+1, offset)
	clause := fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return clause, args, offset, limit, nil
}

// nextToken trims the extra row fetched by page and returns the token of the
// following page, if any.
func nextToken[T any](items []T, offset, limit int) ([]T, string) {
	if len(items) <= limit {
		return items, ""
	}
	return items[:limit], models.EncodePagingToken(offset + limit)
}
