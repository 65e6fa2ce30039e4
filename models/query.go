package models

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Condition is a single equality test on a field, named as in the JSON form
// of the entity (e.g. "profileID").
type Condition struct {
	Field string
	Value string
}

// Filter is a conjunction of equality conditions. The zero Filter matches
// everything.
type Filter struct {
	And []Condition
}

// Eq builds a single equality filter.
func Eq(field string, value interface{}) Filter {
	var v string
	switch t := value.(type) {
	case string:
		v = t
	case uuid.UUID:
		v = t.String()
	case bool:
		v = strconv.FormatBool(t)
	default:
		v = fmt.Sprint(t)
	}
	return Filter{And: []Condition{{Field: field, Value: v}}}
}

// And combines filters into one conjunction.
func And(filters ...Filter) Filter {
	var out Filter
	for _, f := range filters {
		out.And = append(out.And, f.And...)
	}
	return out
}

func (f Filter) IsEmpty() bool {
	return len(f.And) == 0
}

func (f Filter) String() string {
	parts := make([]string, 0, len(f.And))
	for _, c := range f.And {
		parts = append(parts, c.Field+"="+c.Value)
	}
	return strings.Join(parts, " and ")
}

// ListOptions mirrors the list call of the backend: a page size, an opaque
// token to continue from, and a filter.
type ListOptions struct {
	Limit       int
	PagingToken string
	Filter      Filter
}

// Window resolves the options into an offset and a clamped limit.
func (o ListOptions) Window() (offset, limit int, err error) {
	limit = o.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if o.PagingToken == "" {
		return 0, limit, nil
	}
	offset, err = DecodePagingToken(o.PagingToken)
	return offset, limit, err
}

func EncodePagingToken(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte("o:" + strconv.Itoa(offset)))
}

func DecodePagingToken(token string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, invalid("malformed paging token")
	}
	s, ok := strings.CutPrefix(string(raw), "o:")
	if !ok {
		return 0, invalid("malformed paging token")
	}
	offset, err := strconv.Atoi(s)
	if err != nil || offset < 0 {
		return 0, invalid("malformed paging token")
	}
	return offset, nil
}
