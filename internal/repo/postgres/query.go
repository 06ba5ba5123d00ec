package postgres

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/request"
)

// maxListLimit caps page sizes regardless of what the client asks for.
const maxListLimit = 1000

var filterOps = map[string]string{
	"":    "=",
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
}

// colKind fixes the SQL parameter type per column. The column decides how a
// raw query value is bound, so a text column never sees a bigint parameter
// and vice versa.
type colKind int

const (
	kindText colKind = iota
	kindInt
	kindFloat
	kindBool
	kindTime
)

// column maps an API field name to its SQL column and parameter type.
type column struct {
	name string
	kind colKind
}

func (c column) coerce(v string) (any, error) {
	switch c.kind {
	case kindInt:
		return strconv.ParseInt(v, 10, 64)
	case kindFloat:
		return strconv.ParseFloat(v, 64)
	case kindBool:
		return strconv.ParseBool(v)
	case kindTime:
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t, nil
		}
		return time.Parse(time.RFC3339, v)
	default:
		return v, nil
	}
}

// buildListQuery appends WHERE / ORDER BY / LIMIT clauses derived from list
// options to a base SELECT. cols whitelists API field names against typed SQL
// columns; filters and sorts on unknown fields are ignored, and a filter value
// that cannot be coerced to its column's type is a validation error.
func buildListQuery(baseSelect string, baseWhere []string, baseArgs []any, opts request.ListOptions, cols map[string]column, defaultOrder string) (string, []any, error) {
	conds := append([]string(nil), baseWhere...)
	args := append([]any(nil), baseArgs...)

	for _, f := range opts.Filters {
		col, ok := cols[f.Field]
		if !ok {
			continue
		}
		op, ok := filterOps[f.Op]
		if !ok {
			continue
		}
		v, err := col.coerce(f.Value)
		if err != nil {
			return "", nil, domain.Invalid("invalid value %q for %s", f.Value, f.Field)
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s %s $%d", col.name, op, len(args)))
	}

	q := baseSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	var orders []string
	for _, s := range opts.Sort {
		col, ok := cols[s.Field]
		if !ok {
			continue
		}
		if s.Desc {
			orders = append(orders, col.name+" DESC")
		} else {
			orders = append(orders, col.name+" ASC")
		}
	}
	if len(orders) == 0 && defaultOrder != "" {
		orders = append(orders, defaultOrder)
	}
	if len(orders) > 0 {
		q += " ORDER BY " + strings.Join(orders, ", ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = request.DefaultLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := opts.Offset()
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, offset)
	q += fmt.Sprintf(" OFFSET $%d", len(args))

	return q, args, nil
}
