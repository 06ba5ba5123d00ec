package request

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Reserved control keys on list endpoints. Everything else is a filter.
const (
	keyPage   = "page"
	keySort   = "sort"
	keyLimit  = "limit"
	keyFields = "fields"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// Filter is a single comparison extracted from the query string,
// e.g. price[gte]=500 -> {Field: "price", Op: "gte", Value: "500"}.
type Filter struct {
	Field string
	Op    string // "", gte, gt, lte, lt ("" means equality)
	Value string
}

type SortField struct {
	Field string
	Desc  bool
}

// ListOptions carries filtering, sorting, projection and pagination for list
// reads. Zero value means "everything, first page".
type ListOptions struct {
	Filters []Filter
	Sort    []SortField
	Fields  []string
	Page    int
	Limit   int
}

func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

var opKey = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)\[(gte|gt|lte|lt)\]$`)

// ParseListOptions extracts list options from URL query parameters. Applied in
// fixed order downstream: filter, sort, project, paginate.
func ParseListOptions(q url.Values) ListOptions {
	opts := ListOptions{
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}

	for key, values := range q {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		value := values[0]

		switch key {
		case keyPage:
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				opts.Page = n
			}
		case keyLimit:
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				opts.Limit = n
			}
		case keySort:
			for _, f := range strings.Split(value, ",") {
				f = strings.TrimSpace(f)
				if f == "" {
					continue
				}
				if strings.HasPrefix(f, "-") {
					opts.Sort = append(opts.Sort, SortField{Field: f[1:], Desc: true})
				} else {
					opts.Sort = append(opts.Sort, SortField{Field: f})
				}
			}
		case keyFields:
			for _, f := range strings.Split(value, ",") {
				if f = strings.TrimSpace(f); f != "" {
					opts.Fields = append(opts.Fields, f)
				}
			}
		default:
			if m := opKey.FindStringSubmatch(key); m != nil {
				opts.Filters = append(opts.Filters, Filter{Field: m[1], Op: m[2], Value: value})
			} else {
				opts.Filters = append(opts.Filters, Filter{Field: key, Value: value})
			}
		}
	}

	return opts
}
