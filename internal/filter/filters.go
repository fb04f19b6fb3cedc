package filter

import (
	"net/url"
	"strconv"

	"github.com/siahsang/kiterunner/internal/validator"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	MaxOffset    = 10_000_000
)

// Filter is a limit/offset page request.
type Filter struct {
	Limit  int64
	Offset int64
}

func NewFilter(limit, offset int64) Filter {
	return Filter{
		Limit:  limit,
		Offset: offset,
	}
}

// FromQuery reads limit and offset from the query string, recording
// unparsable values on v. Missing values take the defaults.
func FromQuery(query url.Values, v *validator.Validator) Filter {
	return NewFilter(
		readInt(query, "limit", DefaultLimit, v),
		readInt(query, "offset", 0, v),
	)
}

func ValidateFilters(v *validator.Validator, filters Filter) {
	v.Check(filters.Limit > 0, "limit", "must be greater than 0")
	v.Check(filters.Limit <= MaxLimit, "limit", "must be a maximum of 100")
	v.Check(filters.Offset >= 0, "offset", "must be greater than or equal to 0")
	v.Check(filters.Offset <= MaxOffset, "offset", "must be a maximum of 10000000")
}

func readInt(query url.Values, key string, defaultValue int64, v *validator.Validator) int64 {
	s := query.Get(key)
	if s == "" {
		return defaultValue
	}

	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		v.AddError(key, "must be an integer value")
		return defaultValue
	}

	return i
}
