package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var fieldPathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidFieldPath reports whether path is a plain dotted field name such as
// "Recording.RecGroup".
func ValidFieldPath(path string) bool {
	return len(path) <= maxFieldPathLen && fieldPathPattern.MatchString(path)
}

const maxFieldPathLen = 128

// Filter is one field equality constraint.
type Filter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FilterSpec is an ordered conjunction of field constraints. Values are never
// modified in place; With returns a new spec.
type FilterSpec []Filter

// With returns a copy of f with key bound to value. An existing binding for key
// keeps its position and gets the new value.
func (f FilterSpec) With(key, value string) FilterSpec {
	out := make(FilterSpec, 0, len(f)+1)
	replaced := false
	for _, c := range f {
		if c.Key == key {
			c.Value = value
			replaced = true
		}
		out = append(out, c)
	}
	if !replaced {
		out = append(out, Filter{Key: key, Value: value})
	}
	return out
}

// Get returns the value bound to key.
func (f FilterSpec) Get(key string) (string, bool) {
	for _, c := range f {
		if c.Key == key {
			return c.Value, true
		}
	}
	return "", false
}

// GroupPlan is the sequence of group keys still to apply, head first.
type GroupPlan []string

// Empty reports whether no grouping is left, i.e. the level lists leaves.
func (p GroupPlan) Empty() bool {
	return len(p) == 0
}

// Head returns the key applied at the current level.
func (p GroupPlan) Head() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Tail returns the plan handed to children. Its capacity is clipped so that
// appending to it can never write into the parent's backing array.
func (p GroupPlan) Tail() GroupPlan {
	if len(p) <= 1 {
		return nil
	}
	return p[1:len(p):len(p)]
}

// BrowseAction holds everything needed to re-invoke a listing. It round-trips
// through a flat key/value encoding (URL query parameters).
type BrowseAction struct {
	Plan    GroupPlan
	Filter  FilterSpec
	SortKey string
	Offset  int
}

// Query parameter names used by the action encoding.
const (
	ParamGroup  = "group"
	ParamFilter = "filter"
	ParamSort   = "sort"
	ParamOffset = "offset"
)

// Values encodes the action. Group keys and filters are repeated parameters so
// their order survives; a filter is encoded as "key=value".
func (a BrowseAction) Values() url.Values {
	v := url.Values{}
	for _, k := range a.Plan {
		v.Add(ParamGroup, k)
	}
	for _, f := range a.Filter {
		v.Add(ParamFilter, f.Key+"="+f.Value)
	}
	if a.SortKey != "" {
		v.Set(ParamSort, a.SortKey)
	}
	if a.Offset > 0 {
		v.Set(ParamOffset, strconv.Itoa(a.Offset))
	}
	return v
}

// Encode returns the action as a URL query string.
func (a BrowseAction) Encode() string {
	return a.Values().Encode()
}

// MarshalText implements encoding.TextMarshaler.
func (a BrowseAction) MarshalText() ([]byte, error) {
	return []byte(a.Encode()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *BrowseAction) UnmarshalText(text []byte) error {
	v, err := url.ParseQuery(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	parsed, err := ParseBrowseAction(v)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseBrowseAction decodes an action produced by Values.
func ParseBrowseAction(v url.Values) (BrowseAction, error) {
	var a BrowseAction
	for _, k := range v[ParamGroup] {
		k = strings.TrimSpace(k)
		if k == "" {
			return BrowseAction{}, fmt.Errorf("%w: empty group key", ErrInvalidInput)
		}
		if !ValidFieldPath(k) {
			return BrowseAction{}, fmt.Errorf("%w: invalid group key %q", ErrInvalidInput, k)
		}
		a.Plan = append(a.Plan, k)
	}
	for _, raw := range v[ParamFilter] {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return BrowseAction{}, fmt.Errorf("%w: malformed filter %q", ErrInvalidInput, raw)
		}
		if !ValidFieldPath(key) {
			return BrowseAction{}, fmt.Errorf("%w: invalid filter key %q", ErrInvalidInput, key)
		}
		a.Filter = a.Filter.With(key, value)
	}
	a.SortKey = v.Get(ParamSort)
	if a.SortKey != "" && !ValidFieldPath(a.SortKey) {
		return BrowseAction{}, fmt.Errorf("%w: invalid sort key %q", ErrInvalidInput, a.SortKey)
	}
	if s := v.Get(ParamOffset); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return BrowseAction{}, fmt.Errorf("%w: invalid offset %q", ErrInvalidInput, s)
		}
		a.Offset = n
	}
	return a, nil
}
