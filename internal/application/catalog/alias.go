package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"go.yaml.in/yaml/v4"
	"golang.org/x/text/unicode/norm"
)

// CategoryAliases is the alias set applied to the Category field.
const CategoryAliases = "categoryAliases"

// AliasTable is an ordered list of synonym groups. The first element of each
// group is the canonical spelling.
type AliasTable [][]string

// AliasSet holds named alias tables.
type AliasSet map[string]AliasTable

// MapAlias returns the canonical spelling of value: the first element of the
// first group containing value, or value itself when no group contains it.
// Matching is exact (case sensitive).
func MapAlias(value string, table AliasTable) string {
	for _, group := range table {
		for _, v := range group {
			if v == value {
				return group[0]
			}
		}
	}
	return value
}

// Map is MapAlias with the receiver as table.
func (t AliasTable) Map(value string) string {
	return MapAlias(value, t)
}

// ParseAliasSet decodes a YAML alias document:
//
//	categoryAliases:
//	  - [SERIES, serie, series]
//	  - [Movie, Film, movie]
func ParseAliasSet(data []byte) (AliasSet, error) {
	var raw map[string][][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse aliases: %w", err)
	}
	set := make(AliasSet, len(raw))
	for name, groups := range raw {
		table := make(AliasTable, 0, len(groups))
		for i, g := range groups {
			if len(g) == 0 {
				return nil, fmt.Errorf("parse aliases: %s: group %d is empty", name, i)
			}
			table = append(table, g)
		}
		set[name] = table
	}
	return set, nil
}

// LoadAliasSet reads the alias file at path. It never fails: a missing or
// malformed file is logged and yields an empty set.
func LoadAliasSet(path string, logger *slog.Logger) AliasSet {
	if path == "" {
		return AliasSet{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("alias file not found, no aliases active", slog.String("path", path))
		} else {
			logger.Warn("failed to read alias file", slog.String("path", path), slog.Any("error", err))
		}
		return AliasSet{}
	}
	set, err := ParseAliasSet(data)
	if err != nil {
		logger.Warn("malformed alias file, no aliases active", slog.String("path", path), slog.Any("error", err))
		return AliasSet{}
	}
	return set
}

// Merge returns a new set with the groups of other appended after s's groups.
func (s AliasSet) Merge(other AliasSet) AliasSet {
	out := make(AliasSet, len(s)+len(other))
	for name, t := range s {
		out[name] = append(AliasTable(nil), t...)
	}
	for name, t := range other {
		out[name] = append(out[name], t...)
	}
	return out
}

// foldKey reduces a value to the form used to detect near-duplicate spellings.
func foldKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(norm.NFKC.String(s)), " "))
}

// DeriveAliases builds an alias table from observed values. Values that differ
// only by Unicode compatibility form, case or whitespace are grouped; the most
// frequent spelling becomes canonical (ties go to the ordinally smallest).
// Values without a near-duplicate produce no group.
func DeriveAliases(values []string) AliasTable {
	counts := make(map[string]map[string]int)
	for _, v := range values {
		if v == "" {
			continue
		}
		k := foldKey(v)
		if counts[k] == nil {
			counts[k] = make(map[string]int)
		}
		counts[k][v]++
	}

	var table AliasTable
	for _, spellings := range counts {
		if len(spellings) < 2 {
			continue
		}
		group := make([]string, 0, len(spellings))
		for s := range spellings {
			group = append(group, s)
		}
		sort.Slice(group, func(i, j int) bool {
			ci, cj := spellings[group[i]], spellings[group[j]]
			if ci != cj {
				return ci > cj
			}
			return group[i] < group[j]
		})
		table = append(table, group)
	}
	sort.Slice(table, func(i, j int) bool { return table[i][0] < table[j][0] })
	return table
}
