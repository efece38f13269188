package clix

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

func ParsePagination(flags *pflag.FlagSet) (PaginationParams, error) {
	limit, _ := flags.GetInt("limit")
	offset, _ := flags.GetInt("offset")
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		return PaginationParams{}, fmt.Errorf("offset cannot be negative: %d", offset)
	}
	return PaginationParams{Limit: limit, Offset: offset}, nil
}

// ParseList reads a comma-separated string flag. An unset or blank flag returns fallback.
func ParseList(flags *pflag.FlagSet, name string, fallback []string) []string {
	raw, _ := flags.GetString(name)
	items := SplitList(raw)
	if len(items) == 0 {
		return fallback
	}
	return items
}

// SplitList splits on commas, trimming space and dropping empty entries.
func SplitList(raw string) []string {
	var items []string
	for _, t := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
