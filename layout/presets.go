package layout

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/dargueta/fatimg"
	"github.com/gocarina/gocsv"
)

// DefaultSlug names the layout used when none is given: a 3.5" 1.44M floppy.
const DefaultSlug = "fd1440"

// https://en.wikipedia.org/wiki/List_of_floppy_disk_formats
//
//go:embed layouts.csv
var layoutsRawCSV string
var predefinedLayouts map[string]Layout

// Predefined returns the standard layout with the given slug, e.g. "fd720".
func Predefined(slug string) (Layout, error) {
	l, ok := predefinedLayouts[slug]
	if ok {
		return l, nil
	}
	return Layout{}, fatimg.ErrInvalidArgument.WithMessage(
		fmt.Sprintf(
			"no predefined layout exists with slug %q; known layouts: %s",
			slug,
			strings.Join(Slugs(), ", ")))
}

// Default returns the layout named by [DefaultSlug].
func Default() Layout {
	return predefinedLayouts[DefaultSlug]
}

// All returns every predefined layout, smallest image first.
func All() []Layout {
	all := make([]Layout, 0, len(predefinedLayouts))
	for _, l := range predefinedLayouts {
		all = append(all, l)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ImageSize < all[j].ImageSize })
	return all
}

// Slugs returns the slugs of every predefined layout, smallest image first.
func Slugs() []string {
	all := All()
	slugs := make([]string, len(all))
	for i, l := range all {
		slugs[i] = l.Slug
	}
	return slugs
}

func init() {
	csvReader := csv.NewReader(strings.NewReader(layoutsRawCSV))
	csvReader.Comma = '|'

	var rows []Layout
	err := gocsv.UnmarshalCSV(csvReader, &rows)
	if err != nil {
		panic(fmt.Errorf("failed to decode layout table: %w", err))
	}

	predefinedLayouts = make(map[string]Layout, len(rows))
	for i, row := range rows {
		_, exists := predefinedLayouts[row.Slug]
		if exists {
			panic(fmt.Errorf("duplicate definition for layout %q found on row %d", row.Slug, i+1))
		}
		predefinedLayouts[row.Slug] = row
	}

	if _, ok := predefinedLayouts[DefaultSlug]; !ok {
		panic(fmt.Errorf("default layout %q missing from layout table", DefaultSlug))
	}
}
