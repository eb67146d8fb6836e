// Package lookup loads the static reference tables (region names, fjord
// groupings) that accompany the polygon datasets. Tables are YAML documents;
// JSON files are accepted as well.
package lookup

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// RegionNames reads a region id to region name table.
// Keys may be plain or quoted integers, so JSON objects decode too.
func RegionNames(path string) (map[int]string, error) {
	raw := make(map[string]string)
	if err := decodeFile(path, &raw); err != nil {
		return nil, err
	}
	names := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("invalid region id %q in %s: %w", k, path, err)
		}
		names[id] = v
	}
	return names, nil
}

// GroupFjordMap reads a group name to fjord id list table.
func GroupFjordMap(path string) (map[string][]string, error) {
	groups := make(map[string][]string)
	if err := decodeFile(path, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GroupOf inverts a group table, returning the group of every fjord id.
// A fjord listed under several groups keeps the alphabetically first one.
func GroupOf(groups map[string][]string) map[string]string {
	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	out := make(map[string]string)
	for _, g := range names {
		for _, id := range groups[g] {
			if _, ok := out[id]; !ok {
				out[id] = g
			}
		}
	}
	return out
}

// WriteRegionNames stores a region name table in YAML form.
func WriteRegionNames(path string, names map[int]string) error {
	data, err := yaml.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode region names: %w", err)
	}
	//nolint:gosec // G306: reference tables are not secret.
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write region names: %w", err)
	}
	return nil
}

func decodeFile(path string, out any) error {
	//nolint:gosec // G304: path comes from configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read lookup table: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse lookup table %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("Loaded lookup table")
	return nil
}
