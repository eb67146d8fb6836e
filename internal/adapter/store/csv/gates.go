// Package csv provides CSV-based fjord statistics loading.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"go.ngs.io/fjord-atlas/internal/domain"
)

// TopGateCount is the number of highest-mean rows considered.
const TopGateCount = 20

// Required columns of the per-fjord mean table.
const (
	fjordIDColumn = "fjordID"
	gateIDColumn  = "gateID"
	meanColumn    = "mean"
)

// ErrMissingColumn is returned when a required CSV column is absent.
var ErrMissingColumn = errors.New("missing CSV column")

// GateStatsStore reads the overall per-fjord mean table.
type GateStatsStore struct {
	path string
}

// NewGateStatsStore creates a store for the CSV file at path.
func NewGateStatsStore(path string) *GateStatsStore {
	return &GateStatsStore{path: path}
}

type gateRow struct {
	fjordID string
	gateID  string
	mean    float64
}

// TopFjordGateTuples returns the (fjord, gate) pairs of the 20 rows with the
// highest mean, in descending mean order. Pairs with a missing member are
// dropped after the cut, so fewer than 20 may be returned. Rows with equal
// means keep their file order; rows without a mean sort last.
func (s *GateStatsStore) TopFjordGateTuples() ([]domain.FjordGate, error) {
	//nolint:gosec // G304: path comes from configuration.
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fjord means CSV: %w", err)
	}
	defer func() { _ = file.Close() }()

	return TopFjordGateTuples(file)
}

// TopFjordGateTuples is the reader form of GateStatsStore.TopFjordGateTuples.
func TopFjordGateTuples(r io.Reader) ([]domain.FjordGate, error) {
	rows, err := readGateRows(r)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].mean, rows[j].mean
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})

	if len(rows) > TopGateCount {
		rows = rows[:TopGateCount]
	}

	pairs := make([]domain.FjordGate, 0, len(rows))
	for _, row := range rows {
		if isMissing(row.fjordID) || isMissing(row.gateID) {
			continue
		}
		pairs = append(pairs, domain.FjordGate{FjordID: row.fjordID, GateID: row.gateID})
	}

	log.Debug().Int("rows", len(rows)).Int("pairs", len(pairs)).Msg("Selected top fjord gates")
	return pairs, nil
}

func readGateRows(r io.Reader) ([]gateRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	// Read header.
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{fjordIDColumn, gateIDColumn, meanColumn} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s (header %v)", ErrMissingColumn, col, header)
		}
	}

	field := func(record []string, col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]gateRow, 0)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		meanStr := field(record, meanColumn)
		mean := math.NaN()
		if !isMissing(meanStr) {
			mean, err = strconv.ParseFloat(meanStr, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid mean on line %d: %w", line, err)
			}
		}

		rows = append(rows, gateRow{
			fjordID: normalizeID(field(record, fjordIDColumn)),
			gateID:  normalizeID(field(record, gateIDColumn)),
			mean:    mean,
		})
	}

	return rows, nil
}

// isMissing matches the empty and NA spellings pandas reads as missing.
func isMissing(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "na", "n/a", "null", "none", "<na>":
		return true
	}
	return false
}

// normalizeID turns float-formatted integers ("12.0") into "12", since id
// columns with gaps are written as floats.
func normalizeID(v string) string {
	if isMissing(v) {
		return v
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return v
	}
	return strconv.FormatInt(int64(f), 10)
}
