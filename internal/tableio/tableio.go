// Package tableio reads and writes the collaborator file formats used by
// the spotdecode CLI: a JSON codebook, a CSV intensity table and a CSV
// decoded table. The formats are fixed interfaces to the spot-finding and
// reporting collaborators, kept deliberately thin.
package tableio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"spotdecode/pkg/codebook"
	"spotdecode/pkg/decoder"
	"spotdecode/pkg/intensity"
)

// codebookFile is the on-disk JSON layout of a codebook.
type codebookFile struct {
	Rounds   int `json:"rounds"`
	Channels int `json:"channels"`
	Entries  []struct {
		Target string `json:"target"`
		// Channels holds one activated channel per round; -1 is a wildcard.
		Channels []int `json:"channels"`
	} `json:"entries"`
}

// ReadCodebook loads and validates a codebook from a JSON file.
func ReadCodebook(path string) (*codebook.Codebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading codebook: %w", err)
	}
	var file codebookFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing codebook: %w", err)
	}
	entries := make([]codebook.Entry, len(file.Entries))
	for i, e := range file.Entries {
		entries[i] = codebook.Entry{Target: e.Target, Channels: e.Channels}
	}
	return codebook.New(file.Rounds, file.Channels, entries)
}

// ReadIntensities loads a CSV intensity table with the given dimensions.
// Expected columns: spot_id, x, y, z, radius, then rounds*channels
// intensity values in round-major order. An empty cell or "NA" marks a
// measurement as missing; it is never read as zero.
func ReadIntensities(path string, rounds, channels int) (*intensity.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading intensities: %w", err)
	}
	defer f.Close()

	t, err := intensity.NewTable(rounds, channels)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing intensities: %w", err)
	}
	if len(rows) == 0 {
		return t, nil
	}

	wantCols := 5 + rounds*channels
	for i, row := range rows {
		if i == 0 && strings.EqualFold(row[0], "spot_id") {
			continue // header
		}
		if len(row) != wantCols {
			return nil, fmt.Errorf("intensities row %d: expected %d columns, got %d", i+1, wantCols, len(row))
		}
		spot := intensity.Spot{ID: row[0]}
		for j, dst := range []*float64{&spot.X, &spot.Y, &spot.Z, &spot.Radius} {
			v, err := strconv.ParseFloat(row[1+j], 64)
			if err != nil {
				return nil, fmt.Errorf("intensities row %d column %d: %w", i+1, 2+j, err)
			}
			*dst = v
		}

		n := rounds * channels
		values := make([]float64, n)
		missing := make([]bool, n)
		for j := 0; j < n; j++ {
			cell := strings.TrimSpace(row[5+j])
			if cell == "" || strings.EqualFold(cell, "NA") {
				missing[j] = true
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("intensities row %d column %d: %w", i+1, 6+j, err)
			}
			values[j] = v
		}
		if err := t.AddSpot(spot, values, missing); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// WriteDecoded writes a decoded table as CSV with columns spot_id, target,
// quality, distance, round_pass (one digit per round) and reason. No-call
// records have an empty target.
func WriteDecoded(path string, t *decoder.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing decoded table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"spot_id", "target", "quality", "distance", "round_pass", "reason"}); err != nil {
		return err
	}
	for _, rec := range t.Records() {
		var pass strings.Builder
		for _, ok := range rec.RoundPass {
			if ok {
				pass.WriteByte('1')
			} else {
				pass.WriteByte('0')
			}
		}
		row := []string{
			rec.SpotID,
			rec.Target,
			strconv.FormatFloat(rec.Quality, 'f', 4, 64),
			strconv.FormatFloat(rec.Distance, 'f', 6, 64),
			pass.String(),
			string(rec.Reason),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
