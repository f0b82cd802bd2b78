// Package results post-processes solver output: schedulability ratios per experiment folder and end-to-end
// response times of chains computed from per-job response times.
package results

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Group counts the solver verdicts of the task sets of one folder.
type Group struct {
	Subfolder string
	Ones      int
	Total     int
}

func (g Group) Ratio() float64 {
	if g.Total == 0 {
		return 0
	}
	return float64(g.Ones) / float64(g.Total)
}

// Aggregate groups solver result lines by the folder holding the task file named in the first column and
// counts the lines whose second column is 1. Lines with fewer than two columns or a non-integer second
// column are skipped. Groups are returned sorted by folder name.
func Aggregate(r io.Reader) ([]Group, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	groups := make(map[string]*Group)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, errors.WithStack(err)
		}
		if len(record) < 2 {
			continue
		}
		value, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			continue
		}
		subfolder := filepath.Base(filepath.Dir(strings.TrimSpace(record[0])))
		g, ok := groups[subfolder]
		if !ok {
			g = &Group{Subfolder: subfolder}
			groups[subfolder] = g
		}
		g.Total++
		if value == 1 {
			g.Ones++
		}
	}
	names := maps.Keys(groups)
	slices.Sort(names)
	rv := make([]Group, len(names))
	for i, name := range names {
		rv[i] = *groups[name]
	}
	return rv, nil
}

var SummaryHeader = []string{"subfolder", "ones", "total", "ratio"}

// WriteSummary writes one subfolder,ones,total,ratio row per group.
func WriteSummary(w io.Writer, groups []Group) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return errors.WithStack(err)
	}
	for _, g := range groups {
		record := []string{
			g.Subfolder,
			strconv.Itoa(g.Ones),
			strconv.Itoa(g.Total),
			strconv.FormatFloat(g.Ratio(), 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}
