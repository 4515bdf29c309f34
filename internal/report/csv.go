package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/sholl.report/internal/fsutil"
	"github.com/banshee-data/sholl.report/internal/sholl"
	"github.com/banshee-data/sholl.report/internal/units"
)

// WriteProfileCSV writes a radius,crossings table. Radii are converted from
// fromUnit to toUnit and printed with 12 significant digits.
func WriteProfileCSV(w io.Writer, p *sholl.Profile, fromUnit, toUnit string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"radius_" + toUnit, "crossings"}); err != nil {
		return err
	}
	for _, e := range p.Entries {
		r, err := units.ConvertLength(e.Radius, fromUnit, toUnit)
		if err != nil {
			return err
		}
		if err := cw.Write([]string{
			strconv.FormatFloat(r, 'g', 12, 64),
			strconv.Itoa(e.Crossings),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveProfileCSV writes the table to path through fsys.
func SaveProfileCSV(fsys fsutil.FileSystem, path string, p *sholl.Profile, fromUnit, toUnit string) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	if err := WriteProfileCSV(f, p, fromUnit, toUnit); err != nil {
		f.Close()
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return f.Close()
}
