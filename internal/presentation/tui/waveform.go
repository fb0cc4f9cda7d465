package tui

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/aretw0/pulse/pkg/domain"
)

// Output formats of WriteWaveform.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// WriteWaveform writes w in the given format.
func WriteWaveform(out io.Writer, w *domain.Waveform, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(w)
	case FormatCSV:
		cw := csv.NewWriter(out)
		if err := cw.Write(append([]string{"t"}, w.Channels...)); err != nil {
			return err
		}
		row := make([]string, len(w.Channels)+1)
		for i, t := range w.Times {
			row[0] = formatFloat(t)
			for j, c := range w.Channels {
				row[j+1] = formatFloat(w.Values[c][i])
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatTable, "":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprint(tw, "t")
		for _, c := range w.Channels {
			fmt.Fprint(tw, "\t", c)
		}
		fmt.Fprintln(tw)
		for i, t := range w.Times {
			fmt.Fprint(tw, formatFloat(t))
			for _, c := range w.Channels {
				fmt.Fprint(tw, "\t", formatFloat(w.Values[c][i]))
			}
			fmt.Fprintln(tw)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (table, csv, json)", format)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
