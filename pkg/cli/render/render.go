package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"google.golang.org/api/googleapi"
)

// Output formats accepted by PrintRecords.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// PrintTable writes columns as a header row followed by rows, aligned with
// two spaces between columns. No columns means no output.
func PrintTable(w io.Writer, columns []string, rows [][]string) {
	if len(columns) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeRow(tw, columns)
	for _, row := range rows {
		writeRow(tw, row)
	}
	_ = tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			_, _ = io.WriteString(w, "\t")
		}
		_, _ = io.WriteString(w, sanitizeCell(c))
	}
	_, _ = io.WriteString(w, "\n")
}

// sanitizeCell keeps tabs and newlines in values from breaking the layout.
func sanitizeCell(s string) string {
	out := []byte(s)
	for i, b := range out {
		if b == '\t' || b == '\n' || b == '\r' {
			out[i] = ' '
		}
	}
	return string(out)
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintRecords renders records in the given format. Tables take their header
// from the first record's fields; later records missing a field show it empty.
func PrintRecords(w io.Writer, format string, records []*Record) error {
	if format == FormatJSON {
		if records == nil {
			records = []*Record{}
		}
		return PrintJSON(w, records)
	}
	if len(records) == 0 {
		return nil
	}

	columns := records[0].Keys()
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = r.Field(c)
		}
		rows = append(rows, row)
	}
	PrintTable(w, columns, rows)
	return nil
}

// PrintError writes err's message and, when it came from the API with a
// response body, the body as pretty-printed JSON with sorted keys.
func PrintError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, err)

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Body == "" {
		return
	}
	var body any
	if jsonErr := json.Unmarshal([]byte(apiErr.Body), &body); jsonErr != nil {
		_, _ = fmt.Fprintln(w, apiErr.Body)
		return
	}
	// encoding/json sorts map keys.
	pretty, jsonErr := json.MarshalIndent(body, "", "    ")
	if jsonErr != nil {
		_, _ = fmt.Fprintln(w, apiErr.Body)
		return
	}
	_, _ = fmt.Fprintln(w, string(pretty))
}
