package datatable

import (
	"encoding/csv"
	"encoding/json"
	"io"
)

// ExportCSV writes the currently loaded rows. encoding/csv handles quoting,
// so embedded quotes and separators survive round-trips.
func (t *Table[T]) ExportCSV(w io.Writer) error {
	t.mu.Lock()
	rows := t.current.Items
	t.mu.Unlock()

	writer := csv.NewWriter(w)
	header := make([]string, len(t.config.Columns))
	for i, column := range t.config.Columns {
		header[i] = column.Title
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	record := make([]string, len(t.config.Columns))
	for _, row := range rows {
		for i, column := range t.config.Columns {
			record[i] = column.Value(row)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportJSON writes the currently loaded rows as a JSON array.
func (t *Table[T]) ExportJSON(w io.Writer) error {
	t.mu.Lock()
	rows := t.current.Items
	t.mu.Unlock()

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}
