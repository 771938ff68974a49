package export

import "fmt"

// Column describes one exported column.
type Column struct {
	Key     string
	Title   string
	Numeric bool
}

// Table is the tabular content shared by the CSV and PDF renderers.
type Table struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
	// Totals is rendered as a trailing row when present, keyed like Rows.
	Totals map[string]string
}

func (t Table) validate(format string) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%s requires at least one column", format)
	}
	return nil
}

func (t Table) titles() []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = col.Title
		if out[i] == "" {
			out[i] = col.Key
		}
	}
	return out
}

func (t Table) record(row map[string]string) []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = row[col.Key]
	}
	return out
}
