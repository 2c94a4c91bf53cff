package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jwalitptl/patient-registry/internal/model"
)

// WriteCSV writes a header row of column names followed by one line per
// result row. NULL becomes an empty field.
func WriteCSV(w io.Writer, result *model.QueryResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return err
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i, col := range result.Columns {
			record[i] = formatValue(row[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSVFilename names an export after the day it was taken.
func CSVFilename(now time.Time) string {
	return fmt.Sprintf("query-results-%s.csv", now.UTC().Format("2006-01-02"))
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
