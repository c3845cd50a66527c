// Package export renders history records as CSV and plain-text reports.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{"file", "prediction", "confidence", "time"}

// WriteCSV writes one row per record in the order given. Confidence is
// written as a percentage with one decimal place.
func WriteCSV(w io.Writer, records []*detection.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.File,
			string(r.Prediction),
			FormatConfidence(r.Confidence),
			r.Time,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatConfidence renders 0..1 as a one-decimal percentage, e.g. 0.876 → "87.6".
func FormatConfidence(confidence float64) string {
	return strconv.FormatFloat(confidence*100, 'f', 1, 64)
}

// InsertionOrder reverses a newest-first listing in place and returns it.
func InsertionOrder(newestFirst []*detection.Record) []*detection.Record {
	for i, j := 0, len(newestFirst)-1; i < j; i, j = i+1, j-1 {
		newestFirst[i], newestFirst[j] = newestFirst[j], newestFirst[i]
	}
	return newestFirst
}
