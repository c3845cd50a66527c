package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/export"
)

func TestWriteCSVKeepsOrderAndOneDecimal(t *testing.T) {
	records := []*detection.Record{
		{File: "first.jpg", Prediction: detection.PredictionFake, Confidence: 0.876, Time: "2026-10-16 09:00:00"},
		{File: "second, with comma.mp4", Prediction: detection.PredictionReal, Confidence: 0.5, Time: "2026-10-16 09:01:00"},
		{File: "third.png", Prediction: detection.PredictionUnknown, Confidence: 0, Time: "2026-10-16 09:02:00"},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, export.CSVHeader, rows[0])
	assert.Equal(t, []string{"first.jpg", "fake", "87.6", "2026-10-16 09:00:00"}, rows[1])
	assert.Equal(t, []string{"second, with comma.mp4", "real", "50.0", "2026-10-16 09:01:00"}, rows[2])
	assert.Equal(t, []string{"third.png", "unknown", "0.0", "2026-10-16 09:02:00"}, rows[3])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, nil))
	assert.Equal(t, "file,prediction,confidence,time\n", buf.String())
}

func TestInsertionOrder(t *testing.T) {
	newestFirst := []*detection.Record{{ID: "c"}, {ID: "b"}, {ID: "a"}}
	out := export.InsertionOrder(newestFirst)
	assert.Equal(t, detection.RecordID("a"), out[0].ID)
	assert.Equal(t, detection.RecordID("c"), out[2].ID)
	assert.Empty(t, export.InsertionOrder(nil))
}

func TestReport(t *testing.T) {
	r := &detection.Record{
		File:       "face.jpg",
		Prediction: detection.PredictionDeepfake,
		Confidence: 0.915,
		Time:       "2026-10-16 09:00:00",
		Provider:   "reality-defender",
		RequestID:  "req-9",
		MediaType:  "image/jpeg",
		SizeBytes:  2048,
	}
	text := export.Report(r)
	assert.Contains(t, text, "File:       face.jpg")
	assert.Contains(t, text, "Prediction: DEEPFAKE")
	assert.Contains(t, text, "Confidence: 92%")
	assert.Contains(t, text, "Request ID: req-9")
	assert.Contains(t, text, "image/jpeg (2048 bytes)")

	bare := export.Report(&detection.Record{File: "x.png", Prediction: detection.PredictionReal, Confidence: 0.4})
	assert.NotContains(t, bare, "Provider:")
	assert.Contains(t, bare, "Confidence: 40%")
}
