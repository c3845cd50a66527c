package export

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

// Report renders the copy-to-clipboard text for a single record.
func Report(r *detection.Record) string {
	var b strings.Builder
	b.WriteString("Deepfake Detection Report\n")
	b.WriteString("=========================\n")
	fmt.Fprintf(&b, "File:       %s\n", r.File)
	fmt.Fprintf(&b, "Prediction: %s\n", strings.ToUpper(string(r.Prediction)))
	fmt.Fprintf(&b, "Confidence: %d%%\n", detection.Percent(r.Confidence))
	fmt.Fprintf(&b, "Time:       %s\n", r.Time)
	if r.Provider != "" {
		fmt.Fprintf(&b, "Provider:   %s\n", r.Provider)
	}
	if r.RequestID != "" {
		fmt.Fprintf(&b, "Request ID: %s\n", r.RequestID)
	}
	if r.MediaType != "" {
		fmt.Fprintf(&b, "Media:      %s (%d bytes)\n", r.MediaType, r.SizeBytes)
	}
	return b.String()
}
