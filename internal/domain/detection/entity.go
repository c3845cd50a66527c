package detection

import (
	"math"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// RecordID tipe untuk history record
type RecordID string

// Prediction enum
type Prediction string

const (
	PredictionReal     Prediction = "real"
	PredictionFake     Prediction = "fake"
	PredictionDeepfake Prediction = "deepfake"
	PredictionUnknown  Prediction = "unknown"
)

// ParsePrediction maps a provider label onto the prediction enum.
func ParsePrediction(label string) Prediction {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "real", "authentic", "genuine", "human":
		return PredictionReal
	case "fake", "ai", "ai_generated", "ai-generated", "manipulated", "synthetic":
		return PredictionFake
	case "deepfake":
		return PredictionDeepfake
	default:
		return PredictionUnknown
	}
}

// IsSynthetic reports whether the prediction flags the media as generated.
func (p Prediction) IsSynthetic() bool {
	return p == PredictionFake || p == PredictionDeepfake
}

// Verdict is the normalized answer of a provider.
type Verdict struct {
	Prediction Prediction `json:"prediction"`
	Confidence float64    `json:"confidence"`
	RequestID  string     `json:"request_id,omitempty"`
}

// Percent returns the confidence as a whole percentage.
func (v Verdict) Percent() int { return Percent(v.Confidence) }

// Percent converts a 0..1 confidence into round(confidence*100).
func Percent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

// MediaKind image | video
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaOther MediaKind = "other"
)

// Media is an uploaded file held in memory for the duration of one analysis.
type Media struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (m *Media) Size() int64 {
	if m == nil {
		return 0
	}
	return int64(len(m.Data))
}

// DetectContentType fills ContentType from the payload when the client sent
// nothing useful, falling back to the file extension for container formats
// the sniffer does not know.
func (m *Media) DetectContentType() string {
	ct := strings.ToLower(strings.TrimSpace(m.ContentType))
	if ct != "" && ct != "application/octet-stream" {
		m.ContentType = ct
		return ct
	}
	sniffed := http.DetectContentType(m.Data)
	if sniffed == "application/octet-stream" || strings.HasPrefix(sniffed, "text/plain") {
		if byExt, ok := extensionTypes[strings.ToLower(filepath.Ext(m.Filename))]; ok {
			sniffed = byExt
		}
	}
	m.ContentType = sniffed
	return sniffed
}

// Kind classifies the media by its content type.
func (m *Media) Kind() MediaKind {
	ct := strings.ToLower(m.ContentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return MediaImage
	case strings.HasPrefix(ct, "video/"):
		return MediaVideo
	default:
		return MediaOther
	}
}

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
}

// Aggregate Root: Record (satu entry history)
//
// Records are created once per successful analysis and never mutated.
type Record struct {
	ID         RecordID   `json:"id" msgpack:"id"`
	SessionID  string     `json:"session_id" msgpack:"session_id"`
	File       string     `json:"file" msgpack:"file"`
	Prediction Prediction `json:"prediction" msgpack:"prediction"`
	Confidence float64    `json:"confidence" msgpack:"confidence"`
	Percent    int        `json:"percent" msgpack:"percent"`
	Time       string     `json:"time" msgpack:"time"`
	Preview    string     `json:"preview,omitempty" msgpack:"preview"`
	Provider   string     `json:"provider" msgpack:"provider"`
	RequestID  string     `json:"request_id,omitempty" msgpack:"request_id"`
	MediaType  string     `json:"media_type,omitempty" msgpack:"media_type"`
	SizeBytes  int64      `json:"size_bytes" msgpack:"size_bytes"`
	Raw        string     `json:"raw,omitempty" msgpack:"raw"`
	CreatedAt  time.Time  `json:"created_at" msgpack:"created_at"`
}

// TimeLayout is how Record.Time is rendered.
const TimeLayout = "2006-01-02 15:04:05"

// NewRecord builds a history record from a verdict.
func NewRecord(id RecordID, session string, media *Media, provider string, v Verdict, raw string, now time.Time) *Record {
	return &Record{
		ID:         id,
		SessionID:  session,
		File:       media.Filename,
		Prediction: v.Prediction,
		Confidence: v.Confidence,
		Percent:    v.Percent(),
		Time:       now.Format(TimeLayout),
		Provider:   provider,
		RequestID:  v.RequestID,
		MediaType:  media.ContentType,
		SizeBytes:  media.Size(),
		Raw:        raw,
		CreatedAt:  now,
	}
}

// Summary is the aggregate behind the history chart.
type Summary struct {
	Total             int     `json:"total"`
	Real              int     `json:"real"`
	Fake              int     `json:"fake"`
	Deepfake          int     `json:"deepfake"`
	Unknown           int     `json:"unknown"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Add counts one prediction into the summary.
func (s *Summary) Add(p Prediction, confidence float64) {
	// running mean supaya gak perlu simpan total
	s.Total++
	s.AverageConfidence += (confidence - s.AverageConfidence) / float64(s.Total)
	switch p {
	case PredictionReal:
		s.Real++
	case PredictionFake:
		s.Fake++
	case PredictionDeepfake:
		s.Deepfake++
	default:
		s.Unknown++
	}
}

// Summarize counts predictions over a list of records.
func Summarize(records []*Record) Summary {
	var s Summary
	for _, r := range records {
		s.Add(r.Prediction, r.Confidence)
	}
	return s
}
