package detection

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFile is returned before any network call when nothing was uploaded.
	ErrNoFile = errors.New("Please choose a file first.")
	// ErrEmptyFile indicates a zero-byte upload.
	ErrEmptyFile = errors.New("Empty file uploaded")
	// ErrFileTooLarge indicates the upload exceeded the configured limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedMedia indicates the upload is neither an image nor a video.
	ErrUnsupportedMedia = errors.New("only image and video files are supported")

	// ErrMalformedResponse indicates the provider answered with a shape we do not know.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrAnalysisFailed indicates the provider answered but reported a failed analysis.
	ErrAnalysisFailed = errors.New("Analysis failed. Please try another file.")

	// ErrProvider is matched by every ProviderError.
	ErrProvider = errors.New("provider request failed")
	// ErrQuotaExceeded indicates the provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("provider quota exceeded")

	// ErrNotFound indicates an unknown history record.
	ErrNotFound = errors.New("record not found")
)

// Phase names the step of an analysis that failed.
type Phase string

const (
	PhaseValidate Phase = "validate"
	PhasePresign  Phase = "presign"
	PhaseUpload   Phase = "upload"
	PhaseResult   Phase = "result"
	PhaseRequest  Phase = "request"
	PhaseParse    Phase = "parse"
	PhaseStore    Phase = "store"
)

// ProviderError wraps a failure talking to an external provider.
type ProviderError struct {
	Provider   string
	Phase      Phase
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: Server error %d: %v", e.Provider, e.Phase, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Phase, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// PhaseOf returns the phase recorded in err, or fallback.
func PhaseOf(err error, fallback Phase) Phase {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Phase != "" {
		return pe.Phase
	}
	return fallback
}
