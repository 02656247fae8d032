package api

// Multipart field names of the submit request
const (
	PrmFile   = "data_file"
	PrmConfig = "config"
)

// JobConfig is sent as config field on submit
type JobConfig struct {
	Type                string              `json:"type"`
	TranscriptionConfig TranscriptionConfig `json:"transcription_config"`
}

// TranscriptionConfig keeps recognition params
type TranscriptionConfig struct {
	Language string `json:"language"`
}

// SubmitResponse is returned on accepted submit
type SubmitResponse struct {
	ID string `json:"id"`
}

// Transcript is the result document
type Transcript struct {
	Results []TranscriptItem `json:"results"`
}

// TranscriptItem is one recognized segment
type TranscriptItem struct {
	Alternatives []Alternative `json:"alternatives"`
}

// Alternative is one hypothesis of a segment, the first one is the best
type Alternative struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence,omitempty"`
}
