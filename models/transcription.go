package models

import "time"

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// State is a step of the per-request pipeline. Error is reachable from
// Fetching and Transcribing only.
type State string

const (
	StateReceived     State = "received"
	StateFetching     State = "fetching"
	StateTranscribing State = "transcribing"
	StateResponding   State = "responding"
	StateDone         State = "done"
	StateError        State = "error"
)

// Source says where a transcript came from.
type Source string

const (
	SourceWhisper   Source = "whisper"
	SourceSubtitles Source = "subtitles"
)

// TranscriptionRequest is the body of POST /transcribe.
type TranscriptionRequest struct {
	URL string `json:"url"`
}

// TranscriptionResult is returned on success. Transcript is always present,
// and may be empty when the audio holds no recognisable speech.
type TranscriptionResult struct {
	URL        string `json:"url"`
	Transcript string `json:"transcript"`
	Status     Status `json:"status"`
	Platform   string `json:"platform,omitempty"`
	Model      string `json:"model,omitempty"`
	Source     Source `json:"source,omitempty"`
}

type ErrorResponse struct {
	URL       string `json:"url,omitempty"`
	Status    Status `json:"status"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type HealthResponse struct {
	Status             string         `json:"status"`
	Service            string         `json:"service"`
	Version            string         `json:"version,omitempty"`
	Model              string         `json:"model,omitempty"`
	Uptime             string         `json:"uptime,omitempty"`
	SupportedPlatforms []string       `json:"supported_platforms,omitempty"`
	Debug              map[string]any `json:"debug,omitempty"`
}

// Record is one journal row describing how a request ended.
type Record struct {
	ID              string        `json:"id"`
	URL             string        `json:"url"`
	Platform        string        `json:"platform"`
	Status          Status        `json:"status"`
	Stage           string        `json:"stage,omitempty"`
	Model           string        `json:"model"`
	Source          Source        `json:"source,omitempty"`
	TranscriptChars int           `json:"transcript_chars"`
	Error           string        `json:"error,omitempty"`
	Duration        time.Duration `json:"duration"`
	CreatedAt       time.Time     `json:"created_at"`
}
