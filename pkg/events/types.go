package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event flowing through the system.
type EventType string

const (
	UserSignedIn       EventType = "kiosk.user.signed_in"
	UserSignedOut      EventType = "kiosk.user.signed_out"
	SpeechTranscribed  EventType = "kiosk.speech.transcribed"
	SpeechSynthesized  EventType = "kiosk.speech.synthesized"
	TextTranslated     EventType = "kiosk.text.translated"
	HistorySaved       EventType = "kiosk.history.saved"
	SystemError        EventType = "error"
)

// Envelope is the standard event wrapper published to the event bus.
type Envelope struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Source    string            `json:"source"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// UserSignedInData is the payload for kiosk.user.signed_in events.
type UserSignedInData struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
}

// SpeechTranscribedData is the payload for kiosk.speech.transcribed events.
type SpeechTranscribedData struct {
	Language   string  `json:"language"`
	Provider   string  `json:"provider"`
	Confidence float64 `json:"confidence"`
	Characters int     `json:"characters"`
}

// SpeechSynthesizedData is the payload for kiosk.speech.synthesized events.
type SpeechSynthesizedData struct {
	Language   string `json:"language"`
	Encoding   string `json:"encoding"`
	Characters int    `json:"characters"`
	AudioBytes int    `json:"audio_bytes"`
}

// TextTranslatedData is the payload for kiosk.text.translated events.
type TextTranslatedData struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Characters int    `json:"characters"`
}

// HistorySavedData is the payload for kiosk.history.saved events.
type HistorySavedData struct {
	Bytes int `json:"bytes"`
}

// SystemErrorData is the payload for error events.
type SystemErrorData struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
}
