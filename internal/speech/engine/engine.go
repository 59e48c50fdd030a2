// Package engine defines the capability interfaces the kiosk dispatches
// speech and translation work through. Backends register factories for
// these interfaces; the HTTP layer never talks to a vendor directly.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSpeech is returned by a Transcriber when the vendor recognized
// nothing in the audio.
var ErrNoSpeech = errors.New("no speech detected")

// BadInputError marks a request the caller could fix: bad language code,
// over-long text, unsupported encoding. Handlers map it to 400.
type BadInputError struct {
	Reason string
}

func (e *BadInputError) Error() string { return e.Reason }

// NotConfiguredError is returned by placeholder backends that are
// registered but have no working implementation in this build.
type NotConfiguredError struct {
	Backend string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s backend is not configured in this build", e.Backend)
}

// TranscribeRequest carries decoded PCM16 audio and the vendor locale to
// recognize it in.
type TranscribeRequest struct {
	PCM             []byte
	SampleRateHertz int
	Channels        int
	Language        string
}

// Transcript is a speech-to-text result.
type Transcript struct {
	Text       string
	Confidence float64
	Language   string
	Provider   string
}

// Transcriber converts one utterance of audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (*Transcript, error)
}

// SpeakRequest carries text and synthesis parameters. Encoding is one of
// mp3, ogg_opus, ogg, linear16, wav.
type SpeakRequest struct {
	Text            string
	Language        string
	Encoding        string
	SpeakingRate    float64
	Pitch           float64
	VoiceName       string
	SampleRateHertz int
}

// Synthesis is the raw audio a Synthesizer produced. For linear16/wav
// requests Audio holds headerless PCM16 at SampleRateHertz.
type Synthesis struct {
	Audio           []byte
	Encoding        string
	SampleRateHertz int
	Channels        int
}

// Voice describes an available synthesis voice.
type Voice struct {
	Name      string   `json:"name"`
	Languages []string `json:"language_codes"`
	Gender    string   `json:"gender,omitempty"`
}

// Synthesizer renders text as audio and can list its voice catalog.
type Synthesizer interface {
	Speak(ctx context.Context, req SpeakRequest) (*Synthesis, error)
	Voices(ctx context.Context) []Voice
}

// Translator converts text between languages. An empty from requests
// vendor-side language detection.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}
