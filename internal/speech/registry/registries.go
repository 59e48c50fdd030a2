package registry

import "github.com/talkbridge/talkbridge/internal/speech/engine"

// Package-level registries, one per capability.
var (
	STT        = New[engine.Transcriber]("speech-to-text")
	TTS        = New[engine.Synthesizer]("text-to-speech")
	Translator = New[engine.Translator]("translator")
)
