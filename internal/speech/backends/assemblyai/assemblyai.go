// Package assemblyai is a placeholder recognition provider, registered
// so the backend name is selectable through config.
package assemblyai

import (
	"context"

	"github.com/talkbridge/talkbridge/internal/speech/engine"
	"github.com/talkbridge/talkbridge/internal/speech/registry"
)

func init() {
	registry.STT.Register("assemblyai", func(config map[string]string) (engine.Transcriber, error) {
		return &stt{}, nil
	})
}

type stt struct{}

func (s *stt) Transcribe(context.Context, engine.TranscribeRequest) (*engine.Transcript, error) {
	return nil, &engine.NotConfiguredError{Backend: "assemblyai"}
}
