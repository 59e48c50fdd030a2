// Package azure is a placeholder recognition provider. It registers so
// the backend can be selected through config, but this build carries no
// working implementation; keeping it makes a later provider switch a
// config change instead of a code change.
package azure

import (
	"context"

	"github.com/talkbridge/talkbridge/internal/speech/engine"
	"github.com/talkbridge/talkbridge/internal/speech/registry"
)

func init() {
	registry.STT.Register("azure", func(config map[string]string) (engine.Transcriber, error) {
		return &stt{}, nil
	})
}

type stt struct{}

func (s *stt) Transcribe(context.Context, engine.TranscribeRequest) (*engine.Transcript, error) {
	return nil, &engine.NotConfiguredError{Backend: "azure"}
}
