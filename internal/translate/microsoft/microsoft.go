// Package microsoft implements text translation on the Microsoft
// Translator v3 REST API.
package microsoft

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/xid"

	"github.com/talkbridge/talkbridge/internal/speech/backends/restutil"
	"github.com/talkbridge/talkbridge/internal/speech/engine"
	"github.com/talkbridge/talkbridge/internal/speech/registry"
)

const defaultEndpoint = "https://api.cognitive.microsofttranslator.com"

func init() {
	registry.Translator.Register("microsoft", func(config map[string]string) (engine.Translator, error) {
		key := config["key"]
		if key == "" {
			return nil, fmt.Errorf("microsoft translator key required (set MICROSOFT_TRANSLATOR_KEY)")
		}
		region := config["region"]
		if region == "" {
			return nil, fmt.Errorf("microsoft translator region required (set MICROSOFT_TRANSLATOR_REGION)")
		}
		endpoint := config["endpoint"]
		if endpoint == "" {
			endpoint = defaultEndpoint
		}
		return &Translator{
			key:      key,
			region:   region,
			endpoint: strings.TrimRight(endpoint, "/"),
		}, nil
	})
}

type translationItem struct {
	Text string `json:"Text"`
}

type translateResponse []struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

// Translator calls the Translator v3 translate operation.
type Translator struct {
	key      string
	region   string
	endpoint string
}

func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &engine.BadInputError{Reason: "text is required"}
	}
	if strings.TrimSpace(to) == "" {
		return "", &engine.BadInputError{Reason: "target language is required"}
	}

	params := url.Values{}
	params.Set("api-version", "3.0")
	params.Set("to", to)
	// "auto" and "detect" request vendor-side language detection by
	// omitting the source entirely.
	if f := strings.ToLower(strings.TrimSpace(from)); f != "" && f != "auto" && f != "detect" {
		params.Set("from", from)
	}

	headers := map[string]string{
		"Ocp-Apim-Subscription-Key":    t.key,
		"Ocp-Apim-Subscription-Region": t.region,
		"X-ClientTraceId":              xid.New().String(),
	}

	body := []translationItem{{Text: text}}

	var resp translateResponse
	apiURL := t.endpoint + "/translate?" + params.Encode()
	if err := restutil.DoJSON(ctx, "POST", apiURL, headers, body, &resp); err != nil {
		return "", fmt.Errorf("microsoft translator: %w", err)
	}

	if len(resp) == 0 || len(resp[0].Translations) == 0 {
		return "", fmt.Errorf("microsoft translator: unexpected response shape")
	}
	return resp[0].Translations[0].Text, nil
}
