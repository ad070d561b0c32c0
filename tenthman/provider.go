package tenthman

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// Backend issues the two model calls of one analysis pass. The orchestrator
// only depends on this interface, so tests (and alternate providers) can swap
// in their own implementation.
type Backend interface {
	// GenerateStimulus runs the web-search-grounded evidence call. An error
	// means the stimulus is unusable and the caller should go degraded.
	GenerateStimulus(ctx context.Context, history []ChatTurn) (DirectionalStimulus, error)

	// Respond runs the persona call and returns the fully materialized reply.
	// A nil stimulus selects the degraded placeholder block.
	Respond(ctx context.Context, history []ChatTurn, stim *DirectionalStimulus) (string, error)

	// RespondStream is Respond with incremental delivery. The channel is
	// closed when the model finishes; a mid-stream failure is delivered as
	// one final human-readable chunk, never as an escaped error.
	RespondStream(ctx context.Context, history []ChatTurn, stim *DirectionalStimulus) <-chan string
}

// Options configure the OpenAI-backed Backend. Zero values fall back to the
// built-in defaults, which lets shells pass only what their flags override.
type Options struct {
	// APIKey overrides the OPENAI_API_KEY env var.
	APIKey  string
	BaseURL string
	Model   string

	// StimulusPrompt and PersonaPrompt replace the built-in prompt texts.
	// The degraded/failure handling is independent of persona wording.
	StimulusPrompt string
	PersonaPrompt  string
}

type openaiBackend struct {
	client         *openai.Client
	model          string
	stimulusPrompt string
	personaPrompt  string
}

// NewBackend builds the OpenAI-backed Backend. A missing API credential is a
// configuration error surfaced immediately, never a silent degradation.
func NewBackend(opts Options) (Backend, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing OPENAI_API_KEY; set it in your environment (or pass Options.APIKey) before calling Tenth Man")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)

	return &openaiBackend{
		client:         &client,
		model:          defaultIfEmpty(opts.Model, defaultModel),
		stimulusPrompt: defaultIfEmpty(opts.StimulusPrompt, defaultStimulusPrompt),
		personaPrompt:  defaultIfEmpty(opts.PersonaPrompt, defaultPersonaPrompt),
	}, nil
}

func defaultIfEmpty(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func extractResponseText(resp *responses.Response) string {
	return strings.TrimSpace(resp.OutputText())
}

// extractCitationURLs recovers source links from url_citation annotations on
// the response's text parts. Used when the model cites its searches only via
// annotation metadata instead of listing source_urls in the JSON body.
func extractCitationURLs(resp *responses.Response) []string {
	seen := make(map[string]struct{}, 8)
	out := make([]string, 0, 8)
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type != "output_text" {
				continue
			}
			for _, ann := range part.Annotations {
				if ann.Type != "url_citation" {
					continue
				}
				u := strings.TrimSpace(ann.URL)
				if u == "" {
					continue
				}
				if _, ok := seen[u]; ok {
					continue
				}
				seen[u] = struct{}{}
				out = append(out, u)
			}
		}
	}
	return out
}

// ---- Structured output schema helper ----

func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureStrictSchemaCompliance(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// ensureStrictSchemaCompliance rewrites a reflected schema into the shape the
// provider's strict structured-output mode demands: every object closes
// additionalProperties and requires all of its properties.
func ensureStrictSchemaCompliance(schema map[string]interface{}) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
			var requiredFields []string
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureStrictSchemaCompliance(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]interface{}); ok {
		ensureStrictSchemaCompliance(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]interface{}); ok {
		ensureStrictSchemaCompliance(additionalProps)
	}
}
