package tenthman

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

const (
	maxPressurePoints = 6
	maxContradictions = 8
	maxSourceURLs     = 8

	stimulusMaxTokens = 1200
)

// stimulusPayload mirrors the JSON object the stimulus prompt demands. Only
// used to derive the structured-output schema; parsing goes through a loose
// map so malformed values can be coerced instead of rejected.
type stimulusPayload struct {
	CoreClaim             string   `json:"core_claim"`
	PressurePoints        []string `json:"pressure_points"`
	ContradictoryEvidence []string `json:"contradictory_evidence"`
	SourceURLs            []string `json:"source_urls"`
	Confidence            string   `json:"confidence"`
}

var stimulusSchema = generateSchema[stimulusPayload]()

var errUnusableStimulus = errors.New("stimulus is missing contradictions or sources")

// GenerateStimulus issues the web-search-grounded evidence call for the most
// recent user turn and normalizes the returned JSON. A stimulus with no
// contradictions or no sources after normalization is unusable and reported
// as an error even though the request itself succeeded.
func (b *openaiBackend) GenerateStimulus(ctx context.Context, history []ChatTurn) (DirectionalStimulus, error) {
	params := responses.ResponseNewParams{
		Model:           b.model,
		MaxOutputTokens: openai.Int(stimulusMaxTokens),
		Instructions:    openai.String(b.stimulusPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(buildStimulusInput(history), responses.EasyInputMessageRoleUser),
			},
		},
		Tools: []responses.ToolUnionParam{
			responses.ToolParamOfWebSearchPreview(responses.WebSearchToolTypeWebSearchPreview),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "DirectionalStimulus",
					Schema:      stimulusSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Contradiction-oriented evidence JSON"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := b.client.Responses.New(ctx, params)
	if err != nil {
		return DirectionalStimulus{}, fmt.Errorf("stimulus request: %w", err)
	}

	var raw map[string]any
	if err := decodeModelJSON(resp.OutputText(), &raw); err != nil {
		return DirectionalStimulus{}, fmt.Errorf("stimulus payload: %w", err)
	}

	stim := normalizeStimulus(raw)
	if len(stim.SourceURLs) == 0 {
		stim.SourceURLs = headStrings(extractCitationURLs(resp), maxSourceURLs)
	}
	if err := validateStimulus(stim); err != nil {
		return DirectionalStimulus{}, err
	}
	return stim, nil
}

// normalizeStimulus coerces a loosely-parsed payload into a clean stimulus:
// every field stringified and trimmed, lists clamped to their caps (first-N),
// confidence case-folded and defaulted to low.
func normalizeStimulus(raw map[string]any) DirectionalStimulus {
	confidence := strings.ToLower(strings.TrimSpace(stringValue(raw["confidence"])))
	switch confidence {
	case "high", "medium", "low":
	default:
		confidence = "low"
	}
	return DirectionalStimulus{
		CoreClaim:             strings.TrimSpace(stringValue(raw["core_claim"])),
		PressurePoints:        headStrings(stringList(raw["pressure_points"]), maxPressurePoints),
		ContradictoryEvidence: headStrings(stringList(raw["contradictory_evidence"]), maxContradictions),
		SourceURLs:            headStrings(stringList(raw["source_urls"]), maxSourceURLs),
		Confidence:            confidence,
	}
}

func validateStimulus(stim DirectionalStimulus) error {
	if len(stim.ContradictoryEvidence) == 0 || len(stim.SourceURLs) == 0 {
		return errUnusableStimulus
	}
	return nil
}

func stringValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func stringList(raw any) []string {
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(stringValue(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		// A bare string where a list was expected becomes a one-element list.
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
		return nil
	default:
		return nil
	}
}
