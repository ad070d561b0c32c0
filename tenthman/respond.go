package tenthman

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

const responseMaxTokens = 2048

func (b *openaiBackend) systemPrompt(stim *DirectionalStimulus) string {
	return b.personaPrompt +
		"\n\nUse this directional stimulus while responding:\n" +
		stimulusBlock(stim)
}

func buildHistoryInput(history []ChatTurn) []responses.ResponseInputItemUnionParam {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(history))
	for _, turn := range history {
		role := responses.EasyInputMessageRoleUser
		if turn.Role == RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(turn.Content, role))
	}
	return items
}

func (b *openaiBackend) responseParams(history []ChatTurn, stim *DirectionalStimulus) responses.ResponseNewParams {
	return responses.ResponseNewParams{
		Model:           b.model,
		MaxOutputTokens: openai.Int(responseMaxTokens),
		Instructions:    openai.String(b.systemPrompt(stim)),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: buildHistoryInput(history),
		},
	}
}

// Respond issues the persona call and returns the trimmed reply text. No
// retries here; retries, if any, belong to the caller.
func (b *openaiBackend) Respond(ctx context.Context, history []ChatTurn, stim *DirectionalStimulus) (string, error) {
	resp, err := b.client.Responses.New(ctx, b.responseParams(history, stim))
	if err != nil {
		return "", fmt.Errorf("response request: %w", err)
	}
	return extractResponseText(resp), nil
}

// RespondStream opens a streaming persona call and forwards text chunks as
// they arrive, in generation order, with single-chunk lookahead. The channel
// closes when the model finishes. If the stream fails midway the partial text
// already delivered stays delivered and one final chunk carries the failure
// message; no error crosses this boundary.
func (b *openaiBackend) RespondStream(ctx context.Context, history []ChatTurn, stim *DirectionalStimulus) <-chan string {
	tokens := make(chan string, 1)
	go func() {
		defer close(tokens)

		stream := b.client.Responses.NewStreaming(ctx, b.responseParams(history, stim))
		for stream.Next() {
			event := stream.Current()
			if event.Type != "response.output_text.delta" {
				continue
			}
			delta := event.Delta.OfString
			if delta == "" {
				continue
			}
			select {
			case tokens <- delta:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			select {
			case tokens <- streamFailureChunk(err):
			case <-ctx.Done():
			}
		}
	}()
	return tokens
}

func streamFailureChunk(err error) string {
	return fmt.Sprintf("\n\n%s%v", failurePrefix, err)
}
