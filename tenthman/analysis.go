package tenthman

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Analyzer runs the sanitize → stimulus → respond pipeline for one request.
// It holds no per-request state; callers own history accumulation across
// turns. Safe to reuse across sequential requests.
type Analyzer struct {
	backend Backend
	log     *logrus.Logger
}

// NewAnalyzer wires an Analyzer over the given backend. A nil logger falls
// back to the logrus standard logger.
func NewAnalyzer(backend Backend, log *logrus.Logger) *Analyzer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{backend: backend, log: log}
}

// Analyze produces a complete devil's-advocate reply for the given history.
// A stimulus failure never aborts the request: it flips degraded mode and the
// reply is generated against the placeholder block instead. Only a failure of
// the response call itself produces a failure-message reply, and even that is
// returned as text rather than an error.
func (a *Analyzer) Analyze(ctx context.Context, history []ChatTurn) Analysis {
	sanitized := SanitizeHistory(history)
	if latestUserTurn(sanitized) == "" {
		return Analysis{FinalText: promptForInput, StimulusSummary: []string{}, Sources: []string{}}
	}

	stim, summary, sources, degraded := a.gatherStimulus(ctx, sanitized)

	finalText, err := a.backend.Respond(ctx, sanitized, stim)
	if err != nil {
		a.log.WithError(err).Error("response generation failed")
		return Analysis{
			FinalText:       failurePrefix + err.Error(),
			StimulusSummary: summary,
			Sources:         sources,
			DegradedMode:    true,
		}
	}
	if finalText == "" {
		finalText = noResponseText
	}
	if len(sources) == 0 {
		sources = ExtractURLs(finalText)
	}
	return Analysis{
		FinalText:       finalText,
		StimulusSummary: summary,
		Sources:         sources,
		DegradedMode:    degraded,
	}
}

// AnalyzeStream is Analyze with incremental delivery. The stimulus phase runs
// synchronously before this returns, so the summary/sources/degraded fields
// are final; only the reply text arrives lazily through Tokens.
func (a *Analyzer) AnalyzeStream(ctx context.Context, history []ChatTurn) StreamingAnalysis {
	sanitized := SanitizeHistory(history)
	if latestUserTurn(sanitized) == "" {
		return StreamingAnalysis{Tokens: oneChunk(promptForInput), StimulusSummary: []string{}, Sources: []string{}}
	}

	stim, summary, sources, degraded := a.gatherStimulus(ctx, sanitized)

	return StreamingAnalysis{
		Tokens:          a.backend.RespondStream(ctx, sanitized, stim),
		StimulusSummary: summary,
		Sources:         sources,
		DegradedMode:    degraded,
	}
}

func (a *Analyzer) gatherStimulus(ctx context.Context, history []ChatTurn) (stim *DirectionalStimulus, summary []string, sources []string, degraded bool) {
	generated, err := a.backend.GenerateStimulus(ctx, history)
	if err != nil {
		a.log.WithError(err).Warn("stimulus generation failed; continuing degraded")
		return nil, []string{}, []string{}, true
	}
	return &generated, stimulusSummary(generated), generated.SourceURLs, false
}

func oneChunk(text string) <-chan string {
	ch := make(chan string, 1)
	ch <- text
	close(ch)
	return ch
}
