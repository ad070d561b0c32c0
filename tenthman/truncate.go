package tenthman

import (
	"context"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

// truncationLadder holds the fixed window sizes tried after the full history,
// largest first.
var truncationLadder = []int{400, 200, 100, 50, 20}

var contextOverflowMarkers = []string{
	"prompt is too long",
	"maximum context length",
	"context window",
	"too many tokens",
	"input is too long",
}

// IsFailureMessage reports whether a final text is the analyzer's own failure
// message rather than model output.
func IsFailureMessage(text string) bool {
	return strings.HasPrefix(text, failurePrefix)
}

// looksLikeContextOverflow matches a failure reply against known provider
// phrasings for context-length rejections.
func looksLikeContextOverflow(finalText string) bool {
	if !IsFailureMessage(finalText) {
		return false
	}
	lowered := strings.ToLower(finalText)
	for _, marker := range contextOverflowMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// AnalyzeWithTruncation reruns the analyzer on shrinking windows of the most
// recent history until an attempt stops looking like a context overflow, or
// the ladder is exhausted, in which case the smallest-window attempt is
// returned as-is. Attempts are strictly sequential; transient errors are not
// retried here. Returns the analysis and the window size it used.
func AnalyzeWithTruncation(ctx context.Context, analyzer *Analyzer, history []ChatTurn) (Analysis, int) {
	total := len(history)
	if total == 0 {
		return analyzer.Analyze(ctx, nil), 0
	}

	sizes := make([]int, 0, len(truncationLadder)+1)
	for _, size := range append([]int{total}, truncationLadder...) {
		if size > total {
			size = total
		}
		if size > 0 && !slices.Contains(sizes, size) {
			sizes = append(sizes, size)
		}
	}

	var last Analysis
	lastSize := 0
	for attempt, size := range sizes {
		analysis := analyzer.Analyze(ctx, history[total-size:])
		last, lastSize = analysis, size
		overflow := looksLikeContextOverflow(analysis.FinalText)
		analyzer.log.WithFields(logrus.Fields{
			"attempt":       attempt + 1,
			"used_messages": size,
			"overflow":      overflow,
		}).Info("analysis attempt")
		if !overflow {
			return analysis, size
		}
	}
	return last, lastSize
}
