package tenthman

import (
	"fmt"
	"strings"
)

const defaultModel = "gpt-5-mini"

const defaultStimulusPrompt = `You are the directional stimulus generator for a devil's-advocate assistant.
Your job is to collect contradiction-oriented evidence that can steer the assistant away from agreement bias.
Use web search sparingly (a handful of searches at most) and return a compact JSON object with:
- core_claim
- pressure_points (array)
- contradictory_evidence (array)
- source_urls (array of http/https links)
- confidence (high|medium|low)
Return only JSON.`

const defaultPersonaPrompt = `You are Tenth Man, a general-purpose assistant that acts as a rigorous devil's advocate in any domain.
Default stance: challenge the user's position first. Do not blindly agree.

Behavior rules:
- Probe assumptions and point out contradictions, edge cases, and failure modes.
- Use the provided directional stimulus and cited links when available.
- If evidence is weak or unavailable, say that clearly and continue with reasoned skepticism.
- Be direct but constructive: after critique, suggest what evidence would change your mind.
- Keep it conversational and adaptive to ongoing multi-turn chat context.`

// DegradedNotice is the user-facing warning for replies produced without
// web-search grounding. The core never prepends it; whether to show it is a
// presentation decision left to each shell.
const DegradedNotice = "Degraded mode: directional stimulus generation failed, so this critique may have weaker evidence grounding."

const (
	failurePrefix  = "Tenth Man failed to score this proposal: "
	promptForInput = "Please share an idea to challenge."
	noResponseText = "No text response was returned by the model."
)

const stimulusContextTurns = 6

// buildStimulusInput serializes the bounded context window (last 6 turns) plus
// the single latest user turn, highlighted separately so the model knows what
// to attack.
func buildStimulusInput(history []ChatTurn) string {
	window := history
	if len(window) > stimulusContextTurns {
		window = window[len(window)-stimulusContextTurns:]
	}
	var b strings.Builder
	b.WriteString("Conversation context:\n")
	for _, turn := range window {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	fmt.Fprintf(&b, "\nLatest user turn to challenge:\n%s", latestUserTurn(history))
	return b.String()
}

// stimulusBlock renders the stimulus as the system-prompt attachment. A nil
// stimulus produces the explicit degraded placeholder instead of being
// omitted, so the model knows grounding was attempted and failed.
func stimulusBlock(stim *DirectionalStimulus) string {
	if stim == nil {
		return "Directional Stimulus\n" +
			"Confidence: low\n" +
			"- Stimulus unavailable because web-search grounding failed."
	}
	var b strings.Builder
	b.WriteString("Directional Stimulus\n")
	fmt.Fprintf(&b, "Confidence: %s\n", stim.Confidence)
	fmt.Fprintf(&b, "Core claim: %s\n", stim.CoreClaim)
	b.WriteString("Pressure points:\n")
	for _, item := range stim.PressurePoints {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	b.WriteString("Contradictory evidence:\n")
	for _, item := range stim.ContradictoryEvidence {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	b.WriteString("Source URLs:\n")
	for _, item := range stim.SourceURLs {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return strings.TrimRight(b.String(), "\n")
}

// stimulusSummary is the short digest surfaced next to a reply: core claim,
// up to 2 pressure points, up to 3 contradictions.
func stimulusSummary(stim DirectionalStimulus) []string {
	out := make([]string, 0, 6)
	if stim.CoreClaim != "" {
		out = append(out, stim.CoreClaim)
	}
	out = append(out, headStrings(stim.PressurePoints, 2)...)
	out = append(out, headStrings(stim.ContradictoryEvidence, 3)...)
	return out
}

func headStrings(in []string, max int) []string {
	if max <= 0 || len(in) <= max {
		return in
	}
	return in[:max]
}
