package tenthman

// Recognized chat roles. Anything else is dropped during sanitization.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one turn of the conversation as supplied by a caller. After
// SanitizeHistory the role is one of the two recognized values and the content
// is non-empty trimmed text.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DirectionalStimulus is contradiction-oriented evidence gathered via web
// search: the claim under attack, where it is weakest, counter-evidence, and
// the links backing it up. It lives for exactly one analysis attempt.
type DirectionalStimulus struct {
	CoreClaim             string   `json:"core_claim"`
	PressurePoints        []string `json:"pressure_points"`
	ContradictoryEvidence []string `json:"contradictory_evidence"`
	SourceURLs            []string `json:"source_urls"`
	Confidence            string   `json:"confidence"`
}

// Analysis is the terminal artifact of one full analysis request.
type Analysis struct {
	FinalText       string   `json:"final_text"`
	StimulusSummary []string `json:"stimulus_summary"`
	Sources         []string `json:"sources"`
	DegradedMode    bool     `json:"degraded_mode"`
}

// StreamingAnalysis is Analysis with incremental text delivery. The stimulus
// phase has already completed (success or degraded) by the time this value is
// returned; Tokens is a finite, single-consumer sequence of text chunks that
// is closed when the reply is done. A mid-stream failure arrives as one final
// human-readable chunk, never as a panic or an unclosed channel.
type StreamingAnalysis struct {
	Tokens          <-chan string
	StimulusSummary []string
	Sources         []string
	DegradedMode    bool
}
