// Package analysis implements the structured chat-transcript analysis client
// and its result model.
package analysis

import "fmt"

// Probability is the predicted closing probability.
type Probability string

// Resistance is the customer resistance level.
type Resistance string

const (
	ProbabilityLow    Probability = "Low"
	ProbabilityMedium Probability = "Medium"
	ProbabilityHigh   Probability = "High"

	ResistanceRed    Resistance = "Red"
	ResistanceYellow Resistance = "Yellow"
	ResistanceGreen  Resistance = "Green"
)

// TrustMetrics is the trust-and-closing thermometer section of a result.
type TrustMetrics struct {
	Score       int         `json:"score"` // 0-100
	Probability Probability `json:"probability"`
	Resistance  Resistance  `json:"resistance"`
}

// DecodingItem pairs a customer quote with its decoded subtext.
type DecodingItem struct {
	Surface string `json:"surface"`
	Deep    string `json:"deep"`
}

// Emotions tracks the customer's emotional arc across the conversation.
type Emotions struct {
	Start        string `json:"start"`
	Middle       string `json:"middle"`
	End          string `json:"end"`
	TurningPoint string `json:"turningPoint"`
}

// Advice is the actionable playbook section of a result.
type Advice struct {
	Script    string `json:"script"`
	Materials string `json:"materials"`
	Timing    string `json:"timing"`
}

// Result is the structured sales-psychology report produced per transcript.
// It is immutable once returned by Analyze.
type Result struct {
	Trust    TrustMetrics   `json:"trust"`
	Decoding []DecodingItem `json:"decoding"`
	Emotions Emotions       `json:"emotions"`
	Advice   Advice         `json:"advice"`
}

// Validate checks the upstream contract: score in [0,100] and enum fields
// limited to their allowed literals. The prompt asks for 2-3 decoding items
// but that is a convention, not a structural requirement, so length is not
// checked here.
func (r *Result) Validate() error {
	if r == nil {
		return fmt.Errorf("result is nil")
	}
	if r.Trust.Score < 0 || r.Trust.Score > 100 {
		return fmt.Errorf("trust.score %d out of range [0,100]", r.Trust.Score)
	}
	switch r.Trust.Probability {
	case ProbabilityLow, ProbabilityMedium, ProbabilityHigh:
	default:
		return fmt.Errorf("trust.probability %q is not one of Low/Medium/High", r.Trust.Probability)
	}
	switch r.Trust.Resistance {
	case ResistanceRed, ResistanceYellow, ResistanceGreen:
	default:
		return fmt.Errorf("trust.resistance %q is not one of Red/Yellow/Green", r.Trust.Resistance)
	}
	return nil
}
