package moderation

import (
	"encoding/json"
	"strings"
)

const (
	reasonServiceFailed = "Moderation service failed."
	reasonUnparsed      = "Could not parse model response."
)

// Verdict is the classifier's decision for one piece of content.
type Verdict struct {
	IsHarmful bool   `json:"isHarmful"`
	Reason    string `json:"reason,omitempty"`
	// Failed marks verdicts produced because the model could not be reached.
	Failed bool `json:"-"`
	// Unparsed marks verdicts produced from a response without usable JSON.
	Unparsed bool `json:"-"`
}

// ParseVerdict extracts the JSON object between the first '{' and the last '}'
// of raw model output. Output without such an object, or with malformed JSON,
// yields a not-harmful verdict.
func ParseVerdict(raw string) Verdict {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return Verdict{IsHarmful: false, Reason: reasonUnparsed, Unparsed: true}
	}

	var payload struct {
		IsHarmful bool   `json:"isHarmful"`
		Reason    string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return Verdict{IsHarmful: false, Reason: reasonUnparsed, Unparsed: true}
	}
	return Verdict{IsHarmful: payload.IsHarmful, Reason: strings.TrimSpace(payload.Reason)}
}
