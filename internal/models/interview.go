package models

type FollowUp struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type InterviewResult struct {
	Question   string     `json:"question"`
	MainAnswer string     `json:"main_answer"`
	FollowUps  []FollowUp `json:"follow_ups"`
}

// Phase identifies which interview round produced a set of results.
type Phase string

const (
	PhaseInitial    Phase = "initial"
	PhaseHypothesis Phase = "hypothesis"
	PhaseAdditional Phase = "additional"
)

// Transcript maps the persona name returned by the backend to its answers.
type Transcript map[string][]InterviewResult

func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	for name, results := range t {
		cp := make([]InterviewResult, len(results))
		for i, r := range results {
			cp[i] = r
			if r.FollowUps != nil {
				cp[i].FollowUps = append([]FollowUp(nil), r.FollowUps...)
			}
		}
		out[name] = cp
	}
	return out
}

type Stats struct {
	ElapsedTime   float64 `json:"elapsed_time"`
	InputChars    int     `json:"input_chars"`
	OutputChars   int     `json:"output_chars"`
	EstimatedCost float64 `json:"estimated_cost"`
}
