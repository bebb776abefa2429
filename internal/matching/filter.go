package matching

import "jobpilot/internal/types"

// Filter keeps the matches scoring at least minScore, in their original order.
// The input slice is not modified.
func Filter(matches []types.MatchedJob, minScore float64) []types.MatchedJob {
	if matches == nil {
		return nil
	}
	out := make([]types.MatchedJob, 0, len(matches))
	for _, m := range matches {
		if m.MatchScore >= minScore {
			out = append(out, m)
		}
	}
	return out
}

// Summary describes a match set for display
type Summary struct {
	Count   int     `json:"count" yaml:"count"`
	Best    float64 `json:"best" yaml:"best"`
	Average float64 `json:"average" yaml:"average"`
}

// Summarize computes count, best and average score
func Summarize(matches []types.MatchedJob) Summary {
	s := Summary{Count: len(matches)}
	if s.Count == 0 {
		return s
	}
	total := 0.0
	for i, m := range matches {
		if i == 0 || m.MatchScore > s.Best {
			s.Best = m.MatchScore
		}
		total += m.MatchScore
	}
	s.Average = total / float64(s.Count)
	return s
}

// Find returns the match whose job id is id
func Find(matches []types.MatchedJob, id string) (types.MatchedJob, bool) {
	for _, m := range matches {
		if m.Job.ID == id {
			return m, true
		}
	}
	return types.MatchedJob{}, false
}
