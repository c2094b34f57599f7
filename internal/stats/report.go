package stats

import (
	"math"
	"sort"
)

// ModelUsage aggregates history per model.
type ModelUsage struct {
	Name            string  `json:"name"`
	Count           int     `json:"count"`
	TotalTokens     int     `json:"total_tokens"`
	TotalTime       float64 `json:"total_time"`
	PromptTokens    int     `json:"prompt_tokens"`
	AvgTokens       float64 `json:"avg_tokens"`
	AvgTime         float64 `json:"avg_time"`
	AvgPromptLength float64 `json:"avg_prompt_length"`
}

// ModelPerformance summarises speed per model.
type ModelPerformance struct {
	Name              string  `json:"name"`
	Inferences        int     `json:"inferences"`
	AvgGenerationTime float64 `json:"avg_generation_time"`
	TokensPerSecond   float64 `json:"tokens_per_second"`
}

// History returns records newest first, optionally restricted to one model.
func History(recs []Record, model string) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if model != "" && r.Model != model {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// Usage groups records by model in first-seen order.
func Usage(recs []Record) []ModelUsage {
	idx := map[string]int{}
	var out []ModelUsage
	for _, r := range recs {
		i, ok := idx[r.Model]
		if !ok {
			i = len(out)
			idx[r.Model] = i
			out = append(out, ModelUsage{Name: r.Model})
		}
		u := &out[i]
		u.Count++
		u.TotalTokens += r.OutputLength
		u.TotalTime += r.ExecutionTime
		u.PromptTokens += r.PromptLength
	}
	for i := range out {
		u := &out[i]
		n := float64(u.Count)
		u.AvgTokens = round2(float64(u.TotalTokens) / n)
		u.AvgTime = round2(u.TotalTime / n)
		u.AvgPromptLength = round2(float64(u.PromptTokens) / n)
	}
	return out
}

// Performance reports average time and output words per second per model.
// Records without a positive execution time do not contribute to the rate.
func Performance(recs []Record) []ModelPerformance {
	type acc struct {
		n, rated   int
		time, rate float64
	}
	idx := map[string]int{}
	var names []string
	var accs []acc
	for _, r := range recs {
		i, ok := idx[r.Model]
		if !ok {
			i = len(accs)
			idx[r.Model] = i
			names = append(names, r.Model)
			accs = append(accs, acc{})
		}
		a := &accs[i]
		a.n++
		a.time += r.ExecutionTime
		if r.ExecutionTime > 0 {
			a.rated++
			a.rate += float64(r.OutputLength) / r.ExecutionTime
		}
	}
	out := make([]ModelPerformance, len(accs))
	for i, a := range accs {
		p := ModelPerformance{Name: names[i], Inferences: a.n, AvgGenerationTime: round2(a.time / float64(a.n))}
		if a.rated > 0 {
			p.TokensPerSecond = round2(a.rate / float64(a.rated))
		}
		out[i] = p
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
