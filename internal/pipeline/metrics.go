package pipeline

import "github.com/mesh-intelligence/funnel/pkg/types"

// StageSummary is the count/total pair shown in a stage header.
type StageSummary struct {
	StageID string  `json:"stage_id"`
	Title   string  `json:"title"`
	Count   int     `json:"count"`
	Total   float64 `json:"total"`
}

// Metrics are the dashboard figures derived from the board.
type Metrics struct {
	TotalLeads     int            `json:"total_leads"`
	ConvertedLeads int            `json:"converted_leads"`
	LostLeads      int            `json:"lost_leads"`
	PipelineValue  float64        `json:"pipeline_value"`
	Revenue        float64        `json:"revenue"`
	ConversionRate float64        `json:"conversion_rate"` // percent of all leads
	AverageTicket  float64        `json:"average_ticket"`
	ActiveOwners   int            `json:"active_owners"`
	Stages         []StageSummary `json:"stages"`
}

// Summarize folds the stages into dashboard metrics. Revenue counts
// opportunities in won stages; the pipeline value counts those in stages
// without an outcome.
func Summarize(stages []types.Stage) Metrics {
	m := Metrics{Stages: make([]StageSummary, 0, len(stages))}
	owners := make(map[string]bool)
	for _, s := range stages {
		m.Stages = append(m.Stages, StageSummary{
			StageID: s.StageID,
			Title:   s.Title,
			Count:   s.Count(),
			Total:   s.Total(),
		})
		m.TotalLeads += s.Count()
		switch s.Outcome {
		case types.OutcomeWon:
			m.ConvertedLeads += s.Count()
			m.Revenue += s.Total()
		case types.OutcomeLost:
			m.LostLeads += s.Count()
		default:
			m.PipelineValue += s.Total()
		}
		for _, o := range s.Opportunities {
			if o.Owner != "" {
				owners[o.Owner] = true
			}
		}
	}
	m.ActiveOwners = len(owners)
	if m.TotalLeads > 0 {
		m.ConversionRate = float64(m.ConvertedLeads) / float64(m.TotalLeads) * 100
	}
	if m.ConvertedLeads > 0 {
		m.AverageTicket = m.Revenue / float64(m.ConvertedLeads)
	}
	return m
}
