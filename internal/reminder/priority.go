package reminder

import (
	"math"

	"github.com/jwalitptl/dunning-api/internal/model"
)

// PriorityInput feeds the scoring policy. PriorContacts is the number of
// reminders already sent to the customer in the unresolved collection cycle.
type PriorityInput struct {
	Amount        float64
	OldestAgeDays int
	PriorContacts int
}

// PriorityPolicy scores a candidate 0-100. Implementations must be monotone:
// increasing any input never decreases the score.
type PriorityPolicy interface {
	Score(in PriorityInput) int
}

// WeightedPolicy normalizes each input against a saturation point and takes a
// weighted sum. Weights and saturations are tunable; the three weights should
// sum to 100.
type WeightedPolicy struct {
	AmountWeight  float64
	AgeWeight     float64
	ContactWeight float64

	AmountSaturation  float64
	AgeSaturation     int
	ContactSaturation int
}

// DefaultPolicy returns the stock weighting.
func DefaultPolicy() *WeightedPolicy {
	return &WeightedPolicy{
		AmountWeight:      40,
		AgeWeight:         35,
		ContactWeight:     25,
		AmountSaturation:  10000,
		AgeSaturation:     60,
		ContactSaturation: 5,
	}
}

func (p *WeightedPolicy) Score(in PriorityInput) int {
	amount := clamp01(in.Amount / p.AmountSaturation)
	age := clamp01(float64(in.OldestAgeDays) / float64(p.AgeSaturation))
	contacts := clamp01(float64(in.PriorContacts) / float64(p.ContactSaturation))

	score := int(math.Round(p.AmountWeight*amount + p.AgeWeight*age + p.ContactWeight*contacts))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EscalationFor applies the staged rule on oldest-invoice age and prior
// contact count. priorContacts is contacts already made, so the upcoming
// contact is number priorContacts+1.
func EscalationFor(oldestAgeDays, priorContacts int) model.EscalationLevel {
	contact := priorContacts + 1
	switch {
	case contact >= 4 || oldestAgeDays >= 30:
		return model.EscalationFinal
	case contact >= 3 || oldestAgeDays >= 15:
		return model.EscalationUrgent
	case contact >= 2 || oldestAgeDays >= 8:
		return model.EscalationFirm
	default:
		return model.EscalationPolite
	}
}

// PriorityEngine scores candidates and assigns escalation levels.
type PriorityEngine struct {
	policy PriorityPolicy
}

func NewPriorityEngine(policy PriorityPolicy) *PriorityEngine {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &PriorityEngine{policy: policy}
}

// Evaluate fills in the candidate's score and escalation. priorHighest is the
// highest level already reached for the customer in the unresolved cycle; the
// ratchet guarantees escalation never steps back down until the cycle
// resolves.
func (e *PriorityEngine) Evaluate(c *model.ConsolidationCandidate, priorContacts int, priorHighest model.EscalationLevel) {
	c.PriorityScore = e.policy.Score(PriorityInput{
		Amount:        c.TotalAmount,
		OldestAgeDays: c.OldestAgeDays,
		PriorContacts: priorContacts,
	})

	level := EscalationFor(c.OldestAgeDays, priorContacts)
	if priorHighest > level {
		level = priorHighest
	}
	c.Escalation = level
}
