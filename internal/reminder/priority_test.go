package reminder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/dunning-api/internal/model"
)

func TestScoreRange(t *testing.T) {
	policy := DefaultPolicy()

	assert.Equal(t, 0, policy.Score(PriorityInput{}))
	assert.Equal(t, 100, policy.Score(PriorityInput{
		Amount:        1e9,
		OldestAgeDays: 1000,
		PriorContacts: 50,
	}))
}

func TestScoreMonotonicity(t *testing.T) {
	policy := DefaultPolicy()
	base := PriorityInput{Amount: 500, OldestAgeDays: 10, PriorContacts: 1}
	baseScore := policy.Score(base)

	// Increasing any single input must never decrease the score.
	for amount := 500.0; amount <= 20000; amount += 500 {
		in := base
		in.Amount = amount
		assert.GreaterOrEqual(t, policy.Score(in), baseScore)
	}
	for age := 10; age <= 90; age++ {
		in := base
		in.OldestAgeDays = age
		assert.GreaterOrEqual(t, policy.Score(in), baseScore)
	}
	for contacts := 1; contacts <= 10; contacts++ {
		in := base
		in.PriorContacts = contacts
		assert.GreaterOrEqual(t, policy.Score(in), baseScore)
	}
}

func TestEscalationStages(t *testing.T) {
	tests := []struct {
		age      int
		contacts int
		want     model.EscalationLevel
	}{
		{1, 0, model.EscalationPolite},
		{7, 0, model.EscalationPolite},
		{8, 0, model.EscalationFirm},
		{1, 1, model.EscalationFirm},
		{14, 1, model.EscalationFirm},
		{15, 0, model.EscalationUrgent},
		{1, 2, model.EscalationUrgent},
		{29, 2, model.EscalationUrgent},
		{30, 0, model.EscalationFinal},
		{1, 3, model.EscalationFinal},
		{1, 9, model.EscalationFinal},
	}

	for _, tt := range tests {
		got := EscalationFor(tt.age, tt.contacts)
		assert.Equal(t, tt.want, got, "age=%d contacts=%d", tt.age, tt.contacts)
	}
}

func TestEscalationRatchet(t *testing.T) {
	engine := NewPriorityEngine(nil)

	candidate := &model.ConsolidationCandidate{
		TotalAmount:   100,
		OldestAgeDays: 2,
		InvoiceCount:  1,
	}

	// Computed level would be POLITE, but the customer already reached URGENT
	// in this unresolved cycle.
	engine.Evaluate(candidate, 0, model.EscalationUrgent)
	assert.Equal(t, model.EscalationUrgent, candidate.Escalation)

	// A higher computed level wins over a lower prior one.
	candidate.OldestAgeDays = 31
	engine.Evaluate(candidate, 0, model.EscalationFirm)
	assert.Equal(t, model.EscalationFinal, candidate.Escalation)
}

func TestEscalationNonDecreasingAcrossContacts(t *testing.T) {
	engine := NewPriorityEngine(nil)

	prior := model.EscalationPolite
	for contacts := 0; contacts < 8; contacts++ {
		candidate := &model.ConsolidationCandidate{OldestAgeDays: contacts * 3}
		engine.Evaluate(candidate, contacts, prior)
		assert.GreaterOrEqual(t, candidate.Escalation, prior,
			"escalation decreased at contact %d", contacts)
		prior = candidate.Escalation
	}
	assert.Equal(t, model.EscalationFinal, prior)
}
