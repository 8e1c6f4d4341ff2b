package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr error
	}{
		{"", PriorityMedium, nil},
		{"low", PriorityLow, nil},
		{" HIGH ", PriorityHigh, nil},
		{"Medium", PriorityMedium, nil},
		{"urgent", "", ErrInvalidPriority},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriority(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpportunity_Validate(t *testing.T) {
	valid := Opportunity{Name: "João Silva", Value: 15000, Priority: PriorityHigh}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		modify func(o *Opportunity)
		want   error
	}{
		{"blank name", func(o *Opportunity) { o.Name = " " }, ErrInvalidName},
		{"negative value", func(o *Opportunity) { o.Value = -1 }, ErrInvalidValue},
		{"NaN value", func(o *Opportunity) { o.Value = math.NaN() }, ErrInvalidValue},
		{"infinite value", func(o *Opportunity) { o.Value = math.Inf(1) }, ErrInvalidValue},
		{"negative infinite value", func(o *Opportunity) { o.Value = math.Inf(-1) }, ErrInvalidValue},
		{"unknown priority", func(o *Opportunity) { o.Priority = "urgent" }, ErrInvalidPriority},
		{"empty priority", func(o *Opportunity) { o.Priority = "" }, ErrInvalidPriority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.modify(&o)
			assert.ErrorIs(t, o.Validate(), tt.want)
		})
	}
}

func TestOpportunity_CloneAndContacted(t *testing.T) {
	o := Opportunity{OpportunityID: "1", Name: "A", Priority: PriorityLow}
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	o.Contacted(at)
	require.NotNil(t, o.LastContact)

	c := o.Clone()
	*c.LastContact = at.Add(time.Hour)
	assert.Equal(t, at, *o.LastContact, "clone does not share LastContact")
}

func TestStage(t *testing.T) {
	s := Stage{
		StageID: "negociacao",
		Limit:   2,
		Opportunities: []Opportunity{
			{OpportunityID: "a", Value: 100},
			{OpportunityID: "b", Value: 250.5},
		},
	}
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 350.5, s.Total())
	assert.True(t, s.Full())
	assert.Equal(t, 1, s.IndexOf("b"))
	assert.Equal(t, -1, s.IndexOf("z"))

	s.Limit = 0
	assert.False(t, s.Full(), "zero limit is unlimited")

	c := s.Clone()
	c.Opportunities[0].Name = "changed"
	assert.Empty(t, s.Opportunities[0].Name)

	empty := Stage{}
	assert.Equal(t, 0, empty.Count())
	assert.Zero(t, empty.Total())
}
