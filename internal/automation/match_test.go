package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

func TestMatch(t *testing.T) {
	rules := []types.AutomationRule{
		{RuleID: "greet", Triggers: []string{"oi", "olá"}},
		{RuleID: "price", Triggers: []string{"preço"}},
	}

	tests := []struct {
		name    string
		message string
		want    int
		wantOK  bool
	}{
		{"first rule in list wins over first trigger in text", "Olá, qual o preço?", 0, true},
		{"case-insensitive", "OI TUDO BEM", 0, true},
		{"second rule", "qual o PREÇO disso", 1, true},
		{"substring inside a word still matches", "boina", 0, true},
		{"no rule", "bom dia", -1, false},
		{"empty message", "", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Match(tt.message, rules)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_IgnoresBlankTriggers(t *testing.T) {
	rules := []types.AutomationRule{
		{RuleID: "blank", Triggers: []string{"", "   "}},
		{RuleID: "real", Triggers: []string{"valor"}},
	}
	got, ok := Match("qual o valor?", rules)
	assert.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = Match("anything", rules[:1])
	assert.False(t, ok, "a blank trigger must not match every message")
}

func TestParseTriggers(t *testing.T) {
	assert.Equal(t, []string{"oi", "bom dia", "olá"}, ParseTriggers(" Oi , Bom Dia,,OLÁ ,"))
	assert.Empty(t, ParseTriggers(" , ,"))
	assert.Equal(t, []string{"strasse"}, ParseTriggers("Straße"))
}

func TestParseTriggers_FoldsLikeMatch(t *testing.T) {
	rules := []types.AutomationRule{{Triggers: ParseTriggers("Straße")}}
	for _, msg := range []string{"na STRASSE", "na straße", "NA STRAẞE"} {
		i, ok := Match(msg, rules)
		assert.True(t, ok, msg)
		assert.Equal(t, 0, i, msg)
	}
}
