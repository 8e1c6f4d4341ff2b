package automation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/funnel/internal/memory"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

var (
	admin  = &types.User{UserID: "1", Name: "Admin", Role: types.RoleAdmin}
	seller = &types.User{UserID: "2", Name: "Seller", Role: types.RoleSeller}
	other  = &types.User{UserID: "3", Name: "Other", Role: types.RoleSeller}
)

var now = time.Date(2024, 1, 21, 10, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*Engine, *memory.RuleStore) {
	t.Helper()
	store := memory.NewRuleStore([]types.AutomationRule{
		{RuleID: "greet", Name: "Greeting", Triggers: []string{"oi", "olá"}, Response: "Olá!", Active: true, Global: true, CreatedBy: "1", TriggerCount: 45},
		{RuleID: "price", Name: "Price", Triggers: []string{"preço"}, Response: "Consultor", Active: true, CreatedBy: "2"},
		{RuleID: "off", Name: "Off hours", Triggers: []string{"atendimento"}, Response: "Fechado", Active: false, CreatedBy: "2"},
	})
	e := NewEngine(store, nil)
	e.SetClock(func() time.Time { return now })
	return e, store
}

func TestEngine_Handle(t *testing.T) {
	e, store := newEngine(t)

	r, err := e.Handle(context.Background(), "Olá, qual o preço?")
	require.NoError(t, err)
	assert.Equal(t, "greet", r.RuleID)
	assert.Equal(t, 46, r.TriggerCount)
	require.NotNil(t, r.LastTriggered)
	assert.Equal(t, now, *r.LastTriggered)

	stored, err := store.Get("greet")
	require.NoError(t, err)
	assert.Equal(t, 46, stored.TriggerCount, "bookkeeping must be persisted")

	_, err = e.Handle(context.Background(), "preciso de atendimento")
	assert.ErrorIs(t, err, types.ErrNoRuleTriggered, "inactive rules never fire")

	off, err := store.Get("off")
	require.NoError(t, err)
	assert.Zero(t, off.TriggerCount)
}

func TestEngine_Create(t *testing.T) {
	e, store := newEngine(t)

	r, err := e.Create(admin, Draft{Name: " Welcome ", Triggers: "Bom dia, boa tarde", Response: "Hi", Delay: 2 * time.Second})
	require.NoError(t, err)
	assert.True(t, r.Global, "admins create global rules")
	assert.True(t, r.Active)
	assert.Equal(t, "Welcome", r.Name)
	assert.Equal(t, []string{"bom dia", "boa tarde"}, r.Triggers)
	assert.Equal(t, now, r.CreatedAt)

	list, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, r.RuleID, list[0].RuleID, "new rules go first")

	p, err := e.Create(seller, Draft{Name: "Mine", Triggers: "x", Response: "y"})
	require.NoError(t, err)
	assert.False(t, p.Global)
	assert.Equal(t, "2", p.CreatedBy)
	assert.Equal(t, "Seller", p.CreatedByName)
}

func TestEngine_CreateValidation(t *testing.T) {
	e, _ := newEngine(t)

	tests := []struct {
		name    string
		author  *types.User
		draft   Draft
		wantErr error
	}{
		{"no session", nil, Draft{Name: "a", Triggers: "b", Response: "c"}, types.ErrNoSession},
		{"missing name", admin, Draft{Triggers: "b", Response: "c"}, types.ErrInvalidName},
		{"missing response", admin, Draft{Name: "a", Triggers: "b"}, types.ErrInvalidResponse},
		{"only blank triggers", admin, Draft{Name: "a", Triggers: " , ", Response: "c"}, types.ErrNoTriggers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Create(tt.author, tt.draft)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEngine_Permissions(t *testing.T) {
	e, _ := newEngine(t)

	_, err := e.Toggle(seller, "greet", false)
	assert.ErrorIs(t, err, types.ErrPermissionDenied, "sellers cannot change global rules")

	_, err = e.Toggle(other, "price", false)
	assert.ErrorIs(t, err, types.ErrPermissionDenied, "sellers cannot change another seller's rules")

	r, err := e.Toggle(seller, "price", false)
	require.NoError(t, err)
	assert.False(t, r.Active)

	r, err = e.Toggle(admin, "price", true)
	require.NoError(t, err)
	assert.True(t, r.Active)

	_, err = e.Toggle(admin, "missing", true)
	assert.ErrorIs(t, err, types.ErrRuleNotFound)

	assert.ErrorIs(t, e.Delete(other, "price"), types.ErrPermissionDenied)
	require.NoError(t, e.Delete(seller, "price"))
	assert.ErrorIs(t, e.Delete(seller, "price"), types.ErrRuleNotFound)
}

func TestEngine_Update(t *testing.T) {
	e, _ := newEngine(t)

	r, err := e.Update(seller, "price", Draft{Name: "Pricing", Triggers: "preço, valor", Response: "Vamos falar"})
	require.NoError(t, err)
	assert.Equal(t, "Pricing", r.Name)
	assert.Equal(t, []string{"preço", "valor"}, r.Triggers)
	assert.True(t, r.Active, "activity is kept")

	_, err = e.Update(seller, "price", Draft{Name: "", Triggers: "x", Response: "y"})
	assert.ErrorIs(t, err, types.ErrInvalidName)

	got, err := e.Handle(context.Background(), "qual o VALOR?")
	require.NoError(t, err)
	assert.Equal(t, "price", got.RuleID)
}

func TestEngine_List(t *testing.T) {
	e, _ := newEngine(t)

	tests := []struct {
		name   string
		viewer *types.User
		scope  string
		want   []string
	}{
		{"admin sees all", admin, types.ScopeAll, []string{"greet", "price", "off"}},
		{"seller sees global and own", seller, types.ScopeAll, []string{"greet", "price", "off"}},
		{"other seller sees only global", other, types.ScopeAll, []string{"greet"}},
		{"global scope", seller, types.ScopeGlobal, []string{"greet"}},
		{"personal scope", seller, types.ScopePersonal, []string{"price", "off"}},
		{"anonymous sees global", nil, types.ScopeAll, []string{"greet"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := e.List(tt.viewer, tt.scope)
			require.NoError(t, err)
			got := make([]string, 0, len(list))
			for _, r := range list {
				got = append(got, r.RuleID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_HandleCanceled(t *testing.T) {
	e, _ := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Handle(ctx, "oi")
	assert.ErrorIs(t, err, context.Canceled)
}
