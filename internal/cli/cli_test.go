package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/funnel/internal/pipeline"
	"github.com/mesh-intelligence/funnel/internal/secret"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

func init() {
	secret.Cost = bcrypt.MinCost
}

// env is an isolated config and data directory pair.
type env struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	t.Setenv("FUNNEL_BACKEND", "")
	t.Setenv("FUNNEL_SESSION_STORE", "")
	root := t.TempDir()
	return &env{t: t, configDir: filepath.Join(root, "config"), dataDir: filepath.Join(root, "data")}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (e *env) run(stdin string, args ...string) result {
	e.t.Helper()
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	var stdout, stderr bytes.Buffer
	code := run(full, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	r := e.run("", args...)
	require.Equal(e.t, exitSuccess, r.code, "stderr: %s", r.stderr)
	return r.stdout
}

func (e *env) login(email, password string) {
	e.t.Helper()
	e.mustRun("login", "--email", email, "--password", password)
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun("version")
	assert.Contains(t, out, "funnel v"+Version)
	assert.Contains(t, out, modulePath)
	_, err := os.Stat(filepath.Join(e.configDir, configFileExt))
	assert.True(t, os.IsNotExist(err), "version must not write config")
}

func TestInit(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun("init")
	assert.Contains(t, out, "Funnel initialized")

	assert.FileExists(t, filepath.Join(e.configDir, configFileExt))
	for _, name := range []string{"stages.jsonl", "opportunities.jsonl", "rules.jsonl", "accounts.jsonl"} {
		assert.FileExists(t, filepath.Join(e.dataDir, name))
	}
}

func TestBoard(t *testing.T) {
	e := newEnv(t)
	stages := decode[[]types.Stage](t, e.mustRun("board", "--json"))
	require.Len(t, stages, 6)
	assert.Equal(t, "novo-lead", stages[0].StageID)
	require.Len(t, stages[0].Opportunities, 2)
	assert.Equal(t, "1", stages[0].Opportunities[0].OpportunityID)

	out := e.mustRun("board")
	assert.Contains(t, out, "R$")
}

func TestMove(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun("move", "1", "contato-feito", "--index", "0")
	assert.Contains(t, out, "Moved 1 to")
	assert.Contains(t, out, "at position 0")

	stages := decode[[]types.Stage](t, e.mustRun("board", "--json"))
	assert.Len(t, stages[0].Opportunities, 1)
	require.Len(t, stages[1].Opportunities, 2)
	assert.Equal(t, "1", stages[1].Opportunities[0].OpportunityID)
	assert.Equal(t, "3", stages[1].Opportunities[1].OpportunityID)

	e.mustRun("move", "2", "contato-feito")
	stages = decode[[]types.Stage](t, e.mustRun("board", "--json"))
	assert.Equal(t, "2", stages[1].Opportunities[2].OpportunityID)
}

func TestMove_Errors(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown stage", []string{"move", "1", "nowhere"}, types.ErrStageNotFound.Error()},
		{"unknown opportunity", []string{"move", "99", "ganhos"}, types.ErrOpportunityNotFound.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.run("", tt.args...)
			assert.Equal(t, exitUserError, r.code)
			assert.Contains(t, r.stderr, tt.want)
		})
	}
}

func TestLead(t *testing.T) {
	e := newEnv(t)
	id := strings.TrimSpace(e.mustRun("lead", "add", "--stage", "negociacao",
		"--name", "Nova Loja", "--company", "Loja SA", "--value", "1234.5",
		"--phone", "11 98765 4321", "--priority", "high"))
	require.NotEmpty(t, id)

	out := e.mustRun("lead", "show", id)
	assert.Contains(t, out, "Nova Loja")
	assert.Contains(t, out, "234,50")
	assert.Contains(t, out, "(11) 98765-4321")
	assert.Contains(t, out, "never")

	e.mustRun("lead", "update", id, "--value", "2000", "--contacted")
	type shown struct {
		types.Opportunity
		StageID  string `json:"stage_id"`
		Position int    `json:"position"`
	}
	got := decode[shown](t, e.mustRun("lead", "show", id, "--json"))
	assert.Equal(t, "negociacao", got.StageID)
	assert.Equal(t, 1, got.Position)
	assert.Equal(t, 2000.0, got.Value)
	assert.Equal(t, types.PriorityHigh, got.Priority)
	assert.Equal(t, "Loja SA", got.Company)
	assert.NotNil(t, got.LastContact)
}

func TestLead_OwnerDefaultsToCurrentUser(t *testing.T) {
	e := newEnv(t)
	e.login("vendedor@crm.com", "vendedor123")
	id := strings.TrimSpace(e.mustRun("lead", "add", "--stage", "novo-lead", "--name", "X"))

	o := decode[types.Opportunity](t, e.mustRun("lead", "show", id, "--json"))
	assert.Equal(t, "João Vendedor Silva", o.Owner)
}

func TestLead_Errors(t *testing.T) {
	e := newEnv(t)
	r := e.run("", "lead", "add", "--stage", "nowhere", "--name", "X")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "novo-lead")

	r = e.run("", "lead", "add", "--stage", "novo-lead", "--name", "X", "--priority", "urgent")
	assert.Equal(t, exitUserError, r.code)

	r = e.run("", "lead", "update", "1")
	assert.Equal(t, exitUserError, r.code)

	for _, v := range []string{"Inf", "NaN", "-1"} {
		r = e.run("", "lead", "add", "--stage", "novo-lead", "--name", "X", "--value", v)
		assert.Equal(t, exitUserError, r.code, "value %s", v)
		assert.Contains(t, r.stderr, types.ErrInvalidValue.Error())
	}
	r = e.run("", "lead", "update", "1", "--value", "+Inf")
	assert.Equal(t, exitUserError, r.code)

	m := decode[pipeline.Metrics](t, e.mustRun("stats", "--json"))
	assert.Equal(t, 7, m.TotalLeads, "rejected leads are not stored")
	assert.InDelta(t, 8500, m.Stages[0].Total, 0.001, "lead 1 keeps its value")
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	m := decode[pipeline.Metrics](t, e.mustRun("stats", "--json"))
	assert.Equal(t, 7, m.TotalLeads)
	assert.Equal(t, 1, m.ConvertedLeads)
	assert.Equal(t, 1, m.LostLeads)
	assert.Len(t, m.Stages, 6)

	out := e.mustRun("stats")
	assert.Contains(t, out, "Conversion rate")
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)

	r := e.run("", "whoami")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrNoSession.Error())

	r = e.run("", "login", "--email", "admin@crm.com", "--password", "wrong")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrInvalidCredentials.Error())

	r = e.run("admin123\n", "login", "--email", "ADMIN@crm.com")
	require.Equal(t, exitSuccess, r.code, r.stderr)

	u := decode[types.User](t, e.mustRun("whoami", "--json"))
	assert.Equal(t, types.RoleAdmin, u.Role)
	assert.Equal(t, "1", u.UserID)

	e.mustRun("logout")
	r = e.run("", "whoami")
	assert.Equal(t, exitUserError, r.code)
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun("register", "--name", "Maria", "--email", "maria@crm.com",
		"--phone", "11912345678", "--external-id", "wa-1",
		"--password", "segredo", "--confirm", "segredo")
	assert.Contains(t, out, "Registered Maria")

	u := decode[types.User](t, e.mustRun("whoami", "--json"))
	assert.Equal(t, types.RoleSeller, u.Role)
	assert.Equal(t, "(11) 91234-5678", u.Phone)

	r := e.run("", "register", "--name", "Maria", "--email", "MARIA@crm.com",
		"--phone", "11912345678", "--external-id", "wa-1",
		"--password", "segredo", "--confirm", "segredo")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrEmailTaken.Error())

	r = e.run("", "register", "--name", "Ana", "--email", "ana@crm.com",
		"--phone", "11912345678", "--external-id", "wa-2",
		"--password", "segredo", "--confirm", "outro")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrPasswordMismatch.Error())
}

func TestAutomation_ListVisibility(t *testing.T) {
	e := newEnv(t)
	ids := func(rules []types.AutomationRule) []string {
		out := make([]string, len(rules))
		for i, r := range rules {
			out[i] = r.RuleID
		}
		return out
	}

	anon := decode[[]types.AutomationRule](t, e.mustRun("automation", "list", "--json"))
	assert.Equal(t, []string{"1", "2"}, ids(anon))

	e.login("vendedor@crm.com", "vendedor123")
	mine := decode[[]types.AutomationRule](t, e.mustRun("automation", "list", "--scope", "personal", "--json"))
	assert.Equal(t, []string{"3", "4"}, ids(mine))

	r := e.run("", "automation", "list", "--scope", "bogus")
	assert.Equal(t, exitUserError, r.code)
}

func TestAutomation_Lifecycle(t *testing.T) {
	e := newEnv(t)

	r := e.run("", "automation", "add", "--name", "X", "--triggers", "x", "--response", "y")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrNoSession.Error())

	e.login("vendedor@crm.com", "vendedor123")
	created := decode[types.AutomationRule](t, e.mustRun("automation", "add",
		"--name", "Frete", "--triggers", "Frete, entrega", "--response", "Entregamos em todo o Brasil.",
		"--delay", "2s", "--json"))
	assert.False(t, created.Global)
	assert.True(t, created.Active)
	assert.Equal(t, []string{"frete", "entrega"}, created.Triggers)

	all := decode[[]types.AutomationRule](t, e.mustRun("automation", "list", "--json"))
	require.NotEmpty(t, all)
	assert.Equal(t, created.RuleID, all[0].RuleID, "new rules go first")

	updated := decode[types.AutomationRule](t, e.mustRun("automation", "update", created.RuleID,
		"--response", "Frete grátis!", "--json"))
	assert.Equal(t, "Frete", updated.Name)
	assert.Equal(t, "Frete grátis!", updated.Response)
	assert.Equal(t, []string{"frete", "entrega"}, updated.Triggers)

	toggled := decode[types.AutomationRule](t, e.mustRun("automation", "toggle", created.RuleID, "--json"))
	assert.False(t, toggled.Active)

	r = e.run("", "automation", "delete", "1")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrPermissionDenied.Error())

	e.mustRun("automation", "delete", created.RuleID)
	r = e.run("", "automation", "delete", created.RuleID)
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrRuleNotFound.Error())
}

func TestAutomation_Match(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun("automation", "match", "Oi,", "tudo", "bem?")
	assert.Contains(t, out, "Saudação Geral")

	fired := decode[types.AutomationRule](t, e.mustRun("automation", "match", "qual o preço?", "--json"))
	assert.Equal(t, "3", fired.RuleID)
	assert.Equal(t, 13, fired.TriggerCount)
	assert.NotNil(t, fired.LastTriggered)

	// Rule 4 is inactive.
	r := e.run("", "automation", "match", "tem alguém?")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrNoRuleTriggered.Error())
}

func TestTeam(t *testing.T) {
	e := newEnv(t)

	r := e.run("", "team", "list")
	assert.Equal(t, exitUserError, r.code, "login required")

	e.login("vendedor@crm.com", "vendedor123")
	r = e.run("", "team", "add", "--name", "Pedro Lima", "--email", "pedro@crm.com", "--rca", "RCA003")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrPermissionDenied.Error())

	e.login("admin@crm.com", "admin123")
	added := decode[types.User](t, e.mustRun("team", "add", "--json",
		"--name", "Pedro Lima", "--email", "pedro@crm.com", "--rca", "RCA003",
		"--role", "manager", "--goal", "20000", "--password", "pedro123"))
	assert.Equal(t, types.RoleManager, added.Role)
	assert.Equal(t, "RCA003", added.RCANumber)

	r = e.run("", "team", "add", "--name", "X", "--email", "x@crm.com", "--rca", "RCA009", "--role", "owner")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrInvalidRole.Error())

	out := e.mustRun("team", "update", added.UserID, "--goal", "30000")
	assert.Contains(t, out, "Updated "+added.UserID)
	out = e.mustRun("team", "deactivate", added.UserID)
	assert.Contains(t, out, "inactive")

	r = e.run("", "team", "deactivate", "1")
	assert.Equal(t, exitUserError, r.code, "admins cannot deactivate themselves")

	members := decode[[]types.User](t, e.mustRun("team", "list", "--json"))
	require.Len(t, members, 3)
	assert.True(t, members[2].Inactive)
	assert.InDelta(t, 30000, members[2].MonthlyGoal, 0.001)

	r = e.run("", "login", "--email", "pedro@crm.com", "--password", "pedro123")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrAccountInactive.Error())

	e.login("vendedor@crm.com", "vendedor123")
	members = decode[[]types.User](t, e.mustRun("team", "list", "--json"))
	assert.Len(t, members, 2, "sellers only see active members")

	e.login("admin@crm.com", "admin123")
	e.mustRun("team", "activate", added.UserID)
	out = e.mustRun("team", "remove", added.UserID)
	assert.Contains(t, out, "Removed "+added.UserID)
	members = decode[[]types.User](t, e.mustRun("team", "list", "--json"))
	assert.Len(t, members, 2)
}

func TestGoals(t *testing.T) {
	e := newEnv(t)
	e.login("admin@crm.com", "admin123")
	e.mustRun("team", "add", "--name", "Pedro Lima", "--email", "pedro@crm.com",
		"--rca", "RCA003", "--goal", "20000", "--password", "pedro123")

	goals := decode[[]pipeline.Goal](t, e.mustRun("goals", "--json"))
	require.Len(t, goals, 3)
	assert.Equal(t, "Pedro Lima", goals[2].Name)
	assert.InDelta(t, 25000, goals[2].Current, 0.001, "won lead 6 is owned by Pedro Lima")
	assert.Equal(t, pipeline.GoalCompleted, goals[2].Status)
	assert.Equal(t, pipeline.GoalActive, goals[0].Status)

	goals = decode[[]pipeline.Goal](t, e.mustRun("goals", "--json", "--month", "2000-01"))
	assert.Equal(t, pipeline.GoalOverdue, goals[0].Status)

	r := e.run("", "goals", "--month", "january")
	assert.Equal(t, exitUserError, r.code)

	e.login("vendedor@crm.com", "vendedor123")
	goals = decode[[]pipeline.Goal](t, e.mustRun("goals", "--json"))
	require.Len(t, goals, 1, "sellers only see their own goal")
	assert.Equal(t, "2", goals[0].UserID)

	out := e.mustRun("goals")
	assert.Contains(t, out, "R$ 50.000,00")
}

func TestExitCodes(t *testing.T) {
	t.Run("unknown backend is a user error", func(t *testing.T) {
		e := newEnv(t)
		t.Setenv("FUNNEL_BACKEND", "bogus")
		r := e.run("", "board")
		assert.Equal(t, exitUserError, r.code)
		assert.Contains(t, r.stderr, types.ErrBackendUnknown.Error())
	})

	t.Run("unusable data dir is a system error", func(t *testing.T) {
		e := newEnv(t)
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
		e.dataDir = filepath.Join(blocker, "data")
		r := e.run("", "board")
		assert.Equal(t, exitSysError, r.code)
	})

	t.Run("unknown command", func(t *testing.T) {
		e := newEnv(t)
		r := e.run("", "nope")
		assert.Equal(t, exitUserError, r.code)
	})
}
