package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/funnel/internal/automation"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

func newAutomationCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "automation",
		Aliases: []string{"rules"},
		Short:   "Manage automatic reply rules",
	}
	cmd.AddCommand(
		newRuleListCmd(a),
		newRuleAddCmd(a),
		newRuleUpdateCmd(a),
		newRuleToggleCmd(a),
		newRuleDeleteCmd(a),
		newRuleMatchCmd(a),
	)
	return cmd
}

func newRuleListCmd(a *app) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rules visible to the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch scope {
			case types.ScopeAll, types.ScopeGlobal, types.ScopePersonal:
			default:
				return fmt.Errorf("invalid scope %q (all, global or personal)", scope)
			}
			engine, err := a.engine()
			if err != nil {
				return err
			}
			viewer, err := a.currentUser(cmd, false)
			if err != nil {
				return err
			}
			rules, err := engine.List(viewer, scope)
			if err != nil {
				return classify(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), rules)
			}
			if len(rules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rules.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSCOPE\tSTATUS\tTRIGGERS\tFIRED\tLAST")
			for _, r := range rules {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					r.RuleID, r.Name, ruleScope(r), ruleStatus(r),
					strings.Join(r.Triggers, ", "), r.TriggerCount, formatSince(r.LastTriggered))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&scope, "scope", types.ScopeAll, "all, global or personal")
	return cmd
}

// draftFlags binds the editable rule fields.
type draftFlags struct {
	name     string
	triggers string
	response string
	delay    time.Duration
}

func (f *draftFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "rule name")
	fl.StringVar(&f.triggers, "triggers", "", "comma-separated trigger words")
	fl.StringVar(&f.response, "response", "", "reply text")
	fl.DurationVar(&f.delay, "delay", 0, "reply delay, e.g. 2s")
}

func (f *draftFlags) draft() automation.Draft {
	return automation.Draft{Name: f.name, Triggers: f.triggers, Response: f.response, Delay: f.delay}
}

func newRuleAddCmd(a *app) *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a rule (global for admins, personal otherwise)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			author, err := a.currentUser(cmd, true)
			if err != nil {
				return err
			}
			r, err := engine.Create(author, f.draft())
			if err != nil {
				return classify(err)
			}
			return printRule(a, cmd, r, "Created")
		},
	}
	f.register(cmd)
	return cmd
}

func newRuleUpdateCmd(a *app) *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "update <rule-id>",
		Short: "Replace the name, triggers, response and delay of a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			editor, err := a.currentUser(cmd, true)
			if err != nil {
				return err
			}
			d, err := a.mergeDraft(cmd, args[0], f)
			if err != nil {
				return err
			}
			r, err := engine.Update(editor, args[0], d)
			if err != nil {
				return classify(err)
			}
			return printRule(a, cmd, r, "Updated")
		},
	}
	f.register(cmd)
	return cmd
}

// mergeDraft fills the flags the user left unset from the stored rule.
func (a *app) mergeDraft(cmd *cobra.Command, id string, f draftFlags) (automation.Draft, error) {
	r, err := a.rule(id)
	if err != nil {
		return automation.Draft{}, err
	}
	d := f.draft()
	changed := cmd.Flags().Changed
	if !changed("name") {
		d.Name = r.Name
	}
	if !changed("triggers") {
		d.Triggers = strings.Join(r.Triggers, ", ")
	}
	if !changed("response") {
		d.Response = r.Response
	}
	if !changed("delay") {
		d.Delay = r.Delay
	}
	return d, nil
}

func (a *app) rule(id string) (types.AutomationRule, error) {
	s, err := a.openStore()
	if err != nil {
		return types.AutomationRule{}, err
	}
	rules, err := s.Rules()
	if err != nil {
		return types.AutomationRule{}, sysErr(err)
	}
	r, err := rules.Get(id)
	return r, classify(err)
}

func newRuleToggleCmd(a *app) *cobra.Command {
	var on, off bool
	cmd := &cobra.Command{
		Use:   "toggle <rule-id>",
		Short: "Activate or deactivate a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			editor, err := a.currentUser(cmd, true)
			if err != nil {
				return err
			}
			current, err := a.rule(args[0])
			if err != nil {
				return err
			}
			active := !current.Active
			switch {
			case on:
				active = true
			case off:
				active = false
			}
			r, err := engine.Toggle(editor, args[0], active)
			if err != nil {
				return classify(err)
			}
			return printRule(a, cmd, r, "Toggled")
		},
	}
	cmd.Flags().BoolVar(&on, "on", false, "activate instead of flipping")
	cmd.Flags().BoolVar(&off, "off", false, "deactivate instead of flipping")
	cmd.MarkFlagsMutuallyExclusive("on", "off")
	return cmd
}

func newRuleDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Remove a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			editor, err := a.currentUser(cmd, true)
			if err != nil {
				return err
			}
			if err := engine.Delete(editor, args[0]); err != nil {
				return classify(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted rule %s\n", args[0])
			return nil
		},
	}
}

func newRuleMatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "match <message...>",
		Short: "Reply to an incoming message with the first matching active rule",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			r, err := engine.Handle(a.context(cmd), strings.Join(args, " "))
			if errors.Is(err, types.ErrNoRuleTriggered) {
				return err
			}
			if err != nil {
				return classify(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), r)
			}
			if r.Delay > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s after %s] %s\n", r.Name, r.Delay, r.Response)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", r.Name, r.Response)
			return nil
		},
	}
}

func printRule(a *app, cmd *cobra.Command, r types.AutomationRule, verb string) error {
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), r)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s rule %s (%s, %s)\n", verb, r.RuleID, ruleScope(r), ruleStatus(r))
	return nil
}

func ruleScope(r types.AutomationRule) string {
	if r.Global {
		return types.ScopeGlobal
	}
	return types.ScopePersonal
}

func ruleStatus(r types.AutomationRule) string {
	if r.Active {
		return "active"
	}
	return "inactive"
}
