package cli

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/funnel/internal/auth"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

// leadFields are the editable opportunity fields shared by add and update.
type leadFields struct {
	name     string
	company  string
	email    string
	phone    string
	value    float64
	priority string
	owner    string
}

func (f *leadFields) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "lead name")
	fl.StringVar(&f.company, "company", "", "company")
	fl.StringVar(&f.email, "email", "", "contact email")
	fl.StringVar(&f.phone, "phone", "", "contact phone")
	fl.Float64Var(&f.value, "value", 0, "deal value in reais")
	fl.StringVar(&f.priority, "priority", "", "low, medium or high (default medium)")
	fl.StringVar(&f.owner, "owner", "", "responsible seller (default: logged-in user)")
}

// apply copies the flags the user set onto o.
func (f *leadFields) apply(cmd *cobra.Command, o *types.Opportunity) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		o.Name = f.name
	}
	if changed("company") {
		o.Company = f.company
	}
	if changed("email") {
		o.Email = f.email
	}
	if changed("phone") {
		o.Phone = auth.FormatPhone(f.phone)
	}
	if changed("value") {
		o.Value = f.value
	}
	if changed("owner") {
		o.Owner = f.owner
	}
	if changed("priority") || o.Priority == "" {
		p, err := types.ParsePriority(f.priority)
		if err != nil {
			return err
		}
		o.Priority = p
	}
	return nil
}

func newLeadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lead",
		Short: "Add, show and edit opportunities",
	}
	cmd.AddCommand(newLeadAddCmd(a), newLeadShowCmd(a), newLeadUpdateCmd(a))
	return cmd
}

func newLeadAddCmd(a *app) *cobra.Command {
	var (
		fields leadFields
		stage  string
		index  int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an opportunity to a stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := a.board()
			if err != nil {
				return err
			}
			var o types.Opportunity
			if err := fields.apply(cmd, &o); err != nil {
				return err
			}
			if o.Owner == "" {
				u, err := a.currentUser(cmd, false)
				if err != nil {
					return err
				}
				if u != nil {
					o.Owner = u.Name
				}
			}
			if !cmd.Flags().Changed("index") {
				index = math.MaxInt
			}

			id, err := board.AddOpportunity(stage, index, o)
			if errors.Is(err, types.ErrStageNotFound) {
				if stages, serr := board.Stages(); serr == nil {
					return fmt.Errorf("%w (stages: %s)", err, stageIDs(stages))
				}
			}
			if err != nil {
				return classify(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{"opportunity_id": id})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	fields.register(cmd)
	cmd.Flags().StringVar(&stage, "stage", "", "stage ID")
	cmd.Flags().IntVar(&index, "index", 0, "position in the stage (default: end)")
	cmd.MarkFlagRequired("stage")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newLeadShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <opportunity-id>",
		Short: "Display an opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := a.board()
			if err != nil {
				return err
			}
			o, stageID, pos, err := board.GetOpportunity(args[0])
			if err != nil {
				return classify(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), struct {
					types.Opportunity
					StageID  string `json:"stage_id"`
					Position int    `json:"position"`
				}{o, stageID, pos})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ID:           %s\n", o.OpportunityID)
			fmt.Fprintf(w, "Name:         %s\n", o.Name)
			fmt.Fprintf(w, "Company:      %s\n", o.Company)
			fmt.Fprintf(w, "Email:        %s\n", o.Email)
			fmt.Fprintf(w, "Phone:        %s\n", o.Phone)
			fmt.Fprintf(w, "Value:        %s\n", formatMoney(o.Value))
			fmt.Fprintf(w, "Priority:     %s\n", o.Priority)
			fmt.Fprintf(w, "Owner:        %s\n", o.Owner)
			fmt.Fprintf(w, "Stage:        %s (position %d)\n", stageID, pos)
			fmt.Fprintf(w, "Created:      %s\n", formatDate(o.CreatedAt))
			fmt.Fprintf(w, "Last contact: %s\n", formatSince(o.LastContact))
			return nil
		},
	}
}

func newLeadUpdateCmd(a *app) *cobra.Command {
	var (
		fields    leadFields
		contacted bool
	)
	cmd := &cobra.Command{
		Use:   "update <opportunity-id>",
		Short: "Update opportunity fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !anyChanged(cmd, "name", "company", "email", "phone", "value", "priority", "owner", "contacted") {
				return errors.New("update: at least one field flag or --contacted must be provided")
			}
			board, err := a.board()
			if err != nil {
				return err
			}
			o, _, _, err := board.GetOpportunity(args[0])
			if err != nil {
				return classify(err)
			}
			if err := fields.apply(cmd, &o); err != nil {
				return err
			}
			if contacted {
				o.Contacted(time.Now())
			}
			if err := board.UpdateOpportunity(o); err != nil {
				return classify(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), o)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", o.OpportunityID)
			return nil
		},
	}
	fields.register(cmd)
	cmd.Flags().BoolVar(&contacted, "contacted", false, "record a contact now")
	return cmd
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, n := range names {
		if cmd.Flags().Changed(n) {
			return true
		}
	}
	return false
}
