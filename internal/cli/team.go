package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/funnel/internal/team"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

func newTeamCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage the sales team",
	}
	cmd.AddCommand(
		newTeamListCmd(a),
		newTeamAddCmd(a),
		newTeamUpdateCmd(a),
		newTeamActiveCmd(a, "activate", true),
		newTeamActiveCmd(a, "deactivate", false),
		newTeamRemoveCmd(a),
	)
	return cmd
}

// memberFlags binds the editable member fields.
type memberFlags struct {
	m team.Member
}

func (f *memberFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.m.Name, "name", "", "full name")
	fl.StringVar(&f.m.Email, "email", "", "login email")
	fl.StringVar(&f.m.Phone, "phone", "", "phone number")
	fl.StringVar(&f.m.RCANumber, "rca", "", "RCA number")
	fl.StringVar(&f.m.Role, "role", types.RoleSeller, "admin, manager or seller")
	fl.Float64Var(&f.m.MonthlyGoal, "goal", 0, "monthly revenue goal")
	fl.StringVar(&f.m.Password, "password", "", "login password (none: the member cannot log in)")
}

// apply copies the changed flags onto m.
func (f *memberFlags) apply(cmd *cobra.Command, m *team.Member) {
	fl := cmd.Flags()
	if fl.Changed("name") {
		m.Name = f.m.Name
	}
	if fl.Changed("email") {
		m.Email = f.m.Email
	}
	if fl.Changed("phone") {
		m.Phone = f.m.Phone
	}
	if fl.Changed("rca") {
		m.RCANumber = f.m.RCANumber
	}
	if fl.Changed("role") {
		m.Role = f.m.Role
	}
	if fl.Changed("goal") {
		m.MonthlyGoal = f.m.MonthlyGoal
	}
	if fl.Changed("password") {
		m.Password = f.m.Password
	}
}

func newTeamListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List team members (admins also see inactive ones)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.team()
			if err != nil {
				return err
			}
			viewer, err := a.currentUser(cmd, true)
			if err != nil {
				return err
			}
			members, err := svc.List(viewer)
			if err != nil {
				return classify(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), members)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tRCA\tROLE\tGOAL\tSTATUS")
			for _, u := range members {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					u.UserID, u.Name, u.Email, u.RCANumber, u.Role, formatMoney(u.MonthlyGoal), memberStatus(u))
			}
			return tw.Flush()
		},
	}
}

func newTeamAddCmd(a *app) *cobra.Command {
	var f memberFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a team member (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.team()
			if err != nil {
				return err
			}
			admin, err := a.currentUser(cmd, true)
			if err != nil {
				return err
			}
			u, err := svc.Add(admin, f.m)
			if err != nil {
				return classify(err)
			}
			return printMember(a, cmd, u, "Added")
		},
	}
	f.register(cmd)
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("rca")
	return cmd
}

func newTeamUpdateCmd(a *app) *cobra.Command {
	var f memberFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a team member (admin only); unset flags keep their values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !anyChanged(cmd, "name", "email", "phone", "rca", "role", "goal", "password") {
				return fmt.Errorf("nothing to update")
			}
			svc, err := a.team()
			if err != nil {
				return err
			}
			admin, err := a.currentUser(cmd, true)
			if err != nil {
				return err
			}
			current, err := svc.Get(admin, args[0])
			if err != nil {
				return classify(err)
			}
			m := team.MemberOf(current)
			f.apply(cmd, &m)
			u, err := svc.Update(admin, args[0], m)
			if err != nil {
				return classify(err)
			}
			return printMember(a, cmd, u, "Updated")
		},
	}
	f.register(cmd)
	return cmd
}

func newTeamActiveCmd(a *app, use string, active bool) *cobra.Command {
	verb := "Activated"
	if !active {
		verb = "Deactivated"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("%s a team member (admin only)", verb[:len(verb)-1]),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.team()
			if err != nil {
				return err
			}
			admin, err := a.currentUser(cmd, true)
			if err != nil {
				return err
			}
			u, err := svc.SetActive(admin, args[0], active)
			if err != nil {
				return classify(err)
			}
			return printMember(a, cmd, u, verb)
		},
	}
}

func newTeamRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a team member (admin only)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.team()
			if err != nil {
				return err
			}
			admin, err := a.currentUser(cmd, true)
			if err != nil {
				return err
			}
			if err := svc.Remove(admin, args[0]); err != nil {
				return classify(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func memberStatus(u types.User) string {
	if u.IsActive() {
		return "active"
	}
	return "inactive"
}

func printMember(a *app, cmd *cobra.Command, u types.User, verb string) error {
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), u)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s <%s> (%s, %s)\n", verb, u.UserID, u.Name, u.Email, u.Role, memberStatus(u))
	return nil
}
