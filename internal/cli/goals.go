package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/funnel/internal/pipeline"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

func newGoalsCmd(a *app) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Show monthly revenue goals (admins see the whole team)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			period := now
			if month != "" {
				p, err := time.ParseInLocation("2006-01", month, now.Location())
				if err != nil {
					return fmt.Errorf("invalid month %q (want YYYY-MM)", month)
				}
				period = p
			}
			board, err := a.board()
			if err != nil {
				return err
			}
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
			if !viewer.IsAdmin() {
				members = ownEntry(members, viewer.UserID)
			}
			stages, err := board.Stages()
			if err != nil {
				return sysErr(err)
			}
			goals := pipeline.Goals(stages, members, period, now)
			if a.flags.jsonMode {
				if goals == nil {
					goals = []pipeline.Goal{}
				}
				return printJSON(cmd.OutOrStdout(), goals)
			}
			if len(goals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No goals.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCURRENT\tTARGET\tPROGRESS\tDEADLINE\tSTATUS")
			for _, g := range goals {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					g.Name, formatMoney(g.Current), formatMoney(g.Target),
					formatPercent(g.Progress), formatDate(g.Deadline), g.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "goal month as YYYY-MM (default: current month)")
	return cmd
}

func ownEntry(members []types.User, id string) []types.User {
	for _, u := range members {
		if u.UserID == id {
			return []types.User{u}
		}
	}
	return nil
}
