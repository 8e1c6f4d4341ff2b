package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/funnel/internal/pipeline"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pipeline metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := a.board()
			if err != nil {
				return err
			}
			stages, err := board.Stages()
			if err != nil {
				return sysErr(err)
			}
			m := pipeline.Summarize(stages)
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), m)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Total leads:     %d\n", m.TotalLeads)
			fmt.Fprintf(w, "Converted:       %d\n", m.ConvertedLeads)
			fmt.Fprintf(w, "Lost:            %d\n", m.LostLeads)
			fmt.Fprintf(w, "Conversion rate: %s\n", formatPercent(m.ConversionRate))
			fmt.Fprintf(w, "Pipeline value:  %s\n", formatMoney(m.PipelineValue))
			fmt.Fprintf(w, "Revenue:         %s\n", formatMoney(m.Revenue))
			fmt.Fprintf(w, "Average ticket:  %s\n", formatMoney(m.AverageTicket))
			fmt.Fprintf(w, "Active sellers:  %d\n", m.ActiveOwners)
			fmt.Fprintln(w)

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STAGE\tLEADS\tTOTAL")
			for _, s := range m.Stages {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Title, s.Count, formatMoney(s.Total))
			}
			return tw.Flush()
		},
	}
}
