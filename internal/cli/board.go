package cli

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

func newBoardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show the pipeline stages and their opportunities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := a.board()
			if err != nil {
				return err
			}
			stages, err := board.Stages()
			if err != nil {
				return classify(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), stages)
			}
			printBoard(cmd.OutOrStdout(), stages)
			return nil
		},
	}
}

func printBoard(w io.Writer, stages []types.Stage) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, s := range stages {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		header := fmt.Sprintf("%s [%s] %d lead(s), %s", s.Title, s.StageID, s.Count(), formatMoney(s.Total()))
		if s.Limit > 0 {
			header += fmt.Sprintf(", limit %d", s.Limit)
		}
		if s.Outcome != types.OutcomeNone {
			header += ", " + s.Outcome
		}
		fmt.Fprintln(tw, header)
		for pos, o := range s.Opportunities {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				pos, o.OpportunityID, o.Name, o.Company, formatMoney(o.Value), o.Priority, formatSince(o.LastContact))
		}
	}
	tw.Flush()
}

func newMoveCmd(a *app) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "move <opportunity-id> <stage-id>",
		Short: "Move an opportunity to a stage",
		Long: "Move an opportunity to the given stage. Without --index it is placed at the\n" +
			"end of the stage; indexes beyond either end are clamped.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := a.board()
			if err != nil {
				return err
			}
			_, srcStage, srcIndex, err := board.GetOpportunity(args[0])
			if err != nil {
				return classify(err)
			}
			dest := math.MaxInt
			if cmd.Flags().Changed("index") {
				dest = index
			}
			stages, err := board.MoveOpportunity(types.Move{
				OpportunityID: args[0],
				SourceStageID: srcStage,
				SourceIndex:   srcIndex,
				DestStageID:   args[1],
				DestIndex:     dest,
			})
			if err != nil {
				return classify(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), stages)
			}
			for _, s := range stages {
				if pos := s.IndexOf(args[0]); pos >= 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s at position %d\n", args[0], s.Title, pos)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "destination position (default: end of stage)")
	return cmd
}

// stageIDs lists stage IDs for error output.
func stageIDs(stages []types.Stage) string {
	ids := make([]string, len(stages))
	for i, s := range stages {
		ids[i] = s.StageID
	}
	return strings.Join(ids, ", ")
}
