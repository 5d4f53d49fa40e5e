package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tripplanner/internal/domain"
)

func newChatCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <id> <message>...",
		Short: "Send a message to the planning assistant",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient(v).SendMessage(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ok, err := printJSON(v, out, resp); ok || err != nil {
				return err
			}
			fmt.Fprintln(out, resp.Message.Content)
			if resp.Notice != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Notice: %s\n", resp.Notice)
			}
			if len(resp.Recommendations) > 0 {
				fmt.Fprintln(out)
				return printRecommendations(out, resp.Recommendations)
			}
			return nil
		},
	}
}

func printRecommendations(out io.Writer, recs []domain.Recommendation) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TYPE\tNAME\tLOCATION\tCOST\tRATING")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t$%.2f\t%.1f\n", r.Type, r.Name, orDash(r.Location), r.Cost, r.Rating)
	}
	return w.Flush()
}
