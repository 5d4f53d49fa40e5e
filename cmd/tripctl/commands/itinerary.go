package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tripplanner/internal/domain"
)

func newItineraryCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "itinerary",
		Aliases: []string{"it"},
		Short:   "Generate, view and export itineraries",
	}

	generate := &cobra.Command{
		Use:   "generate <id>",
		Short: "Build the itinerary from the conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient(v).GenerateItinerary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ok, err := printJSON(v, out, resp); ok || err != nil {
				return err
			}
			if resp.Notice != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Notice: %s\n", resp.Notice)
			}
			if resp.Visualization == nil {
				if resp.Message != nil {
					fmt.Fprintln(out, resp.Message.Content)
				}
				return nil
			}
			printVisualization(out, resp.Visualization)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the current itinerary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vis, err := newClient(v).Itinerary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ok, err := printJSON(v, out, vis); ok || err != nil {
				return err
			}
			printVisualization(out, vis)
			return nil
		},
	}

	var outFile string
	ics := &cobra.Command{
		Use:   "ics <id>",
		Short: "Export the itinerary as an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient(v).ItineraryCalendar(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outFile == "" || outFile == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outFile, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outFile, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", outFile)
			return nil
		},
	}
	ics.Flags().StringVarP(&outFile, "output", "o", "", "write to file instead of stdout")

	cmd.AddCommand(generate, show, ics)
	return cmd
}

func printVisualization(out io.Writer, vis *domain.Visualization) {
	it := vis.Itinerary
	if vis.Notice != "" {
		fmt.Fprintf(out, "Notice: %s\n", vis.Notice)
	}
	if it.Summary != "" {
		fmt.Fprintln(out, it.Summary)
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Map: %s\n", vis.Map.Mode)
	fmt.Fprintf(out, "Days: %d  Total cost: $%.2f\n", it.TotalDays, it.TotalCost)
	if it.Fallback {
		fmt.Fprintln(out, "(sample itinerary: no recommendations were available)")
	}
	for _, day := range it.Days {
		fmt.Fprintf(out, "\nDay %d\n", day.Day)
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		for _, item := range day.Items {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t$%.2f\n", item.Slot.Time, item.Type, item.Title, orDash(item.Location), item.Cost)
		}
		_ = w.Flush()
	}
}
