package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tripplanner/internal/domain"
)

func newSessionCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"s"},
		Short:   "Manage planning sessions",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Start a new session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				view, err := newClient(v).CreateSession(cmd.Context())
				if err != nil {
					return err
				}
				return printSession(v, cmd.OutOrStdout(), view, false)
			},
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List sessions",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				views, err := newClient(v).ListSessions(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if ok, err := printJSON(v, out, views); ok || err != nil {
					return err
				}
				w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
				fmt.Fprintln(w, "ID\tPHASE\tDESTINATION\tMESSAGES\tUPDATED")
				for _, s := range views {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
						s.ID, s.Phase, orDash(s.Trip.ToLocation), len(s.Transcript),
						s.UpdatedAt.Local().Format(time.DateTime))
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show a session and its transcript",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				view, err := newClient(v).GetSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printSession(v, cmd.OutOrStdout(), view, true)
			},
		},
		&cobra.Command{
			Use:     "delete <id>",
			Aliases: []string{"rm"},
			Short:   "Delete a session",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := newClient(v).DeleteSession(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset <id>",
			Short: "Discard everything and return to trip details",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				view, err := newClient(v).Reset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printSession(v, cmd.OutOrStdout(), view, false)
			},
		},
		&cobra.Command{
			Use:   "back <id>",
			Short: "Leave the itinerary view and resume chatting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				view, err := newClient(v).Back(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printSession(v, cmd.OutOrStdout(), view, false)
			},
		},
	)
	return cmd
}

func printSession(v *viper.Viper, out io.Writer, s *domain.SessionView, transcript bool) error {
	if ok, err := printJSON(v, out, s); ok || err != nil {
		return err
	}
	fmt.Fprintf(out, "ID: %s\n", s.ID)
	fmt.Fprintf(out, "Phase: %s\n", s.Phase)
	if s.Trip.IsUseful() {
		fmt.Fprintf(out, "Trip: %s\n", describeTrip(s.Trip))
	}
	fmt.Fprintf(out, "Recommendations: %d\n", len(s.Recommendations))
	if s.HasItinerary {
		fmt.Fprintln(out, "Itinerary: generated")
	}
	if !transcript || len(s.Transcript) == 0 {
		return nil
	}
	fmt.Fprintln(out, "\nTranscript:")
	for _, m := range s.Transcript {
		fmt.Fprintf(out, "  [%s] %s\n", m.Role, m.Content)
	}
	return nil
}

func describeTrip(t domain.TripParameters) string {
	var parts []string
	if t.Category != domain.TripCategoryUnset {
		parts = append(parts, string(t.Category))
	}
	switch {
	case t.FromLocation != "" && t.ToLocation != "":
		parts = append(parts, t.FromLocation+" -> "+t.ToLocation)
	case t.ToLocation != "":
		parts = append(parts, "to "+t.ToLocation)
	case t.FromLocation != "":
		parts = append(parts, "from "+t.FromLocation)
	}
	if t.HasDates() {
		parts = append(parts, t.StartDate+" to "+t.EndDate)
	}
	if t.People > 0 {
		parts = append(parts, fmt.Sprintf("%d people", t.People))
	}
	if t.Budget > 0 {
		parts = append(parts, fmt.Sprintf("budget $%.0f", t.Budget))
	}
	if len(t.Interests) > 0 {
		parts = append(parts, "interests: "+strings.Join(t.Interests, ", "))
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
