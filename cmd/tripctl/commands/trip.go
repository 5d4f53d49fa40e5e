package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tripplanner/internal/domain"
)

func newTripCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trip",
		Short: "Edit trip details",
	}

	set := &cobra.Command{
		Use:   "set <id>",
		Short: "Update trip details; unset flags keep their current value",
		Example: `  tripctl trip set 0b6f... --to "Paris, France" --start 2025-06-01 --end 2025-06-03 \
      --people 2 --budget 1500 --interest food --interest museums`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(v)
			current, err := c.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			trip := current.Trip
			if err := applyTripFlags(cmd, &trip); err != nil {
				return err
			}
			view, err := c.UpdateTrip(cmd.Context(), args[0], trip)
			if err != nil {
				return err
			}
			return printSession(v, cmd.OutOrStdout(), view, false)
		},
	}
	f := set.Flags()
	f.String("to", "", "destination")
	f.String("from", "", "origin")
	f.String("category", "", "vacation, business, road-trip, weekend-getaway or day-trip")
	f.Float64("budget", 0, "total budget in USD")
	f.Int("people", 0, "party size")
	f.StringSlice("interest", nil, "interest (repeatable)")
	f.String("start", "", "start date (YYYY-MM-DD)")
	f.String("end", "", "end date (YYYY-MM-DD)")
	f.String("notes", "", "free-form notes")

	cmd.AddCommand(set)
	return cmd
}

// applyTripFlags overlays only the flags the user passed.
func applyTripFlags(cmd *cobra.Command, trip *domain.TripParameters) error {
	f := cmd.Flags()
	var err error
	if f.Changed("to") {
		trip.ToLocation, err = f.GetString("to")
	}
	if err == nil && f.Changed("from") {
		trip.FromLocation, err = f.GetString("from")
	}
	if err == nil && f.Changed("category") {
		var c string
		c, err = f.GetString("category")
		trip.Category = domain.TripCategory(c)
	}
	if err == nil && f.Changed("budget") {
		trip.Budget, err = f.GetFloat64("budget")
	}
	if err == nil && f.Changed("people") {
		trip.People, err = f.GetInt("people")
	}
	if err == nil && f.Changed("interest") {
		trip.Interests, err = f.GetStringSlice("interest")
	}
	if err == nil && f.Changed("start") {
		trip.StartDate, err = f.GetString("start")
	}
	if err == nil && f.Changed("end") {
		trip.EndDate, err = f.GetString("end")
	}
	if err == nil && f.Changed("notes") {
		trip.Notes, err = f.GetString("notes")
	}
	return err
}
