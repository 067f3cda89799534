package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roamline/roamline/internal/domain"
)

func init() {
	createTripCmd.Flags().StringVar(&createTripName, "name", "", "trip name (required)")
	createTripCmd.Flags().StringVar(&createTripStart, "start", "", "start address")
	createTripCmd.Flags().StringVar(&createTripEnd, "end", "", "end address")
	_ = createTripCmd.MarkFlagRequired("name")

	addStopCmd.Flags().StringVar(&addStopTrip, "trip", "", "trip id (required)")
	addStopCmd.Flags().StringVar(&addStopCheckIn, "check-in", "", "check-in date, YYYY-MM-DD (required)")
	addStopCmd.Flags().StringVar(&addStopCheckOut, "check-out", "", "check-out date, YYYY-MM-DD (required)")
	addStopCmd.Flags().IntVar(&addStopOrder, "order", 0, "stop order within the trip")
	addStopCmd.Flags().StringVar(&addStopResort, "resort", "", "resort id")
	addStopCmd.Flags().StringVar(&addStopNotes, "notes", "", "free-form notes")
	_ = addStopCmd.MarkFlagRequired("trip")
	_ = addStopCmd.MarkFlagRequired("check-in")
	_ = addStopCmd.MarkFlagRequired("check-out")

	rootCmd.AddCommand(createTripCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addStopCmd)
}

var (
	createTripName  string
	createTripStart string
	createTripEnd   string
)

var createTripCmd = &cobra.Command{
	Use:   "create-trip",
	Short: "Create a trip locally and best-effort remotely",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine) error {
			trip, err := eng.controller.CreateTrip(ctx, actor(), domain.Trip{
				Name:          createTripName,
				Status:        domain.StatusDraft,
				StartLocation: domain.Location{Address: createTripStart},
				EndLocation:   domain.Location{Address: createTripEnd},
			})
			if err != nil {
				return err
			}
			return printJSON(trip)
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every cached trip",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine) error {
			trips, err := eng.controller.ListTrips(ctx)
			if err != nil {
				return err
			}
			for _, t := range trips {
				fmt.Printf("%s\t%s\t%s\t%d stops\n", t.ID, t.Status, t.Name, len(t.Stops))
			}
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <trip-id>",
	Short: "Show one trip, cache-first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine) error {
			trip, found, err := eng.controller.GetTrip(ctx, actor(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("trip %s not found", args[0])
			}
			return printJSON(trip)
		})
	},
}

var (
	addStopTrip     string
	addStopCheckIn  string
	addStopCheckOut string
	addStopOrder    int
	addStopResort   string
	addStopNotes    string
)

var addStopCmd = &cobra.Command{
	Use:   "add-stop",
	Short: "Add a stop to a trip",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := parseDate(addStopCheckIn)
		if err != nil {
			return fmt.Errorf("--check-in: %w", err)
		}
		out, err := parseDate(addStopCheckOut)
		if err != nil {
			return fmt.Errorf("--check-out: %w", err)
		}

		return withEngine(func(ctx context.Context, eng *engine) error {
			stop, err := eng.controller.AddStop(ctx, actor(), domain.TripStop{
				TripID:    addStopTrip,
				ResortID:  addStopResort,
				StopOrder: addStopOrder,
				CheckIn:   in,
				CheckOut:  out,
				Notes:     addStopNotes,
			})
			if err != nil {
				return err
			}
			return printJSON(stop)
		})
	},
}
