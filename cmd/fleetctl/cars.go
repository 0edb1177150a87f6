package main

import (
	"fmt"
	"text/tabwriter"

	"carbook/internal/export"
	"carbook/internal/service"

	"github.com/spf13/cobra"
)

func newCarCmd(open func() (*env, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "car",
		Short: "Inspect cars",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List cars with their booking counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.Close()

			cars, err := e.db.ListCars(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPLATE\tBOOKINGS")
			for _, c := range cars {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", c.ID, c.Name, c.LicensePlate, c.TotalBookings)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(list)
	return cmd
}

func newCalendarCmd(open func() (*env, error)) *cobra.Command {
	var carID int64
	var xlsx bool

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print the booked days of a car, or export them to XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.Close()

			car, err := e.db.GetCar(cmd.Context(), carID)
			if err != nil {
				return fmt.Errorf("car %d: %w", carID, err)
			}
			bookings := service.NewBookingService(e.db, nil, nil, nil, 0, e.logger)
			cal, err := bookings.Calendar(cmd.Context(), carID)
			if err != nil {
				return err
			}

			if xlsx {
				path, err := export.NewExporter(e.cfg.Exports.Path, e.logger).SaveCalendar(car, cal)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tBOOKING")
			for _, d := range cal.BlockedDays {
				fmt.Fprintf(w, "%s\t%d\n", d.Date, d.BookingID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&carID, "car", 0, "car ID")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "write an XLSX file into the export directory")
	_ = cmd.MarkFlagRequired("car")
	return cmd
}
