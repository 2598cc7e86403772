package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/briangreenhill/ridestats/internal/fitfile"
	"github.com/briangreenhill/ridestats/internal/training"
)

func newFitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Inspect and convert FIT activity files",
	}
	cmd.AddCommand(newFitInspectCmd())
	cmd.AddCommand(newFitParquetCmd())
	return cmd
}

func decodeFile(path string) (*fitfile.Ride, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ride, err := fitfile.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ride, nil
}

func newFitInspectCmd() *cobra.Command {
	var maxHR int
	cmd := &cobra.Command{
		Use:   "inspect <file.fit>",
		Short: "Print the summary, laps and heart rate zones of a ride",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ride, err := decodeFile(args[0])
			if err != nil {
				return err
			}
			return printRide(cmd.OutOrStdout(), ride, maxHR)
		},
	}
	cmd.Flags().IntVar(&maxHR, "max-hr", 0, "max heart rate for zones (default: ride maximum)")
	return cmd
}

func printRide(out io.Writer, ride *fitfile.Ride, maxHR int) error {
	s := ride.Summary
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "start\t%s\n", s.Start.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "sport\t%s\n", s.Sport)
	fmt.Fprintf(w, "distance\t%.2f km\n", s.DistanceKm)
	fmt.Fprintf(w, "moving time\t%s\n", training.FormatDuration(s.MovingTime))
	fmt.Fprintf(w, "avg speed\t%s\n", optional(s.AvgSpeedKmh, "%.1f km/h"))
	fmt.Fprintf(w, "max speed\t%s\n", optional(s.MaxSpeedKmh, "%.1f km/h"))
	fmt.Fprintf(w, "avg hr\t%s\n", optional(s.AvgHeartRate, "%d bpm"))
	fmt.Fprintf(w, "max hr\t%s\n", optional(s.MaxHeartRate, "%d bpm"))
	fmt.Fprintf(w, "elevation gain\t%.0f m\n", s.ElevationGainM)
	fmt.Fprintf(w, "samples\t%d\n", len(ride.Points))
	if err := w.Flush(); err != nil {
		return err
	}

	if len(ride.Laps) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "lap\ttime\tdistance\tavg hr\tgain\tloss")
		for _, l := range ride.Laps {
			fmt.Fprintf(w, "%d\t%s\t%.2f km\t%s\t%.0f m\t%.0f m\n",
				l.Index+1,
				training.FormatDuration(time.Duration(l.DurationS)*time.Second),
				l.DistanceM/1000,
				optional(l.AvgHeartRate, "%d"),
				l.ElevationGainM,
				l.ElevationLossM,
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if maxHR == 0 {
		maxHR = s.MaxHeartRate.Or(0)
	}
	if maxHR == 0 {
		return nil
	}
	zones, err := fitfile.ComputeZones(ride.Points, maxHR)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nzones (max %d bpm)\n", maxHR)
	for i, z := range zones.All() {
		fmt.Fprintf(out, "  Z%d  %s\n", i+1, z)
	}
	return nil
}

func optional[T any](o training.Optional[T], format string) string {
	v, ok := o.Get()
	if !ok {
		return "-"
	}
	return fmt.Sprintf(format, v)
}

func newFitParquetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parquet <file.fit> <out.parquet>",
		Short: "Export the track samples of a ride as Parquet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ride, err := decodeFile(args[0])
			if err != nil {
				return err
			}
			if len(ride.Points) == 0 {
				return fmt.Errorf("%s has no track samples", args[0])
			}
			var buf bytes.Buffer
			if err := fitfile.WriteParquet(&buf, ride.Points); err != nil {
				return err
			}
			if err := os.WriteFile(args[1], buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d samples to %s\n", len(ride.Points), args[1])
			return nil
		},
	}
}
