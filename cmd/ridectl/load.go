package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/briangreenhill/ridestats/internal/config"
	"github.com/briangreenhill/ridestats/internal/metrics"
	"github.com/briangreenhill/ridestats/internal/training"
)

type loadFlags struct {
	profile    string
	distance   float64
	movingTime string
	speed      float64
	heartRate  int
	elevation  float64
	max        metrics.MaxValues
}

func newLoadCmd() *cobra.Command {
	var f loadFlags
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Score one ride against reference maxima",
		Example: "  ridectl load --distance 80 --moving-time 2:40:00 --hr 150 --elevation 900 \\\n" +
			"    --max-distance 120 --max-speed 32 --max-hr 165 --max-elevation 1800",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoad(cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVar(&f.profile, "profile", "", "scoring profile (TOML)")
	cmd.Flags().Float64Var(&f.distance, "distance", 0, "ride distance in km")
	cmd.Flags().StringVar(&f.movingTime, "moving-time", "0:00:00", "moving time H:MM:SS")
	cmd.Flags().Float64Var(&f.speed, "speed", 0, "average speed in km/h (default: derived)")
	cmd.Flags().IntVar(&f.heartRate, "hr", 0, "average heart rate, 0 when not recorded")
	cmd.Flags().Float64Var(&f.elevation, "elevation", 0, "elevation gain in m")
	cmd.Flags().Float64Var(&f.max.Distance, "max-distance", 0, "reference distance in km")
	cmd.Flags().Float64Var(&f.max.Speed, "max-speed", 0, "reference speed in km/h")
	cmd.Flags().Float64Var(&f.max.HeartRate, "max-hr", 0, "reference heart rate")
	cmd.Flags().Float64Var(&f.max.Elevation, "max-elevation", 0, "reference elevation gain in m")
	return cmd
}

func runLoad(out io.Writer, f loadFlags) error {
	profile, err := config.LoadProfile(f.profile)
	if err != nil {
		return err
	}
	scorer, err := profile.Scorer()
	if err != nil {
		return err
	}

	t := training.Training{
		DistanceKm:     f.distance,
		MovingTime:     f.movingTime,
		ElevationGainM: f.elevation,
	}
	if f.heartRate > 0 {
		t.AvgHeartRate = training.Some(f.heartRate)
	}
	if f.speed > 0 {
		t.AvgSpeedKmh = training.Some(f.speed)
	} else if t.AvgSpeedKmh, err = metrics.AverageSpeedKmh(f.distance, f.movingTime); err != nil {
		return err
	}

	r, err := scorer.Score(t, f.max)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "intensity  %d\n", r.Intensity)
	fmt.Fprintf(out, "distance   %d\n", r.DistanceContribution)
	fmt.Fprintf(out, "speed      %d\n", r.SpeedContribution)
	fmt.Fprintf(out, "heart rate %d\n", r.HeartRateContribution)
	fmt.Fprintf(out, "elevation  %d\n", r.ElevationContribution)
	return nil
}
