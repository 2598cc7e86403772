// Package fitfile reads device FIT files into track points, laps and a ride summary.
package fitfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/tormoder/fit"

	"github.com/briangreenhill/ridestats/internal/training"
)

var (
	ErrNotActivity = errors.New("fit file is not an activity")
	ErrNoSession   = errors.New("activity has no session")
)

const semicirclesToDeg = 180.0 / 2147483648.0 // 2^31

// TrackPoint is one record sample. Sensors that were not fitted stay absent.
type TrackPoint struct {
	Time      time.Time                  `json:"time"`
	OffsetS   int                        `json:"offset_s"`
	Lat       training.Optional[float64] `json:"lat"`
	Lng       training.Optional[float64] `json:"lng"`
	AltitudeM training.Optional[float64] `json:"altitude_m"`
	SpeedMps  training.Optional[float64] `json:"speed_mps"`
	HeartRate training.Optional[int]     `json:"heart_rate"`
	Cadence   training.Optional[int]     `json:"cadence"`
	Power     training.Optional[int]     `json:"power"`
	DistanceM training.Optional[float64] `json:"distance_m"`
}

type Lap struct {
	Index          int                        `json:"index"`
	StartOffsetS   int                        `json:"start_offset_s"`
	DurationS      int                        `json:"duration_s"`
	DistanceM      float64                    `json:"distance_m"`
	AvgHeartRate   training.Optional[int]     `json:"avg_heart_rate"`
	MaxHeartRate   training.Optional[int]     `json:"max_heart_rate"`
	AvgSpeedMps    training.Optional[float64] `json:"avg_speed_mps"`
	ElevationGainM float64                    `json:"elevation_gain_m"`
	ElevationLossM float64                    `json:"elevation_loss_m"`
}

// Summary is the session-level view of a ride, with gaps filled from the samples
type Summary struct {
	Start          time.Time
	Sport          string
	DistanceKm     float64
	MovingTime     time.Duration
	AvgSpeedKmh    training.Optional[float64]
	MaxSpeedKmh    training.Optional[float64]
	AvgHeartRate   training.Optional[int]
	MaxHeartRate   training.Optional[int]
	ElevationGainM float64
}

type Ride struct {
	Summary Summary
	Points  []TrackPoint
	Laps    []Lap
}

// Decode parses a FIT activity
func Decode(r io.Reader) (*Ride, error) {
	f, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode fit: %w", err)
	}
	act, err := f.Activity()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotActivity, err)
	}
	return FromActivity(act)
}

// FromActivity converts an already decoded activity
func FromActivity(act *fit.ActivityFile) (*Ride, error) {
	if act == nil || len(act.Sessions) == 0 {
		return nil, ErrNoSession
	}
	session := act.Sessions[0]
	start := validTime(session.StartTime)

	records := make([]*fit.RecordMsg, 0, len(act.Records))
	for _, rec := range act.Records {
		if rec != nil && !validTime(rec.Timestamp).IsZero() {
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	if start.IsZero() && len(records) > 0 {
		start = records[0].Timestamp
	}

	points := make([]TrackPoint, 0, len(records))
	for _, rec := range records {
		points = append(points, pointFromRecord(rec, start))
	}

	laps := make([]Lap, 0, len(act.Laps))
	for i, lm := range act.Laps {
		if lm == nil {
			continue
		}
		laps = append(laps, lapFromMsg(i, lm, start, points))
	}

	return &Ride{
		Summary: summarize(session, start, points),
		Points:  points,
		Laps:    laps,
	}, nil
}

func pointFromRecord(rec *fit.RecordMsg, start time.Time) TrackPoint {
	p := TrackPoint{
		Time:    rec.Timestamp.UTC(),
		OffsetS: int(rec.Timestamp.Sub(start).Seconds()),
	}
	if lat, lng, ok := position(rec.PositionLat.Semicircles(), rec.PositionLong.Semicircles()); ok {
		p.Lat, p.Lng = training.Some(lat), training.Some(lng)
	}
	if v := firstFinite(rec.GetEnhancedAltitudeScaled(), rec.GetAltitudeScaled()); !math.IsNaN(v) {
		p.AltitudeM = training.Some(v)
	}
	if v := firstFinite(rec.GetEnhancedSpeedScaled(), rec.GetSpeedScaled()); !math.IsNaN(v) && v >= 0 {
		p.SpeedMps = training.Some(v)
	}
	if v := rec.GetDistanceScaled(); isFinite(v) && v >= 0 {
		p.DistanceM = training.Some(v)
	}
	if rec.HeartRate != math.MaxUint8 && rec.HeartRate != 0 {
		p.HeartRate = training.Some(int(rec.HeartRate))
	}
	if rec.Cadence != math.MaxUint8 {
		p.Cadence = training.Some(int(rec.Cadence))
	}
	if rec.Power != math.MaxUint16 {
		p.Power = training.Some(int(rec.Power))
	}
	return p
}

func lapFromMsg(i int, lm *fit.LapMsg, start time.Time, points []TrackPoint) Lap {
	l := Lap{Index: i}
	if t := validTime(lm.StartTime); !t.IsZero() && !start.IsZero() {
		l.StartOffsetS = int(t.Sub(start).Seconds())
	}
	if v := lm.GetTotalTimerTimeScaled(); isFinite(v) {
		l.DurationS = int(math.Round(v))
	}
	if v := lm.GetTotalDistanceScaled(); isFinite(v) {
		l.DistanceM = v
	}
	l.AvgHeartRate = heartRate(lm.AvgHeartRate)
	l.MaxHeartRate = heartRate(lm.MaxHeartRate)
	if v := firstFinite(lm.GetEnhancedAvgSpeedScaled(), lm.GetAvgSpeedScaled()); !math.IsNaN(v) {
		l.AvgSpeedMps = training.Some(v)
	}

	elev := LapElevation(pointsBetween(points, l.StartOffsetS, l.StartOffsetS+l.DurationS))
	l.ElevationGainM, l.ElevationLossM = elev.Gain, elev.Loss
	if lm.TotalAscent != math.MaxUint16 {
		l.ElevationGainM = float64(lm.TotalAscent)
	}
	if lm.TotalDescent != math.MaxUint16 {
		l.ElevationLossM = float64(lm.TotalDescent)
	}
	return l
}

func summarize(s *fit.SessionMsg, start time.Time, points []TrackPoint) Summary {
	sum := Summary{
		Start: start,
		Sport: s.Sport.String(),
	}

	if v := s.GetTotalDistanceScaled(); isFinite(v) && v > 0 {
		sum.DistanceKm = v / 1000
	} else {
		sum.DistanceKm = lastDistance(points) / 1000
	}

	if v := s.GetTotalTimerTimeScaled(); isFinite(v) && v > 0 {
		sum.MovingTime = time.Duration(v * float64(time.Second)).Round(time.Second)
	} else if n := len(points); n > 1 {
		sum.MovingTime = points[n-1].Time.Sub(points[0].Time)
	}

	if v := firstFinite(s.GetEnhancedAvgSpeedScaled(), s.GetAvgSpeedScaled()); !math.IsNaN(v) {
		sum.AvgSpeedKmh = training.Some(v * 3.6)
	} else if sum.MovingTime > 0 {
		sum.AvgSpeedKmh = training.Some(sum.DistanceKm / sum.MovingTime.Hours())
	}

	if v := firstFinite(s.GetEnhancedMaxSpeedScaled(), s.GetMaxSpeedScaled()); !math.IsNaN(v) {
		sum.MaxSpeedKmh = training.Some(v * 3.6)
	} else if max, ok := maxSpeed(points); ok {
		sum.MaxSpeedKmh = training.Some(max * 3.6)
	}

	sum.AvgHeartRate = heartRate(s.AvgHeartRate)
	sum.MaxHeartRate = heartRate(s.MaxHeartRate)
	if !sum.AvgHeartRate.Valid || !sum.MaxHeartRate.Valid {
		avg, max, ok := heartRateStats(points)
		if ok && !sum.AvgHeartRate.Valid {
			sum.AvgHeartRate = training.Some(avg)
		}
		if ok && !sum.MaxHeartRate.Valid {
			sum.MaxHeartRate = training.Some(max)
		}
	}

	if s.TotalAscent != math.MaxUint16 {
		sum.ElevationGainM = float64(s.TotalAscent)
	} else {
		sum.ElevationGainM = LapElevation(points).Gain
	}
	return sum
}

func position(lat, lng int32) (float64, float64, bool) {
	if lat == 0 || lng == 0 || lat == math.MaxInt32 || lng == math.MaxInt32 {
		return 0, 0, false
	}
	la := float64(lat) * semicirclesToDeg
	lo := float64(lng) * semicirclesToDeg
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return 0, 0, false
	}
	return la, lo, true
}

func heartRate(v uint8) training.Optional[int] {
	if v == math.MaxUint8 || v == 0 {
		return training.None[int]()
	}
	return training.Some(int(v))
}

func heartRateStats(points []TrackPoint) (avg, max int, ok bool) {
	sum, n := 0, 0
	for _, p := range points {
		hr, valid := p.HeartRate.Get()
		if !valid {
			continue
		}
		sum += hr
		n++
		if hr > max {
			max = hr
		}
	}
	if n == 0 {
		return 0, 0, false
	}
	return int(math.Round(float64(sum) / float64(n))), max, true
}

func lastDistance(points []TrackPoint) float64 {
	for i := len(points) - 1; i >= 0; i-- {
		if d, ok := points[i].DistanceM.Get(); ok {
			return d
		}
	}
	return 0
}

func maxSpeed(points []TrackPoint) (float64, bool) {
	max, found := 0.0, false
	for _, p := range points {
		if v, ok := p.SpeedMps.Get(); ok && v >= max {
			max, found = v, true
		}
	}
	return max, found
}

// pointsBetween returns the samples with from <= offset < to
func pointsBetween(points []TrackPoint, from, to int) []TrackPoint {
	lo := sort.Search(len(points), func(i int) bool { return points[i].OffsetS >= from })
	hi := sort.Search(len(points), func(i int) bool { return points[i].OffsetS >= to })
	return points[lo:hi]
}

func validTime(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}

func firstFinite(vs ...float64) float64 {
	for _, v := range vs {
		if isFinite(v) {
			return v
		}
	}
	return math.NaN()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
