package fitfile

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/briangreenhill/ridestats/internal/training"
)

var rideStart = time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)

func hrPoints(start time.Time, step time.Duration, hrs ...int) []TrackPoint {
	points := make([]TrackPoint, len(hrs))
	for i, hr := range hrs {
		points[i] = TrackPoint{
			Time:      start.Add(time.Duration(i) * step),
			OffsetS:   int(time.Duration(i) * step / time.Second),
			HeartRate: training.Some(hr),
		}
	}
	return points
}

func altitudePoints(alts ...float64) []TrackPoint {
	points := make([]TrackPoint, len(alts))
	for i, a := range alts {
		points[i] = TrackPoint{OffsetS: i}
		if !math.IsNaN(a) {
			points[i].AltitudeM = training.Some(a)
		}
	}
	return points
}

func buildActivity(t *testing.T) (*fit.File, *fit.ActivityFile) {
	t.Helper()

	file, err := fit.NewFile(fit.FileTypeActivity, fit.NewHeader(fit.V20, true))
	require.NoError(t, err)
	act, err := file.Activity()
	require.NoError(t, err)

	session := fit.NewSessionMsg()
	session.StartTime = rideStart
	session.Timestamp = rideStart.Add(time.Hour)
	session.Sport = fit.SportCycling
	session.TotalTimerTime = 3600 * 1000
	session.TotalDistance = 30000 * 100
	session.TotalAscent = 250
	session.AvgHeartRate = 140
	session.MaxHeartRate = 175
	act.Sessions = append(act.Sessions, session)

	// records are appended out of order on purpose
	for _, i := range []int{2, 0, 1} {
		rec := fit.NewRecordMsg()
		rec.Timestamp = rideStart.Add(time.Duration(i) * time.Second)
		rec.HeartRate = uint8(130 + i)
		rec.Distance = uint32(i * 8 * 100)
		act.Records = append(act.Records, rec)
	}
	noHR := fit.NewRecordMsg()
	noHR.Timestamp = rideStart.Add(3 * time.Second)
	act.Records = append(act.Records, noHR)

	lap := fit.NewLapMsg()
	lap.StartTime = rideStart
	lap.Timestamp = rideStart.Add(time.Hour)
	lap.TotalTimerTime = 3600 * 1000
	lap.TotalDistance = 30000 * 100
	lap.AvgHeartRate = 140
	act.Laps = append(act.Laps, lap)

	return file, act
}

func TestFromActivity(t *testing.T) {
	_, act := buildActivity(t)

	ride, err := FromActivity(act)
	require.NoError(t, err)

	s := ride.Summary
	assert.Equal(t, rideStart, s.Start)
	assert.InDelta(t, 30.0, s.DistanceKm, 1e-9)
	assert.Equal(t, time.Hour, s.MovingTime)
	assert.InDelta(t, 30.0, s.AvgSpeedKmh.Or(0), 1e-9)
	assert.Equal(t, training.Some(140), s.AvgHeartRate)
	assert.Equal(t, training.Some(175), s.MaxHeartRate)
	assert.Equal(t, 250.0, s.ElevationGainM)

	require.Len(t, ride.Points, 4)
	for i, p := range ride.Points {
		assert.Equal(t, i, p.OffsetS)
	}
	assert.Equal(t, training.Some(130), ride.Points[0].HeartRate)
	assert.InDelta(t, 16.0, ride.Points[2].DistanceM.Or(0), 1e-9)
	assert.False(t, ride.Points[3].HeartRate.Valid)
	assert.False(t, ride.Points[3].Lat.Valid)
	assert.False(t, ride.Points[3].Power.Valid)

	require.Len(t, ride.Laps, 1)
	assert.Equal(t, 3600, ride.Laps[0].DurationS)
	assert.Equal(t, 30000.0, ride.Laps[0].DistanceM)
	assert.Equal(t, training.Some(140), ride.Laps[0].AvgHeartRate)
	assert.False(t, ride.Laps[0].MaxHeartRate.Valid)
}

func TestFromActivityFallsBackToSamples(t *testing.T) {
	_, act := buildActivity(t)
	s := act.Sessions[0]
	s.AvgHeartRate = math.MaxUint8
	s.MaxHeartRate = math.MaxUint8
	s.TotalDistance = math.MaxUint32
	s.TotalAscent = math.MaxUint16

	ride, err := FromActivity(act)
	require.NoError(t, err)
	assert.Equal(t, training.Some(131), ride.Summary.AvgHeartRate)
	assert.Equal(t, training.Some(132), ride.Summary.MaxHeartRate)
	assert.InDelta(t, 0.016, ride.Summary.DistanceKm, 1e-9)
	assert.Equal(t, 0.0, ride.Summary.ElevationGainM)
}

func TestFromActivityWithoutSession(t *testing.T) {
	_, err := FromActivity(&fit.ActivityFile{})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestDecodeRoundTrip(t *testing.T) {
	file, _ := buildActivity(t)

	var buf bytes.Buffer
	require.NoError(t, fit.Encode(&buf, file, binary.LittleEndian))

	ride, err := Decode(&buf)
	require.NoError(t, err)
	assert.Len(t, ride.Points, 4)
	assert.InDelta(t, 30.0, ride.Summary.DistanceKm, 1e-9)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a fit file")))
	assert.Error(t, err)
}

func TestPosition(t *testing.T) {
	lat, lng, ok := position(614418932, -1431655)
	require.True(t, ok)
	assert.InDelta(t, 51.5, lat, 1e-6)
	assert.InDelta(t, -0.12, lng, 1e-6)

	_, _, ok = position(0, 100)
	assert.False(t, ok)
	_, _, ok = position(math.MaxInt32, math.MaxInt32)
	assert.False(t, ok)
}

func TestComputeZones(t *testing.T) {
	// max 200: 100 is Z1, 130 Z2, 150 Z3, 170 Z4, 190 Z5
	hrs := []int{}
	for i := 0; i < 60; i++ {
		hrs = append(hrs, 100)
	}
	for i := 0; i < 30; i++ {
		hrs = append(hrs, 190)
	}
	hrs = append(hrs, 130, 150, 170)
	points := hrPoints(rideStart, time.Second, hrs...)

	zones, err := ComputeZones(points, 200)
	require.NoError(t, err)
	assert.Equal(t, "0:01:00", zones.Zone1)
	assert.Equal(t, "0:00:01", zones.Zone2)
	assert.Equal(t, "0:00:01", zones.Zone3)
	// the last sample has no successor
	assert.Equal(t, "0:00:00", zones.Zone4)
	assert.Equal(t, "0:00:30", zones.Zone5)
}

func TestComputeZonesCapsGaps(t *testing.T) {
	points := hrPoints(rideStart, 5*time.Minute, 150, 150, 150)
	zones, err := ComputeZones(points, 200)
	require.NoError(t, err)
	assert.Equal(t, "0:00:20", zones.Zone3)
}

func TestComputeZonesRequiresMax(t *testing.T) {
	_, err := ComputeZones(hrPoints(rideStart, time.Second, 120, 130), 0)
	assert.ErrorIs(t, err, ErrNoMaxHeartRate)
}

func TestLapElevation(t *testing.T) {
	e := LapElevation(altitudePoints(100, 105, math.NaN(), 103, 110, 90))
	assert.Equal(t, Elevation{Gain: 12, Loss: 22, Net: -10}, e)

	assert.Equal(t, Elevation{}, LapElevation(nil))
	assert.Equal(t, Elevation{}, LapElevation(altitudePoints(math.NaN(), 100)))
}

func TestPointsBetween(t *testing.T) {
	points := altitudePoints(1, 2, 3, 4, 5)
	assert.Len(t, pointsBetween(points, 1, 3), 2)
	assert.Len(t, pointsBetween(points, 10, 20), 0)
	assert.Len(t, pointsBetween(points, 0, 100), 5)
}

func TestWriteParquet(t *testing.T) {
	points := hrPoints(rideStart, time.Second, 120, 125, 130)
	points[1].AltitudeM = training.Some(42.0)

	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, points))
	require.Greater(t, buf.Len(), 8)
	assert.Equal(t, "PAR1", string(buf.Bytes()[:4]))

	pr, err := reader.NewParquetReader(parquetbuffer.NewBufferFileFromBytes(buf.Bytes()), new(pointRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.Equal(t, int64(3), pr.GetNumRows())
	rows := make([]pointRow, 3)
	require.NoError(t, pr.Read(&rows))
	assert.Equal(t, int32(125), rows[1].HRBPM)
	assert.True(t, rows[1].ValidHR)
	assert.False(t, rows[1].ValidPow)
	assert.Equal(t, 42.0, rows[1].AltitudeM)
	assert.True(t, math.IsNaN(rows[0].AltitudeM))
}
