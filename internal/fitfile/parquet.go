package fitfile

import (
	"fmt"
	"io"
	"math"
	"time"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/briangreenhill/ridestats/internal/training"
)

type pointRow struct {
	TSUTCISO  string  `parquet:"name=ts_utc_iso, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	OffsetS   int64   `parquet:"name=offset_s, type=INT64"`
	Lat       float64 `parquet:"name=lat, type=DOUBLE"`
	Lng       float64 `parquet:"name=lng, type=DOUBLE"`
	AltitudeM float64 `parquet:"name=altitude_m, type=DOUBLE"`
	SpeedMPS  float64 `parquet:"name=speed_mps, type=DOUBLE"`
	DistanceM float64 `parquet:"name=distance_m, type=DOUBLE"`
	HRBPM     int32   `parquet:"name=hr_bpm, type=INT32"`
	CadRPM    int32   `parquet:"name=cadence_rpm, type=INT32"`
	PowerW    int32   `parquet:"name=power_w, type=INT32"`
	ValidHR   bool    `parquet:"name=valid_hr, type=BOOLEAN"`
	ValidCad  bool    `parquet:"name=valid_cadence, type=BOOLEAN"`
	ValidPow  bool    `parquet:"name=valid_power, type=BOOLEAN"`
}

// WriteParquet writes points as a snappy-compressed parquet file.
// Missing float values are NaN, missing integer values are flagged by the valid_* columns.
func WriteParquet(w io.Writer, points []TrackPoint) error {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(pointRow), 4)
	if err != nil {
		return fmt.Errorf("parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, p := range points {
		if err := pw.Write(rowFromPoint(p)); err != nil {
			_ = pw.WriteStop()
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet: %w", err)
	}
	if err := fw.Close(); err != nil {
		return err
	}
	_, err = w.Write(fw.Bytes())
	return err
}

func rowFromPoint(p TrackPoint) pointRow {
	hr, validHR := p.HeartRate.Get()
	cad, validCad := p.Cadence.Get()
	pow, validPow := p.Power.Get()
	return pointRow{
		TSUTCISO:  p.Time.UTC().Format(time.RFC3339),
		OffsetS:   int64(p.OffsetS),
		Lat:       valueOrNaN(p.Lat),
		Lng:       valueOrNaN(p.Lng),
		AltitudeM: valueOrNaN(p.AltitudeM),
		SpeedMPS:  valueOrNaN(p.SpeedMps),
		DistanceM: valueOrNaN(p.DistanceM),
		HRBPM:     int32(hr),
		CadRPM:    int32(cad),
		PowerW:    int32(pow),
		ValidHR:   validHR,
		ValidCad:  validCad,
		ValidPow:  validPow,
	}
}

func valueOrNaN(v training.Optional[float64]) float64 {
	return v.Or(math.NaN())
}
