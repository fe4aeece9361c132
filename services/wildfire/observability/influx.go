// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// tickMeasurement is the InfluxDB measurement name for per-tick telemetry.
const tickMeasurement = "fire_ticks"

// TickRecord is one tick's telemetry and pipeline outcome, written as a
// single time-series point.
type TickRecord struct {
	Telemetry datatypes.RawTelemetry
	Physics   datatypes.ComputedPhysics
	WindSpeed float64
	WindDir   datatypes.WindDirection
	Attempts  int
	Fallback  bool
	Duration  time.Duration
}

// InfluxRecorder writes per-tick records to InfluxDB for long-horizon
// dashboards. Prometheus covers rates and latency; this series keeps the
// physics trajectory queryable per incident.
//
// # Thread Safety
//
// Safe for concurrent use; the blocking write API serializes internally.
type InfluxRecorder struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

// NewInfluxRecorder connects to InfluxDB with the given credentials.
func NewInfluxRecorder(url, token, org, bucket string) *InfluxRecorder {
	client := influxdb2.NewClient(url, token)
	return &InfluxRecorder{
		client: client,
		write:  client.WriteAPIBlocking(org, bucket),
	}
}

// RecordTick writes one tick point.
func (r *InfluxRecorder) RecordTick(ctx context.Context, rec TickRecord) error {
	p := influxdb2.NewPoint(
		tickMeasurement,
		map[string]string{
			"wind_direction": string(rec.WindDir),
			"threat":         string(rec.Physics.BaselineThreat),
		},
		map[string]interface{}{
			"step":                rec.Telemetry.Step,
			"active_cells":        rec.Telemetry.ActiveCells,
			"destroyed_cells":     rec.Telemetry.DestroyedCells,
			"wind_speed":          rec.WindSpeed,
			"base_velocity":       rec.Physics.BaseVelocity,
			"velocity_multiplier": rec.Physics.VelocityMultiplier,
			"effective_velocity":  rec.Physics.EffectiveVelocity,
			"critical_exposures":  len(rec.Physics.CriticalExposures),
			"attempts":            rec.Attempts,
			"fallback":            rec.Fallback,
			"duration_ms":         rec.Duration.Milliseconds(),
		},
		time.Now().UTC(),
	)
	if err := r.write.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write tick point: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *InfluxRecorder) Close() {
	r.client.Close()
}
