package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"powermesh/internal/models"
)

// InsertPowerReading appends one power sample. Rows are never mutated.
func (d *DB) InsertPowerReading(ctx context.Context, r models.PowerReading) error {
	_, err := d.pool.Exec(ctx,
		"INSERT INTO power_readings (home_id, device_id, ts, watts, voltage, current) VALUES ($1, $2, $3, $4, $5, $6)",
		r.HomeID, r.DeviceID, r.Timestamp, r.Watts, r.Voltage, r.Current)
	return err
}

// InsertEnergyReading appends one cumulative energy sample.
func (d *DB) InsertEnergyReading(ctx context.Context, r models.EnergyReading) error {
	_, err := d.pool.Exec(ctx,
		"INSERT INTO energy_readings (home_id, device_id, ts, wh_total) VALUES ($1, $2, $3, $4)",
		r.HomeID, r.DeviceID, r.Timestamp, r.WhTotal)
	return err
}

// LatestPower fetches the most recent power reading for a device.
// Returns (nil, nil) when the device has no readings.
func (d *DB) LatestPower(ctx context.Context, homeID, deviceID string) (*models.PowerReading, error) {
	var r models.PowerReading
	err := d.pool.QueryRow(ctx,
		"SELECT home_id, device_id, ts, watts, voltage, current FROM power_readings WHERE home_id = $1 AND device_id = $2 ORDER BY ts DESC LIMIT 1",
		homeID, deviceID).Scan(&r.HomeID, &r.DeviceID, &r.Timestamp, &r.Watts, &r.Voltage, &r.Current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LatestEnergy fetches the most recent energy reading for a device.
// Returns (nil, nil) when the device has no readings.
func (d *DB) LatestEnergy(ctx context.Context, homeID, deviceID string) (*models.EnergyReading, error) {
	var r models.EnergyReading
	err := d.pool.QueryRow(ctx,
		"SELECT home_id, device_id, ts, wh_total FROM energy_readings WHERE home_id = $1 AND device_id = $2 ORDER BY ts DESC LIMIT 1",
		homeID, deviceID).Scan(&r.HomeID, &r.DeviceID, &r.Timestamp, &r.WhTotal)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// PowerRange fetches power readings for a device within [from, to] ms epoch.
func (d *DB) PowerRange(ctx context.Context, homeID, deviceID string, from, to int64) ([]models.PowerReading, error) {
	rows, err := d.pool.Query(ctx,
		"SELECT home_id, device_id, ts, watts, voltage, current FROM power_readings WHERE home_id = $1 AND device_id = $2 AND ts BETWEEN $3 AND $4 ORDER BY ts",
		homeID, deviceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.PowerReading
	for rows.Next() {
		var r models.PowerReading
		if err := rows.Scan(&r.HomeID, &r.DeviceID, &r.Timestamp, &r.Watts, &r.Voltage, &r.Current); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// EnergyRange fetches energy readings for a device within [from, to] ms epoch.
func (d *DB) EnergyRange(ctx context.Context, homeID, deviceID string, from, to int64) ([]models.EnergyReading, error) {
	rows, err := d.pool.Query(ctx,
		"SELECT home_id, device_id, ts, wh_total FROM energy_readings WHERE home_id = $1 AND device_id = $2 AND ts BETWEEN $3 AND $4 ORDER BY ts",
		homeID, deviceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.EnergyReading
	for rows.Next() {
		var r models.EnergyReading
		if err := rows.Scan(&r.HomeID, &r.DeviceID, &r.Timestamp, &r.WhTotal); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// InsertAlert persists an alert.
func (d *DB) InsertAlert(ctx context.Context, a models.Alert) error {
	_, err := d.pool.Exec(ctx,
		"INSERT INTO alerts (id, home_id, device_id, ts, severity, message, type, acknowledged) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		a.ID, a.HomeID, a.DeviceID, a.Timestamp, a.Severity, a.Message, a.Type, a.Acknowledged)
	return err
}

// ListAlerts fetches alerts for a home, newest first. unackedOnly limits the
// result to unacknowledged alerts.
func (d *DB) ListAlerts(ctx context.Context, homeID string, unackedOnly bool, limit int) ([]models.Alert, error) {
	query := "SELECT id, home_id, device_id, ts, severity, message, type, acknowledged FROM alerts WHERE home_id = $1"
	if unackedOnly {
		query += " AND acknowledged = false"
	}
	query += " ORDER BY ts DESC LIMIT $2"

	rows, err := d.pool.Query(ctx, query, homeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.HomeID, &a.DeviceID, &a.Timestamp, &a.Severity, &a.Message, &a.Type, &a.Acknowledged); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert marks an alert acknowledged. Acknowledgment is the only
// permitted mutation of an alert row.
func (d *DB) AcknowledgeAlert(ctx context.Context, homeID, alertID string) error {
	tag, err := d.pool.Exec(ctx,
		"UPDATE alerts SET acknowledged = true WHERE id = $1 AND home_id = $2", alertID, homeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RollupDaily aggregates one day of readings into daily_stats for every
// device of a home: consumed Wh from the monotone energy counter and peak
// watts from power samples. Re-running for the same day overwrites.
func (d *DB) RollupDaily(ctx context.Context, homeID string, dayStart, dayEnd int64, day string) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO daily_stats (home_id, device_id, day, wh_consumed, peak_watts)
		SELECT e.home_id, e.device_id, $4,
		       MAX(e.wh_total) - MIN(e.wh_total),
		       COALESCE((SELECT MAX(p.watts) FROM power_readings p
		                 WHERE p.home_id = e.home_id AND p.device_id = e.device_id
		                   AND p.ts >= $2 AND p.ts < $3), 0)
		FROM energy_readings e
		WHERE e.home_id = $1 AND e.ts >= $2 AND e.ts < $3
		GROUP BY e.home_id, e.device_id
		ON CONFLICT (home_id, device_id, day)
		DO UPDATE SET wh_consumed = EXCLUDED.wh_consumed, peak_watts = EXCLUDED.peak_watts`,
		homeID, dayStart, dayEnd, day)
	return err
}

// DailyStats fetches aggregated daily stats for a device between two days
// (inclusive, YYYY-MM-DD).
func (d *DB) DailyStats(ctx context.Context, homeID, deviceID, fromDay, toDay string) ([]models.DailyStat, error) {
	rows, err := d.pool.Query(ctx,
		"SELECT home_id, device_id, to_char(day, 'YYYY-MM-DD'), wh_consumed, peak_watts FROM daily_stats WHERE home_id = $1 AND device_id = $2 AND day BETWEEN $3 AND $4 ORDER BY day",
		homeID, deviceID, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []models.DailyStat{}
	for rows.Next() {
		var s models.DailyStat
		if err := rows.Scan(&s.HomeID, &s.DeviceID, &s.Day, &s.WhConsumed, &s.PeakWatts); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
