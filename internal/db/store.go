package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/trackfit/internal/fit/l1hits"
	"github.com/banshee-data/trackfit/internal/fit/l4tracks"
	"github.com/banshee-data/trackfit/internal/fit/pipeline"
)

// Run is one fitter invocation over a set of events.
type Run struct {
	RunID            string
	CreatedUnixNanos int64
	Source           string
	ConfigJSON       string
}

// TrackRow is a stored track in the output column layout.
type TrackRow struct {
	RunID         string
	EventID       int64
	RoadIndex     int
	TrackIndex    int
	Px, Py, Pz    float64
	Pt, Eta, Phi  float64
	VX, VY, VZ    float64
	RInv          float64
	Chi2          float64
	PtConsistency float64
	NStubs        int
}

// storedDecodeErr is a road decode failure read back from input_roads.
type storedDecodeErr string

func (e storedDecodeErr) Error() string { return string(e) }
func (e storedDecodeErr) Unwrap() error { return l1hits.ErrInputMalformed }

func decodeErrColumn(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: err.Error(), Valid: true}
}

func roadDecodeErr(col sql.NullString) error {
	if !col.Valid {
		return nil
	}
	return storedDecodeErr(col.String)
}

// InsertEvents stores events as fitter input, replacing rows with the same
// event IDs. Hits are stored as given; validation is left to the fitter. A
// road's DecodeErr is kept so it is rejected again when loaded.
func (db *DB) InsertEvents(ctx context.Context, events []l1hits.Event) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ev := range events {
		if _, err := tx.ExecContext(ctx, `DELETE FROM input_hits WHERE event_id = ?`, ev.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM input_roads WHERE event_id = ?`, ev.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO input_events (event_id) VALUES (?)`, ev.ID); err != nil {
			return err
		}
		for ri, road := range ev.Roads {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO input_roads (event_id, road_index, n_hit_layers, bank_index, decode_error) VALUES (?, ?, ?, ?, ?)`,
				ev.ID, ri, road.NHitLayers, road.BankIndex, decodeErrColumn(road.DecodeErr),
			); err != nil {
				return fmt.Errorf("event %d road %d: %w", ev.ID, ri, err)
			}
			for hi, h := range road.Hits {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO input_hits (
						event_id, road_index, hit_index, x, y, z, x_err, y_err, z_err,
						charge, pt, superstrip_id
					) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					ev.ID, ri, hi, h.X, h.Y, h.Z, h.XErr, h.YErr, h.ZErr,
					h.Charge, h.Pt, h.SuperstripID,
				); err != nil {
					return fmt.Errorf("event %d road %d hit %d: %w", ev.ID, ri, hi, err)
				}
			}
		}
	}
	return tx.Commit()
}

// LoadEvents reads stored input ordered by event, road and hit. limit <= 0
// reads every event.
func (db *DB) LoadEvents(ctx context.Context, limit int) ([]l1hits.Event, error) {
	query := `SELECT event_id FROM input_events ORDER BY event_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var events []l1hits.Event
	index := map[int64]int{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		index[id] = len(events)
		events = append(events, l1hits.Event{ID: id})
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}
	last := events[len(events)-1].ID

	rows, err = db.QueryContext(ctx,
		`SELECT event_id, road_index, n_hit_layers, bank_index, decode_error
		   FROM input_roads WHERE event_id <= ? ORDER BY event_id, road_index`, last)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			id, ri  int64
			road    l1hits.Road
			decoded sql.NullString
		)
		if err := rows.Scan(&id, &ri, &road.NHitLayers, &road.BankIndex, &decoded); err != nil {
			rows.Close()
			return nil, err
		}
		road.DecodeErr = roadDecodeErr(decoded)
		if k, ok := index[id]; ok {
			events[k].Roads = append(events[k].Roads, road)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx,
		`SELECT event_id, road_index, x, y, z, x_err, y_err, z_err, charge, pt, superstrip_id
		   FROM input_hits WHERE event_id <= ? ORDER BY event_id, road_index, hit_index`, last)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id int64
			ri int
			h  l1hits.Hit
		)
		if err := rows.Scan(&id, &ri, &h.X, &h.Y, &h.Z, &h.XErr, &h.YErr, &h.ZErr, &h.Charge, &h.Pt, &h.SuperstripID); err != nil {
			return nil, err
		}
		k, ok := index[id]
		if !ok || ri >= len(events[k].Roads) {
			continue
		}
		events[k].Roads[ri].Hits = append(events[k].Roads[ri].Hits, h)
	}
	return events, rows.Err()
}

// closeRows closes a fully iterated result set, reporting an iteration
// error before a close error.
func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

// LoadEvent reads one stored event. It returns sql.ErrNoRows when the event
// was never inserted.
func (db *DB) LoadEvent(ctx context.Context, eventID int64) (l1hits.Event, error) {
	ev := l1hits.Event{ID: eventID}
	var id int64
	if err := db.QueryRowContext(ctx, `SELECT event_id FROM input_events WHERE event_id = ?`, eventID).Scan(&id); err != nil {
		return ev, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT n_hit_layers, bank_index, decode_error FROM input_roads WHERE event_id = ? ORDER BY road_index`, eventID)
	if err != nil {
		return ev, err
	}
	for rows.Next() {
		var (
			road    l1hits.Road
			decoded sql.NullString
		)
		if err := rows.Scan(&road.NHitLayers, &road.BankIndex, &decoded); err != nil {
			rows.Close()
			return ev, err
		}
		road.DecodeErr = roadDecodeErr(decoded)
		ev.Roads = append(ev.Roads, road)
	}
	if err := closeRows(rows); err != nil {
		return ev, err
	}

	rows, err = db.QueryContext(ctx,
		`SELECT road_index, x, y, z, x_err, y_err, z_err, charge, pt, superstrip_id
		   FROM input_hits WHERE event_id = ? ORDER BY road_index, hit_index`, eventID)
	if err != nil {
		return ev, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			ri int
			h  l1hits.Hit
		)
		if err := rows.Scan(&ri, &h.X, &h.Y, &h.Z, &h.XErr, &h.YErr, &h.ZErr, &h.Charge, &h.Pt, &h.SuperstripID); err != nil {
			return ev, err
		}
		if ri < len(ev.Roads) {
			ev.Roads[ri].Hits = append(ev.Roads[ri].Hits, h)
		}
	}
	return ev, rows.Err()
}

// CreateRun records a new run and returns it with a fresh run ID. cfg is
// stored as JSON for provenance.
func (db *DB) CreateRun(ctx context.Context, source string, cfg any) (*Run, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run config: %w", err)
	}
	run := &Run{
		RunID:            uuid.New().String(),
		CreatedUnixNanos: time.Now().UnixNano(),
		Source:           source,
		ConfigJSON:       string(data),
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO fit_runs (run_id, created_unix_nanos, source, config_json) VALUES (?, ?, ?, ?)`,
		run.RunID, run.CreatedUnixNanos, run.Source, run.ConfigJSON,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun returns the run with the given ID, or sql.ErrNoRows.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := db.QueryRowContext(ctx,
		`SELECT run_id, created_unix_nanos, source, config_json FROM fit_runs WHERE run_id = ?`, runID,
	).Scan(&run.RunID, &run.CreatedUnixNanos, &run.Source, &run.ConfigJSON)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, created_unix_nanos, source, config_json FROM fit_runs ORDER BY created_unix_nanos DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.CreatedUnixNanos, &r.Source, &r.ConfigJSON); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// WriteEventResults stores fitted events of a run. Each event gets exactly
// one fit_events row, including events with no tracks.
func (db *DB) WriteEventResults(ctx context.Context, runID string, results []pipeline.EventResult) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, res := range results {
		if err := writeEventResult(ctx, tx, runID, res); err != nil {
			return fmt.Errorf("event %d: %w", res.EventID, err)
		}
	}
	return tx.Commit()
}

func writeEventResult(ctx context.Context, tx *sql.Tx, runID string, res pipeline.EventResult) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO fit_events (run_id, event_id, n_roads, n_tracks) VALUES (?, ?, ?, ?)`,
		runID, res.EventID, len(res.Roads), len(res.Tracks),
	); err != nil {
		return err
	}
	roads := res.TrackRoads()
	for i, t := range res.Tracks {
		row := trackRow(runID, res.EventID, roads[i], i, t)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fit_tracks (
				run_id, event_id, road_index, track_index, px, py, pz, pt, eta, phi,
				vx, vy, vz, rinv, chi2, pt_consistency, n_stubs
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.RunID, row.EventID, row.RoadIndex, row.TrackIndex, row.Px, row.Py, row.Pz,
			row.Pt, row.Eta, row.Phi, row.VX, row.VY, row.VZ, row.RInv, row.Chi2,
			row.PtConsistency, row.NStubs,
		); err != nil {
			return err
		}
	}
	return nil
}

func trackRow(runID string, eventID int64, road, index int, t l4tracks.Track) TrackRow {
	return TrackRow{
		RunID:         runID,
		EventID:       eventID,
		RoadIndex:     road,
		TrackIndex:    index,
		Px:            t.Px,
		Py:            t.Py,
		Pz:            t.Pz,
		Pt:            t.Pt(),
		Eta:           t.Eta(),
		Phi:           t.Phi(),
		VX:            t.VX,
		VY:            t.VY,
		VZ:            t.VZ,
		RInv:          t.RInv,
		Chi2:          t.Chi2,
		PtConsistency: t.PtConsistency,
		NStubs:        t.NStubs,
	}
}

// CountEvents returns the number of fit_events rows of a run.
func (db *DB) CountEvents(ctx context.Context, runID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fit_events WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// ListTracks returns the tracks of one event of a run in output order.
func (db *DB) ListTracks(ctx context.Context, runID string, eventID int64) ([]TrackRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, event_id, road_index, track_index, px, py, pz, pt, eta, phi,
		        vx, vy, vz, rinv, chi2, pt_consistency, n_stubs
		   FROM fit_tracks WHERE run_id = ? AND event_id = ? ORDER BY track_index`,
		runID, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TrackRow
	for rows.Next() {
		var r TrackRow
		if err := rows.Scan(&r.RunID, &r.EventID, &r.RoadIndex, &r.TrackIndex, &r.Px, &r.Py, &r.Pz,
			&r.Pt, &r.Eta, &r.Phi, &r.VX, &r.VY, &r.VZ, &r.RInv, &r.Chi2, &r.PtConsistency, &r.NStubs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
