package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/sholl.report/internal/monitoring"
	"github.com/banshee-data/sholl.report/internal/sholl"
	"github.com/banshee-data/sholl.report/internal/timeutil"
)

// ErrProfileNotFound is returned when no profile has the requested id.
var ErrProfileNotFound = errors.New("profile not found")

// StoredProfile is a profile together with its storage metadata.
type StoredProfile struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Profile   *sholl.Profile `json:"profile"`
}

// ProfileSummary is the listing view of a stored profile; entries are not
// loaded.
type ProfileSummary struct {
	ID           string        `json:"id"`
	Identifier   string        `json:"identifier"`
	Dimensions   int           `json:"dimensions"`
	Center       sholl.Point3D `json:"center"`
	StepSize     float64       `json:"step_size"`
	SampleCount  int           `json:"sample_count"`
	MaxCrossings int           `json:"max_crossings"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ProfileStore reads and writes profiles.
type ProfileStore struct {
	db    *DB
	clock timeutil.Clock
}

// NewProfileStore returns a store backed by db.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db, clock: timeutil.RealClock{}}
}

// Insert stores a profile and its entries in one transaction and returns
// the generated id.
func (s *ProfileStore) Insert(p *sholl.Profile) (string, error) {
	if p == nil {
		return "", fmt.Errorf("cannot store nil profile")
	}

	var calJSON sql.NullString
	if p.Calibration != nil {
		b, err := json.Marshal(p.Calibration)
		if err != nil {
			return "", fmt.Errorf("failed to encode calibration: %w", err)
		}
		calJSON = sql.NullString{String: string(b), Valid: true}
	}
	props := p.Properties
	if props == nil {
		props = map[string]string{}
	}
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("failed to encode properties: %w", err)
	}

	id := uuid.New().String()
	created := s.clock.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sholl_profiles (
			profile_id, identifier, dimensions, center_x, center_y, center_z,
			step_size, calibration_json, properties_json, sample_count,
			max_crossings, created_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Identifier, p.Dimensions, p.Center.X, p.Center.Y, p.Center.Z,
		p.StepSize, calJSON, string(propsJSON), p.Size(),
		p.MaxCrossings(), created.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert profile: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO sholl_profile_entries (profile_id, sample_index, radius, crossings)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range p.Entries {
		if _, err := stmt.Exec(id, i, e.Radius, e.Crossings); err != nil {
			return "", fmt.Errorf("failed to insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit profile: %w", err)
	}
	monitoring.Logf("stored profile %s (%s, %d samples)", id, p.Identifier, p.Size())
	return id, nil
}

// Get loads a profile and all its entries.
func (s *ProfileStore) Get(id string) (*StoredProfile, error) {
	var (
		p         sholl.Profile
		calJSON   sql.NullString
		propsJSON string
		created   int64
	)
	err := s.db.QueryRow(`
		SELECT identifier, dimensions, center_x, center_y, center_z, step_size,
		       calibration_json, properties_json, created_unix_nanos
		FROM sholl_profiles WHERE profile_id = ?`, id,
	).Scan(&p.Identifier, &p.Dimensions, &p.Center.X, &p.Center.Y, &p.Center.Z,
		&p.StepSize, &calJSON, &propsJSON, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	if calJSON.Valid {
		p.Calibration = &sholl.Calibration{}
		if err := json.Unmarshal([]byte(calJSON.String), p.Calibration); err != nil {
			return nil, fmt.Errorf("failed to decode calibration: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(propsJSON), &p.Properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT radius, crossings FROM sholl_profile_entries
		WHERE profile_id = ? ORDER BY sample_index`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e sholl.ProfileEntry
		if err := rows.Scan(&e.Radius, &e.Crossings); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		p.Entries = append(p.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return &StoredProfile{ID: id, CreatedAt: time.Unix(0, created).UTC(), Profile: &p}, nil
}

// List returns summaries of stored profiles, newest first. A non-empty
// identifier restricts the listing to that structure.
func (s *ProfileStore) List(identifier string, limit int) ([]ProfileSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT profile_id, identifier, dimensions, center_x, center_y, center_z,
		       step_size, sample_count, max_crossings, created_unix_nanos
		FROM sholl_profiles`
	args := []any{}
	if identifier != "" {
		query += " WHERE identifier = ?"
		args = append(args, identifier)
	}
	query += " ORDER BY created_unix_nanos DESC, profile_id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	summaries := []ProfileSummary{}
	for rows.Next() {
		var ps ProfileSummary
		var created int64
		if err := rows.Scan(&ps.ID, &ps.Identifier, &ps.Dimensions,
			&ps.Center.X, &ps.Center.Y, &ps.Center.Z, &ps.StepSize,
			&ps.SampleCount, &ps.MaxCrossings, &created); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		ps.CreatedAt = time.Unix(0, created).UTC()
		summaries = append(summaries, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return summaries, nil
}

// Delete removes a profile and its entries.
func (s *ProfileStore) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM sholl_profiles WHERE profile_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return nil
}
