package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

type IncidentType string

const (
	TypeUnauthorisedAccess IncidentType = "Unauthorised Access"
	TypeGunThreat          IncidentType = "Gun Threat"
	TypeFaceRecognised     IncidentType = "Face Recognised"
	TypeSuspiciousActivity IncidentType = "Suspicious Activity"
	TypePerimeterBreach    IncidentType = "Perimeter Breach"
	TypeEquipmentTampering IncidentType = "Equipment Tampering"
)

// IncidentTypes is the closed set, in declaration order.
var IncidentTypes = []IncidentType{
	TypeUnauthorisedAccess,
	TypeGunThreat,
	TypeFaceRecognised,
	TypeSuspiciousActivity,
	TypePerimeterBreach,
	TypeEquipmentTampering,
}

func (t IncidentType) Valid() bool {
	for _, v := range IncidentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Incident is a single detection event raised by a camera.
// UpdatedAt doubles as the resolution timestamp for resolved incidents.
type Incident struct {
	ID           string       `json:"id"`
	CameraID     string       `json:"cameraId"`
	Type         IncidentType `json:"type"`
	TsStart      time.Time    `json:"tsStart"`
	TsEnd        time.Time    `json:"tsEnd"`
	ThumbnailURL string       `json:"thumbnailUrl,omitempty"`
	Resolved     bool         `json:"resolved"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	Camera       *Camera      `json:"camera,omitempty"`
}

// ResolutionTime is UpdatedAt - TsStart. Only meaningful when Resolved.
func (i Incident) ResolutionTime() time.Duration {
	return i.UpdatedAt.Sub(i.TsStart)
}

// TypeOrCamera matches incidents whose type is in Types OR whose camera is in CameraIDs.
type TypeOrCamera struct {
	Types     []IncidentType
	CameraIDs []string
}

// IncidentFilter is a conjunction of the non-zero fields.
type IncidentFilter struct {
	Resolved     *bool
	CameraID     string
	Type         IncidentType
	Types        []IncidentType
	TypeOrCamera *TypeOrCamera
	TsStartGte   *time.Time
	TsStartLte   *time.Time
}

// ListOptions controls paging. Results are always ordered by TsStart descending.
// A zero Limit means unbounded.
type ListOptions struct {
	Limit      int
	Offset     int
	WithCamera bool
}

type GroupKey string

const (
	GroupByType   GroupKey = "type"
	GroupByCamera GroupKey = "camera_id"
)

// GroupQuery drops groups with fewer than MinCount rows when MinCount > 0.
type GroupQuery struct {
	Key      GroupKey
	MinCount int
}

type GroupCount struct {
	Key   string
	Count int
}

func Bool(b bool) *bool { return &b }

func Time(t time.Time) *time.Time { return &t }

func typeStrings(ts []IncidentType) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}

// buildWhere renders f as a WHERE clause with placeholders starting at $1.
func buildWhere(f IncidentFilter, prefix string) (string, []any) {
	var conds []string
	var args []any
	idx := 1

	add := func(cond string, arg any) {
		conds = append(conds, fmt.Sprintf(cond, prefix, idx))
		args = append(args, arg)
		idx++
	}

	if f.Resolved != nil {
		add("%sresolved = $%d", *f.Resolved)
	}
	if f.CameraID != "" {
		add("%scamera_id = $%d", f.CameraID)
	}
	if f.Type != "" {
		add("%stype = $%d", string(f.Type))
	}
	if len(f.Types) > 0 {
		add("%stype = ANY($%d)", pq.Array(typeStrings(f.Types)))
	}
	if f.TypeOrCamera != nil {
		cond := fmt.Sprintf("(%stype = ANY($%d) OR %scamera_id = ANY($%d))", prefix, idx, prefix, idx+1)
		conds = append(conds, cond)
		args = append(args, pq.Array(typeStrings(f.TypeOrCamera.Types)), pq.Array(f.TypeOrCamera.CameraIDs))
		idx += 2
	}
	if f.TsStartGte != nil {
		add("%sts_start >= $%d", *f.TsStartGte)
	}
	if f.TsStartLte != nil {
		add("%sts_start <= $%d", *f.TsStartLte)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type IncidentModel struct {
	DB DBTX
}

// List returns incidents matching f ordered by ts_start desc, id asc.
func (m IncidentModel) List(ctx context.Context, f IncidentFilter, opts ListOptions) ([]Incident, error) {
	where, args := buildWhere(f, "i.")

	q := `
		SELECT i.id, i.camera_id, i.type, i.ts_start, i.ts_end, i.thumbnail_url,
		       i.resolved, i.created_at, i.updated_at,
		       c.id, c.name, c.location, c.created_at, c.updated_at
		FROM incidents i
		LEFT JOIN cameras c ON c.id = i.camera_id` + where + `
		ORDER BY i.ts_start DESC, i.id ASC`

	idx := len(args) + 1
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, opts.Limit)
		idx++
	}
	if opts.Offset > 0 {
		q += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, opts.Offset)
	}

	rows, err := m.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Incident
	for rows.Next() {
		var i Incident
		var thumb sql.NullString
		var camID, camName, camLoc sql.NullString
		var camCreated, camUpdated pq.NullTime
		if err := rows.Scan(
			&i.ID, &i.CameraID, &i.Type, &i.TsStart, &i.TsEnd, &thumb,
			&i.Resolved, &i.CreatedAt, &i.UpdatedAt,
			&camID, &camName, &camLoc, &camCreated, &camUpdated,
		); err != nil {
			return nil, err
		}
		if thumb.Valid {
			i.ThumbnailURL = thumb.String
		}
		if opts.WithCamera && camID.Valid {
			i.Camera = &Camera{
				ID:        camID.String,
				Name:      camName.String,
				Location:  camLoc.String,
				CreatedAt: camCreated.Time,
				UpdatedAt: camUpdated.Time,
			}
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m IncidentModel) Count(ctx context.Context, f IncidentFilter) (int, error) {
	where, args := buildWhere(f, "")
	q := `SELECT COUNT(*) FROM incidents` + where

	var n int
	if err := m.DB.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Group counts incidents per key, count desc then key asc.
func (m IncidentModel) Group(ctx context.Context, f IncidentFilter, gq GroupQuery) ([]GroupCount, error) {
	var col string
	switch gq.Key {
	case GroupByType:
		col = "type"
	case GroupByCamera:
		col = "camera_id"
	default:
		return nil, fmt.Errorf("unsupported group key %q", gq.Key)
	}

	where, args := buildWhere(f, "")
	q := fmt.Sprintf(`SELECT %s, COUNT(*) AS n FROM incidents%s GROUP BY %s`, col, where, col)
	if gq.MinCount > 0 {
		q += fmt.Sprintf(" HAVING COUNT(*) >= $%d", len(args)+1)
		args = append(args, gq.MinCount)
	}
	q += fmt.Sprintf(" ORDER BY n DESC, %s ASC", col)

	rows, err := m.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupCount
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
