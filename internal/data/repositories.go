package data

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	// ErrStoreUnavailable is returned for timeouts, connection failures and an open breaker.
	ErrStoreUnavailable = errors.New("incident store unavailable")
)

// DBTX is a common interface for *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// IncidentStore is the read-only query surface the analytics core depends on.
type IncidentStore interface {
	ListIncidents(ctx context.Context, f IncidentFilter, opts ListOptions) ([]Incident, error)
	CountIncidents(ctx context.Context, f IncidentFilter) (int, error)
	GroupIncidents(ctx context.Context, f IncidentFilter, q GroupQuery) ([]GroupCount, error)
	GetCamerasByIDs(ctx context.Context, ids []string) ([]Camera, error)
	ListCameras(ctx context.Context) ([]Camera, error)
}

// Pinger is implemented by stores that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Models bundles the Postgres-backed models into an IncidentStore.
type Models struct {
	Incidents IncidentModel
	Cameras   CameraModel
	db        *sql.DB
}

func NewModels(db *sql.DB) Models {
	return Models{
		Incidents: IncidentModel{DB: db},
		Cameras:   CameraModel{DB: db},
		db:        db,
	}
}

func (m Models) ListIncidents(ctx context.Context, f IncidentFilter, opts ListOptions) ([]Incident, error) {
	return m.Incidents.List(ctx, f, opts)
}

func (m Models) CountIncidents(ctx context.Context, f IncidentFilter) (int, error) {
	return m.Incidents.Count(ctx, f)
}

func (m Models) GroupIncidents(ctx context.Context, f IncidentFilter, q GroupQuery) ([]GroupCount, error) {
	return m.Incidents.Group(ctx, f, q)
}

func (m Models) GetCamerasByIDs(ctx context.Context, ids []string) ([]Camera, error) {
	return m.Cameras.GetByIDs(ctx, ids)
}

func (m Models) ListCameras(ctx context.Context) ([]Camera, error) {
	return m.Cameras.List(ctx)
}

func (m Models) Ping(ctx context.Context) error {
	if m.db == nil {
		return errors.New("no database handle")
	}
	return m.db.PingContext(ctx)
}
