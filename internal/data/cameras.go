package data

import (
	"context"
	"time"

	"github.com/lib/pq"
)

// Camera is the source of incidents. Name is expected to be unique.
type Camera struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CameraModel struct {
	DB DBTX
}

// GetByIDs fetches all cameras in ids with a single query. Unknown ids are skipped.
func (m CameraModel) GetByIDs(ctx context.Context, ids []string) ([]Camera, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, name, location, created_at, updated_at
		FROM cameras
		WHERE id = ANY($1)
		ORDER BY name ASC, id ASC`

	return m.query(ctx, query, pq.Array(ids))
}

func (m CameraModel) List(ctx context.Context) ([]Camera, error) {
	query := `
		SELECT id, name, location, created_at, updated_at
		FROM cameras
		ORDER BY name ASC, id ASC`

	return m.query(ctx, query)
}

func (m CameraModel) query(ctx context.Context, query string, args ...any) ([]Camera, error) {
	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cams []Camera
	for rows.Next() {
		var c Camera
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cams = append(cams, c)
	}
	return cams, rows.Err()
}
