package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var incidentCols = []string{
	"id", "camera_id", "type", "ts_start", "ts_end", "thumbnail_url",
	"resolved", "created_at", "updated_at",
	"id", "name", "location", "created_at", "updated_at",
}

func TestIncidentModel_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := IncidentModel{DB: db}
	ts := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(incidentCols).
		AddRow("inc-1", "cam-1", "Gun Threat", ts, ts.Add(time.Minute), nil, false, ts, ts,
			"cam-1", "Vault", "Basement", ts, ts)

	mock.ExpectQuery(`FROM incidents i\s+LEFT JOIN cameras c ON c.id = i.camera_id WHERE i.resolved = \$1 AND i.camera_id = \$2\s+ORDER BY i.ts_start DESC, i.id ASC LIMIT \$3`).
		WithArgs(false, "cam-1", 5).
		WillReturnRows(rows)

	out, err := m.List(context.Background(), IncidentFilter{Resolved: Bool(false), CameraID: "cam-1"}, ListOptions{Limit: 5, WithCamera: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, TypeGunThreat, out[0].Type)
	require.NotNil(t, out[0].Camera)
	assert.Equal(t, "Vault", out[0].Camera.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentModel_List_TypeOrCamera(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := IncidentModel{DB: db}
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`\(i.type = ANY\(\$1\) OR i.camera_id = ANY\(\$2\)\) AND i.ts_start >= \$3`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), from).
		WillReturnRows(sqlmock.NewRows(incidentCols))

	out, err := m.List(context.Background(), IncidentFilter{
		TypeOrCamera: &TypeOrCamera{Types: []IncidentType{TypeGunThreat}, CameraIDs: []string{"cam-2"}},
		TsStartGte:   &from,
	}, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentModel_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := IncidentModel{DB: db}
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM incidents WHERE resolved = \$1`).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	n, err := m.Count(context.Background(), IncidentFilter{Resolved: Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, 21, n)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM incidents$`).
		WillReturnError(errors.New("connection refused"))
	_, err = m.Count(context.Background(), IncidentFilter{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentModel_Group_Having(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := IncidentModel{DB: db}
	mock.ExpectQuery(`SELECT camera_id, COUNT\(\*\) AS n FROM incidents WHERE resolved = \$1 GROUP BY camera_id HAVING COUNT\(\*\) >= \$2 ORDER BY n DESC, camera_id ASC`).
		WithArgs(false, 3).
		WillReturnRows(sqlmock.NewRows([]string{"camera_id", "n"}).AddRow("cam-1", 4).AddRow("cam-2", 3))

	out, err := m.Group(context.Background(), IncidentFilter{Resolved: Bool(false)}, GroupQuery{Key: GroupByCamera, MinCount: 3})
	require.NoError(t, err)
	assert.Equal(t, []GroupCount{{Key: "cam-1", Count: 4}, {Key: "cam-2", Count: 3}}, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentModel_Group_BadKey(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = IncidentModel{DB: db}.Group(context.Background(), IncidentFilter{}, GroupQuery{Key: "location"})
	assert.Error(t, err)
}

func TestCameraModel_GetByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := CameraModel{DB: db}
	ts := time.Now()

	// Empty input never hits the database.
	out, err := m.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	mock.ExpectQuery(`FROM cameras\s+WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "created_at", "updated_at"}).
			AddRow("cam-1", "Entrance", "Lobby", ts, ts))

	out, err = m.GetByIDs(context.Background(), []string{"cam-1", "cam-9"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Lobby", out[0].Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentType_Valid(t *testing.T) {
	for _, ty := range IncidentTypes {
		assert.True(t, ty.Valid(), ty)
	}
	assert.False(t, IncidentType("Loitering").Valid())
	assert.Len(t, IncidentTypes, 6)
}
