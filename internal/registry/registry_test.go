package registry

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestLoadBuildsLookupsByTruckAndUnit(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	factor := 1.1
	rows := sqlmock.NewRows([]string{"truck_id", "unit_id", "capacity_gallons", "carrier_id", "refuel_factor"}).
		AddRow("truck-1", int64(101), 150.0, "carrier-a", &factor).
		AddRow("truck-2", int64(102), 200.0, "carrier-b", nil)
	mock.ExpectQuery("SELECT truck_id, unit_id, capacity_gallons, carrier_id, refuel_factor").WillReturnRows(rows)

	reg, err := Load(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Count())

	cfg, ok := reg.ByTruckID("truck-1")
	require.True(t, ok)
	assert.Equal(t, int64(101), cfg.UnitID)
	assert.Equal(t, 1.1, cfg.RefuelFactor)

	cfg2, ok := reg.ByUnitID(102)
	require.True(t, ok)
	assert.Equal(t, "truck-2", cfg2.TruckID)
	assert.Equal(t, 1.0, cfg2.RefuelFactor)

	assert.ElementsMatch(t, []int64{101, 102}, reg.UnitIDs())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRejectsEmptyRegistry(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"truck_id", "unit_id", "capacity_gallons", "carrier_id", "refuel_factor"})
	mock.ExpectQuery("SELECT truck_id, unit_id, capacity_gallons, carrier_id, refuel_factor").WillReturnRows(rows)

	_, err := Load(context.Background(), db)
	assert.Error(t, err)
}

func TestLoadPropagatesQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT truck_id, unit_id, capacity_gallons, carrier_id, refuel_factor").
		WillReturnError(assert.AnError)

	_, err := Load(context.Background(), db)
	assert.Error(t, err)
}

func TestByTruckIDAndByUnitIDMiss(t *testing.T) {
	reg := &Registry{}
	_, ok := reg.ByTruckID("missing")
	assert.False(t, ok)
	_, ok = reg.ByUnitID(999)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Count())
	assert.Empty(t, reg.All())
}
