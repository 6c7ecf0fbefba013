package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/temperature-monitor/internal/weather"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- Mock Rows ---

type sampleRow struct {
	id      int64
	city    string
	country string
	temp    float64
	created time.Time
}

type sampleMockRows struct {
	data    []sampleRow
	idx     int
	closed  bool
	scanErr error
	errVal  error
}

func (r *sampleMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *sampleMockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	if r.idx >= 0 && r.idx < len(r.data) {
		row := r.data[r.idx]
		scanInto(dest, row)
		return nil
	}
	return errors.New("no current row")
}

func (r *sampleMockRows) Close()                                       { r.closed = true }
func (r *sampleMockRows) Err() error                                   { return r.errVal }
func (r *sampleMockRows) CommandTag() pgconn.CommandTag                 { return pgconn.CommandTag{} }
func (r *sampleMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *sampleMockRows) RawValues() [][]byte                           { return nil }
func (r *sampleMockRows) Values() ([]any, error)                        { return nil, nil }
func (r *sampleMockRows) Conn() *pgx.Conn                              { return nil }

func scanInto(dest []any, row sampleRow) {
	*dest[0].(*int64) = row.id
	*dest[1].(*string) = row.city
	*dest[2].(*string) = row.country
	*dest[3].(*float64) = row.temp
	*dest[4].(*time.Time) = row.created
}

// ============================================================
// Migrate / SaveSample
// ============================================================

func TestPostgresStore_Migrate(t *testing.T) {
	db := new(mockDBTX)
	s := NewPostgresStore(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "CREATE TABLE IF NOT EXISTS temperature")
	}), mock.Anything).Return(pgconn.NewCommandTag("CREATE TABLE"), nil)

	require.NoError(t, s.Migrate(ctx))
	db.AssertExpectations(t)
}

func TestPostgresStore_Migrate_DBError(t *testing.T) {
	db := new(mockDBTX)
	s := NewPostgresStore(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("permission denied"))

	err := s.Migrate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestPostgresStore_SaveSample_ReturnsID(t *testing.T) {
	db := new(mockDBTX)
	s := NewPostgresStore(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*int64) = 42
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		return len(args) == 4 && args[0] == "Moscow" && args[1] == "Russia"
	})).Return(row)

	in := sample("Moscow", "Russia", "11.00", base)
	saved, err := s.SaveSample(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(42), saved.ID)
	assert.Equal(t, "11.00", saved.Temperature.StringFixed(2))
	db.AssertExpectations(t)
}

func TestPostgresStore_SaveSample_DBError(t *testing.T) {
	db := new(mockDBTX)
	s := NewPostgresStore(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("connection refused")})

	_, err := s.SaveSample(ctx, sample("Moscow", "Russia", "1.00", base))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// ============================================================
// QueryRange
// ============================================================

func TestPostgresStore_QueryRange(t *testing.T) {
	db := new(mockDBTX)
	s := NewPostgresStore(db)
	ctx := context.Background()

	from, to := base, base.Add(24*time.Hour)
	rows := &sampleMockRows{idx: -1, data: []sampleRow{
		{id: 1, city: "Moscow", country: "Russia", temp: 10.5, created: base.Add(time.Hour)},
		{id: 2, city: "Izhevsk", country: "Russia", temp: -2.25, created: base.Add(2 * time.Hour)},
	}}
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{"Russia", "Russia", from, to}).Return(rows, nil)

	got, err := s.QueryRange(ctx, "Russia", "Russia", from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "10.50", got[0].Temperature.StringFixed(2))
	assert.Equal(t, "-2.25", got[1].Temperature.StringFixed(2))
	assert.Equal(t, "Izhevsk", got[1].City)
	assert.True(t, rows.closed)
}

func TestPostgresStore_QueryRange_Empty(t *testing.T) {
	db := new(mockDBTX)
	s := NewPostgresStore(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(&sampleMockRows{idx: -1}, nil)

	got, err := s.QueryRange(ctx, "Moscow", "Moscow", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestPostgresStore_QueryRange_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("query", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(nil, errors.New("timeout"))
		_, err := NewPostgresStore(db).QueryRange(ctx, "Moscow", "Moscow", base, base.Add(time.Hour))
		assert.ErrorContains(t, err, "timeout")
	})

	t.Run("scan", func(t *testing.T) {
		db := new(mockDBTX)
		rows := &sampleMockRows{idx: -1, data: []sampleRow{{id: 1}}, scanErr: errors.New("bad column")}
		db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)
		_, err := NewPostgresStore(db).QueryRange(ctx, "Moscow", "Moscow", base, base.Add(time.Hour))
		assert.ErrorContains(t, err, "bad column")
	})

	t.Run("iteration", func(t *testing.T) {
		db := new(mockDBTX)
		rows := &sampleMockRows{idx: -1, errVal: errors.New("conn reset")}
		db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)
		_, err := NewPostgresStore(db).QueryRange(ctx, "Moscow", "Moscow", base, base.Add(time.Hour))
		assert.ErrorContains(t, err, "conn reset")
	})
}

// ============================================================
// QueryLatest
// ============================================================

func TestPostgresStore_QueryLatest(t *testing.T) {
	db := new(mockDBTX)
	s := NewPostgresStore(db)
	ctx := context.Background()

	zone := time.FixedZone("MSK", 3*3600)
	row := &mockRow{scanFn: func(dest ...any) error {
		scanInto(dest, sampleRow{id: 7, city: "Moscow", country: "Russia", temp: 11, created: base.In(zone)})
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"Moscow", "Moscow"}).Return(row)

	got, err := s.QueryLatest(ctx, "Moscow", "Moscow")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "11.00", got.Temperature.StringFixed(2))
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
	assert.True(t, base.Equal(got.CreatedAt))
}

func TestPostgresStore_QueryLatest_NotFound(t *testing.T) {
	db := new(mockDBTX)
	s := NewPostgresStore(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := s.QueryLatest(ctx, "Berlin", "Berlin")
	assert.ErrorIs(t, err, weather.ErrNotFound)
}

func TestPostgresStore_QueryLatest_DBError(t *testing.T) {
	db := new(mockDBTX)
	s := NewPostgresStore(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(&mockRow{scanErr: errors.New("db down")})

	_, err := s.QueryLatest(ctx, "Moscow", "Moscow")
	require.Error(t, err)
	assert.NotErrorIs(t, err, weather.ErrNotFound)
}
