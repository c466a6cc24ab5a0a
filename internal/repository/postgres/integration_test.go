package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomsync-backend/internal/clock"
	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/repository/postgres"
	"roomsync-backend/migrations"
)

// prepareDB connects to TEST_DATABASE_URL and applies migrations. Tests that
// need a real server are skipped when it is unset.
func prepareDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	var db *sql.DB
	var err error
	// Retry connection as DB might still be starting up
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", url)
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Apply(context.Background(), db))
	return db, url
}

func seedRoom(t *testing.T, db *sql.DB, store *postgres.Store, capacity int32) *domain.Room {
	t.Helper()
	ctx := context.Background()
	var buildingID int64
	require.NoError(t, db.QueryRowContext(ctx, `INSERT INTO buildings (name) VALUES ($1) RETURNING id`, t.Name()).Scan(&buildingID))
	room := &domain.Room{BuildingID: buildingID, Number: fmt.Sprintf("R-%d", time.Now().UnixNano()), Capacity: capacity}
	require.NoError(t, store.RoomRepository.Create(ctx, room, 60))
	return room
}

func bookedSlots(t *testing.T, store *postgres.Store, roomID int64, from, to time.Time) []int32 {
	t.Helper()
	entries, err := store.LedgerRepository.GetRange(context.Background(), roomID, from, to)
	require.NoError(t, err)
	out := make([]int32, len(entries))
	for i, e := range entries {
		out[i] = e.BookedSlots
	}
	return out
}

func repeat(n int, v int32) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestIntegration_BookingLifecycle(t *testing.T) {
	db, url := prepareDB(t)
	ctx := context.Background()
	store := postgres.NewStore(db, clock.NewFixed(date(2024, time.January, 1)), "")
	room := seedRoom(t, db, store, 1)

	listener := pq.NewListener(url, time.Second, time.Second, nil)
	defer listener.Close()
	require.NoError(t, listener.Listen(postgres.DefaultNotifyChannel))

	first := &domain.Booking{RoomID: room.ID, TenantID: 7, StartDate: date(2024, time.January, 1), EndDate: datePtr(2024, time.January, 10), Status: domain.BookingStatusActive}
	require.NoError(t, store.BookingRepository.Create(ctx, first))

	got, err := store.RoomRepository.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusOccupied, got.Status)
	assert.Equal(t, repeat(10, 1), bookedSlots(t, store, room.ID, date(2024, time.January, 1), date(2024, time.January, 10)))

	ev := awaitEvent(t, listener, room.ID)
	assert.Equal(t, domain.ActionBookingCreated, ev.Action)
	assert.Equal(t, first.ID, ev.BookingID)
	assert.Equal(t, room.BuildingID, ev.BuildingID)

	second := &domain.Booking{RoomID: room.ID, TenantID: 8, StartDate: date(2024, time.January, 5), EndDate: datePtr(2024, time.January, 15), Status: domain.BookingStatusActive}
	err = store.BookingRepository.Create(ctx, second)
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, first.ID, conflict.Conflicts[0].ID)
	assert.Equal(t, repeat(10, 1), bookedSlots(t, store, room.ID, date(2024, time.January, 1), date(2024, time.January, 10)))

	cancelled := domain.BookingStatusCancelled
	_, err = store.BookingRepository.Update(ctx, first.ID, domain.BookingPatch{Status: &cancelled})
	require.NoError(t, err)

	got, err = store.RoomRepository.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusAvailable, got.Status)
	assert.Equal(t, repeat(10, 0), bookedSlots(t, store, room.ID, date(2024, time.January, 1), date(2024, time.January, 10)))

	ev = awaitEvent(t, listener, room.ID)
	assert.Equal(t, domain.ActionBookingUpdated, ev.Action)
	assert.Equal(t, domain.BookingStatusActive, ev.OldStatus)
	assert.Equal(t, domain.BookingStatusCancelled, ev.NewStatus)

	n, err := store.LedgerRepository.Rebuild(ctx, room.ID)
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Equal(t, repeat(10, 0), bookedSlots(t, store, room.ID, date(2024, time.January, 1), date(2024, time.January, 10)))
}

func TestIntegration_ConcurrentOverlapsAdmitOne(t *testing.T) {
	db, _ := prepareDB(t)
	ctx := context.Background()
	store := postgres.NewStore(db, clock.NewFixed(date(2024, time.January, 1)), "")
	room := seedRoom(t, db, store, 1)

	const writers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := &domain.Booking{
				RoomID:    room.ID,
				TenantID:  int64(100 + i),
				StartDate: date(2024, time.January, 1+i%5),
				EndDate:   datePtr(2024, time.January, 20),
				Status:    domain.BookingStatusActive,
			}
			err := store.BookingRepository.Create(ctx, b)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("writer %d: unexpected error %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)
	for _, booked := range bookedSlots(t, store, room.ID, date(2024, time.January, 5), date(2024, time.January, 20)) {
		assert.Equal(t, int32(1), booked)
	}
}

func TestIntegration_HorizonWaitsForBookingWriter(t *testing.T) {
	db, _ := prepareDB(t)
	ctx := context.Background()
	store := postgres.NewStore(db, clock.NewFixed(date(2024, time.January, 1)), "")
	room := seedRoom(t, db, store, 1)

	// Hold the room lock the way a booking writer does and commit an
	// open-ended booking only after the extension is queued behind it.
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, room.ID)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `INSERT INTO bookings (room_id, tenant_id, start_date, status) VALUES ($1, 7, $2, 'active')`,
		room.ID, date(2024, time.January, 1))
	require.NoError(t, err)

	from, through := date(2024, time.March, 2), date(2024, time.March, 10)
	type result struct {
		n   int64
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := store.LedgerRepository.ExtendHorizon(ctx, room.ID, from, through)
		done <- result{n, err}
	}()

	require.Eventually(t, func() bool {
		var waiting int
		err := db.QueryRowContext(ctx, `SELECT count(*) FROM pg_locks WHERE NOT granted AND locktype = 'transactionid'`).Scan(&waiting)
		return err == nil && waiting > 0
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, tx.Commit())

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, int64(9), res.n)
	assert.Equal(t, repeat(9, 1), bookedSlots(t, store, room.ID, from, through))
}

func awaitEvent(t *testing.T, l *pq.Listener, roomID int64) domain.ChangeEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case n := <-l.Notify:
			if n == nil {
				continue
			}
			ev, err := domain.DecodeChangeEvent(n.Extra)
			require.NoError(t, err)
			if ev.RoomID == roomID {
				return ev
			}
		case <-timeout:
			t.Fatalf("no change event for room %d", roomID)
		}
	}
}
