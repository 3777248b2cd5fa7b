package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	items  []model.Appointment

	// hideConflicts makes FindConflict miss, simulating a concurrent insert that lands
	// between the check and the write.
	hideConflicts bool
	failWith      error
}

func (r *fakeRepo) Insert(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	for _, it := range r.items {
		if it.Date.Equal(a.Date) && it.Time == a.Time {
			return model.ErrSlotTaken
		}
	}
	r.nextID++
	a.ID = r.nextID
	r.items = append(r.items, *a)
	return nil
}

func (r *fakeRepo) FindConflict(_ context.Context, date time.Time, at model.TimeOfDay) (model.Appointment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return model.Appointment{}, false, r.failWith
	}
	if r.hideConflicts {
		return model.Appointment{}, false, nil
	}
	for _, it := range r.items {
		if it.Date.Equal(date) && it.Time == at {
			return it, true, nil
		}
	}
	return model.Appointment{}, false, nil
}

func (r *fakeRepo) FindByID(_ context.Context, id int64) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ID == id {
			return it, nil
		}
	}
	return model.Appointment{}, model.ErrNotFound
}

func (r *fakeRepo) FindLatestByEmail(_ context.Context, email string) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return model.Appointment{}, r.failWith
	}
	var (
		best  model.Appointment
		found bool
	)
	for _, it := range r.items {
		if it.Email != email {
			continue
		}
		if !found || it.CreatedAt.After(best.CreatedAt) || (it.CreatedAt.Equal(best.CreatedAt) && it.ID > best.ID) {
			best, found = it, true
		}
	}
	if !found {
		return model.Appointment{}, model.ErrNotFound
	}
	return best, nil
}

func (r *fakeRepo) FindByIDAndEmail(_ context.Context, id int64, email string) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ID == id && it.Email == email {
			return it, nil
		}
	}
	return model.Appointment{}, model.ErrNotFound
}

func (r *fakeRepo) ListByDate(_ context.Context, date time.Time) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Appointment
	for _, it := range r.items {
		if it.Date.Equal(date) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

var testNow = time.Date(2025, 2, 20, 8, 30, 0, 0, time.UTC)

func newTestService(repo Repository) (*Service, *clock.Manual) {
	clk := clock.NewManual(testNow)
	hours := availability.Hours{Open: model.TimeOfDay{Hour: 9}, Close: model.TimeOfDay{Hour: 12}, Step: time.Hour}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, clk, hours, logger, nil), clk
}

func alice() Submission {
	return Submission{
		Name:    "Alice",
		Email:   "alice@example.com",
		Phone:   "555-0100",
		Service: "Consultation",
		Date:    "2025-03-01",
		Time:    "09:00",
	}
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo)

	sub := alice()
	sub.Name = "  Alice  "
	sub.Message = " please call first "
	appt, err := svc.Book(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, int64(1), appt.ID)
	assert.Equal(t, "Alice", appt.Name)
	assert.Equal(t, "please call first", appt.Message)
	assert.Equal(t, model.StatusPending, appt.Status)
	assert.False(t, appt.CreatedAt.Before(testNow))
	assert.Equal(t, "2025-03-01", appt.DateString())
	assert.Equal(t, "09:00", appt.Time.String())
}

func TestBookRejectsSecondBookingForSameSlot(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Book(ctx, alice())
	require.NoError(t, err)

	bob := alice()
	bob.Name, bob.Email = "Bob", "bob@example.com"
	_, err = svc.Book(ctx, bob)

	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, model.ErrSlotTaken)
	assert.Equal(t, "09:00", cerr.Time.String())
	assert.Len(t, repo.items, 1)
}

func TestBookMapsInsertRaceToConflict(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Book(ctx, alice())
	require.NoError(t, err)

	repo.hideConflicts = true
	_, err = svc.Book(ctx, alice())

	var cerr *ConflictError
	assert.ErrorAs(t, err, &cerr)
	assert.Len(t, repo.items, 1)
}

func TestBookInputErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Submission)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "missing phone",
			mutate: func(s *Submission) { s.Phone = "   " },
			check: func(t *testing.T, err error) {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "phone", verr.Field)
			},
		},
		{
			name:   "name too long",
			mutate: func(s *Submission) { s.Name = string(make([]byte, 101)) },
			check: func(t *testing.T, err error) {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "name", verr.Field)
			},
		},
		{
			name:   "bad date",
			mutate: func(s *Submission) { s.Date = "03/01/2025" },
			check: func(t *testing.T, err error) {
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, "date", perr.Field)
			},
		},
		{
			name:   "bad time",
			mutate: func(s *Submission) { s.Time = "9am" },
			check: func(t *testing.T, err error) {
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, "time", perr.Field)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{}
			svc, _ := newTestService(repo)
			sub := alice()
			tc.mutate(&sub)

			_, err := svc.Book(context.Background(), sub)
			tc.check(t, err)
			assert.Empty(t, repo.items)
		})
	}
}

func TestBookStoreFailure(t *testing.T) {
	repo := &fakeRepo{failWith: errors.New("disk full")}
	svc, _ := newTestService(repo)

	_, err := svc.Book(context.Background(), alice())
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.EqualError(t, errors.Unwrap(err), "disk full")
}

func TestConfirmation(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo)
	ctx := context.Background()

	appt, err := svc.Book(ctx, alice())
	require.NoError(t, err)

	got, err := svc.Confirmation(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)

	_, err = svc.Confirmation(ctx, 99)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestLookup(t *testing.T) {
	repo := &fakeRepo{}
	svc, clk := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Book(ctx, alice())
	require.NoError(t, err)
	clk.Advance(time.Minute)
	later := alice()
	later.Date = "2025-02-25"
	second, err := svc.Book(ctx, later)
	require.NoError(t, err)

	t.Run("latest by email", func(t *testing.T) {
		got, found, err := svc.Lookup(ctx, " alice@example.com ", "")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, second.ID, got.ID)
	})

	t.Run("id and email", func(t *testing.T) {
		got, found, err := svc.Lookup(ctx, "alice@example.com", "1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("id with someone else's email is a soft miss", func(t *testing.T) {
		_, found, err := svc.Lookup(ctx, "mallory@example.com", "1")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("unknown email is a soft miss", func(t *testing.T) {
		_, found, err := svc.Lookup(ctx, "nobody@example.com", "")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("email is required", func(t *testing.T) {
		_, _, err := svc.Lookup(ctx, " ", "1")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("id must be numeric", func(t *testing.T) {
		_, _, err := svc.Lookup(ctx, "alice@example.com", "abc")
		var perr *ParseError
		assert.ErrorAs(t, err, &perr)
	})
}

func TestAvailableTimes(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Book(ctx, alice())
	require.NoError(t, err)

	free, err := svc.AvailableTimes(ctx, "2025-03-01")
	require.NoError(t, err)
	var got []string
	for _, f := range free {
		got = append(got, f.String())
	}
	assert.Equal(t, []string{"10:00", "11:00"}, got)

	_, err = svc.AvailableTimes(ctx, "tomorrow")
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestToday(t *testing.T) {
	svc, _ := newTestService(&fakeRepo{})
	assert.Equal(t, "2025-02-20", svc.Today())
}
