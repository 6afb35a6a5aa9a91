package tickets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/gotrs-helpdesk/internal/models"
	"github.com/gotrs-io/gotrs-helpdesk/internal/repository"
	"github.com/gotrs-io/gotrs-helpdesk/internal/sequence"
)

var (
	asha  = models.Identity{UserID: "u1", Name: "Asha", Email: "asha@example.com"}
	bruno = models.Identity{UserID: "u2", Name: "Bruno", Email: "bruno@example.com"}
	admin = models.Identity{UserID: "a1", Name: "Ops", Email: "ops@example.com", IsAdmin: true}

	fixedNow = time.Date(2025, 10, 3, 9, 0, 0, 0, time.UTC)
)

// flakyStore fails the next n increments with err before delegating.
type flakyStore struct {
	sequence.CounterStore
	mu    sync.Mutex
	fails int
	err   error
}

func (f *flakyStore) Increment(ctx context.Context, name string) (int64, error) {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return 0, f.err
	}
	f.mu.Unlock()
	return f.CounterStore.Increment(ctx, name)
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []string
	changed []string
	err     error
}

func (n *recordingNotifier) TicketCreated(_ context.Context, t *models.Ticket) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, t.TicketNumber)
	return n.err
}

func (n *recordingNotifier) TicketStatusChanged(_ context.Context, t *models.Ticket, from models.TicketStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, fmt.Sprintf("%s:%s->%s", t.TicketNumber, from, t.Status))
	return n.err
}

type fixture struct {
	svc      *Service
	repo     *repository.MemoryTicketRepository
	store    sequence.CounterStore
	notifier *recordingNotifier
}

func newFixture(t *testing.T, store sequence.CounterStore) fixture {
	t.Helper()
	if store == nil {
		store = sequence.NewMemoryStore()
	}
	quiet := log.New(io.Discard, "", 0)
	repo := repository.NewMemoryTicketRepository()
	n := &recordingNotifier{}
	alloc := sequence.NewAllocator(store, sequence.WithLogger(quiet))
	svc := NewService(repo, alloc,
		WithLogger(quiet),
		WithNotifier(n),
		WithClock(func() time.Time { return fixedNow }),
		WithRetryPolicy(sequence.RetryPolicy{MaxAttempts: 3}),
	)
	return fixture{svc: svc, repo: repo, store: store, notifier: n}
}

func validInput() CreateInput {
	return CreateInput{FolderPath: `\\nas01\shoots\2025-10`, Query: "sharpen and denoise"}
}

func TestCreate_SequentialNumbers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i, want := range []string{"TKT-000001", "TKT-000002", "TKT-000003"} {
		tk, err := f.svc.Create(ctx, asha, validInput())
		require.NoError(t, err)
		assert.Equal(t, want, tk.TicketNumber)
		assert.Equal(t, int64(i+1), tk.SequenceValue)
		assert.Equal(t, models.StatusPending, tk.Status)
		assert.Equal(t, fixedNow, tk.CreatedAt)
		assert.NotEmpty(t, tk.ID)
	}
	assert.Equal(t, []string{"TKT-000001", "TKT-000002", "TKT-000003"}, f.notifier.created)
}

func TestCreate_ConcurrentNumbersAreUnique(t *testing.T) {
	f := newFixture(t, nil)
	const n = 100

	var wg sync.WaitGroup
	numbers := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk, err := f.svc.Create(context.Background(), asha, validInput())
			if err != nil {
				errs <- err
				return
			}
			numbers <- tk.TicketNumber
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("create failed: %v", err)
	}
	seen := make(map[string]bool, n)
	for num := range numbers {
		assert.False(t, seen[num], "duplicate ticket number %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["TKT-000001"])
	assert.True(t, seen[fmt.Sprintf("TKT-%06d", n)])
}

func TestCreate_RetriesUnavailableStore(t *testing.T) {
	store := &flakyStore{CounterStore: sequence.NewMemoryStore(), fails: 2, err: sequence.ErrStorageUnavailable}
	f := newFixture(t, store)

	tk, err := f.svc.Create(context.Background(), asha, validInput())
	require.NoError(t, err)
	assert.Equal(t, "TKT-000001", tk.TicketNumber)
}

func TestCreate_GivesUpAfterPolicy(t *testing.T) {
	store := &flakyStore{CounterStore: sequence.NewMemoryStore(), fails: 5, err: sequence.ErrStorageUnavailable}
	f := newFixture(t, store)

	_, err := f.svc.Create(context.Background(), asha, validInput())
	assert.ErrorIs(t, err, sequence.ErrStorageUnavailable)

	all, err := f.repo.List(context.Background(), models.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, f.notifier.created)
}

func TestCreate_StorageErrorIsNotRetried(t *testing.T) {
	store := &flakyStore{CounterStore: sequence.NewMemoryStore(), fails: 1, err: fmt.Errorf("%w: disk full", sequence.ErrStorageError)}
	f := newFixture(t, store)

	_, err := f.svc.Create(context.Background(), asha, validInput())
	assert.ErrorIs(t, err, sequence.ErrStorageError)

	all, err := f.repo.List(context.Background(), models.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	// the failed allocation left the counter untouched
	tk, err := f.svc.Create(context.Background(), asha, validInput())
	require.NoError(t, err)
	assert.Equal(t, "TKT-000001", tk.TicketNumber)
}

func TestCreate_TransientInsertFailureBurnsNumber(t *testing.T) {
	f := newFixture(t, nil)
	f.repo.FailNextInsert(&pq.Error{Code: "40001", Message: "could not serialize access"})

	tk, err := f.svc.Create(context.Background(), asha, validInput())
	require.NoError(t, err)
	assert.Equal(t, "TKT-000002", tk.TicketNumber)

	_, err = f.repo.GetByNumber(context.Background(), "TKT-000001")
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
}

func TestCreate_PermanentInsertFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.repo.FailNextInsert(errors.New("constraint violated"))

	_, err := f.svc.Create(context.Background(), asha, validInput())
	require.Error(t, err)
	assert.False(t, sequence.IsUnavailable(err))

	cur, err := f.store.Current(context.Background(), DefaultSequenceName)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cur)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, models.Identity{}, validInput())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Create(ctx, asha, CreateInput{Query: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Create(ctx, asha, CreateInput{FolderPath: "/mnt/a", Query: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	cur, err := f.store.Current(ctx, DefaultSequenceName)
	require.NoError(t, err)
	assert.Zero(t, cur)
}

func TestCreate_NotifierFailureDoesNotFailCreate(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.err = errors.New("smtp down")

	tk, err := f.svc.Create(context.Background(), asha, validInput())
	require.NoError(t, err)
	assert.Equal(t, "TKT-000001", tk.TicketNumber)
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	tk, err := f.svc.Create(ctx, asha, validInput())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, asha, tk.TicketNumber)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, admin, tk.TicketNumber)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, bruno, tk.TicketNumber)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Get(ctx, asha, "TKT-000404")
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
	_, err = f.svc.Get(ctx, asha, "REQ-000001")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestList_Scopes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for _, who := range []models.Identity{asha, asha, bruno} {
		_, err := f.svc.Create(ctx, who, validInput())
		require.NoError(t, err)
	}

	mine, err := f.svc.ListMine(ctx, asha, models.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.svc.ListAll(ctx, asha, models.TicketFilter{})
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := f.svc.ListAll(ctx, admin, models.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.ListMine(ctx, asha, models.TicketFilter{Filter: "archived"})
	assert.ErrorIs(t, err, ErrValidation)

	start, end := fixedNow, fixedNow.Add(-time.Hour)
	_, err = f.svc.ListAll(ctx, admin, models.TicketFilter{StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	tk, err := f.svc.Create(ctx, asha, validInput())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, asha, tk.TicketNumber, models.StatusSolved, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, admin, tk.TicketNumber, "archived", "")
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := f.svc.UpdateStatus(ctx, admin, tk.TicketNumber, models.StatusSolved, " output in /out ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSolved, updated.Status)
	assert.Equal(t, "output in /out", updated.AdminComment)

	// unchanged status does not notify again
	_, err = f.svc.UpdateStatus(ctx, admin, tk.TicketNumber, models.StatusSolved, "")
	require.NoError(t, err)
	// back to pending is not a final state
	_, err = f.svc.UpdateStatus(ctx, admin, tk.TicketNumber, models.StatusPending, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"TKT-000001:pending->solved"}, f.notifier.changed)

	_, err = f.svc.UpdateStatus(ctx, admin, "TKT-000404", models.StatusError, "")
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	tk, err := f.svc.Create(ctx, asha, validInput())
	require.NoError(t, err)

	got, err := f.svc.AddComment(ctx, asha, tk.TicketNumber, "also crop please")
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "Asha", got.Comments[0].Author)
	assert.Equal(t, models.AuthorUser, got.Comments[0].AuthorType)

	got, err = f.svc.AddComment(ctx, admin, tk.TicketNumber, "on it")
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "Admin", got.Comments[1].Author)
	assert.Equal(t, models.AuthorAdmin, got.Comments[1].AuthorType)

	_, err = f.svc.AddComment(ctx, bruno, tk.TicketNumber, "me too")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.AddComment(ctx, asha, tk.TicketNumber, " ")
	assert.ErrorIs(t, err, ErrValidation)
}
