package syncstatus_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/service/syncstatus"
)

// memRepo is an in-memory sync record repository for unit testing.
type memRepo struct {
	mu      sync.Mutex
	records map[string]domain.SyncRecord
	upserts int
	failErr error
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]domain.SyncRecord)}
}

func (m *memRepo) Upsert(_ context.Context, rec *domain.SyncRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.upserts++
	m.records[rec.OrderID] = *rec
	return nil
}

func (m *memRepo) Get(_ context.Context, orderID string) (*domain.SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[orderID]
	if !ok {
		return nil, syncstatus.ErrNotFound
	}
	return &rec, nil
}

func (m *memRepo) List(_ context.Context, f syncstatus.ListFilter) ([]domain.SyncRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SyncRecord
	for _, r := range m.records {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SyncedAt.After(out[j].SyncedAt) })
	total := len(out)
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(out) || f.Limit <= 0 {
		end = len(out)
	}
	return out[f.Offset:end], total, nil
}

func (m *memRepo) CountByStatus(_ context.Context) (map[domain.SyncStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.SyncStatus]int)
	for _, r := range m.records {
		out[r.Status]++
	}
	return out, nil
}

type memArchiver struct {
	got []domain.SyncRecord
	err error
}

func (a *memArchiver) ArchiveSync(_ context.Context, rec domain.SyncRecord) error {
	a.got = append(a.got, rec)
	return a.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func okConstituent() domain.ConstituentResult {
	return domain.ConstituentResult{
		Success: true, ConstituentID: "c-900", MatchMethod: domain.MatchEmail,
		MatchedEmail: "donor@example.org", Raw: []byte(`{"id":900}`),
	}
}

func failedConstituent() domain.ConstituentResult {
	return domain.ConstituentResult{Raw: []byte(`{"error":"rate limited"}`)}
}

func okPayment() domain.PaymentResult {
	return domain.PaymentResult{Success: true, PaymentID: "g-77", Raw: []byte(`{"id":77}`)}
}

func failedPayment() domain.PaymentResult {
	return domain.PaymentResult{Raw: []byte("<html>502 Bad Gateway</html>")}
}

func TestDerive_StatusTable(t *testing.T) {
	tests := []struct {
		name       string
		c          domain.ConstituentResult
		p          domain.PaymentResult
		want       domain.SyncStatus
		wantConst  bool
		wantPaymnt bool
	}{
		{"both succeed", okConstituent(), okPayment(), domain.SyncSynced, true, true},
		{"constituent only", okConstituent(), failedPayment(), domain.SyncPartial, true, false},
		{"payment only", failedConstituent(), okPayment(), domain.SyncPartial, false, true},
		{"both fail", failedConstituent(), failedPayment(), domain.SyncUnsynced, false, false},
		{
			name: "success without id is a failure",
			c:    domain.ConstituentResult{Success: true, Raw: []byte(`{}`)},
			p:    okPayment(),
			want: domain.SyncPartial, wantPaymnt: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := syncstatus.Derive("1001", tt.c, tt.p, fixedNow)
			assert.Equal(t, tt.want, rec.Status)
			assert.Equal(t, tt.wantConst, rec.ConstituentID != nil)
			assert.Equal(t, tt.wantPaymnt, rec.PaymentID != nil)
			assert.NoError(t, rec.Validate(), "derived records pass Validate")
		})
	}
}

func TestDerive_KeepsRawPayloads(t *testing.T) {
	rec := syncstatus.Derive("1001", failedConstituent(), failedPayment(), fixedNow)
	assert.Equal(t, `{"error":"rate limited"}`, rec.ConstituentResponseRaw)
	assert.Equal(t, "<html>502 Bad Gateway</html>", rec.PaymentResponseRaw)
	assert.Equal(t, domain.MatchNone, rec.MatchMethod)
	assert.Nil(t, rec.MatchedEmail)
}

func TestDerive_EmptyAndBinaryPayloads(t *testing.T) {
	binary := []byte{0xff, 0xfe, 'o', 'k'}
	rec := syncstatus.Derive("1001",
		domain.ConstituentResult{},
		domain.PaymentResult{Raw: binary},
		fixedNow)

	assert.Contains(t, rec.ConstituentResponseRaw, "empty response")
	assert.Equal(t, binary, syncstatus.DecodeRaw(rec.PaymentResponseRaw))
	assert.Equal(t, []byte(`{"id":1}`), syncstatus.DecodeRaw(`{"id":1}`))
}

func TestReconcile_UpsertsAndOverwrites(t *testing.T) {
	repo := newMemRepo()
	r := syncstatus.NewReconciler(repo, syncstatus.WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	first, err := r.Reconcile(ctx, "1001", okConstituent(), failedPayment())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncPartial, first.Status)

	// webhook retry after the payment API recovered
	second, err := r.Reconcile(ctx, "1001", okConstituent(), okPayment())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncSynced, second.Status)

	assert.Len(t, repo.records, 1, "one record per order")
	stored, err := repo.Get(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, second, *stored)
	assert.Equal(t, `{"id":77}`, stored.PaymentResponseRaw, "no trace of the earlier failure")
}

func TestReconcile_Idempotent(t *testing.T) {
	repo := newMemRepo()
	r := syncstatus.NewReconciler(repo, syncstatus.WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	a, err := r.Reconcile(ctx, "1001", okConstituent(), okPayment())
	require.NoError(t, err)
	b, err := r.Reconcile(ctx, "1001", okConstituent(), okPayment())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 2, repo.upserts)
	assert.Len(t, repo.records, 1)
}

func TestReconcile_PersistenceFailureIsReturned(t *testing.T) {
	repo := newMemRepo()
	repo.failErr = errors.New("connection refused")
	r := syncstatus.NewReconciler(repo)

	_, err := r.Reconcile(context.Background(), "1001", okConstituent(), okPayment())
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.failErr)
}

func TestReconcile_RejectsBlankOrderID(t *testing.T) {
	r := syncstatus.NewReconciler(newMemRepo())
	_, err := r.Reconcile(context.Background(), "  ", okConstituent(), okPayment())
	assert.ErrorIs(t, err, syncstatus.ErrInvalidOrderID)
}

func TestReconcile_ArchiveFailureDoesNotFail(t *testing.T) {
	repo := newMemRepo()
	arch := &memArchiver{err: errors.New("s3 unavailable")}
	r := syncstatus.NewReconciler(repo, syncstatus.WithArchiver(arch))

	rec, err := r.Reconcile(context.Background(), "1001", failedConstituent(), failedPayment())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncUnsynced, rec.Status)
	require.Len(t, arch.got, 1)
	assert.Equal(t, "1001", arch.got[0].OrderID)
}
