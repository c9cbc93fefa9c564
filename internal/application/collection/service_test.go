package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranchi/uniondash/internal/domain/loan"
)

// stubBackend overrides only the operations a test needs; the embedded
// interface panics on anything unexpected. Every override counts its calls.
type stubBackend struct {
	loan.Backend

	mu    sync.Mutex
	calls map[string]int

	listUnionsFn      func() ([]loan.Union, error)
	getUnionFn        func(id string) (*loan.Union, error)
	listMembersFn     func() ([]loan.Member, error)
	getMemberFn       func(id string) (*loan.Member, error)
	listLoansFn       func() ([]loan.Loan, error)
	listCollectorsFn  func() ([]loan.Collector, error)
	unionMembersFn    func(unionID string) ([]loan.Member, error)
	unionCollectorsFn func(unionID string) ([]loan.Collector, error)
	overdueFn         func() ([]loan.Installment, error)
	summaryFn         func() (*loan.CollectionSummary, error)
	createUnionFn     func(u *loan.Union) (*loan.Union, error)
}

func (b *stubBackend) record(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.calls == nil {
		b.calls = make(map[string]int)
	}
	b.calls[op]++
}

func (b *stubBackend) count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *stubBackend) ListUnions(ctx context.Context, opts *loan.ListOptions) ([]loan.Union, error) {
	b.record("ListUnions")
	return b.listUnionsFn()
}

func (b *stubBackend) GetUnion(ctx context.Context, id string) (*loan.Union, error) {
	b.record("GetUnion")
	return b.getUnionFn(id)
}

func (b *stubBackend) ListMembers(ctx context.Context, opts *loan.ListOptions) ([]loan.Member, error) {
	b.record("ListMembers")
	return b.listMembersFn()
}

func (b *stubBackend) GetMember(ctx context.Context, id string) (*loan.Member, error) {
	b.record("GetMember")
	return b.getMemberFn(id)
}

func (b *stubBackend) ListLoans(ctx context.Context, opts *loan.ListOptions) ([]loan.Loan, error) {
	b.record("ListLoans")
	return b.listLoansFn()
}

func (b *stubBackend) ListCollectors(ctx context.Context, opts *loan.ListOptions) ([]loan.Collector, error) {
	b.record("ListCollectors")
	return b.listCollectorsFn()
}

func (b *stubBackend) UnionMembers(ctx context.Context, unionID string, opts *loan.ListOptions) ([]loan.Member, error) {
	b.record("UnionMembers")
	return b.unionMembersFn(unionID)
}

func (b *stubBackend) UnionCollectors(ctx context.Context, unionID string) ([]loan.Collector, error) {
	b.record("UnionCollectors")
	return b.unionCollectorsFn(unionID)
}

func (b *stubBackend) OverdueInstallments(ctx context.Context, opts *loan.ListOptions) ([]loan.Installment, error) {
	b.record("OverdueInstallments")
	return b.overdueFn()
}

func (b *stubBackend) CollectionSummary(ctx context.Context) (*loan.CollectionSummary, error) {
	b.record("CollectionSummary")
	return b.summaryFn()
}

func (b *stubBackend) CreateUnion(ctx context.Context, u *loan.Union) (*loan.Union, error) {
	b.record("CreateUnion")
	return b.createUnionFn(u)
}

// TestBulkReadFetchedOnce tests that a bulk read populates the cache and
// subsequent reads are served from it.
func TestBulkReadFetchedOnce(t *testing.T) {
	backend := &stubBackend{
		listUnionsFn: func() ([]loan.Union, error) {
			return []loan.Union{{ID: "1"}, {ID: "2"}}, nil
		},
	}
	svc := NewService(backend, nil)
	ctx := context.Background()

	assert.Len(t, svc.AllUnions(ctx), 2)
	assert.Len(t, svc.AllUnions(ctx), 2)
	assert.Equal(t, 1, backend.count("ListUnions"))
}

// TestClearCacheRefetches tests that clearing the cache forces exactly one
// refetch per collection.
func TestClearCacheRefetches(t *testing.T) {
	backend := &stubBackend{
		listLoansFn: func() ([]loan.Loan, error) {
			return []loan.Loan{{ID: "L1"}}, nil
		},
	}
	svc := NewService(backend, nil)
	ctx := context.Background()

	svc.AllLoans(ctx)
	svc.ClearCache()
	svc.AllLoans(ctx)
	svc.AllLoans(ctx)
	assert.Equal(t, 2, backend.count("ListLoans"))
}

// TestBulkReadFailureSwallowed tests that a failed bulk read degrades to an
// empty slice and does not poison the cache.
func TestBulkReadFailureSwallowed(t *testing.T) {
	failing := true
	backend := &stubBackend{
		listMembersFn: func() ([]loan.Member, error) {
			if failing {
				return nil, errors.New("backend down")
			}
			return []loan.Member{{ID: "M1"}}, nil
		},
	}
	svc := NewService(backend, nil)
	ctx := context.Background()

	members := svc.AllMembers(ctx)
	require.NotNil(t, members)
	assert.Empty(t, members)

	// The failure was not cached; recovery is visible on the next read.
	failing = false
	assert.Len(t, svc.AllMembers(ctx), 1)
	assert.Equal(t, 2, backend.count("ListMembers"))
}

// TestConcurrentBulkReadsLastWriterWins tests that overlapping bulk reads
// each fetch independently and the cache keeps the last writer's result.
func TestConcurrentBulkReadsLastWriterWins(t *testing.T) {
	var entered sync.WaitGroup
	entered.Add(2)
	var seq int32
	backend := &stubBackend{
		listLoansFn: func() ([]loan.Loan, error) {
			// Hold both fetches in flight so neither sees the other's fill.
			entered.Done()
			entered.Wait()
			n := atomic.AddInt32(&seq, 1)
			return []loan.Loan{{ID: fmt.Sprintf("L%d", n)}}, nil
		},
	}
	svc := NewService(backend, nil)
	ctx := context.Background()

	var done sync.WaitGroup
	done.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer done.Done()
			svc.AllLoans(ctx)
		}()
	}
	done.Wait()
	assert.Equal(t, 2, backend.count("ListLoans"))

	// The cache holds exactly one of the two results; no further fetch.
	cached := svc.AllLoans(ctx)
	require.Len(t, cached, 1)
	assert.Contains(t, []string{"L1", "L2"}, cached[0].ID)
	assert.Equal(t, 2, backend.count("ListLoans"))
}

// TestByIDServedFromCache tests that a by-id read scans the populated cache
// before touching the backend.
func TestByIDServedFromCache(t *testing.T) {
	backend := &stubBackend{
		listMembersFn: func() ([]loan.Member, error) {
			return []loan.Member{{ID: "M1", Name: "Ada"}}, nil
		},
		getMemberFn: func(id string) (*loan.Member, error) {
			t.Fatal("backend get should not be called for a cached record")
			return nil, nil
		},
	}
	svc := NewService(backend, nil)
	ctx := context.Background()

	svc.AllMembers(ctx)
	member := svc.MemberByID(ctx, "M1")
	require.NotNil(t, member)
	assert.Equal(t, "Ada", member.Name)
	assert.Equal(t, 0, backend.count("GetMember"))
}

// TestByIDMissAppendsToPopulatedCache tests that a cache miss fetched from
// the backend is appended when the cache was already populated.
func TestByIDMissAppendsToPopulatedCache(t *testing.T) {
	backend := &stubBackend{
		listMembersFn: func() ([]loan.Member, error) {
			return []loan.Member{{ID: "M1"}}, nil
		},
		getMemberFn: func(id string) (*loan.Member, error) {
			return &loan.Member{ID: id, Name: "Beryl"}, nil
		},
	}
	svc := NewService(backend, nil)
	ctx := context.Background()

	svc.AllMembers(ctx)
	require.NotNil(t, svc.MemberByID(ctx, "M2"))

	// The appended record is now visible in the bulk view without another
	// backend list call.
	assert.Len(t, svc.AllMembers(ctx), 2)
	assert.Equal(t, 1, backend.count("ListMembers"))
}

// TestByIDNeverSeedsEmptyCache tests that a singular fetch does not count
// as populating the collection.
func TestByIDNeverSeedsEmptyCache(t *testing.T) {
	backend := &stubBackend{
		listMembersFn: func() ([]loan.Member, error) {
			return []loan.Member{{ID: "M1"}, {ID: "M2"}, {ID: "M3"}}, nil
		},
		getMemberFn: func(id string) (*loan.Member, error) {
			return &loan.Member{ID: id}, nil
		},
	}
	svc := NewService(backend, nil)
	ctx := context.Background()

	require.NotNil(t, svc.MemberByID(ctx, "M1"))

	// The first bulk read still goes to the backend and wins.
	assert.Len(t, svc.AllMembers(ctx), 3)
	assert.Equal(t, 1, backend.count("ListMembers"))
}

// TestByIDFailureYieldsNil tests the swallow rule on singular reads.
func TestByIDFailureYieldsNil(t *testing.T) {
	backend := &stubBackend{
		getMemberFn: func(id string) (*loan.Member, error) {
			return nil, errors.New("backend down")
		},
	}
	svc := NewService(backend, nil)

	assert.Nil(t, svc.MemberByID(context.Background(), "M1"))
	assert.Nil(t, svc.MemberByID(context.Background(), ""))
}

// TestOverdueNeverCached tests that the status views bypass the caches
// entirely.
func TestOverdueNeverCached(t *testing.T) {
	backend := &stubBackend{
		overdueFn: func() ([]loan.Installment, error) {
			return []loan.Installment{{ID: "I1", Status: loan.InstallmentStatusOverdue}}, nil
		},
	}
	svc := NewService(backend, nil)
	ctx := context.Background()

	svc.OverdueInstallments(ctx)
	svc.OverdueInstallments(ctx)
	assert.Equal(t, 2, backend.count("OverdueInstallments"))
}

// TestSummaryCachedAfterSuccess tests the summary degradation and caching
// rules: zero value on failure, failure not cached, success cached.
func TestSummaryCachedAfterSuccess(t *testing.T) {
	failing := true
	backend := &stubBackend{
		summaryFn: func() (*loan.CollectionSummary, error) {
			if failing {
				return nil, errors.New("backend down")
			}
			return &loan.CollectionSummary{TotalLoans: 5}, nil
		},
	}
	svc := NewService(backend, nil)
	ctx := context.Background()

	assert.Equal(t, loan.CollectionSummary{}, svc.Summary(ctx))

	failing = false
	assert.Equal(t, 5, svc.Summary(ctx).TotalLoans)
	assert.Equal(t, 5, svc.Summary(ctx).TotalLoans)
	assert.Equal(t, 2, backend.count("CollectionSummary"))
}

// TestCreateUnionValidation tests that an invalid payload never reaches the
// backend.
func TestCreateUnionValidation(t *testing.T) {
	backend := &stubBackend{
		createUnionFn: func(u *loan.Union) (*loan.Union, error) {
			return u, nil
		},
	}
	svc := NewService(backend, nil)
	ctx := context.Background()

	_, err := svc.CreateUnion(ctx, &loan.Union{Name: ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, loan.ErrInvalidPayload)
	assert.Equal(t, 0, backend.count("CreateUnion"))

	created, err := svc.CreateUnion(ctx, &loan.Union{
		Name:  "Hilltop",
		Purse: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hilltop", created.Name)
	assert.Equal(t, 1, backend.count("CreateUnion"))
}

// TestWriteErrorsPropagate tests that backend write failures are returned,
// not swallowed.
func TestWriteErrorsPropagate(t *testing.T) {
	backendErr := errors.New("write rejected")
	backend := &stubBackend{
		createUnionFn: func(u *loan.Union) (*loan.Union, error) {
			return nil, backendErr
		},
	}
	svc := NewService(backend, nil)

	_, err := svc.CreateUnion(context.Background(), &loan.Union{Name: "Hilltop"})
	assert.ErrorIs(t, err, backendErr)
}
