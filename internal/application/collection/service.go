// Package collection is the read-side facade the dashboard talks to. It
// fronts the active backend with per-collection caches, swallows read
// failures into empty results so views degrade instead of crashing, and
// validates entities before any write reaches the backend.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ranchi/uniondash/internal/domain/loan"
	"github.com/ranchi/uniondash/internal/infrastructure/transport"
)

// Service caches bulk reads per collection and delegates everything else to
// the configured backend. Reads never return an error; writes always do.
type Service struct {
	backend  loan.Backend
	logger   *zap.Logger
	validate *validator.Validate

	unions       collectionCache[loan.Union]
	members      collectionCache[loan.Member]
	loans        collectionCache[loan.Loan]
	installments collectionCache[loan.Installment]
	collectors   collectionCache[loan.Collector]

	summaryMu sync.Mutex
	summary   *loan.CollectionSummary
}

// NewService creates the facade over the given backend.
func NewService(backend loan.Backend, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:  backend,
		logger:   logger,
		validate: validator.New(),
	}
}

// ClearCache drops every cached collection and the cached summary. The next
// read of each collection refetches from the backend.
func (s *Service) ClearCache() {
	s.unions.clear()
	s.members.clear()
	s.loans.clear()
	s.installments.clear()
	s.collectors.clear()

	s.summaryMu.Lock()
	s.summary = nil
	s.summaryMu.Unlock()
}

// ---------------------------------------------------------------------------
// Per-Collection Cache
// ---------------------------------------------------------------------------

// collectionCache holds one collection's cached bulk read. The mutex guards
// the slot only; fetches run outside the lock, and concurrent fillers resolve
// by last-write-wins.
type collectionCache[T any] struct {
	mu        sync.Mutex
	populated bool
	items     []T
}

func (c *collectionCache[T]) snapshot() ([]T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.populated {
		return nil, false
	}
	return c.items, true
}

func (c *collectionCache[T]) store(items []T) {
	c.mu.Lock()
	c.items = items
	c.populated = true
	c.mu.Unlock()
}

// find scans the cached collection for a matching identifier. A miss on an
// unpopulated cache and a miss on a populated one are both (nil, false); the
// caller falls through to the backend either way.
func (c *collectionCache[T]) find(id string, idOf func(T) string) (*T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.populated {
		return nil, false
	}
	for i := range c.items {
		if idOf(c.items[i]) == id {
			item := c.items[i]
			return &item, true
		}
	}
	return nil, false
}

// add appends a singly-fetched record, but only when a bulk read already
// populated the slot. A by-id fetch never seeds an empty cache.
func (c *collectionCache[T]) add(item T) {
	c.mu.Lock()
	if c.populated {
		c.items = append(c.items, item)
	}
	c.mu.Unlock()
}

func (c *collectionCache[T]) clear() {
	c.mu.Lock()
	c.items = nil
	c.populated = false
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Generic Read Paths
// ---------------------------------------------------------------------------

// logReadFailure records a swallowed read error. Permission denials are
// expected for restricted accounts and log at warn; everything else is an
// error.
func (s *Service) logReadFailure(op string, err error) {
	if transport.IsPermissionDenied(err) {
		s.logger.Warn("read denied", zap.String("op", op), zap.Error(err))
		return
	}
	s.logger.Error("read failed", zap.String("op", op), zap.Error(err))
}

// cachedList serves a bulk read from the cache, fetching and populating it on
// first use. Failures are swallowed into an empty slice and leave the cache
// unpopulated so a later call retries.
func cachedList[T any](ctx context.Context, s *Service, cache *collectionCache[T], op string, fetch func(context.Context) ([]T, error)) []T {
	if items, ok := cache.snapshot(); ok {
		return items
	}
	items, err := fetch(ctx)
	if err != nil {
		s.logReadFailure(op, err)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	cache.store(items)
	return items
}

// cachedGet serves a by-id read from the cache when possible, falling back to
// a backend fetch. Failures, including not-found, are swallowed into nil.
func cachedGet[T any](ctx context.Context, s *Service, cache *collectionCache[T], op, id string, idOf func(T) string, fetch func(context.Context, string) (*T, error)) *T {
	if id == "" {
		return nil
	}
	if item, ok := cache.find(id, idOf); ok {
		return item
	}
	item, err := fetch(ctx, id)
	if err != nil {
		if !errors.Is(err, loan.ErrNotFound) {
			s.logReadFailure(op, err)
		}
		return nil
	}
	if item == nil {
		return nil
	}
	cache.add(*item)
	return item
}

// uncachedList is a bulk read that bypasses the caches entirely.
func uncachedList[T any](ctx context.Context, s *Service, op string, fetch func(context.Context) ([]T, error)) []T {
	items, err := fetch(ctx)
	if err != nil {
		s.logReadFailure(op, err)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

// ---------------------------------------------------------------------------
// Bulk Reads
// ---------------------------------------------------------------------------

func (s *Service) AllUnions(ctx context.Context) []loan.Union {
	return cachedList(ctx, s, &s.unions, "unions.list", func(ctx context.Context) ([]loan.Union, error) {
		return s.backend.ListUnions(ctx, nil)
	})
}

func (s *Service) AllMembers(ctx context.Context) []loan.Member {
	return cachedList(ctx, s, &s.members, "members.list", func(ctx context.Context) ([]loan.Member, error) {
		return s.backend.ListMembers(ctx, nil)
	})
}

func (s *Service) AllLoans(ctx context.Context) []loan.Loan {
	return cachedList(ctx, s, &s.loans, "loans.list", func(ctx context.Context) ([]loan.Loan, error) {
		return s.backend.ListLoans(ctx, nil)
	})
}

func (s *Service) AllInstallments(ctx context.Context) []loan.Installment {
	return cachedList(ctx, s, &s.installments, "installments.list", func(ctx context.Context) ([]loan.Installment, error) {
		return s.backend.ListInstallments(ctx, nil)
	})
}

func (s *Service) AllCollectors(ctx context.Context) []loan.Collector {
	return cachedList(ctx, s, &s.collectors, "collectors.list", func(ctx context.Context) ([]loan.Collector, error) {
		return s.backend.ListCollectors(ctx, nil)
	})
}

// ---------------------------------------------------------------------------
// By-ID Reads
// ---------------------------------------------------------------------------

func (s *Service) UnionByID(ctx context.Context, id string) *loan.Union {
	return cachedGet(ctx, s, &s.unions, "unions.get", id,
		func(u loan.Union) string { return u.ID }, s.backend.GetUnion)
}

func (s *Service) MemberByID(ctx context.Context, id string) *loan.Member {
	return cachedGet(ctx, s, &s.members, "members.get", id,
		func(m loan.Member) string { return m.ID }, s.backend.GetMember)
}

func (s *Service) LoanByID(ctx context.Context, id string) *loan.Loan {
	return cachedGet(ctx, s, &s.loans, "loans.get", id,
		func(l loan.Loan) string { return l.ID }, s.backend.GetLoan)
}

func (s *Service) InstallmentByID(ctx context.Context, id string) *loan.Installment {
	return cachedGet(ctx, s, &s.installments, "installments.get", id,
		func(i loan.Installment) string { return i.ID }, s.backend.GetInstallment)
}

func (s *Service) CollectorByID(ctx context.Context, id string) *loan.Collector {
	return cachedGet(ctx, s, &s.collectors, "collectors.get", id,
		func(c loan.Collector) string { return c.ID }, s.backend.GetCollector)
}

// ---------------------------------------------------------------------------
// Status Views
// ---------------------------------------------------------------------------

// OverdueInstallments always asks the backend; the status-filtered views are
// never cached so the dashboard sees collection state move.
func (s *Service) OverdueInstallments(ctx context.Context) []loan.Installment {
	return uncachedList(ctx, s, "installments.overdue", func(ctx context.Context) ([]loan.Installment, error) {
		return s.backend.OverdueInstallments(ctx, nil)
	})
}

func (s *Service) PendingInstallments(ctx context.Context) []loan.Installment {
	return uncachedList(ctx, s, "installments.pending", func(ctx context.Context) ([]loan.Installment, error) {
		return s.backend.PendingInstallments(ctx, nil)
	})
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

// Summary returns the backend's collection aggregate, cached after the first
// successful fetch. A failed fetch yields the zero summary and is not cached.
func (s *Service) Summary(ctx context.Context) loan.CollectionSummary {
	s.summaryMu.Lock()
	cached := s.summary
	s.summaryMu.Unlock()
	if cached != nil {
		return *cached
	}

	summary, err := s.backend.CollectionSummary(ctx)
	if err != nil || summary == nil {
		if err != nil {
			s.logReadFailure("summary.get", err)
		}
		return loan.CollectionSummary{}
	}

	s.summaryMu.Lock()
	s.summary = summary
	s.summaryMu.Unlock()
	return *summary
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// checkPayload validates an entity before it is sent to the backend.
func (s *Service) checkPayload(entity any) error {
	if err := s.validate.Struct(entity); err != nil {
		return fmt.Errorf("%w: %v", loan.ErrInvalidPayload, err)
	}
	return nil
}

func (s *Service) CreateUnion(ctx context.Context, u *loan.Union) (*loan.Union, error) {
	if err := s.checkPayload(u); err != nil {
		return nil, err
	}
	return s.backend.CreateUnion(ctx, u)
}

func (s *Service) UpdateUnion(ctx context.Context, id string, u *loan.Union) (*loan.Union, error) {
	if err := s.checkPayload(u); err != nil {
		return nil, err
	}
	return s.backend.UpdateUnion(ctx, id, u)
}

func (s *Service) DeleteUnion(ctx context.Context, id string) error {
	return s.backend.DeleteUnion(ctx, id)
}

func (s *Service) CreateMember(ctx context.Context, m *loan.Member) (*loan.Member, error) {
	if err := s.checkPayload(m); err != nil {
		return nil, err
	}
	return s.backend.CreateMember(ctx, m)
}

func (s *Service) UpdateMember(ctx context.Context, id string, m *loan.Member) (*loan.Member, error) {
	if err := s.checkPayload(m); err != nil {
		return nil, err
	}
	return s.backend.UpdateMember(ctx, id, m)
}

func (s *Service) DeleteMember(ctx context.Context, id string) error {
	return s.backend.DeleteMember(ctx, id)
}

func (s *Service) CreateLoan(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	if err := s.checkPayload(l); err != nil {
		return nil, err
	}
	return s.backend.CreateLoan(ctx, l)
}

func (s *Service) UpdateLoan(ctx context.Context, id string, l *loan.Loan) (*loan.Loan, error) {
	if err := s.checkPayload(l); err != nil {
		return nil, err
	}
	return s.backend.UpdateLoan(ctx, id, l)
}

func (s *Service) DeleteLoan(ctx context.Context, id string) error {
	return s.backend.DeleteLoan(ctx, id)
}

func (s *Service) CreateInstallment(ctx context.Context, i *loan.Installment) (*loan.Installment, error) {
	if err := s.checkPayload(i); err != nil {
		return nil, err
	}
	return s.backend.CreateInstallment(ctx, i)
}

func (s *Service) UpdateInstallment(ctx context.Context, id string, i *loan.Installment) (*loan.Installment, error) {
	if err := s.checkPayload(i); err != nil {
		return nil, err
	}
	return s.backend.UpdateInstallment(ctx, id, i)
}

func (s *Service) DeleteInstallment(ctx context.Context, id string) error {
	return s.backend.DeleteInstallment(ctx, id)
}
