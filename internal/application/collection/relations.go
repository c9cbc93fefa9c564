package collection

import (
	"context"
	"sync"

	"github.com/ranchi/uniondash/internal/domain/loan"
)

// ---------------------------------------------------------------------------
// Relationship Traversal
// ---------------------------------------------------------------------------
//
// Traversals follow the same degradation rule as the bulk reads: a failed or
// dangling hop resolves to nil or an empty slice, never an error.

// UnionMembers lists the members belonging to a union.
func (s *Service) UnionMembers(ctx context.Context, unionID string) []loan.Member {
	return uncachedList(ctx, s, "unions.members", func(ctx context.Context) ([]loan.Member, error) {
		return s.backend.UnionMembers(ctx, unionID, nil)
	})
}

// UnionCollectors lists the collectors assigned to a union.
func (s *Service) UnionCollectors(ctx context.Context, unionID string) []loan.Collector {
	return uncachedList(ctx, s, "unions.collectors", func(ctx context.Context) ([]loan.Collector, error) {
		return s.backend.UnionCollectors(ctx, unionID)
	})
}

// UnionLeader resolves a union's leader to a member record. A union without a
// leader, or with a leader reference pointing at no member, yields nil.
func (s *Service) UnionLeader(ctx context.Context, unionID string) *loan.Member {
	union := s.UnionByID(ctx, unionID)
	if union == nil || union.LeaderID == "" {
		return nil
	}
	return s.MemberByID(ctx, union.LeaderID)
}

// MemberUnion resolves the union a member belongs to.
func (s *Service) MemberUnion(ctx context.Context, memberID string) *loan.Union {
	member := s.MemberByID(ctx, memberID)
	if member == nil || member.UnionID == "" {
		return nil
	}
	return s.UnionByID(ctx, member.UnionID)
}

// MemberLoans lists the loans held by a member.
func (s *Service) MemberLoans(ctx context.Context, memberID string) []loan.Loan {
	return uncachedList(ctx, s, "members.loans", func(ctx context.Context) ([]loan.Loan, error) {
		return s.backend.MemberLoans(ctx, memberID, nil)
	})
}

// MemberInstallments lists the installments owed by a member.
func (s *Service) MemberInstallments(ctx context.Context, memberID string) []loan.Installment {
	return uncachedList(ctx, s, "members.installments", func(ctx context.Context) ([]loan.Installment, error) {
		return s.backend.MemberInstallments(ctx, memberID, nil)
	})
}

// LoanInstallments lists the repayment schedule of a loan.
func (s *Service) LoanInstallments(ctx context.Context, loanID string) []loan.Installment {
	return uncachedList(ctx, s, "loans.installments", func(ctx context.Context) ([]loan.Installment, error) {
		return s.backend.LoanInstallments(ctx, loanID, nil)
	})
}

// CollectorUnion resolves the union a collector works for.
func (s *Service) CollectorUnion(ctx context.Context, collectorID string) *loan.Union {
	collector := s.CollectorByID(ctx, collectorID)
	if collector == nil || collector.UnionID == "" {
		return nil
	}
	return s.UnionByID(ctx, collector.UnionID)
}

// CollectorInstallments lists the installments assigned to a collector.
func (s *Service) CollectorInstallments(ctx context.Context, collectorID string) []loan.Installment {
	return uncachedList(ctx, s, "collectors.installments", func(ctx context.Context) ([]loan.Installment, error) {
		return s.backend.CollectorInstallments(ctx, collectorID, nil)
	})
}

// ---------------------------------------------------------------------------
// Union Overviews
// ---------------------------------------------------------------------------

// UnionOverview is a union joined with its resolved relations, ready for a
// dashboard panel.
type UnionOverview struct {
	Union      loan.Union
	Leader     *loan.Member
	Members    []loan.Member
	Collectors []loan.Collector
}

// UnionOverviews resolves every union's members, collectors, and leader
// concurrently. Overviews come back in the same order as AllUnions; each
// relation degrades independently on failure.
func (s *Service) UnionOverviews(ctx context.Context) []UnionOverview {
	unions := s.AllUnions(ctx)
	overviews := make([]UnionOverview, len(unions))

	var wg sync.WaitGroup
	for i, union := range unions {
		wg.Add(1)
		go func(i int, union loan.Union) {
			defer wg.Done()
			overviews[i] = s.unionOverview(ctx, union)
		}(i, union)
	}
	wg.Wait()
	return overviews
}

func (s *Service) unionOverview(ctx context.Context, union loan.Union) UnionOverview {
	overview := UnionOverview{Union: union}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		overview.Members = s.UnionMembers(ctx, union.ID)
	}()
	go func() {
		defer wg.Done()
		overview.Collectors = s.UnionCollectors(ctx, union.ID)
	}()
	go func() {
		defer wg.Done()
		if union.LeaderID != "" {
			overview.Leader = s.MemberByID(ctx, union.LeaderID)
		}
	}()
	wg.Wait()
	return overview
}
