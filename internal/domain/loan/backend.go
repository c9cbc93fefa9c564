package loan

import (
	"context"
	"errors"
)

// ---------------------------------------------------------------------------
// Backend Errors
// ---------------------------------------------------------------------------

var (
	ErrBackendUnavailable = errors.New("loan: backend unavailable")
	ErrAuthFailed         = errors.New("loan: authentication failed")
	ErrNotFound           = errors.New("loan: record not found")
	ErrInvalidPayload     = errors.New("loan: invalid entity payload")
)

// ---------------------------------------------------------------------------
// Query Options
// ---------------------------------------------------------------------------

// Order is the sort direction for list reads.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ListOptions carries passthrough query parameters for list reads. The
// client performs no pagination itself; limit and offset are forwarded to
// the backend verbatim. Filter entries are equality pairs.
type ListOptions struct {
	Limit  int
	Offset int
	Sort   string
	Order  Order
	Filter map[string]string
}

// ---------------------------------------------------------------------------
// Backend Contract
// ---------------------------------------------------------------------------

// Backend is the adapter contract every backend integration implements.
// Exactly one implementation is linked into a build, selected at composition
// time. List reads return canonical slices; singular reads return ErrNotFound
// (possibly wrapped) when the record does not exist.
type Backend interface {
	// Administrative operations.
	Login(ctx context.Context, username, password string) (*Session, error)
	Logout(ctx context.Context) error

	// Unions.
	ListUnions(ctx context.Context, opts *ListOptions) ([]Union, error)
	GetUnion(ctx context.Context, id string) (*Union, error)
	CreateUnion(ctx context.Context, u *Union) (*Union, error)
	UpdateUnion(ctx context.Context, id string, u *Union) (*Union, error)
	DeleteUnion(ctx context.Context, id string) error
	UnionMembers(ctx context.Context, unionID string, opts *ListOptions) ([]Member, error)
	UnionCollectors(ctx context.Context, unionID string) ([]Collector, error)

	// Members.
	ListMembers(ctx context.Context, opts *ListOptions) ([]Member, error)
	GetMember(ctx context.Context, id string) (*Member, error)
	CreateMember(ctx context.Context, m *Member) (*Member, error)
	UpdateMember(ctx context.Context, id string, m *Member) (*Member, error)
	DeleteMember(ctx context.Context, id string) error
	MemberLoans(ctx context.Context, memberID string, opts *ListOptions) ([]Loan, error)
	MemberInstallments(ctx context.Context, memberID string, opts *ListOptions) ([]Installment, error)

	// Loans.
	ListLoans(ctx context.Context, opts *ListOptions) ([]Loan, error)
	GetLoan(ctx context.Context, id string) (*Loan, error)
	CreateLoan(ctx context.Context, l *Loan) (*Loan, error)
	UpdateLoan(ctx context.Context, id string, l *Loan) (*Loan, error)
	DeleteLoan(ctx context.Context, id string) error
	LoanInstallments(ctx context.Context, loanID string, opts *ListOptions) ([]Installment, error)

	// Installments.
	ListInstallments(ctx context.Context, opts *ListOptions) ([]Installment, error)
	GetInstallment(ctx context.Context, id string) (*Installment, error)
	CreateInstallment(ctx context.Context, i *Installment) (*Installment, error)
	UpdateInstallment(ctx context.Context, id string, i *Installment) (*Installment, error)
	DeleteInstallment(ctx context.Context, id string) error
	OverdueInstallments(ctx context.Context, opts *ListOptions) ([]Installment, error)
	PendingInstallments(ctx context.Context, opts *ListOptions) ([]Installment, error)

	// Collectors.
	ListCollectors(ctx context.Context, opts *ListOptions) ([]Collector, error)
	GetCollector(ctx context.Context, id string) (*Collector, error)
	CollectorInstallments(ctx context.Context, collectorID string, opts *ListOptions) ([]Installment, error)

	// Aggregates.
	CollectionSummary(ctx context.Context) (*CollectionSummary, error)
}
