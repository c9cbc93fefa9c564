package rest

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ranchi/uniondash/internal/domain/loan"
)

// ---------------------------------------------------------------------------
// Tolerant Wire Types
// ---------------------------------------------------------------------------

// flexID is an identifier field that tolerates every representation the
// backends emit: string, number, null, absent, or a boolean placeholder.
// It is never a decode error; missing identifiers normalize to "".
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	*f = ""
	return nil
}

// or returns the id, falling back when empty.
func (f flexID) or(fallback string) string {
	if f == "" {
		return fallback
	}
	return string(f)
}

// flexTime is a date field that tolerates the date layouts the backends
// emit, plus null/absent/boolean placeholders (decoded as no value).
type flexTime struct {
	t *time.Time
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(bytes.TrimSpace(data), &s); err != nil || s == "" {
		f.t = nil
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			f.t = &t
			return nil
		}
	}
	f.t = nil
	return nil
}

// orNow returns the parsed time, defaulting to now for required-but-absent
// dates.
func (f flexTime) orNow() time.Time {
	if f.t == nil {
		return time.Now()
	}
	return *f.t
}

// orNil returns the parsed time or nil for genuinely optional dates.
func (f flexTime) orNil() *time.Time {
	return f.t
}

// ---------------------------------------------------------------------------
// Wire Records
// ---------------------------------------------------------------------------

type unionRecord struct {
	ID          flexID          `json:"id"`
	Name        string          `json:"name"`
	LeaderID    flexID          `json:"leaderId"`
	Purse       decimal.Decimal `json:"purse"`
	MemberCount int             `json:"memberCount"`
	CreatedDate flexTime        `json:"createdDate"`
	Status      string          `json:"status"`
}

func (r unionRecord) canonical() loan.Union {
	return loan.Union{
		ID:          string(r.ID),
		Name:        r.Name,
		LeaderID:    string(r.LeaderID),
		Purse:       r.Purse,
		MemberCount: r.MemberCount,
		CreatedDate: r.CreatedDate.orNow(),
		Status:      loan.MembershipStatus(r.Status),
	}
}

type memberRecord struct {
	ID            flexID          `json:"id"`
	MemberID      flexID          `json:"memberId"`
	Name          string          `json:"name"`
	ContactNumber string          `json:"contactNumber"`
	Email         string          `json:"email"`
	JoinDate      flexTime        `json:"joinDate"`
	Status        string          `json:"status"`
	Balance       decimal.Decimal `json:"balance"`
	UnionID       flexID          `json:"unionId"`
}

// canonical maps the record; defaultUnionID fills the FK when a nested
// union route omits it.
func (r memberRecord) canonical(defaultUnionID string) loan.Member {
	return loan.Member{
		ID:            r.ID.or(string(r.MemberID)),
		Name:          r.Name,
		ContactNumber: r.ContactNumber,
		Email:         r.Email,
		JoinDate:      r.JoinDate.orNow(),
		Status:        loan.MembershipStatus(r.Status),
		Balance:       r.Balance,
		UnionID:       r.UnionID.or(defaultUnionID),
	}
}

type loanRecord struct {
	ID                flexID          `json:"id"`
	MemberID          flexID          `json:"memberId"`
	Amount            decimal.Decimal `json:"amount"`
	IssueDate         flexTime        `json:"issueDate"`
	TotalInstallments int             `json:"totalInstallments"`
	PaidInstallments  int             `json:"paidInstallments"`
	NextDueDate       flexTime        `json:"nextDueDate"`
	Status            string          `json:"status"`
}

func (r loanRecord) canonical(defaultMemberID string) loan.Loan {
	return loan.Loan{
		ID:                string(r.ID),
		MemberID:          r.MemberID.or(defaultMemberID),
		Amount:            r.Amount,
		IssueDate:         r.IssueDate.orNow(),
		TotalInstallments: r.TotalInstallments,
		PaidInstallments:  r.PaidInstallments,
		NextDueDate:       r.NextDueDate.orNow(),
		Status:            loan.LoanStatus(r.Status),
	}
}

type installmentRecord struct {
	ID          flexID          `json:"id"`
	LoanID      flexID          `json:"loanId"`
	MemberID    flexID          `json:"memberId"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     flexTime        `json:"dueDate"`
	PaidDate    flexTime        `json:"paidDate"`
	Status      string          `json:"status"`
	CollectorID flexID          `json:"collectorId"`
}

func (r installmentRecord) canonical(defaultLoanID, defaultMemberID string) loan.Installment {
	return loan.Installment{
		ID:          string(r.ID),
		LoanID:      r.LoanID.or(defaultLoanID),
		MemberID:    r.MemberID.or(defaultMemberID),
		Amount:      r.Amount,
		DueDate:     r.DueDate.orNow(),
		PaidDate:    r.PaidDate.orNil(),
		Status:      loan.InstallmentStatus(r.Status),
		CollectorID: string(r.CollectorID),
	}
}

type collectorRecord struct {
	ID               flexID          `json:"id"`
	Name             string          `json:"name"`
	ContactNumber    string          `json:"contactNumber"`
	Email            string          `json:"email"`
	AssignedMembers  int             `json:"assignedMembers"`
	CollectionsToday int             `json:"collectionsToday"`
	TotalCollected   decimal.Decimal `json:"totalCollected"`
	UnionID          flexID          `json:"unionId"`
}

func (r collectorRecord) canonical(defaultUnionID string) loan.Collector {
	return loan.Collector{
		ID:               string(r.ID),
		Name:             r.Name,
		ContactNumber:    r.ContactNumber,
		Email:            r.Email,
		AssignedMembers:  r.AssignedMembers,
		CollectionsToday: r.CollectionsToday,
		TotalCollected:   r.TotalCollected,
		UnionID:          r.UnionID.or(defaultUnionID),
	}
}

type summaryRecord struct {
	TotalLoans     int             `json:"totalLoans"`
	ActiveLoans    int             `json:"activeLoans"`
	CompletedLoans int             `json:"completedLoans"`
	DefaultedLoans int             `json:"defaultedLoans"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	TotalCollected decimal.Decimal `json:"totalCollected"`
	PendingAmount  decimal.Decimal `json:"pendingAmount"`
}

func (r summaryRecord) canonical() loan.CollectionSummary {
	return loan.CollectionSummary{
		TotalLoans:     r.TotalLoans,
		ActiveLoans:    r.ActiveLoans,
		CompletedLoans: r.CompletedLoans,
		DefaultedLoans: r.DefaultedLoans,
		TotalAmount:    r.TotalAmount,
		TotalCollected: r.TotalCollected,
		PendingAmount:  r.PendingAmount,
	}
}
