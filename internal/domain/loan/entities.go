// Package loan defines the canonical domain model for the union loan-collection
// dashboard. Entity shapes are backend-agnostic: every identifier is an opaque
// string regardless of the backend-native representation, and the active
// backend adapter is responsible for coercing its wire types into these.
package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Status Types
// ---------------------------------------------------------------------------

// MembershipStatus is the lifecycle status shared by unions and members.
type MembershipStatus string

const (
	MembershipStatusActive   MembershipStatus = "active"
	MembershipStatusInactive MembershipStatus = "inactive"
)

// IsValid returns true if the status is a known value.
func (s MembershipStatus) IsValid() bool {
	return s == MembershipStatusActive || s == MembershipStatusInactive
}

// LoanStatus represents the repayment state of a loan.
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// IsValid returns true if the status is a known value.
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusActive, LoanStatusCompleted, LoanStatusDefaulted:
		return true
	default:
		return false
	}
}

// InstallmentStatus represents the collection state of a single installment.
type InstallmentStatus string

const (
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusOverdue InstallmentStatus = "overdue"
)

// IsValid returns true if the status is a known value.
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentStatusPaid, InstallmentStatusPending, InstallmentStatusOverdue:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

// Union is the top-level organizational entity owning members, a cash purse,
// and collectors.
type Union struct {
	ID          string           `json:"id"`
	Name        string           `json:"name" validate:"required"`
	LeaderID    string           `json:"leaderId"`
	Purse       decimal.Decimal  `json:"purse"`
	MemberCount int              `json:"memberCount" validate:"gte=0"`
	CreatedDate time.Time        `json:"createdDate"`
	Status      MembershipStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

// Member is a union member who may hold loans and owes collectible
// installments.
type Member struct {
	ID            string           `json:"id"`
	Name          string           `json:"name" validate:"required"`
	ContactNumber string           `json:"contactNumber"`
	Email         string           `json:"email" validate:"omitempty,email"`
	JoinDate      time.Time        `json:"joinDate"`
	Status        MembershipStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	Balance       decimal.Decimal  `json:"balance"`
	UnionID       string           `json:"unionId"`
}

// Loan is an amount disbursed to a member, repaid over a fixed number of
// installments.
type Loan struct {
	ID                string          `json:"id"`
	MemberID          string          `json:"memberId" validate:"required"`
	Amount            decimal.Decimal `json:"amount"`
	IssueDate         time.Time       `json:"issueDate"`
	TotalInstallments int             `json:"totalInstallments" validate:"gte=1"`
	PaidInstallments  int             `json:"paidInstallments" validate:"gte=0,ltefield=TotalInstallments"`
	NextDueDate       time.Time       `json:"nextDueDate"`
	Status            LoanStatus      `json:"status" validate:"omitempty,oneof=active completed defaulted"`
}

// Progress returns the repayment progress as a percentage in [0, 100].
func (l Loan) Progress() float64 {
	if l.TotalInstallments <= 0 {
		return 0
	}
	return float64(l.PaidInstallments) / float64(l.TotalInstallments) * 100
}

// Installment is one scheduled repayment unit of a loan. MemberID is
// denormalized from the parent loan by the upstream system.
type Installment struct {
	ID          string            `json:"id"`
	LoanID      string            `json:"loanId" validate:"required"`
	MemberID    string            `json:"memberId"`
	Amount      decimal.Decimal   `json:"amount"`
	DueDate     time.Time         `json:"dueDate"`
	PaidDate    *time.Time        `json:"paidDate"`
	Status      InstallmentStatus `json:"status" validate:"omitempty,oneof=paid pending overdue"`
	CollectorID string            `json:"collectorId"`
}

// DaysOverdue returns the number of whole days the installment is past its
// due date at the given instant. Paid or not-yet-due installments return 0.
func (i Installment) DaysOverdue(now time.Time) int {
	if i.Status == InstallmentStatusPaid || !now.After(i.DueDate) {
		return 0
	}
	return int(now.Sub(i.DueDate).Hours() / 24)
}

// Collector is an agent responsible for collecting installment payments from
// members within a union.
type Collector struct {
	ID               string          `json:"id"`
	Name             string          `json:"name" validate:"required"`
	ContactNumber    string          `json:"contactNumber"`
	Email            string          `json:"email" validate:"omitempty,email"`
	AssignedMembers  int             `json:"assignedMembers"`
	CollectionsToday int             `json:"collectionsToday"`
	TotalCollected   decimal.Decimal `json:"totalCollected"`
	UnionID          string          `json:"unionId"`
}

// CollectionSummary is a read-only aggregate projection fetched from the
// backend; it is never persisted client-side.
type CollectionSummary struct {
	TotalLoans     int             `json:"totalLoans"`
	ActiveLoans    int             `json:"activeLoans"`
	CompletedLoans int             `json:"completedLoans"`
	DefaultedLoans int             `json:"defaultedLoans"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	TotalCollected decimal.Decimal `json:"totalCollected"`
	PendingAmount  decimal.Decimal `json:"pendingAmount"`
}

// Session is the opaque descriptor returned by a successful login. The
// backend issues the session identifier; the client never mints one.
type Session struct {
	UID       int64  `json:"uid"`
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Database  string `json:"db"`
}
