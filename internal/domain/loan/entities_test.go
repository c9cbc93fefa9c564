package loan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestLoanProgress tests repayment progress calculation.
func TestLoanProgress(t *testing.T) {
	assert.Equal(t, 50.0, Loan{TotalInstallments: 10, PaidInstallments: 5}.Progress())
	assert.Equal(t, 100.0, Loan{TotalInstallments: 4, PaidInstallments: 4}.Progress())
	assert.Equal(t, 0.0, Loan{TotalInstallments: 10}.Progress())

	// A malformed total never divides by zero.
	assert.Equal(t, 0.0, Loan{}.Progress())
}

// TestInstallmentDaysOverdue tests the overdue-day counter.
func TestInstallmentDaysOverdue(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	due := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 5, Installment{Status: InstallmentStatusOverdue, DueDate: due}.DaysOverdue(now))

	// Paid installments never count as overdue.
	assert.Equal(t, 0, Installment{Status: InstallmentStatusPaid, DueDate: due}.DaysOverdue(now))

	// Not yet due.
	future := now.Add(48 * time.Hour)
	assert.Equal(t, 0, Installment{Status: InstallmentStatusPending, DueDate: future}.DaysOverdue(now))

	// Same instant is not overdue.
	assert.Equal(t, 0, Installment{Status: InstallmentStatusPending, DueDate: now}.DaysOverdue(now))
}

// TestStatusValidity tests the known-value checks on status types.
func TestStatusValidity(t *testing.T) {
	assert.True(t, MembershipStatusActive.IsValid())
	assert.True(t, MembershipStatusInactive.IsValid())
	assert.False(t, MembershipStatus("dormant").IsValid())

	assert.True(t, LoanStatusActive.IsValid())
	assert.True(t, LoanStatusCompleted.IsValid())
	assert.True(t, LoanStatusDefaulted.IsValid())
	assert.False(t, LoanStatus("").IsValid())

	assert.True(t, InstallmentStatusPaid.IsValid())
	assert.True(t, InstallmentStatusPending.IsValid())
	assert.True(t, InstallmentStatusOverdue.IsValid())
	assert.False(t, InstallmentStatus("skipped").IsValid())
}
