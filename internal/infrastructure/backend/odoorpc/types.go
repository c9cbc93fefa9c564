package odoorpc

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
//
// The ERP renders every null-ish field as JSON false, and relational
// references as [id, "Display Name"] tuples. These types absorb all of that
// so the record structs decode without special cases.

// recordID decodes a record identifier from a bare number, a string, a
// relational [id, name] tuple, false, or null. Absent values decode to "".
type recordID struct {
	value string
}

func (r *recordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("false")) || bytes.Equal(data, []byte("null")) {
		r.value = ""
		return nil
	}
	if data[0] == '[' {
		var tuple []json.RawMessage
		if err := json.Unmarshal(data, &tuple); err != nil || len(tuple) == 0 {
			r.value = ""
			return nil
		}
		data = tuple[0]
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			r.value = ""
			return nil
		}
		r.value = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		r.value = ""
		return nil
	}
	r.value = n.String()
	return nil
}

func (r recordID) String() string { return r.value }

// optString decodes a string field, treating false and null as empty.
type optString string

func (s *optString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	*s = optString(v)
	return nil
}

// optInt decodes an integer field, treating false and null as zero.
type optInt int

func (i *optInt) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(bytes.TrimSpace(data), &v); err != nil {
		*i = 0
		return nil
	}
	*i = optInt(v)
	return nil
}

// optMoney decodes a monetary field, treating false and null as zero.
type optMoney struct {
	decimal.Decimal
}

func (m *optMoney) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("false")) || bytes.Equal(data, []byte("null")) {
		m.Decimal = decimal.Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		m.Decimal = decimal.Zero
		return nil
	}
	m.Decimal = d
	return nil
}

// odooTimeLayouts are the datetime renderings the ERP emits.
var odooTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// optTime decodes a datetime field, treating false, null, and unparseable
// values as absent.
type optTime struct {
	Time  time.Time
	Valid bool
}

func (t *optTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	t.Valid = false
	if len(data) == 0 || data[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range odooTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			t.Valid = true
			return nil
		}
	}
	return nil
}

// orNow returns the parsed time, defaulting to the current instant.
func (t optTime) orNow() time.Time {
	if t.Valid {
		return t.Time
	}
	return time.Now()
}

// orNil returns the parsed time as a pointer, or nil when absent.
func (t optTime) orNil() *time.Time {
	if !t.Valid {
		return nil
	}
	parsed := t.Time
	return &parsed
}

// ---------------------------------------------------------------------------
// Wire Records
// ---------------------------------------------------------------------------

type unionRecord struct {
	ID          recordID  `json:"id"`
	Name        optString `json:"name"`
	LeaderID    recordID  `json:"leader_id"`
	Purse       optMoney  `json:"purse"`
	MemberCount optInt    `json:"member_count"`
	CreateDate  optTime   `json:"create_date"`
	Status      optString `json:"status"`
}

func (r unionRecord) canonical() loan.Union {
	return loan.Union{
		ID:          r.ID.String(),
		Name:        string(r.Name),
		LeaderID:    r.LeaderID.String(),
		Purse:       r.Purse.Decimal,
		MemberCount: int(r.MemberCount),
		CreatedDate: r.CreateDate.orNow(),
		Status:      loan.MembershipStatus(r.Status),
	}
}

type memberRecord struct {
	ID            recordID  `json:"id"`
	Name          optString `json:"name"`
	ContactNumber optString `json:"contact_number"`
	Email         optString `json:"email"`
	JoinDate      optTime   `json:"join_date"`
	Status        optString `json:"status"`
	Balance       optMoney  `json:"balance"`
	UnionID       recordID  `json:"union_id"`
}

func (r memberRecord) canonical() loan.Member {
	return loan.Member{
		ID:            r.ID.String(),
		Name:          string(r.Name),
		ContactNumber: string(r.ContactNumber),
		Email:         string(r.Email),
		JoinDate:      r.JoinDate.orNow(),
		Status:        loan.MembershipStatus(r.Status),
		Balance:       r.Balance.Decimal,
		UnionID:       r.UnionID.String(),
	}
}

type loanRecord struct {
	ID                recordID  `json:"id"`
	MemberID          recordID  `json:"member_id"`
	Amount            optMoney  `json:"amount"`
	IssueDate         optTime   `json:"issue_date"`
	TotalInstallments optInt    `json:"total_installments"`
	PaidInstallments  optInt    `json:"paid_installments"`
	NextDueDate       optTime   `json:"next_due_date"`
	Status            optString `json:"status"`
}

func (r loanRecord) canonical() loan.Loan {
	return loan.Loan{
		ID:                r.ID.String(),
		MemberID:          r.MemberID.String(),
		Amount:            r.Amount.Decimal,
		IssueDate:         r.IssueDate.orNow(),
		TotalInstallments: int(r.TotalInstallments),
		PaidInstallments:  int(r.PaidInstallments),
		NextDueDate:       r.NextDueDate.orNow(),
		Status:            loan.LoanStatus(r.Status),
	}
}

type installmentRecord struct {
	ID          recordID  `json:"id"`
	LoanID      recordID  `json:"loan_id"`
	MemberID    recordID  `json:"member_id"`
	Amount      optMoney  `json:"amount"`
	DueDate     optTime   `json:"due_date"`
	PaidDate    optTime   `json:"paid_date"`
	Status      optString `json:"status"`
	CollectorID recordID  `json:"collector_id"`
}

func (r installmentRecord) canonical() loan.Installment {
	return loan.Installment{
		ID:          r.ID.String(),
		LoanID:      r.LoanID.String(),
		MemberID:    r.MemberID.String(),
		Amount:      r.Amount.Decimal,
		DueDate:     r.DueDate.orNow(),
		PaidDate:    r.PaidDate.orNil(),
		Status:      loan.InstallmentStatus(r.Status),
		CollectorID: r.CollectorID.String(),
	}
}

type collectorRecord struct {
	ID               recordID  `json:"id"`
	Name             optString `json:"name"`
	ContactNumber    optString `json:"contact_number"`
	Email            optString `json:"email"`
	AssignedMembers  optInt    `json:"assigned_members"`
	CollectionsToday optInt    `json:"collections_today"`
	TotalCollected   optMoney  `json:"total_collected"`
	UnionID          recordID  `json:"union_id"`
}

func (r collectorRecord) canonical() loan.Collector {
	return loan.Collector{
		ID:               r.ID.String(),
		Name:             string(r.Name),
		ContactNumber:    string(r.ContactNumber),
		Email:            string(r.Email),
		AssignedMembers:  int(r.AssignedMembers),
		CollectionsToday: int(r.CollectionsToday),
		TotalCollected:   r.TotalCollected.Decimal,
		UnionID:          r.UnionID.String(),
	}
}

type summaryRecord struct {
	TotalLoans     optInt   `json:"total_loans"`
	ActiveLoans    optInt   `json:"active_loans"`
	CompletedLoans optInt   `json:"completed_loans"`
	DefaultedLoans optInt   `json:"defaulted_loans"`
	TotalAmount    optMoney `json:"total_amount"`
	TotalCollected optMoney `json:"total_collected"`
	PendingAmount  optMoney `json:"pending_amount"`
}

func (r summaryRecord) canonical() loan.CollectionSummary {
	return loan.CollectionSummary{
		TotalLoans:     int(r.TotalLoans),
		ActiveLoans:    int(r.ActiveLoans),
		CompletedLoans: int(r.CompletedLoans),
		DefaultedLoans: int(r.DefaultedLoans),
		TotalAmount:    r.TotalAmount.Decimal,
		TotalCollected: r.TotalCollected.Decimal,
		PendingAmount:  r.PendingAmount.Decimal,
	}
}
