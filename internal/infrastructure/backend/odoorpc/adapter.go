// Package odoorpc implements the loan.Backend contract against the ERP's
// JSON-RPC endpoint. Reads go through search_read with explicit field lists;
// writes use the standard create/write/unlink model methods.
package odoorpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/ranchi/uniondash/internal/domain/loan"
	"github.com/ranchi/uniondash/internal/infrastructure/transport"
)

const (
	rpcPath            = "/web/jsonrpc"
	sessionAuthPath    = "/web/session/authenticate"
	sessionDestroyPath = "/web/session/destroy"

	modelUnion       = "loan.union"
	modelMember      = "loan.member"
	modelLoan        = "loan.loan"
	modelInstallment = "loan.installment"
	modelCollector   = "loan.collector"
	modelSummary     = "loan.collection.summary"

	datetimeLayout = "2006-01-02 15:04:05"
)

var (
	unionFields       = []string{"id", "name", "leader_id", "purse", "member_count", "create_date", "status"}
	memberFields      = []string{"id", "name", "contact_number", "email", "join_date", "status", "balance", "union_id"}
	loanFields        = []string{"id", "member_id", "amount", "issue_date", "total_installments", "paid_installments", "next_due_date", "status"}
	installmentFields = []string{"id", "loan_id", "member_id", "amount", "due_date", "paid_date", "status", "collector_id"}
	collectorFields   = []string{"id", "name", "contact_number", "email", "assigned_members", "collections_today", "total_collected", "union_id"}
)

// Adapter speaks the ERP's JSON-RPC dialect over the shared transport.
type Adapter struct {
	client   *transport.Client
	database string
	callID   atomic.Int64
}

// NewAdapter creates an ERP adapter over the given transport client.
func NewAdapter(client *transport.Client, database string) *Adapter {
	return &Adapter{client: client, database: database}
}

// ---------------------------------------------------------------------------
// RPC Plumbing
// ---------------------------------------------------------------------------

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// call invokes a model method and returns the raw result.
func (a *Adapter) call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	resp, err := a.client.Post(ctx, rpcPath, rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params: map[string]any{
			"model":   model,
			"method":  method,
			"args":    args,
			"kwargs":  kwargs,
			"context": map[string]any{},
		},
		ID: a.callID.Add(1),
	})
	if err != nil {
		return nil, err
	}
	var envelope rpcResponse
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("odoorpc: decoding rpc response: %w", err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("%w: %s %s: %s", transport.ErrBackendError, model, method, envelope.Error.Message)
	}
	return envelope.Result, nil
}

// numericID passes a record identifier in the ERP's native form where
// possible. Non-numeric identifiers are forwarded as-is.
func numericID(id string) any {
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return id
}

// searchDomain builds the search_read domain from a base relational
// constraint plus the equality filters of ListOptions, keys sorted for
// stable request bodies.
func searchDomain(base [][]any, opts *loan.ListOptions) []any {
	domain := make([]any, 0, len(base))
	for _, clause := range base {
		domain = append(domain, clause)
	}
	if opts != nil && len(opts.Filter) > 0 {
		keys := make([]string, 0, len(opts.Filter))
		for k := range opts.Filter {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			domain = append(domain, []any{k, "=", opts.Filter[k]})
		}
	}
	return domain
}

func searchKwargs(fields []string, opts *loan.ListOptions) map[string]any {
	kwargs := map[string]any{"fields": fields}
	if opts == nil {
		return kwargs
	}
	if opts.Limit > 0 {
		kwargs["limit"] = opts.Limit
	}
	if opts.Offset > 0 {
		kwargs["offset"] = opts.Offset
	}
	if opts.Sort != "" {
		order := opts.Sort
		if opts.Order != "" {
			order += " " + string(opts.Order)
		}
		kwargs["order"] = order
	}
	return kwargs
}

func searchList[T any](ctx context.Context, a *Adapter, model string, base [][]any, fields []string, opts *loan.ListOptions) ([]T, error) {
	result, err := a.call(ctx, model, "search_read", []any{searchDomain(base, opts)}, searchKwargs(fields, opts))
	if err != nil {
		return nil, err
	}
	var records []T
	if err := json.Unmarshal(result, &records); err != nil {
		return nil, fmt.Errorf("odoorpc: decoding %s records: %w", model, err)
	}
	return records, nil
}

func searchOne[T any](ctx context.Context, a *Adapter, model, id string, fields []string) (*T, error) {
	records, err := searchList[T](ctx, a, model, [][]any{{"id", "=", numericID(id)}}, fields, &loan.ListOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s %s", loan.ErrNotFound, model, id)
	}
	return &records[0], nil
}

// create inserts a record and reads it back by its new identifier.
func create[T any](ctx context.Context, a *Adapter, model string, vals map[string]any, fields []string) (*T, error) {
	result, err := a.call(ctx, model, "create", []any{vals}, nil)
	if err != nil {
		return nil, err
	}
	var newID json.Number
	if err := json.Unmarshal(result, &newID); err != nil {
		return nil, fmt.Errorf("odoorpc: decoding created %s id: %w", model, err)
	}
	return searchOne[T](ctx, a, model, newID.String(), fields)
}

// write updates a record and reads it back.
func write[T any](ctx context.Context, a *Adapter, model, id string, vals map[string]any, fields []string) (*T, error) {
	if _, err := a.call(ctx, model, "write", []any{[]any{numericID(id)}, vals}, nil); err != nil {
		return nil, err
	}
	return searchOne[T](ctx, a, model, id, fields)
}

func (a *Adapter) unlink(ctx context.Context, model, id string) error {
	_, err := a.call(ctx, model, "unlink", []any{[]any{numericID(id)}}, nil)
	return err
}

func mapList[R any, T any](records []R, convert func(R) T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		out = append(out, convert(r))
	}
	return out
}

// ---------------------------------------------------------------------------
// Administrative Operations
// ---------------------------------------------------------------------------

type authResponse struct {
	Result *authResult `json:"result"`
	Error  *rpcError   `json:"error"`
}

type authResult struct {
	UID       int64  `json:"uid"`
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	DB        string `json:"db"`
}

// Login authenticates against the named ERP database.
func (a *Adapter) Login(ctx context.Context, username, password string) (*loan.Session, error) {
	resp, err := a.client.Post(ctx, sessionAuthPath, rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params: map[string]any{
			"db":       a.database,
			"login":    username,
			"password": password,
		},
		ID: a.callID.Add(1),
	})
	if err != nil {
		return nil, err
	}
	var auth authResponse
	if err := json.Unmarshal(resp.Body, &auth); err != nil {
		return nil, fmt.Errorf("odoorpc: decoding auth response: %w", err)
	}
	if auth.Error != nil {
		return nil, fmt.Errorf("%w: %s", loan.ErrAuthFailed, auth.Error.Message)
	}
	if auth.Result == nil || auth.Result.SessionID == "" {
		return nil, fmt.Errorf("%w: no session in response", loan.ErrAuthFailed)
	}
	return &loan.Session{
		UID:       auth.Result.UID,
		SessionID: auth.Result.SessionID,
		Username:  auth.Result.Username,
		Name:      auth.Result.Name,
		Database:  auth.Result.DB,
	}, nil
}

// Logout destroys the server-side session.
func (a *Adapter) Logout(ctx context.Context) error {
	_, err := a.client.Post(ctx, sessionDestroyPath, rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  map[string]any{},
		ID:      a.callID.Add(1),
	})
	return err
}

// ---------------------------------------------------------------------------
// Write Payloads
// ---------------------------------------------------------------------------

func unionVals(u *loan.Union) map[string]any {
	vals := map[string]any{
		"name":         u.Name,
		"purse":        u.Purse.InexactFloat64(),
		"member_count": u.MemberCount,
		"status":       string(u.Status),
	}
	if u.LeaderID != "" {
		vals["leader_id"] = numericID(u.LeaderID)
	}
	return vals
}

func memberVals(m *loan.Member) map[string]any {
	vals := map[string]any{
		"name":           m.Name,
		"contact_number": m.ContactNumber,
		"email":          m.Email,
		"status":         string(m.Status),
		"balance":        m.Balance.InexactFloat64(),
	}
	if !m.JoinDate.IsZero() {
		vals["join_date"] = m.JoinDate.Format(datetimeLayout)
	}
	if m.UnionID != "" {
		vals["union_id"] = numericID(m.UnionID)
	}
	return vals
}

func loanVals(l *loan.Loan) map[string]any {
	vals := map[string]any{
		"amount":             l.Amount.InexactFloat64(),
		"total_installments": l.TotalInstallments,
		"paid_installments":  l.PaidInstallments,
		"status":             string(l.Status),
	}
	if l.MemberID != "" {
		vals["member_id"] = numericID(l.MemberID)
	}
	if !l.IssueDate.IsZero() {
		vals["issue_date"] = l.IssueDate.Format(datetimeLayout)
	}
	if !l.NextDueDate.IsZero() {
		vals["next_due_date"] = l.NextDueDate.Format(datetimeLayout)
	}
	return vals
}

func installmentVals(i *loan.Installment) map[string]any {
	vals := map[string]any{
		"amount": i.Amount.InexactFloat64(),
		"status": string(i.Status),
	}
	if i.LoanID != "" {
		vals["loan_id"] = numericID(i.LoanID)
	}
	if i.MemberID != "" {
		vals["member_id"] = numericID(i.MemberID)
	}
	if i.CollectorID != "" {
		vals["collector_id"] = numericID(i.CollectorID)
	}
	if !i.DueDate.IsZero() {
		vals["due_date"] = i.DueDate.Format(datetimeLayout)
	}
	if i.PaidDate != nil {
		vals["paid_date"] = i.PaidDate.Format(datetimeLayout)
	} else {
		vals["paid_date"] = false
	}
	return vals
}

// ---------------------------------------------------------------------------
// Unions
// ---------------------------------------------------------------------------

func (a *Adapter) ListUnions(ctx context.Context, opts *loan.ListOptions) ([]loan.Union, error) {
	records, err := searchList[unionRecord](ctx, a, modelUnion, nil, unionFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, unionRecord.canonical), nil
}

func (a *Adapter) GetUnion(ctx context.Context, id string) (*loan.Union, error) {
	record, err := searchOne[unionRecord](ctx, a, modelUnion, id, unionFields)
	if err != nil {
		return nil, err
	}
	u := record.canonical()
	return &u, nil
}

func (a *Adapter) CreateUnion(ctx context.Context, u *loan.Union) (*loan.Union, error) {
	record, err := create[unionRecord](ctx, a, modelUnion, unionVals(u), unionFields)
	if err != nil {
		return nil, err
	}
	created := record.canonical()
	return &created, nil
}

func (a *Adapter) UpdateUnion(ctx context.Context, id string, u *loan.Union) (*loan.Union, error) {
	record, err := write[unionRecord](ctx, a, modelUnion, id, unionVals(u), unionFields)
	if err != nil {
		return nil, err
	}
	updated := record.canonical()
	return &updated, nil
}

func (a *Adapter) DeleteUnion(ctx context.Context, id string) error {
	return a.unlink(ctx, modelUnion, id)
}

func (a *Adapter) UnionMembers(ctx context.Context, unionID string, opts *loan.ListOptions) ([]loan.Member, error) {
	base := [][]any{{"union_id", "=", numericID(unionID)}}
	records, err := searchList[memberRecord](ctx, a, modelMember, base, memberFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, memberRecord.canonical), nil
}

func (a *Adapter) UnionCollectors(ctx context.Context, unionID string) ([]loan.Collector, error) {
	base := [][]any{{"union_id", "=", numericID(unionID)}}
	records, err := searchList[collectorRecord](ctx, a, modelCollector, base, collectorFields, nil)
	if err != nil {
		return nil, err
	}
	return mapList(records, collectorRecord.canonical), nil
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

func (a *Adapter) ListMembers(ctx context.Context, opts *loan.ListOptions) ([]loan.Member, error) {
	records, err := searchList[memberRecord](ctx, a, modelMember, nil, memberFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, memberRecord.canonical), nil
}

func (a *Adapter) GetMember(ctx context.Context, id string) (*loan.Member, error) {
	record, err := searchOne[memberRecord](ctx, a, modelMember, id, memberFields)
	if err != nil {
		return nil, err
	}
	m := record.canonical()
	return &m, nil
}

func (a *Adapter) CreateMember(ctx context.Context, m *loan.Member) (*loan.Member, error) {
	record, err := create[memberRecord](ctx, a, modelMember, memberVals(m), memberFields)
	if err != nil {
		return nil, err
	}
	created := record.canonical()
	return &created, nil
}

func (a *Adapter) UpdateMember(ctx context.Context, id string, m *loan.Member) (*loan.Member, error) {
	record, err := write[memberRecord](ctx, a, modelMember, id, memberVals(m), memberFields)
	if err != nil {
		return nil, err
	}
	updated := record.canonical()
	return &updated, nil
}

func (a *Adapter) DeleteMember(ctx context.Context, id string) error {
	return a.unlink(ctx, modelMember, id)
}

func (a *Adapter) MemberLoans(ctx context.Context, memberID string, opts *loan.ListOptions) ([]loan.Loan, error) {
	base := [][]any{{"member_id", "=", numericID(memberID)}}
	records, err := searchList[loanRecord](ctx, a, modelLoan, base, loanFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, loanRecord.canonical), nil
}

func (a *Adapter) MemberInstallments(ctx context.Context, memberID string, opts *loan.ListOptions) ([]loan.Installment, error) {
	base := [][]any{{"member_id", "=", numericID(memberID)}}
	records, err := searchList[installmentRecord](ctx, a, modelInstallment, base, installmentFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, installmentRecord.canonical), nil
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

func (a *Adapter) ListLoans(ctx context.Context, opts *loan.ListOptions) ([]loan.Loan, error) {
	records, err := searchList[loanRecord](ctx, a, modelLoan, nil, loanFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, loanRecord.canonical), nil
}

func (a *Adapter) GetLoan(ctx context.Context, id string) (*loan.Loan, error) {
	record, err := searchOne[loanRecord](ctx, a, modelLoan, id, loanFields)
	if err != nil {
		return nil, err
	}
	l := record.canonical()
	return &l, nil
}

func (a *Adapter) CreateLoan(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	record, err := create[loanRecord](ctx, a, modelLoan, loanVals(l), loanFields)
	if err != nil {
		return nil, err
	}
	created := record.canonical()
	return &created, nil
}

func (a *Adapter) UpdateLoan(ctx context.Context, id string, l *loan.Loan) (*loan.Loan, error) {
	record, err := write[loanRecord](ctx, a, modelLoan, id, loanVals(l), loanFields)
	if err != nil {
		return nil, err
	}
	updated := record.canonical()
	return &updated, nil
}

func (a *Adapter) DeleteLoan(ctx context.Context, id string) error {
	return a.unlink(ctx, modelLoan, id)
}

func (a *Adapter) LoanInstallments(ctx context.Context, loanID string, opts *loan.ListOptions) ([]loan.Installment, error) {
	base := [][]any{{"loan_id", "=", numericID(loanID)}}
	records, err := searchList[installmentRecord](ctx, a, modelInstallment, base, installmentFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, installmentRecord.canonical), nil
}

// ---------------------------------------------------------------------------
// Installments
// ---------------------------------------------------------------------------

func (a *Adapter) ListInstallments(ctx context.Context, opts *loan.ListOptions) ([]loan.Installment, error) {
	records, err := searchList[installmentRecord](ctx, a, modelInstallment, nil, installmentFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, installmentRecord.canonical), nil
}

func (a *Adapter) GetInstallment(ctx context.Context, id string) (*loan.Installment, error) {
	record, err := searchOne[installmentRecord](ctx, a, modelInstallment, id, installmentFields)
	if err != nil {
		return nil, err
	}
	inst := record.canonical()
	return &inst, nil
}

func (a *Adapter) CreateInstallment(ctx context.Context, i *loan.Installment) (*loan.Installment, error) {
	record, err := create[installmentRecord](ctx, a, modelInstallment, installmentVals(i), installmentFields)
	if err != nil {
		return nil, err
	}
	created := record.canonical()
	return &created, nil
}

func (a *Adapter) UpdateInstallment(ctx context.Context, id string, i *loan.Installment) (*loan.Installment, error) {
	record, err := write[installmentRecord](ctx, a, modelInstallment, id, installmentVals(i), installmentFields)
	if err != nil {
		return nil, err
	}
	updated := record.canonical()
	return &updated, nil
}

func (a *Adapter) DeleteInstallment(ctx context.Context, id string) error {
	return a.unlink(ctx, modelInstallment, id)
}

func (a *Adapter) OverdueInstallments(ctx context.Context, opts *loan.ListOptions) ([]loan.Installment, error) {
	base := [][]any{{"status", "=", string(loan.InstallmentStatusOverdue)}}
	records, err := searchList[installmentRecord](ctx, a, modelInstallment, base, installmentFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, installmentRecord.canonical), nil
}

func (a *Adapter) PendingInstallments(ctx context.Context, opts *loan.ListOptions) ([]loan.Installment, error) {
	base := [][]any{{"status", "=", string(loan.InstallmentStatusPending)}}
	records, err := searchList[installmentRecord](ctx, a, modelInstallment, base, installmentFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, installmentRecord.canonical), nil
}

// ---------------------------------------------------------------------------
// Collectors
// ---------------------------------------------------------------------------

func (a *Adapter) ListCollectors(ctx context.Context, opts *loan.ListOptions) ([]loan.Collector, error) {
	records, err := searchList[collectorRecord](ctx, a, modelCollector, nil, collectorFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, collectorRecord.canonical), nil
}

func (a *Adapter) GetCollector(ctx context.Context, id string) (*loan.Collector, error) {
	record, err := searchOne[collectorRecord](ctx, a, modelCollector, id, collectorFields)
	if err != nil {
		return nil, err
	}
	c := record.canonical()
	return &c, nil
}

func (a *Adapter) CollectorInstallments(ctx context.Context, collectorID string, opts *loan.ListOptions) ([]loan.Installment, error) {
	base := [][]any{{"collector_id", "=", numericID(collectorID)}}
	records, err := searchList[installmentRecord](ctx, a, modelInstallment, base, installmentFields, opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, installmentRecord.canonical), nil
}

// ---------------------------------------------------------------------------
// Aggregates
// ---------------------------------------------------------------------------

func (a *Adapter) CollectionSummary(ctx context.Context) (*loan.CollectionSummary, error) {
	result, err := a.call(ctx, modelSummary, "get_summary", nil, nil)
	if err != nil {
		return nil, err
	}
	var record summaryRecord
	if err := json.Unmarshal(result, &record); err != nil {
		return nil, fmt.Errorf("odoorpc: decoding collection summary: %w", err)
	}
	summary := record.canonical()
	return &summary, nil
}

// Ensure Adapter implements the backend contract.
var _ loan.Backend = (*Adapter)(nil)
