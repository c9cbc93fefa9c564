// Package rest implements the loan.Backend contract against the REST facade
// described by the /api wire contract. Every response is normalized through
// the three-shape envelope rule before records are mapped into the canonical
// model.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/ranchi/uniondash/internal/domain/loan"
	"github.com/ranchi/uniondash/internal/infrastructure/transport"
)

const (
	apiBasePath        = "/api"
	sessionAuthPath    = "/web/session/authenticate"
	sessionDestroyPath = "/web/session/destroy"
)

// Adapter translates domain operations into resource-oriented REST calls.
type Adapter struct {
	client   *transport.Client
	database string
}

// NewAdapter creates a REST adapter over the given transport client. The
// database name is forwarded to the session-authentication endpoint, which
// the facade proxies to the ERP.
func NewAdapter(client *transport.Client, database string) *Adapter {
	return &Adapter{client: client, database: database}
}

// ---------------------------------------------------------------------------
// Administrative Operations
// ---------------------------------------------------------------------------

type rpcEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

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

// Login posts credentials and returns the server-issued session descriptor.
func (a *Adapter) Login(ctx context.Context, username, password string) (*loan.Session, error) {
	resp, err := a.client.Post(ctx, sessionAuthPath, rpcEnvelope{
		JSONRPC: "2.0",
		Method:  "call",
		Params: map[string]any{
			"db":       a.database,
			"login":    username,
			"password": password,
		},
	})
	if err != nil {
		return nil, err
	}

	var auth authResponse
	if err := json.Unmarshal(resp.Body, &auth); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
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

// Logout destroys the server-side session. Callers clear local session
// state regardless of the outcome.
func (a *Adapter) Logout(ctx context.Context) error {
	_, err := a.client.Post(ctx, sessionDestroyPath, rpcEnvelope{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  map[string]any{},
	})
	return err
}

// ---------------------------------------------------------------------------
// Generic Call Helpers
// ---------------------------------------------------------------------------

// queryParams converts ListOptions into passthrough query parameters. The
// filter is comma-joined key=value pairs, keys sorted for stable URLs.
func queryParams(opts *loan.ListOptions) map[string]string {
	if opts == nil {
		return nil
	}
	params := make(map[string]string)
	if opts.Limit > 0 {
		params["limit"] = strconv.Itoa(opts.Limit)
	}
	if opts.Offset > 0 {
		params["offset"] = strconv.Itoa(opts.Offset)
	}
	if opts.Sort != "" {
		params["sort"] = opts.Sort
	}
	if opts.Order != "" {
		params["order"] = string(opts.Order)
	}
	if len(opts.Filter) > 0 {
		keys := make([]string, 0, len(opts.Filter))
		for k := range opts.Filter {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+opts.Filter[k])
		}
		params["filter"] = strings.Join(pairs, ",")
	}
	if len(params) == 0 {
		return nil
	}
	return params
}

// isNotFound reports whether the transport error is an HTTP 404.
func isNotFound(err error) bool {
	var apiErr *transport.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func listCall[T any](ctx context.Context, a *Adapter, path string, opts *loan.ListOptions) ([]T, error) {
	resp, err := a.client.Get(ctx, path, queryParams(opts))
	if err != nil {
		return nil, err
	}
	return decodeList[T](resp.Body)
}

func getCall[T any](ctx context.Context, a *Adapter, path, id string) (*T, error) {
	resp, err := a.client.Get(ctx, path, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", loan.ErrNotFound, id)
		}
		return nil, err
	}
	record, err := decodeOne[T](resp.Body)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", loan.ErrNotFound, id)
	}
	return record, nil
}

func writeCall[T any](ctx context.Context, a *Adapter, method, path string, body any) (*T, error) {
	resp, err := a.client.Do(ctx, transport.Request{Method: method, Path: path, Body: body})
	if err != nil {
		return nil, err
	}
	record, err := decodeOne[T](resp.Body)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: empty write response", ErrInvalidResponse)
	}
	return record, nil
}

func mapList[R any, T any](records []R, convert func(R) T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		out = append(out, convert(r))
	}
	return out
}

// ---------------------------------------------------------------------------
// Unions
// ---------------------------------------------------------------------------

func (a *Adapter) ListUnions(ctx context.Context, opts *loan.ListOptions) ([]loan.Union, error) {
	records, err := listCall[unionRecord](ctx, a, apiBasePath+"/unions", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, unionRecord.canonical), nil
}

func (a *Adapter) GetUnion(ctx context.Context, id string) (*loan.Union, error) {
	record, err := getCall[unionRecord](ctx, a, apiBasePath+"/unions/"+id, id)
	if err != nil {
		return nil, err
	}
	u := record.canonical()
	return &u, nil
}

func (a *Adapter) CreateUnion(ctx context.Context, u *loan.Union) (*loan.Union, error) {
	record, err := writeCall[unionRecord](ctx, a, http.MethodPost, apiBasePath+"/unions", u)
	if err != nil {
		return nil, err
	}
	created := record.canonical()
	return &created, nil
}

func (a *Adapter) UpdateUnion(ctx context.Context, id string, u *loan.Union) (*loan.Union, error) {
	record, err := writeCall[unionRecord](ctx, a, http.MethodPut, apiBasePath+"/unions/"+id, u)
	if err != nil {
		return nil, err
	}
	updated := record.canonical()
	return &updated, nil
}

func (a *Adapter) DeleteUnion(ctx context.Context, id string) error {
	_, err := a.client.Delete(ctx, apiBasePath+"/unions/"+id)
	return err
}

func (a *Adapter) UnionMembers(ctx context.Context, unionID string, opts *loan.ListOptions) ([]loan.Member, error) {
	records, err := listCall[memberRecord](ctx, a, apiBasePath+"/unions/"+unionID+"/members", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r memberRecord) loan.Member { return r.canonical(unionID) }), nil
}

func (a *Adapter) UnionCollectors(ctx context.Context, unionID string) ([]loan.Collector, error) {
	records, err := listCall[collectorRecord](ctx, a, apiBasePath+"/unions/"+unionID+"/collectors", nil)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r collectorRecord) loan.Collector { return r.canonical(unionID) }), nil
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

func (a *Adapter) ListMembers(ctx context.Context, opts *loan.ListOptions) ([]loan.Member, error) {
	records, err := listCall[memberRecord](ctx, a, apiBasePath+"/members", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r memberRecord) loan.Member { return r.canonical("") }), nil
}

func (a *Adapter) GetMember(ctx context.Context, id string) (*loan.Member, error) {
	record, err := getCall[memberRecord](ctx, a, apiBasePath+"/members/"+id, id)
	if err != nil {
		return nil, err
	}
	m := record.canonical("")
	return &m, nil
}

func (a *Adapter) CreateMember(ctx context.Context, m *loan.Member) (*loan.Member, error) {
	record, err := writeCall[memberRecord](ctx, a, http.MethodPost, apiBasePath+"/members", m)
	if err != nil {
		return nil, err
	}
	created := record.canonical("")
	return &created, nil
}

func (a *Adapter) UpdateMember(ctx context.Context, id string, m *loan.Member) (*loan.Member, error) {
	record, err := writeCall[memberRecord](ctx, a, http.MethodPut, apiBasePath+"/members/"+id, m)
	if err != nil {
		return nil, err
	}
	updated := record.canonical("")
	return &updated, nil
}

func (a *Adapter) DeleteMember(ctx context.Context, id string) error {
	_, err := a.client.Delete(ctx, apiBasePath+"/members/"+id)
	return err
}

func (a *Adapter) MemberLoans(ctx context.Context, memberID string, opts *loan.ListOptions) ([]loan.Loan, error) {
	records, err := listCall[loanRecord](ctx, a, apiBasePath+"/members/"+memberID+"/loans", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r loanRecord) loan.Loan { return r.canonical(memberID) }), nil
}

func (a *Adapter) MemberInstallments(ctx context.Context, memberID string, opts *loan.ListOptions) ([]loan.Installment, error) {
	records, err := listCall[installmentRecord](ctx, a, apiBasePath+"/members/"+memberID+"/installments", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r installmentRecord) loan.Installment { return r.canonical("", memberID) }), nil
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

func (a *Adapter) ListLoans(ctx context.Context, opts *loan.ListOptions) ([]loan.Loan, error) {
	records, err := listCall[loanRecord](ctx, a, apiBasePath+"/loans", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r loanRecord) loan.Loan { return r.canonical("") }), nil
}

func (a *Adapter) GetLoan(ctx context.Context, id string) (*loan.Loan, error) {
	record, err := getCall[loanRecord](ctx, a, apiBasePath+"/loans/"+id, id)
	if err != nil {
		return nil, err
	}
	l := record.canonical("")
	return &l, nil
}

func (a *Adapter) CreateLoan(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	record, err := writeCall[loanRecord](ctx, a, http.MethodPost, apiBasePath+"/loans", l)
	if err != nil {
		return nil, err
	}
	created := record.canonical("")
	return &created, nil
}

func (a *Adapter) UpdateLoan(ctx context.Context, id string, l *loan.Loan) (*loan.Loan, error) {
	record, err := writeCall[loanRecord](ctx, a, http.MethodPut, apiBasePath+"/loans/"+id, l)
	if err != nil {
		return nil, err
	}
	updated := record.canonical("")
	return &updated, nil
}

func (a *Adapter) DeleteLoan(ctx context.Context, id string) error {
	_, err := a.client.Delete(ctx, apiBasePath+"/loans/"+id)
	return err
}

func (a *Adapter) LoanInstallments(ctx context.Context, loanID string, opts *loan.ListOptions) ([]loan.Installment, error) {
	records, err := listCall[installmentRecord](ctx, a, apiBasePath+"/loans/"+loanID+"/installments", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r installmentRecord) loan.Installment { return r.canonical(loanID, "") }), nil
}

// ---------------------------------------------------------------------------
// Installments
// ---------------------------------------------------------------------------

func (a *Adapter) ListInstallments(ctx context.Context, opts *loan.ListOptions) ([]loan.Installment, error) {
	records, err := listCall[installmentRecord](ctx, a, apiBasePath+"/installments", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r installmentRecord) loan.Installment { return r.canonical("", "") }), nil
}

func (a *Adapter) GetInstallment(ctx context.Context, id string) (*loan.Installment, error) {
	record, err := getCall[installmentRecord](ctx, a, apiBasePath+"/installments/"+id, id)
	if err != nil {
		return nil, err
	}
	inst := record.canonical("", "")
	return &inst, nil
}

func (a *Adapter) CreateInstallment(ctx context.Context, i *loan.Installment) (*loan.Installment, error) {
	record, err := writeCall[installmentRecord](ctx, a, http.MethodPost, apiBasePath+"/installments", i)
	if err != nil {
		return nil, err
	}
	created := record.canonical("", "")
	return &created, nil
}

func (a *Adapter) UpdateInstallment(ctx context.Context, id string, i *loan.Installment) (*loan.Installment, error) {
	record, err := writeCall[installmentRecord](ctx, a, http.MethodPut, apiBasePath+"/installments/"+id, i)
	if err != nil {
		return nil, err
	}
	updated := record.canonical("", "")
	return &updated, nil
}

func (a *Adapter) DeleteInstallment(ctx context.Context, id string) error {
	_, err := a.client.Delete(ctx, apiBasePath+"/installments/"+id)
	return err
}

func (a *Adapter) OverdueInstallments(ctx context.Context, opts *loan.ListOptions) ([]loan.Installment, error) {
	records, err := listCall[installmentRecord](ctx, a, apiBasePath+"/installments/overdue", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r installmentRecord) loan.Installment { return r.canonical("", "") }), nil
}

func (a *Adapter) PendingInstallments(ctx context.Context, opts *loan.ListOptions) ([]loan.Installment, error) {
	records, err := listCall[installmentRecord](ctx, a, apiBasePath+"/installments/pending", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r installmentRecord) loan.Installment { return r.canonical("", "") }), nil
}

// ---------------------------------------------------------------------------
// Collectors
// ---------------------------------------------------------------------------

func (a *Adapter) ListCollectors(ctx context.Context, opts *loan.ListOptions) ([]loan.Collector, error) {
	records, err := listCall[collectorRecord](ctx, a, apiBasePath+"/collectors", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r collectorRecord) loan.Collector { return r.canonical("") }), nil
}

func (a *Adapter) GetCollector(ctx context.Context, id string) (*loan.Collector, error) {
	record, err := getCall[collectorRecord](ctx, a, apiBasePath+"/collectors/"+id, id)
	if err != nil {
		return nil, err
	}
	c := record.canonical("")
	return &c, nil
}

func (a *Adapter) CollectorInstallments(ctx context.Context, collectorID string, opts *loan.ListOptions) ([]loan.Installment, error) {
	records, err := listCall[installmentRecord](ctx, a, apiBasePath+"/collectors/"+collectorID+"/installments", opts)
	if err != nil {
		return nil, err
	}
	return mapList(records, func(r installmentRecord) loan.Installment { return r.canonical("", "") }), nil
}

// ---------------------------------------------------------------------------
// Aggregates
// ---------------------------------------------------------------------------

func (a *Adapter) CollectionSummary(ctx context.Context) (*loan.CollectionSummary, error) {
	resp, err := a.client.Get(ctx, apiBasePath+"/summary/collection", nil)
	if err != nil {
		return nil, err
	}
	record, err := decodeOne[summaryRecord](resp.Body)
	if err != nil {
		return nil, err
	}
	if record == nil {
		// Omitted summary fields default to zero.
		return &loan.CollectionSummary{}, nil
	}
	summary := record.canonical()
	return &summary, nil
}

// Ensure Adapter implements the backend contract.
var _ loan.Backend = (*Adapter)(nil)
