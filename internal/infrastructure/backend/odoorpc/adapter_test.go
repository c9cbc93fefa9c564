package odoorpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranchi/uniondash/internal/domain/loan"
	"github.com/ranchi/uniondash/internal/infrastructure/transport"
)

// rpcCall is the decoded request a stub server receives.
type rpcCall struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  struct {
		Model  string         `json:"model"`
		Method string         `json:"method"`
		Args   []any          `json:"args"`
		Kwargs map[string]any `json:"kwargs"`
	} `json:"params"`
}

// newTestAdapter wires an adapter against a stub RPC handler.
func newTestAdapter(t *testing.T, handle func(t *testing.T, call rpcCall) string) *Adapter {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, rpcPath, r.URL.Path)
		var call rpcCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call))
		assert.Equal(t, "2.0", call.JSONRPC)
		assert.Equal(t, "call", call.Method)
		fmt.Fprint(w, handle(t, call))
	}))
	t.Cleanup(server.Close)

	client, err := transport.NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)
	return NewAdapter(client, "ranchi")
}

// TestListMembersSearchRead tests the search_read call shape for a bulk
// read with options.
func TestListMembersSearchRead(t *testing.T) {
	adapter := newTestAdapter(t, func(t *testing.T, call rpcCall) string {
		assert.Equal(t, "loan.member", call.Params.Model)
		assert.Equal(t, "search_read", call.Params.Method)
		assert.Equal(t, memberFields, toStrings(call.Params.Kwargs["fields"]))
		assert.Equal(t, float64(20), call.Params.Kwargs["limit"])
		assert.Equal(t, "name asc", call.Params.Kwargs["order"])

		// Equality filter lands in the domain.
		require.Len(t, call.Params.Args, 1)
		domain := call.Params.Args[0].([]any)
		require.Len(t, domain, 1)
		clause := domain[0].([]any)
		assert.Equal(t, []any{"status", "=", "active"}, clause)

		return `{"result": [{"id": 1, "name": "Ada", "union_id": [4, "Hilltop"], "balance": false}]}`
	})

	members, err := adapter.ListMembers(context.Background(), &loan.ListOptions{
		Limit:  20,
		Sort:   "name",
		Order:  loan.OrderAsc,
		Filter: map[string]string{"status": "active"},
	})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "1", members[0].ID)
	assert.Equal(t, "4", members[0].UnionID)
}

// TestGetUnionNotFound tests that an empty search result maps to the
// not-found sentinel.
func TestGetUnionNotFound(t *testing.T) {
	adapter := newTestAdapter(t, func(t *testing.T, call rpcCall) string {
		domain := call.Params.Args[0].([]any)
		clause := domain[0].([]any)
		assert.Equal(t, []any{"id", "=", float64(99)}, clause)
		return `{"result": []}`
	})

	_, err := adapter.GetUnion(context.Background(), "99")
	require.Error(t, err)
	assert.ErrorIs(t, err, loan.ErrNotFound)
}

// TestLoanInstallmentsDomain tests the relational constraint on a nested
// read.
func TestLoanInstallmentsDomain(t *testing.T) {
	adapter := newTestAdapter(t, func(t *testing.T, call rpcCall) string {
		assert.Equal(t, "loan.installment", call.Params.Model)
		domain := call.Params.Args[0].([]any)
		clause := domain[0].([]any)
		assert.Equal(t, []any{"loan_id", "=", float64(7)}, clause)
		return `{"result": [{"id": 1, "loan_id": [7, "LN-7"], "status": "pending", "paid_date": false}]}`
	})

	installments, err := adapter.LoanInstallments(context.Background(), "7", nil)
	require.NoError(t, err)
	require.Len(t, installments, 1)
	assert.Equal(t, "7", installments[0].LoanID)
}

// TestOverdueInstallmentsDomain tests the status-equality domain for the
// overdue view.
func TestOverdueInstallmentsDomain(t *testing.T) {
	adapter := newTestAdapter(t, func(t *testing.T, call rpcCall) string {
		domain := call.Params.Args[0].([]any)
		clause := domain[0].([]any)
		assert.Equal(t, []any{"status", "=", "overdue"}, clause)
		return `{"result": []}`
	})

	installments, err := adapter.OverdueInstallments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, installments)
}

// TestCreateMemberReadsBack tests that create sends vals and rereads the
// new record.
func TestCreateMemberReadsBack(t *testing.T) {
	callCount := 0
	adapter := newTestAdapter(t, func(t *testing.T, call rpcCall) string {
		callCount++
		switch call.Params.Method {
		case "create":
			vals := call.Params.Args[0].(map[string]any)
			assert.Equal(t, "Ada", vals["name"])
			assert.Equal(t, float64(4), vals["union_id"])
			return `{"result": 31}`
		case "search_read":
			domain := call.Params.Args[0].([]any)
			clause := domain[0].([]any)
			assert.Equal(t, []any{"id", "=", float64(31)}, clause)
			return `{"result": [{"id": 31, "name": "Ada", "union_id": [4, "Hilltop"]}]}`
		default:
			t.Fatalf("unexpected method %s", call.Params.Method)
			return ""
		}
	})

	created, err := adapter.CreateMember(context.Background(), &loan.Member{
		Name:    "Ada",
		UnionID: "4",
	})
	require.NoError(t, err)
	assert.Equal(t, "31", created.ID)
	assert.Equal(t, 2, callCount)
}

// TestDeleteLoanUnlink tests the unlink call shape.
func TestDeleteLoanUnlink(t *testing.T) {
	adapter := newTestAdapter(t, func(t *testing.T, call rpcCall) string {
		assert.Equal(t, "loan.loan", call.Params.Model)
		assert.Equal(t, "unlink", call.Params.Method)
		ids := call.Params.Args[0].([]any)
		assert.Equal(t, []any{float64(12)}, ids)
		return `{"result": true}`
	})

	require.NoError(t, adapter.DeleteLoan(context.Background(), "12"))
}

// TestRPCErrorEnvelope tests that an error envelope surfaces as a backend
// error.
func TestRPCErrorEnvelope(t *testing.T) {
	adapter := newTestAdapter(t, func(t *testing.T, call rpcCall) string {
		return `{"error": {"code": 200, "message": "Odoo Server Error"}}`
	})

	_, err := adapter.ListLoans(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrBackendError)
	assert.Contains(t, err.Error(), "Odoo Server Error")
}

// TestCollectionSummaryCall tests the aggregate model method.
func TestCollectionSummaryCall(t *testing.T) {
	adapter := newTestAdapter(t, func(t *testing.T, call rpcCall) string {
		assert.Equal(t, "loan.collection.summary", call.Params.Model)
		assert.Equal(t, "get_summary", call.Params.Method)
		return `{"result": {"total_loans": 9, "active_loans": 6, "pending_amount": 1200.5}}`
	})

	summary, err := adapter.CollectionSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, summary.TotalLoans)
	assert.Equal(t, 6, summary.ActiveLoans)
	assert.Equal(t, "1200.5", summary.PendingAmount.String())
}

// TestLoginDatabaseForwarded tests that authentication targets the session
// endpoint with the configured database.
func TestLoginDatabaseForwarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sessionAuthPath, r.URL.Path)
		var call struct {
			Params map[string]any `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call))
		assert.Equal(t, "ranchi", call.Params["db"])
		fmt.Fprint(w, `{"result": {"uid": 2, "session_id": "sess-erp", "username": "admin", "db": "ranchi"}}`)
	}))
	defer server.Close()

	client, err := transport.NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)

	sess, err := NewAdapter(client, "ranchi").Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "sess-erp", sess.SessionID)
}

// toStrings converts a decoded JSON array to strings for comparison.
func toStrings(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		out = append(out, item.(string))
	}
	return out
}
