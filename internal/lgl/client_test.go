package lgl

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/pkg/httpretry"
)

// fakeLGL is a scripted CRM. Handlers are keyed by "METHOD path".
type fakeLGL struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    []*http.Request
	bodies   []string
}

func newFakeLGL(t *testing.T) (*fakeLGL, *Client) {
	t.Helper()
	f := &fakeLGL{handlers: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, r)
		f.bodies = append(f.bodies, string(body))
		h := f.handlers[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if h == nil {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:      srv.URL + "/api/v1/",
		APIKey:       "secret-key",
		MaxRetries:   1,
		GiftTypeID:   3,
		RetryOptions: []httpretry.Option{httpretry.WithDelays(time.Millisecond, time.Millisecond)},
	})
	return f, c
}

func jsonReply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func searchBy(byEmail, byName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("q[]")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(term, "email="):
			_, _ = w.Write([]byte(byEmail))
		default:
			_, _ = w.Write([]byte(byName))
		}
	}
}

const noItems = `{"items_count":0,"items":[]}`

var paidAt = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func testOrder() domain.Order {
	return domain.Order{
		ID:            "1001",
		CustomerID:    "cust-7",
		CustomerEmail: " Pat@Example.org ",
		FirstName:     "Pat",
		LastName:      "Member",
		Total:         120,
		Currency:      "USD",
		PaymentMethod: "stripe",
		TransactionID: "ch_1",
		Items:         []domain.OrderItem{{Name: "Annual membership", Quantity: 1, Total: 120, Membership: true}},
		PaidAt:        &paidAt,
	}
}

func TestSyncConstituent_MatchByEmail(t *testing.T) {
	f, c := newFakeLGL(t)
	f.handlers["GET /api/v1/constituents/search.json"] = searchBy(`{"items_count":1,"items":[{"id":501}]}`, noItems)

	res := c.SyncConstituent(context.Background(), testOrder())
	assert.True(t, res.Success)
	assert.Equal(t, "501", res.ConstituentID)
	assert.Equal(t, domain.MatchEmail, res.MatchMethod)
	assert.Equal(t, "pat@example.org", res.MatchedEmail)
	assert.Contains(t, string(res.Raw), `"id":501`)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "Bearer secret-key", f.calls[0].Header.Get("Authorization"))
	assert.Equal(t, "email=pat@example.org", f.calls[0].URL.Query().Get("q[]"))
}

func TestSyncConstituent_MatchByName(t *testing.T) {
	f, c := newFakeLGL(t)
	f.handlers["GET /api/v1/constituents/search.json"] = searchBy(noItems, `{"items_count":1,"items":[{"id":"777"}]}`)

	res := c.SyncConstituent(context.Background(), testOrder())
	assert.True(t, res.Success)
	assert.Equal(t, "777", res.ConstituentID)
	assert.Equal(t, domain.MatchName, res.MatchMethod)
	assert.Empty(t, res.MatchedEmail)
}

func TestSyncConstituent_AmbiguousNameCreates(t *testing.T) {
	f, c := newFakeLGL(t)
	f.handlers["GET /api/v1/constituents/search.json"] = searchBy(noItems, `{"items_count":2,"items":[{"id":1},{"id":2}]}`)
	f.handlers["POST /api/v1/constituents.json"] = jsonReply(http.StatusCreated, `{"id":900,"first_name":"Pat"}`)

	res := c.SyncConstituent(context.Background(), testOrder())
	assert.True(t, res.Success)
	assert.Equal(t, "900", res.ConstituentID)
	assert.Equal(t, domain.MatchNone, res.MatchMethod)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(f.bodies[len(f.bodies)-1]), &created))
	assert.Equal(t, "Pat", created["first_name"])
	assert.Equal(t, "cust-7", created["external_constituent_id"])
}

func TestSyncConstituent_SearchFailure(t *testing.T) {
	f, c := newFakeLGL(t)
	f.handlers["GET /api/v1/constituents/search.json"] = jsonReply(http.StatusUnauthorized, `{"error":"bad token"}`)

	res := c.SyncConstituent(context.Background(), testOrder())
	assert.False(t, res.Success)
	assert.Empty(t, res.ConstituentID)
	assert.JSONEq(t, `{"error":"bad token"}`, string(res.Raw))
	assert.Len(t, f.calls, 1, "no create after a failed search")
}

func TestSyncConstituent_CreateWithoutID(t *testing.T) {
	f, c := newFakeLGL(t)
	f.handlers["GET /api/v1/constituents/search.json"] = searchBy(noItems, noItems)
	f.handlers["POST /api/v1/constituents.json"] = jsonReply(http.StatusOK, `{"status":"queued"}`)

	res := c.SyncConstituent(context.Background(), testOrder())
	assert.False(t, res.Success)
	assert.JSONEq(t, `{"status":"queued"}`, string(res.Raw))
}

func TestSyncConstituent_TransportError(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", APIKey: "k", MaxRetries: 1,
		RetryOptions: []httpretry.Option{httpretry.WithDelays(time.Millisecond, time.Millisecond)}})

	res := c.SyncConstituent(context.Background(), testOrder())
	assert.False(t, res.Success)
	assert.Contains(t, string(res.Raw), `"error"`)
}

func TestCreatePayment(t *testing.T) {
	f, c := newFakeLGL(t)
	f.handlers["POST /api/v1/constituents/501/gifts.json"] = jsonReply(http.StatusCreated, `{"id":"g-88"}`)

	res := c.CreatePayment(context.Background(), "501", testOrder())
	assert.True(t, res.Success)
	assert.Equal(t, "g-88", res.PaymentID)

	require.Len(t, f.calls, 1)
	assert.Equal(t, PaymentKey("1001"), f.calls[0].Header.Get("Idempotency-Key"))

	var gift map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(f.bodies[0]), &gift))
	assert.Equal(t, PaymentKey("1001"), gift["external_id"])
	assert.Equal(t, float64(120), gift["received_amount"])
	assert.Equal(t, "2026-03-10", gift["received_date"])
	assert.Equal(t, float64(3), gift["gift_type_id"])
	assert.Equal(t, "Store order 1001 (transaction ch_1): Annual membership", gift["note"])
}

func TestCreatePayment_Rejected(t *testing.T) {
	f, c := newFakeLGL(t)
	f.handlers["POST /api/v1/constituents/501/gifts.json"] = jsonReply(http.StatusUnprocessableEntity, `{"errors":["amount"]}`)

	res := c.CreatePayment(context.Background(), "501", testOrder())
	assert.False(t, res.Success)
	assert.Empty(t, res.PaymentID)
	assert.JSONEq(t, `{"errors":["amount"]}`, string(res.Raw))
}

func TestCreatePayment_NoConstituent(t *testing.T) {
	_, c := newFakeLGL(t)
	res := c.CreatePayment(context.Background(), "", testOrder())
	assert.False(t, res.Success)
	assert.Contains(t, string(res.Raw), "no constituent id")
}

func TestPaymentKey_Deterministic(t *testing.T) {
	assert.Equal(t, PaymentKey("1001"), PaymentKey("1001"))
	assert.NotEqual(t, PaymentKey("1001"), PaymentKey("1002"))
}
