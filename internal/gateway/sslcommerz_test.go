package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(srv *httptest.Server, timeout time.Duration) *Client {
	return NewClient(Config{
		MerchantID:     "store",
		MerchantSecret: "store@ssl",
		InitURL:        srv.URL + "/gwprocess/v4/api.php",
		ValidationURL:  srv.URL + "/validator/api/validationserverAPI.php",
		SuccessURL:     "http://api.local/success-payment",
		FailURL:        "http://api.local/fail",
		CancelURL:      "http://api.local/cancle",
		Timeout:        timeout,
	}, zap.NewNop())
}

func sampleInit() InitRequest {
	return InitRequest{
		TranID:        "3f1c7c1e-9d4b-4a55-8a57-8c1f2ef1c001",
		Amount:        decimal.RequireFromString("250.5"),
		Currency:      "BDT",
		CustomerName:  "Diner",
		CustomerEmail: "diner@example.com",
		ItemCount:     2,
	}
}

func TestInitiate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/gwprocess/v4/api.php", r.URL.Path)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "store", r.PostForm.Get("store_id"))
		assert.Equal(t, "store@ssl", r.PostForm.Get("store_passwd"))
		assert.Equal(t, "250.50", r.PostForm.Get("total_amount"))
		assert.Equal(t, "BDT", r.PostForm.Get("currency"))
		assert.Equal(t, "3f1c7c1e-9d4b-4a55-8a57-8c1f2ef1c001", r.PostForm.Get("tran_id"))
		assert.Equal(t, "http://api.local/success-payment", r.PostForm.Get("success_url"))
		assert.Equal(t, "http://api.local/fail", r.PostForm.Get("fail_url"))
		assert.Equal(t, "http://api.local/cancle", r.PostForm.Get("cancel_url"))
		assert.Equal(t, "diner@example.com", r.PostForm.Get("cus_email"))
		assert.Equal(t, "NO", r.PostForm.Get("shipping_method"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"SUCCESS","sessionkey":"SK123","GatewayPageURL":"https://sandbox.sslcommerz.com/EasyCheckOut/SK123"}`))
	}))
	defer srv.Close()

	session, err := newTestClient(srv, time.Second).Initiate(context.Background(), sampleInit())
	require.NoError(t, err)
	assert.Equal(t, "SK123", session.SessionKey)
	assert.Equal(t, "https://sandbox.sslcommerz.com/EasyCheckOut/SK123", session.RedirectURL)
}

func TestInitiate_GatewayRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"FAILED","failedreason":"Store Credential Error Or Store is De-active"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, time.Second).Initiate(context.Background(), sampleInit())
	assert.ErrorIs(t, err, domain.ErrUpstreamPayment)
	assert.Contains(t, err.Error(), "Store Credential Error")
}

func TestInitiate_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, time.Second).Initiate(context.Background(), sampleInit())
	assert.ErrorIs(t, err, domain.ErrUpstreamPayment)
}

func TestInitiate_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, time.Second).Initiate(context.Background(), sampleInit())
	assert.ErrorIs(t, err, domain.ErrUpstreamPayment)
}

func TestInitiate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(srv, 50*time.Millisecond).Initiate(context.Background(), sampleInit())
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}

func TestInitiate_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv, time.Second)
	for i := 0; i < 7; i++ {
		_, err := client.Initiate(context.Background(), sampleInit())
		assert.ErrorIs(t, err, domain.ErrUpstreamPayment)
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/validator/api/validationserverAPI.php", r.URL.Path)
		assert.Equal(t, "VAL1", r.URL.Query().Get("val_id"))
		assert.Equal(t, "store", r.URL.Query().Get("store_id"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Write([]byte(`{"status":"VALID","tran_id":"t-1","val_id":"VAL1","amount":"250.50","currency":"BDT"}`))
	}))
	defer srv.Close()

	v, err := newTestClient(srv, time.Second).Validate(context.Background(), "VAL1")
	require.NoError(t, err)
	assert.True(t, v.Valid())
	assert.Equal(t, "t-1", v.TranID)
	assert.True(t, decimal.RequireFromString("250.5").Equal(v.Amount))
}

func TestValidation_Valid(t *testing.T) {
	assert.True(t, (&Validation{Status: "VALIDATED"}).Valid())
	assert.False(t, (&Validation{Status: "INVALID_TRANSACTION"}).Valid())
	assert.False(t, (&Validation{}).Valid())
}
