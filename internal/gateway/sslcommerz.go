package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

type Config struct {
	MerchantID     string
	MerchantSecret string
	InitURL        string
	ValidationURL  string
	SuccessURL     string
	FailURL        string
	CancelURL      string
	Timeout        time.Duration
}

// InitRequest describes one hosted-page session. TranID is echoed back by
// every callback for the session.
type InitRequest struct {
	TranID        string
	Amount        decimal.Decimal
	Currency      string
	CustomerName  string
	CustomerEmail string
	ItemCount     int
}

type Session struct {
	SessionKey  string
	RedirectURL string
}

type initResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// Validation is the gateway's server-side view of a completed transaction.
type Validation struct {
	Status   string          `json:"status"`
	TranID   string          `json:"tran_id"`
	ValID    string          `json:"val_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (v *Validation) Valid() bool {
	return v.Status == "VALID" || v.Status == "VALIDATED"
}

// Client talks to the SSLCommerz hosted payment API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: newBreaker("sslcommerz", logger),
		logger:  logger,
	}
}

func (c *Client) Initiate(ctx context.Context, req InitRequest) (*Session, error) {
	form := url.Values{}
	form.Set("store_id", c.cfg.MerchantID)
	form.Set("store_passwd", c.cfg.MerchantSecret)
	form.Set("total_amount", req.Amount.StringFixed(2))
	form.Set("currency", req.Currency)
	form.Set("tran_id", req.TranID)
	form.Set("success_url", c.cfg.SuccessURL)
	form.Set("fail_url", c.cfg.FailURL)
	form.Set("cancel_url", c.cfg.CancelURL)
	form.Set("cus_name", req.CustomerName)
	form.Set("cus_email", req.CustomerEmail)
	form.Set("cus_add1", "Dhaka")
	form.Set("cus_city", "Dhaka")
	form.Set("cus_state", "Dhaka")
	form.Set("cus_postcode", "1000")
	form.Set("cus_country", "Bangladesh")
	form.Set("cus_phone", "01711111111")
	form.Set("shipping_method", "NO")
	form.Set("num_of_item", fmt.Sprint(req.ItemCount))
	form.Set("product_name", "Bistro order")
	form.Set("product_category", "food")
	form.Set("product_profile", "general")

	body, err := c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.InitURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}

	var resp initResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode session response: %v", domain.ErrUpstreamPayment, err)
	}
	if !strings.EqualFold(resp.Status, "SUCCESS") || resp.GatewayPageURL == "" {
		return nil, fmt.Errorf("%w: session rejected: %s", domain.ErrUpstreamPayment, resp.FailedReason)
	}

	return &Session{SessionKey: resp.SessionKey, RedirectURL: resp.GatewayPageURL}, nil
}

// Validate asks the gateway to confirm a callback's val_id.
func (c *Client) Validate(ctx context.Context, valID string) (*Validation, error) {
	q := url.Values{}
	q.Set("val_id", valID)
	q.Set("store_id", c.cfg.MerchantID)
	q.Set("store_passwd", c.cfg.MerchantSecret)
	q.Set("format", "json")

	body, err := c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ValidationURL+"?"+q.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}

	var v Validation
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: decode validation response: %v", domain.ErrUpstreamPayment, err)
	}
	return &v, nil
}

func (c *Client) do(ctx context.Context, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return data, nil
	})
	if err != nil {
		return nil, classify(ctx, err)
	}
	return body, nil
}

func classify(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamPayment, err)
}
