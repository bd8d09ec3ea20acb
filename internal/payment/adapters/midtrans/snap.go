package midtrans

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	midtransgo "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// Snap rejects item names longer than 50 characters.
	maxItemNameLength = 50
	expiryTimeLayout  = "2006-01-02 15:04:05 -0700"
)

type SnapConfig struct {
	ServerKey  string
	Production bool
	// BaseURL redirects Snap calls to another host, e.g. a mock gateway.
	BaseURL string
	// PaymentWindow is sent as the Snap expiry. The gateway stops accepting payment for
	// the order once it elapses.
	PaymentWindow time.Duration
}

// SnapClient creates hosted checkout sessions through the Midtrans Snap API.
type SnapClient struct {
	snap   snap.Client
	ready  bool
	window time.Duration
	clock  clock.Clock
}

func NewSnapClient(cfg SnapConfig, clk clock.Clock, httpClient *http.Client) *SnapClient {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if target, err := url.Parse(strings.TrimSpace(cfg.BaseURL)); err == nil && target.Host != "" {
		clone := *httpClient
		clone.Transport = &hostRewrite{target: target, base: clone.Transport}
		httpClient = &clone
	}

	env := midtransgo.Sandbox
	if cfg.Production {
		env = midtransgo.Production
	}
	serverKey := strings.TrimSpace(cfg.ServerKey)

	c := &SnapClient{ready: serverKey != "", window: cfg.PaymentWindow, clock: clk}
	c.snap.New(serverKey, env)
	transport := midtransgo.GetHttpClient(env)
	transport.HttpClient = tracing.WrapHTTPClient(httpClient)
	c.snap.HttpClient = transport
	return c
}

func (c *SnapClient) CreateTransaction(ctx context.Context, req paymentdomain.SnapRequest) (resp *paymentdomain.SnapResponse, err error) {
	if !c.ready {
		return nil, paymentdomain.ErrInvalidConfig
	}
	if strings.TrimSpace(req.OrderID) == "" || req.GrossAmount <= 0 {
		return nil, paymentdomain.ErrInvalidEvent
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, span := tracing.Start(ctx, "midtrans.snap.create_transaction", attribute.String("order_id", req.OrderID))
	defer func() { tracing.End(span, err) }()

	out, gwErr := c.snap.CreateTransaction(c.buildRequest(req))
	if gwErr != nil {
		return nil, fmt.Errorf("%w: status %d: %s", paymentdomain.ErrGatewayRequest, gwErr.StatusCode, gwErr.Message)
	}
	if out == nil || out.Token == "" {
		return nil, fmt.Errorf("%w: empty token", paymentdomain.ErrGatewayRequest)
	}
	return &paymentdomain.SnapResponse{Token: out.Token, RedirectURL: out.RedirectURL}, nil
}

func (c *SnapClient) buildRequest(req paymentdomain.SnapRequest) *snap.Request {
	out := &snap.Request{
		TransactionDetails: midtransgo.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.GrossAmount,
		},
	}
	if req.ItemName != "" {
		name := req.ItemName
		if runes := []rune(name); len(runes) > maxItemNameLength {
			name = string(runes[:maxItemNameLength])
		}
		out.Items = &[]midtransgo.ItemDetails{{
			ID:    req.ItemID,
			Name:  name,
			Price: req.GrossAmount,
			Qty:   1,
		}}
	}
	if req.DonorName != "" || req.DonorEmail != "" {
		out.CustomerDetail = &midtransgo.CustomerDetails{FName: req.DonorName, Email: req.DonorEmail}
	}
	if minutes := int64(c.window / time.Minute); minutes > 0 {
		out.Expiry = &snap.ExpiryDetails{
			StartTime: c.clock.Now().Format(expiryTimeLayout),
			Unit:      "minute",
			Duration:  minutes,
		}
	}
	return out
}

type hostRewrite struct {
	target *url.URL
	base   http.RoundTripper
}

func (t *hostRewrite) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = t.target.Host
	return base.RoundTrip(out)
}
