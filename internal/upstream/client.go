package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/pkg/logger"
)

// Config represents the configuration for the backend client
type Config struct {
	// BaseURL is the backend root, without a trailing slash
	BaseURL string

	// Timeout bounds a single attempt
	Timeout time.Duration

	// RetryCount applies to reads only; writes are never replayed
	RetryCount int

	// Location is the business timezone deadlines are sent in
	Location *time.Location
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("%w: retry count cannot be negative", ErrInvalidConfig)
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return nil
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token; the client forwards it on
// every request made with the returned context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client talks to the authoritative REST backend.
type Client struct {
	config Config
	http   *resty.Client
}

// NewClient creates a new backend client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(config.Timeout).
		SetRetryCount(config.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return r.StatusCode() == http.StatusTooManyRequests || (r.StatusCode() >= 500 && r.StatusCode() <= 504)
		}).
		OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			logger.Debug("Upstream response", map[string]interface{}{
				"method":      r.Request.Method,
				"url":         r.Request.URL,
				"status":      r.StatusCode(),
				"duration_ms": r.Time().Milliseconds(),
			})
			return nil
		})

	return &Client{config: config, http: httpClient}, nil
}

// ListOrders fetches one page of orders.
func (c *Client) ListOrders(ctx context.Context, q ListQuery) (Envelope[progress.Order], error) {
	body, err := c.do(ctx, http.MethodGet, "/api/order", q.params(), nil)
	if err != nil {
		return Envelope[progress.Order]{}, err
	}
	return Decode[progress.Order](body), nil
}

// GetOrder fetches an order with its items and sizes.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (progress.Order, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/order/detail", idParam("oId", orderID), nil)
	if err != nil {
		return progress.Order{}, err
	}
	order, ok := DecodeObject[progress.Order](body)
	if !ok || order.ID == 0 {
		return progress.Order{}, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	return order, nil
}

// TransitionOrder runs one of the order workflow actions.
func (c *Client) TransitionOrder(ctx context.Context, orderID int64, action OrderAction) error {
	payload := map[string]int64{"oId": orderID}
	_, err := c.do(ctx, http.MethodPut, "/api/order/"+string(action), nil, payload)
	return err
}

// ListProgressMains fetches the stage rows of an order.
func (c *Client) ListProgressMains(ctx context.Context, orderID int64) ([]progress.ProgressMain, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/order-progress/main", idParam("oId", orderID), nil)
	if err != nil {
		return nil, err
	}
	return Extract[progress.ProgressMain](body), nil
}

// ListProgressItems fetches the assignments of one stage.
func (c *Client) ListProgressItems(ctx context.Context, mainID int64) ([]progress.ProgressItem, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/order-progress/by-main", idParam("opmId", mainID), nil)
	if err != nil {
		return nil, err
	}
	return Extract[progress.ProgressItem](body), nil
}

// ListProgressDetails fetches the finished reports of one assignment.
func (c *Client) ListProgressDetails(ctx context.Context, itemID int64) ([]progress.ProgressDetail, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/order-progress/detail-items", idParam("opId", itemID), nil)
	if err != nil {
		return nil, err
	}
	return Extract[progress.ProgressDetail](body), nil
}

func (c *Client) CreateProgressItem(ctx context.Context, mainID int64, item NewProgressItem) error {
	item.DeadlineAt = item.DeadlineAt.In(c.config.Location)
	_, err := c.do(ctx, http.MethodPost, "/api/order-progress/"+strconv.FormatInt(mainID, 10), nil, item)
	return err
}

func (c *Client) DeleteProgressItem(ctx context.Context, itemID int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/order-progress/"+strconv.FormatInt(itemID, 10), nil, nil)
	return err
}

func (c *Client) CreateProgressDetail(ctx context.Context, itemID int64, detail ProgressDetailInput) error {
	detail.FinishedAt = detail.FinishedAt.In(c.config.Location)
	_, err := c.do(ctx, http.MethodPost, "/api/order-progress/detail/"+strconv.FormatInt(itemID, 10), nil, detail)
	return err
}

func (c *Client) UpdateProgressDetail(ctx context.Context, detailID int64, detail ProgressDetailInput) error {
	detail.FinishedAt = detail.FinishedAt.In(c.config.Location)
	_, err := c.do(ctx, http.MethodPut, "/api/order-progress/detail/"+strconv.FormatInt(detailID, 10), nil, detail)
	return err
}

func (c *Client) DeleteProgressDetail(ctx context.Context, detailID int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/order-progress/detail/"+strconv.FormatInt(detailID, 10), nil, nil)
	return err
}

// ListProducts fetches one page of the product catalogue.
func (c *Client) ListProducts(ctx context.Context, q ListQuery) (Envelope[Product], error) {
	body, err := c.do(ctx, http.MethodGet, "/api/catalogue-product", q.params(), nil)
	if err != nil {
		return Envelope[Product]{}, err
	}
	return Decode[Product](body), nil
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/catalogue-category", All().params(), nil)
	if err != nil {
		return nil, err
	}
	return Extract[Category](body), nil
}

func (c *Client) ListSubcategories(ctx context.Context) ([]Subcategory, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/catalogue-subcategory", All().params(), nil)
	if err != nil {
		return nil, err
	}
	return Extract[Subcategory](body), nil
}

// ListUsers fetches the staff list used to build the assignment roster.
func (c *Client) ListUsers(ctx context.Context, q ListQuery) (Envelope[progress.User], error) {
	body, err := c.do(ctx, http.MethodGet, "/user", q.params(), nil)
	if err != nil {
		return Envelope[progress.User]{}, err
	}
	return Decode[progress.User](body), nil
}

// do performs one request and maps non-2xx responses onto the package's
// sentinel errors.
func (c *Client) do(ctx context.Context, method, path string, params map[string]string, payload interface{}) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if token := tokenFrom(ctx); token != "" {
		req.SetAuthToken(token)
	}
	if params != nil {
		req.SetQueryParams(params)
	}
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}

	if !resp.IsSuccess() {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Message:    messageFrom(resp.Body()),
			Path:       path,
			Err:        sentinelFor(resp.StatusCode()),
		}
	}
	return resp.Body(), nil
}

// messageFrom pulls the human readable message out of an error body.
func messageFrom(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	var text string
	if err := json.Unmarshal(payload.Error, &text); err == nil {
		return text
	}
	return ""
}

func idParam(name string, id int64) map[string]string {
	return map[string]string{name: strconv.FormatInt(id, 10)}
}
