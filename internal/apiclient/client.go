package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"doctor-portal/common/config"
	"doctor-portal/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerRequestID   = "X-Request-Id"
	headerSessionID   = "X-Session-Id"
	headerFingerprint = "X-Device-Fingerprint"
)

// Credentials 单个医生会话的认证信息，由调用方显式传入
type Credentials struct {
	Token     string
	SessionID string
}

// UnauthorizedFunc 后端返回 401 时回调（用于使会话失效）
type UnauthorizedFunc func(cred Credentials)

// Client 病例后端 REST 客户端
type Client struct {
	httpClient     *resty.Client
	fingerprint    string
	logger         *zap.Logger
	onUnauthorized UnauthorizedFunc
}

// NewClient 创建客户端
// 只对 GET 在网络错误/5xx 时重试；认领、提交诊断等写操作永不自动重试。
func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		AddRetryCondition(retryIdempotent).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	c := &Client{
		httpClient:  httpClient,
		fingerprint: cfg.DeviceFingerprint,
		logger:      logger,
	}
	httpClient.OnBeforeRequest(c.stampRequest)
	return c
}

// OnUnauthorized 注册 401 回调
func (c *Client) OnUnauthorized(fn UnauthorizedFunc) {
	c.onUnauthorized = fn
}

func retryIdempotent(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || resp.StatusCode() >= http.StatusInternalServerError
}

func (c *Client) stampRequest(_ *resty.Client, r *resty.Request) error {
	if r.Header.Get(headerRequestID) == "" {
		r.SetHeader(headerRequestID, uuid.NewString())
	}
	if c.fingerprint != "" {
		r.SetHeader(headerFingerprint, c.fingerprint)
	}
	return nil
}

type call struct {
	method     string
	path       string
	pathParams map[string]string
	query      map[string]string
	body       any
	cred       *Credentials
}

func (c *Client) newRequest(ctx context.Context, cl call) *resty.Request {
	r := c.httpClient.R().SetContext(ctx)
	if cl.cred != nil {
		if cl.cred.Token != "" {
			r.SetAuthToken(cl.cred.Token)
		}
		if cl.cred.SessionID != "" {
			r.SetHeader(headerSessionID, cl.cred.SessionID)
		}
	}
	if len(cl.pathParams) > 0 {
		r.SetPathParams(cl.pathParams)
	}
	if len(cl.query) > 0 {
		r.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		r.SetBody(cl.body)
	}
	return r
}

// execute 发送请求；非 2xx 统一转换为 *APIError
func (c *Client) execute(ctx context.Context, cl call) (*resty.Response, error) {
	r := c.newRequest(ctx, cl)
	start := time.Now()
	resp, err := r.Execute(cl.method, cl.path)
	requestID := r.Header.Get(headerRequestID)

	if err != nil {
		c.logger.Warn("Backend request failed",
			zap.String("method", cl.method),
			zap.String("path", cl.path),
			zap.String("request_id", requestID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, cl.method, cl.path, err)
	}

	c.logger.Debug("Backend request completed",
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.String("request_id", requestID),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.IsError() {
		apiErr := c.errorFromResponse(resp, cl.path, requestID)
		if apiErr.StatusCode == http.StatusUnauthorized && cl.cred != nil && c.onUnauthorized != nil {
			c.logger.Info("Backend rejected credentials, invalidating session",
				zap.String("path", cl.path),
				zap.String("request_id", requestID),
			)
			c.onUnauthorized(*cl.cred)
		}
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) errorFromResponse(resp *resty.Response, path, requestID string) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		RequestID:  requestID,
		Path:       path,
		kind:       kindForStatus(resp.StatusCode()),
	}
	var body struct {
		Message string   `json:"message"`
		Error   string   `json:"error"`
		Errors  []string `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
		apiErr.Errors = body.Errors
	}
	return apiErr
}

// doEnvelope 请求并解析 Envelope，success=false 时不信任 data
func doEnvelope[T any](ctx context.Context, c *Client, cl call) (T, error) {
	var zero T
	resp, err := c.execute(ctx, cl)
	if err != nil {
		return zero, err
	}

	var env models.Envelope[T]
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return zero, fmt.Errorf("%w: %s %s: %v", ErrDecode, cl.method, cl.path, err)
	}
	if !env.Success {
		return zero, &APIError{
			StatusCode: resp.StatusCode(),
			Message:    env.Message,
			Errors:     env.Errors,
			RequestID:  resp.Request.Header.Get(headerRequestID),
			Path:       cl.path,
			kind:       ErrRejected,
		}
	}
	return env.Data, nil
}

// doRaw 请求并直接解析响应体（分页列表不带 Envelope）
func doRaw[T any](ctx context.Context, c *Client, cl call) (T, error) {
	var out T
	resp, err := c.execute(ctx, cl)
	if err != nil {
		return out, err
	}
	if len(resp.Body()) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return out, fmt.Errorf("%w: %s %s: %v", ErrDecode, cl.method, cl.path, err)
	}
	return out, nil
}
