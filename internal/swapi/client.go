// Package swapi はSWAPI互換APIから参照データ（登場人物・惑星・乗り物）を取り込む。
// ページングされた一覧の取得、レコードの検証と変換、定期インポートジョブを含む。
package swapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrResponseTooLarge はレスポンスボディがサイズ上限を超えた場合のエラー。
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// StatusError は再試行せずに打ち切ったHTTPステータスを表す。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// ClientConfig はClientの設定パラメータ。
type ClientConfig struct {
	// APIInterval はAPI呼び出しの最低間隔。0以下の場合は制限しない。
	APIInterval time.Duration
	// MaxResponseSize は1レスポンスあたりの最大バイト数。
	MaxResponseSize int64
	// MaxRetries は429/5xx時の最大再試行回数。
	MaxRetries int
	// RetryBaseDelay は再試行の初回待機時間。
	RetryBaseDelay time.Duration
	// RetryMaxDelay は再試行の最大待機時間。
	RetryMaxDelay time.Duration
	// MaxPages は1リソースあたりの最大ページ数。nextの循環を打ち切るために使う。
	MaxPages int
}

// DefaultClientConfig はデフォルトのClient設定を返す。
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		APIInterval:     500 * time.Millisecond,
		MaxResponseSize: 5 * 1024 * 1024,
		MaxRetries:      3,
		RetryBaseDelay:  time.Second,
		RetryMaxDelay:   30 * time.Second,
		MaxPages:        100,
	}
}

// page はSWAPIの一覧レスポンス。
type page[T any] struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}

// Client はSWAPI互換APIのクライアント。
// nextリンクをたどって全ページを取得し、API呼び出し間隔をrate.Limiterで制御する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    *url.URL
	limiter    *rate.Limiter
	config     ClientConfig
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientには通常 security.SSRFGuard.NewSafeClient の結果を渡す。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string, config ClientConfig) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("ベースURLのパースに失敗しました: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ベースURLが不正です: %q", baseURL)
	}

	limit := rate.Inf
	if config.APIInterval > 0 {
		limit = rate.Every(config.APIInterval)
	}
	defaults := DefaultClientConfig()
	if config.MaxPages <= 0 {
		config.MaxPages = defaults.MaxPages
	}
	if config.MaxResponseSize <= 0 {
		config.MaxResponseSize = defaults.MaxResponseSize
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    u,
		limiter:    rate.NewLimiter(limit, 1),
		config:     config,
	}, nil
}

// FetchPeople は登場人物の全件を取得する。
func (c *Client) FetchPeople(ctx context.Context) ([]PersonRecord, error) {
	return fetchAll[PersonRecord](ctx, c, "people")
}

// FetchPlanets は惑星の全件を取得する。
func (c *Client) FetchPlanets(ctx context.Context) ([]PlanetRecord, error) {
	return fetchAll[PlanetRecord](ctx, c, "planets")
}

// FetchVehicles は乗り物の全件を取得する。
func (c *Client) FetchVehicles(ctx context.Context) ([]VehicleRecord, error) {
	return fetchAll[VehicleRecord](ctx, c, "vehicles")
}

// fetchAll は resource の一覧をnextがなくなるまで取得する。
func fetchAll[T any](ctx context.Context, c *Client, resource string) ([]T, error) {
	next := c.baseURL.JoinPath(resource).String() + "/"
	var all []T

	for pages := 0; next != ""; pages++ {
		if pages >= c.config.MaxPages {
			return nil, fmt.Errorf("%s: ページ数が上限 %d を超えました", resource, c.config.MaxPages)
		}

		body, err := c.get(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("%s の取得に失敗しました: %w", resource, err)
		}

		var p page[T]
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("%s のレスポンスJSONのパースに失敗しました: %w", resource, err)
		}
		all = append(all, p.Results...)

		next = ""
		if p.Next != nil && *p.Next != "" {
			if next, err = c.sameOrigin(*p.Next); err != nil {
				return nil, err
			}
		}
	}

	return all, nil
}

// sameOrigin はnextリンクがベースURLと同じオリジンを指していることを確認する。
func (c *Client) sameOrigin(raw string) (string, error) {
	u, err := c.baseURL.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("nextリンクのパースに失敗しました: %w", err)
	}
	if u.Scheme != c.baseURL.Scheme || u.Host != c.baseURL.Host {
		return "", fmt.Errorf("nextリンクが別オリジンを指しています: %s", raw)
	}
	return u.String(), nil
}

// get は1ページを取得する。429/5xxとネットワークエラーは指数バックオフで再試行する。
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt-1, c.config.RetryBaseDelay, c.config.RetryMaxDelay)
			var se *retryableStatusError
			if errors.As(lastErr, &se) && se.retryAfter > delay && se.retryAfter <= c.config.RetryMaxDelay {
				delay = se.retryAfter
			}
			c.logger.Warn("SWAPIへのリクエストを再試行します",
				slog.String("url", rawURL),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.do(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var stop *StatusError
		if errors.As(err, &stop) || errors.Is(err, ErrResponseTooLarge) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("再試行回数の上限に達しました: %w", lastErr)
}

// retryableStatusError は再試行対象のHTTPステータスを表す。
type retryableStatusError struct {
	statusCode int
	retryAfter time.Duration
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.statusCode)
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "starfav/1.0 importer")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch classifyHTTPStatus(resp.StatusCode) {
	case fetchResultOK:
	case fetchResultRetry:
		return nil, &retryableStatusError{statusCode: resp.StatusCode, retryAfter: retryAfter(resp.Header)}
	default:
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if int64(len(body)) > c.config.MaxResponseSize {
		return nil, ErrResponseTooLarge
	}
	return body, nil
}
