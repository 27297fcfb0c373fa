package swapi

import (
	"net/http"
	"strconv"
	"time"
)

// fetchResult はHTTPステータスコードに基づく取得結果の分類。
type fetchResult int

const (
	// fetchResultOK は取得成功（200）。
	fetchResultOK fetchResult = iota
	// fetchResultStop は再試行しても成功しないステータス（404/410/401/403 など）。
	fetchResultStop
	// fetchResultRetry は待機後に再試行するステータス（429/5xx）。
	fetchResultRetry
)

// classifyHTTPStatus はHTTPステータスコードを取得結果に分類する。
func classifyHTTPStatus(statusCode int) fetchResult {
	switch {
	case statusCode == http.StatusOK:
		return fetchResultOK
	case statusCode == http.StatusTooManyRequests:
		return fetchResultRetry
	case statusCode >= 500:
		return fetchResultRetry
	default:
		return fetchResultStop
	}
}

// calculateBackoff は試行回数に基づいて指数バックオフ遅延を計算する。
// 初回はbase、2倍ずつ増加し、maxDelayで頭打ちになる。
func calculateBackoff(attempt int, base, maxDelay time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// retryAfter はRetry-Afterヘッダー（秒数表記）を解釈する。
// 解釈できない場合は0を返す。
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
