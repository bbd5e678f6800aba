package resourcesync

import (
	"fmt"
	"net/http"
	"time"
)

// FetchResult はHTTPステータスコードに基づくフェッチ結果の分類。
type FetchResult int

const (
	// FetchResultOK はフェッチ成功（200）。
	FetchResultOK FetchResult = iota
	// FetchResultNotModified はコンテンツ未変更（304）。
	FetchResultNotModified
	// FetchResultStop はフェッチ停止が必要なステータス（404/410/401/403）。
	FetchResultStop
	// FetchResultBackoff はバックオフが必要なステータス（429/5xx）。
	FetchResultBackoff
	// FetchResultUnknown は未知のステータスコード。
	FetchResultUnknown
)

const (
	// initialBackoff は指数バックオフの初回遅延（30分）。
	initialBackoff = 30 * time.Minute
	// maxBackoff は指数バックオフの最大遅延（12時間）。
	maxBackoff = 12 * time.Hour
	// parseFailureThreshold はパース失敗によるフェッチ停止の閾値。
	parseFailureThreshold = 10
)

// FeedState は設定で与えられた1つのリソースフィードの取得状態。
// フィードURLは設定由来のため、状態はプロセス内にのみ保持する。
type FeedState struct {
	URL string
	// PageURL はHTMLページから自動検出した場合の元のURL。
	PageURL           string
	ETag              string
	LastModified      string
	ConsecutiveErrors int
	NextFetchAt       time.Time
	Stopped           bool
	ErrorMessage      string
}

// Due はnow時点でフェッチ対象かどうかを返す。
func (f *FeedState) Due(now time.Time) bool {
	return !f.Stopped && !now.Before(f.NextFetchAt)
}

// ClassifyHTTPStatus はHTTPステータスコードをフェッチ結果に分類する。
func ClassifyHTTPStatus(statusCode int) FetchResult {
	switch {
	case statusCode == http.StatusOK:
		return FetchResultOK
	case statusCode == http.StatusNotModified:
		return FetchResultNotModified
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return FetchResultStop
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return FetchResultStop
	case statusCode == http.StatusTooManyRequests:
		return FetchResultBackoff
	case statusCode >= 500:
		return FetchResultBackoff
	default:
		return FetchResultUnknown
	}
}

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回30分、2倍ずつ増加、最大12時間。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// applyStop はフィードのフェッチを停止する。
func applyStop(feed *FeedState, reason string) {
	feed.Stopped = true
	feed.ErrorMessage = reason
}

// applyBackoff は連続エラー回数をインクリメントし、指数バックオフで次回時刻を設定する。
func applyBackoff(feed *FeedState, now time.Time, reason string) {
	feed.ConsecutiveErrors++
	feed.ErrorMessage = reason
	feed.NextFetchAt = now.Add(CalculateBackoff(feed.ConsecutiveErrors - 1))
}

// applySuccess は連続エラー回数とエラーメッセージをリセットし、interval後を次回時刻とする。
func applySuccess(feed *FeedState, now time.Time, interval time.Duration) {
	feed.ConsecutiveErrors = 0
	feed.ErrorMessage = ""
	feed.NextFetchAt = now.Add(interval)
}

// applyParseFailure はパース失敗を記録し、閾値に達したらフェッチを停止する。
// 停止しない場合は通常の間隔で再試行する。
func applyParseFailure(feed *FeedState, now time.Time, interval time.Duration, reason string) {
	feed.ConsecutiveErrors++
	feed.ErrorMessage = fmt.Sprintf("パース失敗 (%d回連続): %s", feed.ConsecutiveErrors, reason)
	feed.NextFetchAt = now.Add(interval)

	if feed.ConsecutiveErrors >= parseFailureThreshold {
		feed.Stopped = true
		feed.ErrorMessage = fmt.Sprintf("パース失敗が%d回連続したためフェッチを停止しました: %s", feed.ConsecutiveErrors, reason)
	}
}
