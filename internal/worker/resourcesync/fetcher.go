package resourcesync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/musicomply/internal/metrics"
	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/resource"
)

// summaryMaxRunes は取り込んだリソース説明の最大文字数。
const summaryMaxRunes = 500

// ResourceUpserter はURLをキーにリソースを保存する。
type ResourceUpserter interface {
	UpsertByURL(ctx context.Context, in model.NewResourceParams) (*model.Resource, resource.UpsertOutcome, error)
}

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// TextSanitizer はフィード由来のテキストからマークアップを除去する。
type TextSanitizer interface {
	Text(raw string) string
	Summary(raw string, maxRunes int) string
}

// Recorder はフェッチ結果のメトリクス記録先。
type Recorder interface {
	RecordFeedFetch(outcome string, duration time.Duration)
	RecordResourcesSynced(created, updated int)
}

// Fetcher は個別フィードのHTTPフェッチとパースを行う。
// ETag/Last-Modifiedによる条件付きGET、SSRF検証、gofeedによるパースを行い、
// 各エントリをnews種別のリソースとして保存する。
type Fetcher struct {
	upserter    ResourceUpserter
	ssrfGuard   SSRFValidator
	sanitizer   TextSanitizer
	recorder    Recorder
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
	interval    time.Duration
	now         func() time.Time
}

// FetcherConfig はFetcherの動作設定。
type FetcherConfig struct {
	Timeout     time.Duration
	MaxBodySize int64
	// Interval は成功後に次のフェッチまで空ける時間。
	Interval time.Duration
}

// NewFetcher はFetcherの新しいインスタンスを生成する。recorderはnilでもよい。
func NewFetcher(
	upserter ResourceUpserter,
	ssrfGuard SSRFValidator,
	sanitizer TextSanitizer,
	recorder Recorder,
	logger *slog.Logger,
	cfg FetcherConfig,
) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 5 << 20
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		upserter:    upserter,
		ssrfGuard:   ssrfGuard,
		sanitizer:   sanitizer,
		recorder:    recorder,
		logger:      logger,
		timeout:     cfg.Timeout,
		maxBodySize: cfg.MaxBodySize,
		interval:    cfg.Interval,
		now:         time.Now,
	}
}

// Fetch はフィードをフェッチし、結果に応じてフィード状態を更新する。
// 取得自体の失敗はエラーを返し、パース失敗は状態に記録してnilを返す。
func (f *Fetcher) Fetch(ctx context.Context, feed *FeedState) error {
	start := f.now()

	if err := f.ssrfGuard.ValidateURL(feed.URL); err != nil {
		f.logger.Error("SSRF検証に失敗しました",
			slog.String("feed_url", feed.URL),
			slog.String("error", err.Error()),
		)
		applyStop(feed, fmt.Sprintf("SSRF検証失敗: %s", err.Error()))
		f.recordFetch(metrics.FetchOutcomeFetchError, start)
		return fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "MusiComply/1.0 Resource Sync")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.5, */*;q=0.1")
	if feed.ETag != "" {
		req.Header.Set("If-None-Match", feed.ETag)
	}
	if feed.LastModified != "" {
		req.Header.Set("If-Modified-Since", feed.LastModified)
	}

	resp, err := f.ssrfGuard.NewSafeClient(f.timeout).Do(req)
	if err != nil {
		f.logger.Error("HTTPリクエストに失敗しました",
			slog.String("feed_url", feed.URL),
			slog.String("error", err.Error()),
		)
		applyBackoff(feed, f.now(), fmt.Sprintf("HTTPリクエスト失敗: %s", err.Error()))
		f.recordFetch(metrics.FetchOutcomeFetchError, start)
		return fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	switch ClassifyHTTPStatus(resp.StatusCode) {
	case FetchResultNotModified:
		f.logger.Info("フィードは未変更です（304）",
			slog.String("feed_url", feed.URL),
			slog.Int("http_status", resp.StatusCode),
		)
		applySuccess(feed, f.now(), f.interval)
		f.recordFetch(metrics.FetchOutcomeSuccess, start)
		return nil

	case FetchResultStop:
		reason := fmt.Sprintf("HTTPステータス %d によりフェッチを停止しました", resp.StatusCode)
		f.logger.Warn("フィードフェッチを停止します",
			slog.String("feed_url", feed.URL),
			slog.Int("http_status", resp.StatusCode),
		)
		applyStop(feed, reason)
		f.recordFetch(metrics.FetchOutcomeFetchError, start)
		return nil

	case FetchResultOK:
	default:
		f.logger.Warn("フィードフェッチにバックオフを適用します",
			slog.String("feed_url", feed.URL),
			slog.Int("http_status", resp.StatusCode),
			slog.Int("consecutive_errors", feed.ConsecutiveErrors+1),
		)
		applyBackoff(feed, f.now(), fmt.Sprintf("HTTPステータス %d によりバックオフを適用しました", resp.StatusCode))
		f.recordFetch(metrics.FetchOutcomeFetchError, start)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		f.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("feed_url", feed.URL),
			slog.String("error", err.Error()),
		)
		applyBackoff(feed, f.now(), fmt.Sprintf("レスポンス読み取り失敗: %s", err.Error()))
		f.recordFetch(metrics.FetchOutcomeFetchError, start)
		return nil
	}

	if isHTMLContent(resp.Header.Get("Content-Type")) {
		return f.discover(ctx, feed, body, start)
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		feed.ETag = etag
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		feed.LastModified = lastMod
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		f.logger.Error("フィードのパースに失敗しました",
			slog.String("feed_url", feed.URL),
			slog.String("error", err.Error()),
		)
		applyParseFailure(feed, f.now(), f.interval, err.Error())
		f.recordFetch(metrics.FetchOutcomeParseError, start)
		return nil
	}

	created, updated := f.store(ctx, feed, parsed)

	applySuccess(feed, f.now(), f.interval)
	f.recordFetch(metrics.FetchOutcomeSuccess, start)
	if f.recorder != nil {
		f.recorder.RecordResourcesSynced(created, updated)
	}

	f.logger.Info("フィードフェッチが完了しました",
		slog.String("feed_url", feed.URL),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("resources_created", created),
		slog.Int("resources_updated", updated),
		slog.Int("items_total", len(parsed.Items)),
		slog.Float64("duration_ms", float64(f.now().Sub(start).Milliseconds())),
	)
	return nil
}

// discover はHTMLページのheadからフィードリンクを検出し、検出先を改めてフェッチする。
// 検出は設定されたURLに対して一度だけ行う。
func (f *Fetcher) discover(ctx context.Context, feed *FeedState, body []byte, start time.Time) error {
	if feed.PageURL != "" {
		applyParseFailure(feed, f.now(), f.interval, "検出したフィードURLがHTMLを返しました")
		f.recordFetch(metrics.FetchOutcomeParseError, start)
		return nil
	}

	link := SelectFeedLink(ParseFeedLinks(body, feed.URL), feed.URL)
	if link == nil {
		f.logger.Warn("HTMLからフィードを検出できませんでした",
			slog.String("feed_url", feed.URL),
		)
		applyParseFailure(feed, f.now(), f.interval, "HTMLにフィードリンクがありません")
		f.recordFetch(metrics.FetchOutcomeParseError, start)
		return nil
	}

	f.logger.Info("HTMLからフィードを検出しました",
		slog.String("page_url", feed.URL),
		slog.String("feed_url", link.URL),
		slog.String("feed_type", string(link.Type)),
	)
	feed.PageURL = feed.URL
	feed.URL = link.URL
	feed.ETag = ""
	feed.LastModified = ""
	return f.Fetch(ctx, feed)
}

// store はパース済みエントリをリソースとして保存し、作成数と更新数を返す。
// 個別エントリの保存失敗はログに残して残りを続行する。
func (f *Fetcher) store(ctx context.Context, feed *FeedState, parsed *gofeed.Feed) (created, updated int) {
	source := f.sanitizer.Text(parsed.Title)
	if source == "" {
		if u, err := url.Parse(feed.URL); err == nil {
			source = u.Hostname()
		}
	}

	for _, params := range f.convertItems(parsed.Items, source) {
		_, outcome, err := f.upserter.UpsertByURL(ctx, params)
		if err != nil {
			f.logger.Error("リソースの保存に失敗しました",
				slog.String("feed_url", feed.URL),
				slog.String("resource_url", params.URL),
				slog.String("error", err.Error()),
			)
			continue
		}
		switch outcome {
		case resource.UpsertCreated:
			created++
		case resource.UpsertUpdated:
			updated++
		}
	}
	return created, updated
}

// convertItems はgofeedのエントリをリソース作成パラメータに変換する。
// タイトルまたはhttp(s)のリンクを持たないエントリは取り込まない。
func (f *Fetcher) convertItems(items []*gofeed.Item, source string) []model.NewResourceParams {
	out := make([]model.NewResourceParams, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		link := strings.TrimSpace(item.Link)
		// LinkがなくGUIDがURL形式の場合はGUIDをリンクとして使用
		if link == "" && isHTTPURL(item.GUID) {
			link = item.GUID
		}
		if !isHTTPURL(link) {
			continue
		}

		title := f.sanitizer.Text(item.Title)
		if title == "" {
			continue
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		params := model.NewResourceParams{
			Title:       title,
			Description: f.sanitizer.Summary(description, summaryMaxRunes),
			URL:         link,
			Category:    "news",
			Type:        model.ResourceTypeNews,
			Source:      source,
		}
		switch {
		case item.PublishedParsed != nil:
			t := item.PublishedParsed.UTC()
			params.PublishedAt = &t
		case item.UpdatedParsed != nil:
			t := item.UpdatedParsed.UTC()
			params.PublishedAt = &t
		}

		out = append(out, params)
	}
	return out
}

func (f *Fetcher) recordFetch(outcome string, start time.Time) {
	if f.recorder != nil {
		f.recorder.RecordFeedFetch(outcome, f.now().Sub(start))
	}
}

func isHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
