// Package resourcesync は音楽業界ニュースのRSS/Atomフィードを定期取得し、
// リソースとして取り込むバックグラウンド処理を提供する。
package resourcesync

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// FeedFetcher はフィードフェッチの実行インターフェース。
type FeedFetcher interface {
	// Fetch は指定フィードをフェッチし、結果に応じてフィード状態を更新する。
	Fetch(ctx context.Context, feed *FeedState) error
}

// URLValidator は設定されたフィードURLを起動時に検証する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Syncer は設定されたフィードの取得スケジューリングと並列制御を行う。
type Syncer struct {
	feeds          []*FeedState
	fetcher        FeedFetcher
	logger         *slog.Logger
	maxConcurrency int
	now            func() time.Time
}

// NewSyncer はSyncerの新しいインスタンスを生成する。
// 検証に失敗したURLと重複したURLはログに残して除外する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewSyncer(
	urls []string,
	validator URLValidator,
	fetcher FeedFetcher,
	logger *slog.Logger,
	maxConcurrency int,
) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}

	seen := make(map[string]bool, len(urls))
	feeds := make([]*FeedState, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		if err := validator.ValidateURL(u); err != nil {
			logger.Warn("リソースフィードのURLを除外しました",
				slog.String("feed_url", u),
				slog.String("error", err.Error()),
			)
			continue
		}
		feeds = append(feeds, &FeedState{URL: u})
	}

	return &Syncer{
		feeds:          feeds,
		fetcher:        fetcher,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		now:            time.Now,
	}
}

// Feeds は管理しているフィードの状態を返す。
func (s *Syncer) Feeds() []*FeedState {
	return s.feeds
}

// Start は起動直後に1回、その後interval毎にRunOnceを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Syncer) Start(ctx context.Context, interval time.Duration) {
	if len(s.feeds) == 0 {
		s.logger.Info("取り込み対象のリソースフィードがないため同期を開始しません")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("リソース同期を開始しました",
		slog.Duration("interval", interval),
		slog.Int("feed_count", len(s.feeds)),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("リソース同期を停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は期限の来たフィードを最大maxConcurrency並列でフェッチし、
// すべて終わるまで待つ。個別の失敗はログに残して続行する。
func (s *Syncer) RunOnce(ctx context.Context) {
	now := s.now()

	var due []*FeedState
	for _, f := range s.feeds {
		if f.Due(now) {
			due = append(due, f)
		}
	}
	if len(due) == 0 {
		s.logger.Debug("フェッチ対象のフィードはありません")
		return
	}

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for _, feed := range due {
		feed := feed
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := s.fetcher.Fetch(ctx, feed); err != nil {
				s.logger.Error("フィードフェッチに失敗しました",
					slog.String("feed_url", feed.URL),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("フェッチサイクルが完了しました",
		slog.Int("feed_count", len(due)),
		slog.Float64("duration_ms", float64(s.now().Sub(now).Milliseconds())),
	)
}
