// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// インメモリ・PostgreSQLどちらのセッションストアにも同じジョブを使う。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionDeleter は期限切れセッションを削除するストア。
// repository.SessionRepositoryの部分集合として定義する。
type SessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SweepRecorder は削除件数のメトリクス記録先。
type SweepRecorder interface {
	RecordSessionsSwept(count int64)
}

// SessionSweeper は期限切れセッションの削除ジョブ。
// 削除は冪等で、対象がない場合もエラーにならない。
type SessionSweeper struct {
	sessions SessionDeleter
	recorder SweepRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionSweeper は新しいSessionSweeperを生成する。recorderはnilでもよい。
func NewSessionSweeper(sessions SessionDeleter, recorder SweepRecorder, logger *slog.Logger) *SessionSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSweeper{
		sessions: sessions,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は現在時刻で期限切れのセッションを1回削除し、削除件数を返す。
func (s *SessionSweeper) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	deleted, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("セッションクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordSessionsSwept(deleted)
	}

	s.logger.Info("セッションクリーンアップが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return deleted, nil
}

// Start は起動直後に1回、その後interval毎にRunを実行する。
// ctxがキャンセルされるまでブロックする。失敗はログに残して次回に持ち越す。
func (s *SessionSweeper) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("セッションクリーンアップを停止しました")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SessionSweeper) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// エラーはRun内でログ出力済み
	_, _ = s.Run(ctx)
}
