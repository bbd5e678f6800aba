package model

import (
	"sort"
	"time"
)

// ComplianceChecklistItem はアカウント種別ごとのコンプライアンスチェック項目を表す。
type ComplianceChecklistItem struct {
	ID          int64
	Type        UserType
	Category    string
	Title       string
	Description string
	SortOrder   int
	Required    bool
}

// ChecklistStatus はユーザーチェックリストの進捗状態を表す。
type ChecklistStatus string

const (
	// ChecklistStatusNotStarted は未着手。
	ChecklistStatusNotStarted ChecklistStatus = "not_started"
	// ChecklistStatusInProgress は進行中。
	ChecklistStatusInProgress ChecklistStatus = "in_progress"
	// ChecklistStatusCompleted は完了。
	ChecklistStatusCompleted ChecklistStatus = "completed"
)

// Valid は既知の進捗状態かどうかを返す。
func (s ChecklistStatus) Valid() bool {
	switch s {
	case ChecklistStatusNotStarted, ChecklistStatusInProgress, ChecklistStatusCompleted:
		return true
	default:
		return false
	}
}

// UserChecklist はユーザーごとのチェックリスト進捗を表す。
// UserIDは外部キー相当だが、ストア層では存在確認を行わない。
type UserChecklist struct {
	ID             int64
	UserID         int64
	Type           UserType
	CompletedItems []int64
	TotalItems     int
	Status         ChecklistStatus
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUserChecklist は未保存のUserChecklistを生成する。
// 完了項目は空、状態はnot_startedで初期化する。
func NewUserChecklist(userID int64, checklistType UserType, totalItems int, notes string, now time.Time) UserChecklist {
	return UserChecklist{
		UserID:         userID,
		Type:           checklistType,
		CompletedItems: []int64{},
		TotalItems:     totalItems,
		Status:         ChecklistStatusNotStarted,
		Notes:          notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// DeriveChecklistStatus は完了数と総数から進捗状態を導出する。
func DeriveChecklistStatus(completed, total int) ChecklistStatus {
	switch {
	case completed == 0:
		return ChecklistStatusNotStarted
	case total > 0 && completed >= total:
		return ChecklistStatusCompleted
	default:
		return ChecklistStatusInProgress
	}
}

// NormalizeItemIDs は項目IDの重複を除去し昇順に並べた新しいスライスを返す。
// nilを渡した場合も空スライスを返す。
func NormalizeItemIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone はスライスを含めたディープコピーを返す。
func (c UserChecklist) Clone() UserChecklist {
	cp := c
	cp.CompletedItems = append([]int64{}, c.CompletedItems...)
	return cp
}
