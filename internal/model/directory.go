package model

import (
	"strings"
	"time"
)

// DirectoryEntryType はディレクトリ掲載企業の業種を表す。
type DirectoryEntryType string

const (
	DirectoryTypePRO               DirectoryEntryType = "pro"
	DirectoryTypePublisher         DirectoryEntryType = "publisher"
	DirectoryTypeLabel             DirectoryEntryType = "label"
	DirectoryTypeDistributor       DirectoryEntryType = "distributor"
	DirectoryTypeLegal             DirectoryEntryType = "legal"
	DirectoryTypeCollectingSociety DirectoryEntryType = "collecting_society"
)

// DirectoryEntryTypes は受け付ける業種の一覧。バリデーションスキーマと共有する。
var DirectoryEntryTypes = []DirectoryEntryType{
	DirectoryTypePRO,
	DirectoryTypePublisher,
	DirectoryTypeLabel,
	DirectoryTypeDistributor,
	DirectoryTypeLegal,
	DirectoryTypeCollectingSociety,
}

// DirectoryEntry は企業ディレクトリの掲載情報を表す。
type DirectoryEntry struct {
	ID          int64
	Name        string
	Type        DirectoryEntryType
	Description string
	Website     string
	Email       string
	Country     string
	Verified    bool
	CreatedAt   time.Time
}

// NewDirectoryEntryParams はNewDirectoryEntryに渡す掲載情報。
type NewDirectoryEntryParams struct {
	Name        string
	Type        DirectoryEntryType
	Description string
	Website     string
	Email       string
	Country     string
}

// NewDirectoryEntry は未保存のDirectoryEntryを生成する。
// 利用者からの掲載申請は常に未承認（Verified=false）で作成する。
func NewDirectoryEntry(p NewDirectoryEntryParams, now time.Time) DirectoryEntry {
	return DirectoryEntry{
		Name:        strings.TrimSpace(p.Name),
		Type:        p.Type,
		Description: strings.TrimSpace(p.Description),
		Website:     strings.TrimSpace(p.Website),
		Email:       NormalizeEmail(p.Email),
		Country:     strings.TrimSpace(p.Country),
		CreatedAt:   now,
	}
}

// DirectoryFilter はディレクトリ一覧の絞り込み条件。ゼロ値は全件を表す。
type DirectoryFilter struct {
	Type    DirectoryEntryType
	Country string
	Search  string
}

// Matches はエントリが絞り込み条件に一致するかを返す。
// Countryは大文字小文字を区別せず、Searchは名前と説明の部分一致で判定する。
func (f DirectoryFilter) Matches(e *DirectoryEntry) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Country != "" && !strings.EqualFold(e.Country, f.Country) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(e.Name), q) &&
			!strings.Contains(strings.ToLower(e.Description), q) {
			return false
		}
	}
	return true
}
