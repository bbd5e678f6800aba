package model

import (
	"strings"
	"time"
)

// ResourceType は学習リソースの形式を表す。
type ResourceType string

const (
	ResourceTypeGuide    ResourceType = "guide"
	ResourceTypeArticle  ResourceType = "article"
	ResourceTypeTemplate ResourceType = "template"
	ResourceTypeNews     ResourceType = "news"
)

// ResourceTypes は受け付けるリソース形式の一覧。
var ResourceTypes = []ResourceType{
	ResourceTypeGuide,
	ResourceTypeArticle,
	ResourceTypeTemplate,
	ResourceTypeNews,
}

// Resource はコンプライアンス関連の記事・ガイド等を表す。
// URLは一意で、フィード取り込み時の同一性判定に使用する。
type Resource struct {
	ID          int64
	Title       string
	Description string
	URL         string
	Category    string
	Type        ResourceType
	Source      string
	PublishedAt *time.Time
	CreatedAt   time.Time
}

// NewResourceParams はNewResourceに渡すリソース情報。
type NewResourceParams struct {
	Title       string
	Description string
	URL         string
	Category    string
	Type        ResourceType
	Source      string
	PublishedAt *time.Time
}

// NewResource は未保存のResourceを生成する。
// Categoryが空の場合は"general"、Typeが空の場合は"article"とする。
func NewResource(p NewResourceParams, now time.Time) Resource {
	category := strings.TrimSpace(p.Category)
	if category == "" {
		category = "general"
	}
	typ := p.Type
	if typ == "" {
		typ = ResourceTypeArticle
	}
	return Resource{
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		URL:         strings.TrimSpace(p.URL),
		Category:    category,
		Type:        typ,
		Source:      strings.TrimSpace(p.Source),
		PublishedAt: p.PublishedAt,
		CreatedAt:   now,
	}
}

// ResourceFilter はリソース一覧の絞り込み条件。ゼロ値は全件を表す。
type ResourceFilter struct {
	Category string
	Type     ResourceType
}

// Matches はリソースが絞り込み条件に一致するかを返す。
func (f ResourceFilter) Matches(r *Resource) bool {
	if f.Category != "" && !strings.EqualFold(r.Category, f.Category) {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	return true
}
