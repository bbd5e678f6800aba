// Package security は利用者入力と外部取得データを扱う際の防御機能を提供する。
//
// TextSanitizer は投稿テキストやフィード要約からHTMLを取り除き、プレーンテキストに正規化する。
// SSRFGuard はリソースフィード取得時の宛先を制限する。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はHTMLを含み得る文字列をプレーンテキストへ変換する。
// ポリシーは生成時に一度だけ構築し、以降は並行に利用できる。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はすべてのタグを除去するTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	p := bluemonday.StrictPolicy()
	// タグ除去後に前後の語が連結しないよう空白を挿入する
	p.AddSpaceWhenStrippingTag(true)
	return &TextSanitizer{policy: p}
}

// Text はタグを除去し、エンティティを復元して空白を1つに畳んだ文字列を返す。
// script/style要素は中身ごと除去される。
func (s *TextSanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.Join(strings.Fields(stripped), " ")
}

// Summary はTextの結果をmaxRunes文字までに切り詰める。
// 切り詰めた場合は末尾に "…" を付ける。maxRunesが0以下なら切り詰めない。
func (s *TextSanitizer) Summary(raw string, maxRunes int) string {
	text := s.Text(raw)
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
