package resourcesync

import (
	"bytes"
	"mime"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// FeedType はHTMLのlink要素で宣言されたフィードの種類。
type FeedType string

const (
	FeedTypeRSS  FeedType = "rss"
	FeedTypeAtom FeedType = "atom"
)

// FeedLink はHTMLから検出されたフィードリンク。
type FeedLink struct {
	URL   string
	Type  FeedType
	Title string
}

// isHTMLContent はContent-TypeがHTMLかどうかを返す。
func isHTMLContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	mediaType = strings.ToLower(mediaType)
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// ParseFeedLinks はHTMLのheadにある rel="alternate" のRSS/Atomリンクを返す。
// 相対URLはbaseURLを基準に解決し、http(s)以外は除外する。
func ParseFeedLinks(body []byte, baseURL string) []FeedLink {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []FeedLink
	z := html.NewTokenizer(bytes.NewReader(body))
	inHead := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "head":
				inHead = true
				continue
			case "body":
				return links
			case "link":
			default:
				continue
			}
			if !inHead || !hasAttr {
				continue
			}

			var rel, typ, href, title string
			for more := true; more; {
				var key, val []byte
				key, val, more = z.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					typ = strings.ToLower(strings.TrimSpace(string(val)))
				case "href":
					href = strings.TrimSpace(string(val))
				case "title":
					title = string(val)
				}
			}
			if !hasToken(rel, "alternate") || href == "" {
				continue
			}

			var ft FeedType
			switch typ {
			case "application/rss+xml":
				ft = FeedTypeRSS
			case "application/atom+xml":
				ft = FeedTypeAtom
			default:
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			resolved := base.ResolveReference(ref)
			if resolved.Scheme != "http" && resolved.Scheme != "https" {
				continue
			}
			links = append(links, FeedLink{URL: resolved.String(), Type: ft, Title: title})

		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "head" {
				return links
			}
		}
	}
}

// SelectFeedLink は候補から取り込むフィードを1つ選ぶ。
// 優先順位は ページと同一ホスト > Atom > 出現順。候補がなければnil。
func SelectFeedLink(links []FeedLink, pageURL string) *FeedLink {
	if len(links) == 0 {
		return nil
	}

	pageHost := hostOf(pageURL)
	best, bestScore := 0, -1
	for i, l := range links {
		score := 0
		if hostOf(l.URL) == pageHost {
			score += 100
		}
		if l.Type == FeedTypeAtom {
			score += 10
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return &links[best]
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// hasToken は空白区切りの属性値にtokenが含まれるかを返す。
func hasToken(attr, token string) bool {
	for _, f := range strings.Fields(attr) {
		if f == token {
			return true
		}
	}
	return false
}
