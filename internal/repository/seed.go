package repository

import (
	"time"

	"github.com/hitoshi/musicomply/internal/model"
)

// DefaultChecklistItems は初期投入するコンプライアンスチェック項目を返す。
// インメモリストアの生成時とPostgreSQLのシード処理で共有する。
func DefaultChecklistItems() []model.ComplianceChecklistItem {
	artist := []struct{ category, title, description string }{
		{"registration", "Register with a Performing Rights Organization", "Join a PRO such as ASCAP, BMI or SESAC so public performance royalties can be collected for your compositions."},
		{"registration", "Register your works with your PRO", "Submit every released composition with accurate writer and publisher splits."},
		{"registration", "Obtain ISRC codes for your recordings", "Each master recording needs a unique ISRC before distribution."},
		{"registration", "Register with SoundExchange", "Claim digital performance royalties for non-interactive streaming of your masters."},
		{"copyright", "Register copyrights for your songs", "File copyright registrations for compositions and sound recordings to secure statutory remedies."},
		{"contracts", "Sign split sheets with all collaborators", "Document ownership percentages for every co-written work before release."},
		{"contracts", "Clear all samples and interpolations", "Obtain master and publishing licenses for any sampled material."},
		{"contracts", "Review your distribution agreement", "Confirm term, territory, fees and rights granted to your distributor."},
		{"royalties", "Set up mechanical royalty collection", "Register with the MLC or an administrator to collect mechanical royalties from streaming."},
		{"royalties", "Keep metadata consistent across platforms", "Use identical artist names, writer names and identifiers on every release."},
	}
	label := []struct{ category, title, description string }{
		{"registration", "Register as a publisher with a PRO", "Publisher membership is required to collect the publisher share of performance royalties."},
		{"registration", "Register with SoundExchange as a rights owner", "Collect the sound recording owner's share of digital performance royalties."},
		{"registration", "Assign ISRC and UPC codes to every release", "Maintain a registry of identifiers for all masters and products."},
		{"copyright", "File sound recording copyrights", "Register masters owned by the label with the copyright office."},
		{"contracts", "Maintain signed artist agreements", "Keep executed recording agreements on file for every signed artist."},
		{"contracts", "Secure mechanical licenses for cover songs", "Obtain compulsory or negotiated mechanical licenses before releasing covers."},
		{"contracts", "Document producer and featured artist agreements", "Record points, fees and credits for producers and featured performers."},
		{"royalties", "Issue royalty statements on schedule", "Send accurate accounting statements to artists as required by contract."},
		{"royalties", "Reconcile distributor and PRO statements", "Match incoming revenue against expected usage to catch missing payments."},
		{"data", "Keep a rights and ownership database", "Track ownership, territories and expiry dates for every asset in the catalog."},
	}

	items := make([]model.ComplianceChecklistItem, 0, len(artist)+len(label))
	for i, it := range artist {
		items = append(items, model.ComplianceChecklistItem{
			Type:        model.UserTypeArtist,
			Category:    it.category,
			Title:       it.title,
			Description: it.description,
			SortOrder:   i + 1,
			Required:    it.category != "royalties",
		})
	}
	for i, it := range label {
		items = append(items, model.ComplianceChecklistItem{
			Type:        model.UserTypeLabel,
			Category:    it.category,
			Title:       it.title,
			Description: it.description,
			SortOrder:   i + 1,
			Required:    it.category != "data",
		})
	}
	return items
}

// DefaultDirectoryEntries は初期投入するディレクトリエントリを返す。
func DefaultDirectoryEntries(now time.Time) []model.DirectoryEntry {
	entries := []model.DirectoryEntry{
		{Name: "ASCAP", Type: model.DirectoryTypePRO, Description: "American Society of Composers, Authors and Publishers.", Website: "https://www.ascap.com", Country: "US"},
		{Name: "BMI", Type: model.DirectoryTypePRO, Description: "Broadcast Music, Inc. performing rights organization.", Website: "https://www.bmi.com", Country: "US"},
		{Name: "SESAC", Type: model.DirectoryTypePRO, Description: "Invitation-based performing rights organization.", Website: "https://www.sesac.com", Country: "US"},
		{Name: "SoundExchange", Type: model.DirectoryTypeCollectingSociety, Description: "Collects digital performance royalties for sound recordings.", Website: "https://www.soundexchange.com", Country: "US"},
		{Name: "The MLC", Type: model.DirectoryTypeCollectingSociety, Description: "Mechanical Licensing Collective for streaming mechanicals.", Website: "https://www.themlc.com", Country: "US"},
		{Name: "PRS for Music", Type: model.DirectoryTypePRO, Description: "UK collecting society for performing and mechanical rights.", Website: "https://www.prsformusic.com", Country: "GB"},
		{Name: "SOCAN", Type: model.DirectoryTypePRO, Description: "Canadian performing rights organization.", Website: "https://www.socan.com", Country: "CA"},
		{Name: "GEMA", Type: model.DirectoryTypeCollectingSociety, Description: "German collecting society for music rights.", Website: "https://www.gema.de", Country: "DE"},
	}
	for i := range entries {
		entries[i].Verified = true
		entries[i].CreatedAt = now
	}
	return entries
}

// DefaultResources は初期投入するリソースを返す。
func DefaultResources(now time.Time) []model.Resource {
	resources := []model.Resource{
		{Title: "Understanding Performing Rights Organizations", Description: "How PROs collect and distribute public performance royalties.", URL: "https://musicomply.example/guides/pro-basics", Category: "royalties", Type: model.ResourceTypeGuide, Source: "musicomply"},
		{Title: "Split Sheet Template", Description: "A template for documenting songwriter ownership splits.", URL: "https://musicomply.example/templates/split-sheet", Category: "contracts", Type: model.ResourceTypeTemplate, Source: "musicomply"},
		{Title: "Sample Clearance Checklist", Description: "Steps for clearing master and publishing rights for samples.", URL: "https://musicomply.example/guides/sample-clearance", Category: "copyright", Type: model.ResourceTypeGuide, Source: "musicomply"},
		{Title: "Mechanical Royalties in the Streaming Era", Description: "What the MLC does and how to claim your mechanicals.", URL: "https://musicomply.example/articles/mechanicals-streaming", Category: "royalties", Type: model.ResourceTypeArticle, Source: "musicomply"},
		{Title: "Metadata Best Practices", Description: "Keeping identifiers and credits consistent across distributors.", URL: "https://musicomply.example/articles/metadata", Category: "data", Type: model.ResourceTypeArticle, Source: "musicomply"},
	}
	for i := range resources {
		resources[i].CreatedAt = now
	}
	return resources
}
