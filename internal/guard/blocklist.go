// Package guard implements the request guardrails: the paywall hostname
// blocklist and the upstream response-size cap.
package guard

import (
	"fmt"
	"strings"

	"github.com/pagelens/reader/internal/reader"
)

// BlockedSite describes one hostname known to yield zero extractable content
// under any strategy.
type BlockedSite struct {
	SiteName string
	Category string
}

// Blocklist categories select the user-facing message.
const (
	CategoryCreator  = "creator"
	CategorySocial   = "social"
	CategoryDocument = "document"
)

var categoryMessages = map[string]string{
	CategoryCreator:  "%s hosts subscriber-only creator content that cannot be extracted.",
	CategorySocial:   "%s requires a logged-in session; its posts cannot be extracted.",
	CategoryDocument: "%s serves documents behind a download wall that cannot be extracted.",
}

// Blocklist maps exact hostnames to their classification. Lookups are O(1);
// no wildcarding.
type Blocklist struct {
	hosts map[string]BlockedSite
}

// NewBlocklist builds the static table of hosts the pipeline refuses outright.
func NewBlocklist() *Blocklist {
	sites := map[string]BlockedSite{
		"patreon.com":       {SiteName: "Patreon", Category: CategoryCreator},
		"www.patreon.com":   {SiteName: "Patreon", Category: CategoryCreator},
		"onlyfans.com":      {SiteName: "OnlyFans", Category: CategoryCreator},
		"www.onlyfans.com":  {SiteName: "OnlyFans", Category: CategoryCreator},
		"fanbox.cc":         {SiteName: "pixivFANBOX", Category: CategoryCreator},
		"www.fanbox.cc":     {SiteName: "pixivFANBOX", Category: CategoryCreator},
		"facebook.com":      {SiteName: "Facebook", Category: CategorySocial},
		"www.facebook.com":  {SiteName: "Facebook", Category: CategorySocial},
		"m.facebook.com":    {SiteName: "Facebook", Category: CategorySocial},
		"instagram.com":     {SiteName: "Instagram", Category: CategorySocial},
		"www.instagram.com": {SiteName: "Instagram", Category: CategorySocial},
		"twitter.com":       {SiteName: "X", Category: CategorySocial},
		"x.com":             {SiteName: "X", Category: CategorySocial},
		"www.linkedin.com":  {SiteName: "LinkedIn", Category: CategorySocial},
		"linkedin.com":      {SiteName: "LinkedIn", Category: CategorySocial},
		"scribd.com":        {SiteName: "Scribd", Category: CategoryDocument},
		"www.scribd.com":    {SiteName: "Scribd", Category: CategoryDocument},
		"academia.edu":      {SiteName: "Academia.edu", Category: CategoryDocument},
		"www.academia.edu":  {SiteName: "Academia.edu", Category: CategoryDocument},
	}
	return &Blocklist{hosts: sites}
}

// Check returns a PAYWALL_ERROR when the hostname is blocklisted, nil
// otherwise. A match short-circuits the request before any network call.
func (b *Blocklist) Check(hostname string) *reader.AppError {
	if b == nil {
		return nil
	}
	site, ok := b.hosts[strings.ToLower(strings.TrimSpace(hostname))]
	if !ok {
		return nil
	}
	msg := fmt.Sprintf(categoryMessages[site.Category], site.SiteName)
	return reader.NewPaywallError(hostname, site.SiteName, site.Category, msg)
}
