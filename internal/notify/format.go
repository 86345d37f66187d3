// Package notify formats parsed events into ntfy.sh-compatible
// notifications and dispatches them through a bounded, retrying queue.
package notify

import (
	"fmt"
	"strings"

	"github.com/mvndaai/galaxy-sia/internal/config"
	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/event"
)

// Priority resolves the notification priority for e, defaulting via cfg
// when the event's code has no explicit mapping.
func Priority(cfg *config.Config, e event.Event) int {
	return cfg.Priority(e.EventCode)
}

// FormatTitle builds the notification title: "<topic title>: <site name or
// account>".
func FormatTitle(title string, e event.Event) string {
	site := e.SiteName
	if site == "" {
		site = e.Account
	}
	return fmt.Sprintf("%s: %s", title, site)
}

// FormatBody builds the notification body. When the event carries ASCII
// text it takes precedence, optionally suffixed with the zone when its
// digits aren't already present in the text. Otherwise the body is built
// from the structured NEW_EVENT fields in a fixed order.
func FormatBody(e event.Event) string {
	t := e.Time
	if t == "" {
		t = "??"
	}

	var b strings.Builder
	if e.ActionText != "" {
		fmt.Fprintf(&b, "%s %s", t, e.ActionText)
		if e.Zone != "" && !strings.Contains(e.ActionText, e.Zone) {
			fmt.Fprintf(&b, " (Zone %s)", e.Zone)
		}
		return strings.TrimSpace(b.String())
	}

	b.WriteString(t)
	if e.EventCode != "" {
		fmt.Fprintf(&b, " Event: %s (%s)", e.EventCode, e.Description)
	}
	if e.UserID != "" {
		fmt.Fprintf(&b, " User: %s", e.UserID)
	}
	if e.Zone != "" {
		fmt.Fprintf(&b, " Zone: %s", e.Zone)
	}
	if e.Partition != "" {
		fmt.Fprintf(&b, " Partition: %s", e.Partition)
	}
	return strings.TrimSpace(b.String())
}
