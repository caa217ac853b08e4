package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Session     string
	User        string
	Channel     string
	FailedCount int
	Degraded    bool
	Uptime      time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fg := ColorName(si.theme.FgColor)
	counter := ColorName(si.theme.CounterColor)

	store := "ok"
	storeColor := counter
	if data.Degraded {
		store = "memory only"
		storeColor = ColorName(si.theme.FailedColor)
	}

	_, _ = fmt.Fprintf(si,
		"[%s::b]Session:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Channel:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Failed:[-:-:-]  [%s]%d[-]\n"+
			"[%s::b]Store:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		fg, counter, tview.Escape(data.Session),
		fg, counter, tview.Escape(orDash(data.User)),
		fg, counter, tview.Escape(orDash(data.Channel)),
		fg, counter, data.FailedCount,
		fg, storeColor, store,
		fg, counter, formatDuration(data.Uptime),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
