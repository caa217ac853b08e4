package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
)

// StatusBar displays session state and activity indicators.
type StatusBar struct {
	*tview.TextView
	session  string
	older    bool
	newer    bool
	sending  bool
	degraded bool
	flash    string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetSession updates the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetActivity updates the fetching and sending indicators.
func (sb *StatusBar) SetActivity(older, newer, sending, degraded bool) {
	sb.older = older
	sb.newer = newer
	sb.sending = sending
	sb.degraded = degraded
	sb.render()
}

// SetFlash sets an already tagged flash string.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	_, _ = fmt.Fprint(sb, sb.line(time.Now()))
}

func (sb *StatusBar) line(now time.Time) string {
	var activity []string
	if sb.older {
		activity = append(activity, "[green]^ older[-]")
	}
	if sb.newer {
		activity = append(activity, "[green]v newer[-]")
	}
	if sb.sending {
		activity = append(activity, "[green]sending[-]")
	}
	if sb.degraded {
		activity = append(activity, "[red]store unavailable[-]")
	}
	if len(activity) == 0 {
		activity = append(activity, "idle")
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s | %s", tview.Escape(sb.session), strings.Join(activity, " "), now.Format("15:04"))
	if sb.flash != "" {
		line += " | " + sb.flash
	}
	return line
}
