package views

import (
	"fmt"

	"github.com/matheus3301/buddytalk/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := ui.ColorName(hv.theme.MenuKeyColor)

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  [%s]:[-:-:-]      Command mode        [%s]Esc[-:-:-]    Cancel / Go back
  [%s]Tab[-:-:-]    Next pane           [%s]?[-:-:-]      Help
  [%s]r[-:-:-]      Refresh             [%s]q[-:-:-]      Quit

  [::b]Users / Channels[-:-:-]

  [%s]Enter[-:-:-]  Select              [%s]j/k[-:-:-]    Move

  [::b]Message Thread[-:-:-]

  [%s]i[-:-:-]      Focus composer      [%s]Enter[-:-:-]  Send (in composer)
  [%s]o[-:-:-]      Load older          [%s]n[-:-:-]      Load newer

  [::b]Commands (: mode)[-:-:-]

  [%s]:channel <id>[-:-:-]   Switch channel
  [%s]:user <id>[-:-:-]      Switch user
  [%s]:older[-:-:-] / [%s]:newer[-:-:-]  Load more messages
  [%s]:help[-:-:-] / [%s]:h[-:-:-]     Show this help
  [%s]:quit[-:-:-] / [%s]:q[-:-:-]     Quit application
`,
		kc, kc, kc, kc, kc, kc,
		kc, kc,
		kc, kc, kc, kc,
		kc, kc, kc, kc, kc, kc, kc, kc,
	)

	_, _ = fmt.Fprint(hv, help)
}
