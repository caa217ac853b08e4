package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/buddytalk/internal/tui/ui"
	"github.com/rivo/tview"
)

// Item is one selectable row of a Picker.
type Item struct {
	ID   string
	Name string
}

// Picker is a sidebar table of users or channels with the active one marked.
type Picker struct {
	*tview.Table
	theme    *ui.Theme
	title    string
	items    []Item
	active   string
	onSelect func(id string)
}

// NewPicker creates a picker titled title.
func NewPicker(theme *ui.Theme, title string) *Picker {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	p := &Picker{
		Table: table,
		theme: theme,
		title: title,
	}
	table.SetSelectedFunc(func(row, _ int) {
		if row < 0 || row >= len(p.items) || p.onSelect == nil {
			return
		}
		p.onSelect(p.items[row].ID)
	})
	p.render()
	return p
}

// Name implements Component.
func (p *Picker) Name() string { return p.title }

// Hints implements Component.
func (p *Picker) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Select"},
		{Key: "Tab", Description: "Next pane"},
	}
}

// SetOnSelect sets the callback run with the chosen item's ID.
func (p *Picker) SetOnSelect(fn func(id string)) {
	p.onSelect = fn
}

// Update replaces the rows and the active ID.
func (p *Picker) Update(items []Item, active string) {
	p.items = items
	p.active = active
	p.render()
}

// Active returns the ID marked active.
func (p *Picker) Active() string { return p.active }

func (p *Picker) render() {
	p.Clear()
	for row, it := range p.items {
		marker := "  "
		color := p.theme.FgColor
		if it.ID == p.active {
			marker = "> "
			color = p.theme.ActiveColor
		}
		name := it.Name
		if name == "" {
			name = it.ID
		}
		p.SetCell(row, 0, tview.NewTableCell(marker+tview.Escape(sanitizeForTerminal(name))).
			SetExpansion(1).
			SetTextColor(color))
	}
	p.SetTitle(fmt.Sprintf(" %s (%d) ", p.title, len(p.items)))
}
