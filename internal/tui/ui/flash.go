package ui

import (
	"fmt"

	"github.com/matheus3301/buddytalk/internal/tui/model"
	"github.com/rivo/tview"
)

// FlashColor returns the tag color for a flash level.
func (t *Theme) FlashColor(level model.FlashLevel) string {
	if level == model.FlashErr {
		return ColorName(t.FlashErrColor)
	}
	return ColorName(t.FlashInfoColor)
}

// FlashText renders msg as a tagged string, or "" for nil.
func FlashText(t *Theme, msg *model.FlashMessage) string {
	if msg == nil {
		return ""
	}
	return fmt.Sprintf("[%s]%s[-]", t.FlashColor(msg.Level), tview.Escape(msg.Text))
}
