package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/matheus3301/buddytalk/internal/tui/ui"
	"github.com/rivo/tview"
)

// ThreadState is everything the thread renders.
type ThreadState struct {
	Channel       string
	UserID        string
	Users         map[string]string
	Messages      []chat.Message
	Loading       bool
	FetchingOlder bool
	FetchingNewer bool
}

// MessageThread displays messages and a composer for the active channel.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	onSend   func(text string)
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			text := composer.GetText()
			if strings.TrimSpace(text) != "" {
				mt.onSend(text)
				composer.SetText("")
			}
		}
	})

	return mt
}

// Name implements Component.
func (mt *MessageThread) Name() string { return "Messages" }

// Hints implements Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "o", Description: "Older"},
		{Key: "n", Description: "Newer"},
		{Key: "Esc", Description: "Leave composer"},
	}
}

// SetOnSend sets the callback when a message is submitted.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update re-renders the thread.
func (mt *MessageThread) Update(st ThreadState) {
	title := " Messages "
	if st.Channel != "" {
		title = fmt.Sprintf(" %s ", tview.Escape(st.Channel))
	}
	mt.messages.SetTitle(title)
	mt.messages.Clear()
	_, _ = fmt.Fprint(mt.messages, renderThread(mt.theme, st))
	mt.messages.ScrollToEnd()
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}

func renderThread(theme *ui.Theme, st ThreadState) string {
	if st.Loading {
		return "[::d]Loading messages...[-:-:-]"
	}

	var b strings.Builder
	if st.FetchingOlder {
		b.WriteString("[::d]Loading older messages...[-:-:-]\n\n")
	}
	if len(st.Messages) == 0 {
		b.WriteString("[::d]No messages yet.[-:-:-]")
	}
	for _, m := range st.Messages {
		b.WriteString(formatMessage(theme, m, st.UserID, st.Users))
	}
	if st.FetchingNewer {
		b.WriteString("[::d]Loading newer messages...[-:-:-]")
	}
	return b.String()
}

// formatMessage renders one message. The current user's messages read
// "You" and carry a Sent or Error marker.
func formatMessage(theme *ui.Theme, m chat.Message, userID string, users map[string]string) string {
	sender := users[m.SenderID]
	if sender == "" {
		sender = m.SenderID
	}
	color := ColorFor(theme, m, userID)

	marker := ""
	if m.SenderID == userID {
		sender = "You"
		if m.Status == chat.Failed {
			marker = " [" + ui.ColorName(theme.FailedColor) + "]Error[-]"
		} else {
			marker = " [::d]Sent[-:-:-]"
		}
	}

	return fmt.Sprintf("[%s::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
		color, tview.Escape(sanitizeForTerminal(sender)),
		formatTime(m.Timestamp), marker,
		tview.Escape(sanitizeForTerminal(m.Text)))
}

// ColorFor picks the sender color for m.
func ColorFor(theme *ui.Theme, m chat.Message, userID string) string {
	switch {
	case m.Status == chat.Failed:
		return ui.ColorName(theme.FailedColor)
	case m.SenderID == userID:
		return ui.ColorName(theme.MineColor)
	default:
		return ui.ColorName(theme.FgColor)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("03:04 PM")
}
