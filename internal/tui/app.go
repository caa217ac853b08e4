package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/buddytalk/internal/api"
	"github.com/matheus3301/buddytalk/internal/bus"
	"github.com/matheus3301/buddytalk/internal/status"
	"github.com/matheus3301/buddytalk/internal/tui/client"
	"github.com/matheus3301/buddytalk/internal/tui/keys"
	"github.com/matheus3301/buddytalk/internal/tui/model"
	"github.com/matheus3301/buddytalk/internal/tui/ui"
	"github.com/matheus3301/buddytalk/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageMain = "main"
	pageHelp = "help"

	defaultNotify = 3 * time.Second
)

// App is the main TUI application shell.
type App struct {
	app         *tview.Application
	pages       *tview.Pages
	body        *tview.Flex
	vm          *model.ViewModel
	grpc        *client.Client
	registry    *keys.Registry
	theme       *ui.Theme
	sessionInfo *ui.SessionInfo
	menu        *ui.Menu
	prompt      *ui.Prompt
	statusBar   *views.StatusBar
	users       *views.Picker
	channels    *views.Picker
	thread      *views.MessageThread
	help        *views.HelpView
	focusOrder  []tview.Primitive
	promptOpen  bool
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:         tview.NewApplication(),
		pages:       tview.NewPages(),
		vm:          model.NewViewModel(c),
		grpc:        c,
		registry:    keys.NewRegistry(),
		theme:       theme,
		sessionInfo: ui.NewSessionInfo(theme),
		menu:        ui.NewMenu(theme),
		prompt:      ui.NewPrompt(theme),
		statusBar:   views.NewStatusBar(),
		users:       views.NewPicker(theme, "Users"),
		channels:    views.NewPicker(theme, "Channels"),
		thread:      views.NewMessageThread(theme),
		help:        views.NewHelpView(theme),
		ctx:         ctx,
		cancel:      cancel,
	}

	a.statusBar.SetSession(sessionName)
	a.focusOrder = []tview.Primitive{a.users, a.channels, a.thread.Messages()}
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Label: "q",
		Description: "Quit", Visible: true,
		Handler: a.Quit,
	})
	a.registry.AddGlobal("help", &keys.Action{
		Key: tcell.KeyRune, Rune: '?', Label: "?",
		Description: "Help", Visible: true,
		Handler: a.ShowHelp,
	})
	a.registry.AddGlobal("command", &keys.Action{
		Key: tcell.KeyRune, Rune: ':', Label: ":",
		Description: "Command", Visible: true,
		Handler: a.openPrompt,
	})
	a.registry.AddGlobal("next", &keys.Action{
		Key: tcell.KeyTab, Label: "Tab",
		Description: "Next pane", Visible: true,
		Handler: a.focusNext,
	})
	a.registry.AddGlobal("refresh", &keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Label: "r",
		Description: "Refresh", Visible: true,
		Handler: func() { go a.refresh() },
	})

	a.registry.AddView(a.thread.Name(), "compose", &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Label: "i",
		Description: "Compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(a.thread.Name(), "older", &keys.Action{
		Key: tcell.KeyRune, Rune: 'o', Label: "o",
		Description: "Older", Visible: true,
		Handler: func() { a.FetchMore("older") },
	})
	a.registry.AddView(a.thread.Name(), "newer", &keys.Action{
		Key: tcell.KeyRune, Rune: 'n', Label: "n",
		Description: "Newer", Visible: true,
		Handler: func() { a.FetchMore("newer") },
	})
}

func (a *App) setupCallbacks() {
	a.users.SetOnSelect(a.SelectUser)
	a.channels.SetOnSelect(a.SelectChannel)

	a.thread.SetOnSend(func(text string) {
		go func() {
			if err := a.vm.SendText(a.ctx, text); err != nil {
				a.vm.Flash.Err("Send failed: "+err.Error(), a.notifyAfter())
			}
			a.app.QueueUpdateDraw(a.render)
		}()
	})

	a.prompt.SetOnSubmit(func(text string) {
		a.closePrompt()
		if err := Dispatch(a, ParseCommand(text)); err != nil {
			a.vm.Flash.Err(err.Error(), a.notifyAfter())
			a.render()
		}
	})
	a.prompt.SetOnCancel(a.closePrompt)
}

func (a *App) setupLayout() {
	logo := ui.NewLogo(a.theme)
	header := tview.NewFlex().
		AddItem(a.sessionInfo, 0, 2, false).
		AddItem(a.menu, 0, 2, false).
		AddItem(logo, 18, 0, false)

	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.users, 0, 1, true).
		AddItem(a.channels, 0, 1, false)

	content := tview.NewFlex().
		AddItem(sidebar, 24, 0, true).
		AddItem(a.thread, 0, 1, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(content, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.pages.AddPage(pageMain, a.body, true, true)
	a.pages.AddPage(pageHelp, a.help, true, false)
	a.app.SetRoot(a.pages, true)
	a.app.SetFocus(a.users)
	a.updateMenu()

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		page, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			if page == pageHelp {
				a.pages.SwitchToPage(pageMain)
				a.app.SetFocus(a.thread.Messages())
				return nil
			}
			if a.app.GetFocus() == a.thread.Composer() {
				a.app.SetFocus(a.thread.Messages())
				a.updateMenu()
				return nil
			}
		}

		// Let text input widgets handle all keys normally.
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			return event
		}
		if page == pageHelp {
			return event
		}

		if a.registry.HandleEvent(a.focusedView(), event) {
			a.updateMenu()
			return nil
		}
		return event
	})
}

func (a *App) focusedView() string {
	switch a.app.GetFocus() {
	case a.users:
		return a.users.Name()
	case a.channels:
		return a.channels.Name()
	case a.thread.Messages(), a.thread.Composer():
		return a.thread.Name()
	}
	return ""
}

func (a *App) focusNext() {
	current := a.app.GetFocus()
	next := a.focusOrder[0]
	for i, p := range a.focusOrder {
		if p == current {
			next = a.focusOrder[(i+1)%len(a.focusOrder)]
			break
		}
	}
	a.app.SetFocus(next)
}

func (a *App) updateMenu() {
	var comp ui.Component
	switch a.focusedView() {
	case a.users.Name():
		comp = a.users
	case a.channels.Name():
		comp = a.channels
	default:
		comp = a.thread
	}
	hints := comp.Hints()
	for _, h := range a.registry.Hints("") {
		hints = append(hints, ui.MenuHint{Key: h.Key, Description: h.Description})
	}
	a.menu.Update(hints)
}

func (a *App) openPrompt() {
	if a.promptOpen {
		return
	}
	a.promptOpen = true
	a.body.AddItem(a.prompt, 3, 0, false)
	a.app.SetFocus(a.prompt)
}

func (a *App) closePrompt() {
	if !a.promptOpen {
		return
	}
	a.promptOpen = false
	a.body.RemoveItem(a.prompt)
	a.app.SetFocus(a.thread.Messages())
	a.updateMenu()
}

// SelectChannel switches the active channel.
func (a *App) SelectChannel(id string) {
	a.run("Load failed", func() error { return a.vm.SelectChannel(a.ctx, id) })
}

// SelectUser switches the sender identity.
func (a *App) SelectUser(id string) {
	a.run("Select user failed", func() error { return a.vm.SelectUser(a.ctx, id) })
}

// FetchMore loads a page in direction.
func (a *App) FetchMore(direction string) {
	a.run("Load "+direction+" failed", func() error { return a.vm.FetchMore(a.ctx, direction) })
}

// ShowHelp shows the key reference page.
func (a *App) ShowHelp() {
	a.pages.SwitchToPage(pageHelp)
	a.app.SetFocus(a.help)
}

// Quit stops the application.
func (a *App) Quit() {
	a.Stop()
}

func (a *App) run(what string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			a.vm.Flash.Err(what+": "+err.Error(), a.notifyAfter())
		}
		a.app.QueueUpdateDraw(a.render)
	}()
}

func (a *App) refresh() {
	if err := a.vm.Refresh(a.ctx); err != nil {
		a.vm.Flash.Err("Refresh failed: "+err.Error(), a.notifyAfter())
	}
	a.app.QueueUpdateDraw(a.render)
}

func (a *App) notifyAfter() time.Duration {
	if st := a.vm.State(); st != nil && st.NotifyMs > 0 {
		return time.Duration(st.NotifyMs) * time.Millisecond
	}
	return defaultNotify
}

// render pushes the cached state into every view. Must run on the UI goroutine.
func (a *App) render() {
	st := a.vm.State()
	a.statusBar.SetFlash(ui.FlashText(a.theme, a.vm.Flash.Get()))
	if st == nil {
		return
	}

	users := make(map[string]string, len(st.Users))
	userItems := make([]views.Item, 0, len(st.Users))
	for _, u := range st.Users {
		users[u.ID] = u.Name
		userItems = append(userItems, views.Item{ID: u.ID, Name: u.Name})
	}
	channelItems := make([]views.Item, 0, len(st.Channels))
	for _, c := range st.Channels {
		channelItems = append(channelItems, views.Item{ID: c.ID, Name: c.Name})
	}
	sort.SliceStable(channelItems, func(i, j int) bool { return channelItems[i].ID < channelItems[j].ID })

	a.users.Update(userItems, st.UserID)
	a.channels.Update(channelItems, st.ChannelID)

	channel := a.vm.ChannelName()
	a.thread.Update(views.ThreadState{
		Channel:       channel,
		UserID:        st.UserID,
		Users:         users,
		Messages:      st.Messages,
		Loading:       st.Loading,
		FetchingOlder: st.Older == string(status.Fetching),
		FetchingNewer: st.Newer == string(status.Fetching),
	})

	a.statusBar.SetActivity(
		st.Older == string(status.Fetching),
		st.Newer == string(status.Fetching),
		st.Sending,
		st.Degraded,
	)
	a.sessionInfo.Update(&ui.SessionData{
		Session:     st.Session,
		User:        users[st.UserID],
		Channel:     channel,
		FailedCount: st.FailedCount,
		Degraded:    st.Degraded,
		Uptime:      time.Duration(st.UptimeMs) * time.Millisecond,
	})
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		a.refresh()
		go a.watchEvents()
		a.startTicker()
	}()

	return a.app.Run()
}

// watchEvents keeps a WatchEvents stream open, reconnecting with
// exponential backoff, and refreshes on every event.
func (a *App) watchEvents() {
	for a.ctx.Err() == nil {
		stream, err := backoff.Retry(a.ctx, func() (api.EventReceiver, error) {
			s, err := a.grpc.WatchEvents(a.ctx, "")
			if err != nil && a.ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return s, err
		}, backoff.WithMaxElapsedTime(0))
		if err != nil {
			return
		}
		if err := a.consume(stream); err != nil && a.ctx.Err() == nil {
			a.vm.Flash.Err(fmt.Sprintf("Event stream lost: %v", err), a.notifyAfter())
			a.app.QueueUpdateDraw(a.render)
		}
	}
}

func (a *App) consume(stream api.EventReceiver) error {
	for {
		env, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.HasPrefix(env.Kind, bus.NotifyPrefix) {
			if n, ok := env.Notification(); ok {
				a.vm.Flash.Notify(n, a.notifyAfter())
			}
		}
		a.refresh()
	}
}

func (a *App) startTicker() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.statusBar.SetFlash(ui.FlashText(a.theme, a.vm.Flash.Get()))
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
