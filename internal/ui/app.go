package ui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/snapwatch/internal/bootstrap"
	"github.com/five82/snapwatch/internal/bus"
	"github.com/five82/snapwatch/internal/prefs"
	"github.com/five82/snapwatch/internal/query"
	"github.com/five82/snapwatch/internal/snapshot"
)

const toastDuration = 4 * time.Second

// Screen is the active top-level view.
type Screen int

const (
	ScreenList Screen = iota
	ScreenDetail
)

// Bootstrap is the outcome of a lookup performed before the UI started.
type Bootstrap struct {
	ID   string
	Seed bootstrap.Seed
	Err  error
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Poller    *query.Poller
	Lister    snapshot.Lister
	Fetcher   snapshot.Fetcher
	ThemeName string
	Prefs     *prefs.File // nil disables saving the theme
	Logger    *slog.Logger
	// StaticURL is the archive host. Empty hides the archive links.
	StaticURL string
	// Initial opens a detail view on start instead of the listing.
	Initial *Bootstrap
}

type listState struct {
	items   []snapshot.Snapshot
	cursor  int
	loading bool
	err     error
}

type detailState struct {
	id       string
	opening  bool
	notFound bool
	err      error
	sub      *query.Subscription
	view     query.View
}

type toast struct {
	text  string
	isErr bool
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx     context.Context
	poller  *query.Poller
	bus     *bus.Bus
	lister  snapshot.Lister
	fetcher snapshot.Fetcher
	prefs   *prefs.File
	log     *slog.Logger
	now     func() time.Time
	static  string

	theme   Theme
	styles  Styles
	keys    keyMap
	spinner spinner.Model
	width   int
	height  int

	screen     Screen
	list       listState
	detail     detailState
	confirming bool
	deleting   bool

	toast    *toast
	toastSeq int

	initial *Bootstrap
}

// Messages

type listMsg struct {
	items []snapshot.Snapshot
	err   error
}

type bootstrapMsg Bootstrap

type viewMsg struct {
	sub  *query.Subscription
	view query.View
	ok   bool
}

type deleteMsg struct {
	id      string
	outcome query.DeleteOutcome
	err     error
}

type toastExpiredMsg struct {
	seq int
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	theme := GetTheme(opts.ThemeName)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Accent))

	m := Model{
		ctx:     ctx,
		poller:  opts.Poller,
		lister:  opts.Lister,
		fetcher: opts.Fetcher,
		prefs:   opts.Prefs,
		log:     logger,
		now:     time.Now,
		static:  opts.StaticURL,
		theme:   theme,
		styles:  theme.Styles(),
		keys:    DefaultKeyMap(),
		spinner: sp,
		screen:  ScreenList,
		initial: opts.Initial,
	}
	if opts.Poller != nil {
		m.bus = opts.Poller.Bus()
	}
	if opts.Initial != nil {
		m.screen = ScreenDetail
		m.detail = detailState{id: opts.Initial.ID, opening: true}
	} else {
		m.list.loading = true
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.initial != nil {
		initial := *m.initial
		cmds = append(cmds, func() tea.Msg { return bootstrapMsg(initial) })
	} else {
		cmds = append(cmds, m.loadListCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case listMsg:
		m.list.loading = false
		if msg.err != nil {
			m.list.err = msg.err
			m.log.Warn("listing snapshots failed", "error", msg.err)
			return m, m.showToast("Error fetching data, try refreshing.", true)
		}
		m.list.err = nil
		m.list.items = msg.items
		if m.list.cursor >= len(m.list.items) {
			m.list.cursor = max(len(m.list.items)-1, 0)
		}
		return m, nil

	case bootstrapMsg:
		return m.handleBootstrap(Bootstrap(msg))

	case viewMsg:
		if msg.sub == nil || msg.sub != m.detail.sub || !msg.ok {
			return m, nil
		}
		m.detail.view = msg.view
		return m, waitForView(msg.sub)

	case deleteMsg:
		return m.handleDelete(msg)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.closeDetail()
		return m, tea.Quit
	}

	if m.confirming {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirming = false
			m.deleting = true
			return m, m.deleteCmd(m.detail.id)
		case key.Matches(msg, m.keys.Cancel):
			m.confirming = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closeDetail()
		return m, tea.Quit
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.styles = m.theme.Styles()
		m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
		if m.prefs != nil {
			if err := m.prefs.SaveTheme(m.theme.Name); err != nil {
				m.log.Warn("saving theme failed", "error", err)
			}
		}
		return m, nil
	}

	switch m.screen {
	case ScreenList:
		return m.handleListKey(msg)
	case ScreenDetail:
		return m.handleDetailKey(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.list.items)
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.list.cursor > 0 {
			m.list.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.list.cursor < n-1 {
			m.list.cursor++
		}
	case key.Matches(msg, m.keys.Top):
		m.list.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.list.cursor = max(n-1, 0)
	case key.Matches(msg, m.keys.Open):
		if n == 0 {
			return m, nil
		}
		return m.openDetail(m.list.items[m.list.cursor].ID)
	case key.Matches(msg, m.keys.Refresh):
		if m.bus != nil {
			m.bus.Invalidate(bus.KeySnapshots)
		}
		m.list.loading = true
		return m, m.loadListCmd()
	}
	return m, nil
}

// canDelete reports whether the open snapshot may be deleted. Snapshots that
// are still processing cannot be.
func (m Model) canDelete() bool {
	d := m.detail
	return !m.deleting && !d.notFound && !d.view.Deleted && d.view.Ready()
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m.goHome()
	case key.Matches(msg, m.keys.Delete):
		if !m.canDelete() {
			return m, nil
		}
		m.confirming = true
	case key.Matches(msg, m.keys.Refresh):
		if m.detail.sub != nil && m.poller != nil {
			if err := m.poller.Refresh(m.detail.id); err != nil {
				m.log.Warn("refresh failed", "id", m.detail.id, "error", err)
			}
		}
	}
	return m, nil
}

func (m Model) openDetail(id string) (tea.Model, tea.Cmd) {
	m.closeDetail()
	m.screen = ScreenDetail
	m.detail = detailState{id: id, opening: true}
	return m, m.bootstrapCmd(id)
}

// goHome leaves the detail view and shows the listing, refetching it when a
// mutation marked it stale.
func (m Model) goHome() (tea.Model, tea.Cmd) {
	m.closeDetail()
	m.screen = ScreenList
	m.list.loading = true
	return m, m.loadListCmd()
}

func (m *Model) closeDetail() {
	if m.detail.sub != nil {
		m.detail.sub.Close()
	}
	m.detail = detailState{}
	m.confirming = false
	m.deleting = false
}

func (m Model) handleBootstrap(b Bootstrap) (tea.Model, tea.Cmd) {
	if m.screen != ScreenDetail || b.ID != m.detail.id || !m.detail.opening {
		return m, nil
	}
	m.detail.opening = false

	switch {
	case errors.Is(b.Err, snapshot.ErrNotFound):
		m.detail.notFound = true
		return m, nil
	case b.Err != nil:
		m.detail.err = b.Err
		m.log.Warn("opening snapshot failed", "id", b.ID, "error", b.Err)
		return m, m.showToast("Error fetching data, try refreshing.", true)
	}

	snap, err := b.Seed.Snapshot()
	if err != nil {
		m.detail.err = err
		return m, m.showToast("Error fetching data, try refreshing.", true)
	}
	if m.poller == nil {
		m.detail.view = query.View{ID: b.ID, Data: &snap, Status: query.StatusSeeded}
		return m, nil
	}
	sub, err := m.poller.Subscribe(b.ID, &snap)
	if err != nil {
		m.detail.err = err
		return m, nil
	}
	m.detail.sub = sub
	m.detail.view = sub.Current()
	return m, waitForView(sub)
}

func (m Model) handleDelete(msg deleteMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.detail.id {
		return m, nil
	}
	m.deleting = false
	if msg.err != nil {
		return m, m.showToast(userMessage(msg.err), true)
	}

	text := msg.outcome.Message
	if text == "" {
		text = "Deleted."
	}
	toastCmd := m.showToast(text, false)
	if !msg.outcome.NavigateHome {
		return m, toastCmd
	}
	next, loadCmd := m.goHome()
	return next, tea.Batch(toastCmd, loadCmd)
}

func (m *Model) showToast(text string, isErr bool) tea.Cmd {
	m.toastSeq++
	m.toast = &toast{text: text, isErr: isErr}
	seq := m.toastSeq
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// userMessage maps a delete failure to the text shown in its toast.
func userMessage(err error) string {
	var pre *query.PreconditionError
	if errors.As(err, &pre) {
		return pre.UserMessage()
	}
	var mut *snapshot.MutationError
	if errors.As(err, &mut) {
		return mut.UserMessage()
	}
	return snapshot.DefaultDeleteFailure
}

// Commands

func (m Model) loadListCmd() tea.Cmd {
	ctx, b, lister := m.ctx, m.bus, m.lister
	return func() tea.Msg {
		if lister == nil {
			return listMsg{}
		}
		if b == nil {
			items, err := lister.ListSnapshots(ctx)
			return listMsg{items: items, err: err}
		}
		items, err := bus.Load(ctx, b, bus.KeySnapshots, lister.ListSnapshots)
		return listMsg{items: items, err: err}
	}
}

func (m Model) bootstrapCmd(id string) tea.Cmd {
	ctx, fetcher := m.ctx, m.fetcher
	return func() tea.Msg {
		if fetcher == nil {
			return bootstrapMsg{ID: id, Err: bootstrap.ErrNotFound}
		}
		seed, err := bootstrap.Load(ctx, fetcher, id)
		return bootstrapMsg{ID: id, Seed: seed, Err: err}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	ctx, poller := m.ctx, m.poller
	return func() tea.Msg {
		if poller == nil {
			return deleteMsg{id: id, err: &query.PreconditionError{ID: id}}
		}
		outcome, err := poller.Delete(ctx, id)
		return deleteMsg{id: id, outcome: outcome, err: err}
	}
}

// waitForView blocks on the subscription until the poller publishes.
func waitForView(sub *query.Subscription) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-sub.Updates()
		return viewMsg{sub: sub, view: v, ok: ok}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(opts.Context))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.closeDetail()
	}
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context.Err() != nil {
		return nil
	}
	return err
}
