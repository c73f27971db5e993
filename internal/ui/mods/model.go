// Package mods is the interactive catalog browser behind `buildctl addons`
package mods

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/catalog"
	"github.com/bnema/buildctl/internal/ui/styles"
)

type viewState int

const (
	viewList viewState = iota
	viewConfirmDelete
	viewInfo
	viewBusy
)

type addonItem struct {
	addon  *addons.Addon
	newer  bool
	isMods bool
}

func (i addonItem) Title() string {
	return strings.TrimSpace(i.addon.DisplayName() + " " + styles.FormatFavorite(i.addon.IsFavorite))
}

func (i addonItem) Description() string {
	parts := []string{styles.FormatVersion(i.addon.Version)}
	if i.addon.Author != "" {
		parts = append(parts, "by "+i.addon.Author)
	}
	if i.isMods {
		parts = append(parts, styles.FormatModState(i.addon.Enabled))
	} else {
		parts = append(parts, styles.FormatVariant(i.addon.Variant))
	}
	if i.newer {
		parts = append(parts, styles.FormatNewerInstalled())
	}
	return strings.Join(parts, " | ")
}

func (i addonItem) FilterValue() string {
	return i.addon.ID + " " + i.addon.Title
}

// KeyMap defines the browser shortcuts
type KeyMap struct {
	NextTab    key.Binding
	PrevTab    key.Binding
	Toggle     key.Binding
	Info       key.Binding
	Delete     key.Binding
	Rescan     key.Binding
	FullRescan key.Binding
	Confirm    key.Binding
	Back       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextTab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next kind")),
		PrevTab:    key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous kind")),
		Toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "enable/disable")),
		Info:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "info")),
		Delete:     key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Rescan:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		FullRescan: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "full rescan")),
		Confirm:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// Model is the catalog browser of one game
type Model struct {
	cache   *catalog.Cache
	list    list.Model
	spinner spinner.Model
	keys    KeyMap

	tab   int
	state viewState

	selected *addons.Addon
	report   *catalog.DependencyReport
	status   string
	errMsg   string
	busyMsg  string

	events      chan catalog.Event
	unsubscribe func()
}

// NewModel creates a browser over cache. It subscribes to catalog events
// until the user quits.
func NewModel(cache *catalog.Cache) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(styles.Primary).
		BorderForeground(styles.Primary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(styles.Muted).
		BorderForeground(styles.Primary)

	l := list.New(nil, delegate, 0, 0)
	l.Styles.Title = styles.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	events := make(chan catalog.Event, 16)
	unsubscribe := cache.Subscribe(func(ev catalog.Event) {
		select {
		case events <- ev:
		default:
			// The browser reloads on the next event anyway
		}
	})

	m := Model{
		cache:       cache,
		list:        l,
		spinner:     s,
		keys:        DefaultKeyMap(),
		events:      events,
		unsubscribe: unsubscribe,
	}
	m.reload()
	return m
}

type (
	catalogChangedMsg catalog.Event
	opDoneMsg         struct {
		status string
		err    error
	}
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent, m.rescan(false))
}

func (m Model) waitForEvent() tea.Msg {
	ev, ok := <-m.events
	if !ok {
		return nil
	}
	return catalogChangedMsg(ev)
}

func (m Model) kind() addons.Kind {
	return addons.Kinds[m.tab]
}

// reload refreshes the list from the current snapshot of the active kind
func (m *Model) reload() {
	kind := m.kind()
	snap := m.cache.Get(kind)

	items := make([]list.Item, 0, snap.Len())
	for _, a := range snap.All() {
		items = append(items, addonItem{
			addon:  a,
			newer:  m.cache.HasNewerVersion(a.Identity),
			isMods: kind == addons.KindMod,
		})
	}
	m.list.SetItems(items)
	m.list.Title = fmt.Sprintf("%s addons", m.cache.Game())
}

func (m Model) selectedAddon() *addons.Addon {
	if item, ok := m.list.SelectedItem().(addonItem); ok {
		return item.addon
	}
	return nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	return m, tea.Quit
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := styles.App.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		if key.Matches(msg, m.keys.Quit) {
			if m.state == viewList || msg.String() == "ctrl+c" {
				return m.quit()
			}
			m.state = viewList
			return m, nil
		}
		switch m.state {
		case viewList:
			return m.updateList(msg)
		case viewConfirmDelete:
			return m.updateConfirmDelete(msg)
		case viewInfo:
			if key.Matches(msg, m.keys.Back, m.keys.Info) {
				m.state = viewList
				m.selected, m.report = nil, nil
			}
			return m, nil
		case viewBusy:
			return m, nil
		}

	case catalogChangedMsg:
		if msg.Kind == m.kind() || msg.Kind == addons.KindMod {
			m.reload()
		}
		return m, m.waitForEvent

	case opDoneMsg:
		m.state = viewList
		m.status, m.errMsg = "", ""
		if msg.err != nil {
			m.errMsg = msg.err.Error()
		} else {
			m.status = msg.status
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NextTab):
		m.tab = (m.tab + 1) % len(addons.Kinds)
		m.reload()
		return m, nil

	case key.Matches(msg, m.keys.PrevTab):
		m.tab = (m.tab + len(addons.Kinds) - 1) % len(addons.Kinds)
		m.reload()
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		a := m.selectedAddon()
		if a == nil || !a.IsMod() {
			return m, nil
		}
		return m, m.toggle(a.Identity, !a.Enabled)

	case key.Matches(msg, m.keys.Info):
		a := m.selectedAddon()
		if a == nil {
			return m, nil
		}
		m.selected = a
		if report, err := m.cache.CheckDependencies(a.Identity); err == nil {
			m.report = &report
		}
		m.state = viewInfo
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		a := m.selectedAddon()
		if a == nil || a.Variant == addons.VariantOfficialCampaign {
			return m, nil
		}
		m.selected = a
		m.state = viewConfirmDelete
		return m, nil

	case key.Matches(msg, m.keys.Rescan):
		m.state, m.busyMsg = viewBusy, "Rescanning..."
		return m, m.rescan(false)

	case key.Matches(msg, m.keys.FullRescan):
		m.state, m.busyMsg = viewBusy, "Rescanning everything..."
		return m, m.rescan(true)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		a := m.selected
		m.selected = nil
		m.state, m.busyMsg = viewBusy, "Deleting "+a.DisplayName()+"..."
		return m, m.delete(a)
	case key.Matches(msg, m.keys.Back), msg.String() == "n":
		m.state = viewList
		m.selected = nil
	}
	return m, nil
}

// Commands

func (m Model) toggle(id addons.Identity, enable bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if enable {
			err = m.cache.Enable(id)
		} else {
			err = m.cache.Disable(id)
		}
		verb := "disabled"
		if enable {
			verb = "enabled"
		}
		return opDoneMsg{status: fmt.Sprintf("%s %s", id, verb), err: err}
	}
}

func (m Model) delete(a *addons.Addon) tea.Cmd {
	kind := a.Kind()
	return func() tea.Msg {
		err := m.cache.Delete(kind, a.Identity, true)
		return opDoneMsg{status: a.DisplayName() + " deleted (backup created)", err: err}
	}
}

func (m Model) rescan(full bool) tea.Cmd {
	return func() tea.Msg {
		results, err := m.cache.RescanAll(full)
		if err != nil {
			return opDoneMsg{err: err}
		}
		total, skipped := 0, 0
		for _, r := range results {
			total += r.Count
			skipped += len(r.Errors)
		}
		status := fmt.Sprintf("%d addons", total)
		if skipped > 0 {
			status += fmt.Sprintf(", %d skipped (see log)", skipped)
		}
		return opDoneMsg{status: status}
	}
}

// Views

func (m Model) View() string {
	var content string
	switch m.state {
	case viewConfirmDelete:
		content = m.viewConfirmDelete()
	case viewInfo:
		content = m.viewInfo()
	default:
		content = m.viewList()
	}
	return styles.App.Render(content)
}

func (m Model) viewTabs() string {
	tabs := make([]string, 0, len(addons.Kinds))
	for i, kind := range addons.Kinds {
		label := fmt.Sprintf("%s (%d)", kindLabel(kind), m.cache.Get(kind).Len())
		if i == m.tab {
			tabs = append(tabs, styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, styles.InactiveTab.Render(label))
		}
	}
	return strings.Join(tabs, " ")
}

func kindLabel(kind addons.Kind) string {
	switch kind {
	case addons.KindConversion:
		return "Conversions"
	case addons.KindMap:
		return "Maps"
	default:
		return "Mods"
	}
}

func (m Model) viewList() string {
	var s strings.Builder
	s.WriteString(m.viewTabs() + "\n\n")
	s.WriteString(m.list.View())

	switch {
	case m.state == viewBusy || m.cache.IsStale():
		msg := m.busyMsg
		if msg == "" {
			msg = "Rescanning..."
		}
		s.WriteString("\n" + m.spinner.View() + " " + styles.MutedText.Render(msg))
	case m.errMsg != "":
		s.WriteString("\n" + styles.FormatError(m.errMsg))
	case m.status != "":
		s.WriteString("\n" + styles.FormatSuccess(m.status))
	}

	s.WriteString("\n" + styles.Help.Render("tab:kind  space:toggle  enter:info  d:delete  r/R:rescan  /:filter  q:quit"))
	return s.String()
}

func (m Model) viewConfirmDelete() string {
	var s strings.Builder
	name := ""
	if m.selected != nil {
		name = m.selected.DisplayName()
	}
	s.WriteString(styles.Title.Render("Delete Addon") + "\n\n")
	fmt.Fprintf(&s, "Delete %s and its files?\n", styles.Highlighted.Render(name))
	s.WriteString("A backup will be created.\n\n")
	s.WriteString(styles.Help.Render("y:confirm  n/esc:cancel"))
	return s.String()
}

func (m Model) viewInfo() string {
	a := m.selected
	if a == nil {
		return "No addon selected"
	}

	var s strings.Builder
	s.WriteString(styles.Title.Render("Addon Info") + "\n\n")
	s.WriteString(styles.AddonName.Render(a.DisplayName()) + " " + styles.FormatVersion(a.Version) + "\n\n")

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&s, "%-12s %s\n", label+":", value)
		}
	}
	field("ID", a.ID)
	field("Type", a.Variant.String())
	field("Author", a.Author)
	field("Path", a.Path)
	if a.IsMod() {
		field("State", styles.FormatModState(a.Enabled))
	}
	if len(a.Dependencies) > 0 {
		field("Requires", formatRefs(a.Dependencies, a.SortedDependencies()))
	}
	if len(a.Incompatibles) > 0 {
		field("Conflicts", formatRefs(a.Incompatibles, a.SortedIncompatibles()))
	}
	if a.Description != "" {
		s.WriteString("\n" + styles.MutedText.Render(a.Description) + "\n")
	}

	if r := m.report; r != nil && !r.OK() {
		s.WriteString("\n")
		for _, id := range r.Missing {
			s.WriteString(styles.FormatWarning("missing dependency "+id) + "\n")
		}
		for _, u := range r.Unsatisfied {
			s.WriteString(styles.FormatWarning(fmt.Sprintf("%s %s required, installed %s",
				u.ID, u.Constraint, strings.Join(u.Installed, ", "))) + "\n")
		}
		for _, c := range r.Conflicts {
			s.WriteString(styles.FormatWarning("conflicts with enabled "+c.String()) + "\n")
		}
	}

	s.WriteString("\n" + styles.Help.Render("esc/enter:back"))
	return s.String()
}

func formatRefs(refs map[string]string, ids []string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if c := refs[id]; c != "" {
			parts = append(parts, id+" "+c)
		} else {
			parts = append(parts, id)
		}
	}
	return strings.Join(parts, ", ")
}
