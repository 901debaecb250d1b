// cmd/dashboard/model.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/services"
	"github.com/ammerola/sweetshop/internal/export"
	"github.com/ammerola/sweetshop/internal/pkg/logger"
)

type mode int

const (
	modeBrowse mode = iota
	modeAuth
	modeSearch
	modeExport
	modeForm
	modePurchase
	modeRestock
	modeDelete
)

// Form field order, shared by the inputs and the view labels.
const (
	fieldName = iota
	fieldCategory
	fieldPrice
	fieldQuantity
	fieldImage
)

const (
	authEmail = iota
	authPassword
	authRole
)

const (
	searchName = iota
	searchCategory
	searchMin
	searchMax
)

const (
	exportPath = iota
	exportColumns
)

// Messages produced by the dashboard's commands. All of them are handled by
// Update; anything else reaching Update belongs to the bubbles components.
type (
	changedMsg struct{}
	loadedMsg  struct{ err error }
	submitMsg  struct{ err error }
	logoutMsg  struct{ err error }
	authMsg    struct {
		session domain.Session
		err     error
	}
	exportedMsg struct {
		path string
		rows int
		err  error
	}
)

// Model is the dashboard's Bubble Tea model. Every request to the catalog
// service runs as a tea.Cmd; Update only reads state back from the store,
// the notifier and the coordinator.
type Model struct {
	ctx    context.Context
	deps   *dependencies
	log    *logger.Logger
	events <-chan struct{}
	blink  bool

	local   mode
	sortKey domain.SortKey
	width   int
	height  int

	catalog list.Model
	snap    services.Snapshot
	note    *domain.Notification
	status  string
	failed  bool

	// bound is the surface the inputs were last loaded from.
	bound    services.Surface
	attached string

	authInputs   []textinput.Model
	register     bool
	searchInputs []textinput.Model
	formInputs   []textinput.Model
	exportInputs []textinput.Model
	quantity     textinput.Model
	focus        int
}

// modelOption configures a Model.
type modelOption func(*Model)

// withStaticCursor turns cursor blinking off.
func withStaticCursor() modelOption {
	return func(m *Model) { m.blink = false }
}

// newModel creates the dashboard around deps. events wakes the model when
// the store or the notifier changes in the background; it may be nil.
func newModel(ctx context.Context, deps *dependencies, log *logger.Logger, events <-chan struct{}, opts ...modelOption) *Model {
	m := &Model{
		ctx:     ctx,
		deps:    deps,
		log:     log,
		events:  events,
		blink:   true,
		sortKey: domain.DefaultSortKey,
		width:   80,
		height:  24,
	}
	for _, opt := range opts {
		opt(m)
	}
	if key, err := domain.ParseSortKey(deps.cfg.UI.DefaultSort); err == nil {
		m.sortKey = key
	}

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	m.catalog = list.New([]list.Item{}, delegate, m.width, m.listHeight())
	m.catalog.SetShowHelp(false)
	m.catalog.SetShowStatusBar(false)
	m.catalog.SetShowTitle(false)
	m.catalog.SetFilteringEnabled(false)
	m.catalog.DisableQuitKeybindings()

	m.authInputs = []textinput.Model{
		m.newInput("email", 254),
		m.newInput("password", 128),
		m.newInput("customer", 16),
	}
	m.authInputs[authPassword].EchoMode = textinput.EchoPassword
	m.searchInputs = []textinput.Model{
		m.newInput("any name", 64),
		m.newInput("any category", 32),
		m.newInput("no minimum", 12),
		m.newInput("no maximum", 12),
	}
	m.formInputs = []textinput.Model{
		m.newInput("Kaju Katli", 128),
		m.newInput(strings.Join(categoryNames(), ", "), 32),
		m.newInput("0.00", 12),
		m.newInput("0", 9),
		m.newInput("path to a png, jpeg or webp file", 512),
	}
	m.exportInputs = []textinput.Model{
		m.newInput(deps.exporter.Filename(export.FormatXLSX), 512),
		m.newInput("all", 128),
	}
	m.quantity = m.newInput("1", 6)

	if _, ok := deps.sessions.Current(); !ok {
		m.local = modeAuth
	}
	return m
}

func (m *Model) newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	ti.Styles.Cursor.Blink = m.blink
	return ti
}

// Init loads the catalog when a stored session was restored and starts
// listening for background changes.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForChange(), m.sync()}
	if m.local == modeAuth {
		cmds = append(cmds, m.focusInputs(m.authInputs, authEmail))
	} else {
		cmds = append(cmds, m.refresh())
	}
	return tea.Batch(cmds...)
}

// Update handles one message and re-reads shared state before returning.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.catalog.SetSize(msg.Width, m.listHeight())
	case changedMsg:
		cmds = append(cmds, m.waitForChange())
	case authMsg:
		if msg.err != nil {
			m.setStatus("Sign in failed: "+domain.UserMessage(msg.err), true)
			break
		}
		m.setStatus(fmt.Sprintf("Signed in as %s (%s)", displayEmail(msg.session), msg.session.Role), false)
		for i := range m.authInputs {
			m.authInputs[i].Reset()
			m.authInputs[i].Blur()
		}
		m.register = false
		m.local = modeBrowse
		cmds = append(cmds, m.refresh())
	case submitMsg:
		m.submitted(msg.err)
	case loadedMsg:
		if errors.Is(msg.err, domain.ErrUnauthenticated) {
			m.setStatus(domain.UserMessage(msg.err), true)
		}
	case logoutMsg:
		if msg.err != nil {
			m.setStatus(domain.UserMessage(msg.err), true)
		}
	case exportedMsg:
		if msg.err != nil {
			m.setStatus(domain.UserMessage(msg.err), true)
			break
		}
		m.setStatus(fmt.Sprintf("Exported %s to %s", export.FormatRowCount(msg.rows), msg.path), false)
	case tea.KeyPressMsg:
		cmds = append(cmds, m.handleKeyPress(msg))
	default:
		var cmd tea.Cmd
		m.catalog, cmd = m.catalog.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.sync())
	return m, tea.Batch(cmds...)
}

// mode is the surface the keyboard currently drives. An open coordinator
// surface takes precedence over the dashboard's own panels.
func (m *Model) mode() mode {
	switch m.deps.coordinator.Active().(type) {
	case *services.FormSurface:
		return modeForm
	case *services.PurchaseSurface:
		return modePurchase
	case *services.RestockSurface:
		return modeRestock
	case *services.DeleteSurface:
		return modeDelete
	}
	return m.local
}

func (m *Model) handleKeyPress(msg tea.KeyPressMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}

	switch m.mode() {
	case modeAuth:
		return m.authKey(msg)
	case modeSearch:
		return m.searchKey(msg)
	case modeExport:
		return m.exportKey(msg)
	case modeForm:
		return m.formKey(msg)
	case modePurchase, modeRestock:
		return m.dialogKey(msg)
	case modeDelete:
		return m.deleteKey(msg)
	default:
		return m.browseKey(msg)
	}
}

func (m *Model) browseKey(msg tea.KeyPressMsg) tea.Cmd {
	m.clearStatus()

	switch msg.String() {
	case "q":
		return tea.Quit
	case "esc":
		m.deps.coordinator.Notifier().Dismiss()
	case "r":
		return m.refresh()
	case "/":
		m.local = modeSearch
		return m.focusInputs(m.searchInputs, searchName)
	case "s":
		m.sortKey = nextSortKey(m.sortKey)
	case "S":
		m.sortKey = m.sortKey.Reverse()
	case "a":
		_, err := m.deps.coordinator.OpenAdd()
		m.reportOpen(err)
	case "e":
		if item, ok := m.selected(); ok {
			_, err := m.deps.coordinator.OpenEdit(item)
			m.reportOpen(err)
		}
	case "enter", "b":
		if item, ok := m.selected(); ok {
			_, err := m.deps.coordinator.OpenPurchase(item)
			m.reportOpen(err)
		}
	case "t":
		if item, ok := m.selected(); ok {
			_, err := m.deps.coordinator.OpenRestock(item)
			m.reportOpen(err)
		}
	case "d":
		if item, ok := m.selected(); ok {
			_, err := m.deps.coordinator.OpenDelete(item.ID)
			m.reportOpen(err)
		}
	case "x":
		m.local = modeExport
		return m.focusInputs(m.exportInputs, exportPath)
	case "L":
		return m.logout()
	default:
		var cmd tea.Cmd
		m.catalog, cmd = m.catalog.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) authKey(msg tea.KeyPressMsg) tea.Cmd {
	fields := 2
	if m.register {
		fields = 3
	}

	switch msg.String() {
	case "tab", "down":
		return m.focusInputs(m.authInputs, (m.focus+1)%fields)
	case "shift+tab", "up":
		return m.focusInputs(m.authInputs, (m.focus+fields-1)%fields)
	case "ctrl+r":
		m.register = !m.register
		m.clearStatus()
		return m.focusInputs(m.authInputs, authEmail)
	case "enter":
		email := strings.TrimSpace(m.authInputs[authEmail].Value())
		password := m.authInputs[authPassword].Value()
		if !m.register {
			m.setStatus("Signing in...", false)
			return m.login(email, password)
		}
		role := domain.RoleCustomer
		if raw := strings.TrimSpace(m.authInputs[authRole].Value()); raw != "" {
			parsed, err := domain.ParseRole(raw)
			if err != nil {
				m.setStatus(domain.UserMessage(err), true)
				return nil
			}
			role = parsed
		}
		m.setStatus("Creating account...", false)
		return m.registerAccount(email, password, role)
	}

	var cmd tea.Cmd
	m.authInputs[m.focus], cmd = m.authInputs[m.focus].Update(msg)
	return cmd
}

func (m *Model) searchKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.local = modeBrowse
		return m.focusInputs(m.searchInputs, -1)
	case "tab", "down":
		return m.focusInputs(m.searchInputs, (m.focus+1)%len(m.searchInputs))
	case "shift+tab", "up":
		return m.focusInputs(m.searchInputs, (m.focus+len(m.searchInputs)-1)%len(m.searchInputs))
	case "ctrl+u":
		for i := range m.searchInputs {
			m.searchInputs[i].Reset()
		}
		return nil
	case "enter":
		criteria, err := services.ParseCriteria(
			m.searchInputs[searchName].Value(),
			m.searchInputs[searchCategory].Value(),
			m.searchInputs[searchMin].Value(),
			m.searchInputs[searchMax].Value(),
		)
		if err != nil {
			m.setStatus(domain.UserMessage(err), true)
			return nil
		}
		m.clearStatus()
		m.local = modeBrowse
		return tea.Batch(m.focusInputs(m.searchInputs, -1), m.search(criteria))
	}

	var cmd tea.Cmd
	m.searchInputs[m.focus], cmd = m.searchInputs[m.focus].Update(msg)
	return cmd
}

func (m *Model) exportKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.local = modeBrowse
		return m.focusInputs(m.exportInputs, -1)
	case "tab", "shift+tab", "down", "up":
		return m.focusInputs(m.exportInputs, 1-m.focus)
	case "enter":
		path := strings.TrimSpace(m.exportInputs[exportPath].Value())
		if path == "" {
			path = m.exportInputs[exportPath].Placeholder
		}
		format, err := export.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
		if err != nil {
			m.setStatus(domain.UserMessage(err), true)
			return nil
		}
		params := export.Params{
			Format:  format,
			Sort:    m.sortKey,
			Columns: export.ParseColumns(m.exportInputs[exportColumns].Value()),
		}
		m.local = modeBrowse
		return tea.Batch(m.focusInputs(m.exportInputs, -1), m.export(path, params))
	}

	var cmd tea.Cmd
	m.exportInputs[m.focus], cmd = m.exportInputs[m.focus].Update(msg)
	return cmd
}

func (m *Model) formKey(msg tea.KeyPressMsg) tea.Cmd {
	form, ok := m.deps.coordinator.Active().(*services.FormSurface)
	if !ok {
		return nil
	}

	switch msg.String() {
	case "esc":
		m.deps.coordinator.Close()
		return nil
	case "tab", "down":
		return m.focusInputs(m.formInputs, (m.focus+1)%len(m.formInputs))
	case "shift+tab", "up":
		return m.focusInputs(m.formInputs, (m.focus+len(m.formInputs)-1)%len(m.formInputs))
	case "ctrl+x":
		m.formInputs[fieldImage].Reset()
		m.attached = ""
		_ = form.Dispatch(services.ClearImage{})
		return nil
	case "enter":
		if !m.attachImage(form) {
			return nil
		}
		return m.submit()
	}

	var cmd tea.Cmd
	m.formInputs[m.focus], cmd = m.formInputs[m.focus].Update(msg)

	value := m.formInputs[m.focus].Value()
	switch m.focus {
	case fieldName:
		_ = form.Dispatch(services.SetName{Value: value})
	case fieldCategory:
		_ = form.Dispatch(services.SetCategory{Value: value})
	case fieldPrice:
		_ = form.Dispatch(services.SetPrice{Value: value})
	case fieldQuantity:
		_ = form.Dispatch(services.SetQuantity{Value: value})
	}
	return cmd
}

// attachImage reads the path typed into the image field, if it changed since
// the last attach, and reports whether submission may go ahead.
func (m *Model) attachImage(form *services.FormSurface) bool {
	path := strings.TrimSpace(m.formInputs[fieldImage].Value())
	if path == "" || path == m.attached {
		return true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		m.setStatus("Could not read image "+path, true)
		return false
	}
	if err := form.Dispatch(services.AttachImage{Image: domain.Image{Name: filepath.Base(path), Data: data}}); err != nil {
		return false
	}
	m.attached = path
	return true
}

func (m *Model) dialogKey(msg tea.KeyPressMsg) tea.Cmd {
	dialog := m.dialog()
	if dialog == nil {
		return nil
	}

	switch msg.String() {
	case "esc":
		m.deps.coordinator.Close()
		return nil
	case "enter":
		return m.submit()
	case "up", "right":
		_ = dialog.Dispatch(services.StepQuantity{Delta: 1})
		m.quantity.SetValue(strconv.Itoa(dialog.Request().Quantity))
		return nil
	case "down", "left":
		_ = dialog.Dispatch(services.StepQuantity{Delta: -1})
		m.quantity.SetValue(strconv.Itoa(dialog.Request().Quantity))
		return nil
	}

	var cmd tea.Cmd
	m.quantity, cmd = m.quantity.Update(msg)
	if raw := strings.TrimSpace(m.quantity.Value()); raw != "" {
		if n, err := services.ParseQuantity(raw); err != nil {
			m.setStatus(domain.UserMessage(err), true)
		} else {
			m.clearStatus()
			_ = dialog.Dispatch(services.ChooseQuantity{Quantity: n})
		}
	}
	return cmd
}

func (m *Model) deleteKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "y", "enter":
		return m.submit()
	case "n", "esc":
		m.deps.coordinator.Close()
	}
	return nil
}

// submitted reacts to a finished Coordinator.Submit. Request failures were
// already turned into notifications; validation failures stay on the
// surface and are rendered from its Err.
func (m *Model) submitted(err error) {
	switch {
	case err == nil:
		m.clearStatus()
	case errors.Is(err, domain.ErrSubmissionInFlight), errors.Is(err, domain.ErrNoActiveSurface):
		m.setStatus(domain.UserMessage(err), true)
	}
}

func (m *Model) reportOpen(err error) {
	if err != nil {
		m.setStatus(domain.UserMessage(err), true)
	}
}

// sync re-reads the store, the notifier and the active surface.
func (m *Model) sync() tea.Cmd {
	var cmds []tea.Cmd

	m.snap = m.deps.store.Snapshot()
	sorted := m.snap.Sorted(m.sortKey)
	rows := make([]list.Item, len(sorted))
	for i, item := range sorted {
		rows[i] = itemRow{item: item}
	}
	cmds = append(cmds, m.catalog.SetItems(rows))

	m.note = nil
	if note, ok := m.deps.coordinator.Notifier().Current(); ok {
		m.note = &note
	}

	if _, ok := m.deps.sessions.Current(); !ok && m.local != modeAuth {
		// The session ended under us: logout or a rejected token.
		m.deps.coordinator.Close()
		m.local = modeAuth
		cmds = append(cmds, m.focusInputs(m.authInputs, authEmail))
	}

	if active := m.deps.coordinator.Active(); active != m.bound {
		cmds = append(cmds, m.bind(active))
	}
	return tea.Batch(cmds...)
}

// bind loads the inputs from a newly opened surface.
func (m *Model) bind(active services.Surface) tea.Cmd {
	m.bound = active
	m.attached = ""

	switch s := active.(type) {
	case *services.FormSurface:
		d := s.Draft()
		m.formInputs[fieldName].SetValue(d.Name)
		m.formInputs[fieldCategory].SetValue(d.Category)
		m.formInputs[fieldPrice].SetValue(d.Price)
		m.formInputs[fieldQuantity].SetValue(d.Quantity)
		m.formInputs[fieldImage].Reset()
		return m.focusInputs(m.formInputs, fieldName)
	case *services.PurchaseSurface, *services.RestockSurface:
		m.quantity.SetValue(strconv.Itoa(m.dialog().Request().Quantity))
		return m.quantity.Focus()
	}

	m.quantity.Blur()
	return m.focusInputs(m.formInputs, -1)
}

// focusInputs focuses inputs[i] and blurs the rest; -1 blurs them all.
func (m *Model) focusInputs(inputs []textinput.Model, i int) tea.Cmd {
	var cmd tea.Cmd
	for j := range inputs {
		if j == i {
			cmd = inputs[j].Focus()
			continue
		}
		inputs[j].Blur()
	}
	if i >= 0 {
		m.focus = i
	}
	return cmd
}

func (m *Model) dialog() *services.TransactionDialog {
	switch s := m.deps.coordinator.Active().(type) {
	case *services.PurchaseSurface:
		return s.TransactionDialog
	case *services.RestockSurface:
		return s.TransactionDialog
	}
	return nil
}

func (m *Model) selected() (domain.Item, bool) {
	row, ok := m.catalog.SelectedItem().(itemRow)
	if !ok {
		m.setStatus("No sweet selected", true)
		return domain.Item{}, false
	}
	return row.item, true
}

func (m *Model) setStatus(msg string, failed bool) {
	m.status = msg
	m.failed = failed
}

func (m *Model) clearStatus() {
	m.setStatus("", false)
}

func (m *Model) listHeight() int {
	// Header, count line, toast, status and help.
	h := m.height - 10
	if h < 5 {
		h = 5
	}
	return h
}

// opContext tags a command's context for the request logs.
func (m *Model) opContext(op string) context.Context {
	ctx := logger.WithRequestID(logger.WithOperation(m.ctx, op))
	if session, ok := m.deps.sessions.Current(); ok {
		ctx = logger.WithRole(ctx, string(session.Role))
	}
	return ctx
}

func (m *Model) waitForChange() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		if _, ok := <-ch; ok {
			return changedMsg{}
		}
		return nil
	}
}

func (m *Model) refresh() tea.Cmd {
	ctx := m.opContext("list")
	return func() tea.Msg {
		return loadedMsg{err: m.deps.coordinator.Refresh(ctx)}
	}
}

func (m *Model) search(criteria domain.SearchCriteria) tea.Cmd {
	ctx := m.opContext("search")
	return func() tea.Msg {
		return loadedMsg{err: m.deps.coordinator.Search(ctx, criteria)}
	}
}

func (m *Model) login(email, password string) tea.Cmd {
	ctx := m.opContext("login")
	return func() tea.Msg {
		session, err := m.deps.sessions.Login(ctx, email, password)
		return authMsg{session: session, err: err}
	}
}

func (m *Model) registerAccount(email, password string, role domain.Role) tea.Cmd {
	ctx := m.opContext("register")
	return func() tea.Msg {
		session, err := m.deps.sessions.Register(ctx, email, password, role)
		return authMsg{session: session, err: err}
	}
}

func (m *Model) logout() tea.Cmd {
	ctx := m.opContext("logout")
	return func() tea.Msg {
		return logoutMsg{err: m.deps.coordinator.Logout(ctx)}
	}
}

func (m *Model) submit() tea.Cmd {
	surface := m.deps.coordinator.Active()
	if surface == nil {
		return nil
	}
	ctx := logger.WithSurface(m.opContext("submit"), string(surface.Kind()))
	if d, ok := surface.(*services.DeleteSurface); ok {
		ctx = logger.WithItemID(ctx, d.ID.String())
	}
	return func() tea.Msg {
		err := m.deps.coordinator.Submit(ctx)
		if err != nil {
			m.log.WithContext(ctx).Debug("submit failed", slog.String("error", err.Error()))
		}
		return submitMsg{err: err}
	}
}

func (m *Model) export(path string, params export.Params) tea.Cmd {
	ctx := m.opContext("export")
	snap := m.deps.store.Snapshot()
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: userError("Could not create "+path, err)}
		}
		defer f.Close()

		if err := m.deps.exporter.Write(f, snap, params); err != nil {
			m.log.WithContext(ctx).Error("export failed", slog.String("error", err.Error()))
			return exportedMsg{err: userError("Export failed", err)}
		}
		return exportedMsg{path: path, rows: len(snap.Items)}
	}
}

func nextSortKey(current domain.SortKey) domain.SortKey {
	keys := domain.AllSortKeys()
	for i, k := range keys {
		if k == current {
			return keys[(i+1)%len(keys)]
		}
	}
	return keys[0]
}

func categoryNames() []string {
	known := domain.KnownCategories()
	names := make([]string, len(known))
	for i, c := range known {
		names[i] = string(c)
	}
	return names
}

// userError is a local rejection shown to the user as msg.
func userError(msg string, err error) error {
	return &domain.ValidationError{Message: msg, Err: err}
}

func displayEmail(session domain.Session) string {
	if session.Email == "" {
		return "saved session"
	}
	return session.Email
}
