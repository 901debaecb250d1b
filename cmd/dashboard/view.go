// cmd/dashboard/view.go
package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/textinput"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/services"
	"github.com/ammerola/sweetshop/internal/export"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle = lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("244"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("213")).Padding(1, 2)

	stockStyles = map[domain.StockLevel]lipgloss.Style{
		domain.StockIn:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		domain.StockLow: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		domain.StockOut: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
	}

	toastStyles = map[domain.Severity]lipgloss.Style{
		domain.SeveritySuccess: lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42")),
		domain.SeverityError:   lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("160")),
		domain.SeverityInfo:    lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("63")),
	}
)

// itemRow adapts an item to the catalog list.
type itemRow struct {
	item domain.Item
}

func (r itemRow) Title() string {
	return fmt.Sprintf("#%s %s", r.item.ID, r.item.Name)
}

func (r itemRow) Description() string {
	return fmt.Sprintf("%s · %s · %s", r.item.Category, r.item.Price.StringFixed(2), stockBadge(r.item))
}

func (r itemRow) FilterValue() string { return r.item.Name }

func stockBadge(item domain.Item) string {
	return stockStyles[item.StockLevel()].Render(item.StockLabel())
}

// View renders the header, the catalog or the open panel, the notification
// toast, the status line and the key help.
func (m *Model) View() string {
	sections := []string{m.headerView()}

	switch mode := m.mode(); mode {
	case modeAuth:
		sections = append(sections, panelStyle.Render(m.authView()))
	case modeBrowse:
		sections = append(sections, m.catalogView())
	default:
		sections = append(sections, m.catalogView(), panelStyle.Render(m.panelView(mode)))
	}

	if m.note != nil {
		sections = append(sections, toastStyles[m.note.Severity].Render(m.note.Message))
	}
	if m.status != "" {
		style := mutedStyle
		if m.failed {
			style = errorStyle
		}
		sections = append(sections, style.Render(m.status))
	}
	sections = append(sections, mutedStyle.Render(m.helpLine()))
	return strings.Join(sections, "\n\n")
}

func (m *Model) headerView() string {
	who := "not signed in"
	if session, ok := m.deps.sessions.Current(); ok {
		who = fmt.Sprintf("%s (%s)", displayEmail(session), session.Role)
	}
	return titleStyle.Render("Sweetshop") + "  " + mutedStyle.Render(who)
}

func (m *Model) catalogView() string {
	switch {
	case m.snap.Status == services.StatusLoading && len(m.snap.Items) == 0:
		return "Loading sweets..."
	case m.snap.Status == services.StatusError && len(m.snap.Items) == 0:
		return errorStyle.Render("Could not load sweets: " + m.snap.Err)
	case len(m.snap.Items) == 0:
		return "No sweets found"
	}

	summary := fmt.Sprintf("%s, sorted by %s", export.FormatRowCount(len(m.snap.Items)), m.sortKey.Label())
	if !m.snap.Criteria.IsEmpty() {
		summary += ", filtered"
	}
	if m.snap.Status == services.StatusLoading {
		summary += " (refreshing)"
	}
	return mutedStyle.Render(summary) + "\n" + m.catalog.View()
}

func (m *Model) panelView(mode mode) string {
	var lines []string
	var surfaceErr error

	switch mode {
	case modeSearch:
		lines = append(lines, titleStyle.Render("Search sweets"),
			field("Name", m.searchInputs[searchName]),
			field("Category", m.searchInputs[searchCategory]),
			field("Min price", m.searchInputs[searchMin]),
			field("Max price", m.searchInputs[searchMax]))
	case modeExport:
		lines = append(lines, titleStyle.Render("Export current view"),
			field("File", m.exportInputs[exportPath]),
			field("Columns", m.exportInputs[exportColumns]))
	case modeForm:
		form, ok := m.deps.coordinator.Active().(*services.FormSurface)
		if !ok {
			return ""
		}
		d := form.Draft()
		title := "New sweet"
		if d.Mode() == services.DraftEdit {
			title = "Edit sweet #" + d.TargetID.String()
		}
		lines = append(lines, titleStyle.Render(title),
			field("Name", m.formInputs[fieldName]),
			field("Category", m.formInputs[fieldCategory]),
			field("Price", m.formInputs[fieldPrice]),
			field("Quantity", m.formInputs[fieldQuantity]),
			field("Image", m.formInputs[fieldImage]))
		switch {
		case d.Image != nil:
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("attached %s (%d bytes)", d.Image.Name, d.Image.Size())))
		case d.ImageURL != "":
			lines = append(lines, mutedStyle.Render("keeping the current image"))
		}
		if form.Busy() {
			lines = append(lines, mutedStyle.Render("Saving..."))
		}
		surfaceErr = form.Err()
	case modePurchase, modeRestock:
		dialog := m.dialog()
		if dialog == nil {
			return ""
		}
		r := dialog.Request()
		if mode == modePurchase {
			lines = append(lines, titleStyle.Render("Buy "+r.Item.Name),
				fmt.Sprintf("%s of %d available", m.quantity.View(), r.MaxQuantity()),
				stockBadge(r.Item))
		} else {
			lines = append(lines, titleStyle.Render("Restock "+r.Item.Name),
				fmt.Sprintf("add %s (currently %d)", m.quantity.View(), r.Item.Quantity))
		}
		if dialog.Busy() {
			lines = append(lines, mutedStyle.Render("Submitting..."))
		}
		surfaceErr = dialog.Err()
	case modeDelete:
		d, ok := m.deps.coordinator.Active().(*services.DeleteSurface)
		if !ok {
			return ""
		}
		name := "#" + d.ID.String()
		if item, found := m.snap.Find(d.ID); found {
			name = item.Name
		}
		lines = append(lines, titleStyle.Render("Delete "+name+"?"), "This cannot be undone.")
		if d.Busy() {
			lines = append(lines, mutedStyle.Render("Deleting..."))
		}
		surfaceErr = d.Err()
	}

	if surfaceErr != nil {
		lines = append(lines, errorStyle.Render("! "+domain.UserMessage(surfaceErr)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) authView() string {
	title := "Sign in"
	if m.register {
		title = "Create an account"
	}
	lines := []string{
		titleStyle.Render(title),
		field("Email", m.authInputs[authEmail]),
		field("Password", m.authInputs[authPassword]),
	}
	if m.register {
		lines = append(lines, field("Role", m.authInputs[authRole]))
	}
	return strings.Join(lines, "\n")
}

func field(label string, input textinput.Model) string {
	return labelStyle.Render(label) + input.View()
}

func (m *Model) helpLine() string {
	switch m.mode() {
	case modeAuth:
		if m.register {
			return "tab next field • enter register • ctrl+r back to sign in • ctrl+c quit"
		}
		return "tab next field • enter sign in • ctrl+r create an account • ctrl+c quit"
	case modeSearch:
		return "tab next field • enter search • ctrl+u clear • esc back"
	case modeExport:
		return "tab next field • enter export (.xlsx or .json) • esc back"
	case modeForm:
		return "tab next field • enter save • ctrl+x remove image • esc cancel"
	case modePurchase, modeRestock:
		return "type or ↑/↓ quantity • enter confirm • esc cancel"
	case modeDelete:
		return "y confirm • n cancel"
	}

	caps := m.deps.coordinator.Capabilities()
	keys := []string{"↑/↓ move", "/ search", "s sort", "S reverse", "r reload", "x export"}
	if caps.Purchase {
		keys = append(keys, "enter buy")
	}
	if caps.Add {
		keys = append(keys, "a add", "e edit", "t restock", "d delete")
	}
	return strings.Join(append(keys, "esc dismiss", "L logout", "q quit"), " • ")
}
