// Package review is the interactive moderation TUI: browse a queue of
// stored vacancies, inspect the structured analysis, and approve, reject
// or edit pending records.
package review

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkorchagin/vacradar/internal/model"
	"github.com/mkorchagin/vacradar/internal/moderation"
)

// Lines per vacancy item in the list view (title + subtitle + blank separator).
const itemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
	viewNotes
	viewEdit
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemTitleStyle = lipgloss.NewStyle().
			Bold(true)

	itemSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	statusStyles = map[model.Status]lipgloss.Style{
		model.StatusPending:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		model.StatusApproved: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		model.StatusRejected: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// decisionMsg is sent when an async moderation call completes.
type decisionMsg struct {
	rec *model.VacancyRecord
	err error
}

// editSavedMsg is sent when an async description update completes.
type editSavedMsg struct {
	rec *model.VacancyRecord
	err error
}

type reviewModel struct {
	svc       *moderation.Service
	moderator string
	queue     Queue
	records   []model.VacancyRecord

	listViewport viewport.Model
	cursor       int
	width        int
	height       int
	ready        bool

	view            viewState
	detail          model.VacancyRecord
	detailViewport  viewport.Model
	showDescription bool

	// Decision state. pendingAction is set while the notes prompt is open.
	pendingAction model.ModerationAction
	notesInput    textinput.Model
	editArea      textarea.Model
	busy          bool
	statusLine    string
	errLine       string

	wantQuit bool
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view != viewList {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case decisionMsg:
		m.busy = false
		if msg.err != nil {
			m.errLine = fmt.Sprintf("decision failed: %v", msg.err)
			m.detailViewport.SetContent(m.renderDetail())
			return m, nil
		}
		m.errLine = ""
		m.statusLine = fmt.Sprintf("vacancy %s", msg.rec.Status)
		m.detail = *msg.rec
		m.applyRecordUpdate(*msg.rec)
		m.view = viewDetail
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil

	case editSavedMsg:
		m.busy = false
		if msg.err != nil {
			m.errLine = fmt.Sprintf("edit failed: %v", msg.err)
		} else {
			m.errLine = ""
			m.statusLine = "description saved"
			m.detail = *msg.rec
			m.applyRecordUpdate(*msg.rec)
		}
		m.view = viewDetail
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case viewDetail:
			return m.updateDetailView(msg)
		case viewNotes:
			return m.updateNotesView(msg)
		case viewEdit:
			return m.updateEditView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "up", "k":
		m.cursor = clamp(m.cursor-1, 0, max(len(m.records)-1, 0))
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.cursor = clamp(m.cursor+1, 0, max(len(m.records)-1, 0))
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end) to the viewport.
	var cmd tea.Cmd
	m.listViewport, cmd = m.listViewport.Update(msg)
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		m.recalcContent()
		return m, nil
	case "o":
		openURL(m.detail.URL)
		return m, nil
	case "r":
		if m.detail.Description != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	case "a":
		return m.openNotesPrompt(model.ActionApprove)
	case "x":
		return m.openNotesPrompt(model.ActionReject)
	case "e":
		return m.openEditor()
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m reviewModel) updateNotesView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc":
		m.view = viewDetail
		m.pendingAction = ""
		return m, nil
	case "enter":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.errLine = ""
		return m, m.moderateCmd(m.detail.ID, m.pendingAction, m.notesInput.Value())
	}

	var cmd tea.Cmd
	m.notesInput, cmd = m.notesInput.Update(msg)
	return m, cmd
}

func (m reviewModel) updateEditView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc":
		m.view = viewDetail
		return m, nil
	case "ctrl+s":
		if m.busy {
			return m, nil
		}
		text := strings.TrimSpace(m.editArea.Value())
		if text == "" {
			m.errLine = "description must not be empty"
			return m, nil
		}
		m.busy = true
		m.errLine = ""
		return m, m.editCmd(m.detail.ID, text)
	}

	var cmd tea.Cmd
	m.editArea, cmd = m.editArea.Update(msg)
	return m, cmd
}

func (m reviewModel) openNotesPrompt(action model.ModerationAction) (tea.Model, tea.Cmd) {
	if m.detail.Status != model.StatusPending || m.busy {
		return m, nil
	}
	m.pendingAction = action
	ti := textinput.New()
	ti.Placeholder = "notes (optional)"
	ti.CharLimit = 500
	ti.Width = max(m.width-8, 20)
	ti.Focus()
	m.notesInput = ti
	m.view = viewNotes
	return m, textinput.Blink
}

func (m reviewModel) openEditor() (tea.Model, tea.Cmd) {
	if m.detail.Status != model.StatusPending || m.busy {
		return m, nil
	}
	ta := textarea.New()
	ta.SetWidth(max(m.width-8, 20))
	ta.SetHeight(max(m.height-8, 5))
	ta.CharLimit = 0
	ta.SetValue(m.detail.Description)
	ta.Focus()
	m.editArea = ta
	m.view = viewEdit
	return m, textarea.Blink
}

func (m reviewModel) moderateCmd(id string, action model.ModerationAction, notes string) tea.Cmd {
	svc := m.svc
	moderator := m.moderator
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rec, err := svc.Moderate(ctx, id, action, moderator, notes)
		return decisionMsg{rec: rec, err: err}
	}
}

func (m reviewModel) editCmd(id, description string) tea.Cmd {
	svc := m.svc
	moderator := m.moderator
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.EditDescription(ctx, id, description, moderator); err != nil {
			return editSavedMsg{err: err}
		}
		rec, err := svc.Get(ctx, id)
		return editSavedMsg{rec: rec, err: err}
	}
}

// applyRecordUpdate replaces the record in the list. In a pending-only
// queue a decided record no longer belongs and is dropped instead.
func (m *reviewModel) applyRecordUpdate(rec model.VacancyRecord) {
	for i := range m.records {
		if m.records[i].ID != rec.ID {
			continue
		}
		if m.queue.Status == model.StatusPending && rec.Status != model.StatusPending {
			m.records = append(m.records[:i], m.records[i+1:]...)
			m.cursor = clamp(m.cursor, 0, max(len(m.records)-1, 0))
		} else {
			m.records[i] = rec
		}
		break
	}
	m.recalcContent()
}

func (m *reviewModel) ensureCursorVisible() {
	cursorTop := m.cursor * itemHeight
	cursorBottom := cursorTop + itemHeight - 1

	if cursorTop < m.listViewport.YOffset {
		m.listViewport.SetYOffset(cursorTop)
	} else if cursorBottom >= m.listViewport.YOffset+m.listViewport.Height {
		m.listViewport.SetYOffset(cursorBottom - m.listViewport.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	if len(m.records) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detail = m.records[m.cursor]
	m.showDescription = false
	m.statusLine = ""
	m.errLine = ""
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	// Border top/bottom (2) + header (1) + status bar (1) = 4 lines overhead.
	width := max(m.width-2, 20)
	height := max(m.height-4, 5)

	if !m.ready {
		m.listViewport = viewport.New(width, height)
		m.ready = true
	} else {
		m.listViewport.Width = width
		m.listViewport.Height = height
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.listViewport.SetContent(renderRecords(m.records, m.cursor))
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.view {
	case viewDetail:
		return m.viewDetail()
	case viewNotes:
		return m.viewNotes()
	case viewEdit:
		return m.viewEdit()
	}
	return m.viewList()
}

func (m reviewModel) viewList() string {
	header := headerStyle.Render(fmt.Sprintf(" %s (%d)", m.queue.Name, len(m.records)))
	pane := activeBorderStyle.Width(m.listViewport.Width).Render(m.listViewport.View())

	statusText := " ↑/↓ cursor  Enter detail  Esc back  q quit"
	if m.statusLine != "" {
		statusText = " " + m.statusLine + "   " + strings.TrimSpace(statusText)
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return header + "\n" + pane + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Vacancy Details")
	if m.busy {
		title += "  (working...)"
	}

	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " o open URL  r desc  esc back  ↑/↓ scroll  q quit"
	if m.detail.Status == model.StatusPending {
		statusText = " a approve  x reject  e edit  o open URL  r desc  esc back  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) viewNotes() string {
	verb := "Approve"
	if m.pendingAction == model.ActionReject {
		verb = "Reject"
	}
	title := detailTitleStyle.Render(fmt.Sprintf("%s: %s", verb, m.detail.Title))

	var b strings.Builder
	b.WriteString(title + "\n\n")
	b.WriteString(detailLabelStyle.Render("Moderator") + detailValueStyle.Render(m.moderator) + "\n\n")
	b.WriteString(m.notesInput.View() + "\n")
	if m.errLine != "" {
		b.WriteString("\n" + errorStyle.Render("⚠ "+m.errLine) + "\n")
	}

	border := activeBorderStyle.Width(m.width - 2)
	statusBar := statusBarStyle.Width(m.width).Render(" enter confirm  esc cancel")
	return border.Render(b.String()) + "\n" + statusBar
}

func (m reviewModel) viewEdit() string {
	title := detailTitleStyle.Render("Edit description: " + m.detail.Title)

	var b strings.Builder
	b.WriteString(title + "\n\n")
	b.WriteString(m.editArea.View() + "\n")
	if m.errLine != "" {
		b.WriteString("\n" + errorStyle.Render("⚠ "+m.errLine) + "\n")
	}

	border := activeBorderStyle.Width(m.width - 2)
	statusBar := statusBarStyle.Width(m.width).Render(" ctrl+s save  esc cancel")
	return border.Render(b.String()) + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	rec := m.detail
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" || value == model.NotSpecified {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Title", rec.Title)
	addField("Company", rec.Company)
	addField("Location", rec.Location)
	addField("Source", rec.Source)
	addField("ID", rec.ID)

	b.WriteString(detailLabelStyle.Render("Status"))
	b.WriteString(statusStyle(rec.Status).Render(string(rec.Status)))
	b.WriteByte('\n')
	if rec.Moderator != "" {
		addField("Moderator", rec.Moderator)
	}
	if rec.ModerationNotes != "" {
		addField("Notes", rec.ModerationNotes)
	}
	if rec.ModeratedAt != nil {
		addField("Moderated At", rec.ModeratedAt.Format("2006-01-02 15:04"))
	}

	b.WriteByte('\n')
	if rec.PublishedAt != nil {
		addField("Published At", rec.PublishedAt.Format("2006-01-02"))
	}
	addField("First Seen", rec.CreatedAt.Format("2006-01-02 15:04"))

	a := rec.Analysis
	b.WriteByte('\n')
	addField("Analyzed By", a.Stage)
	if a.Experience != model.ExperienceUnknown {
		addField("Experience", string(a.Experience))
	}
	if a.Employment != model.EmploymentUnknown {
		addField("Employment", string(a.Employment))
	}
	if a.Remote {
		addField("Remote", "yes")
	}
	addField("Specialization", a.Specialization)
	if a.Salary.Min > 0 || a.Salary.Max > 0 {
		addField("Salary", formatSalary(a.Salary))
	}
	if len(a.Technologies) > 0 {
		addField("Stack", strings.Join(a.Technologies, ", "))
	}
	if a.RelevanceScore > 0 {
		addField("Relevance", fmt.Sprintf("%.1f", a.RelevanceScore))
	}

	b.WriteByte('\n')
	addField("URL", rec.URL)

	if m.statusLine != "" {
		b.WriteByte('\n')
		b.WriteString(okStyle.Render("✓ "+m.statusLine) + "\n")
	}
	if m.errLine != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+m.errLine) + "\n")
	}

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	for _, section := range []struct {
		label string
		text  string
	}{
		{"── Requirements ", a.Requirements},
		{"── Tasks ", a.Tasks},
		{"── Conditions ", a.Conditions},
		{"── Benefits ", a.Benefits},
	} {
		if section.text == "" || section.text == model.NotSpecified {
			continue
		}
		b.WriteByte('\n')
		b.WriteString(divider(section.label) + "\n")
		b.WriteString(bodyStyle.Render(wordWrap(section.text, wrapWidth)) + "\n")
	}

	if rec.Description != "" {
		b.WriteByte('\n')
		if m.showDescription {
			label := "── Description "
			if rec.DescriptionEdited {
				label = "── Description (edited) "
			}
			b.WriteString(divider(label) + "\n\n")
			b.WriteString(bodyStyle.Render(wordWrap(rec.Description, wrapWidth)) + "\n")
		} else {
			b.WriteString(hintStyle.Render("  press r to read full description") + "\n")
		}
	}

	return b.String()
}

func statusStyle(s model.Status) lipgloss.Style {
	if st, ok := statusStyles[s]; ok {
		return st
	}
	return detailValueStyle
}

func formatSalary(s model.SalaryRange) string {
	switch {
	case s.Min > 0 && s.Max > 0:
		return fmt.Sprintf("%d–%d %s", s.Min, s.Max, s.Currency)
	case s.Min > 0:
		return fmt.Sprintf("от %d %s", s.Min, s.Currency)
	default:
		return fmt.Sprintf("до %d %s", s.Max, s.Currency)
	}
}

func renderRecords(records []model.VacancyRecord, cursor int) string {
	if len(records) == 0 {
		return "  (no vacancies)"
	}

	var b strings.Builder
	for i, rec := range records {
		isSelected := i == cursor

		titleSt := itemTitleStyle
		subtitleSt := itemSubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedTitleStyle
			subtitleSt = selectedSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(rec.Title))
		b.WriteByte('\n')

		subtitle := rec.Company
		if rec.Location != "" {
			subtitle += " · " + rec.Location
		}
		if s := rec.Analysis.Salary; s.Min > 0 || s.Max > 0 {
			subtitle += " · " + formatSalary(s)
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s [%s]", subtitle, rec.Source)))
		b.WriteByte('\n')

		if i < len(records)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// wordWrap keeps paragraph breaks and wraps each line to width.
func wordWrap(text string, width int) string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) <= width {
				line += " " + w
			} else {
				out = append(out, line)
				line = w
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunReviewTUI launches the interactive review view over one queue.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed
// esc to return to the queue picker.
func RunReviewTUI(records []model.VacancyRecord, queue Queue, svc *moderation.Service, moderator string) (bool, error) {
	m := reviewModel{
		svc:       svc,
		moderator: moderator,
		queue:     queue,
		records:   records,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	final := result.(reviewModel)
	return final.wantQuit, nil
}
