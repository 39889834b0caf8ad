package review

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkorchagin/vacradar/internal/model"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// Queue is one browsable slice of the vacancy store. An empty Status means
// every record regardless of moderation state.
type Queue struct {
	Name   string
	Status model.Status
}

// Queues lists the selectable views in picker order.
var Queues = []Queue{
	{Name: "Pending", Status: model.StatusPending},
	{Name: "Approved", Status: model.StatusApproved},
	{Name: "Rejected", Status: model.StatusRejected},
	{Name: "All", Status: ""},
}

type pickerModel struct {
	counts map[model.Status]int
	cursor int
	chosen int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(Queues)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Vacancy Review — Select a queue")
	s += "\n"

	total := 0
	for _, n := range m.counts {
		total += n
	}
	for i, q := range Queues {
		count := total
		if q.Status != "" {
			count = m.counts[q.Status]
		}
		label := fmt.Sprintf("%s (%d)", q.Name, count)
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunQueuePicker shows an interactive queue selector. counts maps moderation
// status to record count and is shown next to each queue name.
// Returns the index into Queues of the chosen queue, or -1 if the user quit.
func RunQueuePicker(counts map[model.Status]int) (int, error) {
	m := pickerModel{
		counts: counts,
		chosen: -1,
	}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return -1, err
	}

	final := result.(pickerModel)
	return final.chosen, nil
}
