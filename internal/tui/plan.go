package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/euphdk/netbox-api-export-import/internal/registry"
)

// PlanModel shows the planner's computed collection order. The plan is a
// pure function of the static table, so it is computed once on entry.
type PlanModel struct {
	lines  []string
	err    error
	offset int
	width  int
	height int
}

func NewPlanModel() *PlanModel {
	m := &PlanModel{}
	plan, err := registry.PlanAll()
	if err != nil {
		m.err = err
		return m
	}
	for i, sp := range plan {
		line := fmt.Sprintf("%2d. %-22s %s", i+1, sp.Name, sp.Path)
		if deps := sp.DependsOn(); len(deps) > 0 {
			line += "  <- " + strings.Join(deps, ", ")
		}
		m.lines = append(m.lines, line)
	}
	return m
}

func (m *PlanModel) Init() tea.Cmd {
	return nil
}

func (m *PlanModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *PlanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.offset > 0 {
				m.offset--
			}
		case "down", "j":
			if m.offset < len(m.lines)-1 {
				m.offset++
			}
		}
	}
	return m, nil
}

func (m *PlanModel) View() string {
	title := titleStyle.Render("🗺️  Collection Order")

	if m.err != nil {
		content := errorStyle.Render(fmt.Sprintf("Planner error: %v", m.err))
		help := helpStyle.Render("Esc: Back to menu")
		return lipgloss.JoinVertical(lipgloss.Left, title, content, help)
	}

	visible := m.lines[m.offset:]
	if m.height > 8 && len(visible) > m.height-8 {
		visible = visible[:m.height-8]
	}

	help := helpStyle.Render("↑/↓: Scroll • Esc: Back to menu")
	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(visible, "\n"), help)
}
