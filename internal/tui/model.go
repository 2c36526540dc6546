package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Screen int

const (
	MenuScreen Screen = iota
	ExportScreen
	ImportScreen
	PlanScreen
)

type Model struct {
	currentScreen Screen
	menuModel     *MenuModel
	exportModel   *ExportModel
	importModel   *ImportModel
	planModel     *PlanModel
	err           error
	quitting      bool
	width         int
	height        int
}

func NewModel() Model {
	return Model{
		currentScreen: MenuScreen,
		menuModel:     NewMenuModel(),
		exportModel:   NewExportModel(),
		importModel:   NewImportModel(),
		planModel:     NewPlanModel(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.menuModel.SetSize(msg.Width, msg.Height)
		m.exportModel.SetSize(msg.Width, msg.Height)
		m.importModel.SetSize(msg.Width, msg.Height)
		m.planModel.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "esc":
			if m.currentScreen != MenuScreen {
				m.currentScreen = MenuScreen
				return m, nil
			}
		}

	case ScreenChangeMsg:
		m.currentScreen = msg.Screen
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	switch m.currentScreen {
	case MenuScreen:
		newMenuModel, cmd := m.menuModel.Update(msg)
		m.menuModel = newMenuModel.(*MenuModel)
		return m, cmd
	case ExportScreen:
		newExportModel, cmd := m.exportModel.Update(msg)
		m.exportModel = newExportModel.(*ExportModel)
		return m, cmd
	case ImportScreen:
		newImportModel, cmd := m.importModel.Update(msg)
		m.importModel = newImportModel.(*ImportModel)
		return m, cmd
	case PlanScreen:
		newPlanModel, cmd := m.planModel.Update(msg)
		m.planModel = newPlanModel.(*PlanModel)
		return m, cmd
	}

	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return "Thanks for using NetBox Migrate! 👋\n"
	}

	var content string
	switch m.currentScreen {
	case MenuScreen:
		content = m.menuModel.View()
	case ExportScreen:
		content = m.exportModel.View()
	case ImportScreen:
		content = m.importModel.View()
	case PlanScreen:
		content = m.planModel.View()
	}

	if m.err != nil {
		errorBanner := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Margin(1, 0)
		content += errorBanner.Render(fmt.Sprintf("Error: %v", m.err))
	}

	return content
}

type ScreenChangeMsg struct {
	Screen Screen
}

type ErrorMsg struct {
	Err error
}

func ChangeScreen(screen Screen) tea.Cmd {
	return func() tea.Msg {
		return ScreenChangeMsg{Screen: screen}
	}
}

func ShowError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}
