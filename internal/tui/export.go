package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/euphdk/netbox-api-export-import/internal/artifact"
	"github.com/euphdk/netbox-api-export-import/internal/export"
	"github.com/euphdk/netbox-api-export-import/internal/netbox"
)

type ExportModel struct {
	state         ExportState
	urlInput      textinput.Model
	tokenInput    textinput.Model
	outputInput   textinput.Model
	pageSizeInput textinput.Model
	focusedInput  int
	progress      progress.Model
	progressVal   float64
	lastFinished  string
	exporting     bool
	result        ExportResult
	progressCh    chan ExportProgressMsg
	width         int
	height        int
}

type ExportState int

const (
	ExportInputState ExportState = iota
	ExportProgressState
	ExportResultState
)

type ExportResult struct {
	Records     int
	Collections int
	OutputDir   string
	Error       error
}

type ExportProgressMsg struct {
	Collection string
	Index      int
	Total      int
	Records    int
}

type ExportCompleteMsg struct {
	Result ExportResult
}

func NewExportModel() *ExportModel {
	urlInput := textinput.New()
	urlInput.Placeholder = "https://netbox.example.com"
	urlInput.Focus()

	tokenInput := textinput.New()
	tokenInput.Placeholder = "API token"
	tokenInput.EchoMode = textinput.EchoPassword

	outputInput := textinput.New()
	outputInput.Placeholder = "netbox_export_<timestamp>"

	pageSizeInput := textinput.New()
	pageSizeInput.Placeholder = "1000"
	pageSizeInput.SetValue("1000")

	progressBar := progress.New(
		progress.WithSolidFill("#00aadd"),
		progress.WithoutPercentage(),
	)

	return &ExportModel{
		state:         ExportInputState,
		urlInput:      urlInput,
		tokenInput:    tokenInput,
		outputInput:   outputInput,
		pageSizeInput: pageSizeInput,
		focusedInput:  0,
		progress:      progressBar,
	}
}

func (m *ExportModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *ExportModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case ExportInputState:
			return m.updateInputState(msg)
		case ExportProgressState:
			// No input during the run.
			return m, nil
		case ExportResultState:
			if msg.String() == "enter" || msg.String() == " " {
				m.reset()
				return m, nil
			}
		}

	case ExportProgressMsg:
		if msg.Total > 0 {
			m.progressVal = float64(msg.Index) / float64(msg.Total)
		}
		m.lastFinished = fmt.Sprintf("%s (%d records)", msg.Collection, msg.Records)
		return m, waitForExportProgress(m.progressCh)

	case ExportCompleteMsg:
		m.result = msg.Result
		m.exporting = false
		m.state = ExportResultState
		return m, nil
	}

	return m, cmd
}

func (m *ExportModel) updateInputState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "tab", "down":
		m.focusedInput = (m.focusedInput + 1) % 4
		m.updateInputFocus()
	case "shift+tab", "up":
		m.focusedInput = (m.focusedInput - 1 + 4) % 4
		m.updateInputFocus()
	case "enter":
		if m.isFormValid() {
			return m.startExport()
		}
	}

	inputs := []*textinput.Model{&m.urlInput, &m.tokenInput, &m.outputInput, &m.pageSizeInput}
	*inputs[m.focusedInput], cmd = inputs[m.focusedInput].Update(msg)
	return m, cmd
}

func (m *ExportModel) updateInputFocus() {
	inputs := []*textinput.Model{&m.urlInput, &m.tokenInput, &m.outputInput, &m.pageSizeInput}
	for i, input := range inputs {
		if i == m.focusedInput {
			input.Focus()
		} else {
			input.Blur()
		}
	}
}

func (m *ExportModel) isFormValid() bool {
	return strings.TrimSpace(m.urlInput.Value()) != "" &&
		strings.TrimSpace(m.tokenInput.Value()) != ""
}

func (m *ExportModel) startExport() (tea.Model, tea.Cmd) {
	m.state = ExportProgressState
	m.exporting = true
	m.progressVal = 0
	m.progressCh = make(chan ExportProgressMsg, 8)
	return m, tea.Batch(m.performExport(m.progressCh), waitForExportProgress(m.progressCh))
}

func waitForExportProgress(ch chan ExportProgressMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *ExportModel) performExport(ch chan ExportProgressMsg) tea.Cmd {
	url := strings.TrimSpace(m.urlInput.Value())
	token := strings.TrimSpace(m.tokenInput.Value())
	outputDir := strings.TrimSpace(m.outputInput.Value())
	pageSize, _ := strconv.Atoi(strings.TrimSpace(m.pageSizeInput.Value()))

	return func() tea.Msg {
		defer close(ch)

		if outputDir == "" {
			outputDir = fmt.Sprintf("netbox_export_%s", time.Now().Format("20060102_150405"))
		}
		result := ExportResult{OutputDir: outputDir}

		client, err := netbox.NewClient(netbox.Config{URL: url, Token: token, PageSize: pageSize})
		if err != nil {
			result.Error = err
			return ExportCompleteMsg{Result: result}
		}
		store, err := artifact.NewStore(outputDir)
		if err != nil {
			result.Error = err
			return ExportCompleteMsg{Result: result}
		}

		engine := export.New(client, store, export.Options{
			Progress: func(collection string, index, total, records int) {
				ch <- ExportProgressMsg{Collection: collection, Index: index, Total: total, Records: records}
			},
		})
		manifest, err := engine.Run(context.Background())
		if err != nil {
			result.Error = fmt.Errorf("export failed: %w", err)
			return ExportCompleteMsg{Result: result}
		}

		result.Records = manifest.TotalRecords
		result.Collections = len(manifest.Collections)
		return ExportCompleteMsg{Result: result}
	}
}

func (m *ExportModel) reset() {
	m.state = ExportInputState
	m.exporting = false
	m.progressVal = 0
	m.lastFinished = ""
	m.result = ExportResult{}
	m.updateInputFocus()
}

func (m *ExportModel) View() string {
	switch m.state {
	case ExportInputState:
		return m.renderInputForm()
	case ExportProgressState:
		return m.renderProgress()
	case ExportResultState:
		return m.renderResult()
	}
	return ""
}

func (m *ExportModel) renderInputForm() string {
	title := titleStyle.Render("📤 Export from NetBox")

	form := formStyle.Render(
		labelStyle.Render("NetBox URL:") + "\n" + m.urlInput.View() + "\n\n" +
			labelStyle.Render("API Token:") + "\n" + m.tokenInput.View() + "\n\n" +
			labelStyle.Render("Output Directory:") + "\n" + m.outputInput.View() + "\n\n" +
			labelStyle.Render("Page Size:") + "\n" + m.pageSizeInput.View(),
	)

	help := helpStyle.Render("Tab/Shift+Tab: Navigate • Enter: Start export • Esc: Back to menu")

	return lipgloss.JoinVertical(lipgloss.Left, title, form, help)
}

func (m *ExportModel) renderProgress() string {
	title := titleStyle.Render("📤 Exporting...")

	progressBar := m.progress.ViewAs(m.progressVal)
	progressText := fmt.Sprintf("Progress: %.1f%%", m.progressVal*100)
	if m.lastFinished != "" {
		progressText += "\nLast finished: " + m.lastFinished
	}

	content := progressStyle.Render(progressBar + "\n" + progressText)
	help := helpStyle.Render("Collections are exported one at a time in dependency order...")

	return lipgloss.JoinVertical(lipgloss.Left, title, content, help)
}

func (m *ExportModel) renderResult() string {
	title := titleStyle.Render("📤 Export Complete")

	var status string
	if m.result.Error != nil {
		status = errorStyle.Render(fmt.Sprintf("❌ Export failed: %v", m.result.Error))
	} else {
		status = successStyle.Render("✅ Export completed successfully!")
	}

	stats := fmt.Sprintf(
		"📊 Export Information:\n"+
			"   Output directory: %s\n"+
			"   Collections: %d\n"+
			"   Total records: %d",
		m.result.OutputDir,
		m.result.Collections,
		m.result.Records,
	)

	help := helpStyle.Render("Enter: Run another export • Esc: Back to menu")

	return lipgloss.JoinVertical(lipgloss.Left, title, status, stats, help)
}
