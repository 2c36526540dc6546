package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/euphdk/netbox-api-export-import/internal/artifact"
	"github.com/euphdk/netbox-api-export-import/internal/importer"
	"github.com/euphdk/netbox-api-export-import/internal/netbox"
)

type ImportModel struct {
	state        ImportState
	urlInput     textinput.Model
	tokenInput   textinput.Model
	dirInput     textinput.Model
	focusedInput int
	progress     progress.Model
	progressVal  float64
	lastFinished string
	importing    bool
	result       ImportResult
	progressCh   chan ImportProgressMsg
	width        int
	height       int
}

type ImportState int

const (
	ImportInputState ImportState = iota
	ImportProgressState
	ImportResultState
)

type ImportResult struct {
	Created int
	Updated int
	Failed  int
	Error   error
}

type ImportProgressMsg struct {
	Collection string
	Index      int
	Total      int
	Records    int
}

type ImportCompleteMsg struct {
	Result ImportResult
}

func NewImportModel() *ImportModel {
	urlInput := textinput.New()
	urlInput.Placeholder = "https://netbox-target.example.com"
	urlInput.Focus()

	tokenInput := textinput.New()
	tokenInput.Placeholder = "API token"
	tokenInput.EchoMode = textinput.EchoPassword

	dirInput := textinput.New()
	dirInput.Placeholder = "netbox_export_20240101_120000"

	progressBar := progress.New(
		progress.WithSolidFill("#00aadd"),
		progress.WithoutPercentage(),
	)

	return &ImportModel{
		state:      ImportInputState,
		urlInput:   urlInput,
		tokenInput: tokenInput,
		dirInput:   dirInput,
		progress:   progressBar,
	}
}

func (m *ImportModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *ImportModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case ImportInputState:
			return m.updateInputState(msg)
		case ImportProgressState:
			return m, nil
		case ImportResultState:
			if msg.String() == "enter" || msg.String() == " " {
				m.reset()
				return m, nil
			}
		}

	case ImportProgressMsg:
		if msg.Total > 0 {
			m.progressVal = float64(msg.Index) / float64(msg.Total)
		}
		m.lastFinished = fmt.Sprintf("%s (%d records)", msg.Collection, msg.Records)
		return m, waitForImportProgress(m.progressCh)

	case ImportCompleteMsg:
		m.result = msg.Result
		m.importing = false
		m.state = ImportResultState
		return m, nil
	}

	return m, cmd
}

func (m *ImportModel) updateInputState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "tab", "down":
		m.focusedInput = (m.focusedInput + 1) % 3
		m.updateInputFocus()
	case "shift+tab", "up":
		m.focusedInput = (m.focusedInput - 1 + 3) % 3
		m.updateInputFocus()
	case "enter":
		if m.isFormValid() {
			return m.startImport()
		}
	}

	inputs := []*textinput.Model{&m.urlInput, &m.tokenInput, &m.dirInput}
	*inputs[m.focusedInput], cmd = inputs[m.focusedInput].Update(msg)
	return m, cmd
}

func (m *ImportModel) updateInputFocus() {
	inputs := []*textinput.Model{&m.urlInput, &m.tokenInput, &m.dirInput}
	for i, input := range inputs {
		if i == m.focusedInput {
			input.Focus()
		} else {
			input.Blur()
		}
	}
}

func (m *ImportModel) isFormValid() bool {
	dir := strings.TrimSpace(m.dirInput.Value())
	if dir == "" {
		return false
	}
	if _, err := os.Stat(dir); err != nil {
		return false
	}
	return strings.TrimSpace(m.urlInput.Value()) != "" &&
		strings.TrimSpace(m.tokenInput.Value()) != ""
}

func (m *ImportModel) startImport() (tea.Model, tea.Cmd) {
	m.state = ImportProgressState
	m.importing = true
	m.progressVal = 0
	m.progressCh = make(chan ImportProgressMsg, 8)
	return m, tea.Batch(m.performImport(m.progressCh), waitForImportProgress(m.progressCh))
}

func waitForImportProgress(ch chan ImportProgressMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *ImportModel) performImport(ch chan ImportProgressMsg) tea.Cmd {
	url := strings.TrimSpace(m.urlInput.Value())
	token := strings.TrimSpace(m.tokenInput.Value())
	dir := strings.TrimSpace(m.dirInput.Value())

	return func() tea.Msg {
		defer close(ch)

		result := ImportResult{}

		client, err := netbox.NewClient(netbox.Config{URL: url, Token: token})
		if err != nil {
			result.Error = err
			return ImportCompleteMsg{Result: result}
		}

		engine := importer.New(client, artifact.Open(dir), importer.Options{
			Progress: func(collection string, index, total, records int) {
				ch <- ImportProgressMsg{Collection: collection, Index: index, Total: total, Records: records}
			},
		})
		summary, err := engine.Run(context.Background())
		if err != nil {
			result.Error = fmt.Errorf("import failed: %w", err)
			return ImportCompleteMsg{Result: result}
		}

		result.Created = summary.Created
		result.Updated = summary.Updated
		result.Failed = summary.Failed
		return ImportCompleteMsg{Result: result}
	}
}

func (m *ImportModel) reset() {
	m.state = ImportInputState
	m.importing = false
	m.progressVal = 0
	m.lastFinished = ""
	m.result = ImportResult{}
	m.updateInputFocus()
}

func (m *ImportModel) View() string {
	switch m.state {
	case ImportInputState:
		return m.renderInputForm()
	case ImportProgressState:
		return m.renderProgress()
	case ImportResultState:
		return m.renderResult()
	}
	return ""
}

func (m *ImportModel) renderInputForm() string {
	title := titleStyle.Render("📥 Import into NetBox")

	form := formStyle.Render(
		labelStyle.Render("Target URL:") + "\n" + m.urlInput.View() + "\n\n" +
			labelStyle.Render("API Token:") + "\n" + m.tokenInput.View() + "\n\n" +
			labelStyle.Render("Export Directory:") + "\n" + m.dirInput.View(),
	)

	help := helpStyle.Render("Tab/Shift+Tab: Navigate • Enter: Start import • Esc: Back to menu")

	return lipgloss.JoinVertical(lipgloss.Left, title, form, help)
}

func (m *ImportModel) renderProgress() string {
	title := titleStyle.Render("📥 Importing...")

	progressBar := m.progress.ViewAs(m.progressVal)
	progressText := fmt.Sprintf("Progress: %.1f%%", m.progressVal*100)
	if m.lastFinished != "" {
		progressText += "\nLast finished: " + m.lastFinished
	}

	content := progressStyle.Render(progressBar + "\n" + progressText)
	help := helpStyle.Render("Collections are replayed in the order the manifest recorded...")

	return lipgloss.JoinVertical(lipgloss.Left, title, content, help)
}

func (m *ImportModel) renderResult() string {
	title := titleStyle.Render("📥 Import Complete")

	var status string
	switch {
	case m.result.Error != nil:
		status = errorStyle.Render(fmt.Sprintf("❌ Import failed: %v", m.result.Error))
	case m.result.Failed > 0:
		status = warningStyle.Render("⚠️  Import finished with failed records")
	default:
		status = successStyle.Render("✅ Import completed successfully!")
	}

	stats := fmt.Sprintf(
		"📊 Import Statistics:\n"+
			"   Created records: %d\n"+
			"   Updated records: %d\n"+
			"   Failed records: %d",
		m.result.Created,
		m.result.Updated,
		m.result.Failed,
	)

	help := helpStyle.Render("Enter: Run another import • Esc: Back to menu")

	return lipgloss.JoinVertical(lipgloss.Left, title, status, stats, help)
}
