package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bodhisearch/llamacheck/cmd/utils"
)

// ProgressMsg reports bytes transferred for one named download. Total is -1
// when the size is unknown.
type ProgressMsg struct {
	Name       string
	Downloaded int64
	Total      int64
}

// DoneMsg ends the program.
type DoneMsg struct{}

type DownloadModel struct {
	bar        progress.Model
	name       string
	downloaded int64
	total      int64
	startedAt  time.Time
	width      int
	done       bool
}

func NewDownloadModel() DownloadModel {
	return DownloadModel{
		bar: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (m DownloadModel) Init() tea.Cmd { return nil }

func (m DownloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		if msg.Name != m.name {
			m.startedAt = time.Now()
		}
		m.name = msg.Name
		m.downloaded = msg.Downloaded
		m.total = msg.Total
		return m, nil
	case DoneMsg:
		m.done = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 30
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m DownloadModel) View() string {
	if m.done || m.name == "" {
		return ""
	}
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	var b strings.Builder
	b.WriteString(nameStyle.Render(m.name))
	b.WriteString("  ")
	if m.total > 0 {
		b.WriteString(m.bar.ViewAs(float64(m.downloaded) / float64(m.total)))
		b.WriteString(fmt.Sprintf("  %s / %s", utils.FormatBytes(m.downloaded), utils.FormatBytes(m.total)))
	} else {
		b.WriteString(fmt.Sprintf("%s downloaded", utils.FormatBytes(m.downloaded)))
	}
	if rate := m.transferRate(); rate > 0 {
		b.WriteString("  " + utils.FormatTransferRate(rate))
	}
	b.WriteString("\n")
	return b.String()
}

// transferRate is the average rate of the current download, or 0 before
// enough time has passed to make the number meaningful.
func (m DownloadModel) transferRate() int64 {
	elapsed := time.Since(m.startedAt).Seconds()
	if m.startedAt.IsZero() || elapsed < 0.5 {
		return 0
	}
	return int64(float64(m.downloaded) / elapsed)
}

// DownloadProgram runs the progress widget in the background and exposes a
// callback suitable for feeding transfer updates from a download loop.
type DownloadProgram struct {
	program *tea.Program
	mu      sync.Mutex
	stopped bool
}

func StartDownloadProgram() *DownloadProgram {
	p := tea.NewProgram(NewDownloadModel())
	dp := &DownloadProgram{program: p}
	go func() {
		_, _ = p.Run()
	}()
	return dp
}

// Report is safe to call from the goroutine performing the download.
func (dp *DownloadProgram) Report(name string, downloaded, total int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if dp.stopped {
		return
	}
	dp.program.Send(ProgressMsg{Name: name, Downloaded: downloaded, Total: total})
}

func (dp *DownloadProgram) Stop() {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if dp.stopped {
		return
	}
	dp.stopped = true
	dp.program.Send(DoneMsg{})
	dp.program.Wait()
}
