package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sections []string

	// Title bar
	sections = append(sections, m.renderTitleBar(), "")

	if m.waiting {
		sections = append(sections, helpStyle.Render("  Waiting for the run to start..."))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	// Stream position
	sections = append(sections, m.renderProgress(), "")

	// Current losses
	sections = append(sections, m.renderLoss(), "")

	// Finished tasks
	if len(m.history) > 0 {
		sections = append(sections, m.renderHistory(), "")
	}

	// Footer
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitleBar() string {
	title := titleStyle.Render("TASKLINE TRAINER")

	state := "training"
	if m.done {
		state = "done"
	}

	help := helpStyle.Render("q:quit ↑↓:scroll")

	// Calculate spacing
	rightPart := fmt.Sprintf("%s | %s", state, help)
	spacing := m.width - lipgloss.Width(title) - lipgloss.Width(rightPart) - 2
	if spacing < 1 {
		spacing = 1
	}

	return fmt.Sprintf("%s%s%s", title, strings.Repeat(" ", spacing), helpStyle.Render(rightPart))
}

func (m Model) renderProgress() string {
	var lines []string

	taskBar := m.renderProgressBar("Tasks ", percent(len(m.history), m.numTasks), 20)
	epochBar := m.renderProgressBar("Epochs", percent(m.epoch, m.epochs), 20)
	lines = append(lines, fmt.Sprintf("  %s    %s", taskBar, epochBar))

	pos := fmt.Sprintf("task %d of %d │ epoch %d of %d", m.task+1, m.numTasks, min(m.epoch+1, m.epochs), m.epochs)
	if m.steps > 0 {
		pos += fmt.Sprintf(" │ step %d of %d", m.step, m.steps)
	}
	lines = append(lines, "  "+labelStyle.Render(pos))

	return strings.Join(lines, "\n")
}

func (m Model) renderProgressBar(label string, percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	filledBar := progressBarFillStyle.Render(strings.Repeat("█", filled))
	emptyBar := progressBarEmptyStyle.Render(strings.Repeat("░", width-filled))

	return fmt.Sprintf("%s [%s%s] %5.1f%%", labelStyle.Render(label), filledBar, emptyBar, percent)
}

func (m Model) renderLoss() string {
	var lines []string
	lines = append(lines, sectionHeaderStyle.Render("  Loss"))

	lines = append(lines, fmt.Sprintf("  %s %s    %s %s    %s %s",
		labelStyle.Render("total"),
		valueStyle.Render(fmt.Sprintf("%8.4f", m.loss)),
		labelStyle.Render("primary"),
		valueStyle.Render(fmt.Sprintf("%8.4f", m.primary)),
		labelStyle.Render("distill"),
		valueStyle.Render(fmt.Sprintf("%8.4f", m.distill)),
	))

	samples := fmt.Sprintf("%d samples", m.trainSamples)
	if m.replaySamples > 0 {
		samples += fmt.Sprintf(" (%d replayed)", m.replaySamples)
	}
	lines = append(lines, "  "+labelStyle.Render(samples))

	return strings.Join(lines, "\n")
}

func (m Model) renderHistory() string {
	var lines []string
	lines = append(lines, sectionHeaderStyle.Render("  Task History"))

	// Header
	header := fmt.Sprintf("  %-5s │ %7s │ %7s │ %8s │ %8s │ %8s │ %8s",
		"Task", "Train", "Replay", "Primary", "Distill", "Total", "Time")
	lines = append(lines, tableHeaderStyle.Render(header))

	// Calculate visible rows based on table offset
	maxVisible := 6
	start := m.tableOffset
	end := start + maxVisible
	if end > len(m.history) {
		end = len(m.history)
	}
	if start >= len(m.history) {
		start = 0
		end = maxVisible
		if end > len(m.history) {
			end = len(m.history)
		}
	}

	for _, row := range m.history[start:end] {
		line := fmt.Sprintf("  %-5d │ %7d │ %7d │ %8.4f │ %8.4f │ %8.4f │ %8s",
			row.Task, row.TrainSamples, row.ReplaySamples,
			row.Primary, row.Distill, row.Total,
			row.Elapsed.Round(time.Millisecond))
		lines = append(lines, tableCellStyle.Render(line))
	}

	if len(m.history) > maxVisible {
		scrollInfo := fmt.Sprintf("  [%d-%d of %d tasks]", start+1, end, len(m.history))
		lines = append(lines, helpStyle.Render(scrollInfo))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	elapsed := m.now.Sub(m.started).Round(time.Second)
	if m.done && m.elapsed > 0 {
		elapsed = m.elapsed.Round(time.Second)
	}

	if m.done {
		return doneStyle.Render(fmt.Sprintf("  Run complete in %s", elapsed))
	}
	return helpStyle.Render(fmt.Sprintf("  taskline %s │ Elapsed: %s", m.config.Version, elapsed))
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(done) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	return p
}
