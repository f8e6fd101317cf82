package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hollen/taskline/internal/train"
)

// eventMsg carries one engine event.
type eventMsg train.Event

// doneMsg signals that the engine closed its event stream.
type doneMsg struct{}

type tickMsg time.Time

// waitForEvent blocks on the engine's event channel.
func waitForEvent(ch <-chan train.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

// tick keeps the elapsed clock moving between events.
func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.config.Events),
		tick(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		m = m.apply(train.Event(msg))
		return m, waitForEvent(m.config.Events)

	case doneMsg:
		m.done = true
		return m, tea.Quit

	case tickMsg:
		m.now = time.Time(msg)
		if m.done {
			return m, nil
		}
		return m, tick()
	}

	return m, nil
}

// apply folds one engine event into the model.
func (m Model) apply(ev train.Event) Model {
	switch ev.Kind {
	case train.EventRunStart:
		m.waiting = false
		m.numTasks = ev.NumTasks
		m.epochs = ev.Epochs

	case train.EventTaskStart:
		m.task = ev.TaskIdx
		m.epoch = 0
		m.step = 0
		m.trainSamples = ev.TrainSamples
		m.replaySamples = ev.ReplaySamples

	case train.EventStep:
		m.step = ev.Step + 1
		m.steps = ev.Steps
		m.loss = ev.Loss
		m.primary = ev.Primary
		m.distill = ev.Distill

	case train.EventEpochEnd:
		m.epoch = ev.Epoch + 1
		m.loss = ev.Loss
		m.primary = ev.Primary
		m.distill = ev.Distill

	case train.EventTaskEnd:
		m.history = append(m.history, taskRow{
			Task:          ev.TaskIdx,
			TrainSamples:  ev.TrainSamples,
			ReplaySamples: ev.ReplaySamples,
			Primary:       ev.Primary,
			Distill:       ev.Distill,
			Total:         ev.Loss,
			Elapsed:       ev.Elapsed,
		})

	case train.EventRunEnd:
		m.done = true
		m.elapsed = ev.Elapsed
	}
	return m
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.tableOffset > 0 {
			m.tableOffset--
		}
		return m, nil

	case "down", "j":
		if m.tableOffset < len(m.history)-1 {
			m.tableOffset++
		}
		return m, nil
	}

	return m, nil
}
