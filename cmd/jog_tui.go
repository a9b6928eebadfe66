// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/gantry/pkg/motion"
	"github.com/Thermoquad/gantry/pkg/stepper"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const maxLogEntries = 100

// Focus states
const (
	focusAxisList = iota
	focusPositionInput
	focusSpeedInput
	focusMoveButton
	focusReadButton
	focusOriginButton
	focusCount
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// axisItem is one row of the axis list.
type axisItem struct {
	axis    stepper.Axis
	binding stepper.AxisBinding
}

// Implement list.Item interface
func (a axisItem) Title() string { return fmt.Sprintf("Axis %s", a.axis) }
func (a axisItem) Description() string {
	ch := a.binding.Channel
	if ch == "" {
		ch = "unassigned"
	}
	return fmt.Sprintf("%s #%d", ch, a.binding.Index)
}
func (a axisItem) FilterValue() string { return a.axis.String() }

// logEntry is one line of the exchange log
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// jogModel is the Bubble Tea model for the jog TUI
type jogModel struct {
	ctx      context.Context
	ctrl     *motion.Controller
	connInfo string

	axisList list.Model

	positionInput textinput.Model
	speedInput    textinput.Model
	focusedField  int

	// last position reply per axis
	positions map[stepper.Axis]string

	eventLog []logEntry
	busy     bool

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type jogTickMsg time.Time

type exchangeMsg struct {
	label string
	axis  stepper.Axis
	op    stepper.Op
	resp  *stepper.Response
	err   error
}

type broadcastMsg struct {
	label   string
	results motion.Results
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialJogModel(ctx context.Context, ctrl *motion.Controller, connInfo string) jogModel {
	pos := textinput.New()
	pos.Placeholder = "500"
	pos.CharLimit = 5
	pos.Width = 8

	speed := textinput.New()
	speed.Placeholder = strconv.Itoa(stepper.DefaultOriginSpeed)
	speed.CharLimit = 4
	speed.Width = 6

	table := ctrl.Axes()
	items := make([]list.Item, 0, len(stepper.Axes))
	for _, a := range stepper.Axes {
		items = append(items, axisItem{axis: a, binding: table[a]})
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	axisList := list.New(items, delegate, 26, 10)
	axisList.Title = "Axes"
	axisList.SetShowStatusBar(false)
	axisList.SetShowHelp(false)
	axisList.SetFilteringEnabled(false)

	return jogModel{
		ctx:           ctx,
		ctrl:          ctrl,
		connInfo:      connInfo,
		axisList:      axisList,
		positionInput: pos,
		speedInput:    speed,
		focusedField:  focusAxisList,
		positions:     make(map[stepper.Axis]string),
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m jogModel) Init() tea.Cmd {
	return jogTickCmd()
}

func jogTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return jogTickMsg(t)
	})
}

func (m jogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case jogTickMsg:
		m.ctrl.Statistics().CalculateRates()
		return m, jogTickCmd()

	case exchangeMsg:
		m.busy = false
		m.handleExchange(msg)

	case broadcastMsg:
		m.busy = false
		for _, r := range msg.results {
			m.handleExchange(exchangeMsg{label: msg.label, axis: r.Axis, resp: r.Response, err: r.Err})
		}
	}

	return m, nil
}

func (m *jogModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if !m.inputFocused() || msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case "tab":
		return m.cycleFocus(1), nil

	case "shift+tab":
		return m.cycleFocus(-1), nil

	case "enter":
		return m.handleEnter()

	case "up", "k", "down", "j":
		if m.focusedField == focusAxisList {
			m.axisList, _ = m.axisList.Update(msg)
			return m, nil
		}
	}

	if !m.inputFocused() {
		switch msg.String() {
		case "p":
			return m.runAxis("READ", stepper.OpReadPosition)
		case "o":
			return m.runAxis("ORIGIN", stepper.OpInitializeOrigin)
		case "h":
			return m.runBroadcast("HOME", func(ctx context.Context) motion.Results {
				return m.ctrl.HomeAll(ctx, m.speed())
			})
		case "r":
			return m.runBroadcast("RESET", m.ctrl.ResetAll)
		}
		return m, nil
	}

	// Pass through to focused input
	var cmd tea.Cmd
	if m.focusedField == focusPositionInput {
		m.positionInput, cmd = m.positionInput.Update(msg)
	} else {
		m.speedInput, cmd = m.speedInput.Update(msg)
	}
	return m, cmd
}

func (m *jogModel) inputFocused() bool {
	return m.focusedField == focusPositionInput || m.focusedField == focusSpeedInput
}

func (m *jogModel) cycleFocus(delta int) *jogModel {
	m.focusedField = (m.focusedField + delta + focusCount) % focusCount

	m.positionInput.Blur()
	m.speedInput.Blur()
	switch m.focusedField {
	case focusPositionInput:
		m.positionInput.Focus()
	case focusSpeedInput:
		m.speedInput.Focus()
	}
	return m
}

func (m *jogModel) handleEnter() (tea.Model, tea.Cmd) {
	switch m.focusedField {
	case focusPositionInput, focusSpeedInput, focusMoveButton:
		return m.runAxis("MOVE", stepper.OpMove)
	case focusReadButton:
		return m.runAxis("READ", stepper.OpReadPosition)
	case focusOriginButton:
		return m.runAxis("ORIGIN", stepper.OpInitializeOrigin)
	}
	return m, nil
}

func (m *jogModel) selectedAxis() stepper.Axis {
	if item, ok := m.axisList.SelectedItem().(axisItem); ok {
		return item.axis
	}
	return stepper.AxisX
}

func (m *jogModel) speed() int {
	s := m.speedInput.Value()
	if s == "" {
		s = m.speedInput.Placeholder
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return stepper.DefaultOriginSpeed
	}
	return n
}

// runAxis issues one command on the selected axis off the UI goroutine.
func (m *jogModel) runAxis(label string, op stepper.Op) (tea.Model, tea.Cmd) {
	if m.busy {
		m.addLogEntry("Busy: waiting for previous exchange", true)
		return m, nil
	}
	axis := m.selectedAxis()

	var command stepper.Command
	switch op {
	case stepper.OpMove:
		posStr := m.positionInput.Value()
		if posStr == "" {
			posStr = m.positionInput.Placeholder
		}
		pos, err := strconv.Atoi(posStr)
		if err != nil {
			m.addLogEntry(fmt.Sprintf("Invalid position: %s", posStr), true)
			return m, nil
		}
		command = stepper.Move(axis, m.speed(), pos)
	case stepper.OpReadPosition:
		command = stepper.ReadPosition(axis)
	case stepper.OpInitializeOrigin:
		command = stepper.InitializeOrigin(axis)
	default:
		return m, nil
	}

	m.busy = true
	ctx, ctrl := m.ctx, m.ctrl
	return m, func() tea.Msg {
		resp, err := ctrl.Do(ctx, command)
		return exchangeMsg{label: label, axis: axis, op: op, resp: resp, err: err}
	}
}

func (m *jogModel) runBroadcast(label string, fn func(context.Context) motion.Results) (tea.Model, tea.Cmd) {
	if m.busy {
		m.addLogEntry("Busy: waiting for previous exchange", true)
		return m, nil
	}
	m.busy = true
	ctx := m.ctx
	return m, func() tea.Msg {
		return broadcastMsg{label: label, results: fn(ctx)}
	}
}

func (m *jogModel) handleExchange(msg exchangeMsg) {
	if msg.err != nil {
		if msg.resp != nil && len(msg.resp.Data) > 0 {
			m.addLogEntry(fmt.Sprintf("%s %s: %v (got %q)", msg.label, msg.axis, msg.err, stepper.FormatASCII(msg.resp.Data)), true)
		} else {
			m.addLogEntry(fmt.Sprintf("%s %s: %v", msg.label, msg.axis, msg.err), true)
		}
		return
	}
	if msg.op == stepper.OpReadPosition {
		m.positions[msg.axis] = msg.resp.Text()
	}
	m.addLogEntry(fmt.Sprintf("%s %s: %s -> %q (%v)",
		msg.label, msg.axis, msg.resp.Sent, msg.resp.Text(), msg.resp.Elapsed.Round(time.Millisecond)), false)
}

func (m jogModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	buttonStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12")).
		Padding(0, 2)

	focusedButtonStyle := buttonStyle.
		Background(lipgloss.Color("10"))

	// Header
	s.WriteString(titleStyle.Render("GANTRY JOG"))
	s.WriteString(" ")
	status := m.connInfo
	if m.busy {
		status = warningStyle.Render("BUSY")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch p/o/h/r", status)))
	s.WriteString("\n\n")

	// Axis list and control panel side by side
	leftWidth := 28
	rightWidth := m.width - leftWidth - 7
	if rightWidth < 30 {
		rightWidth = 30
	}

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusAxisList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	axisPanel := listStyle.Render(m.axisList.View())

	controlPanel := boxStyle.Width(rightWidth).Render(
		m.renderControlPanel(statsLabelStyle, statsValueStyle, headerStyle, buttonStyle, focusedButtonStyle))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, axisPanel, " ", controlPanel))
	s.WriteString("\n")

	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n")

	s.WriteString(m.renderEventLog(statsLabelStyle, headerStyle, errorStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m jogModel) renderControlPanel(statsLabelStyle, statsValueStyle, headerStyle, buttonStyle, focusedButtonStyle lipgloss.Style) string {
	var s strings.Builder
	axis := m.selectedAxis()
	binding := m.ctrl.Axes()[axis]

	s.WriteString(fmt.Sprintf("%s Axis %s  %s\n", statsLabelStyle.Render("Selected:"), axis,
		headerStyle.Render(fmt.Sprintf("bound %d..%d", binding.Bound.Min, binding.Bound.Max))))

	pos := m.positions[axis]
	if pos == "" {
		pos = "?"
	}
	s.WriteString(fmt.Sprintf("%s %s\n\n", statsLabelStyle.Render("Position:"), statsValueStyle.Render(pos)))

	s.WriteString(statsLabelStyle.Render("Target: "))
	s.WriteString(m.positionInput.View())
	s.WriteString("  ")
	s.WriteString(statsLabelStyle.Render("Speed: "))
	s.WriteString(m.speedInput.View())
	s.WriteString("\n\n")

	buttons := []struct {
		field int
		text  string
	}{
		{focusMoveButton, "[ Move ]"},
		{focusReadButton, "[ Read ]"},
		{focusOriginButton, "[ Origin ]"},
	}
	for i, b := range buttons {
		if i > 0 {
			s.WriteString(" ")
		}
		if m.focusedField == b.field {
			s.WriteString(focusedButtonStyle.Render(b.text))
		} else {
			s.WriteString(buttonStyle.Render(b.text))
		}
	}
	return s.String()
}

func (m jogModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	snap := m.ctrl.Statistics().Snapshot()

	failures := snap.Timeouts + snap.TransportErrors + snap.Unavailable
	failureText := statsValueStyle.Render("0")
	if failures > 0 {
		failureText = errorStyle.Render(fmt.Sprintf("%d", failures))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Exchanges:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.TotalExchanges)),
		statsLabelStyle.Render("Complete:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.Completed)),
		statsLabelStyle.Render("Failed:"), failureText,
		statsLabelStyle.Render("Rejected:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.CallerErrors)),
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.2f/s", snap.ExchangeRate)),
	)
	return boxStyle.Width(m.width - 4).Render(content)
}

func (m jogModel) renderEventLog(statsLabelStyle, headerStyle, errorStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EXCHANGES"))
	s.WriteString("\n")

	logHeight := m.height - 22
	if logHeight < 5 {
		logHeight = 5
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no exchanges yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			style := warningStyle
			prefix := "ℹ "
			if entry.isError {
				style = errorStyle
				prefix = "✗ "
			}
			s.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), style.Render(prefix+entry.message)))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *jogModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogEntries:]
	}
}
