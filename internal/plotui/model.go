// Package plotui provides the Bubble Tea comparison window.
package plotui

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/darkcmp/internal/model"
	"github.com/verte-zerg/darkcmp/internal/plot"
	"github.com/verte-zerg/darkcmp/internal/stats"
)

const (
	tabScatter = iota
	tabGroups
	tabFrames
)

// plotChrome is the number of lines the text plot prints around its rows.
const plotChrome = 7

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#3A7BC8"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// TableMsg delivers a freshly ingested table, for example after the
// watched folder changed.
type TableMsg struct {
	Table *model.StatsTable
	Err   error
}

// Model implements the Bubble Tea comparison window.
type Model struct {
	all *model.StatsTable
	cfg model.Config

	report   stats.Report
	errMsg   string
	loadedAt time.Time

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	frameTable  table.Model
	frameLayout tableLayout

	width  int
	height int

	filterMode  bool
	filterInput textinput.Model
	filterError string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs the window for an ingested table.
func NewModel(all *model.StatsTable, cfg model.Config) *Model {
	if all == nil {
		all = &model.StatsTable{}
	}
	m := &Model{
		all:      all,
		cfg:      cfg,
		tabs:     []string{"Scatter", "Groups", "Frames"},
		loadedAt: time.Now(),
	}
	m.filterInput = newFilterInput()
	m.frameTable = table.New(table.WithHeight(1))
	m.frameTable.SetStyles(frameTableStyles())
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.refreshReport()
	return m
}

// Stat returns the statistic currently shown.
func (m *Model) Stat() model.StatType {
	return m.cfg.Stat
}

// Filter returns the active filter expression.
func (m *Model) Filter() string {
	return m.cfg.Filter
}

// Report returns the report currently shown.
func (m *Model) Report() stats.Report {
	return m.report
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case TableMsg:
		if msg.Err != nil {
			m.errMsg = fmt.Sprintf("reload failed: %v", msg.Err)
			return m, nil
		}
		m.all = msg.Table
		if m.all == nil {
			m.all = &model.StatsTable{}
		}
		m.loadedAt = time.Now()
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "m":
			m.cfg.Stat = m.cfg.Stat.Toggle()
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabFrames {
				m.frameTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabFrames {
				m.frameTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabFrames {
				var cmd tea.Cmd
				m.frameTable, cmd = m.frameTable.Update(msg)
				return m, cmd
			}
			var cmd tea.Cmd
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func newFilterInput() textinput.Model {
	input := textinput.New()
	input.Prompt = "Filter: "
	input.Placeholder = `Camera == "ZWO ASI432MM" && Gain > 0`
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.applyFrameTable(m.width, bodyHeight, false)
	m.filterInput.Width = maxInt(10, m.width-lipgloss.Width(m.filterInput.Prompt)-2)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabFrames {
		m.frameTable.Focus()
	} else {
		m.frameTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	summary := padLines(m.renderSummary(), m.width)
	return tabs + "\n" + summary
}

func (m *Model) renderSummary() string {
	filter := m.cfg.Filter
	if filter == "" {
		filter = "none"
	}
	summary := fmt.Sprintf("Stat: %s  Frames: %d/%d  Pairs: %d  Filter: %s  Loaded: %s",
		m.cfg.Stat.Label(), m.report.Table.Len(), m.all.Len(), m.report.Matched(), filter, m.loadedAt.Format("15:04:05"))
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Mean/Median: m  Filter: /  Quit: q")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("enter: apply  esc: cancel  empty clears the filter")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{
		"Filter expression (fields: Category, Camera, Object, Gain, Exposure, Mean, Median, StdDev, Width, Height, Path)",
		m.filterInput.View(),
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabFrames {
		if m.report.Table.Len() == 0 {
			return fitLines("No frames found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.frameTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(m.all, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to build comparison.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	_, bodyHeight, _ := m.layoutHeights()
	m.applyFrameTable(m.widthOrDefault(), bodyHeight, true)
	m.renderTabContents()
}

func (m *Model) widthOrDefault() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 || m.report.Table == nil {
		return
	}
	width := m.widthOrDefault()
	_, bodyHeight, _ := m.layoutHeights()
	m.viewports[tabScatter].SetContent(renderScatter(m.report, width, m.plotHeight(bodyHeight)))
	m.viewports[tabGroups].SetContent(renderGroups(m.report, width))
}

func (m *Model) plotHeight(bodyHeight int) int {
	if m.cfg.PlotHeight > 0 {
		return m.cfg.PlotHeight
	}
	return maxInt(6, bodyHeight-plotChrome)
}

func renderScatter(report stats.Report, width, height int) string {
	fig := plot.NewFigure(report.Comparison, report.Cameras)
	var buf bytes.Buffer
	if err := plot.RenderText(&buf, fig, plot.PlotWidthFor(width), height, true); err != nil {
		return fmt.Sprintf("Failed to render scatter: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderGroups(report stats.Report, width int) string {
	var buf bytes.Buffer
	if err := stats.RenderGroupTable(&buf, report.Comparison); err != nil {
		return fmt.Sprintf("Failed to render groups: %v", err)
	}
	cards := renderSummaryCards(report, width)
	return strings.TrimRight(cards+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(report stats.Report, width int) string {
	var box, dome int
	for _, r := range report.Table.Records() {
		if r.Category == model.CategoryBox {
			box++
		} else {
			dome++
		}
	}
	unmatched := len(report.Comparison.UnmatchedBox) + len(report.Comparison.UnmatchedDome)
	cards := []string{
		metricCard("Box frames", fmt.Sprintf("%d", box)),
		metricCard("Dome frames", fmt.Sprintf("%d", dome)),
		metricCard("Pairs", fmt.Sprintf("%d", report.Matched())),
		metricCard("Unmatched", fmt.Sprintf("%d", unmatched)),
		metricCard("Excluded", fmt.Sprintf("%d", report.Excluded)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func buildFrameTableData(tbl *model.StatsTable) ([]table.Column, []table.Row) {
	headers, data := stats.FrameTableRows(tbl)
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	rows := make([]table.Row, 0, len(data))
	for _, row := range data {
		for i, cell := range row {
			widths[i] = maxInt(widths[i], minInt(lipgloss.Width(cell), 40))
		}
		rows = append(rows, table.Row(row))
	}
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		columns[i] = table.Column{Title: h, Width: widths[i]}
	}
	return columns, rows
}

func (m *Model) applyFrameTable(width, height int, force bool) {
	viewportHeight := maxInt(1, height-1)
	if !force && m.frameLayout.width == width && m.frameLayout.height == viewportHeight {
		return
	}
	if force && m.report.Table != nil {
		cols, rows := buildFrameTableData(m.report.Table)
		m.frameTable.SetRows(nil)
		m.frameTable.SetColumns(cols)
		m.frameTable.SetRows(rows)
		m.frameLayout.rowCount = len(rows)
	}
	m.frameLayout.width = width
	m.frameLayout.height = viewportHeight
	m.frameTable.SetWidth(width)
	m.frameTable.SetHeight(viewportHeight)
	if m.height > 0 {
		m.frameTable.SetHeight(m.adjustFrameTableHeight(height))
	}
}

// adjustFrameTableHeight corrects for the header border so the rendered
// table fills exactly bodyHeight lines.
func (m *Model) adjustFrameTableHeight(bodyHeight int) int {
	target := maxInt(1, bodyHeight)
	height := m.frameTable.Height()
	viewHeight := lipgloss.Height(m.frameTable.View())
	if viewHeight == target {
		return height
	}
	height += target - viewHeight
	if height < 1 {
		height = 1
	}
	return height
}

func frameTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.filterInput.SetValue(m.cfg.Filter)
	m.filterInput.CursorEnd()
	return m, m.filterInput.Focus()
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEnter:
		src := strings.TrimSpace(m.filterInput.Value())
		if _, err := stats.CompileFilter(src); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.cfg.Filter = src
		m.filterMode = false
		m.filterError = ""
		m.filterInput.Blur()
		m.refreshReport()
		m.updateLayout()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
