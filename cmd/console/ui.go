package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/narrative-engine/pkg/chapter"
	"github.com/jwebster45206/narrative-engine/pkg/consequence"
	"github.com/jwebster45206/narrative-engine/pkg/engine"
	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
)

const PlaceHolderText = "Pick a choice by number, or type /help"

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	api           *apiClient
	storyViewport viewport.Model
	metaViewport  viewport.Model
	textarea      textarea.Model
	ready         bool
	width         int
	height        int
	loading       bool

	progress *progress.Progress
	player   *player.Player
	chapter  *chapter.Chapter
	journal  []string // results, notifications and errors, oldest first

	lastConsequenceID string

	// Chapter selection state
	showChapterModal bool
	chapters         []string
	selectedChapter  int
	loadingChapters  bool
	modalErr         error

	showQuitModal bool

	notifications chan engine.Notification
	cancelStream  context.CancelFunc

	progressTick int
}

type progressMsg struct {
	res *engine.Result
	err error
}

type chapterMsg struct {
	chapter *chapter.Chapter
	err     error
}

type chaptersLoadedMsg struct {
	chapters []string
	err      error
}

// actionMsg is the outcome of a mutating request
type actionMsg struct {
	label string
	res   *engine.Result
	err   error
}

type eventsMsg struct {
	events []string
	err    error
}

type dashboardMsg struct {
	dashboard *consequence.Dashboard
	err       error
}

type notificationMsg struct {
	notification engine.Notification
}

type streamClosedMsg struct {
	err error
}

type progressTickMsg struct{}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	journalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(api *apiClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		api:           api,
		textarea:      ta,
		storyViewport: storyVp,
		metaViewport:  metaVp,
		loading:       true,
		notifications: make(chan engine.Notification, 16),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(m.loadProgress(), textarea.Blink, progressTick())
}

// activeChoices is the choice list at the player's current position
func (m *ConsoleUI) activeChoices() []chapter.Choice {
	if m.chapter == nil || m.progress == nil {
		return nil
	}
	return m.chapter.ActiveChoices(m.progress.CurrentDialogueIndex)
}

// writeStoryContent rebuilds the story panel for the current viewport width
func (m *ConsoleUI) writeStoryContent() {
	width := m.storyViewport.Width - 6 // Account for left(3) + right(3) padding
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("NARRATIVE ENGINE") + "\n\n")

	if m.chapter != nil && m.progress != nil {
		content.WriteString(titleStyle.Render(m.chapter.Title) + "\n")
		content.WriteString(wordwrap.String(m.chapter.Description, width) + "\n\n")
		content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

		if idx := m.progress.CurrentDialogueIndex; idx >= 0 && idx < len(m.chapter.Dialogues) {
			node := m.chapter.Dialogues[idx]
			if node.Speaker != "" {
				content.WriteString(speakerStyle.Render(node.Speaker+":") + " ")
			}
			content.WriteString(wordwrap.String(node.Text, width) + "\n\n")
		}

		choices := m.activeChoices()
		for i, c := range choices {
			line := fmt.Sprintf("%d. %s", i+1, c.Text)
			content.WriteString(choiceStyle.Render(wordwrap.String(line, width)) + "\n")
		}
		if len(choices) == 0 {
			content.WriteString(promptStyle.Render("No choices here. Type /complete to finish the chapter.") + "\n")
		}
		content.WriteString("\n")
	}

	for _, entry := range m.journal {
		content.WriteString(wordwrap.String(entry, width) + "\n")
	}

	if m.loading {
		content.WriteString("\n" + m.renderProgressBar())
	}

	m.storyViewport.SetContent(content.String())
	m.storyViewport.GotoBottom()
}

func writeMetadata(api *apiClient, p *progress.Progress, pl *player.Player) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("PLAYER") + "\n\n")

	content.WriteString("Player ID:\n")
	id := api.playerID
	if len(id) > 8 {
		id = id[:8] + "..."
	}
	content.WriteString(id + "\n\n")

	if p != nil {
		content.WriteString("Chapter:\n")
		if p.InChapter() {
			content.WriteString(fmt.Sprintf("%s (step %d)\n\n", p.CurrentChapterID, p.CurrentDialogueIndex))
		} else {
			content.WriteString("None\n\n")
		}

		content.WriteString("Completed:\n")
		if len(p.CompletedChapters) == 0 {
			content.WriteString("None yet\n")
		}
		for _, id := range p.CompletedChapters {
			content.WriteString("• " + id + "\n")
		}
		content.WriteString("\n")

		writeScores(&content, "Relationships:", p.RelationshipDeltas)
		writeScores(&content, "Reputation:", p.FactionReputation)
	}

	if pl != nil {
		content.WriteString(fmt.Sprintf("Level %d\nXP: %d\nCurrency: %d\n\n", pl.Level, pl.Experience, pl.Currency))
		writeScores(&content, "Attributes:", pl.Attributes)
	}

	content.WriteString("Commands:\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

func writeScores(b *strings.Builder, title string, scores map[string]int) {
	if len(scores) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, k := range slices.Sorted(maps.Keys(scores)) {
		fmt.Fprintf(b, "• %s: %+d\n", k, scores[k])
	}
	b.WriteString("\n")
}

func (m *ConsoleUI) refreshPanels() {
	m.writeStoryContent()
	m.metaViewport.SetContent(writeMetadata(m.api, m.progress, m.player))
}

func (m *ConsoleUI) addJournal(s string) {
	m.journal = append(m.journal, journalStyle.Render(s))
}

func (m *ConsoleUI) addError(err error) {
	m.journal = append(m.journal, errorStyle.Render("Error: "+err.Error()))
}

// applyResult takes the progress and player carried by a successful result
func (m *ConsoleUI) applyResult(res *engine.Result) {
	if res.Progress != nil {
		m.progress = res.Progress
	}
	if res.Player != nil {
		m.player = res.Player
	}
	if res.Consequence != nil {
		m.lastConsequenceID = res.Consequence.ID
	}
}

func (m *ConsoleUI) resize() {
	storyWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - storyWidth - 6

	m.storyViewport.Width = storyWidth - 2
	m.storyViewport.Height = m.height - 5
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(storyWidth - 4)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showChapterModal {
		return m.updateChapterModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, vpCmd = m.storyViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refreshPanels()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			return m.handleChoice(input)
		}

	case progressMsg:
		m.loading = false
		if msg.err != nil {
			m.addError(msg.err)
			m.refreshPanels()
			return m, nil
		}
		m.applyResult(msg.res)
		m.refreshPanels()
		return m, tea.Batch(m.afterProgress(), m.startStream())

	case chapterMsg:
		m.loading = false
		if msg.err != nil {
			m.addError(msg.err)
		} else {
			m.chapter = msg.chapter
		}
		m.refreshPanels()

	case actionMsg:
		m.loading = false
		if msg.err != nil {
			m.addError(fmt.Errorf("%s: %w", msg.label, msg.err))
			m.refreshPanels()
			return m, nil
		}
		m.applyResult(msg.res)
		m.addJournal(describeResult(msg.label, msg.res))
		m.refreshPanels()
		return m, m.afterProgress()

	case eventsMsg:
		m.loading = false
		switch {
		case msg.err != nil:
			m.addError(msg.err)
		case len(msg.events) == 0:
			m.addJournal("No events are available right now.")
		default:
			m.addJournal("Available events: " + strings.Join(msg.events, ", ") + " (use /trigger <id>)")
		}
		m.refreshPanels()

	case dashboardMsg:
		m.loading = false
		if msg.err != nil {
			m.addError(msg.err)
		} else {
			m.addJournal(describeDashboard(msg.dashboard))
		}
		m.refreshPanels()

	case notificationMsg:
		m.addJournal(describeNotification(msg.notification))
		m.refreshPanels()
		return m, m.waitForNotification()

	case streamClosedMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.journal = append(m.journal, promptStyle.Render("Live updates unavailable: "+msg.err.Error()))
			m.refreshPanels()
		}

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeStoryContent()
		}
		return m, progressTick()
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// afterProgress loads the current chapter, or opens chapter selection when
// the player is between chapters
func (m *ConsoleUI) afterProgress() tea.Cmd {
	if m.progress == nil || !m.progress.InChapter() {
		m.chapter = nil
		m.showChapterModal = true
		m.loadingChapters = true
		m.modalErr = nil
		return m.loadChapters()
	}
	if m.chapter != nil && m.chapter.ID == m.progress.CurrentChapterID {
		return nil
	}
	m.loading = true
	return m.loadChapter(m.progress.CurrentChapterID)
}

func (m ConsoleUI) handleChoice(input string) (tea.Model, tea.Cmd) {
	n, err := strconv.Atoi(input)
	if err != nil {
		m.addError(fmt.Errorf("%q is not a choice number", input))
		m.refreshPanels()
		return m, nil
	}
	choices := m.activeChoices()
	if n < 1 || n > len(choices) {
		m.addError(fmt.Errorf("choose a number from 1 to %d", len(choices)))
		m.refreshPanels()
		return m, nil
	}
	m.addJournal("> " + choices[n-1].Text)
	m.loading = true
	m.progressTick = 0
	m.refreshPanels()
	return m, m.run("choice", func() (*engine.Result, error) { return m.api.choose(n - 1) })
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "/help":
		m.journal = append(m.journal, titleStyle.Render("Help:")+`
• 1-9 - Take the numbered choice
• /chapters - Pick a chapter to start
• /start <id> - Start a chapter by id
• /complete - Complete the current chapter
• /events - List events you are eligible for
• /trigger <id> - Trigger an event
• /dashboard - Summarize your consequences
• /copy - Copy your player id (or last consequence id) to the clipboard
• Ctrl+C - Quit
`)
		m.refreshPanels()
		return m, nil

	case "/chapters":
		m.showChapterModal = true
		m.loadingChapters = true
		m.modalErr = nil
		return m, m.loadChapters()

	case "/start":
		if len(args) != 1 {
			break
		}
		m.loading = true
		return m, m.run("start "+args[0], func() (*engine.Result, error) { return m.api.startChapter(args[0]) })

	case "/complete":
		if m.progress == nil || !m.progress.InChapter() {
			m.addError(errors.New("no chapter in progress"))
			m.refreshPanels()
			return m, nil
		}
		id := m.progress.CurrentChapterID
		m.loading = true
		return m, m.run("complete "+id, func() (*engine.Result, error) { return m.api.completeChapter(id) })

	case "/events":
		m.loading = true
		return m, func() tea.Msg {
			events, err := m.api.eligibleEvents()
			return eventsMsg{events, err}
		}

	case "/trigger":
		if len(args) != 1 {
			break
		}
		m.loading = true
		return m, m.run("trigger "+args[0], func() (*engine.Result, error) { return m.api.triggerEvent(args[0]) })

	case "/dashboard":
		m.loading = true
		return m, func() tea.Msg {
			dash, err := m.api.dashboard()
			return dashboardMsg{dash, err}
		}

	case "/copy":
		value := m.api.playerID
		if len(args) == 1 && args[0] == "consequence" && m.lastConsequenceID != "" {
			value = m.lastConsequenceID
		}
		if err := clipboard.WriteAll(value); err != nil {
			m.addError(fmt.Errorf("failed to copy to clipboard: %w", err))
		} else {
			m.addJournal("Copied " + value)
		}
		m.refreshPanels()
		return m, nil
	}

	m.addError(fmt.Errorf("unknown command %q, try /help", input))
	m.refreshPanels()
	return m, nil
}

func describeResult(label string, res *engine.Result) string {
	var b strings.Builder
	b.WriteString(label + ": ok")
	if res.NextChapter != "" {
		b.WriteString(", next chapter " + res.NextChapter)
	}
	if len(res.Rewards) > 0 {
		rewards := make([]string, len(res.Rewards))
		for i, r := range res.Rewards {
			rewards[i] = r.String()
		}
		b.WriteString(", rewards " + strings.Join(rewards, " "))
	}
	if c := res.Consequence; c != nil && c.CommunityChoicePercentage != nil {
		fmt.Fprintf(&b, " (%.0f%% of players chose this)", *c.CommunityChoicePercentage*100)
	}
	return b.String()
}

func describeDashboard(d *consequence.Dashboard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Consequences: %d total, %d active", d.Total, len(d.Active))
	for _, typ := range consequence.Types {
		if n := len(d.ByType[typ]); n > 0 {
			fmt.Fprintf(&b, ", %s %d", typ, n)
		}
	}
	return b.String()
}

func describeNotification(n engine.Notification) string {
	subject := n.ChapterID
	if n.EventID != "" {
		subject = n.EventID
	}
	if subject == "" {
		return "• " + string(n.Type)
	}
	return fmt.Sprintf("• %s %s", n.Type, subject)
}

// run performs a mutating request off the UI goroutine
func (m ConsoleUI) run(label string, fn func() (*engine.Result, error)) tea.Cmd {
	return func() tea.Msg {
		res, err := fn()
		return actionMsg{label, res, err}
	}
}

func (m ConsoleUI) loadProgress() tea.Cmd {
	return func() tea.Msg {
		res, err := m.api.getProgress()
		return progressMsg{res, err}
	}
}

func (m ConsoleUI) loadChapter(id string) tea.Cmd {
	return func() tea.Msg {
		ch, err := m.api.getChapter(id)
		return chapterMsg{ch, err}
	}
}

func (m ConsoleUI) loadChapters() tea.Cmd {
	return func() tea.Msg {
		ids, err := m.api.availableChapters()
		return chaptersLoadedMsg{ids, err}
	}
}

// startStream connects to the notification stream once
func (m *ConsoleUI) startStream() tea.Cmd {
	if m.cancelStream != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelStream = cancel
	notifications := m.notifications
	api := m.api

	listen := func() tea.Msg {
		return streamClosedMsg{api.listenToSSE(ctx, notifications)}
	}
	return tea.Batch(listen, m.waitForNotification())
}

func (m ConsoleUI) waitForNotification() tea.Cmd {
	notifications := m.notifications
	return func() tea.Msg {
		return notificationMsg{<-notifications}
	}
}

func (m ConsoleUI) updateChapterModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true

	case chaptersLoadedMsg:
		m.loadingChapters = false
		m.modalErr = msg.err
		m.chapters = msg.chapters
		m.selectedChapter = 0

	case actionMsg:
		m.loading = false
		if msg.err != nil {
			m.modalErr = msg.err
			return m, nil
		}
		m.showChapterModal = false
		m.applyResult(msg.res)
		m.addJournal(describeResult(msg.label, msg.res))
		m.textarea.Focus()
		m.refreshPanels()
		return m, tea.Batch(textarea.Blink, m.afterProgress())

	case notificationMsg:
		m.addJournal(describeNotification(msg.notification))
		return m, m.waitForNotification()

	case progressTickMsg:
		return m, progressTick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEsc:
			if m.chapter != nil {
				m.showChapterModal = false
				return m, nil
			}
			m.showQuitModal = true
			return m, nil
		}
		if m.loadingChapters || m.loading {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyUp:
			if m.selectedChapter > 0 {
				m.selectedChapter--
			}
		case tea.KeyDown:
			if m.selectedChapter < len(m.chapters)-1 {
				m.selectedChapter++
			}
		case tea.KeyEnter:
			if len(m.chapters) > 0 {
				id := m.chapters[m.selectedChapter]
				m.loading = true
				m.modalErr = nil
				return m, m.run("start "+id, func() (*engine.Result, error) { return m.api.startChapter(id) })
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m.quit()
		default:
			switch msg.String() {
			case "y", "Y":
				return m.quit()
			case "n", "N":
				m.showQuitModal = false
				if m.showChapterModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) quit() (tea.Model, tea.Cmd) {
	if m.cancelStream != nil {
		m.cancelStream()
	}
	return m, tea.Quit
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved on the server.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderChapterModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingChapters:
		content.WriteString(modalTitleStyle.Render("Loading Chapters..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Checking which chapters you can start..."))
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Starting Chapter..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a Chapter"))
		content.WriteString("\n\n")
		if m.modalErr != nil {
			content.WriteString(errorStyle.Render(m.modalErr.Error()) + "\n\n")
		}
		if len(m.chapters) == 0 {
			content.WriteString(modalItemStyle.Render("No chapters are available to you yet.") + "\n")
		}
		for i, id := range m.chapters {
			if i == m.selectedChapter {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", id)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", id)))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to start, Esc to go back"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showChapterModal {
		return m.renderChapterModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - storyWidth - 6

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", storyWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.storyViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}
	usable = min(max(usable, 10), 80)

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := range usable {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && frame%4 < 2:
			bar.WriteString("▓") // Blinking effect at the progress point
		default:
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
