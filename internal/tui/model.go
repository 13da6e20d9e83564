// Package tui is the interactive terminal front end: enter a repository URL,
// watch the run, read the artifacts and save them to disk.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"legacylift/internal/artifact"
	"legacylift/internal/pipeline"
	"legacylift/internal/session"
	"legacylift/internal/store"
)

type Runner interface {
	Run(ctx context.Context, repoURL string, obs pipeline.Observer) (*artifact.Bundle, error)
}

type Options struct {
	Runner Runner
	// Saver receives the bundle when the user presses s. The bundle is
	// keyed by repository name.
	Saver store.Store
	// OutDir is shown in the saved message; it should be the Saver's root.
	OutDir string
	// Style is a glamour style name; "" or "auto" detects the terminal.
	Style  string
	Logger *zap.Logger
}

type (
	runDoneMsg struct {
		bundle *artifact.Bundle
		err    error
	}
	progressMsg struct {
		event  pipeline.Event
		events <-chan pipeline.Event
	}
	savedMsg struct {
		path string
		err  error
	}
)

const defaultWidth = 80

type Model struct {
	runner Runner
	saver  store.Store
	outDir string
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	slot     *session.Slot
	release  func()
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	style    string
	styles   Styles

	running  bool
	progress string
	status   string
	width    int
	height   int
}

func New(opts Options) Model {
	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "https://github.com/aws-samples/eb-python-flask"
	ti.Prompt = "Repository URL: "
	ti.PromptStyle = styles.Prompt
	ti.CharLimit = 2048
	ti.Width = defaultWidth - len(ti.Prompt)
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		runner:   opts.Runner,
		saver:    opts.Saver,
		outDir:   opts.OutDir,
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
		slot:     &session.Slot{},
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(defaultWidth, 20),
		renderer: newRenderer(opts.Style, defaultWidth),
		style:    opts.Style,
		styles:   styles,
		width:    defaultWidth,
	}
}

// Bundle returns the bundle currently on screen.
func (m Model) Bundle() *artifact.Bundle { return m.slot.Current() }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-8, 5)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 10)
		m.renderer = newRenderer(m.style, max(msg.Width-4, 20))
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case progressMsg:
		m.progress = describe(msg.event)
		return m, waitForEvent(msg.events)

	case runDoneMsg:
		m.running = false
		m.progress = ""
		if m.release != nil {
			m.release()
			m.release = nil
		}
		if msg.err != nil {
			m.slot.Fail(session.Message(msg.err))
			m.log.Warn("migration failed", zap.Error(msg.err))
		} else {
			m.slot.Replace(msg.bundle)
			m.status = ""
			m.input.Blur()
			m.refreshViewport()
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.status = m.styles.Error.Render("Save failed: " + msg.err.Error())
		} else {
			m.status = m.styles.Success.Render("Saved to " + msg.path)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.input.Focused() {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.cancel()
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		return m, nil
	}

	if m.input.Focused() {
		if msg.Type == tea.KeyEnter {
			return m.start()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.cancel()
		return m, tea.Quit
	case "s":
		return m, m.save()
	case "i", "tab":
		if !m.running {
			return m, m.input.Focus()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) start() (tea.Model, tea.Cmd) {
	if m.runner == nil {
		m.slot.Fail("no migration runner configured")
		return m, nil
	}
	repoURL := strings.TrimSpace(m.input.Value())
	if repoURL == "" {
		m.slot.Fail(session.EmptyURLMessage)
		return m, nil
	}
	release, err := m.slot.Begin()
	if err != nil {
		m.slot.Fail(session.Message(err))
		return m, nil
	}
	m.release = release
	m.running = true
	m.status = ""
	m.progress = "Analyzing Repo & Generating Clean Artifacts..."

	events := make(chan pipeline.Event, 16)
	runner, ctx := m.runner, m.ctx
	run := func() tea.Msg {
		defer close(events)
		b, err := runner.Run(ctx, repoURL, func(e pipeline.Event) {
			select {
			case events <- e:
			default:
			}
		})
		return runDoneMsg{bundle: b, err: err}
	}
	return m, tea.Batch(run, waitForEvent(events), m.spinner.Tick)
}

// waitForEvent relays one progress event and re-arms itself until the run
// closes the channel.
func waitForEvent(ch <-chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg{event: e, events: ch}
	}
}

func (m Model) save() tea.Cmd {
	b := m.slot.Current()
	if b == nil {
		return func() tea.Msg { return savedMsg{err: fmt.Errorf("nothing to save yet")} }
	}
	if m.saver == nil {
		return func() tea.Msg { return savedMsg{err: fmt.Errorf("no output directory configured")} }
	}
	saver, ctx, outDir := m.saver, m.ctx, m.outDir
	key := saveKey(b)
	return func() tea.Msg {
		if _, err := store.SaveBundle(ctx, saver, key, b); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{path: filepath.Join(outDir, key)}
	}
}

func saveKey(b *artifact.Bundle) string {
	name := strings.TrimSpace(b.RepoName)
	if name == "" || name == "." || name == ".." {
		return b.RunID
	}
	return name
}

func (m *Model) refreshViewport() {
	b := m.slot.Current()
	if b == nil {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(render(m.renderer, bundleMarkdown(b)))
	m.viewport.GotoTop()
}

func describe(e pipeline.Event) string {
	switch e.Stage {
	case pipeline.StageCloning:
		return "Cloning repository..."
	case pipeline.StageExtracting:
		return "Reading dependency manifests..."
	case pipeline.StageGenerating:
		return "Generating artifacts..."
	case pipeline.StageGenerated:
		if e.Failed {
			return fmt.Sprintf("%s failed", e.Kind.FileName())
		}
		return fmt.Sprintf("%s ready", e.Kind.FileName())
	case pipeline.StageDone:
		return "Done."
	case pipeline.StageFailed:
		return "Failed: " + e.Message
	}
	return string(e.Stage)
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("LegacyLift: Agentic Migration Factory"))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Subtle.Render("Modernize legacy apps to Google Cloud Run in seconds."))
	sb.WriteString("\n\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")

	if m.running {
		sb.WriteString(m.spinner.View() + " " + m.progress + "\n")
	}
	if msg := m.slot.LastError(); msg != "" {
		sb.WriteString(m.styles.Error.Render(msg) + "\n")
	}
	if m.status != "" {
		sb.WriteString(m.status + "\n")
	}
	if m.slot.Current() != nil {
		sb.WriteString("\n" + m.viewport.View() + "\n")
	}
	sb.WriteString(m.styles.Help.Render(m.help()))
	return sb.String()
}

func (m Model) help() string {
	if m.input.Focused() {
		return "enter: migrate • esc: leave input • ctrl+c: quit"
	}
	return "s: save • i: edit url • ↑/↓: scroll • q: quit"
}
