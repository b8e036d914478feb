// Package tui is the interactive terminal front end: a single-page flow of
// upload, configure, generate and read, driven by the submission controller.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"shannon/cmd/shannon/ui"
	"shannon/internal/form"
	"shannon/internal/generation"
	"shannon/internal/ingest"
	"shannon/internal/logging"
	"shannon/internal/notify"
	"shannon/internal/results"
	"shannon/internal/submission"
)

const (
	toastTick = 200 * time.Millisecond
	maxToasts = 5
)

// Options configures the interactive model.
type Options struct {
	Generator     generation.Generator
	Policy        submission.FailurePolicy
	Styles        ui.Styles
	ToastDuration time.Duration
	// StartDir is where the file browser opens. Empty means the working directory.
	StartDir string
	// Watch follows the accepted file on disk and drops it if it disappears.
	Watch bool
}

// focusField is the focused control of the form.
type focusField int

const (
	focusDrop focusField = iota
	focusStrength
	focusSentences
	focusSubmit
	focusCount
)

// Messages produced by the two suspension points and the background feeds.
type (
	decodedMsg    struct{ req generation.Request }
	generatedMsg  struct{ sentences []string }
	failedMsg     struct{ err error }
	toastTickMsg  time.Time
	fileChangeMsg ingest.Change
)

// Model is the bubbletea model. Session state lives in the form and
// controller, which are shared by pointer across model copies.
type Model struct {
	styles ui.Styles
	keys   keyMap
	help   help.Model

	form      *form.Form
	ctrl      *submission.Controller
	ingestor  *ingest.Ingestor
	toasts    *notify.Queue
	presenter *results.Presenter
	watcher   *ingest.Watcher

	ctx    context.Context
	cancel context.CancelFunc

	focus     focusField
	pathInput textinput.Model
	picker    filepicker.Model
	picking   bool
	spinner   spinner.Model
	results   viewport.Model
	helpView  viewport.Model
	showHelp  bool

	width  int
	height int
}

// New builds the model and its session objects.
func New(opts Options) Model {
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = notify.DefaultDuration
	}
	if opts.Styles.Theme == (ui.Theme{}) {
		opts.Styles = ui.DefaultStyles()
	}
	ctx, cancel := context.WithCancel(context.Background())
	toasts := notify.NewQueue(opts.ToastDuration, maxToasts)

	m := Model{
		styles: opts.Styles,
		keys:   defaultKeyMap(),
		help:   help.New(),
		toasts: toasts,
		ctx:    ctx,
		cancel: cancel,
	}
	m.form = form.New(toasts)
	m.ctrl = submission.New(submission.Options{
		Generator: opts.Generator,
		Sink:      toasts,
		Policy:    opts.Policy,
	})

	if opts.Watch {
		w, err := ingest.NewWatcher()
		if err != nil {
			logging.Get(logging.CategoryTUI).Warn("file watcher unavailable: %v", err)
		} else {
			m.watcher = w
			go w.Run(ctx)
		}
	}

	f, watcher := m.form, m.watcher
	m.ingestor = ingest.New(ingest.Options{
		Sink: toasts,
		OnAccepted: func(file ingest.UploadedFile) {
			f.SetFile(file)
			if watcher != nil && file.Path != "" {
				if err := watcher.Follow(file.Path); err != nil {
					logging.Get(logging.CategoryTUI).Warn("cannot watch %s: %v", file.Path, err)
				}
			}
		},
	})

	ctrl := m.ctrl
	m.presenter = results.New(opts.Styles.Results(), func() {
		if err := ctrl.Reset(); err != nil {
			logging.Get(logging.CategoryTUI).Warn("generate new: %v", err)
			return
		}
		f.Reset()
		if watcher != nil {
			_ = watcher.Follow("")
		}
	})

	m.pathInput = textinput.New()
	m.pathInput.Placeholder = "drop a .txt file here or type its path"
	m.pathInput.Prompt = "› "
	m.pathInput.CharLimit = 4096
	m.pathInput.Focus()

	m.picker = filepicker.New()
	m.picker.AllowedTypes = []string{ingest.AcceptedExtension}
	if opts.StartDir != "" {
		m.picker.CurrentDirectory = opts.StartDir
	}

	m.spinner = spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(opts.Styles.Spinner),
	)
	m.results = viewport.New(80, 20)
	m.helpView = viewport.New(80, 20)
	return m
}

// Init starts the cursor blink, the toast clock and the file watcher feed.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.EnableBracketedPaste,
		tickToasts(),
		m.waitForFileChange(),
	)
}

// State exposes the controller state, mostly for tests and the footer.
func (m Model) State() submission.State { return m.ctrl.State() }

// Notifications returns the toasts currently on screen.
func (m Model) Notifications() []notify.Notification { return m.toasts.Active() }

// Shutdown stops background work. Safe to call more than once.
func (m Model) Shutdown() {
	m.cancel()
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
}
