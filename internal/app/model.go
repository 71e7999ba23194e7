package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragdash/internal/client"
	"ragdash/internal/clock"
	"ragdash/internal/config"
	"ragdash/internal/dashboard"
	"ragdash/internal/logging"
	"ragdash/internal/metrics"
	"ragdash/internal/poll"
	"ragdash/internal/query"
	"ragdash/internal/store"
	"ragdash/internal/types"
)

const (
	toastDuration    = 4 * time.Second
	minSidebarWidth  = 20
	maxSidebarWidth  = 36
	minContentHeight = 6
)

type tab int

const (
	tabChat tab = iota
	tabRetrieval
	tabIngestion
	tabEvaluation
	tabCount
)

func (t tab) title() string {
	switch t {
	case tabRetrieval:
		return "Retrieval"
	case tabIngestion:
		return "Ingestion"
	case tabEvaluation:
		return "Evaluation"
	default:
		return "Chat"
	}
}

type Options struct {
	Config    config.Config
	Store     store.AppStateStore
	Scheduler clock.Scheduler
	// Cache and Metrics are built by the caller when the metrics endpoint
	// is enabled; the recorder reads the cache's stats.
	Cache   *query.Cache
	Metrics *metrics.Recorder
	Logger  logging.Logger
}

type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	dash    *dashboard.Dashboard
	store   store.AppStateStore
	cfg     config.Config
	logger  logging.Logger
	events  *bridge
	answers *answerRenderer

	sessionsSub    *query.Subscription
	sessionSub     *query.Subscription
	foldersSub     *query.Subscription
	jobsSub        *query.Subscription
	evaluationsSub *query.Subscription
	unsubscribe    []func()

	jobList   *poll.Session[[]types.TaskProgress]
	jobWatch  *poll.Session[*types.TaskProgress]
	evalWatch *poll.Session[*types.EvaluationStatusResponse]

	width   int
	height  int
	tab     tab
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	appState types.AppState
	status   string
	toast    toast
	banner   *writeFailure

	chat       chatTab
	retrieval  retrievalTab
	ingestion  ingestionTab
	evaluation evaluationTab
}

// NewModel builds the dashboard core over api and routes its notifications,
// snapshots and mutation states into the bubbletea loop.
func NewModel(ctx context.Context, api dashboard.API, opts Options) *Model {
	ctx, cancel := context.WithCancel(ctx)
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	events := newBridge(ctx)
	dash := dashboard.New(api, dashboard.Options{
		Config:    opts.Config,
		Scheduler: opts.Scheduler,
		Cache:     opts.Cache,
		Notifier:  events,
		Metrics:   opts.Metrics,
		Logger:    logger,
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = activityStyle

	m := &Model{
		ctx:        ctx,
		cancel:     cancel,
		dash:       dash,
		store:      opts.Store,
		cfg:        opts.Config,
		logger:     logging.Component(logger, "app"),
		events:     events,
		answers:    newAnswerRenderer(opts.Config.DarkMarkdown()),
		keys:       defaultKeyMap(),
		help:       newHelp(),
		spinner:    sp,
		chat:       newChatTab(),
		retrieval:  newRetrievalTab(),
		ingestion:  newIngestionTab(),
		evaluation: newEvaluationTab(),
	}
	m.watchMutations()
	return m
}

// Run starts the TUI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, api dashboard.API, opts Options) error {
	m := NewModel(ctx, api, opts)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close stops every poller and subscription and releases the cache.
func (m *Model) Close() {
	m.cancel()
	if m.jobList != nil {
		m.jobList.Stop()
	}
	if m.jobWatch != nil {
		m.jobWatch.Stop()
	}
	if m.evalWatch != nil {
		m.evalWatch.Stop()
	}
	for _, sub := range []*query.Subscription{m.sessionsSub, m.sessionSub, m.foldersSub, m.jobsSub, m.evaluationsSub} {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
	for _, fn := range m.unsubscribe {
		fn()
	}
	m.unsubscribe = nil
	m.dash.Close()
}

func (m *Model) Init() tea.Cmd {
	m.sessionsSub = m.observe(m.dash.SessionsQuery())
	m.foldersSub = m.observe(m.dash.FoldersQuery())
	m.jobsSub = m.observe(m.dash.JobsQuery())
	m.evaluationsSub = m.observe(m.dash.EvaluationsQuery())
	if session, err := m.dash.WatchJobs(m.ctx, dashboard.WatchOptions[[]types.TaskProgress]{}); err == nil {
		m.jobList = session
	} else {
		m.logger.Warn("job_list_watch_failed", logging.F("error", err))
	}
	return tea.Batch(
		m.events.listen(),
		loadAppStateCmd(m.ctx, m.store),
		m.chat.input.Focus(),
		m.retrieval.input.Focus(),
	)
}

func (m *Model) observe(q dashboard.Query) *query.Subscription {
	return m.dash.Observe(q, func(snap query.Snapshot) {
		m.events.send(snapshotMsg{snap: snap})
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		_, cmd := m.Update(msg.msg)
		return m, tea.Batch(cmd, m.events.listen())
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case appStateMsg:
		return m, m.applyAppState(msg)
	case snapshotMsg:
		m.applySnapshot(msg.snap)
		return m, nil
	case noticeMsg:
		return m, m.showNotification(msg.notification)
	case mutationMsg:
		return m, m.applyMutationState(msg)
	case toastExpiredMsg:
		if m.toast.seq == msg.seq {
			m.toast.clear()
		}
		return m, nil
	case chatDoneMsg:
		return m, m.onChatDone(msg)
	case retrieveDoneMsg:
		m.onRetrieveDone(msg)
		return m, nil
	case jobStartedMsg:
		return m, m.onJobStarted(msg)
	case jobProgressMsg:
		m.ingestion.progress[msg.progress.JobID] = *msg.progress
		return m, nil
	case evaluationStartedMsg:
		return m, m.onEvaluationStarted(msg)
	case evaluationProgressMsg:
		m.evaluation.active = msg.evaluation
		return m, nil
	case copyDoneMsg:
		if msg.err != nil {
			return m, m.showToast(toastLevelError, "copy failed: "+msg.err.Error())
		}
		return m, m.showToast(toastLevelInfo, "answer copied ("+msg.method.String()+" clipboard)")
	case appStateSavedMsg:
		if msg.err != nil {
			m.logger.Warn("app_state_save_failed", logging.F("error", msg.err))
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case keyMatches(msg, m.keys.Quit):
		m.cancel()
		return tea.Quit
	case keyMatches(msg, m.keys.NextTab):
		m.tab = (m.tab + 1) % tabCount
		return nil
	case keyMatches(msg, m.keys.PrevTab):
		m.tab = (m.tab + tabCount - 1) % tabCount
		return nil
	case keyMatches(msg, m.keys.Retry):
		if m.banner != nil {
			return m.retryFailedWrite()
		}
		return m.retryFailedReads()
	case keyMatches(msg, m.keys.Dismiss):
		if m.banner != nil {
			m.dismissFailure()
			return nil
		}
	}
	switch m.tab {
	case tabRetrieval:
		return m.updateRetrieval(msg)
	case tabIngestion:
		return m.updateIngestion(msg)
	case tabEvaluation:
		return m.updateEvaluation(msg)
	default:
		return m.updateChat(msg)
	}
}

func (m *Model) applySnapshot(snap query.Snapshot) {
	switch {
	case snap.Key.Equal(dashboard.SessionsKey):
		m.chat.sessionsLoading = snap.Status == query.StatusFetching && !snap.HasData
		m.chat.sessionsErr = snap.Err
		if sessions, ok := query.As[[]types.Session](snap.Data); ok && snap.HasData {
			m.chat.sessions = sessions
		}
	case snap.Key.HasPrefix(dashboard.SessionFamily):
		if !snap.Key.Equal(dashboard.SessionKey(m.appState.ActiveSessionID)) {
			return
		}
		m.chat.sessionErr = snap.Err
		if session, ok := query.As[*types.Session](snap.Data); ok && snap.HasData {
			m.chat.session = session
		}
		m.refreshTranscript()
	case snap.Key.Equal(dashboard.FoldersKey):
		m.ingestion.foldersErr = snap.Err
		if folders, ok := query.As[[]types.AssetFolder](snap.Data); ok && snap.HasData {
			m.ingestion.folders = folders
			m.ingestion.selectFolder(m.appState.LastFolder)
		}
	case snap.Key.Equal(dashboard.JobsKey):
		m.ingestion.jobsErr = snap.Err
		if jobs, ok := query.As[[]types.TaskProgress](snap.Data); ok && snap.HasData {
			m.ingestion.jobs = jobs
		}
	case snap.Key.HasPrefix(dashboard.EvaluationsFamily):
		m.evaluation.listErr = snap.Err
		if evals, ok := query.As[[]types.EvaluationStatusResponse](snap.Data); ok && snap.HasData {
			m.evaluation.evaluations = evals
			m.evaluation.clampCursor()
		}
	}
}

// retryFailedReads refetches the reads on the current tab whose last load
// failed. Results come back through the subscriptions.
func (m *Model) retryFailedReads() tea.Cmd {
	var subs []*query.Subscription
	switch m.tab {
	case tabChat:
		if m.chat.sessionsErr != nil {
			subs = append(subs, m.sessionsSub)
		}
		if m.chat.sessionErr != nil {
			subs = append(subs, m.sessionSub)
		}
	case tabIngestion:
		if m.ingestion.foldersErr != nil {
			subs = append(subs, m.foldersSub)
		}
		if m.ingestion.jobsErr != nil {
			subs = append(subs, m.jobsSub)
		}
	case tabEvaluation:
		if m.evaluation.listErr != nil {
			subs = append(subs, m.evaluationsSub)
		}
	}
	ctx, logger := m.ctx, m.logger
	cmds := make([]tea.Cmd, 0, len(subs))
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		cmds = append(cmds, func() tea.Msg {
			if _, err := sub.Refetch(ctx); err != nil {
				logger.Debug("read_retry_failed", logging.F("key", sub.Key().String()), logging.F("error", err))
			}
			return nil
		})
	}
	if len(cmds) == 0 {
		return nil
	}
	m.status = "reloading"
	return tea.Batch(cmds...)
}

func readErrorLine(err error, width int) string {
	return errorTextStyle.Render(truncateCell(client.Message(err)+" · ctrl+r retry", width))
}

func (m *Model) showNotification(n dashboard.Notification) tea.Cmd {
	level := toastLevelInfo
	switch n.Level {
	case dashboard.LevelSuccess:
		level = toastLevelSuccess
	case dashboard.LevelError:
		level = toastLevelError
	}
	text := n.Title
	if strings.TrimSpace(n.Message) != "" {
		text += ": " + n.Message
	}
	m.status = text
	return m.showToast(level, text)
}

func (m *Model) busy() bool {
	return m.dash.SendMessage.State().Pending() ||
		m.dash.Retrieve.State().Pending() ||
		m.dash.StartJob.State().Pending() ||
		m.dash.StartEvaluation.State().Pending()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
	m.chat.resize(m.mainWidth(), m.bodyHeight())
	m.retrieval.input.Width = max(10, width-4)
	m.ingestion.bar.Width = max(10, m.mainWidth()-2)
	m.refreshTranscript()
}

func (m *Model) sidebarWidth() int {
	return min(maxSidebarWidth, max(minSidebarWidth, m.width/4))
}

func (m *Model) mainWidth() int {
	return max(20, m.width-m.sidebarWidth()-1)
}

func (m *Model) bodyHeight() int {
	// header, banner, toast, help
	return max(minContentHeight, m.height-4)
}

func (m *Model) View() string {
	if m.width == 0 {
		return "loading…"
	}
	var body string
	switch m.tab {
	case tabRetrieval:
		body = m.viewRetrieval()
	case tabIngestion:
		body = m.viewIngestion()
	case tabEvaluation:
		body = m.viewEvaluation()
	default:
		body = m.viewChat()
	}
	body = lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body)
	lines := []string{m.viewTabs(), body}
	if banner := m.viewBanner(); banner != "" {
		lines = append(lines, banner)
	}
	if toast := m.toastLine(m.width); toast != "" {
		lines = append(lines, toast)
	} else if m.status != "" {
		lines = append(lines, statusStyle.Render(truncateToWidth(m.status, m.width)))
	}
	lines = append(lines, m.help.ShortHelpView(m.keys.forTab(m.tab)))
	return strings.Join(lines, "\n")
}

func (m *Model) viewTabs() string {
	parts := make([]string, 0, tabCount)
	for t := tabChat; t < tabCount; t++ {
		style := tabStyle
		if t == m.tab {
			style = tabActiveStyle
		}
		parts = append(parts, style.Render(" "+t.title()+" "))
	}
	line := strings.Join(parts, " ")
	if m.busy() {
		line += " " + m.spinner.View()
	}
	return line
}

func newHelp() help.Model {
	h := help.New()
	h.Styles.ShortKey = activityStyle
	h.Styles.ShortDesc = helpStyle
	h.Styles.ShortSeparator = dividerStyle
	return h
}
