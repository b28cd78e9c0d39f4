package tui

import (
	"context"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/config"
	"taskflow-cli/internal/keyset"
	"taskflow-cli/internal/live"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/mutate"
	"taskflow-cli/internal/notify"
	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/preview"
	"taskflow-cli/internal/signals"
	"taskflow-cli/internal/store"
	"taskflow-cli/internal/views"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Deps are what Run needs from the command layer. DB may be nil, in which case UI state is
// neither restored nor saved.
type Deps struct {
	Client *api.Client
	DB     *store.DB
	Config *config.Config
	Logger *zap.Logger
}

// taskDetail is the state of the open task page.
type taskDetail struct {
	id       int
	loading  bool
	notFound bool
	editor   *mutate.Editor

	comments    *keyset.List[model.TaskComment, int]
	links       []model.TaskLink
	attachments []model.Attachment
	history     []model.StatusHistoryEntry
	users       []model.UserMinimal
	previews    *preview.Cache

	section detailSection
	sel     int
}

func (d *taskDetail) task() model.Task {
	if d == nil || d.editor == nil {
		return model.Task{}
	}
	return d.editor.Task()
}

type appModel struct {
	client *api.Client
	db     *store.DB
	cfg    *config.Config
	log    *zap.Logger
	hub    *hub
	bus    *signals.Bus
	notes  *notify.Store
	now    func() time.Time

	width  int
	height int

	view view
	// gen is bumped whenever the visible view or its subject changes.
	gen int

	loginUser  textinput.Model
	loginPass  textinput.Model
	loginFocus int
	loginErr   string
	loggingIn  bool

	overdue int

	flash    string
	flashErr bool
	flashSeq int

	dash       views.Summary
	dashLoaded bool

	taskMode     taskMode
	mineOnly     bool
	statusFilter model.Status
	tasksLoaded  bool
	board        *mutate.Board
	taskIdx      int
	kanbanCol    int
	kanbanRow    int
	followID     int
	month        time.Time

	detail *taskDetail

	channels   []model.Channel
	chanIdx    int
	channelID  int
	messages   *keyset.List[model.Message, int]
	composer   textinput.Model
	composing  bool
	chatScroll viewport.Model

	noteIdx int

	users   []model.User
	userIdx int

	directory []model.UserMinimal

	modal      modalKind
	inputs     []textinput.Model
	inputFocus int
	textarea   textarea.Model
	modalErr   string
	groupMode  bool
	pickIdx    int
	picked     map[int]bool

	keys keyMap
	help help.Model
}

func newAppModel(deps Deps) appModel {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{ReconnectDelay: live.DefaultDelay}
	}

	m := appModel{
		client:     deps.Client,
		db:         deps.DB,
		cfg:        cfg,
		log:        log,
		hub:        newHub(),
		bus:        signals.NewBus(),
		notes:      notify.New(deps.Client.Notifications),
		now:        time.Now,
		view:       viewLogin,
		messages:   keyset.NewList(live.MessageKey),
		keys:       defaultKeyMap(),
		help:       help.New(),
		chatScroll: viewport.New(80, 10),
	}
	m.month = m.now()
	m.loginUser = newInput("username", false)
	m.loginPass = newInput("password", true)
	m.loginUser.Focus()
	m.composer = newInput("message", false)
	m.textarea = textarea.New()
	m.textarea.Placeholder = "Write a comment…"
	m.board = mutate.NewBoard(nil, deps.Client.Tasks, m.bus)

	if deps.Client.Session().LoggedIn() {
		m.view = viewDashboard
		if m.db != nil {
			if st, err := m.db.LoadTUIState(context.Background()); err == nil {
				m.applyState(st)
			}
		}
	}
	return m
}

func newInput(placeholder string, secret bool) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = ""
	in.CharLimit = 2000
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return in
}

func (m appModel) Init() tea.Cmd {
	if m.view == viewLogin {
		return textinput.Blink
	}
	return m.enterSession()
}

func (m appModel) me() *model.User {
	return m.client.Session().User()
}

func (m appModel) meID() int {
	if u := m.me(); u != nil {
		return u.ID
	}
	return 0
}

func (m *appModel) applyState(st *store.TUIState) {
	if st == nil {
		return
	}
	m.view = viewFromString(st.View)
	if m.view == viewUsers && !perm.CanManageUsers(m.me()) {
		m.view = viewDashboard
	}
	m.taskMode = parseTaskMode(st.TaskMode)
	m.mineOnly = st.MineOnly
	m.channelID = st.ChannelID
}

func (m appModel) saveState() {
	if m.db == nil || m.view == viewLogin {
		return
	}
	st := &store.TUIState{
		View:      viewToString(m.view),
		TaskMode:  m.taskMode.String(),
		MineOnly:  m.mineOnly,
		ChannelID: m.channelID,
	}
	if err := m.db.SaveTUIState(context.Background(), st); err != nil {
		m.log.Debug("save tui state", zap.Error(err))
	}
}
