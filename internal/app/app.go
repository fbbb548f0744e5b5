package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/webmail/internal/contacts"
	"github.com/nhle/webmail/internal/keys"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
	"github.com/nhle/webmail/internal/provider/factory"
	"github.com/nhle/webmail/internal/store"
	"github.com/nhle/webmail/internal/theme"
	"github.com/nhle/webmail/internal/ui"
	accountsview "github.com/nhle/webmail/internal/ui/accounts"
	composeview "github.com/nhle/webmail/internal/ui/compose"
	helpview "github.com/nhle/webmail/internal/ui/help"
)

// sendTimeout bounds a single message submission.
const sendTimeout = time.Minute

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewHome ViewState = iota
	ViewCompose
	ViewAccounts
	ViewHelp
)

// messageSentMsg carries the outcome of a send attempt.
type messageSentMsg struct {
	err error
}

// Model is the root Bubble Tea model that manages view routing, layout,
// and the per-account suggestion service.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	cfg          *model.AppConfig
	configPath   string
	store        store.Store
	keys         *keys.KeyMap
	log          *slog.Logger

	// Active account wiring; nil until an account is connected.
	account   model.AccountConfig
	svc       *contacts.Service
	scheduler *contacts.Scheduler

	composeView  composeview.Model
	accountsView accountsview.Model
	helpView     helpview.Model

	ready            bool
	statusMsg        string
	authErrorMessage string
	contactCount     int
}

// New creates the root application model. The first configured account is
// connected immediately; with no accounts, the first run opens account
// setup.
func New(
	cfg *model.AppConfig,
	configPath string,
	st store.Store,
	log *slog.Logger,
) Model {
	if log == nil {
		log = slog.Default()
	}
	k := keys.DefaultKeyMap()

	m := Model{
		currentView:  ViewHome,
		cfg:          cfg,
		configPath:   configPath,
		store:        st,
		keys:         k,
		log:          log,
		accountsView: accountsview.New(cfg, configPath, k, 80, 24),
		helpView:     helpview.New(k, 80, 24),
	}

	if len(cfg.Accounts) > 0 {
		if err := m.connectAccount(cfg.Accounts[0]); err != nil {
			log.Warn("connecting account failed",
				"account", cfg.Accounts[0].ID, "error", err)
			m.statusMsg = fmt.Sprintf("Account unavailable: %v", err)
		}
	} else {
		m.currentView = ViewAccounts
	}

	return m
}

// connectAccount builds the provider, indexer, and suggestion service for
// one account and rebuilds the compose view on top of them.
func (m *Model) connectAccount(acct model.AccountConfig) error {
	p, err := factory.New(acct)
	if err != nil {
		return err
	}

	if m.scheduler != nil {
		m.scheduler.Stop()
	}

	indexer := contacts.NewIndexer(acct.ID, p, m.store, m.log)
	scheduler := contacts.NewScheduler(indexer, m.log)
	identity := contacts.Identity{Email: acct.Email, Name: acct.DisplayName}
	resolver := contacts.NewResolver(p, identity, m.log)
	svc := contacts.NewService(acct.ID, m.store, p, resolver, scheduler, m.log)

	m.account = acct
	m.svc = svc
	m.scheduler = scheduler

	debounce := time.Duration(m.cfg.Suggest.DebounceMs) * time.Millisecond
	m.composeView = composeview.New(
		svc.SuggestRecipients, debounce, m.cfg.Suggest.Limit, 80, 24,
	)

	return nil
}

// Init starts the background indexer, or opens account setup on a fresh
// install.
func (m Model) Init() tea.Cmd {
	if m.svc == nil {
		return m.accountsView.Init()
	}
	startCmd := m.scheduler.Start()
	m.scheduler.Trigger()
	return startCmd
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.composeView.SetSize(contentWidth, contentHeight)
		m.accountsView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case contacts.IndexResultMsg:
		if msg.Err != nil {
			if provider.IsAuthError(msg.Err) {
				m.authErrorMessage = msg.Err.Error()
			}
			m.statusMsg = fmt.Sprintf("Indexing failed: %v", msg.Err)
		} else {
			m.authErrorMessage = ""
			m.contactCount = msg.Contacts
			m.statusMsg = fmt.Sprintf("Indexed %d contacts", msg.Contacts)
		}
		return m, m.scheduler.WaitForNextResult()

	case composeview.SendRequestedMsg:
		return m, m.sendMessage(msg.Message)

	case messageSentMsg:
		if msg.err != nil {
			if provider.IsAuthError(msg.err) {
				m.authErrorMessage = msg.err.Error()
			}
			m.composeView.SetError(fmt.Sprintf("Send failed: %v", msg.err))
			return m, nil
		}
		m.currentView = ViewHome
		m.statusMsg = "Message sent"
		return m, m.composeView.Reset()

	case composeview.CancelMsg:
		m.currentView = ViewHome
		return m, nil

	case accountsview.AccountSavedMsg:
		if err := m.connectAccount(msg.Account); err != nil {
			m.statusMsg = fmt.Sprintf("Account unavailable: %v", err)
			return m, nil
		}
		startCmd := m.scheduler.Start()
		m.scheduler.Trigger()
		return m, startCmd

	case accountsview.AccountDeletedMsg:
		if msg.ID == m.account.ID {
			if m.scheduler != nil {
				m.scheduler.Stop()
			}
			m.svc = nil
			m.scheduler = nil
			m.account = model.AccountConfig{}
		}
		return m, nil

	case accountsview.DoneMsg:
		m.currentView = ViewHome
		return m, nil

	case tea.KeyMsg:
		// Global keys that work regardless of current view
		switch msg.String() {
		case "ctrl+c":
			if m.scheduler != nil {
				m.scheduler.Stop()
			}
			return m, tea.Quit

		case "q":
			if m.currentView == ViewHome {
				if m.scheduler != nil {
					m.scheduler.Stop()
				}
				return m, tea.Quit
			}

		case "?":
			// Do not intercept while a text field has focus
			if m.currentView == ViewCompose || m.currentView == ViewAccounts {
				break
			}
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case "c":
			if m.currentView == ViewHome {
				if m.svc == nil {
					m.statusMsg = "Add an account first (press 'a')"
					return m, nil
				}
				m.previousView = m.currentView
				m.currentView = ViewCompose
				return m, tea.Batch(m.composeView.Reset(), m.composeView.Init())
			}

		case "a":
			if m.currentView == ViewHome {
				m.previousView = m.currentView
				m.currentView = ViewAccounts
				return m, m.accountsView.Init()
			}

		case "r":
			if m.currentView == ViewHome && m.scheduler != nil {
				m.scheduler.Trigger()
				m.statusMsg = "Reindex requested"
				return m, nil
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewCompose:
		m.composeView, cmd = m.composeView.Update(msg)
	case ViewAccounts:
		m.accountsView, cmd = m.accountsView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// sendMessage submits a composition through the suggestion service so the
// chosen recipients feed back into the contact store.
func (m Model) sendMessage(msg *model.OutgoingMessage) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return messageSentMsg{err: svc.Send(ctx, msg)}
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	headerTitle := "Webmail"
	if m.account.Email != "" {
		headerTitle = fmt.Sprintf("Webmail: %s", m.account.Email)
	}
	header := m.layout.RenderHeader(headerTitle, m.indexStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewCompose:
		return m.composeView.View()
	case ViewAccounts:
		return m.accountsView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return m.renderHome()
	}
}

// renderHome shows the account summary and contact index status.
func (m Model) renderHome() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var body string
	if m.svc == nil {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No account connected.\nPress 'a' to add one.")
	} else {
		body = fmt.Sprintf(
			"Account:  %s <%s>\nContacts: %d indexed\nIndexer:  %s",
			m.account.Name, m.account.Email,
			m.contactCount, m.indexStatus(),
		)
	}

	if m.statusMsg != "" {
		body += "\n\n" + theme.HelpStyle.Render(m.statusMsg)
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render("Mailbox"),
		body,
	)

	return theme.DetailPanelStyle.
		Width(m.layout.ContentWidth() - 4).
		Render(content)
}

// indexStatus returns a short string describing the indexer state.
func (m Model) indexStatus() string {
	if m.scheduler == nil {
		return "no account"
	}
	switch m.scheduler.State() {
	case contacts.IndexRunning:
		return "indexing"
	case contacts.IndexError:
		return "index error"
	default:
		return "idle"
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	// Show auth error prominently when present.
	if m.authErrorMessage != "" && m.currentView == ViewHome {
		return m.authErrorMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCompose:
		return "tab next field | ctrl+s send | esc cancel"
	case ViewAccounts:
		return "a add | e edit | d delete | enter test | esc back"
	default:
		return "q quit | c compose | a accounts | r reindex | ? help"
	}
}
