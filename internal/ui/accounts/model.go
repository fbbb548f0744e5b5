// Package accounts implements the account management view: listing,
// adding, editing, and deleting mailbox accounts, with a connection test
// before a new account is persisted.
package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/nhle/webmail/internal/credential"
	"github.com/nhle/webmail/internal/keys"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
	"github.com/nhle/webmail/internal/provider/factory"
	"github.com/nhle/webmail/internal/theme"
)

// Mode represents the current state of the accounts view.
type Mode int

const (
	ModeList           Mode = iota // List configured accounts
	ModeSelectType                 // Select account type to add
	ModeFormGmail                  // Gmail-specific form
	ModeFormIMAP                   // IMAP-specific form
	ModeValidating                 // Testing connection
	ModeValidateResult             // Show validation result
	ModeConfirmDelete              // Confirm account deletion
)

// DoneMsg signals the accounts view should close.
type DoneMsg struct{}

// AccountSavedMsg signals an account was saved successfully.
type AccountSavedMsg struct {
	Account model.AccountConfig
}

// AccountDeletedMsg signals an account was deleted.
type AccountDeletedMsg struct {
	ID string
}

// ValidateResultMsg carries the result of a connection validation attempt.
type ValidateResultMsg struct {
	Name string
	Err  error
}

// accountSavedInternalMsg is sent after an account is persisted.
type accountSavedInternalMsg struct {
	account model.AccountConfig
	err     error
}

// accountDeletedInternalMsg is sent after an account is removed.
type accountDeletedInternalMsg struct {
	id  string
	err error
}

// Model is the Bubble Tea model for the account management UI.
type Model struct {
	mode        Mode
	cfg         *model.AppConfig
	configPath  string
	selectedIdx int
	editing     *model.AccountConfig

	gmailForm  *huh.Form
	imapForm   *huh.Form
	typeSelect *huh.Form

	// Form field values (huh binds to these)
	formName        string
	formEmail       string
	formDisplayName string

	formClientID     string
	formClientSecret string
	formRefreshToken string

	formIMAPHost string
	formIMAPPort string
	formSMTPHost string
	formSMTPPort string
	formUsername string
	formPassword string
	formTLS      bool

	selectedType string

	validating bool
	validName  string
	validError error
	spinner    spinner.Model

	confirmDelete *huh.Form
	deleteConfirm bool

	statusMsg string

	keys          *keys.KeyMap
	width, height int
}

// New creates an account management view backed by the given config file.
func New(cfg *model.AppConfig, configPath string, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:       ModeList,
		cfg:        cfg,
		configPath: configPath,
		keys:       k,
		spinner:    sp,
		width:      width,
		height:     height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case accountSavedInternalMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving account: %v", msg.err)
			m.mode = ModeList
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Account %q saved", msg.account.Name)
		m.mode = ModeList
		return m, func() tea.Msg { return AccountSavedMsg{Account: msg.account} }

	case accountDeletedInternalMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error deleting account: %v", msg.err)
			m.mode = ModeList
			return m, nil
		}
		m.statusMsg = "Account deleted"
		m.mode = ModeList
		if m.selectedIdx >= len(m.cfg.Accounts) && m.selectedIdx > 0 {
			m.selectedIdx--
		}
		return m, func() tea.Msg { return AccountDeletedMsg{ID: msg.id} }

	case ValidateResultMsg:
		m.validating = false
		m.validName = msg.Name
		m.validError = msg.Err
		m.mode = ModeValidateResult
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m.updateActiveForm(msg)
}

// handleKeyMsg processes key messages based on the current mode.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeList:
		return m.handleListKeys(msg)
	case ModeSelectType:
		return m.updateTypeSelect(msg)
	case ModeFormGmail:
		return m.updateGmailForm(msg)
	case ModeFormIMAP:
		return m.updateIMAPForm(msg)
	case ModeValidateResult:
		return m.handleValidateResultKeys(msg)
	case ModeConfirmDelete:
		return m.updateConfirmDelete(msg)
	case ModeValidating:
		if msg.String() == "esc" {
			m.mode = ModeList
			m.validating = false
			return m, nil
		}
		return m, nil
	}
	return m, nil
}

// handleListKeys processes key events in the account list mode.
func (m Model) handleListKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return DoneMsg{} }

	case msg.String() == "a":
		m.editing = nil
		m.mode = ModeSelectType
		m.selectedType = ""
		m.typeSelect = m.buildTypeSelectForm()
		return m, m.typeSelect.Init()

	case msg.String() == "e":
		if len(m.cfg.Accounts) == 0 {
			return m, nil
		}
		acct := m.cfg.Accounts[m.selectedIdx]
		m.editing = &acct
		return m, m.startEditForm(acct)

	case msg.String() == "d":
		if len(m.cfg.Accounts) == 0 {
			return m, nil
		}
		m.deleteConfirm = false
		m.confirmDelete = m.buildDeleteConfirmForm()
		m.mode = ModeConfirmDelete
		return m, m.confirmDelete.Init()

	case msg.String() == "enter":
		if len(m.cfg.Accounts) == 0 {
			return m, nil
		}
		acct := m.cfg.Accounts[m.selectedIdx]
		m.mode = ModeValidating
		m.validating = true
		return m, tea.Batch(
			m.spinner.Tick,
			validateAccount(acct),
		)

	case key.Matches(msg, m.keys.Down):
		if len(m.cfg.Accounts) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.cfg.Accounts)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.cfg.Accounts) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.cfg.Accounts) - 1
			}
		}
		return m, nil
	}

	return m, nil
}

// handleValidateResultKeys processes key events on the validation result screen.
func (m Model) handleValidateResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.mode = ModeList
		m.validName = ""
		m.validError = nil
		return m, nil
	case "r":
		if m.validError != nil && len(m.cfg.Accounts) > 0 {
			acct := m.cfg.Accounts[m.selectedIdx]
			m.mode = ModeValidating
			m.validating = true
			return m, tea.Batch(
				m.spinner.Tick,
				validateAccount(acct),
			)
		}
		return m, nil
	}
	return m, nil
}

// updateActiveForm dispatches non-key messages to the currently active form.
func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeSelectType:
		return m.updateTypeSelect(msg)
	case ModeFormGmail:
		return m.updateGmailForm(msg)
	case ModeFormIMAP:
		return m.updateIMAPForm(msg)
	case ModeConfirmDelete:
		return m.updateConfirmDelete(msg)
	}
	return m, nil
}

// --- Type Selection ---

func (m Model) buildTypeSelectForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Account Type").
				Description("Choose the type of mailbox to add").
				Options(
					huh.NewOption("Gmail - Google mail via the Gmail API", "gmail"),
					huh.NewOption("IMAP - Standard IMAP/SMTP mailbox", "imap"),
				).
				Value(&m.selectedType),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateTypeSelect(msg tea.Msg) (Model, tea.Cmd) {
	if m.typeSelect == nil {
		return m, nil
	}

	mdl, cmd := m.typeSelect.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.typeSelect = f
	}

	if m.typeSelect.State == huh.StateCompleted {
		return m.handleTypeSelected()
	}
	if m.typeSelect.State == huh.StateAborted {
		m.mode = ModeList
		return m, nil
	}

	return m, cmd
}

func (m Model) handleTypeSelected() (Model, tea.Cmd) {
	m.resetFormFields()

	switch m.selectedType {
	case "gmail":
		m.mode = ModeFormGmail
		m.gmailForm = m.buildGmailForm()
		return m, m.gmailForm.Init()
	case "imap":
		m.mode = ModeFormIMAP
		m.imapForm = m.buildIMAPForm()
		return m, m.imapForm.Init()
	default:
		m.mode = ModeList
		return m, nil
	}
}

// --- Gmail Form ---

func (m *Model) buildGmailForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("A label for this account").
				Placeholder("Personal Gmail").
				Value(&m.formName).
				Validate(validateRequired("Name")),
			huh.NewInput().
				Title("Email").
				Description("The mailbox address").
				Placeholder("you@gmail.com").
				Value(&m.formEmail).
				Validate(validateRequired("Email")),
			huh.NewInput().
				Title("Display Name").
				Description("Sender name used when composing").
				Placeholder("Your Name").
				Value(&m.formDisplayName),
			huh.NewInput().
				Title("OAuth Client ID").
				Description("Google Cloud OAuth client ID").
				Value(&m.formClientID).
				Validate(validateRequired("Client ID")),
			huh.NewInput().
				Title("OAuth Client Secret").
				Description("Google Cloud OAuth client secret").
				EchoMode(huh.EchoModePassword).
				Value(&m.formClientSecret).
				Validate(validateRequired("Client Secret")),
			huh.NewInput().
				Title("Refresh Token").
				Description("OAuth refresh token for this mailbox").
				EchoMode(huh.EchoModePassword).
				Value(&m.formRefreshToken).
				Validate(validateRequired("Refresh Token")),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateGmailForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.gmailForm == nil {
		return m, nil
	}

	mdl, cmd := m.gmailForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.gmailForm = f
	}

	if m.gmailForm.State == huh.StateCompleted {
		return m.saveGmailAccount()
	}
	if m.gmailForm.State == huh.StateAborted {
		m.mode = ModeList
		return m, nil
	}

	return m, cmd
}

func (m Model) saveGmailAccount() (Model, tea.Cmd) {
	acct := m.buildAccountConfig("gmail")
	acct.Config["client_id"] = m.formClientID

	if err := credential.Set(
		fmt.Sprintf(factory.GmailSecretKey, acct.ID), m.formClientSecret,
	); err != nil {
		m.statusMsg = fmt.Sprintf("Error saving credential: %v", err)
		m.mode = ModeList
		return m, nil
	}
	if err := credential.Set(
		fmt.Sprintf(factory.GmailTokenKey, acct.ID), m.formRefreshToken,
	); err != nil {
		m.statusMsg = fmt.Sprintf("Error saving credential: %v", err)
		m.mode = ModeList
		return m, nil
	}

	m.mode = ModeValidating
	m.validating = true
	return m, tea.Batch(
		m.spinner.Tick,
		m.validateAndSave(acct),
	)
}

// --- IMAP Form ---

func (m *Model) buildIMAPForm() *huh.Form {
	m.formTLS = true // Default TLS on

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("A label for this account").
				Placeholder("Work Email").
				Value(&m.formName).
				Validate(validateRequired("Name")),
			huh.NewInput().
				Title("Email").
				Description("The mailbox address").
				Placeholder("user@example.com").
				Value(&m.formEmail).
				Validate(validateRequired("Email")),
			huh.NewInput().
				Title("Display Name").
				Description("Sender name used when composing").
				Placeholder("Your Name").
				Value(&m.formDisplayName),
			huh.NewInput().
				Title("IMAP Host").
				Description("IMAP server hostname").
				Placeholder("imap.example.com").
				Value(&m.formIMAPHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Description("IMAP server port (e.g., 993)").
				Placeholder("993").
				Value(&m.formIMAPPort).
				Validate(validatePort),
			huh.NewInput().
				Title("SMTP Host").
				Description("SMTP server hostname").
				Placeholder("smtp.example.com").
				Value(&m.formSMTPHost).
				Validate(validateRequired("SMTP Host")),
			huh.NewInput().
				Title("SMTP Port").
				Description("SMTP server port (e.g., 587)").
				Placeholder("587").
				Value(&m.formSMTPPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Description("Mail account username").
				Placeholder("user@example.com").
				Value(&m.formUsername).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Mail account password or app password").
				EchoMode(huh.EchoModePassword).
				Value(&m.formPassword).
				Validate(validateRequired("Password")),
			huh.NewConfirm().
				Title("Use TLS").
				Description("Enable TLS encryption for connections").
				Affirmative("Yes").
				Negative("No").
				Value(&m.formTLS),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateIMAPForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.imapForm == nil {
		return m, nil
	}

	mdl, cmd := m.imapForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.imapForm = f
	}

	if m.imapForm.State == huh.StateCompleted {
		return m.saveIMAPAccount()
	}
	if m.imapForm.State == huh.StateAborted {
		m.mode = ModeList
		return m, nil
	}

	return m, cmd
}

func (m Model) saveIMAPAccount() (Model, tea.Cmd) {
	acct := m.buildAccountConfig("imap")
	acct.Config["imap_host"] = m.formIMAPHost
	acct.Config["imap_port"] = m.formIMAPPort
	acct.Config["smtp_host"] = m.formSMTPHost
	acct.Config["smtp_port"] = m.formSMTPPort
	acct.Config["username"] = m.formUsername
	acct.Config["tls"] = fmt.Sprintf("%t", m.formTLS)

	if err := credential.Set(
		fmt.Sprintf(factory.IMAPPasswordKey, acct.ID), m.formPassword,
	); err != nil {
		m.statusMsg = fmt.Sprintf("Error saving credential: %v", err)
		m.mode = ModeList
		return m, nil
	}

	m.mode = ModeValidating
	m.validating = true
	return m, tea.Batch(
		m.spinner.Tick,
		m.validateAndSave(acct),
	)
}

// --- Delete Confirmation ---

func (m *Model) buildDeleteConfirmForm() *huh.Form {
	accountName := ""
	if m.selectedIdx < len(m.cfg.Accounts) {
		accountName = m.cfg.Accounts[m.selectedIdx].Name
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete account %q?", accountName)).
				Description(
					"This removes the account configuration and its " +
						"stored credentials.",
				).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.deleteConfirm),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateConfirmDelete(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmDelete == nil {
		return m, nil
	}

	mdl, cmd := m.confirmDelete.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmDelete = f
	}

	if m.confirmDelete.State == huh.StateCompleted {
		if m.deleteConfirm {
			acct := m.cfg.Accounts[m.selectedIdx]
			return m, m.deleteAccount(acct)
		}
		m.mode = ModeList
		return m, nil
	}
	if m.confirmDelete.State == huh.StateAborted {
		m.mode = ModeList
		return m, nil
	}

	return m, cmd
}

// --- View ---

// View renders the accounts UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeList:
		return m.viewList()
	case ModeSelectType:
		return m.viewForm(m.typeSelect)
	case ModeFormGmail:
		return m.viewForm(m.gmailForm)
	case ModeFormIMAP:
		return m.viewForm(m.imapForm)
	case ModeValidating:
		return m.viewValidating()
	case ModeValidateResult:
		return m.viewValidateResult()
	case ModeConfirmDelete:
		return m.viewForm(m.confirmDelete)
	default:
		return ""
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	b.WriteString(titleStyle.Render("Accounts"))
	b.WriteString("\n\n")

	if len(m.cfg.Accounts) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true)
		b.WriteString(emptyStyle.Render(
			"No accounts configured.\nPress 'a' to add a new account.",
		))
	} else {
		for i, acct := range m.cfg.Accounts {
			b.WriteString(m.renderAccountItem(i, acct))
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		statusStyle := lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Italic(true)
		b.WriteString(statusStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	hintStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	b.WriteString(hintStyle.Render(
		"a add | e edit | d delete | enter test | esc back",
	))

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(b.String())
}

func (m Model) renderAccountItem(idx int, acct model.AccountConfig) string {
	icon := accountTypeIcon(acct.Type)

	name := acct.Name
	if name == "" {
		name = "(unnamed)"
	}

	line := fmt.Sprintf("%s  %s  <%s>  [%s]", icon, name, acct.Email, acct.Type)

	if idx == m.selectedIdx {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(f.View())
}

func (m Model) viewValidating() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	content := fmt.Sprintf(
		"%s Testing connection...\n\nPress esc to cancel.",
		m.spinner.View(),
	)

	return style.Render(content)
}

func (m Model) viewValidateResult() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	var content string
	if m.validError != nil {
		errStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed)
		content = errStyle.Render("Connection failed") + "\n\n" +
			m.validError.Error() + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorGray).
				Render("r retry | enter/esc back")
	} else {
		okStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorGreen)
		displayName := m.validName
		if displayName == "" {
			displayName = "OK"
		}
		content = okStyle.Render("Connection successful") + "\n\n" +
			fmt.Sprintf("Authenticated as: %s", displayName) + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorGray).
				Render("enter/esc back")
	}

	return style.Render(content)
}

// --- Helpers ---

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m *Model) resetFormFields() {
	m.formName = ""
	m.formEmail = ""
	m.formDisplayName = ""
	m.formClientID = ""
	m.formClientSecret = ""
	m.formRefreshToken = ""
	m.formIMAPHost = ""
	m.formIMAPPort = ""
	m.formSMTPHost = ""
	m.formSMTPPort = ""
	m.formUsername = ""
	m.formPassword = ""
	m.formTLS = true
}

func (m Model) startEditForm(acct model.AccountConfig) tea.Cmd {
	m.formName = acct.Name
	m.formEmail = acct.Email
	m.formDisplayName = acct.DisplayName
	// Never pre-fill credentials
	m.formClientSecret = ""
	m.formRefreshToken = ""
	m.formPassword = ""

	if acct.Config != nil {
		m.formClientID = acct.Config["client_id"]
		m.formIMAPHost = acct.Config["imap_host"]
		m.formIMAPPort = acct.Config["imap_port"]
		m.formSMTPHost = acct.Config["smtp_host"]
		m.formSMTPPort = acct.Config["smtp_port"]
		m.formUsername = acct.Config["username"]
		m.formTLS = acct.Config["tls"] != "false"
	}

	switch acct.Type {
	case "gmail":
		m.mode = ModeFormGmail
		m.gmailForm = m.buildGmailForm()
		return m.gmailForm.Init()
	case "imap":
		m.mode = ModeFormIMAP
		m.imapForm = m.buildIMAPForm()
		return m.imapForm.Init()
	default:
		return nil
	}
}

func (m Model) buildAccountConfig(accountType string) model.AccountConfig {
	acct := model.AccountConfig{
		Type:        accountType,
		Name:        m.formName,
		Email:       m.formEmail,
		DisplayName: m.formDisplayName,
		Config:      make(map[string]string),
	}

	if m.editing != nil {
		acct.ID = m.editing.ID
	} else {
		acct.ID = uuid.New().String()
	}

	return acct
}

// saveAccount persists the account into the config file.
func (m *Model) saveAccount(acct model.AccountConfig) error {
	replaced := false
	for i, existing := range m.cfg.Accounts {
		if existing.ID == acct.ID {
			m.cfg.Accounts[i] = acct
			replaced = true
			break
		}
	}
	if !replaced {
		m.cfg.Accounts = append(m.cfg.Accounts, acct)
	}
	return model.SaveConfig(m.configPath, m.cfg)
}

// deleteAccount returns a command that removes an account and its
// credentials.
func (m Model) deleteAccount(acct model.AccountConfig) tea.Cmd {
	cfg := m.cfg
	path := m.configPath
	return func() tea.Msg {
		// Best-effort credential cleanup
		_ = credential.Delete(fmt.Sprintf(factory.GmailSecretKey, acct.ID))
		_ = credential.Delete(fmt.Sprintf(factory.GmailTokenKey, acct.ID))
		_ = credential.Delete(fmt.Sprintf(factory.IMAPPasswordKey, acct.ID))

		kept := cfg.Accounts[:0]
		for _, existing := range cfg.Accounts {
			if existing.ID != acct.ID {
				kept = append(kept, existing)
			}
		}
		cfg.Accounts = kept

		err := model.SaveConfig(path, cfg)
		return accountDeletedInternalMsg{id: acct.ID, err: err}
	}
}

// validateAccount tests the connection for an existing account.
func validateAccount(acct model.AccountConfig) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		p, err := factory.New(acct)
		if err != nil {
			return ValidateResultMsg{Err: err}
		}

		name, err := p.ValidateConnection(ctx)
		return ValidateResultMsg{Name: name, Err: err}
	}
}

// validateAndSave validates the connection then saves the account if
// successful.
func (m Model) validateAndSave(acct model.AccountConfig) tea.Cmd {
	save := m.saveAccount
	return func() tea.Msg {
		ctx := context.Background()

		p, err := factory.New(acct)
		if err != nil {
			return ValidateResultMsg{Err: err}
		}

		name, err := p.ValidateConnection(ctx)
		if err != nil {
			return ValidateResultMsg{Name: name, Err: err}
		}

		// Validation passed; persist the account
		if saveErr := save(acct); saveErr != nil {
			return ValidateResultMsg{
				Name: name,
				Err:  fmt.Errorf("connection OK but save failed: %w", saveErr),
			}
		}

		return accountSavedInternalMsg{account: acct, err: nil}
	}
}

// accountTypeIcon returns a text icon for an account type.
func accountTypeIcon(accountType string) string {
	switch accountType {
	case string(provider.DriverGmail):
		return "[G]"
	case string(provider.DriverIMAP):
		return "[I]"
	default:
		return "[?]"
	}
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return fmt.Errorf("port must be a number")
		}
	}
	return nil
}
