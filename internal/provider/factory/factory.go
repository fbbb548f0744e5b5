// Package factory constructs provider drivers from account configuration,
// pulling secrets out of the system keyring.
package factory

import (
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/nhle/webmail/internal/credential"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
	"github.com/nhle/webmail/internal/provider/gmail"
	"github.com/nhle/webmail/internal/provider/imap"
)

// Keyring key patterns. Secrets are never kept in the config file, only
// references to these keys.
const (
	GmailSecretKey  = "gmail-secret-%s"
	GmailTokenKey   = "gmail-token-%s"
	IMAPPasswordKey = "imap-%s"
)

// New builds the provider driver for an account.
func New(account model.AccountConfig) (provider.Provider, error) {
	switch account.Type {
	case string(provider.DriverGmail):
		return newGmail(account)
	case string(provider.DriverIMAP):
		return newIMAP(account)
	default:
		return nil, fmt.Errorf("unknown account type %q", account.Type)
	}
}

func newGmail(account model.AccountConfig) (provider.Provider, error) {
	clientID := account.Config["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("account %s: missing client_id", account.ID)
	}

	clientSecret, err := credential.Get(fmt.Sprintf(GmailSecretKey, account.ID))
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account.ID, err)
	}
	refreshToken, err := credential.Get(fmt.Sprintf(GmailTokenKey, account.ID))
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account.ID, err)
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			gmailapi.GmailReadonlyScope,
			gmailapi.GmailSendScope,
			gmailapi.GmailSettingsBasicScope,
		},
	}
	token := &oauth2.Token{RefreshToken: refreshToken}

	sender := model.Sender{Email: account.Email, Name: account.DisplayName}
	return gmail.NewDriver(cfg, token, sender), nil
}

func newIMAP(account model.AccountConfig) (provider.Provider, error) {
	for _, key := range []string{"imap_host", "imap_port", "smtp_host", "smtp_port", "username"} {
		if account.Config[key] == "" {
			return nil, fmt.Errorf("account %s: missing %s", account.ID, key)
		}
	}

	password, err := credential.Get(fmt.Sprintf(IMAPPasswordKey, account.ID))
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account.ID, err)
	}

	overrides := map[string]string{
		provider.FolderInbox: account.Config["mailbox_inbox"],
		provider.FolderSent:  account.Config["mailbox_sent"],
		provider.FolderDraft: account.Config["mailbox_draft"],
		provider.FolderTrash: account.Config["mailbox_trash"],
	}

	sender := model.Sender{Email: account.Email, Name: account.DisplayName}
	return imap.NewDriver(
		account.Config["imap_host"], account.Config["imap_port"],
		account.Config["smtp_host"], account.Config["smtp_port"],
		account.Config["username"], password,
		account.Config["tls"] != "false",
		sender,
		overrides,
	), nil
}
