// Package gmail implements the Gmail API mail provider driver.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
)

const gmailUserID = "me"

// folderQueries maps canonical folder names to Gmail search scopes.
var folderQueries = map[string]string{
	provider.FolderInbox: "in:inbox",
	provider.FolderSent:  "in:sent",
	provider.FolderDraft: "in:draft",
	provider.FolderTrash: "in:trash",
}

// Driver implements provider.Provider over the Gmail REST API. Responses
// are normalized to the model types at this boundary; Gmail-specific
// shapes never leak out.
type Driver struct {
	cfg     *oauth2.Config
	token   *oauth2.Token
	account model.Sender
}

// NewDriver creates a Gmail driver for the given OAuth client and token.
func NewDriver(cfg *oauth2.Config, token *oauth2.Token, account model.Sender) *Driver {
	return &Driver{cfg: cfg, token: token, account: account}
}

// Type returns the driver type identifier.
func (d *Driver) Type() provider.DriverType {
	return provider.DriverGmail
}

// ValidateConnection verifies the token by fetching the profile.
func (d *Driver) ValidateConnection(ctx context.Context) (string, error) {
	svc, err := d.newSvc(ctx)
	if err != nil {
		return "", err
	}

	profile, err := svc.Users.GetProfile(gmailUserID).Context(ctx).Do()
	if err != nil {
		return "", d.wrapErr("users.GetProfile", err)
	}

	return fmt.Sprintf("connected as %s", profile.EmailAddress), nil
}

// ListThreads retrieves one page of thread summaries from a folder.
func (d *Driver) ListThreads(
	ctx context.Context,
	folder, query string,
	maxResults int64,
	pageToken string,
) (*model.ThreadPage, error) {
	svc, err := d.newSvc(ctx)
	if err != nil {
		return nil, err
	}

	q := folderQueries[folder]
	if q == "" {
		return nil, fmt.Errorf("unknown folder %q", folder)
	}
	if query != "" {
		q += " " + query
	}

	call := svc.Users.Threads.List(gmailUserID).
		Q(q).
		MaxResults(maxResults).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	result, err := call.Do()
	if err != nil {
		return nil, d.wrapErr("threads.List", err)
	}

	page := &model.ThreadPage{NextPageToken: result.NextPageToken}
	for _, t := range result.Threads {
		page.Threads = append(page.Threads, model.ThreadSummary{ID: t.Id})
	}

	return page, nil
}

// GetThread retrieves a thread's messages with address headers only.
func (d *Driver) GetThread(ctx context.Context, id string) (*model.Thread, error) {
	svc, err := d.newSvc(ctx)
	if err != nil {
		return nil, err
	}

	t, err := svc.Users.Threads.Get(gmailUserID, id).
		Format("metadata").
		MetadataHeaders("From", "To", "Cc", "Bcc", "Date").
		Context(ctx).
		Do()
	if err != nil {
		return nil, d.wrapErr("threads.Get", err)
	}

	thread := &model.Thread{ID: t.Id}
	for _, m := range t.Messages {
		thread.Messages = append(thread.Messages, normalizeMessage(m))
	}

	return thread, nil
}

// ListAliases returns the account's send-as identities.
func (d *Driver) ListAliases(ctx context.Context) ([]model.Alias, error) {
	svc, err := d.newSvc(ctx)
	if err != nil {
		return nil, err
	}

	result, err := svc.Users.Settings.SendAs.List(gmailUserID).Context(ctx).Do()
	if err != nil {
		return nil, d.wrapErr("settings.SendAs.List", err)
	}

	aliases := make([]model.Alias, 0, len(result.SendAs))
	for _, sa := range result.SendAs {
		aliases = append(aliases, model.Alias{
			Email:   sa.SendAsEmail,
			Name:    sa.DisplayName,
			Primary: sa.IsPrimary,
		})
	}

	return aliases, nil
}

// Send submits the message through the Gmail API.
func (d *Driver) Send(ctx context.Context, msg *model.OutgoingMessage) error {
	svc, err := d.newSvc(ctx)
	if err != nil {
		return err
	}

	raw, err := provider.EncodeMessage(d.account, msg)
	if err != nil {
		return err
	}

	gm := &gmailapi.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}
	if _, err := svc.Users.Messages.Send(gmailUserID, gm).Context(ctx).Do(); err != nil {
		return d.wrapErr("messages.Send", err)
	}

	return nil
}

// newSvc builds a Gmail service bound to the driver's token.
func (d *Driver) newSvc(ctx context.Context) (*gmailapi.Service, error) {
	clt := d.cfg.Client(ctx, d.token)

	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(clt))
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}

// wrapErr converts Gmail API errors, surfacing 401s as auth errors.
func (d *Driver) wrapErr(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 401 {
		return &provider.AuthError{
			Driver:  provider.DriverGmail,
			Message: fmt.Sprintf("%s: token rejected for %s", op, d.account.Email),
		}
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// normalizeMessage maps a Gmail metadata message to the model shape.
func normalizeMessage(m *gmailapi.Message) model.Message {
	msg := model.Message{
		Date: time.UnixMilli(m.InternalDate),
	}
	if m.Payload == nil {
		return msg
	}

	for _, h := range m.Payload.Headers {
		switch h.Name {
		case "From":
			if senders := parseAddresses(h.Value); len(senders) > 0 {
				msg.Sender = senders[0]
			}
		case "To":
			msg.To = parseAddresses(h.Value)
		case "Cc":
			msg.Cc = parseAddresses(h.Value)
		case "Bcc":
			msg.Bcc = parseAddresses(h.Value)
		}
	}

	return msg
}

// parseAddresses parses an address header value, dropping anything that
// does not parse rather than failing the message.
func parseAddresses(value string) []model.Sender {
	if value == "" {
		return nil
	}

	addrs, err := mail.ParseAddressList(value)
	if err != nil {
		return nil
	}

	senders := make([]model.Sender, 0, len(addrs))
	for _, a := range addrs {
		senders = append(senders, model.Sender{Email: a.Address, Name: a.Name})
	}
	return senders
}
