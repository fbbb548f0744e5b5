// Package imap implements the IMAP/SMTP mail provider driver.
package imap

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	goimap "github.com/emersion/go-imap/v2"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
)

// defaultMailboxes maps canonical folder names to common mailbox names.
// Accounts can override these per folder in their configuration.
var defaultMailboxes = map[string]string{
	provider.FolderInbox: "INBOX",
	provider.FolderSent:  "Sent",
	provider.FolderDraft: "Drafts",
	provider.FolderTrash: "Trash",
}

// Driver implements provider.Provider over IMAP for reading and SMTP for
// sending. IMAP has no server-side conversation grouping, so each message
// stands in as a single-message thread; thread IDs carry the mailbox and
// UID so detail fetches can find their way back.
type Driver struct {
	imap      client
	smtp      smtpConfig
	account   model.Sender
	mailboxes map[string]string
}

// NewDriver creates an IMAP/SMTP driver.
func NewDriver(
	imapHost, imapPort string,
	smtpHost, smtpPort string,
	username, password string,
	useTLS bool,
	account model.Sender,
	mailboxOverrides map[string]string,
) *Driver {
	mailboxes := make(map[string]string, len(defaultMailboxes))
	for folder, name := range defaultMailboxes {
		mailboxes[folder] = name
	}
	for folder, name := range mailboxOverrides {
		if name != "" {
			mailboxes[folder] = name
		}
	}

	return &Driver{
		imap: client{
			host:     imapHost,
			port:     imapPort,
			username: username,
			password: password,
			tls:      useTLS,
		},
		smtp: smtpConfig{
			host:     smtpHost,
			port:     smtpPort,
			username: username,
			password: password,
			tls:      useTLS,
		},
		account:   account,
		mailboxes: mailboxes,
	}
}

// Type returns the driver type identifier.
func (d *Driver) Type() provider.DriverType {
	return provider.DriverIMAP
}

// ValidateConnection verifies IMAP credentials by connecting,
// authenticating, and selecting INBOX.
func (d *Driver) ValidateConnection(ctx context.Context) (string, error) {
	conn, err := d.imap.connect(ctx)
	if err != nil {
		return "", fmt.Errorf("validating IMAP connection: %w", err)
	}
	defer func() { _ = conn.Logout().Wait() }()

	if _, err := conn.Select("INBOX", nil).Wait(); err != nil {
		return "", fmt.Errorf("selecting INBOX: %w", err)
	}

	return fmt.Sprintf("connected as %s", d.imap.username), nil
}

// ListThreads lists a page of messages from the folder's mailbox, most
// recent first. The page token is a numeric offset into the UID list, so
// repeating a call with the same token re-reads the same slice.
func (d *Driver) ListThreads(
	ctx context.Context,
	folder, query string,
	maxResults int64,
	pageToken string,
) (*model.ThreadPage, error) {
	mailbox, ok := d.mailboxes[folder]
	if !ok {
		return nil, fmt.Errorf("unknown folder %q", folder)
	}

	offset := 0
	if pageToken != "" {
		var err error
		offset, err = strconv.Atoi(pageToken)
		if err != nil {
			return nil, fmt.Errorf("invalid page token %q: %w", pageToken, err)
		}
	}

	conn, err := d.imap.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Logout().Wait() }()

	if _, err := conn.Select(mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	criteria := &goimap.SearchCriteria{}
	if strings.TrimSpace(query) != "" {
		criteria.Text = []string{query}
	}

	searchData, err := conn.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", mailbox, err)
	}

	uids := searchData.AllUIDs()
	// Highest UID first, so page zero holds the most recent messages.
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })

	if offset >= len(uids) {
		return &model.ThreadPage{}, nil
	}

	end := offset + int(maxResults)
	next := ""
	if end < len(uids) {
		next = strconv.Itoa(end)
	} else {
		end = len(uids)
	}

	page := &model.ThreadPage{NextPageToken: next}
	for _, uid := range uids[offset:end] {
		page.Threads = append(page.Threads, model.ThreadSummary{
			ID: threadID(folder, uint32(uid)),
		})
	}

	return page, nil
}

// GetThread fetches one message's envelope and returns it as a
// single-message thread.
func (d *Driver) GetThread(ctx context.Context, id string) (*model.Thread, error) {
	folder, uid, err := parseThreadID(id)
	if err != nil {
		return nil, err
	}

	mailbox, ok := d.mailboxes[folder]
	if !ok {
		return nil, fmt.Errorf("unknown folder %q in thread id %q", folder, id)
	}

	conn, err := d.imap.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Logout().Wait() }()

	if _, err := conn.Select(mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	uidSet := goimap.UIDSetNum(goimap.UID(uid))
	fetchCmd := conn.Fetch(uidSet, &goimap.FetchOptions{
		Envelope: true,
		UID:      true,
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found in %s", uid, mailbox)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	thread := &model.Thread{ID: id}
	if buf.Envelope != nil {
		thread.Messages = append(thread.Messages, envelopeToMessage(buf.Envelope))
	}

	if err := fetchCmd.Close(); err != nil {
		return thread, fmt.Errorf("closing fetch: %w", err)
	}

	return thread, nil
}

// ListAliases returns the configured identity; plain IMAP servers expose
// no alias listing.
func (d *Driver) ListAliases(_ context.Context) ([]model.Alias, error) {
	return []model.Alias{
		{Email: d.account.Email, Name: d.account.Name, Primary: true},
	}, nil
}

// Send delivers the message over SMTP.
func (d *Driver) Send(ctx context.Context, msg *model.OutgoingMessage) error {
	// Bcc recipients receive the message but must not appear in it.
	visible := *msg
	visible.Bcc = nil

	raw, err := provider.EncodeMessage(d.account, &visible)
	if err != nil {
		return err
	}

	recipients := make([]string, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	for _, lists := range [][]model.Sender{msg.To, msg.Cc, msg.Bcc} {
		for _, r := range lists {
			recipients = append(recipients, r.Email)
		}
	}

	return d.smtp.send(ctx, d.account.Email, recipients, raw)
}

// threadID encodes a folder and UID into an opaque thread identifier.
func threadID(folder string, uid uint32) string {
	return fmt.Sprintf("%s:%d", folder, uid)
}

// parseThreadID splits a thread identifier back into folder and UID.
func parseThreadID(id string) (string, uint32, error) {
	folder, uidStr, ok := strings.Cut(id, ":")
	if !ok {
		return "", 0, fmt.Errorf("invalid thread id %q", id)
	}
	uid, err := strconv.ParseUint(uidStr, 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("invalid thread id %q: %w", id, err)
	}
	return folder, uint32(uid), nil
}

// envelopeToMessage maps an IMAP envelope to the model message shape.
func envelopeToMessage(env *goimap.Envelope) model.Message {
	msg := model.Message{Date: env.Date}

	if len(env.From) > 0 {
		msg.Sender = model.Sender{
			Email: env.From[0].Addr(),
			Name:  env.From[0].Name,
		}
	}
	msg.To = addressList(env.To)
	msg.Cc = addressList(env.Cc)
	msg.Bcc = addressList(env.Bcc)

	return msg
}

func addressList(addrs []goimap.Address) []model.Sender {
	out := make([]model.Sender, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, model.Sender{Email: a.Addr(), Name: a.Name})
	}
	return out
}
