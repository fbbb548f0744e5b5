package provider

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/webmail/internal/model"
)

// EncodeMessage renders an outgoing message as an RFC 5322 document with
// a single text/plain part. Bcc recipients are listed in the header; the
// submitting driver is responsible for stripping or honoring it according
// to its transport.
func EncodeMessage(from model.Sender, msg *model.OutgoingMessage) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(msg.Subject)
	h.SetAddressList("From", []*mail.Address{{Name: from.Name, Address: from.Email}})
	h.SetAddressList("To", toAddressList(msg.To))
	if len(msg.Cc) > 0 {
		h.SetAddressList("Cc", toAddressList(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		h.SetAddressList("Bcc", toAddressList(msg.Bcc))
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(w, msg.Body); err != nil {
		w.Close()
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}

	return buf.Bytes(), nil
}

func toAddressList(senders []model.Sender) []*mail.Address {
	addrs := make([]*mail.Address, 0, len(senders))
	for _, s := range senders {
		addrs = append(addrs, &mail.Address{Name: s.Name, Address: s.Email})
	}
	return addrs
}
