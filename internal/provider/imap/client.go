package imap

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/webmail/internal/provider"
)

// client wraps go-imap v2 connection setup for the driver.
type client struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// connect establishes a connection to the IMAP server and authenticates.
// The caller is responsible for calling Logout on the returned client.
func (c *client) connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.host + ":" + c.port

	var conn *imapclient.Client
	var err error

	if c.tls {
		conn, err = imapclient.DialTLS(addr, nil)
	} else {
		conn, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := conn.Login(c.username, c.password).Wait(); err != nil {
		_ = conn.Logout().Wait()
		return nil, &provider.AuthError{
			Driver: provider.DriverIMAP,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v",
				c.username, err,
			),
		}
	}

	return conn, nil
}
