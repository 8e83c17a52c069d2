package ftpclient

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Client is a plain FTP client bound to a single control connection.
// A Client is not safe for concurrent use: FTP allows one outstanding
// command per control connection.
type Client struct {
	// conn is the control connection
	conn net.Conn

	// reader is a buffered reader for the control connection
	reader *bufio.Reader

	// timeout is the dial timeout and the per-I/O deadline
	timeout time.Duration

	// logger is used for debug logging
	logger *slog.Logger

	// dialer is used to establish control and passive data connections
	dialer *net.Dialer

	// host and port of the server, as given to Dial
	host string
	port string

	// activeMode selects PORT instead of PASV for data connections
	activeMode bool

	// currentType tracks the transfer type to avoid redundant TYPE commands
	currentType string

	// closed is set once Quit has run
	closed bool
}

// Dial connects to an FTP server at the given address and reads the greeting.
// The address should be in the form "host:port".
//
// Example:
//
//	client, err := ftpclient.Dial("ftp.example.com:21",
//	    ftpclient.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
func Dial(addr string, options ...Option) (*Client, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	c := &Client{
		host:    host,
		port:    port,
		timeout: 30 * time.Second,
		dialer:  &net.Dialer{},
		logger:  slog.New(slog.NewTextHandler(nil, &slog.HandlerOptions{Level: slog.LevelError + 1})), // No-op logger by default
	}

	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	c.dialer.Timeout = c.timeout

	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// connect opens the control connection and checks for the 220 greeting.
func (c *Client) connect() error {
	addr := net.JoinHostPort(c.host, c.port)
	c.logger.Debug("connecting to ftp server", "addr", addr)

	conn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)

	resp, err := c.readReply()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to read greeting: %w", err)
	}

	if resp.Code != 220 {
		conn.Close()
		return newProtocolError("CONNECT", resp)
	}

	return nil
}

// Login authenticates with the FTP server using the provided username and password.
func (c *Client) Login(username, password string) error {
	resp, err := c.sendCommand("USER", username)
	if err != nil {
		return err
	}

	// 230 means no password is required
	if resp.Code == 230 {
		return nil
	}
	if resp.Code != 331 {
		return newProtocolError("USER", resp)
	}

	_, err = c.expectCode(230, "PASS", password)
	return err
}

// SetPassive selects passive (PASV) or active (PORT) data connections
// for the transfers that follow.
func (c *Client) SetPassive(passive bool) error {
	c.activeMode = !passive
	c.logger.Debug("data connection mode", "passive", passive)
	return nil
}

// Passive reports whether data connections use passive mode.
func (c *Client) Passive() bool {
	return !c.activeMode
}

// Type sets the transfer type ("A" for ASCII, "I" for image/binary).
func (c *Client) Type(transferType string) error {
	if c.currentType == transferType {
		c.logger.Debug("transfer type already set, skipping TYPE command", "type", transferType)
		return nil
	}

	if _, err := c.expectCode(200, "TYPE", transferType); err != nil {
		return err
	}

	c.currentType = transferType
	return nil
}

// Noop sends a NOOP command; useful to check that the session is alive.
func (c *Client) Noop() error {
	_, err := c.expect2xx("NOOP")
	return err
}

// Quit sends QUIT and closes the control connection.
// Calling Quit more than once is a no-op.
func (c *Client) Quit() error {
	if c.conn == nil || c.closed {
		return nil
	}
	c.closed = true

	// The reply does not matter, the connection is going away.
	_, _ = c.sendCommand("QUIT")

	return c.conn.Close()
}
