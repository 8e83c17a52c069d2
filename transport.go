package myftp

import (
	"io"
	"log/slog"
	"time"

	"github.com/gonzalop/myftp/ftpclient"
)

// Conn is a logged-in capable FTP control connection. Implementations move
// bytes unchanged; Session handles line-ending translation for ASCII mode.
type Conn interface {
	// Login authenticates with USER/PASS.
	Login(user, password string) error

	// SetPassive selects passive (true) or active (false) data connections
	// for every later transfer.
	SetPassive(passive bool) error

	// Type sends TYPE with "A" or "I".
	Type(code string) error

	// Store uploads r to path over a new data connection.
	Store(path string, r io.Reader) error

	// Retrieve downloads path into w over a new data connection.
	Retrieve(path string, w io.Writer) error

	// NameList returns the NLST names of path in server order.
	NameList(path string) ([]string, error)

	// MakeDir creates path and returns the name confirmed by the server.
	MakeDir(path string) (string, error)

	// RemoveDir removes an empty directory.
	RemoveDir(path string) error

	// Delete removes a file.
	Delete(path string) error

	// Quit ends the session and closes the control connection.
	Quit() error
}

// Dialer opens control connections.
type Dialer interface {
	Dial(addr string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(addr string) (Conn, error)

// Dial calls f(addr).
func (f DialerFunc) Dial(addr string) (Conn, error) {
	return f(addr)
}

// NativeDialer dials with package ftpclient. It is the default Dialer.
type NativeDialer struct {
	// Timeout bounds the dial and every control or data I/O. Zero keeps
	// the ftpclient default.
	Timeout time.Duration

	// Logger receives ftpclient's protocol trace. Nil disables it.
	Logger *slog.Logger
}

// Dial implements Dialer.
func (d NativeDialer) Dial(addr string) (Conn, error) {
	var opts []ftpclient.Option
	if d.Timeout > 0 {
		opts = append(opts, ftpclient.WithTimeout(d.Timeout))
	}
	if d.Logger != nil {
		opts = append(opts, ftpclient.WithLogger(d.Logger))
	}

	c, err := ftpclient.Dial(addr, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

var _ Conn = (*ftpclient.Client)(nil)
