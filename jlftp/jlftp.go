// Package jlftp adapts github.com/jlaffaye/ftp to the myftp transport
// interfaces, as an alternative to the built-in ftpclient driver.
//
// jlaffaye/ftp only opens passive data connections, so selecting active
// mode fails at Connect time.
package jlftp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/gonzalop/myftp"
)

// ErrActiveMode is returned by SetPassive(false).
var ErrActiveMode = errors.New("jlftp: active mode is not supported")

// Dialer opens jlaffaye/ftp connections.
type Dialer struct {
	// Timeout bounds the dial. Zero means no timeout.
	Timeout time.Duration

	// Logger receives the protocol trace at debug level. Nil disables it.
	Logger *slog.Logger
}

// Dial implements myftp.Dialer.
func (d Dialer) Dial(addr string) (myftp.Conn, error) {
	opts := []ftp.DialOption{
		ftp.DialWithDisabledEPSV(true),
	}
	if d.Timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(d.Timeout))
	}
	if d.Logger != nil {
		opts = append(opts, ftp.DialWithDebugOutput(&logWriter{logger: d.Logger}))
	}

	sc, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("jlftp: %w", err)
	}
	return &conn{sc: sc}, nil
}

var _ myftp.Dialer = Dialer{}

// conn wraps a *ftp.ServerConn.
type conn struct {
	sc *ftp.ServerConn
}

func (c *conn) Login(user, password string) error {
	return wrap("login", c.sc.Login(user, password))
}

func (c *conn) SetPassive(passive bool) error {
	if !passive {
		return ErrActiveMode
	}
	return nil
}

func (c *conn) Type(code string) error {
	var t ftp.TransferType
	switch code {
	case "A":
		t = ftp.TransferTypeASCII
	case "I":
		t = ftp.TransferTypeBinary
	default:
		return fmt.Errorf("jlftp: unsupported transfer type %q", code)
	}
	return wrap("type", c.sc.Type(t))
}

func (c *conn) Store(path string, r io.Reader) error {
	return wrap("stor", c.sc.Stor(path, r))
}

// Retrieve copies the data connection into w. The response is always
// closed so the control connection reads the final reply.
func (c *conn) Retrieve(path string, w io.Writer) error {
	resp, err := c.sc.Retr(path)
	if err != nil {
		return wrap("retr", err)
	}

	_, copyErr := io.Copy(w, resp)
	closeErr := resp.Close()
	if copyErr != nil {
		return wrap("retr", copyErr)
	}
	return wrap("retr", closeErr)
}

func (c *conn) NameList(path string) ([]string, error) {
	names, err := c.sc.NameList(path)
	if err != nil {
		return nil, wrap("nlst", err)
	}
	return names, nil
}

// MakeDir returns path: jlaffaye/ftp does not expose the 257 reply text.
func (c *conn) MakeDir(path string) (string, error) {
	if err := c.sc.MakeDir(path); err != nil {
		return "", wrap("mkd", err)
	}
	return path, nil
}

func (c *conn) RemoveDir(path string) error {
	return wrap("rmd", c.sc.RemoveDir(path))
}

func (c *conn) Delete(path string) error {
	return wrap("dele", c.sc.Delete(path))
}

func (c *conn) Quit() error {
	return wrap("quit", c.sc.Quit())
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("jlftp: %s: %w", op, err)
}

// logWriter turns the debug output of jlaffaye/ftp into log records,
// one per line.
type logWriter struct {
	logger *slog.Logger
	buf    []byte
}

func (lw *logWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		i := bytes.IndexByte(lw.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(lw.buf[:i]), "\r")
		if strings.HasPrefix(line, "PASS ") {
			line = "PASS ****"
		}
		if line != "" {
			lw.logger.Debug("ftp trace", "line", line)
		}
		lw.buf = lw.buf[i+1:]
	}
	return len(p), nil
}
