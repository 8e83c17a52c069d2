package myftp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/gonzalop/myftp/internal/ratelimit"
)

// state is the position of a Session in its lifecycle.
type state int

const (
	stateUnauthenticated state = iota
	stateLoggedIn
	stateClosed
)

func (st state) String() string {
	switch st {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateLoggedIn:
		return "logged-in"
	case stateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(st))
}

// Session is one FTP login: a control connection plus the credentials and
// options used to open it.
//
// Lifecycle: New (no I/O) -> Connect -> operations -> Close. A failed
// Connect may be retried; a closed Session cannot be reused.
// A Session is not safe for concurrent use.
type Session struct {
	cfg Config

	dialer    Dialer
	timeout   time.Duration
	logger    *slog.Logger
	fs        afero.Fs
	progress  func(int64)
	bandwidth int64
	limiter   *ratelimit.Limiter

	// conn is non-nil only while state is stateLoggedIn
	conn  Conn
	state state
}

// New validates cfg, fills its defaults and returns an unconnected Session.
// It returns a *ConfigurationError when Username or Password is empty.
func New(cfg Config, options ...Option) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		logger: slog.New(slog.NewTextHandler(nil, &slog.HandlerOptions{Level: slog.LevelError + 1})), // No-op logger by default
	}

	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if s.dialer == nil {
		s.dialer = NativeDialer{Timeout: s.timeout, Logger: s.logger}
	}
	s.limiter = ratelimit.New(s.bandwidth)

	return s, nil
}

// Config returns the configuration with defaults applied.
func (s *Session) Config() Config {
	return s.cfg
}

// Addr returns the host:port the Session connects to.
func (s *Session) Addr() string {
	return s.cfg.Addr()
}

// Connect opens the control connection, logs in and selects the data
// connection mode. Calling Connect on a logged-in Session reuses the open
// connection. On failure the Session stays unauthenticated and holds no
// connection, so Connect can be retried.
func (s *Session) Connect() error {
	addr := s.Addr()

	switch s.state {
	case stateClosed:
		return &ConnectionError{Op: "dial", Addr: addr, Err: ErrClosed}
	case stateLoggedIn:
		s.logger.Debug("already logged in, reusing control connection", "addr", addr)
		return nil
	}

	s.logger.Debug("connecting", "addr", addr)
	conn, err := s.dialer.Dial(addr)
	if err != nil {
		return &ConnectionError{Op: "dial", Addr: addr, Err: err}
	}

	if err := conn.Login(s.cfg.Username, s.cfg.Password); err != nil {
		_ = conn.Quit()
		s.logger.Debug("login rejected", "addr", addr, "user", s.cfg.Username, "error", err)
		return &ConnectionError{Op: "login", Addr: addr, Err: err}
	}

	// Must precede any data connection command.
	if err := conn.SetPassive(s.cfg.PassiveMode()); err != nil {
		_ = conn.Quit()
		return &ConnectionError{Op: "passive", Addr: addr, Err: err}
	}

	s.conn = conn
	s.state = stateLoggedIn
	s.logger.Debug("logged in", "addr", addr, "user", s.cfg.Username, "passive", s.cfg.PassiveMode())
	return nil
}

// IsLoggedIn reports whether Connect succeeded and Close has not been called.
func (s *Session) IsLoggedIn() bool {
	return s.state == stateLoggedIn
}

// ready fails unless remote commands may be issued.
func (s *Session) ready() error {
	switch s.state {
	case stateLoggedIn:
		return nil
	case stateClosed:
		return ErrClosed
	}
	return ErrNotLoggedIn
}

// Upload sends the local file to remotePath. With Auto, the mode is
// inferred from localPath.
func (s *Session) Upload(localPath, remotePath string, mode TransferMode) error {
	if err := s.ready(); err != nil {
		return &OperationError{Op: "upload", Path: remotePath, Err: err}
	}
	mode = mode.resolve(localPath)

	f, err := s.fs.Open(localPath)
	if err != nil {
		return &OperationError{Op: "upload", Path: remotePath, Err: err}
	}
	defer f.Close()

	if err := s.conn.Type(mode.typeCode()); err != nil {
		return &OperationError{Op: "upload", Path: remotePath, Err: err}
	}

	if err := s.conn.Store(remotePath, s.uploadReader(f, mode)); err != nil {
		return &OperationError{Op: "upload", Path: remotePath, Err: err}
	}

	s.logger.Debug("uploaded", "local", localPath, "remote", remotePath, "mode", mode)
	return nil
}

// Download fetches remotePath into the local file, creating or truncating
// it. With Auto, the mode is inferred from remotePath. If the transfer
// fails, the partial local file is removed.
func (s *Session) Download(remotePath, localPath string, mode TransferMode) error {
	if err := s.ready(); err != nil {
		return &OperationError{Op: "download", Path: remotePath, Err: err}
	}
	mode = mode.resolve(remotePath)

	if err := s.conn.Type(mode.typeCode()); err != nil {
		return &OperationError{Op: "download", Path: remotePath, Err: err}
	}

	f, err := s.fs.Create(localPath)
	if err != nil {
		return &OperationError{Op: "download", Path: remotePath, Err: err}
	}

	w, flush := s.downloadWriter(f, mode)
	err = s.conn.Retrieve(remotePath, w)
	if err == nil {
		err = flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		if rmErr := s.fs.Remove(localPath); rmErr != nil {
			s.logger.Debug("failed to remove partial download", "local", localPath, "error", rmErr)
		}
		return &OperationError{Op: "download", Path: remotePath, Err: err}
	}

	s.logger.Debug("downloaded", "remote", remotePath, "local", localPath, "mode", mode)
	return nil
}

// ListDirectory returns the names in path as sent by the server (NLST),
// without sorting or filtering. An empty path means ".".
func (s *Session) ListDirectory(path string) ([]string, error) {
	if path == "" {
		path = "."
	}
	if err := s.ready(); err != nil {
		return nil, &OperationError{Op: "list", Path: path, Err: err}
	}

	names, err := s.conn.NameList(path)
	if err != nil {
		return nil, &OperationError{Op: "list", Path: path, Err: err}
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// MakeDirectory creates path and returns the directory name confirmed by
// the server.
func (s *Session) MakeDirectory(path string) (string, error) {
	if err := s.ready(); err != nil {
		return "", &OperationError{Op: "mkdir", Path: path, Err: err}
	}

	created, err := s.conn.MakeDir(path)
	if err != nil {
		return "", &OperationError{Op: "mkdir", Path: path, Err: err}
	}
	return created, nil
}

// RemoveDirectory removes the directory path.
func (s *Session) RemoveDirectory(path string) error {
	if err := s.ready(); err != nil {
		return &OperationError{Op: "rmdir", Path: path, Err: err}
	}
	if err := s.conn.RemoveDir(path); err != nil {
		return &OperationError{Op: "rmdir", Path: path, Err: err}
	}
	return nil
}

// DeleteFile removes the file path.
func (s *Session) DeleteFile(path string) error {
	if err := s.ready(); err != nil {
		return &OperationError{Op: "delete", Path: path, Err: err}
	}
	if err := s.conn.Delete(path); err != nil {
		return &OperationError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

// Close ends the session and closes the control connection if one is open.
// It is valid in any state except after a previous Close, which returns
// an *OperationError wrapping ErrClosed.
func (s *Session) Close() error {
	if s.state == stateClosed {
		return &OperationError{Op: "close", Err: ErrClosed}
	}

	prev := s.state
	s.state = stateClosed
	s.logger.Debug("closing session", "addr", s.Addr(), "from", prev)

	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	if err := conn.Quit(); err != nil {
		return &OperationError{Op: "close", Err: err}
	}
	return nil
}
