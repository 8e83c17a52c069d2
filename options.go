package myftp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"
)

// Option is a functional option for configuring a Session.
type Option func(*Session) error

// WithDialer replaces the transport used by Connect.
// The default is a NativeDialer honoring WithTimeout and WithLogger.
func WithDialer(d Dialer) Option {
	return func(s *Session) error {
		if d == nil {
			return fmt.Errorf("nil dialer")
		}
		s.dialer = d
		return nil
	}
}

// WithTimeout sets the connection and I/O timeout of the default dialer.
// It has no effect together with WithDialer.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) error {
		s.timeout = timeout
		return nil
	}
}

// WithLogger enables debug logging of session transitions and, with the
// default dialer, of every FTP command and reply.
//
// Example:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	sess, _ := myftp.New(cfg, myftp.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) error {
		s.logger = logger
		return nil
	}
}

// WithFs sets the local filesystem that Upload reads from and Download
// writes to. The default is the operating system filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Session) error {
		s.fs = fs
		return nil
	}
}

// WithProgress registers a callback that receives the number of bytes
// transferred so far, after each chunk of an upload or download.
// The count restarts at zero for every transfer.
func WithProgress(fn func(bytesTransferred int64)) Option {
	return func(s *Session) error {
		s.progress = fn
		return nil
	}
}

// WithBandwidthLimit caps transfers at bytesPerSecond. Zero means unlimited.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(s *Session) error {
		if bytesPerSecond < 0 {
			return fmt.Errorf("negative bandwidth limit: %d", bytesPerSecond)
		}
		s.bandwidth = bytesPerSecond
		return nil
	}
}
