// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/gonzalop/myftp"
	"github.com/gonzalop/myftp/internal/config"
	"github.com/gonzalop/myftp/jlftp"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load(path string) (*config.Config, error)
	Save(cfg *config.Config, path string) error
	ConfigPath() string
	DefaultConfig() *config.Config
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error and log output
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Injectable dependencies (nil means use defaults)
	ConfigSvc ConfigService
	Dialer    myftp.Dialer
	Fs        afero.Fs

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	return &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(int) {},
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		red:     noColor,
	}
}

type defaultConfigService struct{}

func (defaultConfigService) Load(path string) (*config.Config, error) { return config.Load(path) }
func (defaultConfigService) Save(cfg *config.Config, path string) error {
	return cfg.Save(path)
}
func (defaultConfigService) ConfigPath() string            { return config.ConfigPath() }
func (defaultConfigService) DefaultConfig() *config.Config { return config.DefaultConfig() }

func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return defaultConfigService{}
}

// flags holds the options accepted anywhere on the command line.
type flags struct {
	verbose    bool
	configPath string
	mode       myftp.TransferMode
}

// parseArgs splits c.Args[1:] into flags and positional arguments.
func (c *CLI) parseArgs() (flags, []string, error) {
	var f flags
	var pos []string
	if len(c.Args) < 2 {
		return f, nil, nil
	}

	for _, arg := range c.Args[1:] {
		switch {
		case arg == "--verbose":
			f.verbose = true
		case strings.HasPrefix(arg, "--config="):
			f.configPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--mode="):
			m, err := myftp.ParseTransferMode(strings.TrimPrefix(arg, "--mode="))
			if err != nil {
				return f, nil, err
			}
			f.mode = m
		case arg == "--help" || arg == "--version":
			pos = append(pos, arg)
		case strings.HasPrefix(arg, "--") && len(arg) > 2:
			return f, nil, fmt.Errorf("unknown flag: %s", arg)
		default:
			pos = append(pos, arg)
		}
	}
	return f, pos, nil
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	f, args, err := c.parseArgs()
	if err != nil {
		c.fail(err)
		return
	}

	if len(args) == 0 {
		fmt.Fprintln(c.Out, "No command specified. Use 'myftp help' for usage.")
		return
	}

	switch args[0] {
	case "ls":
		c.List(f, args[1:])
	case "get":
		c.Get(f, args[1:])
	case "put":
		c.Put(f, args[1:])
	case "mkdir":
		c.MakeDir(f, args[1:])
	case "rmdir":
		c.RemoveDir(f, args[1:])
	case "rm":
		c.Remove(f, args[1:])
	case "init":
		c.InitConfig(f)
	case "version", "-v", "--version":
		fmt.Fprintf(c.Out, "myftp v%s\n", c.Version)
	case "help", "-h", "--help":
		c.PrintUsage()
	default:
		fmt.Fprintf(c.Err, "Unknown command: %s\n", args[0])
		c.PrintUsage()
		c.Exit(1)
	}
}

// PrintUsage prints the help message.
func (c *CLI) PrintUsage() {
	fmt.Fprintln(c.Out, `myftp - FTP session client

Usage:
  myftp ls [path]                     List names in a remote directory
  myftp get <remote> [local]          Download a file
  myftp put <local> [remote]          Upload a file
  myftp mkdir <path>                  Create a remote directory
  myftp rmdir <path>                  Remove a remote directory
  myftp rm <path>                     Delete a remote file
  myftp init                          Create default config file
  myftp version, -v                   Show version
  myftp help, -h                      Show this help

Flags:
  --mode=auto|ascii|binary            Transfer mode for get and put (default auto)
  --config=PATH                       Config file (default ~/.myftp/config.yaml)
  --verbose                           Log FTP commands and replies to stderr

Config: ~/.myftp/config.yaml (MYFTP_PASSWORD overrides the password)`)
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig(f flags) {
	svc := c.configSvc()
	path := f.configPath
	if path == "" {
		path = svc.ConfigPath()
	}

	if err := svc.Save(svc.DefaultConfig(), path); err != nil {
		fmt.Fprintf(c.Err, "Error saving config: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", path)
	fmt.Fprintf(c.Out, "  Set %s and %s before connecting.\n", c.yellow("username"), c.yellow("password"))
}

// List prints the names in a remote directory, one per line.
func (c *CLI) List(f flags, args []string) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	c.withSession(f, func(s *myftp.Session) error {
		names, err := s.ListDirectory(path)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(c.Out, name)
		}
		return nil
	})
}

// Get downloads a remote file. The local name defaults to the remote base name.
func (c *CLI) Get(f flags, args []string) {
	if len(args) < 1 {
		c.usageError("myftp get <remote> [local] [--mode=auto|ascii|binary]")
		return
	}
	remote := args[0]
	local := baseName(remote)
	if len(args) > 1 {
		local = args[1]
	}

	c.withSession(f, func(s *myftp.Session) error {
		if err := s.Download(remote, local, f.mode); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%s %s -> %s %s\n", c.green("*"), remote, local, c.cyan("("+modeLabel(f.mode, remote)+")"))
		return nil
	})
}

// Put uploads a local file. The remote name defaults to the local base name.
func (c *CLI) Put(f flags, args []string) {
	if len(args) < 1 {
		c.usageError("myftp put <local> [remote] [--mode=auto|ascii|binary]")
		return
	}
	local := args[0]
	remote := baseName(local)
	if len(args) > 1 {
		remote = args[1]
	}

	c.withSession(f, func(s *myftp.Session) error {
		if err := s.Upload(local, remote, f.mode); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%s %s -> %s %s\n", c.green("*"), local, remote, c.cyan("("+modeLabel(f.mode, local)+")"))
		return nil
	})
}

// MakeDir creates a remote directory.
func (c *CLI) MakeDir(f flags, args []string) {
	if len(args) != 1 {
		c.usageError("myftp mkdir <path>")
		return
	}

	c.withSession(f, func(s *myftp.Session) error {
		name, err := s.MakeDirectory(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%s Created %s\n", c.green("*"), name)
		return nil
	})
}

// RemoveDir removes a remote directory.
func (c *CLI) RemoveDir(f flags, args []string) {
	if len(args) != 1 {
		c.usageError("myftp rmdir <path>")
		return
	}

	c.withSession(f, func(s *myftp.Session) error {
		if err := s.RemoveDirectory(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%s Removed %s\n", c.yellow("-"), args[0])
		return nil
	})
}

// Remove deletes a remote file.
func (c *CLI) Remove(f flags, args []string) {
	if len(args) != 1 {
		c.usageError("myftp rm <path>")
		return
	}

	c.withSession(f, func(s *myftp.Session) error {
		if err := s.DeleteFile(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%s Deleted %s\n", c.yellow("-"), args[0])
		return nil
	})
}

// withSession loads the configuration, logs in, runs fn and closes the
// session. Any failure is reported and exits with status 1.
func (c *CLI) withSession(f flags, fn func(*myftp.Session) error) {
	cfg, err := c.configSvc().Load(f.configPath)
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}

	s, err := c.newSession(cfg, f)
	if err != nil {
		c.fail(err)
		return
	}

	if err := s.Connect(); err != nil {
		c.fail(err)
		return
	}

	err = fn(s)
	if closeErr := s.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		c.fail(err)
	}
}

// newSession turns the file configuration into session options.
func (c *CLI) newSession(cfg *config.Config, f flags) (*myftp.Session, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(c.Err, &slog.HandlerOptions{Level: level}))

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	opts := []myftp.Option{
		myftp.WithLogger(logger),
		myftp.WithTimeout(timeout),
		myftp.WithBandwidthLimit(cfg.BandwidthLimit),
	}
	if c.Fs != nil {
		opts = append(opts, myftp.WithFs(c.Fs))
	}

	switch {
	case c.Dialer != nil:
		opts = append(opts, myftp.WithDialer(c.Dialer))
	case cfg.Driver == config.DriverJlaffaye:
		opts = append(opts, myftp.WithDialer(jlftp.Dialer{Timeout: timeout, Logger: logger}))
	}

	return myftp.New(cfg.Config, opts...)
}

func (c *CLI) fail(err error) {
	var cfgErr *myftp.ConfigurationError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(c.Err, "%s %v (run 'myftp init' and edit the config file)\n", c.red("Error:"), err)
	} else {
		fmt.Fprintf(c.Err, "%s %v\n", c.red("Error:"), err)
	}
	c.Exit(1)
}

func (c *CLI) usageError(usage string) {
	fmt.Fprintf(c.Out, "Usage: %s\n", usage)
	c.Exit(1)
}

func baseName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func modeLabel(m myftp.TransferMode, path string) string {
	if m == myftp.Auto {
		return myftp.ModeFor(path).String()
	}
	return m.String()
}
