package myftp

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Hostname: "ftp.example.com", Username: "user", Password: "secret"}

// newTestSession returns a session wired to a fake transport and an
// in-memory filesystem.
func newTestSession(t *testing.T, cfg Config, opts ...Option) (*Session, *fakeDialer, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	d := &fakeDialer{conn: newFakeConn()}
	opts = append([]Option{WithDialer(d), WithFs(fs)}, opts...)
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	return s, d, fs
}

func connected(t *testing.T, opts ...Option) (*Session, *fakeConn, afero.Fs) {
	t.Helper()
	s, d, fs := newTestSession(t, testConfig, opts...)
	require.NoError(t, s.Connect())
	return s, d.conn, fs
}

func TestNew_RequiresCredentials(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{"missing username", Config{Password: "secret"}, "username"},
		{"missing password", Config{Username: "user"}, "password"},
		{"missing both", Config{}, "username"},
		{"port out of range", Config{Username: "u", Password: "p", Port: 70000}, "port"},
		{"negative port", Config{Username: "u", Password: "p", Port: -1}, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDialer{conn: newFakeConn()}
			s, err := New(tt.cfg, WithDialer(d))
			assert.Nil(t, s)

			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantField, ce.Field)
			assert.Empty(t, d.addrs, "New must not touch the network")
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	s, err := New(Config{Username: "user", Password: "secret"})
	require.NoError(t, err)

	cfg := s.Config()
	assert.Equal(t, "localhost", cfg.Hostname)
	assert.Equal(t, 21, cfg.Port)
	assert.True(t, cfg.PassiveMode())
	assert.Equal(t, "localhost:21", s.Addr())
	assert.False(t, s.IsLoggedIn())
}

func TestNew_OptionErrors(t *testing.T) {
	t.Parallel()
	_, err := New(testConfig, WithDialer(nil))
	assert.Error(t, err)

	_, err = New(testConfig, WithBandwidthLimit(-1))
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	t.Parallel()
	s, d, _ := newTestSession(t, testConfig)
	assert.False(t, s.IsLoggedIn())

	require.NoError(t, s.Connect())
	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, []string{"ftp.example.com:21"}, d.addrs)
	assert.Equal(t, []string{"Login", "SetPassive"}, d.conn.calls)
	assert.Equal(t, []bool{true}, d.conn.passive)

	// A second Connect reuses the open connection
	require.NoError(t, s.Connect())
	assert.Len(t, d.addrs, 1)
}

func TestConnect_ActiveMode(t *testing.T) {
	t.Parallel()
	cfg := testConfig
	cfg.Passive = Bool(false)
	cfg.Port = 2121
	s, d, _ := newTestSession(t, cfg)

	require.NoError(t, s.Connect())
	assert.Equal(t, []bool{false}, d.conn.passive)
	assert.Equal(t, []string{"ftp.example.com:2121"}, d.addrs)
}

func TestConnect_DialFailure(t *testing.T) {
	t.Parallel()
	s, d, _ := newTestSession(t, testConfig)
	d.err = errors.New("connection refused")

	err := s.Connect()
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "dial", ce.Op)
	assert.Equal(t, "ftp.example.com:21", ce.Addr)
	assert.False(t, s.IsLoggedIn())
}

func TestConnect_LoginFailureThenRetry(t *testing.T) {
	t.Parallel()
	s, d, _ := newTestSession(t, testConfig)
	loginErr := errors.New("530 not logged in")
	d.conn.loginErr = loginErr

	err := s.Connect()
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "login", ce.Op)
	assert.ErrorIs(t, err, loginErr)
	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, 1, d.conn.count("Quit"), "rejected connection must be closed")
	assert.Zero(t, d.conn.count("SetPassive"))

	// Retry is permitted from the unauthenticated state
	d.conn.loginErr = nil
	require.NoError(t, s.Connect())
	assert.True(t, s.IsLoggedIn())
	assert.Len(t, d.addrs, 2)
}

func TestConnect_PassiveFailure(t *testing.T) {
	t.Parallel()
	s, d, _ := newTestSession(t, testConfig)
	d.conn.passiveErr = errors.New("active mode not supported")

	var ce *ConnectionError
	require.ErrorAs(t, s.Connect(), &ce)
	assert.Equal(t, "passive", ce.Op)
	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, 1, d.conn.count("Quit"))
}

// operations calls every remote operation once and returns their errors.
func operations(s *Session) map[string]error {
	_, listErr := s.ListDirectory(".")
	_, mkdirErr := s.MakeDirectory("dir")
	return map[string]error{
		"upload":   s.Upload("local.txt", "remote.txt", Auto),
		"download": s.Download("remote.txt", "local.txt", Auto),
		"list":     listErr,
		"mkdir":    mkdirErr,
		"rmdir":    s.RemoveDirectory("dir"),
		"delete":   s.DeleteFile("remote.txt"),
	}
}

func TestOperations_RequireLogin(t *testing.T) {
	t.Parallel()
	s, d, fs := newTestSession(t, testConfig)
	require.NoError(t, afero.WriteFile(fs, "local.txt", []byte("data"), 0o644))

	for op, err := range operations(s) {
		var oe *OperationError
		require.ErrorAs(t, err, &oe, op)
		assert.Equal(t, op, oe.Op)
		assert.ErrorIs(t, err, ErrNotLoggedIn, op)
	}

	assert.Empty(t, d.addrs)
	assert.Empty(t, d.conn.calls, "no transport call may happen before login")
}

func TestOperations_AfterFailedConnect(t *testing.T) {
	t.Parallel()
	s, d, _ := newTestSession(t, testConfig)
	d.conn.loginErr = errors.New("530")
	require.Error(t, s.Connect())
	callsAfterConnect := len(d.conn.calls)

	for op, err := range operations(s) {
		assert.ErrorIs(t, err, ErrNotLoggedIn, op)
	}
	assert.Len(t, d.conn.calls, callsAfterConnect)
}

func TestClose(t *testing.T) {
	t.Parallel()
	s, conn, _ := connected(t)

	require.NoError(t, s.Close())
	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, 1, conn.count("Quit"))

	for op, err := range operations(s) {
		assert.ErrorIs(t, err, ErrClosed, op)
	}

	var ce *ConnectionError
	require.ErrorAs(t, s.Connect(), &ce)
	assert.ErrorIs(t, ce, ErrClosed)

	assert.ErrorIs(t, s.Close(), ErrClosed)
	assert.Equal(t, 1, conn.count("Quit"))
}

func TestClose_BeforeConnect(t *testing.T) {
	t.Parallel()
	s, d, _ := newTestSession(t, testConfig)

	require.NoError(t, s.Close())
	assert.Empty(t, d.conn.calls)
	assert.ErrorIs(t, s.Connect(), ErrClosed)
}

func TestClose_QuitError(t *testing.T) {
	t.Parallel()
	s, conn, _ := connected(t)
	conn.quitErr = errors.New("broken pipe")

	var oe *OperationError
	require.ErrorAs(t, s.Close(), &oe)
	assert.Equal(t, "close", oe.Op)
	assert.False(t, s.IsLoggedIn())
}

func TestUpload_TransferMode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		local    string
		mode     TransferMode
		content  string
		wantType string
		wantData string
	}{
		{"report.txt", Auto, "a\nb\n", "A", "a\r\nb\r\n"},
		{"photo.png", Auto, "a\nb\n", "I", "a\nb\n"},
		{"archive.tar.gz", Auto, "\n", "I", "\n"},
		{"README", Auto, "x\n", "I", "x\n"},
		{"notes.txt", Binary, "a\n", "I", "a\n"},
		{"blob.bin", ASCII, "a\r\nb\n", "A", "a\r\nb\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.local, func(t *testing.T) {
			s, conn, fs := connected(t)
			require.NoError(t, afero.WriteFile(fs, tt.local, []byte(tt.content), 0o644))

			require.NoError(t, s.Upload(tt.local, "remote/"+tt.local, tt.mode))
			assert.Equal(t, []string{tt.wantType}, conn.types)
			assert.Equal(t, tt.wantData, string(conn.files["remote/"+tt.local]))
		})
	}
}

func TestUpload_MissingLocalFile(t *testing.T) {
	t.Parallel()
	s, conn, _ := connected(t)

	var oe *OperationError
	require.ErrorAs(t, s.Upload("nope.bin", "nope.bin", Auto), &oe)
	assert.Equal(t, "upload", oe.Op)
	assert.Zero(t, conn.count("Type"))
	assert.Zero(t, conn.count("Store"))
}

func TestUpload_ServerRejects(t *testing.T) {
	t.Parallel()
	s, conn, fs := connected(t)
	require.NoError(t, afero.WriteFile(fs, "a.bin", []byte{1, 2, 3}, 0o644))
	storeErr := errors.New("553 not allowed")
	conn.storeErr = storeErr

	err := s.Upload("a.bin", "a.bin", Auto)
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, 1, conn.count("Store"), "no retry")
}

func TestDownload(t *testing.T) {
	t.Parallel()
	s, conn, fs := connected(t)
	conn.files["data.csv"] = []byte("h1,h2\r\n1,2\r\n")
	conn.files["image.png"] = []byte{0x89, 'P', 'N', 'G', '\r', '\n'}

	require.NoError(t, s.Download("data.csv", "local.csv", Auto))
	got, err := afero.ReadFile(fs, "local.csv")
	require.NoError(t, err)
	assert.Equal(t, "h1,h2\n1,2\n", string(got))

	require.NoError(t, s.Download("image.png", "image.png", Auto))
	got, err = afero.ReadFile(fs, "image.png")
	require.NoError(t, err)
	assert.Equal(t, conn.files["image.png"], got)

	assert.Equal(t, []string{"A", "I"}, conn.types)
}

func TestDownload_FailureRemovesPartialFile(t *testing.T) {
	t.Parallel()
	s, conn, fs := connected(t)
	conn.retrErr = errors.New("426 transfer aborted")
	conn.partial = []byte("half")

	err := s.Download("big.iso", "big.iso", Auto)
	var oe *OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "download", oe.Op)
	assert.Equal(t, "big.iso", oe.Path)

	exists, err := afero.Exists(fs, "big.iso")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListDirectory(t *testing.T) {
	t.Parallel()
	s, conn, _ := connected(t)
	conn.names = []string{"b.png", "a.txt", ".hidden"}

	names, err := s.ListDirectory(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.png", "a.txt", ".hidden"}, names)

	conn.names = nil
	names, err = s.ListDirectory("")
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)

	conn.nlstErr = errors.New("550")
	_, err = s.ListDirectory("missing")
	var oe *OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "missing", oe.Path)
}

func TestDirectoryOperations(t *testing.T) {
	t.Parallel()
	s, conn, _ := connected(t)

	name, err := s.MakeDirectory("reports")
	require.NoError(t, err)
	assert.Equal(t, "/reports", name)

	require.NoError(t, s.RemoveDirectory("reports"))
	require.NoError(t, s.DeleteFile("old.log"))

	conn.dirErr = errors.New("550 permission denied")
	_, err = s.MakeDirectory("x")
	assert.ErrorIs(t, err, conn.dirErr)
	assert.ErrorIs(t, s.RemoveDirectory("x"), conn.dirErr)
	assert.ErrorIs(t, s.DeleteFile("x"), conn.dirErr)
}

func TestWithProgress(t *testing.T) {
	t.Parallel()
	var reports []int64
	s, conn, fs := connected(t, WithProgress(func(n int64) { reports = append(reports, n) }))

	data := make([]byte, 40*1024)
	require.NoError(t, afero.WriteFile(fs, "blob.bin", data, 0o644))
	require.NoError(t, s.Upload("blob.bin", "blob.bin", Auto))

	require.NotEmpty(t, reports)
	assert.Equal(t, int64(len(data)), reports[len(reports)-1])

	reports = nil
	require.NoError(t, s.Download("blob.bin", "copy.bin", Auto))
	require.NotEmpty(t, reports)
	assert.Equal(t, int64(len(conn.files["blob.bin"])), reports[len(reports)-1])
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "myftp: invalid configuration: username is required",
		(&ConfigurationError{Field: "username", Reason: "is required"}).Error())
	assert.Equal(t, "myftp: login h:21: boom",
		(&ConnectionError{Op: "login", Addr: "h:21", Err: errors.New("boom")}).Error())
	assert.Equal(t, "myftp: upload a.txt: not logged in",
		(&OperationError{Op: "upload", Path: "a.txt", Err: ErrNotLoggedIn}).Error())
	assert.Equal(t, "myftp: close: session closed",
		(&OperationError{Op: "close", Err: ErrClosed}).Error())
}

func TestWithBandwidthLimit(t *testing.T) {
	t.Parallel()
	s, conn, fs := connected(t, WithBandwidthLimit(4*1024))
	data := make([]byte, 8*1024)
	require.NoError(t, afero.WriteFile(fs, "blob.bin", data, 0o644))

	start := time.Now()
	require.NoError(t, s.Upload("blob.bin", "blob.bin", Binary))
	elapsed := time.Since(start)

	assert.Len(t, conn.files["blob.bin"], len(data))
	assert.GreaterOrEqual(t, elapsed, 700*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)
}
