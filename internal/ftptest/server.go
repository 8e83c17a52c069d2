// Package ftptest provides a scripted in-memory FTP server for tests.
//
// The server understands the small command set the clients in this module
// use (USER, PASS, TYPE, PASV, PORT, STOR, RETR, NLST, MKD, RMD, DELE, PWD,
// NOOP, QUIT) and keeps files in memory in insertion order. Any command can
// be overridden with Handle to script error replies.
package ftptest

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// HandlerFunc answers one command. args is everything after the verb.
type HandlerFunc func(c *textproto.Conn, args string)

// Server is a scripted FTP server listening on 127.0.0.1.
type Server struct {
	// Addr is the host:port of the control listener
	Addr string

	listener net.Listener

	mu       sync.Mutex
	users    map[string]string
	entries  []string
	files    map[string][]byte
	dirs     map[string]bool
	handlers map[string]HandlerFunc
	commands []string
	types    []string

	wg sync.WaitGroup
}

// NewServer starts a server and registers its shutdown with t.Cleanup.
// It accepts any username/password until AddUser is called.
func NewServer(t testing.TB) *Server {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	s := &Server{
		Addr:     l.Addr().String(),
		listener: l,
		files:    make(map[string][]byte),
		dirs:     make(map[string]bool),
		handlers: make(map[string]HandlerFunc),
	}

	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)

	return s
}

// Host returns the host part of Addr.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr)
	return host
}

// Port returns the port part of Addr.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Addr)
	n, _ := strconv.Atoi(port)
	return n
}

// AddUser restricts logins to the registered credentials.
func (s *Server) AddUser(user, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]string)
	}
	s.users[user] = password
}

// Handle overrides the reply to cmd (upper case verb).
func (s *Server) Handle(cmd string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[strings.ToUpper(cmd)] = h
}

// SetFile stores a file as if it had been uploaded.
func (s *Server) SetFile(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putFile(clean(name), data)
}

// File returns the content of an uploaded file.
func (s *Server) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[clean(name)]
	return data, ok
}

// HasDir reports whether a directory exists.
func (s *Server) HasDir(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirs[clean(name)]
}

// Commands returns the verbs received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Types returns the arguments of the TYPE commands received so far.
func (s *Server) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.types...)
}

// Close stops accepting connections and waits for the accept loop to exit.
func (s *Server) Close() {
	s.listener.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

// session is the per-connection state.
type session struct {
	tc       *textproto.Conn
	user     string
	pasv     net.Listener
	portAddr string
}

func (s *Server) handleConn(conn net.Conn) {
	tc := textproto.NewConn(conn)
	defer tc.Close()

	sess := &session{tc: tc}
	defer func() {
		if sess.pasv != nil {
			sess.pasv.Close()
		}
	}()

	_ = tc.PrintfLine("220 Service ready")

	for {
		line, err := tc.ReadLine()
		if err != nil {
			return
		}

		cmd, args, _ := strings.Cut(line, " ")
		cmd = strings.ToUpper(cmd)

		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		h := s.handlers[cmd]
		s.mu.Unlock()

		if h != nil {
			h(tc, args)
			continue
		}

		if cmd == "QUIT" {
			_ = tc.PrintfLine("221 Service closing control connection.")
			return
		}
		s.dispatch(sess, cmd, args)
	}
}

func (s *Server) dispatch(sess *session, cmd, args string) {
	tc := sess.tc
	switch cmd {
	case "USER":
		sess.user = args
		_ = tc.PrintfLine("331 User name okay, need password.")
	case "PASS":
		if s.checkLogin(sess.user, args) {
			_ = tc.PrintfLine("230 User logged in, proceed.")
		} else {
			_ = tc.PrintfLine("530 Not logged in.")
		}
	case "TYPE":
		s.mu.Lock()
		s.types = append(s.types, args)
		s.mu.Unlock()
		_ = tc.PrintfLine("200 Type set to %s.", args)
	case "NOOP":
		_ = tc.PrintfLine("200 Command okay.")
	case "PWD":
		_ = tc.PrintfLine(`257 "/" is the current directory.`)
	case "PASV":
		s.pasv(sess)
	case "PORT":
		addr, err := parsePORT(args)
		if err != nil {
			_ = tc.PrintfLine("501 Syntax error in parameters or arguments.")
			return
		}
		sess.portAddr = addr
		_ = tc.PrintfLine("200 PORT command successful.")
	case "STOR":
		s.transfer(sess, func(dc net.Conn) bool {
			data, err := io.ReadAll(dc)
			if err != nil {
				return false
			}
			s.mu.Lock()
			s.putFile(clean(args), data)
			s.mu.Unlock()
			return true
		})
	case "RETR":
		s.mu.Lock()
		data, ok := s.files[clean(args)]
		s.mu.Unlock()
		if !ok {
			s.dropData(sess)
			_ = tc.PrintfLine("550 %s: No such file.", args)
			return
		}
		s.transfer(sess, func(dc net.Conn) bool {
			_, err := dc.Write(data)
			return err == nil
		})
	case "NLST":
		dir := clean(args)
		s.mu.Lock()
		var names []string
		for _, e := range s.entries {
			if path.Dir(e) == dir {
				names = append(names, path.Base(e))
			}
		}
		s.mu.Unlock()
		s.transfer(sess, func(dc net.Conn) bool {
			w := bufio.NewWriter(dc)
			for _, n := range names {
				fmt.Fprintf(w, "%s\r\n", n)
			}
			return w.Flush() == nil
		})
	case "MKD":
		name := clean(args)
		s.mu.Lock()
		_, isFile := s.files[name]
		exists := isFile || s.dirs[name]
		if !exists {
			s.dirs[name] = true
			s.entries = append(s.entries, name)
		}
		s.mu.Unlock()
		if exists {
			_ = tc.PrintfLine("550 %s: File exists.", args)
			return
		}
		_ = tc.PrintfLine(`257 "/%s" directory created.`, strings.ReplaceAll(name, `"`, `""`))
	case "RMD":
		name := clean(args)
		s.mu.Lock()
		ok := s.dirs[name]
		if ok {
			delete(s.dirs, name)
			s.removeEntry(name)
		}
		s.mu.Unlock()
		if !ok {
			_ = tc.PrintfLine("550 %s: No such directory.", args)
			return
		}
		_ = tc.PrintfLine("250 Directory removed.")
	case "DELE":
		name := clean(args)
		s.mu.Lock()
		_, ok := s.files[name]
		if ok {
			delete(s.files, name)
			s.removeEntry(name)
		}
		s.mu.Unlock()
		if !ok {
			_ = tc.PrintfLine("550 %s: No such file.", args)
			return
		}
		_ = tc.PrintfLine("250 File deleted.")
	default:
		_ = tc.PrintfLine("502 Command not implemented.")
	}
}

func (s *Server) checkLogin(user, pass string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		return true
	}
	want, ok := s.users[user]
	return ok && want == pass
}

func (s *Server) pasv(sess *session) {
	if sess.pasv != nil {
		sess.pasv.Close()
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = sess.tc.PrintfLine("425 Can't open data connection.")
		return
	}
	sess.pasv = l
	sess.portAddr = ""

	port := l.Addr().(*net.TCPAddr).Port
	_ = sess.tc.PrintfLine("227 Entering Passive Mode (127,0,0,1,%d,%d).", port>>8, port&0xff)
}

// dataConn opens the data connection announced by the last PASV or PORT.
func (s *Server) dataConn(sess *session) (net.Conn, error) {
	switch {
	case sess.pasv != nil:
		l := sess.pasv
		sess.pasv = nil
		defer l.Close()
		return l.Accept()
	case sess.portAddr != "":
		addr := sess.portAddr
		sess.portAddr = ""
		return net.Dial("tcp", addr)
	default:
		return nil, fmt.Errorf("no data connection")
	}
}

// dropData discards a pending data connection after an early error reply.
func (s *Server) dropData(sess *session) {
	if sess.pasv != nil {
		sess.pasv.Close()
		sess.pasv = nil
	}
	sess.portAddr = ""
}

func (s *Server) transfer(sess *session, fn func(net.Conn) bool) {
	if sess.pasv == nil && sess.portAddr == "" {
		_ = sess.tc.PrintfLine("425 Use PORT or PASV first.")
		return
	}

	_ = sess.tc.PrintfLine("150 File status okay; about to open data connection.")
	dc, err := s.dataConn(sess)
	if err != nil {
		_ = sess.tc.PrintfLine("425 Can't open data connection.")
		return
	}

	ok := fn(dc)
	dc.Close()
	if !ok {
		_ = sess.tc.PrintfLine("426 Connection closed; transfer aborted.")
		return
	}
	_ = sess.tc.PrintfLine("226 Closing data connection.")
}

// putFile requires s.mu to be held.
func (s *Server) putFile(name string, data []byte) {
	if _, ok := s.files[name]; !ok {
		s.entries = append(s.entries, name)
	}
	s.files[name] = data
}

// removeEntry requires s.mu to be held.
func (s *Server) removeEntry(name string) {
	for i, e := range s.entries {
		if e == name {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

func clean(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" {
		return "."
	}
	return p
}

// parsePORT turns "h1,h2,h3,h4,p1,p2" into host:port.
func parsePORT(arg string) (string, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 6 {
		return "", fmt.Errorf("invalid PORT argument: %s", arg)
	}
	var n [6]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return "", fmt.Errorf("invalid PORT argument: %s", arg)
		}
		n[i] = v
	}
	host := fmt.Sprintf("%d.%d.%d.%d", n[0], n[1], n[2], n[3])
	return net.JoinHostPort(host, strconv.Itoa(n[4]<<8|n[5])), nil
}
