package ftpclient

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"
)

// pasvRegex matches the PASV reply: 227 Entering Passive Mode (h1,h2,h3,h4,p1,p2)
var pasvRegex = regexp.MustCompile(`(\d+),(\d+),(\d+),(\d+),(\d+),(\d+)`)

// parsePASV extracts the data address from a PASV reply.
// Example: "227 Entering Passive Mode (192,168,1,1,195,149)" gives
// "192.168.1.1:50069" (195*256 + 149).
func parsePASV(response string) (string, error) {
	m := pasvRegex.FindStringSubmatch(response)
	if m == nil {
		return "", fmt.Errorf("invalid PASV response: %s", response)
	}

	var b [6]int
	for i := range b {
		v, err := strconv.Atoi(m[i+1])
		if err != nil || v > 255 {
			return "", fmt.Errorf("invalid PASV field: %s", m[i+1])
		}
		b[i] = v
	}

	host := net.IPv4(byte(b[0]), byte(b[1]), byte(b[2]), byte(b[3])).String()
	port := b[4]<<8 | b[5]
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// resolveDataAddr replaces an unspecified PASV host (0.0.0.0) with the
// control connection host, as servers behind NAT often send it.
func resolveDataAddr(pasvAddr, controlHost string) string {
	host, port, err := net.SplitHostPort(pasvAddr)
	if err != nil {
		return pasvAddr
	}
	if host == "0.0.0.0" {
		return net.JoinHostPort(controlHost, port)
	}
	return pasvAddr
}

// formatPORT formats a listener address for the PORT command.
// Converts "192.168.1.100:50000" to "192,168,1,100,195,80".
func formatPORT(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("invalid IP address: %s", host)
	}
	ip = ip.To4()
	if ip == nil {
		return "", fmt.Errorf("PORT requires IPv4 address")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", fmt.Errorf("invalid port: %s", portStr)
	}

	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", ip[0], ip[1], ip[2], ip[3], port>>8, port&0xff), nil
}

// openDataConn prepares a data connection in the configured mode.
func (c *Client) openDataConn() (net.Conn, error) {
	if c.activeMode {
		return c.openActiveDataConn()
	}
	return c.openPassiveDataConn()
}

// openPassiveDataConn sends PASV and dials the address the server announces.
func (c *Client) openPassiveDataConn() (net.Conn, error) {
	resp, err := c.sendCommand("PASV")
	if err != nil {
		return nil, fmt.Errorf("PASV failed: %w", err)
	}
	if resp.Code != 227 {
		return nil, newProtocolError("PASV", resp)
	}

	addr, err := parsePASV(resp.Message)
	if err != nil {
		return nil, err
	}
	addr = resolveDataAddr(addr, c.host)

	conn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to data port: %w", err)
	}

	if c.timeout > 0 {
		return &deadlineConn{Conn: conn, timeout: c.timeout}, nil
	}
	return conn, nil
}

// openActiveDataConn listens on the control connection's local interface
// and announces the port with PORT. The server connects once the transfer
// command has been sent, so the returned conn accepts lazily.
func (c *Client) openActiveDataConn() (net.Conn, error) {
	host, _, err := net.SplitHostPort(c.conn.LocalAddr().String())
	if err != nil {
		host = "127.0.0.1"
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	arg, err := formatPORT(listener.Addr().String())
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to format PORT command: %w", err)
	}

	if _, err := c.expect2xx("PORT", arg); err != nil {
		listener.Close()
		return nil, err
	}

	return &activeDataConn{listener: listener, timeout: c.timeout}, nil
}

// activeDataConn is a net.Conn whose peer is the first connection
// accepted on listener.
type activeDataConn struct {
	listener net.Listener
	conn     net.Conn
	timeout  time.Duration
}

func (a *activeDataConn) accept() error {
	if a.timeout > 0 {
		if l, ok := a.listener.(*net.TCPListener); ok {
			_ = l.SetDeadline(time.Now().Add(a.timeout))
		}
	}
	conn, err := a.listener.Accept()
	if err != nil {
		return err
	}
	a.conn = conn
	return nil
}

func (a *activeDataConn) Read(p []byte) (int, error) {
	if a.conn == nil {
		if err := a.accept(); err != nil {
			return 0, err
		}
	}
	if a.timeout > 0 {
		_ = a.conn.SetReadDeadline(time.Now().Add(a.timeout))
	}
	return a.conn.Read(p)
}

func (a *activeDataConn) Write(p []byte) (int, error) {
	if a.conn == nil {
		if err := a.accept(); err != nil {
			return 0, err
		}
	}
	if a.timeout > 0 {
		_ = a.conn.SetWriteDeadline(time.Now().Add(a.timeout))
	}
	return a.conn.Write(p)
}

func (a *activeDataConn) Close() error {
	var connErr error
	if a.conn != nil {
		connErr = a.conn.Close()
	}
	listenErr := a.listener.Close()
	if connErr != nil {
		return connErr
	}
	return listenErr
}

func (a *activeDataConn) LocalAddr() net.Addr {
	if a.conn != nil {
		return a.conn.LocalAddr()
	}
	return a.listener.Addr()
}

func (a *activeDataConn) RemoteAddr() net.Addr {
	if a.conn != nil {
		return a.conn.RemoteAddr()
	}
	return nil
}

func (a *activeDataConn) SetDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetDeadline(t)
	}
	return nil
}

func (a *activeDataConn) SetReadDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetReadDeadline(t)
	}
	return nil
}

func (a *activeDataConn) SetWriteDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetWriteDeadline(t)
	}
	return nil
}

// cmdDataConn opens a data connection and issues a transfer command on it.
// On success the caller moves the data and then calls finishDataConn.
func (c *Client) cmdDataConn(cmd string, args ...string) (net.Conn, error) {
	dataConn, err := c.openDataConn()
	if err != nil {
		return nil, err
	}

	resp, err := c.sendCommand(cmd, args...)
	if err != nil {
		dataConn.Close()
		return nil, err
	}

	// 125/150: transfer starting; the completion reply follows the data.
	if !resp.Is1xx() {
		dataConn.Close()
		return nil, newProtocolError(cmd, resp)
	}

	return dataConn, nil
}

// finishDataConn closes the data connection and reads the completion reply.
func (c *Client) finishDataConn(cmd string, dataConn net.Conn) error {
	// An empty upload never touches the conn; the server still connects.
	if a, ok := dataConn.(*activeDataConn); ok && a.conn == nil {
		_ = a.accept()
	}

	if err := dataConn.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %w", err)
	}

	resp, err := c.readReply()
	if err != nil {
		return fmt.Errorf("failed to read completion response: %w", err)
	}

	if !resp.Is2xx() {
		return newProtocolError(cmd, resp)
	}
	return nil
}
