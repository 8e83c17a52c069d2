package ftpclient

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Response is a complete server reply read from the control connection.
type Response struct {
	// Code is the three-digit reply code (e.g., 220, 550)
	Code int

	// Message is the reply text with the code prefixes stripped.
	// Lines of a multi-line reply are joined with "\n".
	Message string

	// Lines holds the raw reply lines
	Lines []string
}

// Is1xx returns true for a positive preliminary reply.
func (r *Response) Is1xx() bool {
	return r.Code >= 100 && r.Code < 200
}

// Is2xx returns true for a positive completion reply.
func (r *Response) Is2xx() bool {
	return r.Code >= 200 && r.Code < 300
}

// String returns the full reply as received.
func (r *Response) String() string {
	return strings.Join(r.Lines, "\n")
}

// readResponse reads one reply from the control connection.
//
// A single-line reply is "220 Welcome\r\n". A multi-line reply opens with
// "220-" and ends at the first line that starts with the same code followed
// by a space; lines in between may carry any text.
func readResponse(r *bufio.Reader) (*Response, error) {
	first, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if len(first) < 4 {
		return nil, fmt.Errorf("invalid response line: %q", first)
	}

	code, err := strconv.Atoi(first[:3])
	if err != nil || code < 100 || code > 599 {
		return nil, fmt.Errorf("invalid response code: %q", first[:3])
	}

	resp := &Response{Code: code, Lines: []string{first}}
	switch first[3] {
	case ' ':
		resp.Message = first[4:]
		return resp, nil
	case '-':
	default:
		return nil, fmt.Errorf("invalid response format: %q", first)
	}

	texts := []string{first[4:]}
	terminator := first[:3] + " "
	for {
		line, err := readLine(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unexpected EOF reading response")
			}
			return nil, err
		}
		resp.Lines = append(resp.Lines, line)

		if strings.HasPrefix(line, terminator) {
			texts = append(texts, line[4:])
			break
		}
		if strings.HasPrefix(line, first[:3]+"-") {
			line = line[4:]
		}
		texts = append(texts, line)
	}

	resp.Message = strings.Join(texts, "\n")
	return resp, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// sendCommand writes one command line and reads the reply.
func (c *Client) sendCommand(command string, args ...string) (*Response, error) {
	cmd := command
	if len(args) > 0 {
		cmd = command + " " + strings.Join(args, " ")
	}

	if command == "PASS" {
		c.logger.Debug("ftp command", "cmd", "PASS ****")
	} else {
		c.logger.Debug("ftp command", "cmd", cmd)
	}

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	if _, err := fmt.Fprintf(c.conn, "%s\r\n", cmd); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	resp, err := c.readReply()
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// readReply reads the next reply under the read deadline.
func (c *Client) readReply() (*Response, error) {
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	resp, err := readResponse(c.reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("ftp response", "code", resp.Code, "message", resp.Message)
	return resp, nil
}

// expectCode sends a command and fails unless the reply carries exactly expectedCode.
func (c *Client) expectCode(expectedCode int, command string, args ...string) (*Response, error) {
	resp, err := c.sendCommand(command, args...)
	if err != nil {
		return nil, err
	}
	if resp.Code != expectedCode {
		return resp, newProtocolError(command, resp)
	}
	return resp, nil
}

// expect2xx sends a command and fails unless the reply is a positive completion.
func (c *Client) expect2xx(command string, args ...string) (*Response, error) {
	resp, err := c.sendCommand(command, args...)
	if err != nil {
		return nil, err
	}
	if !resp.Is2xx() {
		return resp, newProtocolError(command, resp)
	}
	return resp, nil
}
