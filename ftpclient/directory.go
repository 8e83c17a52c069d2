package ftpclient

import (
	"bufio"
	"fmt"
	"strings"
)

// NameList returns the entry names of path using NLST, in the order the
// server sent them. An empty path lists the current directory.
func (c *Client) NameList(path string) ([]string, error) {
	args := []string{}
	if path != "" {
		args = append(args, path)
	}

	dataConn, err := c.cmdDataConn("NLST", args...)
	if err != nil {
		return nil, err
	}

	var names []string
	scanner := bufio.NewScanner(dataConn)
	for scanner.Scan() {
		name := strings.TrimRight(scanner.Text(), "\r")
		if name != "" {
			names = append(names, name)
		}
	}
	scanErr := scanner.Err()

	if err := c.finishDataConn("NLST", dataConn); err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, fmt.Errorf("failed to read name list: %w", scanErr)
	}

	return names, nil
}

// CurrentDir returns the current working directory.
func (c *Client) CurrentDir() (string, error) {
	resp, err := c.expect2xx("PWD")
	if err != nil {
		return "", err
	}

	dir, ok := parseQuotedPath(resp.Message)
	if !ok {
		return "", fmt.Errorf("invalid PWD response: %s", resp.Message)
	}
	return dir, nil
}

// MakeDir creates a directory and returns its name as confirmed by the
// server's 257 reply. When the reply carries no quoted name, path is returned.
func (c *Client) MakeDir(path string) (string, error) {
	resp, err := c.expect2xx("MKD", path)
	if err != nil {
		return "", err
	}

	if dir, ok := parseQuotedPath(resp.Message); ok {
		return dir, nil
	}
	return path, nil
}

// RemoveDir removes a directory.
func (c *Client) RemoveDir(path string) error {
	_, err := c.expect2xx("RMD", path)
	return err
}

// Delete deletes a file.
func (c *Client) Delete(path string) error {
	_, err := c.expect2xx("DELE", path)
	return err
}

// parseQuotedPath extracts the pathname from a 257 reply such as
// `"/home/user" is the current directory`. Embedded quotes are doubled
// by the server (RFC 959 appendix II).
func parseQuotedPath(msg string) (string, bool) {
	start := strings.IndexByte(msg, '"')
	if start == -1 {
		return "", false
	}

	var b strings.Builder
	for i := start + 1; i < len(msg); i++ {
		if msg[i] != '"' {
			b.WriteByte(msg[i])
			continue
		}
		if i+1 < len(msg) && msg[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		return b.String(), true
	}
	return "", false
}
