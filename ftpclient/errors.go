package ftpclient

import "fmt"

// ProtocolError is returned when the server answers a command with an
// unexpected reply code. It keeps the command/reply pair for debugging.
type ProtocolError struct {
	// Command is the FTP verb that was sent (e.g., "MKD")
	Command string

	// Response is the server message without the reply code
	Response string

	// Code is the numeric reply code (e.g., 550)
	Code int
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ftp: %s failed: %s (code %d)", e.Command, e.Response, e.Code)
}

// Is4xx returns true if the reply is a transient negative completion.
func (e *ProtocolError) Is4xx() bool {
	return e.Code >= 400 && e.Code < 500
}

// Is5xx returns true if the reply is a permanent negative completion.
func (e *ProtocolError) Is5xx() bool {
	return e.Code >= 500 && e.Code < 600
}

// IsTemporary reports whether retrying the command later may succeed.
func (e *ProtocolError) IsTemporary() bool {
	return e.Is4xx()
}

func newProtocolError(command string, resp *Response) *ProtocolError {
	return &ProtocolError{
		Command:  command,
		Response: resp.Message,
		Code:     resp.Code,
	}
}
