package ftpclient

import (
	"fmt"
	"io"
)

// Store uploads the content of r to remotePath with STOR.
// Bytes are sent as read; select the transfer type with Type beforehand.
//
// Example:
//
//	file, err := os.Open("local.bin")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	err = client.Store("remote.bin", file)
func (c *Client) Store(remotePath string, r io.Reader) error {
	dataConn, err := c.cmdDataConn("STOR", remotePath)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(dataConn, r)

	// Always finish the data connection so the control channel stays in sync
	finishErr := c.finishDataConn("STOR", dataConn)

	if copyErr != nil {
		return fmt.Errorf("upload failed: %w", copyErr)
	}
	return finishErr
}

// Retrieve downloads remotePath with RETR and writes the content to w.
func (c *Client) Retrieve(remotePath string, w io.Writer) error {
	dataConn, err := c.cmdDataConn("RETR", remotePath)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(w, dataConn)

	finishErr := c.finishDataConn("RETR", dataConn)

	if copyErr != nil {
		return fmt.Errorf("download failed: %w", copyErr)
	}
	return finishErr
}
