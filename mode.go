package myftp

import (
	"fmt"
	"strings"
)

// TransferMode selects how file content is carried over the data connection.
type TransferMode int

const (
	// Auto infers the mode from the file name with ModeFor.
	Auto TransferMode = iota

	// ASCII translates line endings (TYPE A).
	ASCII

	// Binary moves bytes unchanged (TYPE I).
	Binary
)

// asciiExtensions lists the extensions transferred in ASCII mode.
var asciiExtensions = map[string]bool{
	"txt":  true,
	"csv":  true,
	"tsv":  true,
	"js":   true,
	"html": true,
	"css":  true,
}

// ModeFor infers the transfer mode from a path. The extension is the text
// after the last '.' in the path, or the whole path when it has no '.'.
// It is compared case-sensitively, so "notes.TXT" is Binary.
func ModeFor(path string) TransferMode {
	ext := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		ext = path[i+1:]
	}
	if asciiExtensions[ext] {
		return ASCII
	}
	return Binary
}

// ParseTransferMode parses "auto", "ascii" or "binary" (any case).
func ParseTransferMode(s string) (TransferMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Auto, nil
	case "ascii", "a":
		return ASCII, nil
	case "binary", "i":
		return Binary, nil
	}
	return Auto, fmt.Errorf("unknown transfer mode %q", s)
}

func (m TransferMode) String() string {
	switch m {
	case Auto:
		return "auto"
	case ASCII:
		return "ascii"
	case Binary:
		return "binary"
	}
	return fmt.Sprintf("TransferMode(%d)", int(m))
}

// resolve replaces Auto with the mode inferred from path.
func (m TransferMode) resolve(path string) TransferMode {
	if m == Auto {
		return ModeFor(path)
	}
	return m
}

// typeCode is the argument of the FTP TYPE command.
func (m TransferMode) typeCode() string {
	if m == ASCII {
		return "A"
	}
	return "I"
}
