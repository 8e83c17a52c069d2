package myftp

import (
	"bytes"
	"errors"
	"io"
)

// fakeConn is an in-memory Conn that records every call.
type fakeConn struct {
	calls   []string
	types   []string
	passive []bool
	files   map[string][]byte
	names   []string

	loginErr   error
	passiveErr error
	typeErr    error
	storeErr   error
	retrErr    error
	nlstErr    error
	dirErr     error
	quitErr    error

	// partial is written to the destination before retrErr is returned
	partial []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{files: make(map[string][]byte)}
}

func (f *fakeConn) Login(user, password string) error {
	f.calls = append(f.calls, "Login")
	return f.loginErr
}

func (f *fakeConn) SetPassive(passive bool) error {
	f.calls = append(f.calls, "SetPassive")
	f.passive = append(f.passive, passive)
	return f.passiveErr
}

func (f *fakeConn) Type(code string) error {
	f.calls = append(f.calls, "Type")
	f.types = append(f.types, code)
	return f.typeErr
}

func (f *fakeConn) Store(path string, r io.Reader) error {
	f.calls = append(f.calls, "Store")
	if f.storeErr != nil {
		return f.storeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.files[path] = data
	return nil
}

func (f *fakeConn) Retrieve(path string, w io.Writer) error {
	f.calls = append(f.calls, "Retrieve")
	if f.retrErr != nil {
		_, _ = w.Write(f.partial)
		return f.retrErr
	}
	data, ok := f.files[path]
	if !ok {
		return errors.New("550 no such file")
	}
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

func (f *fakeConn) NameList(path string) ([]string, error) {
	f.calls = append(f.calls, "NameList")
	return f.names, f.nlstErr
}

func (f *fakeConn) MakeDir(path string) (string, error) {
	f.calls = append(f.calls, "MakeDir")
	if f.dirErr != nil {
		return "", f.dirErr
	}
	return "/" + path, nil
}

func (f *fakeConn) RemoveDir(path string) error {
	f.calls = append(f.calls, "RemoveDir")
	return f.dirErr
}

func (f *fakeConn) Delete(path string) error {
	f.calls = append(f.calls, "Delete")
	return f.dirErr
}

func (f *fakeConn) Quit() error {
	f.calls = append(f.calls, "Quit")
	return f.quitErr
}

func (f *fakeConn) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

// fakeDialer hands out conn, or fails with err.
type fakeDialer struct {
	conn  *fakeConn
	err   error
	addrs []string
}

func (d *fakeDialer) Dial(addr string) (Conn, error) {
	d.addrs = append(d.addrs, addr)
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}
