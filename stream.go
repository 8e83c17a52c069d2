package myftp

import (
	"context"
	"io"

	"github.com/gonzalop/myftp/internal/ratelimit"
)

// crlfReader converts LF to CRLF for ASCII uploads. A CR already
// preceding an LF is not doubled.
type crlfReader struct {
	r      io.Reader
	raw    [16 * 1024]byte
	out    []byte
	pos    int
	prevCR bool
	err    error
}

func newCRLFReader(r io.Reader) *crlfReader {
	return &crlfReader{r: r}
}

func (c *crlfReader) Read(p []byte) (int, error) {
	for c.pos == len(c.out) {
		if c.err != nil {
			return 0, c.err
		}

		n, err := c.r.Read(c.raw[:])
		c.out, c.pos = c.out[:0], 0
		for _, b := range c.raw[:n] {
			if b == '\n' && !c.prevCR {
				c.out = append(c.out, '\r')
			}
			c.out = append(c.out, b)
			c.prevCR = b == '\r'
		}
		c.err = err
	}

	n := copy(p, c.out[c.pos:])
	c.pos += n
	return n, nil
}

// lfWriter converts CRLF to LF for ASCII downloads. A lone CR is kept.
// Flush must be called after the last Write.
type lfWriter struct {
	w         io.Writer
	buf       []byte
	pendingCR bool
}

func newLFWriter(w io.Writer) *lfWriter {
	return &lfWriter{w: w}
}

func (l *lfWriter) Write(p []byte) (int, error) {
	out := l.buf[:0]
	for _, b := range p {
		if l.pendingCR {
			l.pendingCR = false
			if b != '\n' {
				out = append(out, '\r')
			}
		}
		if b == '\r' {
			l.pendingCR = true
			continue
		}
		out = append(out, b)
	}
	l.buf = out

	if _, err := l.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush writes a trailing CR held back by the last Write.
func (l *lfWriter) Flush() error {
	if !l.pendingCR {
		return nil
	}
	l.pendingCR = false
	_, err := l.w.Write([]byte{'\r'})
	return err
}

// progressCounter reports the running byte count of one transfer.
type progressCounter struct {
	fn    func(int64)
	total int64
}

func (pc *progressCounter) add(n int) {
	if n <= 0 {
		return
	}
	pc.total += int64(n)
	pc.fn(pc.total)
}

type progressReader struct {
	io.Reader
	pc *progressCounter
}

func (pr progressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	pr.pc.add(n)
	return n, err
}

type progressWriter struct {
	io.Writer
	pc *progressCounter
}

func (pw progressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.pc.add(n)
	return n, err
}

// uploadReader stacks throttling, progress and line-ending translation
// over the local file.
func (s *Session) uploadReader(r io.Reader, mode TransferMode) io.Reader {
	r = ratelimit.NewReader(context.Background(), r, s.limiter)
	if s.progress != nil {
		r = progressReader{Reader: r, pc: &progressCounter{fn: s.progress}}
	}
	if mode == ASCII {
		r = newCRLFReader(r)
	}
	return r
}

// downloadWriter is the counterpart of uploadReader. The returned flush
// must run once the transfer has completed.
func (s *Session) downloadWriter(w io.Writer, mode TransferMode) (io.Writer, func() error) {
	w = ratelimit.NewWriter(context.Background(), w, s.limiter)
	if s.progress != nil {
		w = progressWriter{Writer: w, pc: &progressCounter{fn: s.progress}}
	}
	if mode == ASCII {
		lw := newLFWriter(w)
		return lw, lw.Flush
	}
	return w, func() error { return nil }
}
