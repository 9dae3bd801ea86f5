package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/segmentio/encoding/json"
)

// ErrNewline is returned by Send for messages containing a line break.
var ErrNewline = errors.New("process: message contains a newline")

// Conn exchanges newline-terminated messages over a reader and a writer.
// Send and Receive may be called from different goroutines.
type Conn struct {
	rmu sync.Mutex
	r   *bufio.Reader

	wmu sync.Mutex
	w   *bufio.Writer
	c   io.Closer
}

// NewConn wraps r and w. Close closes w.
func NewConn(r io.Reader, w io.WriteCloser) *Conn {
	return &Conn{r: bufio.NewReader(r), w: bufio.NewWriter(w), c: w}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Stdio returns the child end of a connection: stdin for reading and stdout
// for writing. Closing it leaves stdout open.
func Stdio() *Conn {
	return NewConn(os.Stdin, nopCloser{os.Stdout})
}

// Send writes msg followed by a newline and flushes it.
func (c *Conn) Send(msg string) error {
	if strings.ContainsAny(msg, "\r\n") {
		return ErrNewline
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.w.WriteString(msg); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}

// Receive returns the next line without its terminator. It returns io.EOF
// once the peer has closed its end and every complete line has been read.
// A final unterminated line is returned as is.
func (c *Conn) Receive() (string, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	line, err := c.r.ReadString('\n')
	if err == io.EOF && line != "" {
		return line, nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// SendJSON sends v encoded as a single line of JSON.
func (c *Conn) SendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("process: encoding message: %w", err)
	}
	return c.Send(string(b))
}

// ReceiveJSON receives one line and decodes it into v.
func (c *Conn) ReceiveJSON(v any) error {
	line, err := c.Receive()
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(line), v); err != nil {
		return fmt.Errorf("process: decoding message %q: %w", line, err)
	}
	return nil
}

// Close closes the write side, which the peer observes as end of input.
func (c *Conn) Close() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.w.Flush(); err != nil {
		c.c.Close()
		return err
	}
	return c.c.Close()
}
