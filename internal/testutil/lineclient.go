package testutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// DefaultTimeout bounds every LineClient read unless a caller passes its own.
const DefaultTimeout = 5 * time.Second

// LineClient is a newline-protocol test client for end-to-end tests.
type LineClient struct {
	conn   net.Conn
	reader *bufio.Reader
	t      testing.TB
}

// NewLineClient dials the given address and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected LineClient or fails the test.
func NewLineClient(t testing.TB, addr string) *LineClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, DefaultTimeout)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}

	t.Cleanup(func() {
		conn.Close()
	})

	return &LineClient{
		conn:   conn,
		reader: bufio.NewReader(conn),
		t:      t,
	}
}

// ReadLine returns the next server line without its trailing newline.
//
// Postcondition: Returns the line, or fails the test on timeout or disconnect.
func (c *LineClient) ReadLine() string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(DefaultTimeout))
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.t.Fatalf("reading line: got %q, error: %v", line, err)
	}
	return strings.TrimSuffix(line, "\n")
}

// Expect reads the next line and fails the test unless it equals want.
func (c *LineClient) Expect(want string) {
	c.t.Helper()
	if got := c.ReadLine(); got != want {
		c.t.Fatalf("expected line %q, got %q", want, got)
	}
}

// ReadUntil reads lines until one equals want and returns every line read,
// including the match.
//
// Postcondition: Returns the accumulated lines, or fails on timeout.
func (c *LineClient) ReadUntil(want string) []string {
	c.t.Helper()
	var lines []string
	for {
		line := c.ReadLine()
		lines = append(lines, line)
		if line == want {
			return lines
		}
	}
}

// ExpectClosed fails the test unless the server closes the connection before
// sending anything further.
func (c *LineClient) ExpectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(DefaultTimeout))
	line, err := c.reader.ReadString('\n')
	if err == nil || line != "" {
		c.t.Fatalf("expected connection close, got line %q (err %v)", line, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		c.t.Fatalf("expected connection close, timed out instead")
	}
	if !errors.Is(err, io.EOF) {
		c.t.Logf("connection ended with %v", err)
	}
}

// ExpectSilence fails the test if the server sends a line within d.
func (c *LineClient) ExpectSilence(d time.Duration) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(d))
	line, err := c.reader.ReadString('\n')
	var ne net.Error
	if err == nil || !errors.As(err, &ne) || !ne.Timeout() {
		c.t.Fatalf("expected no output, got %q (err %v)", line, err)
	}
	if line != "" {
		c.t.Fatalf("expected no output, got partial %q", line)
	}
}

// Send writes a line of text to the server, appending \n.
//
// Precondition: text should not contain trailing newline characters.
// Postcondition: text + \n is written to the connection.
func (c *LineClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(DefaultTimeout))
	if _, err := fmt.Fprintf(c.conn, "%s\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the underlying connection.
func (c *LineClient) Close() {
	c.conn.Close()
}
