// Package agi implements the small slice of the Asterisk Gateway Interface
// protocol the call router needs: reading the environment block on startup
// and issuing VERBOSE / SET VARIABLE / GET VARIABLE commands over
// stdin/stdout.
package agi

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Session is one AGI conversation with Asterisk. Env holds the agi_*
// variables sent before the first command.
type Session struct {
	Env map[string]string

	r *bufio.Reader
	w io.Writer
}

// New reads the AGI environment block (terminated by a blank line) and
// returns a ready session.
func New(r io.Reader, w io.Writer) (*Session, error) {
	s := &Session{
		Env: map[string]string{},
		r:   bufio.NewReader(r),
		w:   w,
	}

	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading AGI environment: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		s.Env[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return s, nil
}

// command writes one AGI command and consumes the status line Asterisk
// answers with.
func (s *Session) command(format string, args ...interface{}) (string, error) {
	if _, err := fmt.Fprintf(s.w, format+"\n", args...); err != nil {
		return "", err
	}
	line, err := s.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Verbose logs a message into the Asterisk console at level 1.
func (s *Session) Verbose(message string) error {
	_, err := s.command(`VERBOSE %q 1`, message)
	return err
}

// SetVariable sets a channel variable for the dialplan.
func (s *Session) SetVariable(name, value string) error {
	_, err := s.command(`SET VARIABLE %s %q`, name, value)
	return err
}

// GetVariable fetches a channel variable; an unset variable returns "".
func (s *Session) GetVariable(name string) (string, error) {
	resp, err := s.command("GET VARIABLE %s", name)
	if err != nil {
		return "", err
	}
	if !strings.Contains(resp, "200 result=1") {
		return "", nil
	}
	start := strings.IndexByte(resp, '(')
	end := strings.LastIndexByte(resp, ')')
	if start == -1 || end == -1 || end < start {
		return "", nil
	}
	return resp[start+1 : end], nil
}
