package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio reads from one input and writes to one output.
// Passwords are read without echo when the input is a terminal.
type Stdio struct {
	out    io.Writer
	reader *bufio.Reader
	fd     int
	tty    bool
}

// NewStdio returns IO over the process stdin/stdout.
func NewStdio() IO {
	fd := int(os.Stdin.Fd())
	return &Stdio{
		out:    os.Stdout,
		reader: bufio.NewReader(os.Stdin),
		fd:     fd,
		tty:    term.IsTerminal(fd),
	}
}

// New returns IO over arbitrary streams (scripts, tests). Passwords are read as plain lines.
func New(in io.Reader, out io.Writer) IO {
	return &Stdio{out: out, reader: bufio.NewReader(in)}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (s *Stdio) ReadPassword(prompt string) (string, error) {
	if !s.tty {
		return s.ReadInput(prompt)
	}
	s.Printf("%s", prompt)
	pwBytes, err := term.ReadPassword(s.fd)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}
