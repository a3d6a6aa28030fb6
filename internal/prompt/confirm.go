// Package prompt asks the user to confirm destructive operations. Every
// confirmer defaults to "no": only an explicit y/yes proceeds.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"resetdb/internal/logging"
)

// Confirmer asks a yes/no question. It has the same method set as
// eraser.Confirmer, which every confirmer in this package satisfies.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// IsYes reports whether answer is an affirmative ("y" or "yes", any case).
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// LineConfirmer reads one line of input per question.
type LineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLineConfirmer creates a LineConfirmer over in and out.
func NewLineConfirmer(in io.Reader, out io.Writer) *LineConfirmer {
	return &LineConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm writes the question with a [y/N] hint and reads the answer.
// End of input counts as "no".
func (c *LineConfirmer) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(c.out, "%s [y/N]: ", question)

	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(c.out)
	}

	ok := IsYes(line)
	logging.Get(logging.CategoryPrompt).Debugw("confirmation answered", "answer", strings.TrimSpace(line), "accepted", ok)
	return ok, nil
}

// Auto picks the terminal prompt when in is a terminal and the line prompt otherwise.
func Auto(in io.Reader, out io.Writer) Confirmer {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		logging.Get(logging.CategoryPrompt).Debug("using terminal confirmation")
		return NewTerminalConfirmer(f, out)
	}
	return NewLineConfirmer(in, out)
}
