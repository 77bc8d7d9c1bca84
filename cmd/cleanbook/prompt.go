package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jmaccleaning/cleanbook/internal/api"
	"github.com/jmaccleaning/cleanbook/internal/payments"
)

// PromptConfirmer asks the user before handing the intent to the wrapped
// confirmer. Anything but an explicit yes is a cancellation, not a decline.
type PromptConfirmer struct {
	next payments.Confirmer
	in   io.Reader
	out  io.Writer
}

// NewPromptConfirmer wraps next with an interactive yes/no prompt.
func NewPromptConfirmer(next payments.Confirmer, in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{next: next, in: in, out: out}
}

// Confirm implements payments.Confirmer.
func (p *PromptConfirmer) Confirm(ctx context.Context, intent api.PaymentIntent) error {
	if !confirmPrompt(p.in, p.out, "Charge your card now?") {
		return payments.ErrCancelled
	}
	return p.next.Confirm(ctx, intent)
}

// confirmPrompt reads one line and reports whether it was an explicit yes.
func confirmPrompt(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
