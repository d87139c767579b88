package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cyberauditpro/cyberaudit/core"
	"golang.org/x/term"
)

// terminalPrompter asks the person at the terminal
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newTerminalPrompter(out io.Writer) *terminalPrompter {
	return &terminalPrompter{
		in:  bufio.NewReader(os.Stdin),
		out: out,
		fd:  int(os.Stdin.Fd()),
	}
}

func (p *terminalPrompter) Passphrase(ctx context.Context, account string) (string, error) {
	fmt.Fprintf(p.out, "Passphrase for %s: ", account)
	if term.IsTerminal(p.fd) {
		return p.await(ctx, func() (string, error) {
			raw, err := term.ReadPassword(p.fd)
			fmt.Fprintln(p.out)
			return string(raw), err
		})
	}
	return p.await(ctx, p.readLine)
}

func (p *terminalPrompter) Confirm(ctx context.Context, message string) (bool, error) {
	fmt.Fprintf(p.out, "\n%s\n\nSign this message? [y/N]: ", message)
	answer, err := p.await(ctx, p.readLine)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *terminalPrompter) ShowPairing(uri string) {
	fmt.Fprintf(p.out, "Open this link on the device holding your wallet:\n\n  %s\n\nWaiting for the wallet to connect...\n", uri)
}

func (p *terminalPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if errors.Is(err, io.EOF) && line == "" {
		return "", core.UserRejected("prompt closed")
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// await runs a blocking read and gives up when ctx ends. The abandoned read
// finishes in the background.
func (p *terminalPrompter) await(ctx context.Context, read func() (string, error)) (string, error) {
	type result struct {
		s   string
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := read()
		done <- result{s, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.s, r.err
	}
}
