// Package cliutil holds the small pieces of terminal interaction shared by
// every qrfs-* command: passphrase prompting and exit-code conventions.
package cliutil

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/term"
)

// PromptPassphrase reads a passphrase from the controlling terminal without
// echoing it, falling back to a plain line read from stdin when stdin is
// not a terminal (useful for scripted tests and CI). prompt is written to
// stderr so it doesn't pollute piped stdout.
func PromptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(bytes), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return trimNewline(line), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// Fail prints err to stderr and exits with a non-zero status, the
// uniform failure path every qrfs-* tool uses (spec.md §6's "exit codes:
// 0 on success, non-zero on any failure").
func Fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
