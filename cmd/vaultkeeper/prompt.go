package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	lineReader *bufio.Reader
	lineSource io.Reader
)

// stdinIsTerminal reports whether the process stdin is a terminal.
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readLine reads one line from the command input without the line ending.
func readLine(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if lineReader == nil || lineSource != in {
		lineReader = bufio.NewReader(in)
		lineSource = in
	}

	line, err := lineReader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// prompt writes label to stderr and reads a line.
func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	return readLine(cmd)
}

// readSecret reads a value without echo when stdin is a terminal, and a
// plain line otherwise.
func readSecret(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)

	if cmd.InOrStdin() == os.Stdin && stdinIsTerminal() {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := readLine(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return line, nil
}

// readNewSecret reads a value twice and requires both entries to match.
func readNewSecret(cmd *cobra.Command, label string) (string, error) {
	first, err := readSecret(cmd, label)
	if err != nil {
		return "", err
	}
	second, err := readSecret(cmd, "Confirm "+strings.ToLower(label[:1])+label[1:])
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

// confirm asks a yes/no question; anything but y/yes is no.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	answer, err := prompt(cmd, question+" [y/N]: ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
