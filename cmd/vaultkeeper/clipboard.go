package main

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var errClipboardDisabled = errors.New("clipboard is disabled in the configuration")

// copyToClipboard copies text to the system clipboard. The clipboard is
// readable by every process of the user.
func copyToClipboard(text string) error {
	if !cfg.Clipboard {
		return errClipboardDisabled
	}
	if clipboard.Unsupported {
		return errors.New("clipboard tool not found: install xclip, xsel or wl-clipboard")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// copyOrPrint copies a generated password to the clipboard, falling back to
// printing it when the clipboard is unavailable.
func copyOrPrint(cmd *cobra.Command, password string) {
	if err := copyToClipboard(password); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Generated password: %s\n", password)
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Generated password copied to clipboard")
}
