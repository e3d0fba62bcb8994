package tui

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// copyToClipboard copies text to the system clipboard.
func copyToClipboard(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard: no clipboard tool available")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}
