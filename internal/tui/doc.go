// Package tui provides terminal user interface components for centic-ctl.
//
// This package uses the Bubble Tea framework for the interactive account
// picker behind "centic-ctl pick".
//
// # Account Picker
//
// The picker lists every account with its rank, point total, unclaimed task
// count and assigned proxy:
//
//	result, err := tui.RunPicker(accounts)
//	switch result.Action {
//	case tui.ActionClaim:
//	    // Run a claim pass for accounts[result.Index]
//	case tui.ActionTasks:
//	    // Print the unclaimed tasks of accounts[result.Index]
//	case tui.ActionQuit:
//	    // Exit
//	}
//
// SimplePicker renders the same list as plain text for non-interactive
// output.
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
