// Package ui provides terminal output helpers for ldash's non-TUI commands.
//
// # Components Overview
//
//	Spinner        - Animated status line for probes and fetches
//	Tables         - Plain renderings of agent tables and key-value lists
//	SSHHostPicker  - Interactive alias picker used by `ldash init`
//	Header         - Branded title line
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Successful operations
//	ColorError     (red)    - Failures and errors
//	ColorWarning   (yellow) - Warnings and skipped items
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text, timing info
//	ColorSecondary (blue)   - In-progress indicators
//
// Use DisableColors() to switch to monochrome output (for --no-color flag).
package ui
