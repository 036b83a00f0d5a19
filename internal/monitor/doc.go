// Package monitor implements the live dashboard TUI.
//
// The package uses the Bubble Tea framework (Model-Update-View):
//
//   - Model: the last dashboard snapshot plus UI state (selection, help, filter)
//   - Update: keystrokes become session calls, redraw ticks fetch a snapshot
//   - View: renders the header, page tabs and one card per widget
//
// # Message Flow
//
// Polling and chart storage live in the dashboard session. The TUI only
// reads from it:
//
//  1. tickMsg fires at the redraw interval (default 1s)
//  2. snapshotCmd asks the session for a copy of the current page
//  3. snapshotMsg replaces Model.snap and View re-renders
//
// Key presses call the session directly (navigate, refresh, sort, filter,
// reconnect) and trigger an immediate snapshot.
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C        - Quit
//	Tab / Shift+Tab  - Next / previous page
//	1-9              - Jump to page
//	j/k, ↑/↓         - Select widget
//	r / R            - Refresh widget / every widget
//	s / S            - Cycle sort column / reverse sort (tables)
//	/                - Filter table rows
//	c                - Reconnect the push transport
//	?                - Toggle help overlay
package monitor
