// Package theme loads colour themes for the toast TUI. Themes are TOML files
// from the user's themes directory (~/.config/toastd/themes/) or bundled
// with the binary, and may extend one another.
package theme
