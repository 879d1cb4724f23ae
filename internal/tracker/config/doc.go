// Package config loads tracker settings. Values are layered: built-in
// defaults, then an optional JSON file named by -c/-config, then
// command-line flags. Later sources win.
package config
