// Package cli provides the interactive test tracker shell.
//
// It wires configuration, storage and the tracker services behind a
// line-oriented REPL. Testers pick a name with `user`, then check, uncheck,
// remark and attach screenshots to catalog test cases. Every command that
// records something goes through the reconciler, so a test case has at most
// one row per tester and day no matter how often it is toggled.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or input ends. Prompts are printed only when stdin is a terminal, so the
// same binary can be driven by a script.
package cli
