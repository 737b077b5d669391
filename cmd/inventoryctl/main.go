// Command inventoryctl runs inventory transactions against the configured
// store without the web server. It uses the same engine, so every command
// resolves, validates and reloads exactly like an HTTP request.
package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/stockroom/internal/core"
)

// Exit codes.
const (
	exitSuccess  = 0
	exitRejected = 1
	exitSysError = 2
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.execute(); err != nil {
		code := exitCode(err)
		if code == exitSysError && core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(code)
	}
	os.Exit(exitSuccess)
}
