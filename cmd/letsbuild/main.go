// Command letsbuild packs an electron-vue application
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/letsbuild/letsbuild/pkg/cli"
)

// version is set at build time
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := cli.ExecuteWithVersion(ctx, version)
	if err != nil && !cli.Reported(err) {
		_, _ = os.Stderr.WriteString(color.RedString("Error:") + " " + err.Error() + "\n")
	}
	return cli.ExitCode(err)
}
