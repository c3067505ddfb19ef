package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/SpanishPear/talloc-cli/pkg/version"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := createApp(os.Stdin, os.Stdout, os.Stderr, exitErrHandler)
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1)
	}
}

// exitErrHandler prints errors that carry their own exit code. Plain errors
// are returned from RunContext and reported by main.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	if exitErr, ok := err.(cli.ExitCoder); ok {
		fmt.Fprintf(c.App.ErrWriter, "Error: %s\n", err)
		os.Exit(exitErr.ExitCode())
	}
}

func createApp(reader io.Reader, stdout, stderr io.Writer, exitErrHandler cli.ExitErrHandlerFunc) *cli.App {
	app := cli.NewApp()
	app.Name = version.AppName
	app.Usage = "CLI for fetching talloc applications"
	app.Version = version.Version().Version
	app.ExitErrHandler = exitErrHandler
	app.UseShortOptionHandling = true
	app.Reader = reader
	app.Writer = stdout
	app.ErrWriter = stderr

	// The default version flag aliases -v, which is the verbosity flag here.
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "Print version information",
	}
	cli.VersionPrinter = func(c *cli.Context) {
		version.PrintFull(c.App.Writer)
	}

	app.Flags = []cli.Flag{
		verboseFlag(),
		configFlag(),
		contextFlag(),
	}
	app.Commands = []*cli.Command{
		appsCommand(),
		configCommand(),
	}
	return app
}
