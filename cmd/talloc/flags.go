package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

const (
	verboseFlagName     = "verbose"
	configFlagName      = "config"
	contextFlagName     = "context"
	debugFlagName       = "debug"
	forceFlagName       = "force"
	keepGoingFlagName   = "keep-going"
	summaryFlagName     = "summary"
	addressFlagName     = "address"
	tokenFileFlagName   = "token-file"
	termFlagName        = "term"
	concurrencyFlagName = "concurrency"
	timeoutFlagName     = "timeout"

	noFollowRedirectsFlagName = "no-follow-redirects"
)

// verboseFlag is read with c.Count. Repeat the short form (-vv) or the long
// form; mixing both in one invocation is rejected by the parser.
func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    verboseFlagName,
		Aliases: []string{"v"},
		Count:   new(int),
		Usage:   "A level of verbosity, can be used multiple times",
	}
}

func configFlag() cli.Flag {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "~"
	}
	defaultConfigPath := filepath.Join(homeDir, ".talloc", "config")
	return &cli.StringFlag{
		Name:    configFlagName,
		Value:   defaultConfigPath,
		EnvVars: []string{"TALLOC_CONFIG"},
		Usage:   "Path to the talloc config file",
	}
}

func contextFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    contextFlagName,
		Value:   "default",
		EnvVars: []string{"TALLOC_CONTEXT"},
		Usage:   "Name of talloc config context to use",
	}
}

func debugFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    debugFlagName,
		Aliases: []string{"d"},
		EnvVars: []string{"TALLOC_DEBUG"},
		Usage:   "Print debug info, including http request logging",
	}
}

func getDebug(c *cli.Context) bool {
	return c.Bool(debugFlagName)
}

func forceFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    forceFlagName,
		Aliases: []string{"f"},
		Usage:   "Ask the server to bypass its response cache (listing only)",
	}
}

func keepGoingFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  keepGoingFlagName,
		Usage: "Print every application that could be fetched and report the ones that failed",
	}
}

func summaryFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  summaryFlagName,
		Usage: "Print a table of response status, size and latency to stderr",
	}
}

// The connection flags below carry no Value so that an unset flag never
// shadows the config file; DefaultText documents the built-in default.

func addressFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        addressFlagName,
		EnvVars:     []string{"TALLOC_ADDRESS"},
		DefaultText: defaultAddress,
		Usage:       "Address of the talloc server",
	}
}

func tokenFileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        tokenFileFlagName,
		EnvVars:     []string{"TALLOC_TOKEN_FILE"},
		DefaultText: defaultTokenFile,
		Usage:       "Path of the file holding the API token",
	}
}

func termFlag() cli.Flag {
	return &cli.UintFlag{
		Name:        termFlagName,
		EnvVars:     []string{"TALLOC_TERM"},
		DefaultText: "1",
		Usage:       "Term to fetch applications for",
	}
}

func concurrencyFlag() cli.Flag {
	return &cli.IntFlag{
		Name:        concurrencyFlagName,
		EnvVars:     []string{"TALLOC_CONCURRENCY"},
		DefaultText: "16",
		Usage:       "Maximum number of application requests in flight, 0 for no limit",
	}
}

func timeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:        timeoutFlagName,
		EnvVars:     []string{"TALLOC_TIMEOUT"},
		DefaultText: "none",
		Usage:       "Per-request timeout (e.g. 30s)",
	}
}

func noFollowRedirectsFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    noFollowRedirectsFlagName,
		EnvVars: []string{"TALLOC_NO_FOLLOW_REDIRECTS"},
		Usage:   "Print redirect responses instead of following them",
	}
}
