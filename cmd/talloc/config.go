package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SpanishPear/talloc-cli/pkg/secure"
	"github.com/SpanishPear/talloc-cli/pkg/token"
	"github.com/ghodss/yaml"
	"github.com/urfave/cli/v2"
)

const (
	configFilePerms = 0o600

	defaultAddress     = "https://talloc.web.cse.unsw.edu.au"
	defaultTokenFile   = token.DefaultPath
	defaultTerm        = 1
	defaultConcurrency = 16
)

var configKeys = []string{
	"address", "token-file", "term", "concurrency", "timeout", "tls-skip-verify", "rootca", "custom-headers",
	"no-follow-redirects",
}

type configFile struct {
	Contexts map[string]Context `json:"contexts"`
}

// Context is a named set of connection settings in the config file. Unset
// fields fall back to the built-in defaults.
type Context struct {
	Address       string            `json:"address,omitempty"`
	TokenFile     string            `json:"token-file,omitempty"`
	Term          uint              `json:"term,omitempty"`
	Concurrency   *int              `json:"concurrency,omitempty"`
	Timeout       string            `json:"timeout,omitempty"`
	TLSSkipVerify bool              `json:"tls-skip-verify,omitempty"`
	RootCA        string            `json:"rootca,omitempty"`
	CustomHeaders map[string]string `json:"custom-headers,omitempty"`

	NoFollowRedirects bool `json:"no-follow-redirects,omitempty"`
}

// settings is the effective configuration of a run.
type settings struct {
	Address       string
	TokenFile     string
	Term          uint
	Concurrency   int
	Timeout       time.Duration
	TLSSkipVerify bool
	RootCA        string
	CustomHeaders map[string]string

	NoFollowRedirects bool
}

func defaultSettings() settings {
	return settings{
		Address:     defaultAddress,
		TokenFile:   defaultTokenFile,
		Term:        defaultTerm,
		Concurrency: defaultConcurrency,
	}
}

func (s *settings) applyContext(cc Context) error {
	if cc.Address != "" {
		s.Address = cc.Address
	}
	if cc.TokenFile != "" {
		s.TokenFile = cc.TokenFile
	}
	if cc.Term != 0 {
		s.Term = cc.Term
	}
	if cc.Concurrency != nil {
		s.Concurrency = *cc.Concurrency
	}
	if cc.Timeout != "" {
		d, err := time.ParseDuration(cc.Timeout)
		if err != nil {
			return fmt.Errorf("parse timeout %q: %w", cc.Timeout, err)
		}
		s.Timeout = d
	}
	s.TLSSkipVerify = cc.TLSSkipVerify
	s.RootCA = cc.RootCA
	s.CustomHeaders = cc.CustomHeaders
	s.NoFollowRedirects = cc.NoFollowRedirects
	return nil
}

// settingsFromCLI layers the selected config context and then any explicitly
// set flag or environment variable over the defaults.
func settingsFromCLI(c *cli.Context) (settings, error) {
	s := defaultSettings()

	config, err := readConfig(c.String(configFlagName))
	if err != nil {
		return s, fmt.Errorf("error reading config at %s: %w", c.String(configFlagName), err)
	}
	name := c.String(contextFlagName)
	cc, ok := config.Contexts[name]
	if !ok && name != "default" {
		return s, fmt.Errorf("context %q is not found", name)
	}
	if err := s.applyContext(cc); err != nil {
		return s, fmt.Errorf("context %q: %w", name, err)
	}

	if c.IsSet(addressFlagName) {
		s.Address = c.String(addressFlagName)
	}
	if c.IsSet(tokenFileFlagName) {
		s.TokenFile = c.String(tokenFileFlagName)
	}
	if c.IsSet(termFlagName) {
		s.Term = c.Uint(termFlagName)
	}
	if c.IsSet(concurrencyFlagName) {
		s.Concurrency = c.Int(concurrencyFlagName)
	}
	if c.IsSet(timeoutFlagName) {
		s.Timeout = c.Duration(timeoutFlagName)
	}
	if c.IsSet(noFollowRedirectsFlagName) {
		s.NoFollowRedirects = c.Bool(noFollowRedirectsFlagName)
	}

	if s.Concurrency < 0 {
		return s, fmt.Errorf("concurrency must not be negative, got %d", s.Concurrency)
	}
	return s, nil
}

// readConfig treats a missing file as an empty configuration.
func readConfig(fp string) (configFile, error) {
	c := configFile{Contexts: map[string]Context{}}
	b, err := os.ReadFile(fp)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return c, nil
	case err != nil:
		return c, err
	}

	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Contexts == nil {
		c.Contexts = map[string]Context{}
	}
	return c, nil
}

func writeConfig(fp string, c configFile) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return secure.WriteFile(fp, b, configFilePerms)
}

func getConfigValue(configPath, context, key string) (interface{}, error) {
	config, err := readConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config at %s: %w", configPath, err)
	}

	cc := config.Contexts[context]
	switch key {
	case "address":
		return cc.Address, nil
	case "token-file":
		return cc.TokenFile, nil
	case "term":
		return cc.Term, nil
	case "concurrency":
		if cc.Concurrency == nil {
			return "", nil
		}
		return *cc.Concurrency, nil
	case "timeout":
		return cc.Timeout, nil
	case "tls-skip-verify":
		return cc.TLSSkipVerify, nil
	case "rootca":
		return cc.RootCA, nil
	case "custom-headers":
		return cc.CustomHeaders, nil
	case "no-follow-redirects":
		return cc.NoFollowRedirects, nil
	default:
		return nil, fmt.Errorf("%q is an invalid key", key)
	}
}

func setConfigValue(configPath, context, key string, value interface{}) error {
	config, err := readConfig(configPath)
	if err != nil {
		return fmt.Errorf("error reading config at %s: %w", configPath, err)
	}

	cc := config.Contexts[context]

	var strVal string
	if key != "custom-headers" {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("error setting %q, string value expected, got %T", key, value)
		}
		strVal = s
	}

	switch key {
	case "address":
		cc.Address = strVal
	case "token-file":
		cc.TokenFile = strVal
	case "term":
		term, err := strconv.ParseUint(strVal, 10, 0)
		if err != nil {
			return fmt.Errorf("error parsing %q as term: %w", strVal, err)
		}
		cc.Term = uint(term)
	case "concurrency":
		n, err := strconv.Atoi(strVal)
		if err != nil {
			return fmt.Errorf("error parsing %q as concurrency: %w", strVal, err)
		}
		if n < 0 {
			return fmt.Errorf("concurrency must not be negative, got %d", n)
		}
		cc.Concurrency = &n
	case "timeout":
		if _, err := time.ParseDuration(strVal); err != nil {
			return fmt.Errorf("error parsing %q as duration: %w", strVal, err)
		}
		cc.Timeout = strVal
	case "tls-skip-verify":
		b, err := strconv.ParseBool(strVal)
		if err != nil {
			return fmt.Errorf("error parsing %q as bool: %w", strVal, err)
		}
		cc.TLSSkipVerify = b
	case "no-follow-redirects":
		b, err := strconv.ParseBool(strVal)
		if err != nil {
			return fmt.Errorf("error parsing %q as bool: %w", strVal, err)
		}
		cc.NoFollowRedirects = b
	case "rootca":
		cc.RootCA = strVal
	case "custom-headers":
		vals, ok := value.([]string)
		if !ok {
			return fmt.Errorf("error setting %q, []string value expected, got %T", key, value)
		}
		hdrs := make(map[string]string, len(vals))
		for _, h := range vals {
			name, val, _ := strings.Cut(h, ":")
			hdrs[name] = val
		}
		cc.CustomHeaders = hdrs
	default:
		return fmt.Errorf("%q is an invalid option", key)
	}

	config.Contexts[context] = cc
	if err := writeConfig(configPath, config); err != nil {
		return fmt.Errorf("error saving config file: %w", err)
	}
	return nil
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Modify how and which talloc server to connect to",
		Subcommands: []*cli.Command{
			configSetCommand(),
			configGetCommand(),
		},
	}
}

func configSetCommand() *cli.Command {
	var (
		flAddress       string
		flTokenFile     string
		flTerm          string
		flConcurrency   string
		flTimeout       string
		flTLSSkipVerify bool
		flRootCA        string
		flCustomHeaders cli.StringSlice
		flNoFollow      bool
	)
	return &cli.Command{
		Name:      "set",
		Usage:     "Set config options",
		UsageText: `talloc config set [options]`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "address",
				Destination: &flAddress,
				Usage:       "Address of the talloc server",
			},
			&cli.StringFlag{
				Name:        "token-file",
				Destination: &flTokenFile,
				Usage:       "Path of the file holding the API token",
			},
			&cli.StringFlag{
				Name:        "term",
				Destination: &flTerm,
				Usage:       "Term to fetch applications for",
			},
			&cli.StringFlag{
				Name:        "concurrency",
				Destination: &flConcurrency,
				Usage:       "Maximum number of application requests in flight, 0 for no limit",
			},
			&cli.StringFlag{
				Name:        "timeout",
				Destination: &flTimeout,
				Usage:       "Per-request timeout (e.g. 30s)",
			},
			&cli.BoolFlag{
				Name:        "tls-skip-verify",
				Destination: &flTLSSkipVerify,
				Usage:       "Skip TLS certificate validation",
			},
			&cli.StringFlag{
				Name:        "rootca",
				Destination: &flRootCA,
				Usage:       "Specify RootCA chain used to communicate with talloc",
			},
			&cli.StringSliceFlag{
				Name:        "custom-header",
				Destination: &flCustomHeaders,
				Usage:       "Specify a custom header as 'Header:Value' to be set on every request (can be specified multiple times, replaces any existing custom headers)",
			},
			&cli.BoolFlag{
				Name:        "no-follow-redirects",
				Destination: &flNoFollow,
				Usage:       "Print redirect responses instead of following them",
			},
		},
		Action: func(c *cli.Context) error {
			configPath, context := c.String(configFlagName), c.String(contextFlagName)

			values := []struct {
				key   string
				value interface{}
				set   bool
			}{
				{"address", flAddress, flAddress != ""},
				{"token-file", flTokenFile, flTokenFile != ""},
				{"term", flTerm, flTerm != ""},
				{"concurrency", flConcurrency, flConcurrency != ""},
				{"timeout", flTimeout, flTimeout != ""},
				{"tls-skip-verify", "true", flTLSSkipVerify},
				{"rootca", flRootCA, flRootCA != ""},
				{"custom-headers", flCustomHeaders.Value(), len(flCustomHeaders.Value()) > 0},
				{"no-follow-redirects", "true", flNoFollow},
			}

			set := false
			for _, v := range values {
				if !v.set {
					continue
				}
				set = true
				if err := setConfigValue(configPath, context, v.key, v.value); err != nil {
					return fmt.Errorf("error setting %s: %w", v.key, err)
				}
				fmt.Fprintf(c.App.Writer, "[+] Set the %s config key to %v in the %q context\n", v.key, v.value, context)
			}

			if !set {
				return cli.ShowSubcommandHelp(c)
			}
			return nil
		},
	}
}

func configGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get a config option",
		UsageText: `talloc config get [options] <key>`,
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.ShowSubcommandHelp(c)
			}

			key := c.Args().Get(0)
			valid := false
			for _, k := range configKeys {
				if k == key {
					valid = true
					break
				}
			}
			if !valid {
				return cli.ShowSubcommandHelp(c)
			}

			configPath, context := c.String(configFlagName), c.String(contextFlagName)
			value, err := getConfigValue(configPath, context, key)
			if err != nil {
				return fmt.Errorf("error getting config value: %w", err)
			}

			fmt.Fprintf(c.App.Writer, "  %s.%s => %v\n", context, key, value)
			return nil
		},
	}
}
