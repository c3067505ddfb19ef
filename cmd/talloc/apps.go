package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/SpanishPear/talloc-cli/client"
	"github.com/SpanishPear/talloc-cli/pkg/fanout"
	"github.com/SpanishPear/talloc-cli/pkg/secure"
	"github.com/SpanishPear/talloc-cli/pkg/tallochttp"
	"github.com/SpanishPear/talloc-cli/pkg/token"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func appsCommand() *cli.Command {
	return &cli.Command{
		Name:      "apps",
		Usage:     "Fetch applications",
		UsageText: `talloc apps [options] [zids...]`,
		Description: `Without arguments, prints every application for the term. With one or more
zids, fetches the application of each applicant concurrently and prints them
in the order given.`,
		Flags: []cli.Flag{
			debugFlag(),
			forceFlag(),
			keepGoingFlag(),
			summaryFlag(),
			addressFlag(),
			tokenFileFlag(),
			termFlag(),
			concurrencyFlag(),
			timeoutFlag(),
			noFollowRedirectsFlag(),
		},
		Action: func(c *cli.Context) error {
			verbosity := c.Count(verboseFlagName)
			fmt.Fprintln(c.App.Writer, verbosityMessage(verbosity))

			logger := newLogger(c.App.ErrWriter, verbosity, getDebug(c))

			ids := c.Args().Slice()
			for _, id := range ids {
				if strings.HasPrefix(id, "-") {
					return fmt.Errorf("%q looks like an option: options must come before the zids", id)
				}
			}

			s, err := settingsFromCLI(c)
			if err != nil {
				return err
			}
			logger.Info().
				Str("address", s.Address).
				Uint("term", s.Term).
				Int("concurrency", s.Concurrency).
				Dur("timeout", s.Timeout).
				Msg("configuration loaded")

			tallocClient, err := clientFromSettings(s, getDebug(c), logger)
			if err != nil {
				return err
			}

			if len(ids) == 0 {
				return dumpAllApplications(c.Context, c.App.Writer, tallocClient, s.Term, c.Bool(forceFlagName))
			}

			opts := fanout.Options{
				Limit:     s.Concurrency,
				KeepGoing: c.Bool(keepGoingFlagName),
			}
			return dumpApplications(c.Context, c.App.Writer, c.App.ErrWriter, tallocClient, s.Term, ids, opts, c.Bool(summaryFlagName))
		},
	}
}

// clientFromSettings loads the token and returns an authenticated client.
func clientFromSettings(s settings, debug bool, logger zerolog.Logger) (*client.Client, error) {
	var permErr *secure.PermissionError
	if err := secure.CheckPrivate(s.TokenFile); errors.As(err, &permErr) {
		logger.Warn().Msg(permErr.Error())
	}
	tok, err := token.Load(s.TokenFile)
	if err != nil {
		return nil, err
	}
	if claims, err := token.Inspect(tok); err != nil {
		logger.Debug().Err(err).Msg("token is not a readable JWT")
	} else {
		logger.Info().Str("subject", claims.Subject).Time("expires", claims.ExpiresAt).Msg("token loaded")
		if claims.Expired(time.Now()) {
			logger.Warn().Time("expired", claims.ExpiresAt).Msg("token appears to have expired, requests may be rejected")
		}
	}

	tlsConf, err := tallochttp.TLSConfig(s.TLSSkipVerify, s.RootCA)
	if err != nil {
		return nil, err
	}
	httpOpts := []tallochttp.ClientOpt{
		tallochttp.WithTimeout(s.Timeout),
		tallochttp.WithFollowRedir(!s.NoFollowRedirects),
	}
	if tlsConf != nil {
		httpOpts = append(httpOpts, tallochttp.WithTLSClientConfig(tlsConf))
	}

	options := []client.ClientOption{
		client.WithHTTPClient(tallochttp.NewClient(httpOpts...)),
		client.WithLogger(logger),
	}
	if len(s.CustomHeaders) > 0 {
		options = append(options, client.WithCustomHeaders(s.CustomHeaders))
	}
	if debug {
		options = append(options, client.EnableDebug())
	}

	tallocClient, err := client.NewClient(s.Address, options...)
	if err != nil {
		return nil, fmt.Errorf("error creating talloc API client: %w", err)
	}
	tallocClient.SetToken(tok)
	return tallocClient, nil
}

func dumpAllApplications(ctx context.Context, w io.Writer, c *client.Client, term uint, force bool) error {
	res, err := c.ListApplications(ctx, term, force)
	if err != nil {
		return fmt.Errorf("All application request failed: %w", err)
	}
	fmt.Fprintln(w, res.Body)
	return nil
}

// dumpApplications prints nothing until every request has finished, so a
// fail-fast run that errors never produces partial output.
func dumpApplications(
	ctx context.Context,
	w, errW io.Writer,
	c *client.Client,
	term uint,
	ids []string,
	opts fanout.Options,
	summary bool,
) error {
	progress, stop := startProgress(errW, len(ids))
	opts.Progress = progress

	results, err := fanout.Run[*client.RawResponse](ctx, ids, func(ctx context.Context, id string) (*client.RawResponse, error) {
		return c.GetApplication(ctx, term, id)
	}, opts)
	stop()
	if err != nil && !opts.KeepGoing {
		return fmt.Errorf("Application request failed: %w", err)
	}

	for _, r := range results {
		if r.Err == nil {
			fmt.Fprintln(w, r.Value.Body)
		}
	}
	if summary {
		printSummary(errW, results)
	}
	if err != nil {
		printFailures(errW, results)
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		return fmt.Errorf("%d of %d application requests failed", failed, len(ids))
	}
	return nil
}
