/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Seednode/oracle/deck"
	"github.com/Seednode/oracle/quotes"
	"github.com/Seednode/oracle/rng"
)

func readQuestions(path string, stdin io.Reader) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(stdin)
		return string(data), err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func printPair(w io.Writer, pair deck.Pair) {
	title := color.New(color.FgCyan, color.Bold)
	emphasis := color.New(color.FgHiWhite, color.Bold)
	faint := color.New(color.Faint)

	title.Fprintln(w, pair.Person)
	fmt.Fprintln(w, deck.Blessing(pair.Person))
	emphasis.Fprintln(w, "  "+pair.Question)
	faint.Fprintln(w, deck.Readiness)
}

func printQuote(w io.Writer, q quotes.Quote) {
	color.New(color.FgCyan).Fprintln(w, q.String())
	if q.Offline {
		color.New(color.FgYellow).Fprintln(w, "(offline, showing a local quote)")
	}
}

func newDecideCmd(cfg *Config) *cobra.Command {
	var (
		questionsFile string
		people        string
		seed          string
	)

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Pair a random question with a random person in the terminal",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			questions, err := readQuestions(questionsFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			if seed == "" {
				seed = rng.DefaultSeed(time.Now())
			}
			logf(cfg, "DECIDE: Using seed %q", seed)

			pair, err := deck.Draw(rng.FromSeed(seed), questions, people)
			var verr *deck.ValidationError
			if errors.As(err, &verr) {
				return errors.New(verr.Message)
			}
			if err != nil {
				return err
			}

			printPair(cmd.OutOrStdout(), pair)

			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&questionsFile, "questions-file", "q", "", "file with one question per line, - for stdin")
	fs.StringVarP(&people, "people", "n", "", "comma-separated participant names")
	fs.StringVar(&seed, "seed", "", "seed string, defaults to the seed phrase and current time")

	return cmd
}

func newQuoteCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "quote",
		Short: "Print a random quote, falling back to a local one when offline",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}

			f := quotes.NewFetcher(cfg.quoteEndpoint, cfg.quoteTimeout, rng.FromSeed(rng.DefaultSeed(time.Now())), cfg.log())

			printQuote(cmd.OutOrStdout(), f.Fetch(cmd.Context()))

			return nil
		},
	}
}
