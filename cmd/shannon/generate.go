package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shannon/cmd/shannon/ui"
	"shannon/internal/backend"
	"shannon/internal/form"
	"shannon/internal/generation"
	"shannon/internal/ingest"
	"shannon/internal/notify"
	"shannon/internal/results"
	"shannon/internal/submission"
)

var (
	genStrength  int
	genSentences int
	genLocal     bool
	genPlain     bool
	genWidth     int
)

// generateCmd runs one submission without the interactive UI
var generateCmd = &cobra.Command{
	Use:   "generate FILE",
	Short: "Generate sentences from a .txt file and print them",
	Long: `Uploads FILE, submits it with the given parameters and prints the
generated sentences in the order the service returned them.

Examples:
  shannon generate corpus.txt --strength 3 --sentences 5
  shannon generate corpus.txt --local --plain`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVarP(&genStrength, "strength", "s", form.MinStrength, "Model strength (1-4)")
	generateCmd.Flags().IntVarP(&genSentences, "sentences", "n", form.MinSentenceCount, "Number of sentences (1-10)")
	generateCmd.Flags().BoolVar(&genLocal, "local", false, "Use the configured server backend in-process instead of the endpoint")
	generateCmd.Flags().BoolVar(&genPlain, "plain", false, "Print one sentence per line without styling")
	generateCmd.Flags().IntVar(&genWidth, "width", 80, "Wrap width for styled output")
}

// cliSink reports notifications on stderr and in the log.
func cliSink(w io.Writer) notify.Sink {
	return notify.SinkFunc(func(kind notify.Kind, title, detail string) {
		logger.Debug("notification", zap.String("kind", string(kind)), zap.String("title", title), zap.String("detail", detail))
		if kind != notify.KindError {
			return
		}
		if detail != "" {
			fmt.Fprintf(w, "%s: %s\n", title, detail)
			return
		}
		fmt.Fprintln(w, title)
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genStrength < form.MinStrength || genStrength > form.MaxStrength {
		return fmt.Errorf("--strength must be between %d and %d", form.MinStrength, form.MaxStrength)
	}
	if genSentences < form.MinSentenceCount || genSentences > form.MaxSentenceCount {
		return fmt.Errorf("--sentences must be between %d and %d", form.MinSentenceCount, form.MaxSentenceCount)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := cliSink(cmd.ErrOrStderr())
	f := form.New(sink)
	in := ingest.New(ingest.Options{Sink: sink, OnAccepted: f.SetFile})
	if res := in.AcceptPaths(args); res.Accepted == nil {
		return errors.New("file rejected")
	}
	f.SetStrength(genStrength)
	f.SetSentenceCount(genSentences)

	sub, err := f.Submit()
	if err != nil {
		return err
	}

	if genLocal {
		var flush func()
		ctx, flush = withUsage(ctx)
		defer flush()
	}
	gen, err := resolveGenerator(ctx)
	if err != nil {
		return err
	}

	// Headless runs always recover: a stalled CLI would never exit.
	ctrl := submission.New(submission.Options{
		Generator: gen,
		Sink:      sink,
		Policy:    submission.PolicyRecover,
		OnChange: func(from, to submission.State) {
			logger.Debug("state", zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
	logger.Info("submitting",
		zap.String("file", sub.File.Name),
		zap.Stringer("config", sub.Config),
		zap.String("policy", string(ctrl.Policy())))

	sentences, err := ctrl.Run(ctx, sub)
	if err != nil {
		return err
	}
	printSentences(cmd.OutOrStdout(), sentences)
	return nil
}

func resolveGenerator(ctx context.Context) (generation.Generator, error) {
	if genLocal {
		return backend.New(ctx, cfg)
	}
	return generation.NewClient(cfg.Client.Endpoint, cfg.GetClientTimeout()), nil
}

func printSentences(w io.Writer, sentences []string) {
	if genPlain {
		for _, s := range sentences {
			fmt.Fprintln(w, s)
		}
		return
	}
	p := results.New(ui.NewStyles(ui.ThemeByName(cfg.UI.Theme)).Results(), nil)
	p.SetWidth(genWidth)
	fmt.Fprintln(w, results.Header)
	for _, b := range p.Blocks(sentences) {
		fmt.Fprintln(w, b)
	}
}

