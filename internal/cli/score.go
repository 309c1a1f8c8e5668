package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigil-audio/sigil/internal/score"
)

// ScoreOptions holds flags for the score subcommands.
type ScoreOptions struct {
	*RootOptions
	By     float64 // transform amount
	Output string  // output file path; stdout when empty
}

// NewScoreCommand creates the score command group.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Transform score files",
	}

	cmd.AddCommand(newScoreTransformCommand(rootOpts, "shift",
		"Move every event later by --by seconds", score.Shift[string]))
	cmd.AddCommand(newScoreTransformCommand(rootOpts, "scale",
		"Multiply every event time by --by", score.Scale[string]))

	return cmd
}

// newScoreTransformCommand builds one transform subcommand. Shift and scale
// differ only in the function applied, so they share a constructor.
func newScoreTransformCommand(rootOpts *RootOptions, name, short string,
	apply func(float64, score.Score[string]) score.List[string]) *cobra.Command {
	opts := &ScoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           name + " <score.yaml>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScoreTransform(opts, apply, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.By, "by", 0, name+" amount")
	_ = cmd.MarkFlagRequired("by")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (stdout when omitted)")

	return cmd
}

func runScoreTransform(opts *ScoreOptions, apply func(float64, score.Score[string]) score.List[string],
	path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	in, err := score.Load(path)
	if err != nil {
		code := ErrCodeParse
		if errors.Is(err, os.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return fail(formatter, ExitCommandError, code, err.Error())
	}
	formatter.VerboseLog("Loaded %d event(s) from %s", len(in.Events), path)

	out := apply(opts.By, in)

	if opts.Output != "" {
		if err := score.Save(opts.Output, out); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeWriteFailed, err.Error())
		}
		if formatter.Format == "json" {
			return formatter.Success(map[string]interface{}{
				"written": opts.Output,
				"events":  len(out.Events),
				"total":   out.Total,
			})
		}
		fmt.Fprintf(formatter.Writer, "Wrote %d event(s) to %s\n", len(out.Events), opts.Output)
		return nil
	}

	if formatter.Format == "json" {
		return formatter.Success(scoreJSON(out))
	}

	data, err := score.Marshal(out)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
	}
	_, _ = formatter.Writer.Write(data)
	return nil
}

// scoreJSON is the JSON shape of a transformed score.
func scoreJSON(l score.List[string]) map[string]interface{} {
	events := make([]map[string]interface{}, len(l.Events))
	for i, ev := range l.Events {
		events[i] = map[string]interface{}{
			"start": ev.Start,
			"dur":   ev.Dur,
			"note":  ev.Content,
		}
	}
	return map[string]interface{}{
		"total":  l.Total,
		"events": events,
	}
}
