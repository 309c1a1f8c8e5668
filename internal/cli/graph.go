package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigil-audio/sigil/internal/cache"
	"github.com/sigil-audio/sigil/internal/dump"
	"github.com/sigil-audio/sigil/internal/ir"
	"github.com/sigil-audio/sigil/internal/linear"
	"github.com/sigil-audio/sigil/internal/verify"
)

// GraphOptions holds flags for the graph subcommands.
type GraphOptions struct {
	*RootOptions
	CachePath  string // id: also record the graph in this cache database
	Statements bool   // dump: print the tagged statement order instead of the tree
}

// NewGraphCommand creates the graph command group.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Work with canonical instrument graphs",
	}

	idCmd := &cobra.Command{
		Use:           "id <graph.json>",
		Short:         "Print a graph's content identity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphID(opts, args[0], cmd)
		},
	}
	idCmd.Flags().StringVar(&opts.CachePath, "cache", "", "also record the graph in this cache database")

	dumpCmd := &cobra.Command{
		Use:           "dump <graph.json>",
		Short:         "Print a graph as indented diagnostic text",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphDump(opts, args[0], cmd)
		},
	}
	dumpCmd.Flags().BoolVar(&opts.Statements, "statements", false, "print the tagged statements in execution order")

	verifyCmd := &cobra.Command{
		Use:           "verify <graph.json>",
		Short:         "Check a graph for rate and ordering errors",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphVerify(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(idCmd)
	cmd.AddCommand(dumpCmd)
	cmd.AddCommand(verifyCmd)

	return cmd
}

func runGraphID(opts *GraphOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	e, err := loadGraph(path, formatter)
	if err != nil {
		return err
	}

	id, err := ir.GraphID(e)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if opts.CachePath != "" {
		c, err := cache.Open(opts.CachePath)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
		}
		defer c.Close()
		if _, err := c.Put(cmd.Context(), e); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
		}
		formatter.VerboseLog("Recorded graph in %s", opts.CachePath)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{"id": id})
	}
	fmt.Fprintln(formatter.Writer, id)
	return nil
}

func runGraphDump(opts *GraphOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	e, err := loadGraph(path, formatter)
	if err != nil {
		return err
	}

	var text string
	if opts.Statements {
		text = dump.Statements(linear.Statements(e))
	} else {
		text = dump.Graph(e)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{"dump": text})
	}
	fmt.Fprint(formatter.Writer, text)
	return nil
}

func runGraphVerify(opts *GraphOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	e, err := loadGraph(path, formatter)
	if err != nil {
		return err
	}

	errs := verify.Check(e)
	if len(errs) == 0 {
		if formatter.Format == "json" {
			return formatter.Success(map[string]interface{}{"valid": true})
		}
		fmt.Fprintln(formatter.Writer, "✓ graph verifies")
		return nil
	}

	return outputVerifyErrors(formatter, errs)
}

// outputVerifyErrors reports verification findings. Findings are domain
// failures, not command errors, so the exit code is ExitFailure.
func outputVerifyErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		findings := make([]map[string]interface{}, len(errs))
		for i, err := range errs {
			findings[i] = verifyJSON(err)
		}
		_ = formatter.Error(ErrCodeVerify,
			fmt.Sprintf("graph failed verification with %d finding(s)", len(errs)), findings)
		return NewExitError(ExitFailure, fmt.Sprintf("verification failed with %d finding(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ graph does not verify")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", err)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("verification failed with %d finding(s)", len(errs)))
}

// verifyJSON is the JSON shape of one verification finding.
func verifyJSON(err error) map[string]interface{} {
	var verr *verify.Error
	if errors.As(err, &verr) {
		return map[string]interface{}{
			"code":    string(verr.Code),
			"message": verr.Message,
		}
	}
	return map[string]interface{}{
		"code":    ErrCodeGeneric,
		"message": err.Error(),
	}
}

// loadGraph reads and decodes a canonical graph file.
func loadGraph(path string, formatter *OutputFormatter) (*ir.E, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fail(formatter, ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("reading graph file: %v", err))
	}
	e, err := ir.UnmarshalCanonical(data)
	if err != nil {
		return nil, fail(formatter, ExitCommandError, ErrCodeParse,
			fmt.Sprintf("parsing graph file: %v", err))
	}
	return e, nil
}
