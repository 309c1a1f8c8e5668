package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-audio/sigil/internal/ir"
	"github.com/sigil-audio/sigil/internal/opcodes"
)

// OpcodesOptions holds flags shared by the opcodes subcommands.
type OpcodesOptions struct {
	*RootOptions
	DB string // signature database path (file or directory); builtin when empty
}

// NewOpcodesCommand creates the opcodes command group.
func NewOpcodesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpcodesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "opcodes",
		Short: "Inspect operation signature databases",
	}

	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "signature database (CUE file or directory; builtin when omitted)")

	cmd.AddCommand(newOpcodesListCommand(opts))
	cmd.AddCommand(newOpcodesShowCommand(opts))

	return cmd
}

func newOpcodesListCommand(opts *OpcodesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the operations in the signature database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpcodesList(opts, cmd)
		},
	}
}

func newOpcodesShowCommand(opts *OpcodesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <name>",
		Short:         "Show one operation's signature",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpcodesShow(opts, args[0], cmd)
		},
	}
}

func runOpcodesList(opts *OpcodesOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	table, err := loadTable(opts, formatter)
	if err != nil {
		return err
	}

	names := table.Names()
	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"count": len(names),
			"names": names,
		})
	}

	for _, name := range names {
		fmt.Fprintln(formatter.Writer, name)
	}
	fmt.Fprintf(formatter.Writer, "\n%d operation(s)\n", len(names))
	return nil
}

func runOpcodesShow(opts *OpcodesOptions, name string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	table, err := loadTable(opts, formatter)
	if err != nil {
		return err
	}

	info, ok := table.Lookup(name)
	if !ok {
		return fail(formatter, ExitFailure, ErrCodeUnknownOp,
			fmt.Sprintf("operation %q is not in the signature database", name))
	}

	if formatter.Format == "json" {
		return formatter.Success(infoJSON(info))
	}

	fmt.Fprintf(formatter.Writer, "%s  fixity=%s\n", info.Name, info.Fixity)
	writeSignature(formatter, info.Sig)
	return nil
}

// loadTable resolves the --db flag: a directory loads all its CUE files
// unified into one table, a single file loads alone, and an empty flag
// falls back to the embedded builtin table.
func loadTable(opts *OpcodesOptions, formatter *OutputFormatter) (*opcodes.Table, error) {
	if opts.DB == "" {
		formatter.VerboseLog("Using builtin signature database")
		return opcodes.Builtin(), nil
	}

	stat, err := os.Stat(opts.DB)
	if err != nil {
		return nil, fail(formatter, ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("signature database not found: %s", opts.DB))
	}

	var table *opcodes.Table
	if stat.IsDir() {
		table, err = opcodes.LoadDir(opts.DB)
	} else {
		table, err = opcodes.Load(opts.DB)
	}
	if err != nil {
		return nil, fail(formatter, ExitCommandError, ErrCodeCompile, err.Error())
	}

	formatter.VerboseLog("Loaded %d operation(s) from %s", table.Len(), opts.DB)
	return table, nil
}

// writeSignature prints a signature one supported form per line, argument
// rates spelled as the usual letter string.
func writeSignature(formatter *OutputFormatter, sig ir.Signature) {
	switch s := sig.(type) {
	case ir.SingleRate:
		for _, out := range s.OutRates() {
			fmt.Fprintf(formatter.Writer, "  %s <- %s\n", out, rateLetters(s[out]))
		}
	case ir.MultiRate:
		fmt.Fprintf(formatter.Writer, "  %s <- %s\n", rateLetters(s.Outs), rateLetters(s.Ins))
	}
}

// rateLetters renders a rate list as concatenated letters, "()" when empty.
func rateLetters(rates []ir.Rate) string {
	if len(rates) == 0 {
		return "()"
	}
	var b strings.Builder
	for _, r := range rates {
		b.WriteString(r.String())
	}
	return b.String()
}

// infoJSON is the JSON shape of one signature entry.
func infoJSON(info ir.Info) map[string]interface{} {
	entry := map[string]interface{}{
		"name":   info.Name,
		"fixity": info.Fixity.String(),
	}
	switch s := info.Sig.(type) {
	case ir.SingleRate:
		rates := map[string]interface{}{}
		for _, out := range s.OutRates() {
			rates[out.String()] = rateStrings(s[out])
		}
		entry["sig"] = map[string]interface{}{"kind": "single", "rates": rates}
	case ir.MultiRate:
		entry["sig"] = map[string]interface{}{
			"kind": "multi",
			"outs": rateStrings(s.Outs),
			"ins":  rateStrings(s.Ins),
		}
	}
	return entry
}

func rateStrings(rates []ir.Rate) []string {
	out := make([]string, len(rates))
	for i, r := range rates {
		out[i] = r.String()
	}
	return out
}
