// Package cli wires the conversion engine to a cobra command tree:
// `srcjs convert` for one-shot and batch conversion, `srcjs serve` for
// the MCP stdio tool server. Flags map 1:1 onto the recognized option
// keys; environment defaults come from internal/config.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/oxhq/srcjs"
	"github.com/oxhq/srcjs/internal/batch"
	"github.com/oxhq/srcjs/internal/cache"
	"github.com/oxhq/srcjs/internal/checker"
	"github.com/oxhq/srcjs/internal/config"
	"github.com/oxhq/srcjs/mcp"
)

// Version is stamped by the build.
var Version = "dev"

// NewRootCmd builds the srcjs command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "srcjs",
		Short:         "SRC to TGT source-to-source compiler",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newConvertCmd())
	root.AddCommand(newServeCmd())
	return root
}

type convertFlags struct {
	eslevel     int
	strict      bool
	comparison  string
	or          string
	truthy      string
	module      string
	underscored bool
	nullishToS  bool
	width       int
	filters     []string
	include     []string
	exclude     []string
	includeOnly []string
	noImports   bool
	noExports   bool

	out         string
	sourceMap   bool
	check       bool
	noCache     bool
	diffESLevel int
}

func newConvertCmd() *cobra.Command {
	flags := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert [file|glob...]",
		Short: "Convert SRC files (or stdin) to TGT",
		Long: "Converts each input file, writing .js output next to it. " +
			"With no arguments, reads SRC from stdin and writes TGT to stdout. " +
			"Globs support doublestar patterns (src/**/*.rb).",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := applyFlags(config.Load(), cmd, flags)
			if len(args) == 0 {
				return convertStdin(cmd, opts, flags)
			}
			return convertFiles(cmd.Context(), cmd, args, opts, flags)
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.eslevel, "eslevel", 0, "target ECMAScript level (2015..2025)")
	f.BoolVar(&flags.strict, "strict", false, `prepend "use strict"`)
	f.StringVar(&flags.comparison, "comparison", "", "equality|identity")
	f.StringVar(&flags.or, "or", "", "auto|logical|nullish")
	f.StringVar(&flags.truthy, "truthy", "", "js|ruby")
	f.StringVar(&flags.module, "module", "", "esm|cjs")
	f.BoolVar(&flags.underscored, "underscored-private", false, "use _name instead of #name for private members")
	f.BoolVar(&flags.nullishToS, "nullish-to-s", false, "wrap interpolations in String(...)")
	f.IntVar(&flags.width, "width", 0, "target line width for reflow")
	f.StringSliceVar(&flags.filters, "filters", nil, "filter chain, in order")
	f.StringSliceVar(&flags.include, "include", nil, "re-enable excluded filters")
	f.StringSliceVar(&flags.exclude, "exclude", nil, "disable filters")
	f.StringSliceVar(&flags.includeOnly, "include-only", nil, "run only these filters")
	f.BoolVar(&flags.noImports, "disable-autoimports", false, "suppress hoisted import prepends")
	f.BoolVar(&flags.noExports, "disable-autoexports", false, "suppress generated exports")

	f.StringVarP(&flags.out, "out", "o", "", "output path (single input only)")
	f.BoolVar(&flags.sourceMap, "source-map", false, "emit a .map file next to each output")
	f.BoolVar(&flags.check, "check", false, "sanity-parse emitted output before writing")
	f.BoolVar(&flags.noCache, "no-cache", false, "bypass the conversion cache")
	f.IntVar(&flags.diffESLevel, "diff-eslevel", 0, "also convert at this eslevel and print a unified diff of the outputs")
	return cmd
}

// applyFlags folds explicitly set flags over the environment defaults, so
// flag > env > built-in default.
func applyFlags(opts srcjs.Options, cmd *cobra.Command, flags *convertFlags) srcjs.Options {
	set := cmd.Flags().Changed
	if set("eslevel") {
		opts.ESLevel = flags.eslevel
	}
	if set("strict") {
		opts.Strict = flags.strict
	}
	if set("comparison") {
		opts.Comparison = flags.comparison
	}
	if set("or") {
		opts.Or = flags.or
	}
	if set("truthy") {
		opts.Truthy = flags.truthy
	}
	if set("module") {
		opts.Module = flags.module
	}
	if set("underscored-private") {
		opts.UnderscoredPrivate = flags.underscored
	}
	if set("nullish-to-s") {
		opts.NullishToS = flags.nullishToS
	}
	if set("width") {
		opts.Width = flags.width
	}
	if set("filters") {
		opts.FilterNames = flags.filters
	}
	if set("include") {
		opts.Include = flags.include
	}
	if set("exclude") {
		opts.Exclude = flags.exclude
	}
	if set("include-only") {
		opts.IncludeOnly = flags.includeOnly
	}
	if set("disable-autoimports") {
		opts.DisableAutoimports = flags.noImports
	}
	if set("disable-autoexports") {
		opts.DisableAutoexports = flags.noExports
	}
	return opts
}

func convertStdin(cmd *cobra.Command, opts srcjs.Options, flags *convertFlags) error {
	source, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}
	result, err := srcjs.Convert(string(source), opts)
	if err != nil {
		return err
	}
	if flags.check {
		if err := runCheck(cmd.Context(), result.Text); err != nil {
			return err
		}
	}

	if flags.diffESLevel != 0 {
		return printDiff(cmd, string(source), opts, flags.diffESLevel, result.Text)
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	return nil
}

func convertFiles(ctx context.Context, cmd *cobra.Command, patterns []string, opts srcjs.Options, flags *convertFlags) error {
	var files []string
	for _, pattern := range patterns {
		matched, err := batch.Expand(pattern)
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		files = append(files, matched...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no input files matched")
	}
	if flags.out != "" && len(files) > 1 {
		return fmt.Errorf("--out requires a single input file")
	}

	var store *cache.Store
	if !flags.noCache {
		var err error
		store, err = cache.Open(config.CacheDSN(), false)
		if err != nil {
			// The cache is an accelerator; run without it on failure.
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache unavailable: %v\n", err)
		}
	}
	defer store.Close()

	runner := batch.NewRunner(opts, store)
	runner.EmitMap = flags.sourceMap
	runner.OutPath = flags.out

	failures := 0
	for res := range runner.Run(ctx, files) {
		switch {
		case res.Err != nil:
			failures++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Input, res.Err)
			continue
		case res.Cached:
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (cached)\n", res.Input, res.Output)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", res.Input, res.Output)
		}
		if flags.check {
			emitted, err := os.ReadFile(res.Output)
			if err != nil {
				failures++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Output, err)
				continue
			}
			if err := runCheck(ctx, string(emitted)); err != nil {
				failures++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Output, err)
			}
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, len(files))
	}
	return nil
}

func runCheck(ctx context.Context, text string) error {
	issues, err := checker.New().Check(ctx, text)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		lines := make([]string, len(issues))
		for i, issue := range issues {
			lines[i] = issue.String()
		}
		return fmt.Errorf("emitted output failed sanity parse:\n%s", strings.Join(lines, "\n"))
	}
	return nil
}

// printDiff converts a second time at the alternate eslevel and prints a
// unified diff between the two outputs, colored when stdout is a TTY.
func printDiff(cmd *cobra.Command, source string, opts srcjs.Options, altLevel int, baseText string) error {
	altOpts := opts
	altOpts.ESLevel = altLevel
	alt, err := srcjs.Convert(source, altOpts)
	if err != nil {
		return err
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(baseText),
		B:        difflib.SplitLines(alt.Text),
		FromFile: fmt.Sprintf("eslevel=%d", opts.ESLevel),
		ToFile:   fmt.Sprintf("eslevel=%d", altLevel),
		Context:  3,
	})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), colorizeDiff(diff, cmd.OutOrStdout()))
	return nil
}

func colorizeDiff(diff string, w io.Writer) string {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return diff
	}
	var out strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			out.WriteString("\x1b[32m" + strings.TrimSuffix(line, "\n") + "\x1b[0m\n")
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			out.WriteString("\x1b[31m" + strings.TrimSuffix(line, "\n") + "\x1b[0m\n")
		default:
			out.WriteString(line)
		}
	}
	return out.String()
}

func newServeCmd() *cobra.Command {
	var debug bool
	var dbURL string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP stdio tool server",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := mcp.NewStdioServer(mcp.Config{
				Debug:       debug,
				DatabaseURL: dbURL,
				Defaults:    config.Load(),
			})
			if err != nil {
				return err
			}
			return server.Start(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "log protocol traffic to stderr")
	cmd.Flags().StringVar(&dbURL, "db", "", `conversion cache path ("skip" disables)`)
	return cmd
}
