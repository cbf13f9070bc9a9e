package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugodaniel/glslmin/internal/config"
	"github.com/hugodaniel/glslmin/pkg/api"
)

var (
	// Version information (set by build flags).
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	flagOutput       string
	flagConfigFile   string
	flagNoConfig     bool
	flagMode         string
	flagMaxInlines   int
	flagMaxRenames   int
	flagMaxSimplifys int
	flagVerbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "glslmin [flags] <shader...>",
	Short: "Minify GLSL shader source files",
	Long: `glslmin parses one or more GLSL shader sources and applies semantics-
preserving rewrites (inlining, simplification, swizzle selection, and
identifier renaming) to shrink the resulting text.

Passing several sources together lets a varying shared between e.g. a
vertex and a fragment stage be renamed consistently across both. Reads
from stdin when no files are given.`,
	Version:      Version,
	RunE:         runRoot,
	SilenceUsage: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "print the pass summary line to stderr")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write output to `file` (stdout if omitted; requires a single input)")
	rootCmd.Flags().StringVar(&flagConfigFile, "config", "", "use a specific config `file` instead of searching for one")
	rootCmd.Flags().BoolVar(&flagNoConfig, "no-config", false, "ignore glslmin.json / .glslminrc config files")
	rootCmd.Flags().StringVar(&flagMode, "mode", "", "mode: none or full (default: full, or the config file's value)")
	rootCmd.Flags().IntVar(&flagMaxInlines, "max-inlines", 0, "cap on inline substitutions, -1 for unbounded (config/default when not given)")
	rootCmd.Flags().IntVar(&flagMaxRenames, "max-renames", 0, "cap on renamed identifiers, -1 for unbounded (config/default when not given)")
	rootCmd.Flags().IntVar(&flagMaxSimplifys, "max-simplifys", 0, "cap on local simplifications, -1 for unbounded (config/default when not given)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) > 1 && flagOutput != "" {
		return fmt.Errorf("-o/--output can only be used with a single input file")
	}

	sources, err := readSources(args)
	if err != nil {
		return err
	}

	var cfg *config.Config
	if !flagNoConfig {
		cfg, err = loadConfig(args)
		if err != nil {
			return err
		}
	}

	opts := cfg.Merge(cliOverrides(cmd))
	opts.Verbose = flagVerbose || opts.Verbose

	for i, s := range sources {
		if cfg != nil {
			if stage := cfg.StageFor(s.Name); stage != "" {
				sources[i].Stage = stage
			}
		}
	}

	result, err := api.Crunch(sources, opts)
	if err != nil {
		return fmt.Errorf("minifying: %w", err)
	}

	if err := writeOutputs(result); err != nil {
		return err
	}

	if opts.Verbose {
		for _, d := range result.Diagnostics {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		fmt.Fprintln(os.Stderr, result.Stats.String())
	}
	return nil
}

// cliOverrides builds config.MergeOptions from flags that were actually
// set on the command line; flags not given defer to the config file (or
// rewrite's own defaults), and an explicitly given 0 is a cap of zero.
func cliOverrides(cmd *cobra.Command) config.MergeOptions {
	var m config.MergeOptions
	if cmd.Flags().Changed("mode") {
		m.Mode = &flagMode
	}
	if cmd.Flags().Changed("max-inlines") {
		m.MaxInlines = &flagMaxInlines
	}
	if cmd.Flags().Changed("max-renames") {
		m.MaxRenames = &flagMaxRenames
	}
	if cmd.Flags().Changed("max-simplifys") {
		m.MaxSimplifys = &flagMaxSimplifys
	}
	if cmd.Flags().Changed("verbose") {
		m.Verbose = &flagVerbose
	}
	return m
}

func loadConfig(args []string) (*config.Config, error) {
	if flagConfigFile != "" {
		return config.LoadFile(flagConfigFile)
	}
	startDir, _ := os.Getwd()
	if len(args) > 0 {
		startDir = filepath.Dir(args[0])
	}
	cfg, _, err := config.Load(startDir)
	return cfg, err
}

func readSources(args []string) ([]api.Source, error) {
	if len(args) == 0 {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return nil, fmt.Errorf("no input file given and stdin is not a pipe")
		}
		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return []api.Source{{Name: "stdin", Stage: "", Text: string(text)}}, nil
	}

	sources := make([]api.Source, len(args))
	for i, path := range args {
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		sources[i] = api.Source{Name: path, Stage: stageFromExt(path), Text: string(text)}
	}
	return sources, nil
}

// stageFromExt infers a shader stage from a conventional file extension.
// Sources whose stage can't be inferred this way are generic; a config
// file's "stages" map can still override the guess.
func stageFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vert", ".vs":
		return "vertex"
	case ".frag", ".fs":
		return "fragment"
	case ".geom", ".gs":
		return "geometry"
	default:
		return ""
	}
}

func writeOutputs(result api.Result) error {
	if flagOutput != "" {
		return os.WriteFile(flagOutput, []byte(result.Outputs[0].Code), 0o644)
	}

	for i, out := range result.Outputs {
		if i > 0 {
			fmt.Println()
		}
		if len(result.Outputs) > 1 {
			fmt.Printf("// %s\n", out.Name)
		}
		fmt.Print(out.Code)
	}
	return nil
}
