package main

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/engine"
	"github.com/tartampluch/go-vcfmerge/internal/vcf"
)

var (
	cfgFile   string
	debugMode bool

	yellow       = color.New(color.FgYellow).SprintFunc()
	green        = color.New(color.FgGreen).SprintFunc()
	warningLabel = yellow("Warning:")
)

var rootCmd *cobra.Command

// Execute runs the root command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd = createRootCmd()
	rootCmd.Version = fmt.Sprintf("%s (%s/%s)", config.Version, runtime.GOOS, runtime.GOARCH)
	rootCmd.AddCommand(createValidateCmd())
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           config.CmdRootUse,
		Short:         config.CmdRootShort,
		Long:          config.CmdRootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, config.FlagConfig, "", config.FlagDescConfig)
	cmd.PersistentFlags().BoolVar(&debugMode, config.FlagDebug, false, config.FlagDescDebug)

	return cmd
}

func createValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdValidate,
		Short: config.CmdValidateShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(cfgFile); err != nil {
				return err
			}
			cmd.Printf("%s configuration is valid\n", green("OK:"))
			return nil
		},
	}
}

// runMerge loads the configuration, runs the pipeline, writes the outputs,
// and prints a human-readable summary.
func runMerge(cmd *cobra.Command) error {
	if debugMode {
		if closer := setupLogging(true); closer != nil {
			defer func() { _ = closer.Close() }()
		}
	}

	opts, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	merger := &engine.Merger{
		Fetcher: engine.NewHTTPFetcher(),
		Options: opts,
	}

	result, err := merger.Run(cmd.Context())
	if err != nil {
		return err
	}
	if err := merger.WriteOutputs(result); err != nil {
		return err
	}

	printSummary(cmd, opts, result)
	return nil
}

// printSummary reports the run to stdout: counts, collapsed duplicate
// groups, and any recoverable parse warnings.
func printSummary(cmd *cobra.Command, opts config.Options, result *engine.Result) {
	cmd.Printf("%s wrote %d contacts to %s\n",
		green("Done:"), result.Stats.FinalContacts, opts.Output)
	cmd.Printf("  source: %d  update: %d  merged: %d  added: %d\n",
		result.Stats.SourceContacts, result.Stats.UpdateContacts,
		result.Stats.MergedPairs, result.Stats.AddedFromUpdate)

	for _, c := range result.Collapsed {
		extended := "no fields extended"
		if len(c.Extended) > 0 {
			extended = fmt.Sprintf("extended %v", c.Extended)
		}
		cmd.Printf("  collapsed %d duplicates of %q (%s)\n", c.Count, c.Key, extended)
	}

	warnings := 0
	for _, d := range result.Diagnostics {
		if d.Severity == vcf.SeverityWarning {
			warnings++
		}
	}
	if warnings > 0 {
		cmd.Printf("%s %d recoverable parse warnings, see %s\n",
			warningLabel, warnings, config.LogFileName)
	}
}
