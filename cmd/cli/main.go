package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ops-tools/goldbaker/internal/configurations"
	"github.com/ops-tools/goldbaker/internal/logging"
	"github.com/ops-tools/goldbaker/internal/services"
)

const defaultLogLevel = "info"

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelInfo)

	logger := logging.NewCLI(os.Stderr, &levelVar)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(&levelVar)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("command interrupted", "error", err)
			os.Exit(130)
		}
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel     string
	logJSON      bool
	settingsFile string
}

func newRootCommand(levelVar *slog.LevelVar) *cobra.Command {
	opts := &rootOptions{logLevel: defaultLogLevel}

	root := &cobra.Command{
		Use:           "goldbaker",
		Short:         "Decide which gold machine images are stale and schedule their rebuilds",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", defaultLogLevel, "Set log verbosity (debug, info, warning, error)")
	root.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "Emit structured JSON logs instead of text")
	root.PersistentFlags().StringVar(&opts.settingsFile, "config", "", "Path to the settings file")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(opts.logLevel)
		if err != nil {
			return err
		}
		levelVar.Set(level)
		if opts.logJSON {
			slog.SetDefault(logging.NewJSON(os.Stderr, levelVar))
		}
		return nil
	}

	root.AddCommand(
		newRefreshCommand(opts),
		newResolveCommand(opts),
		newDefinitionsCommand(opts),
	)
	return root
}

func newRefreshCommand(opts *rootOptions) *cobra.Command {
	var (
		pathPrefix      string
		minAgeDays      int
		namePrefix      string
		documentName    string
		platforms       []string
		force           bool
		staggerSeconds  int
		dryRun          bool
		definitionsFile string
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run the staleness pipeline and submit rebuild workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default().With("command", "refresh")

			settings, err := configurations.LoadSettings(opts.settingsFile)
			if err != nil {
				return err
			}
			applyFlag(cmd, "path-prefix", func() { settings.PathPrefix = pathPrefix })
			applyFlag(cmd, "min-age-days", func() { settings.MinImageAgeDays = minAgeDays })
			applyFlag(cmd, "name-prefix", func() { settings.ArtifactNamePrefix = namePrefix })
			applyFlag(cmd, "document", func() { settings.DocumentName = documentName })
			applyFlag(cmd, "stagger-seconds", func() { settings.StaggerSeconds = staggerSeconds })

			collaborators, err := configurations.NewCollaborators(cmd.Context(), settings)
			if err != nil {
				return err
			}
			if definitionsFile != "" {
				collaborators = collaborators.WithLocalDefinitions(definitionsFile)
			}

			service, err := configurations.NewRefreshService(collaborators, settings, logger, dryRun)
			if err != nil {
				return err
			}

			logger.Info("starting refresh run",
				"path_prefix", settings.PathPrefix,
				"force", force,
				"dry_run", dryRun,
			)
			considered, err := service.Run(cmd.Context(), services.RefreshRequest{
				PathPrefix:      settings.PathPrefix,
				MinImageAgeDays: settings.MinImageAgeDays,
				Platforms:       platforms,
				Force:           force,
			})
			if err != nil {
				return err
			}

			logger.Info("refresh run completed", "considered", len(considered))
			return printJSON(cmd, considered)
		},
	}

	cmd.Flags().StringVar(&pathPrefix, "path-prefix", "", "Definition tree path prefix")
	cmd.Flags().IntVar(&minAgeDays, "min-age-days", 0, "Minimum source image age in days before baking")
	cmd.Flags().StringVar(&namePrefix, "name-prefix", "", "Gold artifact name prefix")
	cmd.Flags().StringVar(&documentName, "document", "", "Build workflow document name")
	cmd.Flags().StringArrayVar(&platforms, "platform", nil, "Restrict the run to this platform; repeat flag to add more")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the staleness filter and rebuild every resolvable definition")
	cmd.Flags().IntVar(&staggerSeconds, "stagger-seconds", 0, "Seconds between staggered submissions")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Walk the pipeline without submitting builds")
	cmd.Flags().StringVar(&definitionsFile, "definitions-file", "", "Load definitions from a local YAML file instead of the parameter tree")

	return cmd
}

func newResolveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <source-spec>",
		Args:  cobra.ExactArgs(1),
		Short: "Resolve a source spec and print the image descriptor",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := strings.TrimSpace(args[0])
			if spec == "" {
				return fmt.Errorf("source spec is required")
			}

			settings, err := configurations.LoadSettings(opts.settingsFile)
			if err != nil {
				return err
			}
			collaborators, err := configurations.NewCollaborators(cmd.Context(), settings)
			if err != nil {
				return err
			}

			resolver := configurations.NewResolver(collaborators, settings, slog.Default())
			descriptor, err := resolver.Resolve(cmd.Context(), spec)
			if err != nil {
				return err
			}
			if descriptor == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no matching image")
				return nil
			}
			return printJSON(cmd, descriptor)
		},
	}
}

func newDefinitionsCommand(opts *rootOptions) *cobra.Command {
	var definitionsFile string

	cmd := &cobra.Command{
		Use:   "definitions",
		Short: "List the platform definitions under the configured path prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := configurations.LoadSettings(opts.settingsFile)
			if err != nil {
				return err
			}

			collaborators, err := configurations.NewCollaborators(cmd.Context(), settings)
			if err != nil {
				return err
			}
			if definitionsFile != "" {
				collaborators = collaborators.WithLocalDefinitions(definitionsFile)
			}

			set, err := collaborators.Definitions.Load(cmd.Context(), settings.PathPrefix)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if set.Len() == 0 {
				fmt.Fprintln(out, "no definitions")
				return nil
			}
			for _, name := range set.Names() {
				raw, _ := set.Get(name)
				fmt.Fprintf(out, "%s\t%s\t%s\n", name, raw.Fields["platform"], raw.Fields["source"])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&definitionsFile, "definitions-file", "", "Load definitions from a local YAML file instead of the parameter tree")
	return cmd
}

func applyFlag(cmd *cobra.Command, name string, apply func()) {
	if cmd.Flags().Changed(name) {
		apply()
	}
}

func printJSON(cmd *cobra.Command, value any) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}
