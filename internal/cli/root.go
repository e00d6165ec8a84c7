package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"namerank/internal/config"
	"namerank/internal/infrastructure"
	"namerank/pkg/contracts"
)

// state is shared by the subcommands of one root command
type state struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the namerank command tree
func NewRootCommand() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:   "namerank",
		Short: "namerank - grouped time-series aggregation and ranking of name counts",
		Long: `namerank loads per-year name count files and derives popularity tables:
totals per year and category, top-K rankings with proportions, a diversity
index, and last-letter cross-tabulations.

Results are written as CSV and Excel files or served as a read-only JSON API.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&st.cfgFile, "config", "", "config file (default: ./config.yaml or ./configs/config.yaml)")
	root.PersistentFlags().BoolVarP(&st.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newReportCommand(st),
		newServeCommand(st),
		newCompressCommand(st),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command and closes the log file afterwards
func Execute() error {
	err := NewRootCommand().Execute()
	if cerr := infrastructure.CloseLogger(); err == nil && cerr != nil {
		err = fmt.Errorf("close log file: %w", cerr)
	}
	return err
}

// setup loads configuration and initializes the global logger
func (st *state) setup() error {
	cfg, err := config.Load(st.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if st.verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	st.cfg = cfg
	st.logger = logger
	return nil
}

// override applies command-line overrides to the loaded configuration and
// validates the result
func (st *state) override(apply func(*config.Config)) error {
	apply(st.cfg)
	if err := st.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
		},
	}
}
