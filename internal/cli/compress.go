package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"namerank/internal/ingest"
)

func newCompressCommand(st *state) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "compress",
		Short: "Compress the dataset year files with lz4",
		Long: `Compress writes an lz4 copy next to every plain year file of the configured
range. The loader reads either form.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.setup(); err != nil {
				return err
			}
			loader := ingest.NewLoader(ingest.OptionsFrom(st.cfg.Dataset), st.logger)
			n, err := loader.CompressYears(cmd.Context(), remove)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compressed %d year file(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "delete the plain files after compressing")
	return cmd
}
