package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var fetchExtract bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the release archive for the target platform",
	Long:  `Fetch downloads the release archive into the work directory and prints its path.`,
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchExtract, "extract", false, "Also extract the archive in the work directory")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	runner := newRunner(cmd)
	s, err := newStrategy(runner)
	if err != nil {
		return err
	}
	workDir := opts.WorkDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return err
	}

	path, err := s.Download(cmd.Context(), workDir)
	if err != nil {
		return err
	}
	if fetchExtract {
		ex, err := newExtractor(runner)
		if err != nil {
			return err
		}
		if err := ex.Extract(cmd.Context(), path, workDir); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
