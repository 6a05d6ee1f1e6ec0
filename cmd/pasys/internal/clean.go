package internal

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/goplus/pasys/internal/build"
)

var cleanAll bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the built library from the output directory",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "Remove the whole output directory")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	if opts.OutDir == "" {
		return build.ErrNoOutDir
	}
	if cleanAll {
		slog.Info("removing", "dir", opts.OutDir)
		return os.RemoveAll(opts.OutDir)
	}
	b, err := newBuilder(cmd)
	if err != nil {
		return err
	}
	return b.Clean()
}
