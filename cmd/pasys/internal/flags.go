package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Print the directives of a previous build",
	Long:  `Flags prints the linker directives for the static library already built in the output directory. It never downloads or builds.`,
	Args:  cobra.NoArgs,
	RunE:  runFlags,
}

func init() {
	rootCmd.AddCommand(flagsCmd)
}

func runFlags(cmd *cobra.Command, args []string) error {
	b, err := newBuilder(cmd)
	if err != nil {
		return err
	}
	artifact := b.Strategy.Artifact(b.OutDir)
	if _, err := os.Stat(artifact); err != nil {
		return fmt.Errorf("no static library in %s, run pasys build first: %w", b.OutDir, err)
	}
	f, err := b.Strategy.Emit(cmd.Context(), b.OutDir)
	if err != nil {
		return err
	}
	return emit(cmd, f)
}
