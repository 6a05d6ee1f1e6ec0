package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var detectQuiet bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Look for an installed PortAudio",
	Long:  `Detect queries pkg-config and prints the directives of an installed PortAudio. It fails when none is usable.`,
	Args:  cobra.NoArgs,
	RunE:  runDetect,
}

func init() {
	detectCmd.Flags().BoolVarP(&detectQuiet, "quiet", "q", false, "Only report through the exit status")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	m, err := newDetector(newRunner(cmd)).Detect(cmd.Context())
	if err != nil {
		return err
	}
	if detectQuiet {
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", m.Package, m.Version)
	return emit(cmd, m.Flags)
}
