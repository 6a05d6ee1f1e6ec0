package internal

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Detect or build PortAudio and print linker directives",
	Long: `Build looks for an installed PortAudio through pkg-config. When none is usable,
or PORTAUDIO_ONLY_STATIC is set, it downloads the pinned release, builds a
static library into the output directory and prints the directives linking it.
A library already present in the output directory is reused.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	b, err := newBuilder(cmd)
	if err != nil {
		return err
	}
	res, err := b.Run(cmd.Context())
	if err != nil {
		return err
	}
	slog.Info("portaudio ready", "outcome", res.Outcome, "version", res.Version)
	return emit(cmd, res.Flags)
}
