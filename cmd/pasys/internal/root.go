package internal

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/goplus/pasys/internal/config"
	"github.com/goplus/pasys/internal/env"
	"github.com/goplus/pasys/internal/logging"
	"github.com/goplus/pasys/internal/release"
)

var (
	opts    config.Options
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pasys",
	Short: "pasys links PortAudio statically",
	Long: `pasys finds an installed PortAudio through pkg-config, or downloads and builds
a static copy, and prints the linker directives a build script needs.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&opts.Config, "config", config.DefaultFile, "Config file (TOML)")
	f.StringVar(&opts.OutDir, "out-dir", "", "Output directory (default $OUT_DIR)")
	f.StringVar(&opts.WorkDir, "work-dir", "", "Directory for downloads and sources (default current directory)")
	f.StringVar(&opts.Format, "format", "cargo", "Directive format: cargo, ldflags or cgo")
	f.StringVar(&opts.Fetcher, "fetcher", "tool", "Downloader: tool (curl/wget) or http")
	f.StringVar(&opts.Extractor, "extractor", "tool", "Extractor: tool (tar) or native")
	f.StringVar(&opts.BuildSystem, "build-system", "autotools", "Source build system: autotools or cmake")
	f.StringVar(&opts.Release, "release", "", "PortAudio release to build (default newest)")
	f.StringVar(&opts.URL, "url", "", "Override the release download URL")
	f.StringVar(&opts.Catalogue, "catalogue", "", "JSON file adding releases to the built-in catalogue")
	f.StringVar(&opts.Package, "package", "", "pkg-config package to detect (default portaudio-2.0)")
	f.StringVar(&opts.MinVersion, "min-version", "", "Oldest acceptable installed version (default 19)")
	f.StringVar(&opts.PkgConfig, "pkg-config", os.Getenv("PKG_CONFIG"), "pkg-config executable")
	f.BoolVar(&opts.OnlyStatic, "only-static", false, "Skip detection and always build (also $"+env.OnlyStaticVar+")")
	f.BoolVar(&opts.Verify, "verify", false, "Check the artifact digest before reusing a build")
	f.IntVarP(&opts.Jobs, "jobs", "j", 0, "Build parallelism")
	f.BoolVar(&opts.KeepSources, "keep-sources", false, "Keep the archive and source tree after building")
	f.StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	f.StringVar(&opts.CgoFile, "cgo-file", "", "Also write a Go file carrying the #cgo directives")
	f.StringVar(&opts.CgoPackage, "cgo-package", "", "Package clause of --cgo-file")
	f.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// setup resolves options for every subcommand.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadConfig(&opts, cmd); err != nil {
		return err
	}
	if opts.OutDir == "" {
		opts.OutDir = env.OutDir()
	}
	if env.OnlyStatic() {
		opts.OnlyStatic = true
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	if opts.Catalogue != "" {
		cf, err := release.Parse(opts.Catalogue, nil)
		if err != nil {
			return err
		}
		release.Register(cf.Releases...)
	}

	level, err := logging.ParseLevel(opts.LogLevel)
	if err != nil {
		return err
	}
	if verbose || env.Debug() {
		level = slog.LevelDebug
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), level))
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}
