package internal

import (
	"cmp"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/goplus/pasys/internal/env"
	"github.com/goplus/pasys/internal/release"
)

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "List the known PortAudio releases",
	Long:  `Releases lists the built-in release catalogue. The release selected for the target platform, honouring --release, is starred.`,
	Args:  cobra.NoArgs,
	RunE:  runReleases,
}

func init() {
	rootCmd.AddCommand(releasesCmd)
}

func runReleases(cmd *cobra.Command, args []string) error {
	target := env.Target()
	selected, err := release.Lookup(target.OS, target.Arch, opts.Release)
	if err != nil {
		selected = release.Release{}
	}

	rels := slices.Clone(release.Catalogue)
	slices.SortStableFunc(rels, func(a, b release.Release) int {
		return cmp.Compare(platformOf(a), platformOf(b))
	})

	var data [][]string
	for _, r := range rels {
		mark := ""
		if r == selected {
			mark = "*"
		}
		data = append(data, []string{mark, r.Version, platformOf(r), r.Kind.String(), r.URL})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"", "VERSION", "PLATFORM", "KIND", "URL"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
	return nil
}

func platformOf(r release.Release) string {
	if r.Arch == "" {
		return r.OS
	}
	return r.OS + "/" + r.Arch
}
