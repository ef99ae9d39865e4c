package cmd

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/nfrund/userhome/internal/identity/devapi"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// fs is where fixtures are read from; tests swap in a memory filesystem.
var fs = afero.NewOsFs()

var fixtureCmd = &cobra.Command{
	Use:   "fixture",
	Short: "Work with development identity fixtures",
	Long: `Fixtures seed the development identity API that the server runs when
IDENTITY_DEV_FIXTURE is set. Snapshots written on shutdown use the same
format.`,
}

var fixtureCheckCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Validate a fixture and list its accounts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := devapi.LoadFixture(fs, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "USER\tEMAILS\tPHONES\tVERIFIED\tINVITATIONS\tAUTHORIZATIONS")
		for _, name := range slices.Sorted(maps.Keys(f.Users)) {
			u := f.Users[name]
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", name,
				len(u.Profile.Email), len(u.Profile.Phone), len(u.VerifiedPhones),
				len(u.Invitations), len(u.Authorizations))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s is valid\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fixtureCmd)
	fixtureCmd.AddCommand(fixtureCheckCmd)
}
