package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/jsonutil"
	"github.com/vulndesk/vulndesk/pkg/store/memstore"
	"github.com/vulndesk/vulndesk/pkg/ui"
)

var seedForce bool

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Write the sample dataset as a store snapshot",
	Long: `Write the built-in sample dataset to a snapshot file. Edit it to
describe your own record graph, then point serve or generate at it
with the snapshot setting or --snapshot.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(_ *cobra.Command, args []string) error {
	path := "vulndesk-snapshot.json"
	if len(args) == 1 {
		path = args[0]
	}

	if !seedForce {
		if _, err := os.Stat(path); err == nil {
			return usageErr(fmt.Errorf("%s already exists, use --force to overwrite", path))
		}
	}

	data, err := jsonutil.MarshalDeterministicIndent(memstore.SampleSnapshot(), "  ")
	if err != nil {
		return internalErr(err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, defaults.FilePerm); err != nil {
		return ioErr(err)
	}

	if !ui.IsSilent() {
		ui.PrintSuccess("sample snapshot written to " + path)
	}
	return nil
}
