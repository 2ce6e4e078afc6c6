package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/grn-bogo/ziasync/internal/logger"
	"github.com/grn-bogo/ziasync/internal/report"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [endpoints]",
	Short: "Snapshot GET endpoints to JSON files",
	Long: `Dump fetches each named endpoint once over the authenticated session
and writes the response as pretty-printed JSON to
<endpoint>_<timestamp>.json in the dump directory.

Example:
  ziasync dump users,departments,groups`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	endpoints := splitNames(args[0])
	if len(endpoints) == 0 {
		return errors.New("use a comma-separated endpoints list like: users,locations")
	}

	ctx := cmd.Context()
	client, cfg, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	dumper := report.NewDumper(client, cfg.DumpDir, logger.L().WithField("component", "dump"))
	written, err := dumper.Dump(ctx, endpoints)
	if err != nil {
		return err
	}

	for _, file := range written {
		cmd.Println(file)
	}
	return nil
}
