package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grn-bogo/ziasync/internal/engine"
	"github.com/grn-bogo/ziasync/internal/logger"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Bulk-delete users by id",
	Long: `Delete submits the given user ids in chunks of at most the configured
chunk size, one rate-limited bulk-delete call per chunk, with a cooldown
pause between chunks.

Examples:
  ziasync delete --ids 101,102,103
  ziasync delete --ids-file ./stale_users.txt`,
	RunE: runDelete,
}

var (
	deleteIDs     string
	deleteIDsFile string
)

func init() {
	deleteCmd.Flags().StringVar(&deleteIDs, "ids", "", "comma-separated user ids")
	deleteCmd.Flags().StringVar(&deleteIDsFile, "ids-file", "", "file with one user id per line")
	deleteCmd.MarkFlagsMutuallyExclusive("ids", "ids-file")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, _ []string) error {
	ids, err := collectIDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no user ids given; use --ids or --ids-file")
	}

	ctx := cmd.Context()
	client, cfg, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	deleter := engine.NewDeleter(
		client,
		cfg.DeleteChunkSize,
		cfg.DeleteCooldown,
		logger.L().WithField("component", "delete"),
	)
	if err := deleter.Delete(ctx, ids); err != nil {
		return err
	}

	cmd.Printf("Deleted %d users\n", len(ids))
	return nil
}

func collectIDs() ([]int, error) {
	if deleteIDs != "" {
		return parseIDs(splitNames(deleteIDs))
	}
	if deleteIDsFile != "" {
		return readIDsFile(deleteIDsFile)
	}
	return nil, nil
}

func parseIDs(fields []string) ([]int, error) {
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func readIDsFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ids file: %w", err)
	}
	defer f.Close()

	var fields []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fields = append(fields, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ids file: %w", err)
	}
	return parseIDs(fields)
}
