package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/grn-bogo/ziasync/internal/engine"
	"github.com/grn-bogo/ziasync/internal/logger"
	"github.com/grn-bogo/ziasync/internal/zia"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Rotate users of a department into target groups, page by page",
	Long: `Assign walks the department's users page by page and appends the
rotating target group to each user that does not already carry it.
Re-running the same job performs no duplicate writes.

Examples:
  ziasync assign -d Engineering -g test_group_1,test_group_2
  ziasync assign -d Engineering -g canary --start 3 --end 10 --page-size 200`,
	RunE: runAssign,
}

var (
	assignDepartment string
	assignGroups     string
	assignStartPage  int
	assignEndPage    int
	assignPageSize   int
)

func init() {
	assignCmd.Flags().StringVarP(&assignDepartment, "department", "d", "", "department whose users are updated (required)")
	assignCmd.Flags().StringVarP(&assignGroups, "groups", "g", "", "comma-separated target group names (required)")
	assignCmd.Flags().IntVar(&assignStartPage, "start", 1, "first page to process")
	assignCmd.Flags().IntVar(&assignEndPage, "end", 0, "last page to process (0 = server-declared last page)")
	assignCmd.Flags().IntVar(&assignPageSize, "page-size", 0, "users per page (0 = vendor default)")
	_ = assignCmd.MarkFlagRequired("department")
	_ = assignCmd.MarkFlagRequired("groups")
	rootCmd.AddCommand(assignCmd)
}

func runAssign(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, cfg, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	eng := engine.NewEngine(
		client,
		zia.NewReference(client),
		cfg.PagesPerGroup,
		logger.L().WithField("component", "assign"),
	)

	summary, err := eng.Run(ctx, engine.Job{
		Department: assignDepartment,
		Groups:     splitNames(assignGroups),
		StartPage:  assignStartPage,
		EndPage:    assignEndPage,
		PageSize:   assignPageSize,
	})
	if err != nil {
		return err
	}

	cmd.Printf("Run %s: %d pages, %d updated, %d skipped, %d failed\n",
		summary.RunID, summary.Pages, summary.Updated, summary.Skipped, summary.Failed)
	return nil
}

// splitNames splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}
