package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tender-server/internal/domain/tender"
	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/repository/tenderrepo"
)

var tendersCmd = &cobra.Command{
	Use:   "tenders",
	Short: "Tender maintenance",
}

var tendersExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Close open tenders whose deadline has passed",
	Long:  `Runs the same expiry pass the server schedules with TENDER_EXPIRY_SCHEDULE.`,
	RunE:  runTendersExpire,
}

func init() {
	tendersCmd.AddCommand(tendersExpireCmd)
}

func runTendersExpire(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	repo := tenderrepo.NewTenderGormRepository(database.NewDB(rt.db))
	service := tender.NewService(repo, nil, nil, nil, rt.cfg.AppBaseURL, rt.log)

	closed, err := service.CloseExpired(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "closed %d expired tender(s)\n", closed)
	return nil
}
