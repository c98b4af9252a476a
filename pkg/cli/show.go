package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/defectdesk/defectdesk/pkg/model"
	"github.com/defectdesk/defectdesk/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func showCommand() *cli.Command {
	var (
		cfg      config
		defectID model.DefectID
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "defect-id",
			Aliases:     []string{"id"},
			Usage:       "Defect ID to show",
			Sources:     cli.EnvVars("DEFECTDESK_DEFECT_ID"),
			Destination: (*string)(&defectID),
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Print a stored defect record as JSON",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			store := repository.NewRecordStore(storage, cfg.basePrefix)
			record, err := store.Get(ctx, defectID)
			if err != nil {
				return goerr.Wrap(err, "failed to load defect", goerr.V("id", defectID))
			}

			data, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to render defect record")
			}
			fmt.Fprintln(c.Root().Writer, string(data))
			return nil
		},
	}
}
