package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/treefrog-dev/frogup/internal/doctor"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Verify the developer tools the stack needs are installed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			d := doctor.New(cfg.Doctor)
			reports := d.Run(cmd.Context())
			doctor.Print(cmd.OutOrStdout(), reports)

			if doctor.MissingRequired(reports) {
				return fmt.Errorf("required tools are missing")
			}
			return nil
		},
	}
}
