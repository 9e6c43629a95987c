package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"restaurant-queue/seed"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Database schema is up to date (%s)\n", a.cfg.DB.Driver)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the restaurant profile and menu from a YAML file",
		Long: `Load the restaurant profile and menu from a YAML file. Without --file the
built-in sample menu is used. Menu items whose name already exists are
skipped, so seeding twice is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				f   *seed.File
				err error
			)
			if file != "" {
				f, err = seed.Load(file)
			} else {
				f, err = seed.Default()
			}
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := seed.Apply(cmd.Context(), a.store, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.ProfileSaved {
				fmt.Fprintln(out, "Restaurant profile saved")
			}
			fmt.Fprintf(out, "Menu items created: %d, skipped: %d\n", res.MenuCreated, res.MenuSkipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (defaults to the built-in menu)")
	return cmd
}
