package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"restaurant-queue/apperr"
	"restaurant-queue/models"
)

const minPasswordLen = 6

func newStaffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts",
	}
	cmd.AddCommand(newStaffCreateCmd())
	return cmd
}

func newStaffCreateCmd() *cobra.Command {
	var username, password, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account that can log in to the staff API",
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			if username == "" {
				return apperr.Validation("--username is required")
			}
			if len(password) < minPasswordLen {
				return apperr.Validation("--password must be at least %d characters", minPasswordLen)
			}
			r := models.StaffRole(strings.ToLower(role))
			if !r.Valid() {
				return apperr.Validation("--role must be %s or %s", models.RoleStaff, models.RoleManager)
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return apperr.Internal(err, "hash password")
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			u := &models.StaffUser{Username: username, PasswordHash: string(hash), Role: r}
			if err := a.store.CreateStaff(cmd.Context(), u); err != nil {
				return err
			}
			a.log.Info("staff user created", "username", u.Username, "role", u.Role, "created_by", operator())
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q (id %d)\n", u.Role, u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().StringVar(&role, "role", string(models.RoleStaff), "staff or manager")
	return cmd
}
