package main

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/promptlib/promptlib/internal/auth"
	"github.com/promptlib/promptlib/internal/database"
	"github.com/promptlib/promptlib/internal/models"
	"github.com/spf13/cobra"
)

const minPasswordLength = 8

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCmd(a))
	return cmd
}

type userCreateOptions struct {
	email       string
	password    string
	displayName string
	admin       bool
}

func (o userCreateOptions) validate() error {
	if _, err := mail.ParseAddress(o.email); err != nil {
		return fmt.Errorf("invalid --email %q", o.email)
	}
	if len(o.password) < minPasswordLength {
		return fmt.Errorf("--password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func newUserCreateCmd(a *app) *cobra.Command {
	var opts userCreateOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account, optionally with the admin role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			hash, err := auth.HashPassword(opts.password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			role := models.RoleUser
			if opts.admin {
				role = models.RoleAdmin
			}
			user := models.User{
				ID:           uuid.NewString(),
				Email:        strings.ToLower(strings.TrimSpace(opts.email)),
				DisplayName:  opts.displayName,
				PasswordHash: hash,
				Role:         role,
				CreatedAt:    time.Now().UTC(),
			}

			ctx := cmd.Context()
			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.NewUserRepository(db).Create(ctx, user); err != nil {
				if errors.Is(err, database.ErrEmailTaken) {
					return fmt.Errorf("an account for %s already exists", user.Email)
				}
				return err
			}

			a.logger.Info("user created", "user_id", user.ID, "role", user.Role)
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.password, "password", "", "account password (required)")
	cmd.Flags().StringVar(&opts.displayName, "name", "", "display name")
	cmd.Flags().BoolVar(&opts.admin, "admin", false, "grant the admin role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
