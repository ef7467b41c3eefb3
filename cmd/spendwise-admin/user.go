package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"spendwise/internal/core"
)

func userCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(userAddCmd(a))
	cmd.AddCommand(userDeleteCmd(a))
	return cmd
}

func userAddCmd(a *app) *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user account",
		Long:  `Create a user account. The password is prompted for when --password is omitted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if password == "" {
				fmt.Fprint(out, "Password: ")
				var err error
				password, err = readPassword(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				fmt.Fprintln(out)
			}

			user, _, err := a.accounts().Signup(cmd.Context(), email, password, name)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(out, "User %s created successfully with ID %d\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func userDeleteCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a user with all of their expenses and budgets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.store.GetUserByEmail(cmd.Context(), core.NormalizeEmail(email))
			if err != nil {
				return fmt.Errorf("find user %s: %w", email, err)
			}
			if err := a.store.DeleteUser(cmd.Context(), user.ID); err != nil {
				return fmt.Errorf("delete user %s: %w", email, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s deleted\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
