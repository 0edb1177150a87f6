package main

import (
	"fmt"
	"text/tabwriter"

	"carbook/internal/auth"

	"github.com/spf13/cobra"
)

func newUserCmd(open func() (*env, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var firstName, lastName, pin string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user that logs in with a PIN",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.Close()

			svc := auth.NewService(e.db, nil, nil, auth.RateLimit{}, e.logger)
			user, err := svc.CreateUser(cmd.Context(), firstName, lastName, pin, auth.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s %s)\n", user.ID, user.FirstName, user.LastName)
			return nil
		},
	}
	create.Flags().StringVar(&firstName, "first", "", "first name")
	create.Flags().StringVar(&lastName, "last", "", "last name")
	create.Flags().StringVar(&pin, "pin", "", "login PIN, at least 4 characters")
	_ = create.MarkFlagRequired("pin")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.Close()

			users, err := e.db.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFIRST\tLAST\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.FirstName, u.LastName, u.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
