package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/funnel/internal/auth"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long:  "Sign in with email and password. Without --password the password is read from the first line of stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = pw
			}
			svc, err := a.authService(cmd)
			if err != nil {
				return err
			}
			sess, err := svc.Login(a.context(cmd), email, password)
			if err != nil {
				return classify(err)
			}
			return printSession(a, cmd, sess, "Logged in as")
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default: read from stdin)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.authService(cmd)
			if err != nil {
				return err
			}
			if err := svc.Logout(a.context(cmd)); err != nil {
				return sysErr(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var r auth.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a seller account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.authService(cmd)
			if err != nil {
				return err
			}
			sess, err := svc.Register(a.context(cmd), r)
			if err != nil {
				return classify(err)
			}
			return printSession(a, cmd, sess, "Registered")
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&r.Name, "name", "", "full name")
	fl.StringVar(&r.Email, "email", "", "email")
	fl.StringVar(&r.Phone, "phone", "", "phone with area code")
	fl.StringVar(&r.ExternalID, "external-id", "", "messaging account ID")
	fl.StringVar(&r.Password, "password", "", "password")
	fl.StringVar(&r.ConfirmPassword, "confirm", "", "password confirmation")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.authService(cmd)
			if err != nil {
				return err
			}
			sess, err := svc.Current(a.context(cmd))
			if err != nil {
				return classify(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), sess.User)
			}
			w := cmd.OutOrStdout()
			u := sess.User
			fmt.Fprintf(w, "ID:     %s\n", u.UserID)
			fmt.Fprintf(w, "Name:   %s\n", u.Name)
			fmt.Fprintf(w, "Email:  %s\n", u.Email)
			fmt.Fprintf(w, "Role:   %s\n", u.Role)
			if u.Phone != "" {
				fmt.Fprintf(w, "Phone:  %s\n", u.Phone)
			}
			if sess.ExpiresAt != nil {
				fmt.Fprintf(w, "Expires %s\n", formatUntil(*sess.ExpiresAt))
			}
			return nil
		},
	}
}

func printSession(a *app, cmd *cobra.Command, sess *types.Session, verb string) error {
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), sess.User)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s <%s> (%s)\n", verb, sess.Name, sess.Email, sess.Role)
	return nil
}

// readLine returns the first line of r without its line ending.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", sysErr(fmt.Errorf("read password: %w", err))
	}
	return strings.TrimRight(line, "\r\n"), nil
}
