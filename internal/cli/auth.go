package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-social-client/internal/app"
	"github.com/pribylovaa/go-social-client/internal/models"
	"github.com/pribylovaa/go-social-client/internal/pkg/redact"
	"github.com/pribylovaa/go-social-client/internal/session"
)

func newLoginCmd(rt *runtime) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Sign in and store the token pair",
		Long:        "Sign in with e-mail and password. Without --password the password is read from the first line of stdin.",
		Args:        cobra.NoArgs,
		Annotations: guestOnly(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				p, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = p
			}

			if err := rt.app.Login(cmd.Context(), email, password); err != nil {
				return &displayError{msg: app.LoginFailureMessage(err), err: err}
			}

			return rt.out.message("Logged in as " + email + ".")
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newRegisterCmd(rt *runtime) *cobra.Command {
	var in models.RegisterRequest

	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create an account",
		Args:        cobra.NoArgs,
		Annotations: guestOnly(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Password == "" {
				p, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				in.Password = p
			}
			if in.PasswordConfirm == "" {
				in.PasswordConfirm = in.Password
			}

			detail, err := rt.app.Register(cmd.Context(), in)
			if err != nil {
				return &displayError{msg: app.RegisterFailureMessage(err), err: err}
			}
			if detail == "" {
				detail = "Registration successful."
			}

			return rt.out.message(detail)
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "user name")
	cmd.Flags().StringVar(&in.Email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (stdin when omitted)")
	cmd.Flags().StringVar(&in.PasswordConfirm, "password-confirm", "", "password confirmation (defaults to --password)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed, err := rt.app.Logout(cmd.Context())
			if err != nil {
				return err
			}
			if !changed {
				return rt.out.message("Not logged in.")
			}
			return rt.out.message("Logged out.")
		},
	}
}

// statusView — вывод команды status.
type statusView struct {
	Authenticated bool               `json:"authenticated"`
	User          *models.UserPublic `json:"user,omitempty"`
	Subject       string             `json:"subject,omitempty"`
	Access        string             `json:"access,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	Expired       bool               `json:"expired"`
	HasRefresh    bool               `json:"has_refresh"`
}

func newStatusCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			s := rt.app.Session.Snapshot()

			v := statusView{
				Authenticated: s.IsAuthenticated,
				User:          s.User,
				Access:        redact.Fingerprint(s.AccessToken),
				HasRefresh:    s.RefreshToken != "",
			}
			if s.AccessToken == "" {
				v.Access = ""
			}

			if claims, err := session.AccessClaims(s.AccessToken); err == nil {
				v.Subject = claims.Subject()
				if left, ok := claims.ExpiresIn(time.Now()); ok {
					exp := claims.ExpiresAt.Time
					v.ExpiresAt = &exp
					v.Expired = left <= 0
				}
			}

			return rt.out.emit(v, func(w io.Writer) {
				if !v.Authenticated {
					fmt.Fprintln(w, "Not logged in.")
					return
				}
				who := v.Subject
				if v.User != nil {
					who = "@" + v.User.Username
				}
				fmt.Fprintf(w, "Logged in as %s (token %s)\n", who, v.Access)
				switch {
				case v.ExpiresAt == nil:
				case v.Expired:
					fmt.Fprintln(w, "Access token expired; it will be refreshed on the next request.")
				default:
					fmt.Fprintf(w, "Access token valid until %s\n", v.ExpiresAt.Local().Format(time.RFC3339))
				}
				if !v.HasRefresh {
					fmt.Fprintln(w, "No refresh token stored.")
				}
			})
		},
	}
}

func newMeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:         "me",
		Short:       "Show the signed-in user",
		Args:        cobra.NoArgs,
		Annotations: protected(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := rt.app.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			return rt.out.user(u)
		},
	}
}

var errNoInput = errors.New("password required: pass --password or pipe it on stdin")

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return "", errNoInput
	}
	return line, nil
}
