// cli — команды социального клиента (cobra): лента, посты, комментарии,
// профиль, настройки, вход и регистрация.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-social-client/internal/app"
)

// Opener собирает приложение по пути к конфигу (пустой — поиск по умолчанию).
type Opener func(ctx context.Context, configPath string) (*app.App, error)

const (
	guardKey   = "guard"
	guardAuth  = "auth"
	guardGuest = "guest"
)

// ErrBadOutput — неизвестный формат вывода.
var ErrBadOutput = errors.New("output must be text or json")

// displayError — ошибка с сообщением для пользователя; исходная
// доступна через errors.Is/As.
type displayError struct {
	msg string
	err error
}

func (e *displayError) Error() string { return e.msg }
func (e *displayError) Unwrap() error { return e.err }

type runtime struct {
	open       Opener
	configPath string
	output     string
	metrics    bool

	app *app.App
	out *printer
}

// Execute разбирает args, выполняет команду и закрывает приложение,
// даже если команда завершилась ошибкой.
func Execute(ctx context.Context, open Opener, args []string, in io.Reader, out, errOut io.Writer) (err error) {
	rt := &runtime{open: open}

	root := newRootCmd(rt)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	defer func() {
		if cerr := rt.teardown(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return root.ExecuteContext(ctx)
}

func newRootCmd(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "social",
		Short:         "Command-line client for the social network API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVarP(&rt.output, "output", "o", "text", "output format: text|json")
	root.PersistentFlags().BoolVar(&rt.metrics, "metrics", false, "expose Prometheus metrics while the command runs")

	root.AddCommand(
		newLoginCmd(rt),
		newRegisterCmd(rt),
		newLogoutCmd(rt),
		newStatusCmd(rt),
		newMeCmd(rt),
		newFeedCmd(rt),
		newPostCmd(rt),
		newReactCmd(rt),
		newCommentsCmd(rt),
		newProfileCmd(rt),
	)

	return root
}

func (rt *runtime) setup(cmd *cobra.Command) error {
	if rt.output != "text" && rt.output != "json" {
		return ErrBadOutput
	}

	a, err := rt.open(cmd.Context(), rt.configPath)
	if err != nil {
		return err
	}
	rt.app = a
	rt.out = &printer{w: cmd.OutOrStdout(), json: rt.output == "json", media: a.Config.API.ResolveMedia}

	stderr := cmd.ErrOrStderr()
	explicit := cmd.Name() == "logout"
	a.Session.OnLogout(func() {
		if explicit {
			return
		}
		fmt.Fprintln(stderr, "Session ended. Please log in again.")
	})

	if rt.metrics || a.Config.Metrics.Enabled {
		if err := a.StartMetrics(); err != nil {
			return err
		}
	}

	switch guardOf(cmd) {
	case guardAuth:
		return a.RequireAuth()
	case guardGuest:
		return a.RequireGuest()
	}

	return nil
}

func (rt *runtime) teardown() error {
	if rt.app == nil {
		return nil
	}
	err := rt.app.Close()
	rt.app = nil
	return err
}

// guardOf ищет гард у команды или ближайшего предка.
func guardOf(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if g, ok := c.Annotations[guardKey]; ok {
			return g
		}
	}
	return ""
}

func protected() map[string]string { return map[string]string{guardKey: guardAuth} }
func guestOnly() map[string]string { return map[string]string{guardKey: guardGuest} }
