package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"carrierhub/pkg/app"
	"carrierhub/pkg/config"
	apperrors "carrierhub/pkg/errors"
	"carrierhub/pkg/model"

	"github.com/urfave/cli/v2"
)

const dateLayout = "2006-01-02"

type runner struct {
	out    io.Writer
	errOut io.Writer
	app    *app.Application
}

func newCLI(out, errOut io.Writer) *cli.App {
	r := &runner{out: out, errOut: errOut}

	return &cli.App{
		Name:      ServiceName,
		Usage:     "book and pay for CarrierHub consultations from the terminal",
		Writer:    out,
		ErrWriter: errOut,
		Before:    r.setup,
		After:     r.teardown,
		Commands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "check that the backend is reachable",
				Action: r.health,
			},
			{
				Name:  "register",
				Usage: "create a student account and sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "phone"},
				},
				Action: r.register,
			},
			{
				Name:  "login",
				Usage: "sign in as a student",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: r.login,
			},
			{
				Name:   "logout",
				Usage:  "forget the student session",
				Action: r.logout,
			},
			{
				Name:   "me",
				Usage:  "show the signed in student",
				Action: r.me,
			},
			{
				Name:   "categories",
				Usage:  "list consultation categories",
				Action: r.categories,
			},
			{
				Name:   "bookings",
				Usage:  "list your bookings",
				Action: r.myBookings,
			},
			{
				Name:   "booking",
				Usage:  "show one of your bookings",
				Flags:  []cli.Flag{idFlag()},
				Action: r.booking,
			},
			{
				Name:  "book",
				Usage: "book a consultation and pay for it",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "type", Required: true, Usage: "consultant type, e.g. CAREER_GUIDANCE"},
					&cli.StringFlag{Name: "details", Required: true},
					&cli.Int64Flag{Name: "amount", Required: true, Usage: "amount in paise"},
				}, payerFlags()...),
				Action: r.book,
			},
			{
				Name:  "pay",
				Usage: "pay for an existing booking",
				Flags: append([]cli.Flag{
					idFlag(),
					&cli.Int64Flag{Name: "amount", Required: true, Usage: "amount in paise"},
				}, payerFlags()...),
				Action: r.pay,
			},
			{
				Name:   "serve-checkout",
				Usage:  "run the hosted checkout server until interrupted",
				Action: r.serveCheckout,
			},
			r.adminCommand(),
		},
	}
}

func idFlag() cli.Flag {
	return &cli.IntFlag{Name: "id", Required: true}
}

func payerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Required: true},
		&cli.StringFlag{Name: "email", Required: true},
		&cli.StringFlag{Name: "phone", Required: true},
	}
}

func (r *runner) setup(c *cli.Context) error {
	cfg := config.Load(ServiceName)

	a, err := app.NewApplication(c.Context, cfg,
		app.WithNotifier(apperrors.NotifierFunc(r.notify)),
		app.WithCheckoutOpenHook(func(orderID, url string) {
			fmt.Fprintf(r.out, "Complete payment for order %s at %s\n", orderID, url)
		}),
	)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	r.app = a
	return nil
}

func (r *runner) teardown(c *cli.Context) error {
	if r.app == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.app.Config().ShutdownTimeout)
	defer cancel()
	return r.app.Close(ctx)
}

func (r *runner) notify(n apperrors.Notice) {
	fmt.Fprintf(r.errOut, "%s: %s\n", n.Title, n.Message)
	for _, f := range n.Fields {
		line := fmt.Sprintf("  %s: %s", f.Field, f.Message)
		if f.Suggestion != "" {
			line += " (" + f.Suggestion + ")"
		}
		fmt.Fprintln(r.errOut, line)
	}
	switch n.Action {
	case apperrors.ActionLogin:
		fmt.Fprintf(r.errOut, "Run `%s login` and try again.\n", ServiceName)
	case apperrors.ActionReload:
		fmt.Fprintln(r.errOut, "Try again in a moment.")
	}
}

// fail hands err to the error handler, which prints the notice, and
// returns an exit error carrying its message.
func (r *runner) fail(operation string, err error, payment bool) error {
	n := r.app.Errors().Handle(err, apperrors.HandleOptions{Context: operation, Payment: payment})
	return cli.Exit("", exitCode(n.Kind))
}

func exitCode(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindAuth:
		return 2
	case apperrors.KindValidation:
		return 3
	case apperrors.KindPayment:
		return 4
	default:
		return 1
	}
}

func (r *runner) print(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return err
}

// render prints the data of a successful envelope or reports its error.
func render[T any](r *runner, operation string, env *model.Envelope[T]) error {
	if !env.Success {
		return r.fail(operation, env.AsError(), false)
	}
	if env.Message != "" {
		fmt.Fprintln(r.errOut, env.Message)
	}
	return r.print(env.Data)
}

func writeFile(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func parseDate(c *cli.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.String(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("--%s must look like %s", name, dateLayout), 3)
	}
	return &t, nil
}

// interruptible cancels ctx on SIGINT or SIGTERM.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
