package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"carrierhub/pkg/events"
	"carrierhub/pkg/model"

	"github.com/urfave/cli/v2"
)

func (r *runner) adminCommand() *cli.Command {
	filterFlags := []cli.Flag{
		&cli.StringFlag{Name: "status"},
		&cli.StringFlag{Name: "type", Usage: "consultant type"},
		&cli.StringFlag{Name: "search"},
		&cli.StringFlag{Name: "from", Usage: "start date, " + dateLayout},
		&cli.StringFlag{Name: "to", Usage: "end date, " + dateLayout},
		&cli.IntFlag{Name: "page"},
		&cli.IntFlag{Name: "limit"},
	}

	return &cli.Command{
		Name:  "admin",
		Usage: "administrative commands",
		Subcommands: []*cli.Command{
			{
				Name: "login",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: r.adminLogin,
			},
			{Name: "logout", Action: r.adminLogout},
			{Name: "stats", Usage: "dashboard statistics", Action: r.adminStats},
			{
				Name:   "revenue",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "period", Value: string(model.PeriodMonth)}},
				Action: r.adminRevenue,
			},
			{Name: "bookings", Flags: filterFlags, Action: r.adminBookings},
			{Name: "booking", Flags: []cli.Flag{idFlag()}, Action: r.adminBooking},
			{
				Name: "set-status",
				Flags: []cli.Flag{
					idFlag(),
					&cli.StringFlag{Name: "status", Required: true},
				},
				Action: r.adminSetStatus,
			},
			{Name: "delete-booking", Flags: []cli.Flag{idFlag()}, Action: r.adminDeleteBooking},
			{
				Name:   "export",
				Usage:  "export bookings as CSV",
				Flags:  append([]cli.Flag{&cli.StringFlag{Name: "out", Value: "-"}}, filterFlags...),
				Action: r.adminExport,
			},
			{
				Name: "users",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search"},
					&cli.StringFlag{Name: "role"},
					&cli.IntFlag{Name: "page"},
					&cli.IntFlag{Name: "limit"},
				},
				Action: r.adminUsers,
			},
			{Name: "user", Flags: []cli.Flag{idFlag()}, Action: r.adminUser},
			{
				Name: "update-user",
				Flags: []cli.Flag{
					idFlag(),
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "phone"},
					&cli.StringFlag{Name: "role"},
				},
				Action: r.adminUpdateUser,
			},
			{Name: "delete-user", Flags: []cli.Flag{idFlag()}, Action: r.adminDeleteUser},
			{Name: "settings", Action: r.adminSettings},
			{
				Name:   "backup",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "out", Value: "-"}},
				Action: r.adminBackup,
			},
			{
				Name:  "payment-events",
				Usage: "stream payment outcome events until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Usage: "consumer group for committed offsets"},
					&cli.BoolFlag{Name: "from-beginning"},
				},
				Action: r.adminPaymentEvents,
			},
			{
				Name:   "restore",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "file", Required: true}},
				Action: r.adminRestore,
			},
		},
	}
}

func (r *runner) adminLogin(c *cli.Context) error {
	env := r.app.API().AdminLogin(c.Context, model.LoginRequest{
		Email:    c.String("email"),
		Password: c.String("password"),
	})
	if !env.Success {
		return r.fail("admin login", env.AsError(), false)
	}
	fmt.Fprintf(r.out, "Signed in as admin %s\n", env.Data.Admin.Email)
	return nil
}

func (r *runner) adminLogout(c *cli.Context) error {
	if err := r.app.API().AdminLogout(c.Context); err != nil {
		return r.fail("admin logout", err, false)
	}
	fmt.Fprintln(r.out, "Admin signed out")
	return nil
}

func (r *runner) adminStats(c *cli.Context) error {
	return render(r, "load dashboard stats", r.app.API().DashboardStats(c.Context))
}

func (r *runner) adminRevenue(c *cli.Context) error {
	return render(r, "load revenue", r.app.API().RevenueAnalytics(c.Context, model.RevenuePeriod(c.String("period"))))
}

func bookingFilter(c *cli.Context) (model.BookingFilter, error) {
	from, err := parseDate(c, "from")
	if err != nil {
		return model.BookingFilter{}, err
	}
	to, err := parseDate(c, "to")
	if err != nil {
		return model.BookingFilter{}, err
	}
	return model.BookingFilter{
		Status:         model.BookingStatus(c.String("status")),
		ConsultantType: model.ConsultantType(c.String("type")),
		Search:         c.String("search"),
		From:           from,
		To:             to,
		Page:           c.Int("page"),
		Limit:          c.Int("limit"),
	}, nil
}

func (r *runner) adminBookings(c *cli.Context) error {
	f, err := bookingFilter(c)
	if err != nil {
		return err
	}
	return render(r, "load bookings", r.app.API().AdminBookings(c.Context, f))
}

func (r *runner) adminBooking(c *cli.Context) error {
	return render(r, "load booking", r.app.API().AdminBooking(c.Context, c.Int("id")))
}

func (r *runner) adminSetStatus(c *cli.Context) error {
	return render(r, "update booking status",
		r.app.API().UpdateBookingStatus(c.Context, c.Int("id"), model.BookingStatus(c.String("status"))))
}

func (r *runner) adminDeleteBooking(c *cli.Context) error {
	env := r.app.API().DeleteBooking(c.Context, c.Int("id"))
	if !env.Success {
		return r.fail("delete booking", env.AsError(), false)
	}
	fmt.Fprintf(r.out, "Booking %d deleted\n", c.Int("id"))
	return nil
}

func (r *runner) adminExport(c *cli.Context) error {
	f, err := bookingFilter(c)
	if err != nil {
		return err
	}
	env := r.app.API().ExportBookings(c.Context, f)
	if !env.Success {
		return r.fail("export bookings", env.AsError(), false)
	}
	return writeFile(c.String("out"), env.Data.Data)
}

func (r *runner) adminUsers(c *cli.Context) error {
	return render(r, "load users", r.app.API().AdminUsers(c.Context, model.UserFilter{
		Search: c.String("search"),
		Role:   model.Role(c.String("role")),
		Page:   c.Int("page"),
		Limit:  c.Int("limit"),
	}))
}

func (r *runner) adminUser(c *cli.Context) error {
	return render(r, "load user", r.app.API().AdminUser(c.Context, c.Int("id")))
}

func (r *runner) adminUpdateUser(c *cli.Context) error {
	var upd model.UserUpdate
	if c.IsSet("name") {
		v := c.String("name")
		upd.Name = &v
	}
	if c.IsSet("email") {
		v := c.String("email")
		upd.Email = &v
	}
	if c.IsSet("phone") {
		v := c.String("phone")
		upd.Phone = &v
	}
	if c.IsSet("role") {
		v := model.Role(c.String("role"))
		upd.Role = &v
	}
	return render(r, "update user", r.app.API().UpdateUser(c.Context, c.Int("id"), upd))
}

func (r *runner) adminDeleteUser(c *cli.Context) error {
	env := r.app.API().DeleteUser(c.Context, c.Int("id"))
	if !env.Success {
		return r.fail("delete user", env.AsError(), false)
	}
	fmt.Fprintf(r.out, "User %d deleted\n", c.Int("id"))
	return nil
}

func (r *runner) adminSettings(c *cli.Context) error {
	return render(r, "load settings", r.app.API().Settings(c.Context))
}

func (r *runner) adminBackup(c *cli.Context) error {
	env := r.app.API().DownloadBackup(c.Context)
	if !env.Success {
		return r.fail("download backup", env.AsError(), false)
	}
	return writeFile(c.String("out"), env.Data.Data)
}

func (r *runner) adminRestore(c *cli.Context) error {
	path := c.String("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to read backup: %v", err), 1)
	}
	env := r.app.API().RestoreBackup(c.Context, filepath.Base(path), data)
	if !env.Success {
		return r.fail("restore backup", env.AsError(), false)
	}
	fmt.Fprintln(r.out, "Backup restored")
	return nil
}

func (r *runner) adminPaymentEvents(c *cli.Context) error {
	if len(r.app.Config().KafkaBrokers) == 0 {
		return cli.Exit("KAFKA_BROKERS is not configured", 1)
	}

	consumer, err := r.app.PaymentEvents(c.String("group"), c.Bool("from-beginning"),
		func(_ context.Context, ev events.PaymentEvent) error {
			return r.print(ev)
		})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer consumer.Close()

	ctx, cancel := interruptible(c.Context)
	defer cancel()
	return consumer.Run(ctx)
}
