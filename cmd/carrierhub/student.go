package main

import (
	"fmt"

	"carrierhub/internal/payment"
	apperrors "carrierhub/pkg/errors"
	"carrierhub/pkg/model"

	"github.com/urfave/cli/v2"
)

func (r *runner) health(c *cli.Context) error {
	return render(r, "health check", r.app.API().HealthCheck(c.Context))
}

func (r *runner) register(c *cli.Context) error {
	env := r.app.API().Register(c.Context, model.RegisterRequest{
		Name:     c.String("name"),
		Email:    c.String("email"),
		Phone:    c.String("phone"),
		Password: c.String("password"),
	})
	if !env.Success {
		return r.fail("register", env.AsError(), false)
	}
	fmt.Fprintf(r.out, "Welcome, %s\n", env.Data.User.Name)
	return nil
}

func (r *runner) login(c *cli.Context) error {
	env := r.app.API().Login(c.Context, model.LoginRequest{
		Email:    c.String("email"),
		Password: c.String("password"),
	})
	if !env.Success {
		return r.fail("login", env.AsError(), false)
	}
	fmt.Fprintf(r.out, "Signed in as %s\n", env.Data.User.Email)
	return nil
}

func (r *runner) logout(c *cli.Context) error {
	if err := r.app.API().Logout(c.Context); err != nil {
		return r.fail("logout", err, false)
	}
	fmt.Fprintln(r.out, "Signed out")
	return nil
}

func (r *runner) me(c *cli.Context) error {
	return render(r, "load profile", r.app.API().Me(c.Context))
}

func (r *runner) categories(c *cli.Context) error {
	return render(r, "load categories", r.app.API().Categories(c.Context))
}

func (r *runner) myBookings(c *cli.Context) error {
	return render(r, "load bookings", r.app.API().MyBookings(c.Context))
}

func (r *runner) booking(c *cli.Context) error {
	return render(r, "load booking", r.app.API().Booking(c.Context, c.Int("id")))
}

func payerForm(c *cli.Context) payment.FormData {
	return payment.FormData{
		Name:   c.String("name"),
		Email:  c.String("email"),
		Phone:  c.String("phone"),
		Amount: c.Int64("amount"),
	}
}

func (r *runner) book(c *cli.Context) error {
	req := model.CreateBookingRequest{
		ConsultantType: model.ConsultantType(c.String("type")),
		Details:        c.String("details"),
		Amount:         c.Int64("amount"),
	}
	return r.checkout(c, func(b *payment.Bridge) (payment.Result, error) {
		ctx, cancel := interruptible(c.Context)
		defer cancel()
		return b.BookAndPay(ctx, req, payerForm(c))
	})
}

func (r *runner) pay(c *cli.Context) error {
	return r.checkout(c, func(b *payment.Bridge) (payment.Result, error) {
		ctx, cancel := interruptible(c.Context)
		defer cancel()
		return b.Pay(ctx, c.Int("id"), payerForm(c))
	})
}

// checkout starts the hosted checkout server, runs fn and reports how the
// payment ended.
func (r *runner) checkout(c *cli.Context, fn func(b *payment.Bridge) (payment.Result, error)) error {
	if err := r.app.StartCheckout(); err != nil {
		return r.fail("start checkout", err, true)
	}

	res, err := fn(r.app.Bridge())
	if err != nil {
		return r.fail("payment", err, true)
	}

	fmt.Fprintln(r.out, res.Message)
	switch res.Outcome {
	case payment.OutcomeSucceeded:
		fmt.Fprintf(r.out, "Booking %d confirmed (%s)\n", res.BookingID, res.Redirect)
		return nil
	case payment.OutcomeCancelled:
		return cli.Exit("", 5)
	default:
		return cli.Exit("", exitCode(apperrors.KindPayment))
	}
}

func (r *runner) serveCheckout(c *cli.Context) error {
	fmt.Fprintf(r.out, "Checkout server listening on %s\n", r.app.Config().CheckoutAddr)
	return r.app.Run()
}
