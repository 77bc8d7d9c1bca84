// Command cleanbook is the terminal client for the cleaning-service booking
// platform: account management, availability browsing, and paid booking
// confirmation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jmaccleaning/cleanbook/internal/api"
	"github.com/jmaccleaning/cleanbook/internal/availability"
	"github.com/jmaccleaning/cleanbook/internal/booking"
	"github.com/jmaccleaning/cleanbook/internal/config"
	"github.com/jmaccleaning/cleanbook/internal/credstore"
	"github.com/jmaccleaning/cleanbook/internal/payments"
	"github.com/jmaccleaning/cleanbook/internal/pricing"
	"github.com/jmaccleaning/cleanbook/internal/session"
	"github.com/jmaccleaning/cleanbook/pkg/logging"
)

// app bundles the wired client stack for command handlers.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	client   *api.Client
	sess     *session.Session
	resolver *availability.Resolver
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	tokens := credstore.NewFileStore(cfg.TokenPath)
	client := api.NewClient(cfg.APIBaseURL, tokens, api.WithLogger(logger))
	a := &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		sess:     session.New(tokens, client, logger),
		resolver: availability.NewResolver(client, availability.WithLogger(logger)),
	}

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "signup":
		err = a.signup(ctx, args)
	case "login":
		err = a.login(ctx, args)
	case "logout":
		err = a.logout()
	case "whoami":
		err = a.whoami(ctx)
	case "update-profile":
		err = a.updateProfile(ctx, args)
	case "delete-account":
		err = a.deleteAccount(ctx)
	case "dates":
		err = a.dates(ctx)
	case "times":
		err = a.times(ctx, args)
	case "book":
		err = a.book(ctx, args)
	case "bookings":
		err = a.bookings(ctx)
	case "cancel":
		err = a.cancel(ctx, args)
	case "all-bookings":
		err = a.allBookings(ctx)
	case "set-availability":
		err = a.setAvailability(ctx, args)
	case "clear-availability":
		err = a.clearAvailability(ctx, args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", friendlyError(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: cleanbook <command> [flags]

account:
  signup          create an account
  login           log in and store the session token
  logout          clear the stored token
  whoami          show the current profile
  update-profile  change profile fields
  delete-account  delete the account

booking:
  dates           list selectable dates
  times           list bookable times for a date (-date)
  book            confirm a paid booking (-date, -time, -addons, -fans)
  bookings        list your bookings
  cancel          cancel a booking (-id)

admin:
  all-bookings        list every booking
  set-availability    set a date's time slots (-date, -times)
  clear-availability  remove a date (-date)`)
}

// friendlyError translates the typed failures the booking flow can produce
// into actionable messages.
func friendlyError(err error) string {
	var declined *booking.PaymentDeclinedError
	if errors.As(err, &declined) {
		if errors.Is(err, payments.ErrCancelled) {
			return "payment cancelled; nothing was charged"
		}
		return "payment failed: " + declined.Message
	}
	var creation *booking.BookingCreationError
	if errors.As(err, &creation) {
		return fmt.Sprintf("your payment went through but the booking could not be saved; contact support with reference %s", creation.IdempotencyKey)
	}
	if errors.Is(err, booking.ErrStaleAvailability) {
		return "that time was just taken; pick another slot"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// requireLogin resolves the stored token into an authenticated session.
func (a *app) requireLogin(ctx context.Context) error {
	if err := a.sess.CheckStatus(ctx); err != nil {
		return err
	}
	if !a.sess.Authenticated() {
		return errors.New("not logged in; run 'cleanbook login' first")
	}
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	req := api.SignupRequest{}
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.Phone, "phone", "", "phone number")
	fs.StringVar(&req.Password, "password", "", "password")
	fs.StringVar(&req.ServiceAddress, "address", "", "service address")
	fs.StringVar(&req.City, "city", "", "city")
	fs.StringVar(&req.State, "state", "", "state")
	fs.StringVar(&req.ZipCode, "zip", "", "ZIP code")
	fs.StringVar(&req.HomeType, "home-type", "apartment", "home type (apartment or house)")
	fs.IntVar(&req.HomeSize.Bedrooms, "bedrooms", 1, "bedroom count")
	fs.IntVar(&req.HomeSize.Bathrooms, "bathrooms", 1, "bathroom count")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" {
		return errors.New("signup requires -email and -password")
	}

	if err := a.client.Signup(ctx, req); err != nil {
		return err
	}
	fmt.Println("account created; log in with 'cleanbook login'")
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password")
	}

	token, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := a.sess.Login(ctx, token); err != nil {
		return err
	}
	user := a.sess.User()
	fmt.Printf("logged in as %s %s (%s)\n", user.FirstName, user.LastName, user.Email)
	return nil
}

func (a *app) logout() error {
	if err := a.sess.Logout(); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	u := a.sess.User()
	fmt.Printf("%s %s <%s>\n", u.FirstName, u.LastName, u.Email)
	fmt.Printf("  role:    %s\n", u.Role)
	fmt.Printf("  address: %s, %s, %s %s\n", u.ServiceAddress, u.City, u.State, u.ZipCode)
	fmt.Printf("  home:    %s, %d bed / %d bath\n", u.HomeType, u.HomeSize.Bedrooms, u.HomeSize.Bathrooms)
	fmt.Printf("  base cleaning price: $%d\n", u.CleaningPrice)
	return nil
}

func (a *app) updateProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update-profile", flag.ExitOnError)
	update := api.ProfileUpdate{}
	fs.StringVar(&update.FirstName, "first", "", "first name")
	fs.StringVar(&update.LastName, "last", "", "last name")
	fs.StringVar(&update.Phone, "phone", "", "phone number")
	fs.StringVar(&update.ServiceAddress, "address", "", "service address")
	fs.StringVar(&update.City, "city", "", "city")
	fs.StringVar(&update.State, "state", "", "state")
	fs.StringVar(&update.ZipCode, "zip", "", "ZIP code")
	fs.StringVar(&update.HomeType, "home-type", "", "home type")
	bedrooms := fs.Int("bedrooms", -1, "bedroom count")
	bathrooms := fs.Int("bathrooms", -1, "bathroom count")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bedrooms >= 0 || *bathrooms >= 0 {
		if *bedrooms < 0 || *bathrooms < 0 {
			return errors.New("-bedrooms and -bathrooms must be set together")
		}
		update.HomeSize = &api.HomeSize{Bedrooms: *bedrooms, Bathrooms: *bathrooms}
	}

	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.client.UpdateProfile(ctx, update); err != nil {
		return err
	}
	a.sess.RefreshUser(ctx)
	fmt.Println("profile updated")
	return nil
}

func (a *app) deleteAccount(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if !confirmPrompt(os.Stdin, os.Stdout, "Delete your account permanently?") {
		return errors.New("aborted")
	}
	if err := a.client.DeleteProfile(ctx); err != nil {
		return err
	}
	if err := a.sess.Logout(); err != nil {
		return err
	}
	fmt.Println("account deleted")
	return nil
}

func (a *app) dates(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.resolver.LoadAll(ctx); err != nil {
		return err
	}
	dates := a.resolver.SelectableDates()
	if len(dates) == 0 {
		fmt.Println("no dates currently bookable")
		return nil
	}
	for _, d := range dates {
		fmt.Println(d)
	}
	return nil
}

func (a *app) times(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("times", flag.ExitOnError)
	date := fs.String("date", "", "date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *date == "" {
		return errors.New("times requires -date")
	}

	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.resolver.LoadAll(ctx); err != nil {
		return err
	}
	times, err := a.resolver.TimesForDate(ctx, *date)
	if err != nil {
		return err
	}
	if len(times) == 0 {
		fmt.Printf("no times available on %s\n", *date)
		return nil
	}
	for _, t := range times {
		fmt.Println(t)
	}
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ExitOnError)
	date := fs.String("date", "", "date (YYYY-MM-DD)")
	timeLabel := fs.String("time", "", "time slot, e.g. '3:30 PM'")
	addons := fs.String("addons", "", "comma-separated add-ons (windows,stove)")
	fans := fs.Int("fans", 0, "ceiling fans to clean")
	yes := fs.Bool("yes", false, "skip the payment confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.resolver.LoadAll(ctx); err != nil {
		return err
	}

	sel := booking.Selection{
		Date:        *date,
		Time:        *timeLabel,
		AddOns:      splitAddOns(*addons),
		CeilingFans: *fans,
	}

	user := a.sess.User()
	total := pricing.Total(user.CleaningPrice, sel.AddOns, sel.CeilingFans)
	fmt.Printf("booking %s at %s for $%d\n", sel.Date, sel.Time, total)

	confirmer := a.newConfirmer(*yes)
	orch := booking.NewOrchestrator(a.client, a.resolver, a.sess, confirmer, a.logger)
	result, err := orch.ConfirmBooking(ctx, sel)
	if err != nil {
		return err
	}

	fmt.Printf("confirmed: %s at %s, $%d charged (booking %s)\n",
		result.Date, result.Time, result.TotalPrice, result.BookingID)
	return nil
}

// newConfirmer builds the payment confirmer: Stripe-backed, wrapped in an
// interactive prompt unless -yes was given.
func (a *app) newConfirmer(skipPrompt bool) payments.Confirmer {
	stripe := payments.NewStripeConfirmer(a.cfg.StripeAPIKey, a.logger).
		WithBaseURL(a.cfg.StripeBaseURL).
		WithDryRun(a.cfg.StripeDryRun || a.cfg.StripeAPIKey == "")
	if skipPrompt {
		return stripe
	}
	return NewPromptConfirmer(stripe, os.Stdin, os.Stdout)
}

func splitAddOns(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (a *app) bookings(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	bookings, err := a.client.UserBookings(ctx)
	if err != nil {
		return err
	}
	printBookings(bookings)
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	id := fs.String("id", "", "booking id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("cancel requires -id")
	}

	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.client.CancelBooking(ctx, *id); err != nil {
		return err
	}
	fmt.Println("booking cancelled")
	return nil
}

func (a *app) allBookings(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	bookings, err := a.client.AllBookings(ctx)
	if err != nil {
		return err
	}
	printBookings(bookings)
	return nil
}

func (a *app) setAvailability(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-availability", flag.ExitOnError)
	date := fs.String("date", "", "date (YYYY-MM-DD)")
	times := fs.String("times", "", "comma-separated time slots")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *date == "" || *times == "" {
		return errors.New("set-availability requires -date and -times")
	}

	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.client.UpdateAvailability(ctx, *date, splitAddOns(*times)); err != nil {
		return err
	}
	fmt.Printf("availability for %s updated\n", *date)
	return nil
}

func (a *app) clearAvailability(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("clear-availability", flag.ExitOnError)
	date := fs.String("date", "", "date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *date == "" {
		return errors.New("clear-availability requires -date")
	}

	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.client.DeleteAvailability(ctx, *date); err != nil {
		return err
	}
	fmt.Printf("availability for %s cleared\n", *date)
	return nil
}

func printBookings(bookings []api.Booking) {
	if len(bookings) == 0 {
		fmt.Println("no bookings")
		return
	}
	for _, b := range bookings {
		line := fmt.Sprintf("%s  %s %s  %s", b.ID, b.Date, b.Time, b.Status)
		if len(b.AddOns) > 0 {
			line += "  +" + strings.Join(b.AddOns, ",")
		}
		fmt.Println(line)
	}
}
