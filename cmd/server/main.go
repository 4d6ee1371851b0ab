package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/course-sso/idp"
	"github.com/jrsteele09/course-sso/internal/config"
	"github.com/jrsteele09/course-sso/proxy"
	"github.com/jrsteele09/course-sso/server"
	"github.com/jrsteele09/course-sso/sso"
	"github.com/jrsteele09/course-sso/sso/ssofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	handler, err := newHandler(c)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listenAndServe(srv) })
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(srv)
	})
	return g.Wait()
}

func newHandler(c config.Config) (*server.Server, error) {
	creds := c.GetCredentials()
	if !creds.Present() {
		log.Warn().Msg("SSO_API_TOKEN or SSO_MERCHANT_ID is not set; OTP endpoints will answer with a configuration error")
	}

	var opts []server.Option
	vendorURL := c.GetVendorBaseURL()
	if c.GetUseFakeVendor() {
		opts = append(opts, server.WithFakeVendor(ssofake.New(creds.APIToken, creds.MerchantID)))
		vendorURL = c.GetSiteURL() + "/fake-vendor"
		log.Warn().Str("vendor_url", vendorURL).Msg("Using the stand-in SSO vendor")
	}

	svc := proxy.NewService(
		sso.NewClient(vendorURL, creds.APIToken),
		creds,
		proxy.WithSigner(sso.NewTokenSigner(creds.APIToken, c.GetSSOTokenTTL())),
		proxy.WithProviders(oauthProviders(c)...),
	)

	s, err := server.New(c, svc, opts...)
	if err != nil {
		return nil, fmt.Errorf("server.New: %w", err)
	}
	return s, nil
}

// oauthProviders returns the providers that can complete a backend code
// exchange, i.e. those with both a client id and secret.
func oauthProviders(c config.Config) []idp.Provider {
	var providers []idp.Provider
	for _, name := range []string{idp.Google, idp.GitHub} {
		client := c.GetOAuthClient(name)
		if client.ClientID == "" || client.ClientSecret == "" {
			continue
		}
		p, err := idp.NewProvider(name, client.ClientID, client.ClientSecret, idp.RedirectURI(c.GetSiteURL(), name))
		if err != nil {
			log.Err(err).Str("provider", name).Msg("Skipping OAuth provider")
			continue
		}
		providers = append(providers, p)
	}
	return providers
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
