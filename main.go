package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socks5d/internal/config"
	"github.com/die-net/socks5d/internal/dialer"
	"github.com/die-net/socks5d/internal/logging"
	"github.com/die-net/socks5d/internal/proxy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.Parse(pflag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}

	log, err := logging.New(os.Stderr, settings.Verbose, settings.LogFormat)
	if err != nil {
		return err
	}

	ka, err := settings.KeepAlive()
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	cfg := proxy.Config{
		NegotiationTimeout: settings.NegotiationTimeout,
		LogReads:           logging.LogReads(settings.Verbose),
	}

	cfg.Dialer, err = dialer.New(dialer.Config{
		DialTimeout:       settings.DialTimeout,
		KeepAlive:         ka,
		SSHKeyPath:        settings.SSHKey,
		SSHKnownHostsPath: settings.SSHKnownHosts,
		Log:               log,
	}, settings.Upstream)
	if err != nil {
		return fmt.Errorf("invalid --upstream: %w", err)
	}
	if c, ok := cfg.Dialer.(io.Closer); ok {
		defer c.Close()
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settings.DebugListen != "" {
		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		lc := net.ListenConfig{KeepAliveConfig: ka}
		debugLn, err := lc.Listen(ctx, "tcp", settings.DebugListen)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Log().Str("addr", debugLn.Addr().String()).Msg("debug listening")
	}

	ln, err := proxy.ListenTCP("tcp", settings.Listen, proxy.ListenOptions{
		KeepAlive:          ka,
		ReusePort:          settings.ReusePort,
		ProxyProtocol:      settings.ProxyProtocol,
		ProxyHeaderTimeout: settings.NegotiationTimeout,
	})
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}
	srv := proxy.NewSOCKS5Server(cfg, log)
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})

	log.Log().
		Str("addr", ln.Addr().String()).
		Str("upstream", redactURL(settings.Upstream)).
		Msg("socks5 proxy listening")

	err = g.Wait()

	log.Log().Dur("timeout", settings.ShutdownTimeout).Msg("shutting down")

	shutdownCtx := context.Background()
	if settings.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, settings.ShutdownTimeout)
		defer cancel()
	}
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn().Err(serr).Msg("sessions force-closed")
	}

	return err
}

// redactURL hides any upstream password before it is logged.
func redactURL(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	return u.Redacted()
}
