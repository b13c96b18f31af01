// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinas/alice"
	"github.com/xmidt-org/httpcapture"
	"github.com/xmidt-org/httpcapture/bodylog"
	"github.com/xmidt-org/httpcapture/internal/config"
	"github.com/xmidt-org/httpcapture/recovery"
	"github.com/xmidt-org/httpcapture/transaction"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	conf   *config.Config
	logger *slog.Logger
}

func New(conf *config.Config) *Server {
	return &Server{
		conf:   conf,
		logger: conf.Logging.Logger(),
	}
}

// Start launches the server and its signal handlers in g.  SIGHUP reopens the log
// file, and an interrupt calls done to begin a graceful shutdown.
func (s *Server) Start(g *errgroup.Group, ctx context.Context, done context.CancelFunc) {
	g.Go(func() error {
		l, err := net.Listen("tcp", ":"+s.conf.Port)
		if err != nil {
			return err
		}

		return s.Serve(ctx, l)
	})

	g.Go(func() error {
		sighup := make(chan os.Signal, 1)
		signal.Notify(sighup, syscall.SIGHUP)
		defer signal.Stop(sighup)

		for {
			select {
			case <-sighup:
				if err := s.conf.Logging.Reopen(); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt)
		defer signal.Stop(stop)

		select {
		case <-stop:
			s.logger.Info("shutting down")
			done()
		case <-ctx.Done():
			return ctx.Err()
		}

		return nil
	})
}

// Serve accepts connections on l until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	httpserver := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error)
	go func() {
		defer close(errCh)
		s.logger.Info("listening", slog.String("address", l.Addr().String()))

		var err error
		if len(s.conf.Certfile) > 0 && len(s.conf.Keyfile) > 0 {
			err = httpserver.ServeTLS(l, s.conf.Certfile, s.conf.Keyfile)
		} else {
			err = httpserver.Serve(l)
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		tctx, cancel := context.WithTimeout(context.Background(), s.conf.ShutdownTimeout)
		defer cancel()
		return httpserver.Shutdown(tctx)
	}
}

// Handler builds the complete request pipeline in front of the configured endpoints.
func (s *Server) Handler() http.Handler {
	return s.pipeline().Then(s.buildServeMux())
}

// pipeline is transaction tracking, then response body capture, then panic recovery.
// Recovery is innermost so that the 500 it writes is both captured and seen by the
// transaction.
func (s *Server) pipeline() alice.Chain {
	return alice.New(
		transaction.Middleware(
			transaction.WithReporter(transaction.LoggerReporter{Logger: s.logger}),
		),
		bodylog.Middleware(
			bodylog.WithMatcher(s.captureMatcher()),
			bodylog.WithSink(bodylog.LoggerSink{Logger: s.logger}),
			bodylog.WithLimit(int(s.conf.MaxBody)),
			bodylog.WithTransactionName(s.conf.Capture.TransactionCategory, s.conf.Capture.TransactionName),
		),
		recovery.Middleware(
			recovery.WithLogger(s.logger),
		),
	)
}

func (s *Server) captureMatcher() httpcapture.Matcher {
	var matchers []httpcapture.Matcher
	if len(s.conf.Capture.Paths) > 0 {
		matchers = append(matchers, httpcapture.PathEquals(s.conf.Capture.Paths...))
	}

	if len(s.conf.Capture.Prefixes) > 0 {
		matchers = append(matchers, httpcapture.PathPrefix(s.conf.Capture.Prefixes...))
	}

	if len(matchers) == 0 {
		return httpcapture.Never()
	}

	return httpcapture.Any(matchers...)
}

func (s *Server) buildServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	for _, e := range s.conf.Endpoints {
		mux.Handle(e.Path, newEndpoint(e))
	}

	return mux
}
