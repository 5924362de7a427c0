package frontend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/mailbox"
)

// Server is the client-facing HTTP surface of the gateway.
//
//	POST /mcp         streamable variant, answered inline
//	GET  /mcp         405, server-initiated streams are not offered
//	GET  /sse         push channel of the channel-pair variant
//	POST /messages/   command channel of the channel-pair variant
type Server struct {
	chi.Router
	dispatcher *Dispatcher
	mailbox    *mailbox.Mailbox
	tokens     TokenSource
	logger     *zap.Logger
}

type ServerOptions struct {
	Dispatcher *Dispatcher
	Mailbox    *mailbox.Mailbox
	Tokens     TokenSource
	Logger     *zap.Logger
}

func NewServer(opts ServerOptions) *Server {
	if opts.Dispatcher == nil || opts.Mailbox == nil {
		panic("frontend server requires a dispatcher and a mailbox")
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = func() []string { return nil }
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		Router:     chi.NewMux(),
		dispatcher: opts.Dispatcher,
		mailbox:    opts.Mailbox,
		tokens:     tokens,
		logger:     logger.Named("frontend"),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.Group(func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(bearerAuth(s.tokens, s.logger))

		r.Post("/mcp", s.handleStreamablePost)
		r.Get("/mcp", s.handleStreamableGet)
		r.Get("/sse", s.handleStream)
		r.Post("/messages", s.handleMessagesPost)
		r.Post("/messages/", s.handleMessagesPost)
	})
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = domain.DefaultListenAddress
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", zap.String("addr", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("gateway server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("gateway shutdown error", zap.Error(err))
			return err
		}
		s.logger.Info("gateway stopped")
		return nil
	}
}
