// Command taylor-server exposes the approximation tools over HTTP.
//
// Usage:
//
//	taylor-server --config taylor.yaml --addr :8080 [-v]
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/njchilds90/gotaylor/internal/config"
	"github.com/njchilds90/gotaylor/internal/logging"
	"github.com/njchilds90/gotaylor/internal/tools"
	"github.com/njchilds90/gotaylor/report"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newMux(h *tools.Handler, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/tool", func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic in /tool", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		defer r.Body.Close()

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req tools.Request
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if dec.More() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: trailing data"})
			return
		}

		start := time.Now()
		resp := h.Handle(r.Context(), req)
		logger.Info("tool call",
			zap.String("tool", req.Tool),
			zap.Duration("elapsed", time.Since(start)),
			zap.Bool("failed", resp.Error != ""))
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, tools.ToolSpec())
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"sessions": h.Sessions(),
			"time":     time.Now().UTC().Format(time.RFC3339),
		})
	})
	return mux
}

type server struct {
	configPath string
	addr       string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	s := &server{}
	cmd := &cobra.Command{
		Use:   "taylor-server",
		Short: "Serve the Taylor approximation tools over HTTP",
		Long: `taylor-server accepts tool calls as JSON on POST /tool. Each caller
opens a session with set_function and then runs approximate, evaluate and
report against it. GET /schema lists the tools and GET /health reports the
open session count.`,
		Example:       `  taylor-server --config taylor.yaml --addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(s.configPath)
			if err != nil {
				return err
			}
			if s.addr != "" {
				cfg.Server.Addr = s.addr
			}
			if s.verbose {
				cfg.Logging.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
			if err != nil {
				return err
			}
			s.cfg, s.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if s.logger != nil {
				_ = s.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&s.addr, "addr", "", "listen address (overrides server.addr)")
	cmd.PersistentFlags().StringVar(&s.configPath, "config", "taylor.yaml", "configuration file")
	cmd.PersistentFlags().BoolVarP(&s.verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

// serve runs the HTTP server until ctx is done, then shuts it down.
func (s *server) serve(ctx context.Context) error {
	cfg, logger := s.cfg, s.logger
	h := tools.NewHandler(
		tools.WithLogger(logger),
		tools.WithApproximatorOptions(cfg.ApproximatorOptions()...),
		tools.WithGenerator(report.NewGenerator(
			report.WithLogger(logger),
			report.WithPlotOptions(cfg.PlotOptions()))),
		tools.WithOutputDir(cfg.Output.Dir),
		tools.WithMaxSessions(cfg.Server.MaxSessions),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newMux(h, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.GetReadTimeout(),
		WriteTimeout:      cfg.GetWriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("taylor server listening",
			zap.String("addr", srv.Addr),
			zap.Int("max_sessions", cfg.Server.MaxSessions))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
