package main

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-tutor/curricula"
	"github.com/p-n-ai/pai-tutor/internal/agent"
	"github.com/p-n-ai/pai-tutor/internal/chat"
	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/platform/cache"
	"github.com/p-n-ai/pai-tutor/internal/platform/config"
	"github.com/p-n-ai/pai-tutor/internal/platform/database"
	"github.com/p-n-ai/pai-tutor/internal/platform/logging"
	"github.com/p-n-ai/pai-tutor/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	loader, err := loadCurricula(cfg.Curriculum.Path)
	if err != nil {
		slog.Error("failed to load curricula", "error", err)
		os.Exit(1)
	}

	var checks []readinessCheck
	var events agent.EventLogger = agent.NopEventLogger{}
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare schema", "error", err)
			os.Exit(1)
		}
		events = agent.NewPostgresEventLogger(db.Pool)
		checks = append(checks, readinessCheck{Name: "database", Check: db.HealthCheck})
	}
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer func() { _ = c.Close() }()
		checks = append(checks, readinessCheck{Name: "cache", Check: c.HealthCheck})
	}

	engine, err := agent.NewEngine(agent.EngineConfig{
		Loader:          loader,
		DefaultTutorial: cfg.Curriculum.DefaultTutorial,
		EventLogger:     events,
	})
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	gateway := chat.NewGateway()
	var ws *chat.WebSocketChannel
	if cfg.WebSocket.Enabled {
		ws = chat.NewWebSocketChannel()
		gateway.Register("websocket", ws)
	}
	if cfg.Telegram.BotToken != "" {
		tg, err := chat.NewTelegramChannel(cfg.Telegram.BotToken, agent.Commands...)
		if err != nil {
			slog.Error("failed to create telegram channel", "error", err)
			os.Exit(1)
		}
		gateway.Register("telegram", tg)
	}

	if err := gateway.StartAll(ctx, newMessageHandler(ctx, engine, gateway)); err != nil {
		slog.Error("failed to start channels", "error", err)
		os.Exit(1)
	}
	defer func() { _ = gateway.StopAll() }()

	if cfg.Session.IdleTimeout > 0 {
		go engine.RunEviction(ctx, cfg.Session.IdleTimeout, evictionInterval(cfg.Session.IdleTimeout))
	}

	a := &app{engine: engine, checks: checks, exportToken: cfg.Auth.ExportToken}
	if ws != nil {
		a.ws = ws
	}
	if a.exportToken == "" {
		slog.Info("learner exports disabled, TUTOR_EXPORT_TOKEN is not set")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     newMux(a),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "tutorials", len(engine.Tutorials()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// evictionInterval is how often idle sessions are swept: a quarter of the
// timeout, at least once a minute.
func evictionInterval(idle time.Duration) time.Duration {
	if iv := idle / 4; iv < time.Minute {
		return iv
	}
	return time.Minute
}

func loadCurricula(path string) (*curriculum.Loader, error) {
	if path == "" {
		return curriculum.NewLoader(curricula.FS)
	}
	return curriculum.NewLoaderFromDir(path)
}

// newMessageHandler answers every inbound message on the channel it came from.
func newMessageHandler(ctx context.Context, engine *agent.Engine, gateway *chat.Gateway) func(chat.InboundMessage) {
	return func(msg chat.InboundMessage) {
		if err := gateway.SendTyping(ctx, msg.Channel, msg.UserID); err != nil {
			slog.Debug("typing indicator failed", "channel", msg.Channel, "error", err)
		}

		resp, err := engine.ProcessMessage(ctx, msg)
		if err != nil {
			slog.Error("failed to process message", "user_id", msg.UserID, "error", err)
			return
		}

		err = gateway.Send(ctx, chat.OutboundMessage{
			Channel: msg.Channel,
			UserID:  msg.UserID,
			Text:    resp,
		})
		if err != nil {
			slog.Error("failed to send reply", "channel", msg.Channel, "user_id", msg.UserID, "error", err)
		}
	}
}

// readinessCheck is a dependency probed by /readyz.
type readinessCheck struct {
	Name  string
	Check func(context.Context) error
}

type app struct {
	engine      *agent.Engine
	ws          http.Handler
	checks      []readinessCheck
	exportToken string // bearer token for /learners; empty rejects every request
}

// newMux creates the HTTP router with health checks, the chat socket and
// the per-learner exports.
func newMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.HandleFunc("GET /tutorials", a.handleTutorials)
	mux.HandleFunc("GET /learners/{userID}/progress.xlsx", a.requireExportToken(a.handleProgressExport))
	mux.HandleFunc("GET /learners/{userID}/transcript.txt", a.requireExportToken(a.handleTranscript))
	if a.ws != nil {
		mux.Handle("/ws", a.ws)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (a *app) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for _, c := range a.checks {
		if err := c.Check(ctx); err != nil {
			slog.Warn("readiness check failed", "dependency", c.Name, "error", err)
			failed[c.Name] = err.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if len(failed) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func (a *app) handleTutorials(w http.ResponseWriter, r *http.Request) {
	type tutorial struct {
		ID     string   `json:"id"`
		Name   string   `json:"name"`
		Topics []string `json:"topics"`
	}
	var out []tutorial
	for _, c := range a.engine.Tutorials() {
		out = append(out, tutorial{ID: c.ID, Name: c.Name, Topics: c.TopicNames()})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// requireExportToken rejects requests without "Authorization: Bearer <token>"
// matching the configured export token.
func (a *app) requireExportToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if a.exportToken == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(a.exportToken)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="tutor"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (a *app) handleProgressExport(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	tutorial, progress, ok := a.engine.Progress(userID)
	if !ok {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteProgressXLSX(&buf, tutorial+" progress", progress); err != nil {
		slog.Error("failed to export progress", "user_id", userID, "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

func (a *app) handleTranscript(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	msgs, ok := a.engine.Transcript(userID)
	if !ok {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}

	lines := make([]report.Line, 0, len(msgs))
	for _, m := range msgs {
		speaker := report.SpeakerAgent
		if m.Role == "user" {
			speaker = report.SpeakerLearner
		}
		lines = append(lines, report.Line{Speaker: speaker, Text: m.Content})
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := report.WriteTranscript(w, lines); err != nil {
		slog.Warn("failed to write transcript", "user_id", userID, "error", err)
	}
}
