package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/MansiChugh28/auctionhouse"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchMetricsAddr   string
	watchWebhookAddr   string
	watchWebhookSecret string
	watchEvents        []string
)

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	watchCmd.Flags().StringVar(&watchWebhookAddr, "webhook-addr", "", "Also accept signed events over HTTP on this address")
	watchCmd.Flags().StringVar(&watchWebhookSecret, "webhook-secret", "", "HMAC secret for --webhook-addr")
	watchCmd.Flags().StringSliceVar(&watchEvents, "event", nil, "Only print these events (wire or canonical names; unknown names match eventReceived)")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live auction events",
	Long:  "Connect to the realtime stream and print bids, auction updates and ending-soon notices until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchWebhookAddr != "" && watchWebhookSecret == "" {
			return fmt.Errorf("--webhook-secret is required with --webhook-addr")
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := newLogger()
		defer func() { _ = logger.Sync() }()

		client, err := getClient(cfg, logger, false)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		metrics := auctionhouse.NewMetrics(reg)

		rt := auctionhouse.NewRealtimeClient(&auctionhouse.RealtimeConfig{
			Credentials:          configCredentials{log: logger},
			MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
			ReconnectDelay:       time.Duration(cfg.Realtime.ReconnectDelayMS) * time.Millisecond,
			Logger:               logger,
			Metrics:              metrics,
		})

		out := &syncWriter{w: cmd.OutOrStdout()}
		store := auctionhouse.NewEventStore()
		printer := newEventPrinter(out, watchEvents)
		sink := auctionhouse.SinkFunc(func(a auctionhouse.Action) {
			store.Dispatch(a)
			printer.print(a)
		})

		rt.Subscribe(auctionhouse.EventAuctionEndingSoon, func(payload json.RawMessage) {
			notice := auctionhouse.ParseEndingSoon(payload)
			fmt.Fprintf(out, "!! %s\n", notice.Message())
		})

		var servers []*http.Server
		if watchMetricsAddr != "" {
			servers = append(servers, serve(logger, watchMetricsAddr, "/metrics",
				promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		}
		if watchWebhookAddr != "" {
			wh, err := auctionhouse.NewEventWebhook(watchWebhookSecret, rt)
			if err != nil {
				return err
			}
			servers = append(servers, serve(logger, watchWebhookAddr, "/events", wh.HTTPHandler()))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		endpoint := streamURL(cfg, client)
		fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", endpoint)
		store.MarkConnecting()
		rt.Connect(endpoint, sink)

		<-ctx.Done()
		rt.Disconnect()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}

		fmt.Fprintf(out, "Stopped after %d events.\n", len(store.History()))
		return nil
	},
}

func serve(logger *zap.Logger, addr, path string, h http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("path", path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return srv
}

// ============================================================================
// Output
// ============================================================================

// syncWriter serializes writes from the read goroutine and webhook handlers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type eventPrinter struct {
	out    io.Writer
	filter map[string]bool
}

func newEventPrinter(out io.Writer, events []string) *eventPrinter {
	p := &eventPrinter{out: out}
	if len(events) > 0 {
		p.filter = make(map[string]bool, len(events))
		for _, e := range events {
			name, _ := auctionhouse.Canonicalize(e)
			p.filter[name] = true
		}
	}
	return p
}

func (p *eventPrinter) print(a auctionhouse.Action) {
	name := strings.TrimPrefix(a.Type, auctionhouse.ActionPrefix)
	switch name {
	case auctionhouse.EventConnectionOpened:
		fmt.Fprintln(p.out, "-- connected")
		return
	case auctionhouse.EventConnectionError:
		fmt.Fprintf(p.out, "-- %v\n", a.Payload)
		return
	case auctionhouse.EventConnectionClosed:
		if ci, ok := a.Payload.(auctionhouse.CloseInfo); ok {
			fmt.Fprintf(p.out, "-- closed (%d) %s\n", ci.Code, ci.Reason)
		}
		return
	case auctionhouse.EventAuctionEndingSoon:
		// printed by the ending-soon subscription
		return
	}
	if p.filter != nil && !p.filter[name] {
		return
	}

	payload, _ := a.Payload.(json.RawMessage)
	fmt.Fprintf(p.out, "[%s] %s %s\n", time.Now().Format("15:04:05"), name, compact(payload))
}

func compact(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return string(raw)
	}
	return string(b)
}
