package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"campsync/internal/campaign"
	"campsync/internal/config"
	"campsync/internal/console"
	"campsync/internal/logging"
	"campsync/internal/metrics"
)

var (
	stageColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	gateColor   = color.New(color.FgYellow).SprintFunc()
	okColor     = color.New(color.FgGreen).SprintFunc()
	warnColor   = color.New(color.FgRed).SprintFunc()
	senderColor = color.New(color.FgHiBlack).SprintFunc()
)

func newRunCommand(configPath *string) *cobra.Command {
	var backendURL string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the operator console against a workflow backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if backendURL != "" {
				cfg.BackendURL = backendURL
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return runConsole(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&backendURL, "backend", "", "workflow backend base URL (overrides config)")
	return cmd
}

func runConsole(parent context.Context, cfg config.Config) error {
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.SetDefault(logger)

	var observer metrics.Observer
	if cfg.MetricsAddr != "" {
		prom, err := metrics.NewPrometheusObserver("campsync", nil)
		if err != nil {
			return err
		}
		observer = prom
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := newRenderer()
	engine := console.New(console.Options{
		Transport: cfg.TransportConfig(),
		Logger:    logger,
		Observer:  observer,
		OnUpdate:  renderer.render,
	})

	group, ctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
		group.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		return engine.Run(ctx)
	})
	group.Go(func() error {
		return readCommands(ctx, engine)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// readCommands drives the engine from stdin: plain lines are campaign
// prompts, slash commands resolve approval gates.
func readCommands(ctx context.Context, engine *console.Engine) error {
	scanner := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				<-ctx.Done()
				return ctx.Err()
			}
			if err := dispatch(ctx, engine, line); err != nil {
				fmt.Println(warnColor("error: " + err.Error()))
			}
		}
	}
}

func dispatch(ctx context.Context, engine *console.Engine, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return engine.SubmitPrompt(ctx, line)
	}

	fields := strings.Fields(line)
	action := campaign.Action(strings.TrimPrefix(fields[0], "/"))
	if action != campaign.ActionApprove && action != campaign.ActionReject {
		return fmt.Errorf("unknown command %s (use /approve or /reject)", fields[0])
	}

	decision := campaign.Decision{Gate: campaign.GateBrief, Action: action}
	if len(fields) > 1 {
		decision.Gate = campaign.Gate(fields[1])
	}
	if len(fields) > 2 {
		rest := strings.Join(fields[2:], " ")
		if action == campaign.ActionApprove {
			decision.EditedPayload = rest
		} else {
			decision.Feedback = rest
		}
	}
	return engine.Decide(ctx, decision)
}

// renderer prints incremental console updates: new transcript lines as they
// arrive, plus a status line whenever stage, gates, or connectivity change.
type renderer struct {
	printed    int
	lastStatus string
}

func newRenderer() *renderer {
	return &renderer{}
}

func (r *renderer) render(snapshot console.Snapshot) {
	for _, msg := range snapshot.Transcript[r.printed:] {
		fmt.Printf("%s %s\n", senderColor("["+string(msg.Sender)+"]"), msg.Content)
	}
	r.printed = len(snapshot.Transcript)

	status := statusLine(snapshot)
	if status != r.lastStatus {
		r.lastStatus = status
		fmt.Println(status)
	}
}

func statusLine(snapshot console.Snapshot) string {
	var parts []string
	parts = append(parts, "stage="+stageColor(string(snapshot.Stage)))

	var gates []string
	if snapshot.State.NeedsApproval {
		gates = append(gates, string(campaign.GateBrief))
	}
	if snapshot.State.NeedsCreativeApproval {
		gates = append(gates, string(campaign.GateCreative))
	}
	if snapshot.State.NeedsLocalizationApproval {
		gates = append(gates, string(campaign.GateLocalization))
	}
	if snapshot.State.NeedsScheduleApproval {
		gates = append(gates, string(campaign.GateSchedule))
	}
	if len(gates) > 0 {
		parts = append(parts, gateColor("awaiting "+strings.Join(gates, ",")))
	}

	parts = append(parts, fmt.Sprintf("media=%d locales=%d slots=%d",
		len(snapshot.State.Media), len(snapshot.State.Localizations), len(snapshot.State.Schedule)))

	if snapshot.State.Published != nil && *snapshot.State.Published {
		parts = append(parts, okColor("published"))
	}
	if snapshot.State.Error != "" {
		parts = append(parts, warnColor("error: "+snapshot.State.Error))
	}
	if snapshot.Connected {
		parts = append(parts, okColor("connected"))
	} else {
		parts = append(parts, warnColor("disconnected"))
	}
	return strings.Join(parts, "  ")
}
