// Command agentic-autoscaler runs each of the five control-plane
// components (probe, planner, executor, watcher, view) as a subcommand of
// one binary, one subcommand per component.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/agentic-autoscaler/internal/bus"
	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
	"github.com/sawpanic/agentic-autoscaler/internal/config"
	"github.com/sawpanic/agentic-autoscaler/internal/executor"
	"github.com/sawpanic/agentic-autoscaler/internal/net/budget"
	"github.com/sawpanic/agentic-autoscaler/internal/net/circuit"
	netclient "github.com/sawpanic/agentic-autoscaler/internal/net/client"
	"github.com/sawpanic/agentic-autoscaler/internal/net/ratelimit"
	"github.com/sawpanic/agentic-autoscaler/internal/planner"
	"github.com/sawpanic/agentic-autoscaler/internal/probe"
	"github.com/sawpanic/agentic-autoscaler/internal/view"
	"github.com/sawpanic/agentic-autoscaler/internal/watcher"
)

const appName = "agentic-autoscaler"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Closed-loop autoscaler control plane",
		Version: "1.0.0",
	}

	var target string
	var configPath string
	rootCmd.PersistentFlags().StringVar(&target, "target", "web", "primary container/deployment identifier")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file")

	rootCmd.AddCommand(
		probeCmd(&target),
		plannerCmd(&target, &configPath),
		executorCmd(&target),
		watcherCmd(&target),
		viewCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func newBus() (bus.EventBus, error) {
	addr := os.Getenv("BUS_ADDR")
	if addr == "" {
		b := bus.NewMemoryBus()
		return b, nil
	}
	password := os.Getenv("BUS_PASSWORD")
	return bus.NewRedisBus(addr, password, 0), nil
}

func shutdownContext() context.Context {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	_ = stop
	return ctx
}

func probeCmd(target *string) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Sample endpoint latency and publish windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadProbeConfig()
			if err != nil {
				return err
			}

			b, err := newBus()
			if err != nil {
				return err
			}
			ctx := shutdownContext()
			if err := b.Start(ctx); err != nil {
				return err
			}
			defer b.Stop(ctx)

			sampler := probe.New(probe.Config{
				Endpoint:       cfg.TargetURL,
				TargetURL:      cfg.TargetURL,
				Requests:       cfg.ProbeRequests,
				Timeout:        cfg.Timeout(),
				SampleInterval: cfg.SampleInterval(),
			}, nil, nil, nil)

			log.Info().Str("target_url", cfg.TargetURL).Msg("probe started")
			ticker := time.NewTicker(cfg.SampleInterval())
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					window := sampler.Sample(ctx)
					payload, err := marshalWindow(window)
					if err != nil {
						log.Error().Err(err).Msg("marshal latency window")
						continue
					}
					if err := b.Publish(ctx, bus.TopicAlerts, payload); err != nil {
						log.Error().Err(err).Msg("publish latency window")
					}
				}
			}
		},
	}
}

func plannerCmd(target, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "planner",
		Short: "Run the planner decision engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPlannerConfig(*configPath)
			if err != nil {
				return err
			}

			var advisor planner.Advisor
			heuristic := planner.HeuristicAdvisor{
				AlphaUp:     cfg.AlphaUp,
				LowNeedN:    cfg.LowNeedN,
				MinReplicas: cfg.MinReplicas,
				MaxReplicas: cfg.MaxReplicas,
			}
			if cfg.HasOracle() {
				limiter := ratelimit.NewOracleLimiter(cfg.LLMRPM)
				breaker := circuit.New(circuit.Config{
					Name:             "oracle",
					FailureThreshold: uint32(cfg.Circuit.FailureThreshold),
					OpenTimeout:      cfg.Circuit.OpenTimeout,
					RequestTimeout:   cfg.Circuit.RequestTimeout,
				})
				tracker := budget.NewTracker(int64(cfg.Budget.DailyLimit), cfg.Budget.ResetHourUTC, cfg.Budget.WarnFraction)
				httpClient := netclient.NewClient(netclient.WrapperConfig{
					RateLimiter:    limiter,
					CircuitBreaker: breaker,
					BudgetTracker:  tracker,
				}, cfg.Circuit.RequestTimeout)

				advisor = &planner.RemoteAdvisor{
					HTTPClient: httpClient,
					URL:        cfg.LLMURL,
					APIKey:     cfg.LLMAPIKey,
					Target:     *target,
				}
			} else {
				advisor = heuristic
			}

			engine := planner.NewEngine(planner.NewEngineConfig(*target, cfg), advisor, planner.SystemClock{})

			b, err := newBus()
			if err != nil {
				return err
			}
			ctx := shutdownContext()
			if err := b.Start(ctx); err != nil {
				return err
			}
			defer b.Stop(ctx)

			log.Info().Str("target", *target).Bool("oracle", cfg.HasOracle()).Msg("planner started")

			return b.Subscribe(ctx, bus.TopicAlerts, func(ctx context.Context, msg bus.Message) error {
				kind, err := busmsg.PeekKind(msg.Payload)
				if err != nil || kind != busmsg.KindLatencyMetrics {
					return nil
				}
				var window busmsg.LatencyWindow
				if err := unmarshalJSON(msg.Payload, &window); err != nil {
					log.Warn().Err(err).Msg("skip malformed latency window")
					return nil
				}
				if err := window.Validate(); err != nil {
					log.Warn().Err(err).Msg("skip invalid latency window")
					return nil
				}

				env := engine.Decide(ctx, window)
				payload, err := marshalPlan(env)
				if err != nil {
					log.Error().Err(err).Msg("marshal plan envelope")
					return nil
				}
				if err := b.Publish(ctx, bus.TopicActions, payload); err != nil {
					log.Error().Err(err).Msg("publish plan envelope")
				}
				return nil
			})
		},
	}
}

func executorCmd(target *string) *cobra.Command {
	return &cobra.Command{
		Use:   "executor",
		Short: "Apply planner decisions against the container runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadExecutorConfig()
			if err != nil {
				return err
			}

			log.Warn().Msg("executor has no concrete ContainerRuntime wired for this environment; using the in-memory dry-run runtime, no real infrastructure will be touched")
			rt := executor.NewMemoryRuntime()
			ex := executor.New(executor.Config{Target: *target, MaxReplicas: cfg.MaxReplicas}, rt, nil)

			b, err := newBus()
			if err != nil {
				return err
			}
			ctx := shutdownContext()
			if err := b.Start(ctx); err != nil {
				return err
			}
			defer b.Stop(ctx)

			log.Info().Str("target", *target).Int("max_replicas", cfg.MaxReplicas).Msg("executor started")

			return b.Subscribe(ctx, bus.TopicActions, func(ctx context.Context, msg bus.Message) error {
				kind, err := busmsg.PeekKind(msg.Payload)
				if err != nil || kind != busmsg.KindPlan {
					return nil
				}
				var env busmsg.PlanEnvelope
				if err := unmarshalJSON(msg.Payload, &env); err != nil {
					log.Warn().Err(err).Msg("skip malformed plan envelope")
					return nil
				}

				result := ex.Dispatch(ctx, env)
				payload, err := marshalResult(result)
				if err != nil {
					log.Error().Err(err).Msg("marshal action result")
					return nil
				}
				if err := b.Publish(ctx, bus.TopicResults, payload); err != nil {
					log.Error().Err(err).Msg("publish action result")
				}
				return nil
			})
		},
	}
}

func watcherCmd(target *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watcher",
		Short: "Reconcile the reverse proxy's upstream list with live replicas",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Warn().Msg("watcher requires a concrete RuntimeLister/ProxyWriter wired for this environment; not started")
			<-shutdownContext().Done()
			return nil
		},
	}
}

func viewCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Expose the latest metrics and recent results for inspection",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot := view.NewSnapshot()
			cfg := view.DefaultServerConfig()
			if port != 0 {
				cfg.Port = port
			}
			srv := view.NewServer(cfg, snapshot)

			b, err := newBus()
			if err != nil {
				return err
			}
			ctx := shutdownContext()
			if err := b.Start(ctx); err != nil {
				return err
			}
			defer b.Stop(ctx)

			if err := b.Subscribe(ctx, bus.TopicAlerts, func(ctx context.Context, msg bus.Message) error {
				var w busmsg.LatencyWindow
				if err := unmarshalJSON(msg.Payload, &w); err != nil {
					return nil
				}
				snapshot.SetLatestWindow(w)
				return nil
			}); err != nil {
				return err
			}
			if err := b.Subscribe(ctx, bus.TopicResults, func(ctx context.Context, msg bus.Message) error {
				var r busmsg.ActionResult
				if err := unmarshalJSON(msg.Payload, &r); err != nil {
					return nil
				}
				snapshot.AppendResult(r)
				return nil
			}); err != nil {
				return err
			}

			log.Info().Str("addr", srv.Address()).Msg("view started")
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			}
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port override (defaults to 8090)")
	return cmd
}
