package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/metal-stack/metal-lib/bus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/datastore"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/eventbus"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/issues"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/lifecycle"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/manufacturer"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/metrics"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/reconcile"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/scopeconfig"
)

const cfgFileType = "yaml"

var (
	cfgFile string
	logger  *zap.Logger
	ds      *datastore.RethinkStore
	nsq     eventbus.NSQClient
	sink    eventbus.Sink
)

var rootCmd = &cobra.Command{
	Use:   "rf-api",
	Short: "discovery reconciliation and lifecycle engine for wireless audio fleets",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
		initDataStore()
		initEventBus()
		initSignalHandlers()
	},
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "alternative path to config file")
	rootCmd.Flags().StringP("log-level", "", "info", "the application log level")

	rootCmd.Flags().StringP("metrics-addr", "", ":2112", "the bind addr of the metrics endpoint")

	rootCmd.Flags().StringP("db-name", "", "rfapi", "the database name to use")
	rootCmd.Flags().StringP("db-addr", "", "", "the database address string to use")
	rootCmd.Flags().StringP("db-user", "", "", "the database user to use")
	rootCmd.Flags().StringP("db-password", "", "", "the database password to use")

	rootCmd.Flags().StringP("nsqd-addr", "", "nsqd:4150", "the address of the nsqd")
	rootCmd.Flags().StringP("nsqd-http-addr", "", "nsqd:4151", "the address of the nsqd rest endpoint")

	rootCmd.Flags().DurationP("sweep-interval", "", 60*time.Second, "the discovery sweep interval per vendor")
	rootCmd.Flags().DurationP("issues-interval", "", 5*time.Minute, "how often to evaluate fleet issues")
	rootCmd.Flags().StringSliceP("vendors", "", nil, "the vendor plugins to sweep with, configured under vendor.<code>")

	err := viper.BindPFlags(rootCmd.Flags())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("RF_API")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigType(cfgFileType)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "config file path set explicitly, but unreadable: %v\n", err)
			os.Exit(1)
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("/etc/rf-api")
		viper.AddConfigPath("$HOME/.rf-api")
		viper.AddConfigPath(".")
		if err := viper.ReadInConfig(); err != nil {
			usedCfg := viper.ConfigFileUsed()
			if usedCfg != "" {
				fmt.Fprintf(os.Stderr, "config file %s unreadable: %v\n", usedCfg, err)
				os.Exit(1)
			}
		}
	}
}

func initLogging() {
	level := zap.InfoLevel
	if viper.IsSet("log-level") {
		var err error
		level, err = zapcore.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "unparsable log level: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	var err error
	logger, err = cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to initialize logger: %v\n", err)
		os.Exit(1)
	}
}

func initDataStore() {
	ds = datastore.New(
		logger,
		viper.GetString("db-addr"),
		viper.GetString("db-name"),
		viper.GetString("db-user"),
		viper.GetString("db-password"),
	)

	err := ds.Connect()
	if err != nil {
		logger.Sugar().Fatalw("cannot connect to datastore", "error", err)
	}
	err = ds.Initialize()
	if err != nil {
		logger.Sugar().Fatalw("cannot initialize datastore", "error", err)
	}
}

func initEventBus() {
	publisherConfig := &bus.PublisherConfig{
		TCPAddress:   viper.GetString("nsqd-addr"),
		HTTPEndpoint: viper.GetString("nsqd-http-addr"),
	}

	nsq = eventbus.NewNSQ(publisherConfig, logger, bus.NewPublisher)
	nsq.WaitForPublisher()
	nsq.WaitForTopicsCreated(inventory.Topics)

	sink = eventbus.NewBusSink(logger.Sugar(), nsq.Publisher)
}

func initSignalHandlers() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		logger.Sugar().Infow("received signal, shutting down")
		if ds != nil {
			err := ds.Close()
			if err != nil {
				logger.Sugar().Errorw("unable to properly shutdown datastore", "error", err)
				os.Exit(1)
			}
		}
		os.Exit(0)
	}()
}

func run() {
	log := logger.Sugar()

	resolver := scopeconfig.NewCachingResolver(scopeconfig.NewViperResolver(viper.GetViper()), 30*time.Second)
	engine := lifecycle.NewEngine(logger, ds, sink, resolver)
	reconciler := reconcile.New(logger, ds, sink, engine)

	vendors := viper.GetStringSlice("vendors")
	if len(vendors) == 0 {
		vendors = manufacturer.Codes()
	}

	plugins := make([]manufacturer.Plugin, 0, len(vendors))
	for _, code := range vendors {
		plugin, err := manufacturer.New(code, viper.GetStringMapString("vendor."+code))
		if err != nil {
			log.Fatalw("cannot initialize vendor plugin", "vendor", code, "error", err)
		}
		plugins = append(plugins, plugin)
	}

	go serveMetrics(viper.GetString("metrics-addr"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	for _, plugin := range plugins {
		plugin := plugin
		g.Go(func() error {
			return sweepLoop(ctx, reconciler, plugin, viper.GetDuration("sweep-interval"))
		})
	}

	g.Go(func() error {
		return issuesLoop(ctx, viper.GetDuration("issues-interval"))
	})

	log.Infow("rf-api running", "vendors", vendors)

	err := g.Wait()
	if err != nil {
		log.Fatalw("service failed", "error", err)
	}
}

// sweepLoop runs discovery sweeps for one vendor until the context ends.
// Vendors never block each other, every plugin has its own loop.
func sweepLoop(ctx context.Context, reconciler *reconcile.Reconciler, plugin manufacturer.Plugin, interval time.Duration) error {
	log := logger.Sugar()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := reconciler.Sweep(ctx, plugin)
		if err != nil {
			log.Errorw("discovery sweep failed", "vendor", plugin.Code(), "error", err)
		} else if report.Conflicts > 0 {
			log.Warnw("discovery sweep produced conflicts", "vendor", report.Vendor, "conflicts", report.Conflicts)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// issuesLoop periodically evaluates the fleet for operator-relevant issues
// and refreshes the state distribution gauges.
func issuesLoop(ctx context.Context, interval time.Duration) error {
	log := logger.Sugar()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		err := evaluateIssues(ctx)
		if err != nil {
			log.Errorw("issue evaluation failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func evaluateIssues(ctx context.Context) error {
	log := logger.Sugar()

	cc, err := ds.Chassis().List(ctx)
	if err != nil {
		return err
	}
	uu, err := ds.FieldUnit().List(ctx)
	if err != nil {
		return err
	}
	dd, err := ds.DiscoveredDevice().List(ctx)
	if err != nil {
		return err
	}

	chassis := make(inventory.Chassiss, 0, len(cc))
	chassisStates := map[string]int{}
	for _, c := range cc {
		chassis = append(chassis, *c)
		chassisStates[c.State.String()]++
	}
	units := make(inventory.FieldUnits, 0, len(uu))
	unitStates := map[string]int{}
	for _, u := range uu {
		units = append(units, *u)
		unitStates[u.State.String()]++
	}
	devices := make([]inventory.DiscoveredDevice, 0, len(dd))
	for _, d := range dd {
		devices = append(devices, *d)
	}

	metrics.ProvideStateDistribution((&inventory.Chassis{}).TableName(), chassisStates)
	metrics.ProvideStateDistribution((&inventory.FieldUnit{}).TableName(), unitStates)

	found, err := issues.Find(&issues.Config{
		Chassis:    chassis,
		FieldUnits: units,
		Discovered: devices,
	})
	if err != nil {
		return err
	}

	for _, e := range found {
		for _, i := range e.Issues {
			log.Warnw("fleet issue",
				"kind", e.Kind, "entity", e.ID, "name", e.Name,
				"issue", i.Type, "severity", i.Severity, "details", i.Details)
		}
	}

	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		err := ds.Health()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	err := http.ListenAndServe(addr, mux)
	if err != nil {
		logger.Sugar().Errorw("metrics endpoint failed", "error", err)
	}
}
