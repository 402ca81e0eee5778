package cmd

import (
	"go/types"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/gaslift/gaslift-backend/cmd/utils"
	"github.com/gaslift/gaslift-backend/internal/crashtracker"
	"github.com/gaslift/gaslift-backend/internal/monitor"
	"github.com/gaslift/gaslift-backend/internal/serve"
)

type ServeCommand struct{}

type ServerServiceInterface interface {
	StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface)
}

type ServerService struct{}

// Making sure that ServerService implements ServerServiceInterface
var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.Serve(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.MetricsServe(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting metrics server: %s", err.Error())
	}
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	serveOpts := serve.ServeOptions{}

	configOpts := config.ConfigOptions{
		{
			Name:        "port",
			Usage:       "Port where the server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.Port,
			FlagDefault: 8000,
			Required:    true,
		},
		{
			Name:           "cors-allowed-origins",
			Usage:          `Cors URLs that are allowed to access the endpoints, separated by ","`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetCorsAllowedOrigins,
			ConfigKey:      &serveOpts.CorsAllowedOrigins,
			Required:       true,
		},
		{
			Name:      "session-jwt-secret",
			Usage:     "The JWT secret used to verify the session proof tokens presented by wallet clients.",
			OptType:   types.String,
			ConfigKey: &serveOpts.SessionJWTSecret,
			Required:  true,
		},
		{
			Name:           "gateway-base-url",
			Usage:          "The base URL of the gas credit gateway.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionURLString,
			ConfigKey:      &serveOpts.GatewayBaseURL,
			Required:       true,
		},
		{
			Name:      "gateway-api-key",
			Usage:     "The API key used to authenticate against the gas credit gateway.",
			OptType:   types.String,
			ConfigKey: &serveOpts.GatewayAPIKey,
			Required:  true,
		},
		{
			Name:           "chain-rpc-url",
			Usage:          "The base URL of the ledger network RPC.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionURLString,
			ConfigKey:      &serveOpts.ChainRPCURL,
			Required:       true,
		},
		{
			Name:           "custodial-signer-url",
			Usage:          "The base URL of the custodial wallet service that signs and broadcasts transactions.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionURLString,
			ConfigKey:      &serveOpts.CustodialSignerBaseURL,
			Required:       true,
		},
		{
			Name:           "asset-contract-address",
			Usage:          "The contract address of the stablecoin asset accepted for top-ups.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionContractAddress,
			ConfigKey:      &serveOpts.AssetContractAddress,
			Required:       true,
		},
		{
			Name:        "asset-decimals",
			Usage:       "The number of decimals of the stablecoin asset, used for display amounts.",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.AssetDecimals,
			FlagDefault: 6,
			Required:    true,
		},
		{
			Name:        "low-balance-threshold",
			Usage:       "Available balance, in asset base units, at or below which a balance response is flagged as low.",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.LowBalanceThresholdUnits,
			FlagDefault: 1_000_000,
			Required:    true,
		},
	}

	// crash tracker options
	crashTrackerOptions := crashtracker.CrashTrackerOptions{}
	configOpts = append(configOpts,
		&config.ConfigOption{
			Name:           "crash-tracker-type",
			Usage:          `Crash tracker type. Options: "SENTRY", "DRY_RUN"`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionCrashTrackerType,
			ConfigKey:      &crashTrackerOptions.CrashTrackerType,
			FlagDefault:    string(crashtracker.CrashTrackerTypeDryRun),
			Required:       true,
		})

	// metrics server options
	metricsServeOpts := serve.MetricsServeOptions{}
	configOpts = append(configOpts,
		&config.ConfigOption{
			Name:           "metrics-type",
			Usage:          `Metric monitor type. Options: "PROMETHEUS"`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionMetricType,
			ConfigKey:      &metricsServeOpts.MetricType,
			FlagDefault:    "PROMETHEUS",
			Required:       true,
		},
		&config.ConfigOption{
			Name:        "metrics-port",
			Usage:       "Port where the metrics server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &metricsServeOpts.Port,
			FlagDefault: 8002,
			Required:    true,
		})

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Gaslift API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)

			// Validate & ingest input parameters
			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}

			// Initializing monitor service
			metricOptions := monitor.MetricOptions{
				MetricType:  metricsServeOpts.MetricType,
				Environment: globalOptions.Environment,
			}

			err = monitorService.Start(metricOptions)
			if err != nil {
				log.Fatalf("Error creating monitor service: %s", err.Error())
			}

			// Inject crash tracker options dependencies
			globalOptions.PopulateCrashTrackerOptions(&crashTrackerOptions)

			// Inject server dependencies
			serveOpts.Environment = globalOptions.Environment
			serveOpts.GitCommit = globalOptions.GitCommit
			serveOpts.Version = globalOptions.Version
			serveOpts.MonitorService = monitorService
			serveOpts.NetworkName = globalOptions.NetworkName

			// Inject metrics server dependencies
			metricsServeOpts.MonitorService = monitorService
			metricsServeOpts.Environment = globalOptions.Environment
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			// Setup the Crash Tracker client
			crashTrackerClient, err := crashtracker.GetClient(ctx, crashTrackerOptions)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating crash tracker client: %s", err.Error())
			}
			serveOpts.CrashTrackerClient = crashTrackerClient

			// Starting Metrics Server (background job)
			log.Ctx(ctx).Info("Starting Metrics Server...")
			go serverService.StartMetricsServe(metricsServeOpts, &serve.HTTPServer{})

			// Starting Application Server
			log.Ctx(ctx).Info("Starting Application Server...")
			serverService.StartServe(serveOpts, &serve.HTTPServer{})
		},
	}
	err := configOpts.Init(cmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
