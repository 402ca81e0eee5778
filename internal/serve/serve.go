package serve

import (
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	supporthttp "github.com/stellar/go-stellar-sdk/support/http"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/gaslift/gaslift-backend/internal/chain"
	"github.com/gaslift/gaslift-backend/internal/crashtracker"
	"github.com/gaslift/gaslift-backend/internal/gateway"
	"github.com/gaslift/gaslift-backend/internal/ledger"
	"github.com/gaslift/gaslift-backend/internal/monitor"
	"github.com/gaslift/gaslift-backend/internal/serve/httperror"
	"github.com/gaslift/gaslift-backend/internal/serve/httphandler"
	"github.com/gaslift/gaslift-backend/internal/serve/middleware"
	"github.com/gaslift/gaslift-backend/internal/sessionauth"
	"github.com/gaslift/gaslift-backend/internal/signer"
	"github.com/gaslift/gaslift-backend/internal/sponsor"
	"github.com/gaslift/gaslift-backend/internal/x402"
)

const ServiceID = "serve"

// Requests per minute per client IP on the authenticated routes. Every flow
// behind them reaches the gateway or the chain RPC, so the cap protects those
// upstreams more than this process.
const rateLimitRequestsPerMinute = 60

type HTTPServerInterface interface {
	Run(conf supporthttp.Config)
}

type HTTPServer struct{}

func (h *HTTPServer) Run(conf supporthttp.Config) {
	supporthttp.Run(conf)
}

type ServeOptions struct {
	Environment              string
	GitCommit                string
	Port                     int
	Version                  string
	MonitorService           monitor.MonitorServiceInterface
	CrashTrackerClient       crashtracker.CrashTrackerClient
	CorsAllowedOrigins       []string
	GatewayBaseURL           string
	GatewayAPIKey            string
	ChainRPCURL              string
	CustodialSignerBaseURL   string
	NetworkName              string
	AssetContractAddress     string
	AssetDecimals            int
	LowBalanceThresholdUnits int
	SessionJWTSecret         string
	sessionJWTManager        *sessionauth.JWTManager
	gatewayClient            gateway.ClientInterface
	rpcClient                chain.RPCClient
	balanceCache             ledger.BalanceCacheInterface
	orchestrator             sponsor.OrchestratorInterface
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
func (opts *ServeOptions) SetupDependencies() error {
	// Setup crash tracker:
	// Call crash tracker FlushEvents to flush buffered events before the server terminates
	defer opts.CrashTrackerClient.FlushEvents(2 * time.Second)
	// Call crash tracker Recover for recover from unhandled panics
	defer opts.CrashTrackerClient.Recover()
	// Set crash tracker LogAndReportErrors as DefaultReportErrorFunc
	httperror.SetDefaultReportErrorFunc(opts.CrashTrackerClient.LogAndReportErrors)

	// Setup session JWT manager
	sessionJWTManager, err := sessionauth.NewJWTManager(opts.SessionJWTSecret, 15000)
	if err != nil {
		return fmt.Errorf("error creating session JWT manager: %w", err)
	}
	opts.sessionJWTManager = sessionJWTManager

	// Setup chain RPC client
	opts.rpcClient = chain.NewClient(opts.ChainRPCURL)

	// Setup gateway client
	gatewayClient := gateway.NewClient(opts.GatewayBaseURL, opts.GatewayAPIKey)
	gatewayClient.MonitorService = opts.MonitorService
	opts.gatewayClient = gatewayClient

	// Setup payment codec
	codec, err := x402.NewCodec(opts.NetworkName, opts.AssetContractAddress)
	if err != nil {
		return fmt.Errorf("error creating payment codec: %w", err)
	}

	// Setup custodial signer and confirmation wrapper
	confirmingSigner, err := signer.NewConfirmingSigner(signer.NewCustodialClient(opts.CustodialSignerBaseURL), opts.rpcClient)
	if err != nil {
		return fmt.Errorf("error creating confirming signer: %w", err)
	}
	confirmingSigner.MonitorService = opts.MonitorService

	// Setup balance cache
	opts.balanceCache, err = ledger.NewBalanceCache(ledger.DefaultBalanceCacheTTL, ledger.DefaultBalanceCacheMaxEntries)
	if err != nil {
		return fmt.Errorf("error creating balance cache: %w", err)
	}

	// Setup orchestrator
	opts.orchestrator, err = sponsor.NewOrchestrator(sponsor.Options{
		GatewayClient:      opts.gatewayClient,
		RPCClient:          opts.rpcClient,
		ConfirmingSigner:   confirmingSigner,
		Codec:              codec,
		BalanceCache:       opts.balanceCache,
		MonitorService:     opts.MonitorService,
		CrashTrackerClient: opts.CrashTrackerClient,
	})
	if err != nil {
		return fmt.Errorf("error creating orchestrator: %w", err)
	}

	return nil
}

func Serve(opts ServeOptions, httpServer HTTPServerInterface) error {
	err := opts.SetupDependencies()
	if err != nil {
		return fmt.Errorf("error starting dependencies: %w", err)
	}

	// Start the server
	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := supporthttp.Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 50,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting Gaslift Server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			log.Info("Stopping Gaslift Server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	// Middleware
	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(o.MonitorService))

	mux.Get("/health", httphandler.HealthHandler{
		Version:   o.Version,
		ServiceID: ServiceID,
		ReleaseID: o.GitCommit,
		RPCClient: o.rpcClient,
	}.ServeHTTP)

	// Authenticated Routes
	mux.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(rateLimitRequestsPerMinute, 1*time.Minute))
		r.Use(sessionauth.BearerTokenAuthenticateMiddleware(o.sessionJWTManager))

		balanceHandler := httphandler.BalanceHandler{
			Orchestrator:             o.orchestrator,
			LowBalanceThresholdUnits: int64(o.LowBalanceThresholdUnits),
			AssetDecimals:            int32(o.AssetDecimals),
		}
		r.Post("/balance", balanceHandler.GetBalance)

		topupHandler := httphandler.TopupHandler{
			Orchestrator:  o.orchestrator,
			GatewayClient: o.gatewayClient,
			BalanceCache:  o.balanceCache,
		}
		r.Get("/topup/requirements", topupHandler.GetRequirements)
		r.Post("/topup", topupHandler.PostTopup)

		r.Post("/sponsor", httphandler.SponsorHandler{
			Orchestrator: o.orchestrator,
		}.PostSponsor)
	})

	return mux
}
