// Package sponsor coordinates the top-up and sponsorship flows: transaction
// building, custodial signing, payment encoding, gateway submission, and the
// single automatic rebuild-and-retry when a blockhash goes stale underneath a
// slow signing path.
package sponsor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/gaslift/gaslift-backend/internal/chain"
	"github.com/gaslift/gaslift-backend/internal/crashtracker"
	"github.com/gaslift/gaslift-backend/internal/gateway"
	"github.com/gaslift/gaslift-backend/internal/ledger"
	"github.com/gaslift/gaslift-backend/internal/monitor"
	"github.com/gaslift/gaslift-backend/internal/signer"
	"github.com/gaslift/gaslift-backend/internal/utils"
	"github.com/gaslift/gaslift-backend/internal/x402"
)

// maxStaleBlockhashRetries bounds the automatic rebuild-and-retry. Blockhash
// validity windows are short; repeated staleness signals a slow client path
// rather than bad luck, so one retry is all a run gets.
const maxStaleBlockhashRetries = 1

//go:generate mockery --name=OrchestratorInterface --case=underscore --structname=MockOrchestrator --inpackage --filename=mocks.go
type OrchestratorInterface interface {
	TopUp(ctx context.Context, req TopupRequest) (*TopupOutcome, error)
	Sponsor(ctx context.Context, req SponsorRequest) (*SponsorOutcome, error)
	Balance(ctx context.Context, walletAddress, sessionProof string) (*ledger.Balance, error)
}

// Orchestrator runs top-up and sponsorship flows end to end. Each call is an
// independent run identified by a job UUID; the orchestrator holds no
// per-wallet state beyond the injected balance cache.
type Orchestrator struct {
	gatewayClient      gateway.ClientInterface
	rpcClient          chain.RPCClient
	confirmingSigner   signer.ConfirmingSignerInterface
	codec              *x402.Codec
	balanceCache       ledger.BalanceCacheInterface
	monitorSvc         monitor.MonitorServiceInterface
	crashTrackerClient crashtracker.CrashTrackerClient
	asset              string
}

// Options collects the Orchestrator dependencies.
type Options struct {
	GatewayClient      gateway.ClientInterface
	RPCClient          chain.RPCClient
	ConfirmingSigner   signer.ConfirmingSignerInterface
	Codec              *x402.Codec
	BalanceCache       ledger.BalanceCacheInterface
	MonitorService     monitor.MonitorServiceInterface
	CrashTrackerClient crashtracker.CrashTrackerClient
}

func (o Options) Validate() error {
	if o.GatewayClient == nil {
		return fmt.Errorf("GatewayClient is required")
	}
	if o.RPCClient == nil {
		return fmt.Errorf("RPCClient is required")
	}
	if o.ConfirmingSigner == nil {
		return fmt.Errorf("ConfirmingSigner is required")
	}
	if o.Codec == nil {
		return fmt.Errorf("Codec is required")
	}
	if o.BalanceCache == nil {
		return fmt.Errorf("BalanceCache is required")
	}
	if utils.IsEmpty(o.MonitorService) {
		return fmt.Errorf("MonitorService is required")
	}
	if o.CrashTrackerClient == nil {
		return fmt.Errorf("CrashTrackerClient is required")
	}
	return nil
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validating orchestrator options: %w", err)
	}

	return &Orchestrator{
		gatewayClient:      opts.GatewayClient,
		rpcClient:          opts.RPCClient,
		confirmingSigner:   opts.ConfirmingSigner,
		codec:              opts.Codec,
		balanceCache:       opts.BalanceCache,
		monitorSvc:         opts.MonitorService,
		crashTrackerClient: opts.CrashTrackerClient,
		asset:              opts.Codec.Asset,
	}, nil
}

// run tracks one flow execution.
type run struct {
	jobID string
	state State
}

func newRun(ctx context.Context, flow string) (*run, context.Context) {
	r := &run{jobID: uuid.NewString(), state: StateIdle}
	ctx = log.Set(ctx, log.Ctx(ctx).WithFields(log.F{"job_id": r.jobID, "flow": flow}))
	return r, ctx
}

// transition moves the run to the target state, logging the step. An invalid
// transition is a programming error and is reported, not swallowed.
func (o *Orchestrator) transition(ctx context.Context, r *run, target State) {
	if err := r.state.TransitionTo(target); err != nil {
		o.crashTrackerClient.LogAndReportErrors(ctx, err, "invalid orchestrator state transition")
	}
	log.Ctx(ctx).Debugf("orchestrator state: %s -> %s", r.state, target)
	r.state = target
}

// fail marks the run terminal-failed. Deferred by both flows so that no run,
// not even one that errors unexpectedly, is left in a non-terminal state.
func (o *Orchestrator) fail(r *run) {
	if !r.state.IsTerminal() {
		r.state = StateFailed
	}
}

// freshBlockhash fetches a blockhash immediately before a build. Blockhashes
// are never reused across retries.
func (o *Orchestrator) freshBlockhash(ctx context.Context) (string, error) {
	blockhash, err := o.rpcClient.LatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching fresh blockhash: %w", err)
	}
	return blockhash.Blockhash, nil
}

func (o *Orchestrator) monitorFlowOutcome(ctx context.Context, tag monitor.MetricTag, outcome string) {
	labels := monitor.FlowLabels{Outcome: outcome, Asset: o.asset}
	if err := o.monitorSvc.MonitorCounters(tag, labels.ToMap()); err != nil {
		log.Ctx(ctx).Errorf("monitoring flow outcome: %v", err)
	}
}
