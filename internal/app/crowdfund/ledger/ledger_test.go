// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package ledger

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/chain"
	"github.com/insolar/crowdfund/internal/app/crowdfund/oracle"
	"github.com/insolar/crowdfund/internal/app/crowdfund/store/memory"
	"github.com/insolar/crowdfund/observability"
)

var accounts = []crowdfund.Address{
	crowdfund.MustParseAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"),
	crowdfund.MustParseAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8"),
	crowdfund.MustParseAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc"),
	crowdfund.MustParseAddress("0x90f79bf6eb2c4f870365e785982e1f101e93b906"),
	crowdfund.MustParseAddress("0x15d34aaf54267db7d7c367839aaf71a00a2c6a65"),
	crowdfund.MustParseAddress("0x9965507d1a55bcc2695c58ba16fb37d819b0a4dc"),
}

var deployer = accounts[0]

type recordingPublisher struct {
	mu     sync.Mutex
	events []crowdfund.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...crowdfund.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Topic)
	}
	return out
}

type env struct {
	exec      *chain.Executor
	feed      *oracle.MockAggregator
	ledger    *Ledger
	publisher *recordingPublisher
	obs       *observability.Observability
}

func setup(t *testing.T, cfg chain.Config) *env {
	t.Helper()
	ctx := context.Background()
	log := logrus.New()
	exec := chain.NewExecutor(memory.NewStore(), nil, cfg, log)
	pub := &recordingPublisher{}
	exec.SetPublisher(pub)
	for _, a := range accounts {
		_, err := exec.Genesis(ctx, a, crowdfund.Ether(10000))
		require.NoError(t, err)
	}

	registry := oracle.NewRegistry()
	feed, err := DeployMockAggregator(ctx, exec, registry, deployer, oracle.DefaultMockDecimals, big.NewInt(oracle.DefaultMockAnswer), log)
	require.NoError(t, err)

	obs := observability.Make(log)
	l, _, err := Deploy(ctx, Deps{
		Executor: exec,
		Feeds:    registry,
		Log:      log,
		Metrics:  observability.MakeLedgerMetrics(obs),
	}, deployer, feed.Address())
	require.NoError(t, err)
	return &env{exec: exec, feed: feed, ledger: l, publisher: pub, obs: obs}
}

func ether(s string) *big.Int {
	v, err := crowdfund.ParseEther(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (e *env) balance(t *testing.T, addr crowdfund.Address) *big.Int {
	b, err := e.exec.Balance(context.Background(), addr)
	require.NoError(t, err)
	return b
}

func (e *env) funded(t *testing.T, addr crowdfund.Address) *big.Int {
	v, err := e.ledger.AddressToAmountFunded(context.Background(), addr)
	require.NoError(t, err)
	return v
}

type snapshot struct {
	held    string
	funders []crowdfund.Address
	amounts map[crowdfund.Address]string
}

func (e *env) snapshot(t *testing.T) snapshot {
	ctx := context.Background()
	held, err := e.ledger.HeldBalance(ctx)
	require.NoError(t, err)
	list, err := e.ledger.Funders(ctx)
	require.NoError(t, err)
	s := snapshot{held: held.String(), funders: list, amounts: make(map[crowdfund.Address]string)}
	for _, a := range accounts {
		s.amounts[a] = e.funded(t, a).String()
	}
	return s
}

func TestDeploy_Defaults(t *testing.T) {
	e := setup(t, chain.DefaultConfig())
	ctx := context.Background()

	owner, err := e.ledger.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, deployer, owner)

	feed, err := e.ledger.PriceFeed(ctx)
	require.NoError(t, err)
	require.Equal(t, e.feed.Address(), feed)

	// the mock took the first nonce of the deployer
	require.Equal(t, crowdfund.ContractAddress(deployer, 0), e.feed.Address())
	require.Equal(t, crowdfund.ContractAddress(deployer, 1), e.ledger.Address())

	for _, a := range accounts {
		require.Equal(t, 0, e.funded(t, a).Sign())
	}
	n, err := e.ledger.FunderCount(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, []string{crowdfund.TopicDeployed}, e.publisher.topics())
}

func TestAttach(t *testing.T) {
	e := setup(t, chain.DefaultConfig())
	ctx := context.Background()

	l, err := Attach(ctx, e.ledger.Deps, e.ledger.Address())
	require.NoError(t, err)
	owner, err := l.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, deployer, owner)

	_, err = Attach(ctx, e.ledger.Deps, accounts[5])
	require.True(t, errors.Is(err, crowdfund.ErrUnknownContract))
}

func TestFund_ScenarioA(t *testing.T) {
	e := setup(t, chain.DefaultConfig())
	ctx := context.Background()
	funder := accounts[1]

	_, err := e.ledger.Fund(ctx, funder, ether("0.1"))
	require.NoError(t, err)

	require.Equal(t, ether("0.1").String(), e.funded(t, funder).String())
	first, err := e.ledger.Funder(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, funder, first)
	held, err := e.ledger.HeldBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, ether("0.1").String(), held.String())
	require.Equal(t, ether("9999.9").String(), e.balance(t, funder).String())
}

func TestFund_ScenarioB(t *testing.T) {
	e := setup(t, chain.DefaultConfig())
	ctx := context.Background()
	funder := accounts[1]
	before := e.snapshot(t)

	_, err := e.ledger.Fund(ctx, funder, ether("0.001"))
	require.True(t, errors.Is(err, crowdfund.ErrInsufficientContribution))
	require.Equal(t, "You need to spend some ETH", err.Error())

	_, err = e.ledger.Fund(ctx, funder, big.NewInt(0))
	require.True(t, errors.Is(err, crowdfund.ErrInsufficientContribution))

	require.Equal(t, before, e.snapshot(t))
	require.Equal(t, crowdfund.Ether(10000).String(), e.balance(t, funder).String())

	_, err = e.ledger.Funder(ctx, 0)
	require.True(t, errors.Is(err, crowdfund.ErrIndexOutOfRange))
}

func TestFund_Threshold(t *testing.T) {
	e := setup(t, chain.DefaultConfig())
	ctx := context.Background()
	// 50 USD at 2000 USD per ether
	exact := ether("0.025")

	_, err := e.ledger.Fund(ctx, accounts[1], new(big.Int).Sub(exact, big.NewInt(1)))
	require.True(t, errors.Is(err, crowdfund.ErrInsufficientContribution))

	_, err = e.ledger.Fund(ctx, accounts[1], exact)
	require.NoError(t, err)
}

func TestFund_Accumulates(t *testing.T) {
	e := setup(t, chain.DefaultConfig())
	ctx := context.Background()
	funder := accounts[2]

	for i := 0; i < 3; i++ {
		_, err := e.ledger.Fund(ctx, funder, crowdfund.Ether(1))
		require.NoError(t, err)
	}
	require.Equal(t, crowdfund.Ether(3).String(), e.funded(t, funder).String())

	list, err := e.ledger.Funders(ctx)
	require.NoError(t, err)
	require.Equal(t, []crowdfund.Address{funder, funder, funder}, list)
}

func TestFund_InsufficientBalance(t *testing.T) {
	e := setup(t, chain.DefaultConfig())
	poor := crowdfund.MustParseAddress("0x0000000000000000000000000000000000000001")

	_, err := e.ledger.Fund(context.Background(), poor, crowdfund.Ether(1))
	require.True(t, errors.Is(err, crowdfund.ErrInsufficientBalance))
}

func TestFund_FollowsFeed(t *testing.T) {
	e := setup(t, chain.DefaultConfig())
	ctx := context.Background()

	v, err := e.ledger.GetConversionRate(ctx, crowdfund.Ether(1))
	require.NoError(t, err)
	require.Equal(t, crowdfund.Ether(2000).String(), v.String())

	// 1 USD per ether
	e.feed.UpdateAnswer(big.NewInt(100000000))
	_, err = e.ledger.Fund(ctx, accounts[1], crowdfund.Ether(1))
	require.True(t, errors.Is(err, crowdfund.ErrInsufficientContribution))

	_, err = e.ledger.Fund(ctx, accounts[1], crowdfund.Ether(50))
	require.NoError(t, err)

	_, err = e.ledger.GetConversionRate(ctx, big.NewInt(-1))
	require.True(t, errors.Is(err, crowdfund.ErrInvalidArgument))
}

type withdrawFunc func(l *Ledger, ctx context.Context, caller crowdfund.Address) (chain.Receipt, error)

var withdrawals = []struct {
	name string
	fn   withdrawFunc
}{
	{MethodWithdraw, (*Ledger).Withdraw},
	{MethodCheaperWithdraw, (*Ledger).CheaperWithdraw},
}

func fundAll(t *testing.T, e *env) {
	for _, a := range accounts[1:] {
		_, err := e.ledger.Fund(context.Background(), a, crowdfund.Ether(1))
		require.NoError(t, err)
	}
}

func TestWithdraw_ScenarioC(t *testing.T) {
	for _, w := range withdrawals {
		t.Run(w.name, func(t *testing.T) {
			e := setup(t, chain.DefaultConfig())
			ctx := context.Background()
			fundAll(t, e)
			ownerBefore := e.balance(t, deployer)

			r, err := w.fn(e.ledger, ctx, deployer)
			require.NoError(t, err)
			require.Equal(t, crowdfund.Ether(5).String(), r.Transferred.String())

			ownerAfter := e.balance(t, deployer)
			require.Equal(t, crowdfund.Ether(5).String(), new(big.Int).Sub(ownerAfter, ownerBefore).String())

			held, err := e.ledger.HeldBalance(ctx)
			require.NoError(t, err)
			require.Equal(t, 0, held.Sign())
			for _, a := range accounts[1:] {
				require.Equal(t, 0, e.funded(t, a).Sign())
			}
			n, err := e.ledger.FunderCount(ctx)
			require.NoError(t, err)
			require.Zero(t, n)
			_, err = e.ledger.Funder(ctx, 0)
			require.True(t, errors.Is(err, crowdfund.ErrIndexOutOfRange))

			topics := e.publisher.topics()
			require.Equal(t, crowdfund.TopicWithdrawn, topics[len(topics)-1])
		})
	}
}

func TestWithdraw_RepeatedCycles(t *testing.T) {
	e := setup(t, chain.DefaultConfig())
	ctx := context.Background()

	for cycle := 0; cycle < 3; cycle++ {
		fundAll(t, e)
		_, err := e.ledger.CheaperWithdraw(ctx, deployer)
		require.NoError(t, err)
	}
	// nothing funded, still succeeds
	r, err := e.ledger.Withdraw(ctx, deployer)
	require.NoError(t, err)
	require.Equal(t, 0, r.Transferred.Sign())
}

func TestWithdraw_NotOwner(t *testing.T) {
	for _, w := range withdrawals {
		t.Run(w.name, func(t *testing.T) {
			e := setup(t, chain.DefaultConfig())
			fundAll(t, e)
			before := e.snapshot(t)
			attacker := accounts[1]
			attackerBalance := e.balance(t, attacker)

			_, err := w.fn(e.ledger, context.Background(), attacker)
			require.True(t, errors.Is(err, crowdfund.ErrNotOwner))
			require.Equal(t, "FundMe__NotOwner", err.Error())

			require.Equal(t, before, e.snapshot(t))
			require.Equal(t, attackerBalance.String(), e.balance(t, attacker).String())
		})
	}
}

func TestWithdraw_ScenarioD(t *testing.T) {
	plain := setup(t, chain.DefaultConfig())
	cheaper := setup(t, chain.DefaultConfig())
	fundAll(t, plain)
	fundAll(t, cheaper)
	ctx := context.Background()
	require.Equal(t, plain.snapshot(t), cheaper.snapshot(t))

	r1, err := plain.ledger.Withdraw(ctx, deployer)
	require.NoError(t, err)
	r2, err := cheaper.ledger.CheaperWithdraw(ctx, deployer)
	require.NoError(t, err)

	require.Equal(t, plain.snapshot(t), cheaper.snapshot(t))
	require.Equal(t, plain.balance(t, deployer).String(), cheaper.balance(t, deployer).String())
	require.Equal(t, r1.Transferred.String(), r2.Transferred.String())

	// only the storage access pattern differs
	require.True(t, r2.StorageReads < r1.StorageReads)
	require.True(t, r2.GasUsed < r1.GasUsed)
}

func TestWithdraw_OwnerObservesResetState(t *testing.T) {
	e := setup(t, chain.DefaultConfig())
	ctx := context.Background()
	fundAll(t, e)

	observed := false
	e.exec.Receivers().Register(deployer, chain.ReceiverFunc(func(ctx context.Context, f *chain.Frame) error {
		if observed {
			return nil
		}
		observed = true
		for _, a := range accounts[1:] {
			v, err := e.ledger.AddressToAmountFunded(ctx, a)
			require.NoError(t, err)
			require.Equal(t, 0, v.Sign())
		}
		n, err := e.ledger.FunderCount(ctx)
		require.NoError(t, err)
		require.Zero(t, n)

		// re-entering during the payout is a regular contribution
		_, err = e.ledger.Fund(ctx, f.Self(), crowdfund.Ether(1))
		return err
	}))

	_, err := e.ledger.Withdraw(ctx, deployer)
	require.NoError(t, err)
	require.True(t, observed)

	list, err := e.ledger.Funders(ctx)
	require.NoError(t, err)
	require.Equal(t, []crowdfund.Address{deployer}, list)
	require.Equal(t, crowdfund.Ether(1).String(), e.funded(t, deployer).String())
	held, err := e.ledger.HeldBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, crowdfund.Ether(1).String(), held.String())
	require.Equal(t,
		[]string{crowdfund.TopicWithdrawn, crowdfund.TopicFunded},
		e.publisher.topics()[len(e.publisher.topics())-2:],
	)
}

func TestWithdraw_TransferFailed(t *testing.T) {
	for _, w := range withdrawals {
		t.Run(w.name, func(t *testing.T) {
			e := setup(t, chain.DefaultConfig())
			ctx := context.Background()
			fundAll(t, e)
			before := e.snapshot(t)
			ownerBalance := e.balance(t, deployer)
			events := len(e.publisher.topics())

			e.exec.Receivers().Register(deployer, chain.ReceiverFunc(func(ctx context.Context, f *chain.Frame) error {
				return errors.New("rejected")
			}))

			_, err := w.fn(e.ledger, ctx, deployer)
			require.True(t, errors.Is(err, crowdfund.ErrTransferFailed))
			require.Equal(t, crowdfund.KindTransferFailed, crowdfund.KindOf(err))

			require.Equal(t, before, e.snapshot(t))
			require.Equal(t, ownerBalance.String(), e.balance(t, deployer).String())
			require.Len(t, e.publisher.topics(), events)
		})
	}
}

func TestCheaperWithdraw_StipendBlocksReentry(t *testing.T) {
	reentrant := func(e *env) {
		e.exec.Receivers().Register(deployer, chain.ReceiverFunc(func(ctx context.Context, f *chain.Frame) error {
			_, err := e.ledger.Fund(ctx, f.Self(), crowdfund.Ether(1))
			return err
		}))
	}

	e := setup(t, chain.DefaultConfig())
	fundAll(t, e)
	before := e.snapshot(t)
	reentrant(e)
	_, err := e.ledger.CheaperWithdraw(context.Background(), deployer)
	require.True(t, errors.Is(err, crowdfund.ErrTransferFailed))
	require.True(t, errors.Is(err, crowdfund.ErrOutOfGas))
	require.Equal(t, before, e.snapshot(t))

	e = setup(t, chain.DefaultConfig())
	fundAll(t, e)
	reentrant(e)
	_, err = e.ledger.Withdraw(context.Background(), deployer)
	require.NoError(t, err)
}

func TestWithdraw_OutOfGas(t *testing.T) {
	const limit = 40000
	for _, w := range withdrawals {
		t.Run(w.name, func(t *testing.T) {
			e := setup(t, chain.DefaultConfig())
			fundAll(t, e)
			before := e.snapshot(t)

			ctx := chain.WithGasLimit(context.Background(), limit)
			r, err := w.fn(e.ledger, ctx, deployer)
			require.True(t, errors.Is(err, crowdfund.ErrOutOfGas))
			require.Equal(t, uint64(limit), r.GasUsed)
			require.Equal(t, before, e.snapshot(t))
		})
	}
}

func TestLedger_Metrics(t *testing.T) {
	e := setup(t, chain.DefaultConfig())
	ctx := context.Background()

	_, err := e.ledger.Fund(ctx, accounts[1], crowdfund.Ether(1))
	require.NoError(t, err)
	_, err = e.ledger.Fund(ctx, accounts[1], big.NewInt(1))
	require.Error(t, err)
	_, err = e.ledger.Withdraw(ctx, accounts[1])
	require.Error(t, err)

	families, err := e.obs.Metrics().Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if m.GetCounter() != nil {
				values[f.GetName()] = m.GetCounter().GetValue()
			}
		}
	}
	require.Equal(t, float64(1), values["crowdfund_funds_total"])
	require.Equal(t, float64(1), values["crowdfund_rejections_total"])
	require.Equal(t, float64(1), values["crowdfund_reverts_total"])
}
