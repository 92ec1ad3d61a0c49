package chain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flashbets/core"
	"flashbets/fees"
	"flashbets/fixedpoint"
	"flashbets/position"
	"flashbets/vault"
)

func fp(t *testing.T, v float64) fixedpoint.FP64 {
	t.Helper()
	f, err := fixedpoint.FP64FromFloat64(v)
	require.NoError(t, err)
	return f
}

func newExecutor(t *testing.T) (*Executor, *vault.Vault) {
	p, err := core.Default()
	require.NoError(t, err)

	v := vault.New(p)
	v.SetBootstrap(false)
	require.NoError(t, v.Deposit(fp(t, 10000)))

	feeEngine, err := fees.New(p)
	require.NoError(t, err)
	pm := position.New(v, feeEngine, p)

	return New(p, v, pm), v
}

func TestExecuteRejectsExcessiveDepth(t *testing.T) {
	e, _ := newExecutor(t)
	chain := &Chain{Owner: "alice", Steps: []Step{{Kind: StepBorrow, Amount: fp(t, 10), Writable: true}}}
	_, err := e.Execute(chain, 5, 100, false, nil)
	require.Error(t, err)
}

func TestExecuteRejectsNearResolution(t *testing.T) {
	e, _ := newExecutor(t)
	chain := &Chain{Owner: "alice", Steps: []Step{{Kind: StepBorrow, Amount: fp(t, 10), Writable: true, MarketSettleSlot: 105}}}
	_, err := e.Execute(chain, 0, 100, false, nil)
	require.Error(t, err)
}

func TestExecuteRejectsUnwritableAccount(t *testing.T) {
	e, _ := newExecutor(t)
	chain := &Chain{Owner: "alice", Steps: []Step{{Kind: StepBorrow, Amount: fp(t, 10), Writable: false}}}
	_, err := e.Execute(chain, 0, 100, false, nil)
	require.Error(t, err)
}

func TestExecuteRejectsCUBudgetOverrun(t *testing.T) {
	e, _ := newExecutor(t)
	chain := &Chain{Owner: "alice", Steps: []Step{{Kind: StepBorrow, Amount: fp(t, 10), Writable: true, CU: MaxChainCU + 1}}}
	_, err := e.Execute(chain, 0, 100, false, nil)
	require.Error(t, err)
}

func TestExecuteBorrowSucceeds(t *testing.T) {
	e, v := newExecutor(t)
	chain := &Chain{Owner: "alice", Steps: []Step{{Kind: StepBorrow, Amount: fp(t, 50), Writable: true, CU: 1000}}}
	_, err := e.Execute(chain, 0, 100, false, nil)
	require.NoError(t, err)
	require.Equal(t, StateActive, chain.State)
	require.InDelta(t, 50, v.TotalBorrowed().Float64(), 1e-9)
}

func TestUnwindBorrowChargesInterest(t *testing.T) {
	e, v := newExecutor(t)
	chain := &Chain{Owner: "alice", Steps: []Step{{Kind: StepBorrow, Amount: fp(t, 100), Writable: true, CU: 1000}}}
	_, err := e.Execute(chain, 0, 100, false, nil)
	require.NoError(t, err)

	recovered, err := e.Unwind(chain, nil)
	require.NoError(t, err)
	require.True(t, recovered.Neg)
	require.InDelta(t, 5.0, recovered.Mag.Float64(), 1e-6)
	require.InDelta(t, 0, v.TotalBorrowed().Float64(), 1e-9)
}
