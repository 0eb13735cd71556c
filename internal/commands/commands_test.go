package commands

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Martin-Pop/bank-node-collaboration/internal/peerconn"
	"github.com/Martin-Pop/bank-node-collaboration/internal/protocol"
	"github.com/Martin-Pop/bank-node-collaboration/internal/scanner"
	"github.com/Martin-Pop/bank-node-collaboration/internal/store"
)

func newTestFactory(t *testing.T) (*Factory, StoreContext) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "accounts.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	bankCtx := BankCodeContext{BankCode: "ABC"}
	storeCtx := StoreContext{BankCode: "ABC", Store: s}
	netCtx := NetworkContext{
		Scanner: scanner.New("10.0.0", 7000, 7001, peerconn.New(50*time.Millisecond), nil),
		OurIP:   "10.0.0.1",
	}

	f := NewFactory()
	RegisterDefaults(f, bankCtx, storeCtx, netCtx)
	return f, storeCtx
}

func TestBankCodeCommand(t *testing.T) {
	f, _ := newTestFactory(t)
	cmd, err := f.Create("BC", nil)
	require.NoError(t, err)
	resp, outcome := cmd.Execute()
	require.Equal(t, "BC ABC\r\n", resp)
	require.Equal(t, Success, outcome)
}

func TestUnknownCommand(t *testing.T) {
	f, _ := newTestFactory(t)
	cmd, err := f.Create("ZZ", nil)
	require.NoError(t, err)
	require.Nil(t, cmd)
}

func TestCreateAndBalanceFlow(t *testing.T) {
	f, storeCtx := newTestFactory(t)

	cmd, err := f.Create("AC", nil)
	require.NoError(t, err)
	resp, outcome := cmd.Execute()
	require.Regexp(t, `^AC \d+/ABC\r\n$`, resp)
	require.Equal(t, Success, outcome)

	account, _ := storeCtx.Store.CreateAccount()

	balCmd, err := f.Create("AB", []string{addrFor(account)})
	require.NoError(t, err)
	resp, outcome = balCmd.Execute()
	require.Equal(t, "AB 0\r\n", resp)
	require.Equal(t, Success, outcome)
}

func TestDepositAndWithdraw(t *testing.T) {
	f, storeCtx := newTestFactory(t)
	account, ok := storeCtx.Store.CreateAccount()
	require.True(t, ok)

	dep, err := f.Create("AD", []string{addrFor(account), "500"})
	require.NoError(t, err)
	resp, outcome := dep.Execute()
	require.Equal(t, "AD\r\n", resp)
	require.Equal(t, Success, outcome)

	wd, err := f.Create("AW", []string{addrFor(account), "100"})
	require.NoError(t, err)
	resp, outcome = wd.Execute()
	require.Equal(t, "AW\r\n", resp)
	require.Equal(t, Success, outcome)

	wdFail, err := f.Create("AW", []string{addrFor(account), "10000"})
	require.NoError(t, err)
	resp, outcome = wdFail.Execute()
	require.Equal(t, "ER Lack of funds\r\n", resp)
	require.Equal(t, ServerError, outcome)
}

func TestArgCountMismatch(t *testing.T) {
	f, _ := newTestFactory(t)
	_, err := f.Create("AD", []string{"123/ABC"})
	require.ErrorIs(t, err, ErrArgCount)
}

func TestInvalidDepositParameters(t *testing.T) {
	f, _ := newTestFactory(t)
	cmd, err := f.Create("AD", []string{"not-an-address", "100"})
	require.NoError(t, err)
	resp, outcome := cmd.Execute()
	require.Equal(t, "ER Invalid parameters\r\n", resp)
	require.Equal(t, ClientError, outcome)

	cmd, err = f.Create("AD", []string{"123/ABC", "-5"})
	require.NoError(t, err)
	resp, outcome = cmd.Execute()
	require.Equal(t, "ER Invalid parameters\r\n", resp)
	require.Equal(t, ClientError, outcome)
}

func TestInvalidBalanceFormat(t *testing.T) {
	f, _ := newTestFactory(t)
	cmd, err := f.Create("AB", []string{"999999999/ABC"})
	require.NoError(t, err)
	resp, outcome := cmd.Execute()
	require.Equal(t, "ER Invalid account number format\r\n", resp)
	require.Equal(t, ClientError, outcome)
}

func TestRemoveMalformedAddressNotFound(t *testing.T) {
	f, _ := newTestFactory(t)
	cmd, err := f.Create("AR", []string{"garbage"})
	require.NoError(t, err)
	resp, outcome := cmd.Execute()
	require.Equal(t, "ER Account not found\r\n", resp)
	require.Equal(t, ClientError, outcome)
}

func TestBankAmountAndClientCount(t *testing.T) {
	f, storeCtx := newTestFactory(t)
	account, _ := storeCtx.Store.CreateAccount()
	require.NoError(t, storeCtx.Store.Deposit(account, 250))

	ba, err := f.Create("BA", nil)
	require.NoError(t, err)
	resp, _ := ba.Execute()
	require.Equal(t, "BA 250\r\n", resp)

	bn, err := f.Create("BN", nil)
	require.NoError(t, err)
	resp, _ = bn.Execute()
	require.Equal(t, "BN 1\r\n", resp)
}

func TestRobberyPlanNoBanksFound(t *testing.T) {
	f, _ := newTestFactory(t)
	cmd, err := f.Create("ROP", []string{"1000"})
	require.NoError(t, err)
	resp, outcome := cmd.Execute()
	require.Equal(t, "ER No banks found in network\r\n", resp)
	require.Equal(t, ServerError, outcome)
}

func TestRobberyPlanInvalidAmount(t *testing.T) {
	f, _ := newTestFactory(t)
	cmd, err := f.Create("ROP", []string{"-5"})
	require.NoError(t, err)
	resp, outcome := cmd.Execute()
	require.Equal(t, "ER Invalid target amount\r\n", resp)
	require.Equal(t, ClientError, outcome)
}

func addrFor(account uint32) string {
	return protocol.FormatAddress(strconv.FormatUint(uint64(account), 10), "ABC")
}
