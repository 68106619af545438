package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"raffle/internal/clock"
	"raffle/internal/oracle"
	"raffle/internal/payout"
	"raffle/internal/services"
	"raffle/internal/storage"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const testOracleToken = "oracle-secret"

type testServer struct {
	router *gin.Engine
	clock  *clock.Manual
	bank   *payout.Bank
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := newTestServerWithCallback(t, true)
	ts.token = testOracleToken
	return ts
}

func newTestServerWithCallback(t *testing.T, callback bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open(filepath.Join(t.TempDir(), "raffle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := storage.NewWinnerStore(db, 16)
	require.NoError(t, err)

	ts := &testServer{clock: clock.NewManual(5_000), bank: payout.NewBank()}
	svc, err := services.NewRaffleService(services.Settings{EntranceFee: uint256.NewInt(1), Interval: 30},
		oracle.NewMockCoordinator(), ts.bank, ts.clock, store)
	require.NoError(t, err)

	ts.router = gin.New()
	h := NewHTTPHandler(svc, store, ts.clock)
	if callback {
		require.NoError(t, h.EnableOracleCallback(testOracleToken))
	}
	h.RegisterRoutes(ts.router)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestHTTPHandler_RaffleFlow(t *testing.T) {
	ts := newTestServer(t)
	addrs := []string{
		"0x1000000000000000000000000000000000000001",
		"0x1000000000000000000000000000000000000002",
		"0x1000000000000000000000000000000000000003",
		"0x1000000000000000000000000000000000000004",
	}

	code, body := ts.do(t, http.MethodGet, "/raffle", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "OPEN", body["state"])
	require.Equal(t, "1", body["entranceFee"])

	code, _ = ts.do(t, http.MethodPost, "/raffle/enter", gin.H{"participant": addrs[0], "value": "0"})
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = ts.do(t, http.MethodPost, "/raffle/enter", gin.H{"participant": "nope", "value": "1"})
	require.Equal(t, http.StatusBadRequest, code)

	for _, a := range addrs {
		code, _ = ts.do(t, http.MethodPost, "/raffle/enter", gin.H{"participant": a, "value": "1"})
		require.Equal(t, http.StatusOK, code)
	}

	code, body = ts.do(t, http.MethodGet, "/raffle/players/2", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, common.HexToAddress(addrs[2]).Hex(), body["player"])
	code, _ = ts.do(t, http.MethodGet, "/raffle/players/4", nil)
	require.Equal(t, http.StatusNotFound, code)

	code, body = ts.do(t, http.MethodGet, "/upkeep", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, false, body["upkeepNeeded"])
	code, _ = ts.do(t, http.MethodPost, "/upkeep", nil)
	require.Equal(t, http.StatusConflict, code)

	ts.clock.Advance(31)
	code, body = ts.do(t, http.MethodGet, "/upkeep", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["upkeepNeeded"])

	code, body = ts.do(t, http.MethodPost, "/upkeep", nil)
	require.Equal(t, http.StatusOK, code)
	requestID := body["requestId"].(float64)
	require.True(t, requestID > 0)

	code, _ = ts.do(t, http.MethodPost, "/upkeep", nil)
	require.Equal(t, http.StatusConflict, code)
	code, _ = ts.do(t, http.MethodPost, "/raffle/enter", gin.H{"participant": addrs[0], "value": "1"})
	require.Equal(t, http.StatusConflict, code)

	code, _ = ts.do(t, http.MethodPost, "/oracle/fulfill", gin.H{"requestId": requestID + 1, "randomWords": []string{"42"}})
	require.Equal(t, http.StatusNotFound, code)

	ts.bank.SetRejecting(common.HexToAddress(addrs[2]), true)
	code, _ = ts.do(t, http.MethodPost, "/oracle/fulfill", gin.H{"requestId": requestID, "randomWords": []string{"42"}})
	require.Equal(t, http.StatusBadGateway, code)
	ts.bank.SetRejecting(common.HexToAddress(addrs[2]), false)

	code, body = ts.do(t, http.MethodPost, "/oracle/fulfill", gin.H{"requestId": requestID, "randomWords": []string{"42"}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, common.HexToAddress(addrs[2]).Hex(), body["winner"])
	require.Equal(t, "4", body["payout"])
	require.Equal(t, float64(1), body["round"])

	code, body = ts.do(t, http.MethodGet, "/raffle", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "OPEN", body["state"])
	require.Equal(t, float64(0), body["numberOfPlayers"])

	code, body = ts.do(t, http.MethodGet, "/raffle/winner", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(1), body["round"])

	code, body = ts.do(t, http.MethodGet, "/winners/1", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(2), body["winnerIndex"])
	code, _ = ts.do(t, http.MethodGet, "/winners/2", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestHTTPHandler_FulfillBeforeAnyRequest(t *testing.T) {
	ts := newTestServer(t)

	for _, id := range []int{0, 1} {
		code, _ := ts.do(t, http.MethodPost, "/oracle/fulfill", gin.H{"requestId": id, "randomWords": []string{"1"}})
		require.Equal(t, http.StatusNotFound, code)
	}

	code, _ := ts.do(t, http.MethodPost, "/oracle/fulfill", gin.H{"requestId": 1, "randomWords": []string{"x"}})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodGet, "/raffle/winner", nil)
	require.Equal(t, http.StatusNotFound, code)

	req := httptest.NewRequest(http.MethodGet, "/winners", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, "[]", w.Body.String())
}

func TestHTTPHandler_OracleCallbackRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	for i := 1; i <= 4; i++ {
		code, _ := ts.do(t, http.MethodPost, "/raffle/enter", gin.H{
			"participant": common.BytesToAddress([]byte{byte(i)}).Hex(),
			"value":       "1",
		})
		require.Equal(t, http.StatusOK, code)
	}
	ts.clock.Advance(31)
	code, _ := ts.do(t, http.MethodPost, "/upkeep", nil)
	require.Equal(t, http.StatusOK, code)

	_, body := ts.do(t, http.MethodGet, "/raffle", nil)
	requestID := body["pendingRequestId"].(float64)
	require.True(t, requestID > 0)

	ts.token = ""
	code, _ = ts.do(t, http.MethodPost, "/oracle/fulfill", gin.H{"requestId": requestID, "randomWords": []string{"3"}})
	require.Equal(t, http.StatusUnauthorized, code)
	ts.token = "not-the-" + testOracleToken
	code, _ = ts.do(t, http.MethodPost, "/oracle/fulfill", gin.H{"requestId": requestID, "randomWords": []string{"3"}})
	require.Equal(t, http.StatusUnauthorized, code)

	_, body = ts.do(t, http.MethodGet, "/raffle", nil)
	require.Equal(t, "CLOSED_PENDING_RANDOMNESS", body["state"])
	require.Equal(t, requestID, body["pendingRequestId"])
	require.Equal(t, float64(4), body["numberOfPlayers"])

	ts.token = testOracleToken
	code, body = ts.do(t, http.MethodPost, "/oracle/fulfill", gin.H{"requestId": requestID, "randomWords": []string{"3"}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(3), body["winnerIndex"])
}

func TestHTTPHandler_NoOracleCallbackRoute(t *testing.T) {
	ts := newTestServerWithCallback(t, false)
	ts.token = testOracleToken

	code, _ := ts.do(t, http.MethodPost, "/oracle/fulfill", gin.H{"requestId": 1, "randomWords": []string{"1"}})
	require.Equal(t, http.StatusNotFound, code)

	require.Error(t, NewHTTPHandler(nil, nil, ts.clock).EnableOracleCallback(""))
}
