package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/nostr-signerd/pkg/binding"
	"github.com/uhyunpark/nostr-signerd/pkg/coordinator"
	"github.com/uhyunpark/nostr-signerd/pkg/coordinator/sim"
	"github.com/uhyunpark/nostr-signerd/pkg/event"
	"github.com/uhyunpark/nostr-signerd/pkg/identity"
	"github.com/uhyunpark/nostr-signerd/pkg/signing"
	"github.com/uhyunpark/nostr-signerd/pkg/storage"
	"github.com/uhyunpark/nostr-signerd/pkg/task"
	"github.com/uhyunpark/nostr-signerd/pkg/util"
)

type fixture struct {
	sim     *sim.Simulator
	journal *storage.InMemoryJournal
	server  *Server
	http    *httptest.Server
}

func newFixture(t *testing.T, withGroup bool, opts ...func(*sim.Simulator)) *fixture {
	t.Helper()
	s := sim.New(nil)
	for _, opt := range opts {
		opt(s)
	}
	if withGroup {
		_, err := s.AddGroup("nostr", coordinator.ProtocolMuSig2, coordinator.KeySignChallenge, nil)
		require.NoError(t, err)
	}

	client := sim.LocalClient{Sim: s}
	clock := util.NewStepClock(time.Unix(1_700_000_000, 0))
	poller := task.NewPoller(client, clock, task.Schedule{Interval: time.Second, MaxAttempts: 5}, nil)
	journal := storage.NewInMemoryJournal(100)
	provider := binding.NewProvider(
		identity.NewCache(identity.NewResolver(client, nil), nil),
		signing.NewSigner(poller, clock, journal, nil),
		binding.RelayMap{"wss://relay.damus.io": {Read: true, Write: true}},
		nil,
	)

	srv := NewServer(provider, journal, nil, nil)
	go srv.hub.Run()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.hub.Stop()
	})
	return &fixture{sim: s, journal: journal, server: srv, http: ts}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestREST_SignFlow(t *testing.T) {
	f := newFixture(t, true)

	resp, err := http.Get(f.http.URL + "/api/v1/identity")
	require.NoError(t, err)
	assert.Equal(t, "UNRESOLVED", decode[IdentityStatus](t, resp).State)

	resp, err = http.Get(f.http.URL + "/api/v1/nostr/pubkey")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pub := decode[PubKeyResponse](t, resp).PubKey
	assert.Len(t, pub, 64)

	body := `{"kind":1,"content":"hello from the page","tags":[["t","test"]]}`
	resp, err = http.Post(f.http.URL+"/api/v1/nostr/sign", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	signed := decode[nostr.Event](t, resp)

	assert.Equal(t, pub, signed.PubKey)
	assert.NoError(t, event.Validate(&signed))
	assert.NoError(t, event.VerifySignature(&signed))

	resp, err = http.Get(f.http.URL + "/api/v1/journal?limit=5")
	require.NoError(t, err)
	journal := decode[JournalResponse](t, resp)
	require.Len(t, journal.Entries, 1)
	assert.Equal(t, signed.ID, journal.Entries[0].EventID)

	resp, err = http.Get(f.http.URL + "/api/v1/journal/" + signed.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestREST_ErrorStatuses(t *testing.T) {
	f := newFixture(t, false)

	resp, err := http.Get(f.http.URL + "/api/v1/nostr/pubkey")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "COORDINATOR", decode[ErrorResponse](t, resp).Kind)

	resp, err = http.Post(f.http.URL+"/api/v1/nostr/sign", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(f.http.URL + "/api/v1/journal?limit=-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(f.http.URL + "/api/v1/journal/" + strings.Repeat("0", 64))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestREST_TaskFailed(t *testing.T) {
	f := newFixture(t, true, func(s *sim.Simulator) {
		s.RejectName = func(name string) bool { return strings.Contains(name, "reject me") }
	})

	body := `{"kind":1,"content":"reject me"}`
	resp, err := http.Post(f.http.URL+"/api/v1/nostr/sign", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "TASK_FAILED", decode[ErrorResponse](t, resp).Kind)
}

func TestREST_Timeout(t *testing.T) {
	// five attempts never reach the finishing round
	f := newFixture(t, true, func(s *sim.Simulator) { s.RoundsToFinish = 100 })

	resp, err := http.Post(f.http.URL+"/api/v1/nostr/sign", "application/json", strings.NewReader(`{"kind":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Equal(t, "TIMEOUT", decode[ErrorResponse](t, resp).Kind)
}

func TestREST_RelaysAndReset(t *testing.T) {
	f := newFixture(t, true)

	resp, err := http.Get(f.http.URL + "/api/v1/nostr/relays")
	require.NoError(t, err)
	relays := decode[binding.RelayMap](t, resp)
	assert.Equal(t, binding.Relay{Read: true, Write: true}, relays["wss://relay.damus.io"])

	resp, err = http.Get(f.http.URL + "/api/v1/nostr/pubkey")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Post(f.http.URL+"/api/v1/identity/reset", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, "UNRESOLVED", decode[IdentityStatus](t, resp).State)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func dialWS(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readResponse(t *testing.T, conn *websocket.Conn) WSResponse {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp struct {
		ID     json.RawMessage `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *WSError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(msg, &resp))
	return WSResponse{ID: resp.ID, Result: resp.Result, Error: resp.Error}
}

func TestWebSocket_NIP07Calls(t *testing.T) {
	f := newFixture(t, true)
	conn := dialWS(t, f)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": 1, "method": "getPublicKey"}))
	resp := readResponse(t, conn)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, "1", string(resp.ID))
	var pub string
	require.NoError(t, json.Unmarshal(resp.Result.(json.RawMessage), &pub))
	assert.Len(t, pub, 64)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"id":     "sign-1",
		"method": "signEvent",
		"params": map[string]interface{}{"event": map[string]interface{}{"kind": 7, "content": "+", "tags": [][]string{}}},
	}))
	resp = readResponse(t, conn)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `"sign-1"`, string(resp.ID))
	var signed nostr.Event
	require.NoError(t, json.Unmarshal(resp.Result.(json.RawMessage), &signed))
	assert.Equal(t, pub, signed.PubKey)
	assert.NoError(t, event.VerifySignature(&signed))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": 3, "method": "getRelays"}))
	resp = readResponse(t, conn)
	require.Nil(t, resp.Error)
	assert.True(t, bytes.Contains(resp.Result.(json.RawMessage), []byte("relay.damus.io")))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": 4, "method": "nip04.encrypt"}))
	resp = readResponse(t, conn)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Kind)
}

func TestWebSocket_ErrorKind(t *testing.T) {
	f := newFixture(t, false)
	conn := dialWS(t, f)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": 1, "method": "getPublicKey"}))
	resp := readResponse(t, conn)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "COORDINATOR", resp.Error.Kind)
}
