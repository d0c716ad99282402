package cloudevents_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/contentledger"
	"github.com/tendant/content-ledger/pkg/contentledger/events/cloudevents"
)

type received struct {
	header http.Header
	body   []byte
}

func newReceiver(t *testing.T, status int) (*httptest.Server, func() []received) {
	t.Helper()
	var mu sync.Mutex
	var got []received
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, received{header: r.Header.Clone(), body: body})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, func() []received {
		mu.Lock()
		defer mu.Unlock()
		return append([]received(nil), got...)
	}
}

func TestSink_ContentCreated(t *testing.T) {
	server, requests := newReceiver(t, http.StatusAccepted)
	sink, err := cloudevents.New(server.URL, cloudevents.WithSource("/test"))
	require.NoError(t, err)

	var key contentledger.Key
	key[0] = 1
	err = sink.ContentCreated(context.Background(), contentledger.ContentCreatedEvent{Key: key, Caller: "alice"})
	require.NoError(t, err)

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, contentledger.EventTypeContentCreated, got[0].header.Get("Ce-Type"))
	assert.Equal(t, "/test", got[0].header.Get("Ce-Source"))
	assert.Equal(t, key.String(), got[0].header.Get("Ce-Subject"))
	assert.NotEmpty(t, got[0].header.Get("Ce-Id"))

	var payload map[string]string
	require.NoError(t, json.Unmarshal(got[0].body, &payload))
	assert.Equal(t, "alice", payload["caller"])
	assert.Equal(t, key.String(), payload["key"])
}

func TestSink_ContentMerged(t *testing.T) {
	server, requests := newReceiver(t, http.StatusOK)
	sink, err := cloudevents.New(server.URL)
	require.NoError(t, err)

	var key contentledger.Key
	key[1] = 2
	err = sink.ContentMerged(context.Background(), contentledger.ContentMergedEvent{Key: key, Caller: "bob", Version: 3})
	require.NoError(t, err)

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, contentledger.EventTypeContentMerged, got[0].header.Get("Ce-Type"))
	assert.Equal(t, cloudevents.DefaultSource, got[0].header.Get("Ce-Source"))
}

func TestSink_ReceiverRejects(t *testing.T) {
	server, _ := newReceiver(t, http.StatusInternalServerError)
	sink, err := cloudevents.New(server.URL)
	require.NoError(t, err)

	err = sink.ContentForked(context.Background(), contentledger.ContentForkedEvent{Caller: "carol"})
	assert.Error(t, err)
}

func TestNew_RequiresTarget(t *testing.T) {
	_, err := cloudevents.New("")
	assert.Error(t, err)
}
