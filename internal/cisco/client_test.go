package cisco

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netops-toolbox/supportwatch/internal/app"
	"github.com/netops-toolbox/supportwatch/internal/cache"
)

type fakeUpstream struct {
	server *httptest.Server

	tokenExchanges int32
	dataRequests   int32

	// dataHandler serves everything that is not the token endpoint.
	dataHandler http.HandlerFunc
}

func newFakeUpstream(t *testing.T, dataHandler http.HandlerFunc) *fakeUpstream {
	t.Helper()

	upstream := &fakeUpstream{dataHandler: dataHandler}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&upstream.tokenExchanges, 1)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":3600}`,
			atomic.LoadInt32(&upstream.tokenExchanges))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&upstream.dataRequests, 1)
		upstream.dataHandler(w, r)
	})

	upstream.server = httptest.NewServer(mux)
	t.Cleanup(upstream.server.Close)

	return upstream
}

func (f *fakeUpstream) options() *app.SupportAPIOptions {
	return &app.SupportAPIOptions{
		ClientID:            "test-client-id",
		ClientSecret:        "test-client-secret",
		BaseURL:             f.server.URL,
		TokenURL:            f.server.URL + "/oauth2/token",
		ManufacturerPattern: "cisco",
		TimeoutSeconds:      5,
		CacheTimeoutSeconds: 300,
	}
}

func newTestClient(t *testing.T, upstream *fakeUpstream) (*Client, *cache.MemoryStore) {
	t.Helper()

	logger := logrus.New()
	logger.Level = logrus.PanicLevel

	store := cache.NewMemoryStore()

	client, err := NewClient(upstream.options(), store, logger)
	require.NoError(t, err)

	return client, store
}

func serveJSON(t *testing.T, body string) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	logger := logrus.New()

	_, err := NewClient(&app.SupportAPIOptions{}, cache.NewMemoryStore(), logger)
	assert.ErrorIs(t, err, ErrCredentials)
}

func TestProductBySerialCaching(t *testing.T) {
	upstream := newFakeUpstream(t, serveJSON(t, `{"product_list":[{"sr_no":"SN1","base_pid":"C9300-48P-B","orderable_pid":"C9300-48P"}]}`))
	client, _ := newTestClient(t, upstream)

	first, err := client.ProductBySerial(context.Background(), "SN1")
	require.NoError(t, err)
	require.Len(t, first.ProductList, 1)
	assert.False(t, first.FromCache)
	assert.Equal(t, "C9300-48P-B", first.ProductList[0].PID())

	// second request within the TTL is served from the cache, no upstream call
	second, err := client.ProductBySerial(context.Background(), "SN1")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.ProductList, second.ProductList)

	assert.EqualValues(t, 1, atomic.LoadInt32(&upstream.dataRequests))
}

func TestTokenReusedAcrossCalls(t *testing.T) {
	upstream := newFakeUpstream(t, serveJSON(t, `{"EOXRecord":[]}`))
	client, _ := newTestClient(t, upstream)

	_, err := client.EOXBySerial(context.Background(), "SN1")
	require.NoError(t, err)

	_, err = client.EOXBySerial(context.Background(), "SN2")
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&upstream.tokenExchanges))
	assert.EqualValues(t, 2, atomic.LoadInt32(&upstream.dataRequests))
}

func TestUnauthorizedTriggersSingleReauth(t *testing.T) {
	rejected := int32(0)

	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.CompareAndSwapInt32(&rejected, 0, 1) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		// the retried request must carry the re-exchanged token
		assert.Equal(t, "Bearer token-2", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"serial_numbers":[{"sr_no":"SN1","is_covered":"YES"}]}`)
	})

	client, _ := newTestClient(t, upstream)

	resp, err := client.CoverageBySerial(context.Background(), "SN1")
	require.NoError(t, err)
	require.Len(t, resp.SerialNumbers, 1)

	assert.EqualValues(t, 2, atomic.LoadInt32(&upstream.tokenExchanges))
	assert.EqualValues(t, 2, atomic.LoadInt32(&upstream.dataRequests))
}

func TestUnauthorizedTwiceSurfacesUpstreamError(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, _ := newTestClient(t, upstream)

	_, err := client.CoverageBySerial(context.Background(), "SN1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))

	// one re-auth, no infinite retry
	assert.EqualValues(t, 2, atomic.LoadInt32(&upstream.tokenExchanges))
	assert.EqualValues(t, 2, atomic.LoadInt32(&upstream.dataRequests))
}

func TestUpstreamErrorNotCached(t *testing.T) {
	failing := int32(1)

	upstream := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&failing) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"bugs":[]}`)
	})

	client, _ := newTestClient(t, upstream)

	_, err := client.BugsByKeyword(context.Background(), "C9300-48P", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))

	atomic.StoreInt32(&failing, 0)

	resp, err := client.BugsByKeyword(context.Background(), "C9300-48P", nil)
	require.NoError(t, err)
	assert.False(t, resp.FromCache)
}

func TestBugFilterParameters(t *testing.T) {
	tests := []struct {
		name       string
		filter     *BugFilter
		wantQuery  map[string]string
		absentKeys []string
	}{
		{
			"nil filter sends page index only",
			nil,
			map[string]string{"page_index": "1"},
			[]string{"severity", "status"},
		},
		{
			"full filter",
			&BugFilter{Severity: "1,2", Status: "O", PageIndex: 3},
			map[string]string{"page_index": "3", "severity": "1,2", "status": "O"},
			nil,
		},
		{
			"empty filter values omitted",
			&BugFilter{},
			map[string]string{"page_index": "1"},
			[]string{"severity", "status"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var query map[string][]string

			upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				query = r.URL.Query()

				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"bugs":[]}`)
			})

			client, _ := newTestClient(t, upstream)

			_, err := client.BugsByProduct(context.Background(), "C9300-48P", tc.filter)
			require.NoError(t, err)

			for key, want := range tc.wantQuery {
				require.Contains(t, query, key)
				assert.Equal(t, want, query[key][0])
			}

			for _, key := range tc.absentKeys {
				assert.NotContains(t, query, key)
			}
		})
	}
}

func TestBugsByNameAndReleaseParameters(t *testing.T) {
	var path string

	var query map[string][]string

	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		query = r.URL.Query()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"bugs":[]}`)
	})

	client, _ := newTestClient(t, upstream)

	_, err := client.BugsByNameAndRelease(context.Background(), "Cisco Catalyst 9300 Series Switches", "17.9.5", nil)
	require.NoError(t, err)

	assert.Contains(t, path, "/bug/v2.0/bugs/product_name/")
	assert.Contains(t, path, "/affected_releases/17.9.5")
	assert.NotContains(t, path, " ")
	assert.Equal(t, "5", query["modified_date"][0])
	assert.NotContains(t, query, "page_index")
}

func TestCoverageSummaryTruncation(t *testing.T) {
	var path string

	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"serial_numbers":[]}`)
	})

	client, _ := newTestClient(t, upstream)

	serials := make([]string, 0, 80)
	for i := 0; i < 80; i++ {
		serials = append(serials, fmt.Sprintf("SN%03d", i))
	}

	_, err := client.CoverageSummary(context.Background(), serials)
	require.NoError(t, err)

	sent := strings.Split(strings.TrimPrefix(path, "/sn2info/v2/coverage/summary/serial_numbers/"), ",")
	assert.Len(t, sent, 75)
	assert.Equal(t, "SN000", sent[0])
	assert.Equal(t, "SN074", sent[74])
}

func TestCoverageSummaryEmptyInput(t *testing.T) {
	upstream := newFakeUpstream(t, serveJSON(t, `{"serial_numbers":[]}`))
	client, _ := newTestClient(t, upstream)

	_, err := client.CoverageSummary(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSerials)

	// rejected before any upstream traffic
	assert.EqualValues(t, 0, atomic.LoadInt32(&upstream.dataRequests))
	assert.EqualValues(t, 0, atomic.LoadInt32(&upstream.tokenExchanges))
}

func TestSeverityDecoding(t *testing.T) {
	payload := `{"bugs":[{"bug_id":"CSCxx1","severity":1},{"bug_id":"CSCxx2","severity":"2"}]}`

	resp := &BugsResponse{}
	require.NoError(t, json.Unmarshal([]byte(payload), resp))

	assert.Equal(t, Severity("1"), resp.Bugs[0].Severity)
	assert.Equal(t, Severity("2"), resp.Bugs[1].Severity)
}

func TestTestConnection(t *testing.T) {
	t.Run("token exchange succeeds", func(t *testing.T) {
		upstream := newFakeUpstream(t, serveJSON(t, `{}`))
		client, _ := newTestClient(t, upstream)

		status := client.TestConnection(context.Background())
		assert.True(t, status.Success)
	})

	t.Run("token endpoint rejects the exchange", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		logger := logrus.New()
		logger.Level = logrus.PanicLevel

		client, err := NewClient(&app.SupportAPIOptions{
			ClientID:            "test-client-id",
			ClientSecret:        "test-client-secret",
			BaseURL:             server.URL,
			TokenURL:            server.URL + "/oauth2/token",
			TimeoutSeconds:      5,
			CacheTimeoutSeconds: 300,
		}, cache.NewMemoryStore(), logger)
		require.NoError(t, err)

		status := client.TestConnection(context.Background())
		assert.False(t, status.Success)
	})
}
