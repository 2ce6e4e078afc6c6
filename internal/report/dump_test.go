package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grn-bogo/ziasync/internal/zia"
)

func newDumpClient(srvURL string) *zia.Client {
	return zia.NewClient(zia.ClientConfig{
		BaseURL: srvURL,
		APIKey:  "ABCDEFGHIJKL",
		Budgets: map[zia.Op]zia.Budget{
			zia.OpGetEndpoint: {Calls: 1000, Window: time.Second},
		},
	})
}

func TestDumper_WritesPrettyJSONFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users":
			fmt.Fprint(w, `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`)
		case "/groups":
			fmt.Fprint(w, `[{"id":9,"name":"g"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	dumper := NewDumper(newDumpClient(srv.URL), dir, nil)
	dumper.now = func() time.Time {
		return time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	}

	written, err := dumper.Dump(context.Background(), []string{"users", "groups"})
	require.NoError(t, err)

	require.Len(t, written, 2)
	assert.Equal(t, filepath.Join(dir, "users_20260901_103000.json"), written[0])
	assert.Equal(t, filepath.Join(dir, "groups_20260901_103000.json"), written[1])

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(data, &users))
	assert.Len(t, users, 2)
	// Pretty-printed, not the single-line original.
	assert.Contains(t, string(data), "\n")
}

func TestDumper_SkipsUnimplementedEndpoints(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	dumper := NewDumper(newDumpClient(srv.URL), t.TempDir(), nil)
	written, err := dumper.Dump(context.Background(), []string{"bogus", "users"})
	require.NoError(t, err)

	assert.Len(t, written, 1)
	assert.Equal(t, 1, calls, "unimplemented endpoints are never fetched")
}

func TestDumper_FailingEndpointDoesNotAbortTheRest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	dumper := NewDumper(newDumpClient(srv.URL), t.TempDir(), nil)
	written, err := dumper.Dump(context.Background(), []string{"users", "groups"})
	require.NoError(t, err)

	require.Len(t, written, 1)
	assert.Contains(t, written[0], "groups_")
}

func TestDumper_FailedWriteDoesNotAbortTheRest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dumper := NewDumper(newDumpClient(srv.URL), dir, nil)
	dumper.now = func() time.Time {
		return time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	}

	// A directory squatting on the target name makes that write fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "users_20260901_103000.json"), 0o700))

	written, err := dumper.Dump(context.Background(), []string{"users", "groups"})
	require.NoError(t, err)

	require.Len(t, written, 1)
	assert.Contains(t, written[0], "groups_")
}

func TestIsImplemented(t *testing.T) {
	assert.True(t, IsImplemented("users"))
	assert.True(t, IsImplemented("networkServices"))
	assert.False(t, IsImplemented("appSegments"))
}
