package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rpggio/tasking/internal/auth"
	"github.com/rpggio/tasking/internal/domain/lookup"
	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/rpggio/tasking/internal/domain/workspace"
	"github.com/stretchr/testify/require"
)

var (
	_ workspace.Backend = (*Client)(nil)
	_ lookup.Source     = (*Client)(nil)
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{BaseURL: srv.URL + "/api", Token: "static"})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Options{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_FetchRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/views/tasking_manager/records", r.URL.Path)
		require.Equal(t, "Bearer static", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"1": {"Image File Name": "IMG_A", "Priority": "Low"},
			"2": {"Area Name": "North", "Parent ID": 1, "Assignee": "bob"},
			"x": "not a record"
		}`)
	})

	store, warnings, err := client.FetchRecords(context.Background(), workspace.ViewTaskingManager)
	require.NoError(t, err)
	require.Len(t, store, 2)
	require.Equal(t, tasking.KindImage, store["1"].Kind)
	require.Equal(t, tasking.ID("1"), store["2"].ParentID)
	require.Len(t, warnings, 1)
}

func TestClient_ForwardsCallerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer caller", r.Header.Get("Authorization"))
		io.WriteString(w, `[]`)
	})

	ctx := auth.WithToken(context.Background(), "caller")
	opts, err := client.FetchAssignees(ctx)
	require.NoError(t, err)
	require.Empty(t, opts)
}

func TestClient_AssignTasks(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/tasks/assign", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.AssignTasks(context.Background(), tasking.TaskAssignments{
		Tasks: []tasking.TaskAssignment{{AreaID: "502", Assignee: "bob"}},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"Tasks": []any{map[string]any{"SCVU Image Area ID": float64(502), "Assignee": "bob"}},
	}, got)
}

func TestClient_UpdatePriorities(t *testing.T) {
	var got map[string]map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/images/priority", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	err := client.UpdatePriorities(context.Background(), tasking.PriorityUpdates{
		"1": {Priority: tasking.PriorityHigh},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]map[string]string{"1": {"Priority": "High"}}, got)
}

func TestClient_StatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusBadGateway)
	})

	err := client.UpdatePriorities(context.Background(), tasking.PriorityUpdates{})
	require.ErrorIs(t, err, ErrBackendStatus)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, "backend exploded", statusErr.Body)
}

func TestClient_StatusErrorKeepsRunesWhole(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "x"+strings.Repeat("é", maxErrorBody))
	})

	err := client.UpdatePriorities(context.Background(), tasking.PriorityUpdates{})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.LessOrEqual(t, len(statusErr.Body), maxErrorBody)
	require.True(t, utf8.ValidString(statusErr.Body))
	require.Equal(t, maxErrorBody-1, len(statusErr.Body))
}

func TestClient_ResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"1": {"Image File Name": "IMG_A"}}`)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{BaseURL: srv.URL, MaxResponseBytes: 16})
	require.NoError(t, err)
	_, _, err = client.FetchRecords(context.Background(), workspace.ViewTaskingManager)
	require.ErrorIs(t, err, ErrResponseTooLarge)

	client, err = NewClient(Options{BaseURL: srv.URL, MaxResponseBytes: 64})
	require.NoError(t, err)
	store, _, err := client.FetchRecords(context.Background(), workspace.ViewTaskingManager)
	require.NoError(t, err)
	require.Len(t, store, 1)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.FetchCategories(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrBackendStatus)
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})
	client, err := NewClient(Options{BaseURL: client.baseURL.String(), RatePerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	_, err = client.FetchCategories(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = client.FetchCategories(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limit")
}

func TestDecodeOptions(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []lookup.Option
		wantErr bool
	}{
		{
			name:    "strings",
			payload: `["bob", "carol"]`,
			want:    []lookup.Option{{ID: "bob", Name: "bob"}, {ID: "carol", Name: "carol"}},
		},
		{
			name:    "objects",
			payload: `[{"ID": 7, "Display Name": "Bob B"}, {"username": "carol"}]`,
			want:    []lookup.Option{{ID: "7", Name: "Bob B"}, {ID: "carol", Name: "carol"}},
		},
		{
			name:    "map",
			payload: `{"b": "Beta", "a": "Alpha"}`,
			want:    []lookup.Option{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta"}},
		},
		{
			name:    "null",
			payload: `null`,
			want:    []lookup.Option{},
		},
		{
			name:    "entry without id",
			payload: `[{"color": "red"}]`,
			wantErr: true,
		},
		{
			name:    "scalar",
			payload: `42`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeOptions([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDisabled(t *testing.T) {
	var b workspace.Backend = Disabled{}
	_, _, err := b.FetchRecords(context.Background(), workspace.ViewTaskingManager)
	require.ErrorIs(t, err, ErrNotConfigured)
	require.ErrorIs(t, b.AssignTasks(context.Background(), tasking.TaskAssignments{}), ErrNotConfigured)
	require.ErrorIs(t, b.UpdatePriorities(context.Background(), tasking.PriorityUpdates{}), ErrNotConfigured)
}
