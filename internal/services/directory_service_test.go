package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookapp/backend/internal/models"
)

func newDirectoryService(t *testing.T, baseURL string) *DirectoryService {
	t.Helper()
	viper.Set("directory.base_url", baseURL)
	t.Cleanup(func() { viper.Set("directory.base_url", "http://localhost:9090") })
	return NewDirectoryService(nil, time.Minute)
}

func TestDirectoryNursesFetch(t *testing.T) {
	var seenTenant string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/nurses", r.URL.Path)
		seenTenant = r.URL.Query().Get("tenant")
		json.NewEncoder(w).Encode([]models.Nurse{
			{ID: 8, Name: "Priya Sharma", Registration: "RN-1203"},
			{ID: 9, Name: "Anil Kumar"},
		})
	}))
	defer server.Close()

	ds := newDirectoryService(t, server.URL)

	nurses, err := ds.Nurses(context.Background(), "sunrise-care")
	require.NoError(t, err)
	require.Len(t, nurses, 2)
	assert.Equal(t, "Priya Sharma", nurses[8].Name)
	assert.Equal(t, "sunrise-care", seenTenant)
}

func TestDirectoryClientsFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/clients", r.URL.Path)
		json.NewEncoder(w).Encode([]models.Client{
			{ID: 15, PatientName: "R. Gupta", City: "Pune"},
		})
	}))
	defer server.Close()

	ds := newDirectoryService(t, server.URL)

	clients, err := ds.Clients(context.Background(), "sunrise-care")
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Pune", clients[15].City)
}

func TestDirectoryFetchErrorsReturnEmptyMaps(t *testing.T) {
	t.Run("non-200 response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		}))
		defer server.Close()

		ds := newDirectoryService(t, server.URL)

		nurses, err := ds.Nurses(context.Background(), "sunrise-care")
		assert.Error(t, err)
		assert.NotNil(t, nurses)
		assert.Empty(t, nurses)
	})

	t.Run("unreachable server", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		ds := newDirectoryService(t, server.URL)

		clients, err := ds.Clients(context.Background(), "sunrise-care")
		assert.Error(t, err)
		assert.NotNil(t, clients)
		assert.Empty(t, clients)
	})
}

func TestDirectoryLookupsSwallowFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	ds := newDirectoryService(t, server.URL)

	lookups := ds.Lookups(context.Background(), "sunrise-care")
	assert.Empty(t, lookups.Nurses)
	assert.Empty(t, lookups.Clients)
}

func TestDirectoryCacheHitSkipsHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("cache hit must not reach the directory API")
	}))
	defer server.Close()

	viper.Set("directory.base_url", server.URL)
	t.Cleanup(func() { viper.Set("directory.base_url", "http://localhost:9090") })

	redisClient, redisMock := redismock.NewClientMock()
	ds := NewDirectoryService(redisClient, time.Minute)

	cached := []models.Nurse{{ID: 8, Name: "Priya Sharma"}}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	redisMock.ExpectGet("directory:nurses:sunrise-care").SetVal(string(data))

	nurses, err := ds.Nurses(context.Background(), "sunrise-care")
	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", nurses[8].Name)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestDirectoryFetchPopulatesCache(t *testing.T) {
	payload := []models.Nurse{{ID: 8, Name: "Priya Sharma"}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	viper.Set("directory.base_url", server.URL)
	t.Cleanup(func() { viper.Set("directory.base_url", "http://localhost:9090") })

	redisClient, redisMock := redismock.NewClientMock()
	ds := NewDirectoryService(redisClient, time.Minute)

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	redisMock.ExpectGet("directory:nurses:sunrise-care").RedisNil()
	redisMock.ExpectSet("directory:nurses:sunrise-care", data, time.Minute).SetVal("OK")

	nurses, err := ds.Nurses(context.Background(), "sunrise-care")
	require.NoError(t, err)
	require.Len(t, nurses, 1)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
