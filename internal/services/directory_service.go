package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"

	"github.com/daybookapp/backend/internal/models"
)

// DirectoryService reads the external nurse/client directories. The
// directory is display/search enrichment only: every failure degrades
// to an empty map so a missing lookup can never fail an entry query.
type DirectoryService struct {
	redis    *redis.Client
	baseURL  string
	client   *http.Client
	cacheTTL time.Duration
}

func NewDirectoryService(redisClient *redis.Client, cacheTTL time.Duration) *DirectoryService {
	viper.SetDefault("directory.base_url", "http://localhost:9090")
	return &DirectoryService{
		redis:    redisClient,
		baseURL:  viper.GetString("directory.base_url"),
		client:   &http.Client{Timeout: 5 * time.Second},
		cacheTTL: cacheTTL,
	}
}

// Lookups fetches both cross-reference maps for a tenant. Errors are
// logged and swallowed here on purpose.
func (ds *DirectoryService) Lookups(ctx context.Context, tenant string) Lookups {
	nurses, err := ds.Nurses(ctx, tenant)
	if err != nil {
		log.Printf("[DIRECTORY] Nurse lookup unavailable for tenant %s: %v", tenant, err)
	}
	clients, err := ds.Clients(ctx, tenant)
	if err != nil {
		log.Printf("[DIRECTORY] Client lookup unavailable for tenant %s: %v", tenant, err)
	}
	return Lookups{Nurses: nurses, Clients: clients}
}

// Nurses returns the tenant's nurse directory keyed by ID.
func (ds *DirectoryService) Nurses(ctx context.Context, tenant string) (map[int64]models.Nurse, error) {
	cacheKey := "directory:nurses:" + tenant

	var nurses []models.Nurse
	if err := ds.cached(ctx, cacheKey, &nurses); err == nil {
		return nurseMap(nurses), nil
	}

	if err := ds.fetch(ctx, "/nurses", tenant, &nurses); err != nil {
		return map[int64]models.Nurse{}, err
	}

	ds.cache(ctx, cacheKey, nurses)
	return nurseMap(nurses), nil
}

// Clients returns the tenant's client directory keyed by ID.
func (ds *DirectoryService) Clients(ctx context.Context, tenant string) (map[int64]models.Client, error) {
	cacheKey := "directory:clients:" + tenant

	var clients []models.Client
	if err := ds.cached(ctx, cacheKey, &clients); err == nil {
		return clientMap(clients), nil
	}

	if err := ds.fetch(ctx, "/clients", tenant, &clients); err != nil {
		return map[int64]models.Client{}, err
	}

	ds.cache(ctx, cacheKey, clients)
	return clientMap(clients), nil
}

func (ds *DirectoryService) fetch(ctx context.Context, path, tenant string, out interface{}) error {
	endpoint := fmt.Sprintf("%s%s?tenant=%s", ds.baseURL, path, url.QueryEscape(tenant))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := ds.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory API returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (ds *DirectoryService) cached(ctx context.Context, key string, out interface{}) error {
	if ds.redis == nil {
		return redis.Nil
	}
	data, err := ds.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (ds *DirectoryService) cache(ctx context.Context, key string, value interface{}) {
	if ds.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := ds.redis.Set(ctx, key, data, ds.cacheTTL).Err(); err != nil {
		log.Printf("[DIRECTORY] Failed to cache %s: %v", key, err)
	}
}

func nurseMap(nurses []models.Nurse) map[int64]models.Nurse {
	m := make(map[int64]models.Nurse, len(nurses))
	for _, n := range nurses {
		m[n.ID] = n
	}
	return m
}

func clientMap(clients []models.Client) map[int64]models.Client {
	m := make(map[int64]models.Client, len(clients))
	for _, c := range clients {
		m[c.ID] = c
	}
	return m
}
