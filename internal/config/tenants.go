package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/gosimple/slug"
	"github.com/spf13/viper"

	"github.com/copperhq/copper/internal/pricing/domain"
)

// TenantHolder serves the tenant catalog from tenants.yml with hot
// reload. When no file is present the built-in tenant set applies.
type TenantHolder struct {
	current atomic.Value // holds []domain.Tenant
}

func NewTenantHolder() (*TenantHolder, error) {
	v := viper.New()

	v.SetConfigName("tenants")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/copper/config")
	v.AddConfigPath("/etc/copper")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		v.SetDefault("tenants", domain.DefaultTenants)
	}

	var tenants []domain.Tenant
	if err := v.UnmarshalKey("tenants", &tenants); err != nil {
		return nil, err
	}
	tenants, err := normalizeTenants(tenants)
	if err != nil {
		return nil, err
	}

	holder := &TenantHolder{}
	holder.current.Store(tenants)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated []domain.Tenant
		if err := v.UnmarshalKey("tenants", &updated); err != nil {
			log.Printf("[tenant-config] reload failed: %v", err)
			return
		}
		normalized, err := normalizeTenants(updated)
		if err != nil {
			log.Printf("[tenant-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(normalized)
		log.Printf("[tenant-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Get returns the active tenant catalog.
func (h *TenantHolder) Get() []domain.Tenant {
	return h.current.Load().([]domain.Tenant)
}

// IDs returns the tenant ids in catalog order.
func (h *TenantHolder) IDs() []string {
	tenants := h.Get()
	ids := make([]string, 0, len(tenants))
	for _, t := range tenants {
		ids = append(ids, t.ID)
	}
	return ids
}

// Lookup resolves a tenant by id.
func (h *TenantHolder) Lookup(id string) (domain.Tenant, bool) {
	id = slug.Make(strings.TrimSpace(id))
	for _, t := range h.Get() {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Tenant{}, false
}

func normalizeTenants(tenants []domain.Tenant) ([]domain.Tenant, error) {
	if len(tenants) == 0 {
		return nil, errors.New("tenants cannot be empty")
	}

	seen := make(map[string]struct{}, len(tenants))
	out := make([]domain.Tenant, 0, len(tenants))
	for _, t := range tenants {
		id := slug.Make(strings.TrimSpace(t.ID))
		if id == "" {
			return nil, fmt.Errorf("tenant id %q is invalid", t.ID)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("tenant id %q is duplicated", id)
		}
		seen[id] = struct{}{}

		name := strings.TrimSpace(t.Name)
		if name == "" {
			name = id
		}
		out = append(out, domain.Tenant{ID: id, Name: name})
	}
	return out, nil
}
