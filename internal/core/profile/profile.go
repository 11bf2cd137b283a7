package profile

import (
	"encoding/json"
	"strings"
)

// Profile is the partially-known business profile record. It is stored
// as JSONB on the tenant row; this type gives the orchestrator typed
// access to the fields it depends on without assuming the rest of the
// document's shape.
type Profile map[string]any

// Parse decodes a raw JSONB document. A nil/empty document yields an
// empty profile, never an error.
func Parse(raw []byte) Profile {
	if len(raw) == 0 {
		return Profile{}
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil || p == nil {
		return Profile{}
	}
	return p
}

func (p Profile) IsEmpty() bool {
	return len(p) == 0
}

// JSON re-encodes the profile for persistence and prompt embedding.
func (p Profile) JSON() []byte {
	raw, err := json.Marshal(p)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

func (p Profile) Name() string {
	return p.str("name")
}

// Timezone returns the configured zone name. Profiles written by the
// dashboard use "time_zone"; older documents may carry "timezone".
func (p Profile) Timezone() string {
	if v := p.str("time_zone"); v != "" {
		return v
	}
	return p.str("timezone")
}

// OwnerPhone returns the first configured owner contact number, in the
// same precedence order the notification channel expects.
func (p Profile) OwnerPhone() string {
	for _, key := range []string{"owner_whatsapp", "whatsapp_number", "contact_phone", "owner_phone"} {
		if v := p.str(key); v != "" {
			return v
		}
	}
	return ""
}

// OpeningHours returns weekday -> "HH:MM-HH:MM" (or "closed").
func (p Profile) OpeningHours() map[string]string {
	hours := map[string]string{}
	raw, ok := p["opening_hours"].(map[string]any)
	if !ok {
		return hours
	}
	for day, v := range raw {
		if s, ok := v.(string); ok {
			hours[strings.ToLower(day)] = s
		}
	}
	return hours
}

// ServiceEntry is one service as embedded in the profile JSON.
type ServiceEntry struct {
	Name  string
	Price *float64
}

// Services returns the profile-embedded service list. Entries without a
// name are skipped; price is optional.
func (p Profile) Services() []ServiceEntry {
	raw, ok := p["services"].([]any)
	if !ok {
		return nil
	}
	var out []ServiceEntry
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		entry := ServiceEntry{Name: name}
		if price, ok := m["price"].(float64); ok {
			entry.Price = &price
		}
		out = append(out, entry)
	}
	return out
}

// SetPath merges value into the profile at a dotted path, creating
// intermediate objects as needed. An empty path is a no-op. Existing
// non-object values along the path are replaced by objects.
func (p Profile) SetPath(path string, value any) bool {
	parts := splitPath(path)
	if len(parts) == 0 {
		return false
	}
	cur := map[string]any(p)
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
	return true
}

func splitPath(path string) []string {
	var parts []string
	for _, part := range strings.Split(path, ".") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func (p Profile) str(key string) string {
	v, _ := p[key].(string)
	return strings.TrimSpace(v)
}
