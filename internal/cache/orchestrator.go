package cache

import (
	"context"
	"fmt"
)

// Tier selects one of the three cache stores.
type Tier int

const (
	// TierPinned is the user-pinned alias tier.
	TierPinned Tier = iota
	// TierSystem is the auto-managed LRU resource tier.
	TierSystem
	// TierSchema is the connection/transaction tier.
	TierSchema
	// TierAll addresses every tier; valid only for Clear and Stats.
	TierAll
)

func (t Tier) String() string {
	switch t {
	case TierPinned:
		return "pinned"
	case TierSystem:
		return "system"
	case TierSchema:
		return "schema"
	case TierAll:
		return "all"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// ParseTier converts a tier name to its selector.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "pinned":
		return TierPinned, nil
	case "system":
		return TierSystem, nil
	case "schema":
		return TierSchema, nil
	case "all":
		return TierAll, nil
	default:
		return 0, fmt.Errorf("unknown cache tier %q", s)
	}
}

// LoadFunc fetches a resource from disk on a cache miss. It returns the
// value and the source path used for later mtime validation.
type LoadFunc func(key string) (value any, sourcePath string, err error)

// Orchestrator is a stateless façade over the three tiers. It routes calls
// unchanged to the selected tier and holds no cache state of its own.
type Orchestrator struct {
	pinned *AliasCache
	system *ResourceCache
	schema *ConnectionCache
}

// NewOrchestrator wires the three tiers behind one façade.
func NewOrchestrator(pinned *AliasCache, system *ResourceCache, schema *ConnectionCache) *Orchestrator {
	return &Orchestrator{pinned: pinned, system: system, schema: schema}
}

// Pinned exposes the alias tier.
func (o *Orchestrator) Pinned() *AliasCache { return o.pinned }

// System exposes the resource tier.
func (o *Orchestrator) System() *ResourceCache { return o.system }

// Schema exposes the connection tier.
func (o *Orchestrator) Schema() *ConnectionCache { return o.schema }

// Get routes a read to the selected tier. On the schema tier the value is
// the live connection handle.
func (o *Orchestrator) Get(tier Tier, key string) (any, bool) {
	switch tier {
	case TierPinned:
		return o.pinned.Get(key)
	case TierSystem:
		return o.system.Get(key)
	case TierSchema:
		conn, ok := o.schema.Get(key)
		if !ok {
			return nil, false
		}
		return conn, true
	default:
		return nil, false
	}
}

// Set routes a write to the selected tier. Origin doubles as the source
// path on the system tier; the schema tier is excluded because handles are
// registered through ConnectionCache.Set with their backend kind.
func (o *Orchestrator) Set(tier Tier, key string, value any, origin string) error {
	switch tier {
	case TierPinned:
		o.pinned.Set(key, value, origin)
		return nil
	case TierSystem:
		o.system.Set(key, value, origin)
		return nil
	case TierSchema:
		return fmt.Errorf("schema tier: register connections through the connection cache")
	default:
		return fmt.Errorf("set: invalid tier %s", tier)
	}
}

// Has reports presence in the selected tier.
func (o *Orchestrator) Has(tier Tier, key string) bool {
	switch tier {
	case TierPinned:
		return o.pinned.Has(key)
	case TierSystem:
		return o.system.Has(key)
	case TierSchema:
		_, ok := o.schema.Record(key)
		return ok
	default:
		return false
	}
}

// Clear empties the selected tier, or all of them. Pattern filters the
// pinned and system tiers; the schema tier always disconnects everything,
// since a half-cleared connection set would leak transactions.
func (o *Orchestrator) Clear(ctx context.Context, tier Tier, pattern string) {
	switch tier {
	case TierPinned:
		o.pinned.Clear(pattern)
	case TierSystem:
		o.system.Clear(pattern)
	case TierSchema:
		o.schema.Clear(ctx)
	case TierAll:
		o.pinned.Clear(pattern)
		o.system.Clear(pattern)
		o.schema.Clear(ctx)
	}
}

// Stats snapshots one tier's counters; TierAll aggregates all three.
func (o *Orchestrator) Stats(tier Tier) AllStats {
	var all AllStats
	switch tier {
	case TierPinned:
		all.Pinned = o.pinned.Stats()
	case TierSystem:
		all.System = o.system.Stats()
	case TierSchema:
		all.Schema = o.schema.Stats()
	case TierAll:
		all.Pinned = o.pinned.Stats()
		all.System = o.system.Stats()
		all.Schema = o.schema.Stats()
	}
	return all
}

// Lookup resolves an unqualified resource: the pinned tier wins, then the
// system tier, then load populates the system tier on success.
func (o *Orchestrator) Lookup(key string, load LoadFunc) (any, error) {
	if v, ok := o.pinned.Get(key); ok {
		return v, nil
	}
	if v, ok := o.system.Get(key); ok {
		return v, nil
	}
	if load == nil {
		return nil, fmt.Errorf("lookup %q: not cached and no loader provided", key)
	}
	v, sourcePath, err := load(key)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", key, err)
	}
	o.system.Set(key, v, sourcePath)
	return v, nil
}
