package mockserver

import "time"

// loadedModel is one resident model along with the bookkeeping that drives eviction.
type loadedModel struct {
	spec    ModelSpec
	lastUse time.Time
}

// modelRegistry tracks which models are currently loaded. Each model type has its own
// least-recently-used eviction pool with the same size limit, matching how the real
// server applies --max-loaded-models. The registry is not safe for concurrent use;
// MockInferenceServer serializes access to it.
type modelRegistry struct {
	maxPerType int
	loaded     []*loadedModel
}

func newModelRegistry(maxPerType int) *modelRegistry {
	if maxPerType < 1 {
		maxPerType = 1
	}
	return &modelRegistry{maxPerType: maxPerType}
}

func (reg *modelRegistry) find(modelID string) *loadedModel {
	for _, m := range reg.loaded {
		if m.spec.ID == modelID {
			return m
		}
	}
	return nil
}

// load makes the model resident and marks it used now. Loading a model that is already
// resident just refreshes its use time. When the per-type limit would be exceeded, the
// least recently used model of the same type is evicted; the returned list names any
// evicted models.
func (reg *modelRegistry) load(spec ModelSpec, now time.Time) []string {
	if existing := reg.find(spec.ID); existing != nil {
		existing.spec = spec
		existing.lastUse = now
		return nil
	}
	var evicted []string
	for {
		sameType := reg.ofType(spec.Type)
		if len(sameType) < reg.maxPerType {
			break
		}
		victim := sameType[0]
		for _, m := range sameType[1:] {
			if m.lastUse.Before(victim.lastUse) {
				victim = m
			}
		}
		reg.remove(victim.spec.ID)
		evicted = append(evicted, victim.spec.ID)
	}
	reg.loaded = append(reg.loaded, &loadedModel{spec: spec, lastUse: now})
	return evicted
}

func (reg *modelRegistry) ofType(modelType string) []*loadedModel {
	var out []*loadedModel
	for _, m := range reg.loaded {
		if m.spec.Type == modelType {
			out = append(out, m)
		}
	}
	return out
}

func (reg *modelRegistry) remove(modelID string) bool {
	for i, m := range reg.loaded {
		if m.spec.ID == modelID {
			reg.loaded = append(reg.loaded[:i], reg.loaded[i+1:]...)
			return true
		}
	}
	return false
}

func (reg *modelRegistry) removeAll() {
	reg.loaded = nil
}

// touch marks an inference-time use of a resident model, which protects it from
// eviction ahead of less recently used models.
func (reg *modelRegistry) touch(modelID string, now time.Time) {
	if m := reg.find(modelID); m != nil {
		m.lastUse = now
	}
}

// all returns the resident models in load order.
func (reg *modelRegistry) all() []*loadedModel {
	out := make([]*loadedModel, len(reg.loaded))
	copy(out, reg.loaded)
	return out
}

// mostRecentlyUsed returns the resident model with the newest use time; it is the model
// an inference request without an explicit model name falls back to.
func (reg *modelRegistry) mostRecentlyUsed() (ModelSpec, bool) {
	var best *loadedModel
	for _, m := range reg.loaded {
		if best == nil || m.lastUse.After(best.lastUse) {
			best = m
		}
	}
	if best == nil {
		return ModelSpec{}, false
	}
	return best.spec, true
}
