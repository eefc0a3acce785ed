// Package selection maps a caller's role and task kind to a concrete
// model id using an explicit assignment table with ordered preference
// lists as fallback.
package selection

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"inferd/internal/config"
	"inferd/internal/manager"
	"inferd/pkg/types"
)

// Catalog is the read surface the policy needs from the model manager.
type Catalog interface {
	// List returns descriptors in registration order.
	List() []types.ModelDescriptor
	Get(id string) (types.ModelDescriptor, bool)
	// Loadable reports whether id is Loaded or could be loaded.
	Loadable(id string) bool
}

type assignKey struct {
	role string
	task string
}

// Policy is the AgentModelProvider: read-mostly preference state over a
// live catalog. Safe for concurrent use.
type Policy struct {
	mu          sync.RWMutex
	rolePrefs   map[string][]string
	taskPrefs   map[string][]string
	assignments map[assignKey][]string

	catalog Catalog
	log     zerolog.Logger
}

// New validates cfg and builds a Policy. Unknown task kinds and
// assignments referencing undeclared roles or tasks are rejected here,
// not at selection time.
func New(cfg config.SelectionConfig, catalog Catalog, log zerolog.Logger) (*Policy, error) {
	for role, tags := range cfg.RolePrefs {
		if role == "" {
			return nil, fmt.Errorf("selection config: empty role")
		}
		if len(tags) == 0 {
			return nil, fmt.Errorf("selection config: role %q has no format preferences", role)
		}
	}
	for task, tags := range cfg.TaskPrefs {
		if !types.ValidKind(types.ModelKind(task)) {
			return nil, fmt.Errorf("selection config: unknown task kind %q", task)
		}
		if len(tags) == 0 {
			return nil, fmt.Errorf("selection config: task %q has no format preferences", task)
		}
	}
	p := &Policy{
		rolePrefs:   make(map[string][]string, len(cfg.RolePrefs)),
		taskPrefs:   make(map[string][]string, len(cfg.TaskPrefs)),
		assignments: make(map[assignKey][]string, len(cfg.Assignments)),
		catalog:     catalog,
		log:         log,
	}
	for role, tags := range cfg.RolePrefs {
		p.rolePrefs[role] = append([]string(nil), tags...)
	}
	for task, tags := range cfg.TaskPrefs {
		p.taskPrefs[task] = append([]string(nil), tags...)
	}
	for _, a := range cfg.Assignments {
		if _, ok := p.rolePrefs[a.Role]; !ok {
			return nil, fmt.Errorf("selection config: assignment for undeclared role %q", a.Role)
		}
		if _, ok := p.taskPrefs[a.Task]; !ok {
			return nil, fmt.Errorf("selection config: assignment for undeclared task %q", a.Task)
		}
		if len(a.Models) == 0 {
			return nil, fmt.Errorf("selection config: assignment (%s,%s) has no models", a.Role, a.Task)
		}
		p.assignments[assignKey{a.Role, a.Task}] = append([]string(nil), a.Models...)
	}
	return p, nil
}

// SelectFor picks the best model for (role, taskKind). Explicit
// assignments win; otherwise the role and task tag preference lists are
// intersected (role order primary) and the catalog is scanned in that
// order, registration order breaking ties within one tag. The result is
// deterministic for a fixed catalog and configuration.
func (p *Policy) SelectFor(role, task string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	roleTags, roleOK := p.rolePrefs[role]
	if !roleOK {
		return "", ErrUnknownPolicyKey("role", role)
	}
	taskTags, taskOK := p.taskPrefs[task]
	if !taskOK {
		return "", ErrUnknownPolicyKey("task", task)
	}

	// Tier 1: explicit assignment, most-preferred first.
	for _, id := range p.assignments[assignKey{role, task}] {
		if _, ok := p.catalog.Get(id); ok && p.catalog.Loadable(id) {
			return id, nil
		}
	}

	// Tier 2: combined tag preference order.
	taskSet := make(map[string]struct{}, len(taskTags))
	for _, t := range taskTags {
		taskSet[t] = struct{}{}
	}
	kind := types.ModelKind(task)
	descs := p.catalog.List()
	for _, tag := range roleTags {
		if _, ok := taskSet[tag]; !ok {
			continue
		}
		for _, d := range descs {
			if d.Kind != kind || d.Format != tag {
				continue
			}
			if p.catalog.Loadable(d.ID) {
				return d.ID, nil
			}
		}
	}
	return "", ErrNoModelAvailable(role, task)
}

// Assign installs an explicit override for (role, task). The model id
// must exist in the catalog.
func (p *Policy) Assign(role, task, modelID string) error {
	if _, ok := p.catalog.Get(modelID); !ok {
		return manager.ErrUnknownModel(modelID)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.rolePrefs[role]; !ok {
		return ErrUnknownPolicyKey("role", role)
	}
	if _, ok := p.taskPrefs[task]; !ok {
		return ErrUnknownPolicyKey("task", task)
	}
	p.assignments[assignKey{role, task}] = []string{modelID}
	p.log.Info().Str("role", role).Str("task", task).Str("model", modelID).Msg("assignment set")
	return nil
}

// Assignments returns a copy of the current assignment table.
func (p *Policy) Assignments() []config.Assignment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]config.Assignment, 0, len(p.assignments))
	for k, ids := range p.assignments {
		out = append(out, config.Assignment{Role: k.role, Task: k.task, Models: append([]string(nil), ids...)})
	}
	return out
}
