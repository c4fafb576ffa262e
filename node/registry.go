package node

import (
	"context"
	"slices"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/BaSui01/oef-go/query"
	"github.com/BaSui01/oef-go/schema"
)

const (
	dirAgents   = "agents"
	dirServices = "services"
)

// RegisterAgent sets the description of id in the agent directory,
// replacing any previous one.
func (n *LocalNode) RegisterAgent(id string, d *schema.Description) error {
	if d == nil {
		n.metrics.RecordRegistryOperation(dirAgents, "register", ErrNilDescription)
		return ErrNilDescription
	}
	n.mu.Lock()
	n.agents[id] = d
	n.mu.Unlock()

	n.metrics.RecordRegistryOperation(dirAgents, "register", nil)
	n.logger.Debug("agent registered", zap.String("agent", id))
	return nil
}

// RegisterService adds d to the services of id. Registering a description
// equal to one already present does nothing.
func (n *LocalNode) RegisterService(id string, d *schema.Description) error {
	if d == nil {
		n.metrics.RecordRegistryOperation(dirServices, "register", ErrNilDescription)
		return ErrNilDescription
	}
	n.mu.Lock()
	list := n.services[id]
	if !slices.ContainsFunc(list, d.Equal) {
		n.services[id] = append(list, d)
	}
	n.mu.Unlock()

	n.metrics.RecordRegistryOperation(dirServices, "register", nil)
	n.logger.Debug("service registered", zap.String("agent", id))
	return nil
}

// UnregisterAgent removes id from the agent directory.
func (n *LocalNode) UnregisterAgent(id string) error {
	n.mu.Lock()
	_, ok := n.agents[id]
	delete(n.agents, id)
	n.mu.Unlock()

	var err error
	if !ok {
		err = ErrNotRegistered
	}
	n.metrics.RecordRegistryOperation(dirAgents, "unregister", err)
	return err
}

// UnregisterService removes the service of id equal to d.
func (n *LocalNode) UnregisterService(id string, d *schema.Description) error {
	n.mu.Lock()
	list := n.services[id]
	i := -1
	if d != nil {
		i = slices.IndexFunc(list, d.Equal)
	}
	if i >= 0 {
		list = slices.Delete(list, i, i+1)
		if len(list) == 0 {
			delete(n.services, id)
		} else {
			n.services[id] = list
		}
	}
	n.mu.Unlock()

	var err error
	if i < 0 {
		err = ErrNotRegistered
	}
	n.metrics.RecordRegistryOperation(dirServices, "unregister", err)
	return err
}

// SearchAgents returns the ids whose agent description satisfies q, sorted
// and without duplicates. A nil query matches nothing.
func (n *LocalNode) SearchAgents(ctx context.Context, q *query.Query) []string {
	_, span := n.tracer.Start(ctx, "oef.node.search_agents")
	defer span.End()

	var ids []string
	if q != nil {
		n.mu.RLock()
		for id, d := range n.agents {
			if q.Check(d) {
				ids = append(ids, id)
			}
		}
		n.mu.RUnlock()
	}
	sort.Strings(ids)

	span.SetAttributes(attribute.Int("oef.results", len(ids)))
	n.metrics.RecordSearch(dirAgents, len(ids))
	return ids
}

// SearchServices returns the ids with at least one service satisfying q,
// sorted and without duplicates. A nil query matches nothing.
func (n *LocalNode) SearchServices(ctx context.Context, q *query.Query) []string {
	_, span := n.tracer.Start(ctx, "oef.node.search_services")
	defer span.End()

	var ids []string
	if q != nil {
		n.mu.RLock()
		for id, list := range n.services {
			if slices.ContainsFunc(list, q.Check) {
				ids = append(ids, id)
			}
		}
		n.mu.RUnlock()
	}
	sort.Strings(ids)

	span.SetAttributes(attribute.Int("oef.results", len(ids)))
	n.metrics.RecordSearch(dirServices, len(ids))
	return ids
}

// Agents returns the ids in the agent directory, sorted.
func (n *LocalNode) Agents() []string {
	n.mu.RLock()
	ids := make([]string, 0, len(n.agents))
	for id := range n.agents {
		ids = append(ids, id)
	}
	n.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
