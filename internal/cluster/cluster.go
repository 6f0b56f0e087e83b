// Package cluster distributes a cache keyspace across multiple backend nodes
// with consistent hashing and replication.
//
// Keys are placed on a hash ring with virtual points per node. Each key is
// stored on its primary node plus the next replicationFactor-1 nodes; reads
// return the first replica that has the key, and writes succeed if any
// replica accepts them. The cluster itself implements backend.Backend, so it
// can sit anywhere a single backend can.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hoardkv/hoard/internal/backend"
	"github.com/hoardkv/hoard/internal/stats"
)

// Compile-time check that Cluster implements backend.Backend.
var _ backend.Backend = (*Cluster)(nil)

// ErrNoNodes is returned by operations on a cluster with no nodes.
var ErrNoNodes = errors.New("cluster: no nodes")

// Node is one member of the cluster.
type Node struct {
	Name    string
	Backend backend.Backend
}

// Cluster routes cache operations across its nodes.
type Cluster struct {
	replication   int
	virtualPoints int
	collector     stats.Collector
	logger        *zap.Logger

	mu    sync.RWMutex
	nodes []Node
	ring  *ring
}

// Option configures a Cluster.
type Option func(*Cluster)

// WithReplication sets how many nodes hold each key. Values below 1 are
// treated as 1; values above the node count are capped per operation.
func WithReplication(factor int) Option {
	return func(c *Cluster) {
		if factor < 1 {
			factor = 1
		}
		c.replication = factor
	}
}

// WithVirtualPoints sets the number of ring positions per node.
func WithVirtualPoints(points int) Option {
	return func(c *Cluster) {
		if points > 0 {
			c.virtualPoints = points
		}
	}
}

// WithStats sets the stats collector.
func WithStats(collector stats.Collector) Option {
	return func(c *Cluster) { c.collector = collector }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cluster) { c.logger = logger }
}

// New creates a cluster over the given nodes. Replication defaults to 1.
func New(nodes []Node, opts ...Option) *Cluster {
	c := &Cluster{
		replication:   1,
		virtualPoints: DefaultVirtualPoints,
		collector:     stats.NewNoop(),
		logger:        zap.NewNop(),
		nodes:         nodes,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ring = buildRing(nodeNames(c.nodes), c.virtualPoints)
	return c
}

func nodeNames(nodes []Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}

// AddNode adds a node and rebuilds the ring.
func (c *Cluster) AddNode(node Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = append(c.nodes, node)
	c.ring = buildRing(nodeNames(c.nodes), c.virtualPoints)
	c.logger.Info("node added", zap.String("node", node.Name), zap.Int("nodes", len(c.nodes)))
}

// RemoveNode removes the named node and rebuilds the ring. It returns false
// if no node has that name. The node's backend is not closed.
func (c *Cluster) RemoveNode(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.nodes {
		if n.Name == name {
			c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)
			c.ring = buildRing(nodeNames(c.nodes), c.virtualPoints)
			c.logger.Info("node removed", zap.String("node", name), zap.Int("nodes", len(c.nodes)))
			return true
		}
	}
	return false
}

// NodeNames returns the names of the current nodes in order.
func (c *Cluster) NodeNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return nodeNames(c.nodes)
}

// replicasFor snapshots the replica set for a key under the read lock.
func (c *Cluster) replicasFor(key string) ([]Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.nodes) == 0 {
		return nil, ErrNoNodes
	}
	idxs := c.ring.replicas(key, c.replication)
	nodes := make([]Node, len(idxs))
	for i, idx := range idxs {
		nodes[i] = c.nodes[idx]
	}
	return nodes, nil
}

// Get returns the value from the first replica that has the key. Node
// failures are logged and skipped; the key is a miss only if no replica
// has it.
func (c *Cluster) Get(ctx context.Context, key string) ([]byte, error) {
	replicas, err := c.replicasFor(key)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, node := range replicas {
		value, err := node.Backend.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if errors.Is(err, backend.ErrNotFound) {
			continue
		}
		c.nodeError(node, "get", err)
		lastErr = err
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: all replicas failed: %v", backend.ErrUnavailable, lastErr)
	}
	return nil, backend.ErrNotFound
}

// Set writes the value to every replica. The write succeeds if at least one
// replica accepts it.
func (c *Cluster) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	replicas, err := c.replicasFor(key)
	if err != nil {
		return err
	}
	c.collector.IncCounter(stats.MetricClusterFanouts, 1)

	var errs error
	succeeded := false
	for _, node := range replicas {
		if err := node.Backend.Set(ctx, key, value, ttl); err != nil {
			c.nodeError(node, "set", err)
			errs = multierr.Append(errs, fmt.Errorf("node %s: %w", node.Name, err))
			continue
		}
		succeeded = true
	}
	if !succeeded {
		return errs
	}
	return nil
}

// Delete removes the key from every replica. It succeeds if at least one
// replica processed the delete.
func (c *Cluster) Delete(ctx context.Context, key string) error {
	replicas, err := c.replicasFor(key)
	if err != nil {
		return err
	}

	var errs error
	succeeded := false
	for _, node := range replicas {
		if err := node.Backend.Delete(ctx, key); err != nil {
			c.nodeError(node, "delete", err)
			errs = multierr.Append(errs, fmt.Errorf("node %s: %w", node.Name, err))
			continue
		}
		succeeded = true
	}
	if !succeeded {
		return errs
	}
	return nil
}

// Exists reports whether any replica has the key.
func (c *Cluster) Exists(ctx context.Context, key string) (bool, error) {
	replicas, err := c.replicasFor(key)
	if err != nil {
		return false, err
	}

	var lastErr error
	for _, node := range replicas {
		exists, err := node.Backend.Exists(ctx, key)
		if err != nil {
			c.nodeError(node, "exists", err)
			lastErr = err
			continue
		}
		if exists {
			return true, nil
		}
	}
	if lastErr != nil {
		return false, fmt.Errorf("%w: all replicas failed: %v", backend.ErrUnavailable, lastErr)
	}
	return false, nil
}

// Clear clears every node in the cluster.
func (c *Cluster) Clear(ctx context.Context) error {
	c.mu.RLock()
	nodes := make([]Node, len(c.nodes))
	copy(nodes, c.nodes)
	c.mu.RUnlock()

	var errs error
	for _, node := range nodes {
		if err := node.Backend.Clear(ctx); err != nil {
			c.nodeError(node, "clear", err)
			errs = multierr.Append(errs, fmt.Errorf("node %s: %w", node.Name, err))
		}
	}
	return errs
}

// GetMany fetches the keys, grouping them by primary node so each node sees
// one batched call. Keys a node fails on fall back to single-key reads so
// replicas still get a chance.
func (c *Cluster) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	c.mu.RLock()
	if len(c.nodes) == 0 {
		c.mu.RUnlock()
		return nil, ErrNoNodes
	}
	groups := make(map[int][]string)
	for _, key := range keys {
		idx := c.ring.primary(key)
		groups[idx] = append(groups[idx], key)
	}
	nodes := make([]Node, len(c.nodes))
	copy(nodes, c.nodes)
	c.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	var retry []string
	for idx, group := range groups {
		node := nodes[idx]
		values, err := node.Backend.GetMany(ctx, group)
		if err != nil {
			c.nodeError(node, "get_many", err)
			retry = append(retry, group...)
			continue
		}
		for k, v := range values {
			result[k] = v
		}
	}

	for _, key := range retry {
		value, err := c.Get(ctx, key)
		if err != nil {
			continue
		}
		result[key] = value
	}
	return result, nil
}

// SetMany writes the items, grouping each key's replica writes by node so
// each node sees one batched call per operation.
func (c *Cluster) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	c.mu.RLock()
	if len(c.nodes) == 0 {
		c.mu.RUnlock()
		return ErrNoNodes
	}
	groups := make(map[int]map[string][]byte)
	for key, value := range items {
		for _, idx := range c.ring.replicas(key, c.replication) {
			group, ok := groups[idx]
			if !ok {
				group = make(map[string][]byte)
				groups[idx] = group
			}
			group[key] = value
		}
	}
	nodes := make([]Node, len(c.nodes))
	copy(nodes, c.nodes)
	c.mu.RUnlock()

	c.collector.IncCounter(stats.MetricClusterFanouts, 1)

	written := make(map[string]bool, len(items))
	var errs error
	for idx, group := range groups {
		node := nodes[idx]
		if err := node.Backend.SetMany(ctx, group, ttl); err != nil {
			c.nodeError(node, "set_many", err)
			errs = multierr.Append(errs, fmt.Errorf("node %s: %w", node.Name, err))
			continue
		}
		for key := range group {
			written[key] = true
		}
	}

	for key := range items {
		if !written[key] {
			return errs
		}
	}
	return nil
}

// Close closes every node backend.
func (c *Cluster) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs error
	for _, node := range c.nodes {
		if err := node.Backend.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("node %s: %w", node.Name, err))
		}
	}
	return errs
}

func (c *Cluster) nodeError(node Node, op string, err error) {
	c.collector.IncCounter(stats.MetricClusterNodeErrors, 1)
	c.logger.Warn("node operation failed",
		zap.String("node", node.Name),
		zap.String("op", op),
		zap.Error(err))
}
