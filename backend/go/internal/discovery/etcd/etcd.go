package etcd

import (
	"RagDesk/backend/go/pkg/logger"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/services/"

// ErrNoInstances is returned when no instance of a service is registered.
var ErrNoInstances = errors.New("no registered instances")

// ServiceDiscovery registers and finds services in etcd.
type ServiceDiscovery struct {
	cli *clientv3.Client
	log *logger.Logger
}

// NewServiceDiscovery creates a new ServiceDiscovery.
func NewServiceDiscovery(endpoints []string, log *logger.Logger) (*ServiceDiscovery, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("etcd endpoints are empty")
	}
	if log == nil {
		log = logger.Discard()
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &ServiceDiscovery{cli: cli, log: log}, nil
}

func serviceKey(serviceName, addr string) string {
	return keyPrefix + serviceName + "/" + addr
}

func servicePrefix(serviceName string) string {
	return keyPrefix + serviceName + "/"
}

// Registration is a live lease holding one service address.
type Registration struct {
	sd      *ServiceDiscovery
	key     string
	leaseID clientv3.LeaseID
	cancel  context.CancelFunc
	done    chan struct{}
}

// Register puts addr under serviceName with a lease of ttl seconds and keeps it alive
// until Deregister is called or ctx ends.
func (s *ServiceDiscovery) Register(ctx context.Context, serviceName, addr string, ttl int64) (*Registration, error) {
	if ttl <= 0 {
		ttl = 10
	}
	leaseResp, err := s.cli.Grant(ctx, ttl)
	if err != nil {
		return nil, fmt.Errorf("grant lease: %w", err)
	}

	key := serviceKey(serviceName, addr)
	if _, err := s.cli.Put(ctx, key, addr, clientv3.WithLease(leaseResp.ID)); err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}

	kaCtx, cancel := context.WithCancel(ctx)
	keepAliveCh, err := s.cli.KeepAlive(kaCtx, leaseResp.ID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("keep lease alive: %w", err)
	}

	reg := &Registration{sd: s, key: key, leaseID: leaseResp.ID, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(reg.done)
		for range keepAliveCh {
		}
		if kaCtx.Err() == nil {
			s.log.Warn(fmt.Sprintf("Lease for %s expired or was revoked", key))
		}
	}()

	s.log.Info(fmt.Sprintf("Registered %s in etcd with a %ds lease", key, ttl))
	return reg, nil
}

// Deregister stops the keepalive and revokes the lease, which deletes the key.
func (r *Registration) Deregister(ctx context.Context) error {
	r.cancel()
	<-r.done
	if _, err := r.sd.cli.Revoke(ctx, r.leaseID); err != nil {
		return fmt.Errorf("revoke lease of %s: %w", r.key, err)
	}
	r.sd.log.Info(fmt.Sprintf("Deregistered %s from etcd", r.key))
	return nil
}

// Discover returns the registered addresses of serviceName, sorted.
func (s *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]string, error) {
	resp, err := s.cli.Get(ctx, servicePrefix(serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		addrs = append(addrs, string(kv.Value))
	}
	sort.Strings(addrs)
	return addrs, nil
}

// Resolver tracks the instances of one service and hands out a base URL.
type Resolver struct {
	sd          *ServiceDiscovery
	serviceName string

	mu    sync.RWMutex
	addrs []string
}

// NewResolver creates a resolver for serviceName. Call Refresh or Watch to fill it.
func (s *ServiceDiscovery) NewResolver(serviceName string) *Resolver {
	return &Resolver{sd: s, serviceName: serviceName}
}

// Refresh reloads the instance list.
func (r *Resolver) Refresh(ctx context.Context) error {
	addrs, err := r.sd.Discover(ctx, r.serviceName)
	if err != nil {
		return err
	}
	r.set(addrs)
	return nil
}

// Watch refreshes the instance list on every change under the service prefix until ctx ends.
func (r *Resolver) Watch(ctx context.Context) {
	wch := r.sd.cli.Watch(ctx, servicePrefix(r.serviceName), clientv3.WithPrefix())
	for resp := range wch {
		if err := resp.Err(); err != nil {
			r.sd.log.Warn(fmt.Sprintf("etcd watch on %s: %v", r.serviceName, err))
			continue
		}
		if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			r.sd.log.Warn(fmt.Sprintf("Refreshing %s instances failed: %v", r.serviceName, err))
		}
	}
}

func (r *Resolver) set(addrs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addrs = addrs
}

// URL returns an http base URL of the first known instance.
func (r *Resolver) URL() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return baseURL(r.addrs)
}

func baseURL(addrs []string) (string, error) {
	if len(addrs) == 0 {
		return "", ErrNoInstances
	}
	addr := addrs[0]
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return addr, nil
}

// Close closes the etcd client.
func (s *ServiceDiscovery) Close() error {
	return s.cli.Close()
}
