package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/l3uddz/delugetools/client"
	"github.com/l3uddz/delugetools/config"
	"github.com/l3uddz/delugetools/logger"
	"github.com/l3uddz/delugetools/pool"
)

var errNoServers = errors.New("no servers given, use --server or the servers config list")

type renderer interface {
	Render(w io.Writer) error
	Err() error
}

// getServers prefers the --server flags and falls back to the configured list.
func getServers(flagServers []string, cfg *config.Configuration) ([]string, error) {
	if len(flagServers) > 0 {
		return flagServers, nil
	}
	if cfg != nil && len(cfg.Servers) > 0 {
		return cfg.Servers, nil
	}
	return nil, errNoServers
}

func getEndpoints(flagServers []string, cfg *config.Configuration) ([]client.Endpoint, error) {
	servers, err := getServers(flagServers, cfg)
	if err != nil {
		return nil, err
	}

	endpoints, err := client.ParseEndpoints(servers)
	if err != nil {
		return nil, fmt.Errorf("parse servers: %w", err)
	}

	return endpoints, nil
}

func getTimeout(cfg *config.Configuration) time.Duration {
	if flagTimeout > 0 {
		return flagTimeout
	}
	return cfg.RPCTimeout
}

func delugeFactory(cfg *config.Configuration) pool.Factory {
	settings := client.Settings{Timeout: getTimeout(cfg)}
	return func(ep client.Endpoint) (client.Interface, error) {
		return client.NewClient("deluge", ep, settings, logger.GetLogger("deluge"))
	}
}

// connectPool builds a pool over the configured daemons and connects it.
// Members that fail to connect stay in the pool with their error set.
func connectPool(ctx context.Context, log *logrus.Entry, flagServers []string, cfg *config.Configuration,
	factory pool.Factory) (*pool.Pool, error) {
	endpoints, err := getEndpoints(flagServers, cfg)
	if err != nil {
		return nil, err
	}

	p, err := pool.New(endpoints, factory, log, pool.WithRetries(cfg.ConnectRetries),
		pool.WithRetryDelay(cfg.ConnectRetryDelay))
	if err != nil {
		return nil, err
	}

	connected, err := p.Connect(ctx)
	if err != nil {
		p.Close()
		return nil, err
	}

	log.Infof("Connected to %d/%d daemons", connected, p.Size())
	return p, nil
}

func serverNames(p *pool.Pool) []string {
	names := make([]string, 0, p.Size())
	for _, m := range p.Members() {
		names = append(names, m.String())
	}
	return names
}

// finish prints the report and exits non-zero when anything in it failed.
func finish(r renderer) {
	if err := r.Render(os.Stdout); err != nil {
		log.WithError(err).Error("Failed rendering report")
	}

	if err := r.Err(); err != nil {
		log.WithError(err).Error("Completed with failures")
		os.Exit(1)
	}
}
