// Package pool holds the ordered list of configured daemons and their connections.
//
// Member order is the configured order and is what sharding indexes into. After Connect the
// pool is read-only and safe to share between tasks.
package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/l3uddz/delugetools/client"
	"github.com/l3uddz/delugetools/dispatch"
)

const maxConnectWorkers = 10

var ErrNotConnected = errors.New("daemon not connected")

type Factory func(ep client.Endpoint) (client.Interface, error)

type Member struct {
	Index    int
	Endpoint client.Endpoint
	Client   client.Interface
	// Err is set when the daemon could not be reached.
	Err error
}

func (m *Member) Ok() bool {
	return m.Err == nil && m.Client != nil
}

func (m *Member) String() string {
	return m.Endpoint.String()
}

type Option func(*Pool)

func WithRetries(attempts uint) Option {
	return func(p *Pool) {
		p.attempts = attempts
	}
}

func WithRetryDelay(delay time.Duration) Option {
	return func(p *Pool) {
		p.delay = delay
	}
}

type Pool struct {
	members  []*Member
	log      *logrus.Entry
	attempts uint
	delay    time.Duration
}

func New(endpoints []client.Endpoint, factory Factory, log *logrus.Entry, opts ...Option) (*Pool, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("no daemons configured")
	}

	p := &Pool{
		members:  make([]*Member, 0, len(endpoints)),
		log:      log,
		attempts: 1,
		delay:    time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.attempts < 1 {
		p.attempts = 1
	}

	for i, ep := range endpoints {
		m := &Member{Index: i, Endpoint: ep}
		if c, err := factory(ep); err != nil {
			m.Err = fmt.Errorf("init client: %w", err)
		} else {
			m.Client = c
		}
		p.members = append(p.members, m)
	}

	return p, nil
}

// Connect connects every member concurrently and returns how many succeeded.
// A member that fails keeps its error and the rest of the pool is unaffected.
func (p *Pool) Connect(ctx context.Context) (int, error) {
	keys := make([]string, len(p.members))
	for i, m := range p.members {
		keys[i] = m.String()
	}

	workers := len(p.members)
	if workers > maxConnectWorkers {
		workers = maxConnectWorkers
	}

	outcomes, err := dispatch.Run(ctx, "connect", workers, p.log, keys,
		func(ctx context.Context, i int) (struct{}, error) {
			return struct{}{}, p.connect(ctx, p.members[i])
		})
	if err != nil {
		return 0, err
	}

	connected := 0
	for i, o := range outcomes {
		m := p.members[i]
		if o.Err != nil {
			if m.Err == nil {
				m.Err = o.Err
			}
			p.log.WithError(m.Err).Errorf("Failed connecting to %s", m)
			continue
		}

		p.log.Debugf("Connected to %s", m)
		connected++
	}

	return connected, nil
}

func (p *Pool) Size() int {
	return len(p.members)
}

func (p *Pool) Member(i int) *Member {
	return p.members[i]
}

// Members returns every member in configured order, connected or not.
func (p *Pool) Members() []*Member {
	return p.members
}

func (p *Pool) Close() {
	for _, m := range p.members {
		if m.Client == nil {
			continue
		}
		if err := m.Client.Close(); err != nil {
			p.log.WithError(err).Warnf("Failed closing connection to %s", m)
		}
	}
}

func (p *Pool) connect(ctx context.Context, m *Member) error {
	if m.Err != nil {
		return m.Err
	}

	return retry.Do(
		func() error {
			return m.Client.Connect(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(p.attempts),
		retry.Delay(p.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.log.WithError(err).Debugf("Retrying connection to %s (attempt: %d)", m, n+1)
		}),
	)
}
