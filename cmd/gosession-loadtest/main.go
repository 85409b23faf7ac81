// Command gosession-loadtest hammers a fleet of goSession clients against an
// in-process provider backed by shared credential storage and reports latency
// percentiles plus aggregated client metrics.
//
// Configuration is taken from the environment:
//
//	LOADTEST_CLIENTS           number of clients to seed (default 64)
//	LOADTEST_CONCURRENCY       concurrent workers per phase (default 256)
//	LOADTEST_OPS               operations per phase (default 200000)
//	LOADTEST_REDIS_ADDR        redis address; empty runs miniredis in-process
//	LOADTEST_KEY_PREFIX        credential key prefix (default "gosession")
//	LOADTEST_PROVIDER_LATENCY  simulated provider latency, e.g. 2ms (default 0)
//	LOADTEST_FAIL_EVERY        every Nth session fetch fails; 0 disables
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credstore"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"github.com/MrEthical07/goSession/token"

	"github.com/alicebob/miniredis/v2"
	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

type config struct {
	Clients         int           `env:"LOADTEST_CLIENTS" envDefault:"64"`
	Concurrency     int           `env:"LOADTEST_CONCURRENCY" envDefault:"256"`
	Ops             int           `env:"LOADTEST_OPS" envDefault:"200000"`
	RedisAddr       string        `env:"LOADTEST_REDIS_ADDR"`
	KeyPrefix       string        `env:"LOADTEST_KEY_PREFIX" envDefault:"gosession"`
	ProviderLatency time.Duration `env:"LOADTEST_PROVIDER_LATENCY" envDefault:"0"`
	FailEvery       int           `env:"LOADTEST_FAIL_EVERY" envDefault:"0"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "parse env: %v\n", err)
		os.Exit(2)
	}
	if cfg.Clients <= 0 || cfg.Concurrency <= 0 || cfg.Ops <= 0 {
		fmt.Fprintln(os.Stderr, "LOADTEST_CLIENTS, LOADTEST_CONCURRENCY, and LOADTEST_OPS must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := cfg.RedisAddr
	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer rdb.Close()

	store, err := credstore.NewRedisStore(credstore.RedisConfig{Client: rdb, Prefix: cfg.KeyPrefix})
	if err != nil {
		fmt.Fprintf(os.Stderr, "store init: %v\n", err)
		os.Exit(1)
	}

	clients := make([]*goSession.Client, cfg.Clients)
	fmt.Printf("seeding %d signed-in clients...\n", cfg.Clients)
	startSeed := time.Now()
	for i := 0; i < cfg.Clients; i++ {
		client, err := buildClient(ctx, store, cfg, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		clients[i] = client
	}
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))
	reportTokenLifetime(ctx, store)

	checkStats := runCheckPhase(ctx, clients, cfg.Ops, cfg.Concurrency)
	churnStats := runChurnPhase(ctx, clients, cfg.Ops, cfg.Concurrency)

	fmt.Println("---- results ----")
	printStats("check", checkStats)
	printStats("churn", churnStats)
	printAggregateMetrics(clients)
}

func buildClient(ctx context.Context, store credstore.Store, cfg config, i int) (*goSession.Client, error) {
	provider, err := newBenchProvider(store, cfg, i)
	if err != nil {
		return nil, err
	}

	clientCfg := goSession.DefaultConfig()
	clientCfg.Metrics.EnableLatencyHistograms = true

	client, err := goSession.New().
		WithConfig(clientCfg).
		WithProvider(provider).
		Build()
	if err != nil {
		return nil, err
	}
	if _, err := client.SignIn(ctx, provider.username, benchPassword); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// reportTokenLifetime decodes the first seeded ID token and prints how long
// the run can last before expiry starts skewing the failure counts.
func reportTokenLifetime(ctx context.Context, store credstore.Store) {
	raw, err := store.Get(ctx, "u-0:tokens")
	if err != nil {
		return
	}
	claims, err := token.Decode(raw)
	if err != nil || claims.ExpiresAt.IsZero() {
		return
	}
	fmt.Printf("seed tokens: sub=%s expires in %s\n",
		claims.Subject, time.Until(claims.ExpiresAt).Round(time.Minute))
}

/*
==========================================
PHASES
==========================================
*/

func runCheckPhase(ctx context.Context, clients []*goSession.Client, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(clients))
				t0 := time.Now()
				err := clients[idx].CheckStatus(ctx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runChurnPhase mixes status checks with sign-out/sign-in rotations. Rotations
// racing checks on the same client are the point: superseded round-trips must
// be discarded, which the aggregate metrics report at the end.
func runChurnPhase(ctx context.Context, clients []*goSession.Client, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(clients))
				client := clients[idx]

				var err error
				t0 := time.Now()
				if i%8 == 0 {
					if err = client.SignOut(ctx); err == nil {
						_, err = client.SignIn(ctx, benchUsername(idx), benchPassword)
					}
				} else {
					err = client.CheckStatus(ctx)
				}
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

/*
==========================================
STATS
==========================================
*/

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// printAggregateMetrics sums every client's counters and prints them under
// their exposition names, plus the cumulative check-latency buckets.
func printAggregateMetrics(clients []*goSession.Client) {
	counters := make(map[goSession.MetricID]uint64)
	var buckets [8]uint64
	var dropped uint64
	for _, c := range clients {
		snap := c.MetricsSnapshot()
		for id, v := range snap.Counters {
			counters[id] += v
		}
		raw := internaldefs.NormalizeBuckets(snap.Histograms[goSession.MetricCheckLatency])
		for i := range buckets {
			buckets[i] += raw[i]
		}
		dropped += c.AuthEventsDropped()
	}

	fmt.Println("---- aggregate metrics ----")
	for _, def := range internaldefs.CounterDefs {
		fmt.Printf("%s %d\n", def.Name, counters[def.ID])
	}
	fmt.Printf("gosession_auth_events_dropped_total %d\n", dropped)

	cumulative := internaldefs.CumulativeBuckets(buckets)
	for _, def := range internaldefs.HistogramDefs {
		for j, le := range internaldefs.HistogramBounds {
			fmt.Printf("%s_bucket{le=%q} %d\n", def.Name, le, cumulative[j])
		}
	}
}

/*
==========================================
BENCH PROVIDER
==========================================
*/

const benchPassword = "correct-horse"

func benchUsername(i int) string {
	return fmt.Sprintf("user-%d@example.com", i)
}

// benchProvider persists one user's tokens in the shared store, simulating a
// provider SDK in front of browser storage. Latency and failure injection are
// applied on the session fetch, once per status round-trip.
type benchProvider struct {
	store     credstore.Store
	key       string
	userID    string
	username  string
	idToken   string
	latency   time.Duration
	failEvery int64
	fetches   atomic.Int64
}

func newBenchProvider(store credstore.Store, cfg config, i int) (*benchProvider, error) {
	username := benchUsername(i)
	userID := fmt.Sprintf("u-%d", i)
	idToken, err := mintIDToken(userID, username)
	if err != nil {
		return nil, err
	}
	return &benchProvider{
		store:     store,
		key:       userID + ":tokens",
		userID:    userID,
		username:  username,
		idToken:   idToken,
		latency:   cfg.ProviderLatency,
		failEvery: int64(cfg.FailEvery),
	}, nil
}

func (p *benchProvider) SignIn(ctx context.Context, username, password string) (goSession.SignInResult, error) {
	if username != p.username || password != benchPassword {
		return goSession.SignInResult{}, &goSession.ProviderError{Code: "NotAuthorizedException"}
	}
	if err := p.store.Set(ctx, p.key, p.idToken); err != nil {
		return goSession.SignInResult{}, err
	}
	return goSession.SignInResult{Done: true}, nil
}

func (p *benchProvider) SignOut(ctx context.Context) error {
	return p.store.Delete(ctx, p.key)
}

func (p *benchProvider) CurrentUser(ctx context.Context) (goSession.ProviderUser, error) {
	return goSession.ProviderUser{ID: p.userID, Username: p.username}, nil
}

func (p *benchProvider) FetchSession(ctx context.Context) (goSession.SessionTokens, error) {
	n := p.fetches.Add(1)
	if p.latency > 0 {
		time.Sleep(p.latency)
	}
	if p.failEvery > 0 && n%p.failEvery == 0 {
		return goSession.SessionTokens{}, &goSession.ProviderError{Code: "ServiceUnavailableException"}
	}
	idToken, err := p.store.Get(ctx, p.key)
	if err != nil {
		return goSession.SessionTokens{}, &goSession.ProviderError{Code: "UserUnAuthenticatedException", Err: err}
	}
	return goSession.SessionTokens{
		IDToken:   idToken,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func mintIDToken(sub, email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("loadtest-secret"))
}
