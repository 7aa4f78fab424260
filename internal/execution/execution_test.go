package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"uiflow/internal/browser"
	"uiflow/internal/browser/browsertest"
	"uiflow/internal/config"
	"uiflow/internal/discovery"
	"uiflow/internal/domain"
	"uiflow/internal/parser"
	"uiflow/internal/scenarios"
	"uiflow/internal/verifier"
)

const base = "http://app.test"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	cfg.BaseURL = base
	cfg.StepTimeout = 200 * time.Millisecond
	cfg.SettleDelay = 0
	cfg.DialogWait = 0
	cfg.ScenarioTimeout = 5 * time.Second
	return cfg
}

// fakeFactory hands out a fresh fake session per scenario with /home served
type fakeFactory struct {
	mu      sync.Mutex
	drivers []*browsertest.Driver
	err     error
}

func (f *fakeFactory) open(ctx context.Context) (browser.Driver, error) {
	if f.err != nil {
		return nil, f.err
	}
	d := browsertest.New()
	d.AddPage(base + "/home")
	f.mu.Lock()
	f.drivers = append(f.drivers, d)
	f.mu.Unlock()
	return d, nil
}

func gotoHome(ctx context.Context, v *verifier.Verifier, env *scenarios.Env) error {
	if err := v.Navigate(ctx, "/home"); err != nil {
		return err
	}
	return v.AssertOutcome(ctx, verifier.URLContains("/home"))
}

func gotoNowhere(ctx context.Context, v *verifier.Verifier, env *scenarios.Env) error {
	if err := v.Navigate(ctx, "/home"); err != nil {
		return err
	}
	return v.AssertOutcome(ctx, verifier.URLContains("/nowhere"))
}

func testRegistry(t *testing.T) *scenarios.Registry {
	t.Helper()
	r := scenarios.NewRegistry()
	defs := []scenarios.Definition{
		{Scenario: domain.Scenario{Name: "provider", ProvidesIdentity: true}, Run: func(ctx context.Context, v *verifier.Verifier, env *scenarios.Env) error {
			if err := gotoHome(ctx, v, env); err != nil {
				return err
			}
			env.Provided = &domain.Identity{Email: env.NewEmail(), Password: env.Password, Source: "registration"}
			return nil
		}},
		{Scenario: domain.Scenario{Name: "broken-provider", ProvidesIdentity: true}, Run: gotoNowhere},
		{Scenario: domain.Scenario{Name: "consumer", NeedsIdentity: true}, Run: func(ctx context.Context, v *verifier.Verifier, env *scenarios.Env) error {
			if env.Identity().IsZero() {
				return errors.New("consumer ran without identity")
			}
			return gotoHome(ctx, v, env)
		}},
		{Scenario: domain.Scenario{Name: "pass"}, Run: gotoHome},
		{Scenario: domain.Scenario{Name: "fail"}, Run: gotoNowhere},
	}
	for i := 0; i < 6; i++ {
		defs = append(defs, scenarios.Definition{Scenario: domain.Scenario{Name: fmt.Sprintf("pass-%d", i)}, Run: gotoHome})
	}
	for _, d := range defs {
		require.NoError(t, r.Register(d))
	}
	return r
}

func scenario(t *testing.T, r *scenarios.Registry, name string) domain.Scenario {
	t.Helper()
	def, ok := r.Get(name)
	require.True(t, ok, name)
	return def.Scenario
}

type countingProgress struct {
	mu        sync.Mutex
	updates   int
	completed int
	passed    int
	failed    int
	finished  int
}

func (p *countingProgress) Update(completed, passed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates++
	p.completed, p.passed, p.failed = completed, passed, failed
}

func (p *countingProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished++
}

func TestRoundRobinScheduler(t *testing.T) {
	s := NewRoundRobinScheduler()

	got := s.Schedule([]domain.Scenario{{Name: "a"}, {Name: "b"}, {Name: "c"}}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, []domain.Scenario{{Name: "a"}, {Name: "c"}}, got[0])
	assert.Equal(t, []domain.Scenario{{Name: "b"}}, got[1])

	got = s.Schedule([]domain.Scenario{{Name: "a"}}, 0)
	require.Len(t, got, 1)
}

func TestRoundRobinScheduler_Property(t *testing.T) {
	s := NewRoundRobinScheduler()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "scenarios")
		workers := rapid.IntRange(1, 8).Draw(t, "workers")
		in := make([]domain.Scenario, n)
		for i := range in {
			in[i] = domain.Scenario{Name: fmt.Sprintf("s%d", i)}
		}

		dist := s.Schedule(in, workers)
		if len(dist) != workers {
			t.Fatalf("expected %d batches, got %d", workers, len(dist))
		}
		total, min, max := 0, n, 0
		seen := make(map[string]bool)
		for _, batch := range dist {
			total += len(batch)
			if len(batch) < min {
				min = len(batch)
			}
			if len(batch) > max {
				max = len(batch)
			}
			for _, sc := range batch {
				if seen[sc.Name] {
					t.Fatalf("%s scheduled twice", sc.Name)
				}
				seen[sc.Name] = true
			}
		}
		if total != n {
			t.Fatalf("scheduled %d of %d", total, n)
		}
		if max-min > 1 {
			t.Fatalf("uneven distribution: min %d max %d", min, max)
		}
	})
}

func TestRunner_Pass(t *testing.T) {
	cfg := testConfig(t)
	reg := testRegistry(t)
	f := &fakeFactory{}
	r := NewRunner(cfg, reg, nil).WithDriverFactory(f.open)

	result := r.Run(context.Background(), scenario(t, reg, "pass"), &domain.Fixture{RunID: "run"}, 1)

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.StepsPassed)
	assert.Equal(t, base+"/home", result.FinalURL)
	require.Len(t, f.drivers, 1)
	assert.True(t, f.drivers[0].Closed(), "session torn down")
}

func TestRunner_Failure(t *testing.T) {
	cfg := testConfig(t)
	reg := testRegistry(t)
	f := &fakeFactory{}
	r := NewRunner(cfg, reg, nil).WithDriverFactory(f.open)

	result := r.Run(context.Background(), scenario(t, reg, "fail"), &domain.Fixture{RunID: "run"}, 1)

	assert.False(t, result.Success)
	var se *verifier.StepError
	require.True(t, errors.As(result.Error, &se))
	assert.Equal(t, verifier.KindAssertionMismatch, se.Kind)
	assert.Equal(t, se.Step, result.FailedStep)
	assert.Equal(t, 1, result.StepsPassed)
	assert.NotEmpty(t, result.Artifacts)
	assert.True(t, f.drivers[0].Closed())
}

func TestRunner_ProviderIdentity(t *testing.T) {
	cfg := testConfig(t)
	reg := testRegistry(t)
	r := NewRunner(cfg, reg, nil).WithDriverFactory((&fakeFactory{}).open)

	result := r.Run(context.Background(), scenario(t, reg, "provider"), &domain.Fixture{}, 1)
	require.True(t, result.Success, "%v", result.Error)
	require.NotNil(t, result.Identity)
	assert.Contains(t, result.Identity.Email, "@example.com")
	assert.Equal(t, cfg.Password, result.Identity.Password)
}

func TestRunner_SkipsWithoutIdentity(t *testing.T) {
	cfg := testConfig(t)
	reg := testRegistry(t)
	f := &fakeFactory{}
	r := NewRunner(cfg, reg, nil).WithDriverFactory(f.open)

	result := r.Run(context.Background(), scenario(t, reg, "consumer"), &domain.Fixture{}, 1)
	assert.True(t, result.Skipped)
	assert.ErrorIs(t, result.Error, discovery.ErrNoIdentity)
	assert.Empty(t, f.drivers, "no browser opened for a skipped scenario")
}

func TestRunner_BrowserLaunchFails(t *testing.T) {
	cfg := testConfig(t)
	reg := testRegistry(t)
	r := NewRunner(cfg, reg, nil).WithDriverFactory((&fakeFactory{err: errors.New("chrome not found")}).open)

	result := r.Run(context.Background(), scenario(t, reg, "pass"), &domain.Fixture{}, 1)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error.Error(), "chrome not found")
}

func TestRunner_UnknownScenario(t *testing.T) {
	r := NewRunner(testConfig(t), testRegistry(t), nil)
	result := r.Run(context.Background(), domain.Scenario{Name: "missing"}, &domain.Fixture{}, 1)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error.Error(), "unknown scenario")
}

func newPool(t *testing.T, cfg *config.Config, reg *scenarios.Registry) (*WorkerPool, *countingProgress) {
	t.Helper()
	runner := NewRunner(cfg, reg, nil).WithDriverFactory((&fakeFactory{}).open)
	pool := NewWorkerPool(cfg, runner, NewRoundRobinScheduler(), parser.NewStepParser(), nil)
	progress := &countingProgress{}
	pool.SetProgress(progress)
	return pool, progress
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	cfg := testConfig(t)
	cfg.Processors = 3
	reg := testRegistry(t)
	pool, progress := newPool(t, cfg, reg)

	var list []domain.Scenario
	for _, name := range []string{"pass-0", "fail", "pass-1", "pass-2", "pass-3"} {
		list = append(list, scenario(t, reg, name))
	}

	results, _, err := pool.Execute(context.Background(), list, &domain.Fixture{RunID: "run"})
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, list[i].Name, r.Scenario, "results keep input order")
	}
	assert.False(t, results[1].Success)

	assert.Equal(t, 5, progress.completed)
	assert.Equal(t, 1, progress.failed)
	assert.Equal(t, 9, progress.passed, "4 passing scenarios x 2 steps + 1 step before the failure")
	assert.Equal(t, 1, progress.finished)
}

func TestWorkerPool_FailFast(t *testing.T) {
	cfg := testConfig(t)
	cfg.Processors = 1
	reg := testRegistry(t)
	pool, progress := newPool(t, cfg, reg)

	list := []domain.Scenario{scenario(t, reg, "pass-0"), scenario(t, reg, "fail"), scenario(t, reg, "pass-1")}

	results, _, err := pool.ExecuteWithOptions(context.Background(), list, &domain.Fixture{}, true)
	require.NoError(t, err)
	require.Len(t, results, 2, "nothing runs after the first failure")
	assert.Equal(t, "fail", results[1].Scenario)
	assert.Equal(t, 2, progress.completed)
}

func TestWorkerPool_Empty(t *testing.T) {
	pool, progress := newPool(t, testConfig(t), testRegistry(t))
	results, d, err := pool.Execute(context.Background(), nil, &domain.Fixture{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, d)
	assert.Zero(t, progress.updates)
}

func TestWorkerPool_Cancelled(t *testing.T) {
	pool, _ := newPool(t, testConfig(t), testRegistry(t))
	reg := testRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, _, err := pool.Execute(ctx, []domain.Scenario{scenario(t, reg, "pass")}, &domain.Fixture{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestWorkerPool_ExecutePlan_HandsIdentityToConsumers(t *testing.T) {
	cfg := testConfig(t)
	reg := testRegistry(t)
	pool, progress := newPool(t, cfg, reg)

	plan, err := discovery.NewPlanner(cfg, nil).Plan([]domain.Scenario{
		scenario(t, reg, "consumer"), scenario(t, reg, "provider"),
	})
	require.NoError(t, err)

	fixture := &domain.Fixture{RunID: "run"}
	results, _, err := pool.ExecutePlan(context.Background(), plan, fixture, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "provider", results[0].Scenario)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success, "%v", results[1].Error)
	assert.Equal(t, results[0].Identity.Email, fixture.Identity.Email)
	assert.Equal(t, 2, progress.completed)
}

func TestWorkerPool_ExecutePlan_FailedProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Email = "config@example.com"
	reg := testRegistry(t)
	pool, _ := newPool(t, cfg, reg)

	plan, err := discovery.NewPlanner(cfg, nil).Plan([]domain.Scenario{
		scenario(t, reg, "broken-provider"), scenario(t, reg, "consumer"),
	})
	require.NoError(t, err)

	results, _, err := pool.ExecutePlan(context.Background(), plan, &domain.Fixture{}, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Skipped, "config identity is not used when a provider was selected")
}

func TestWorkerPool_ExecutePlan_FailFastStopsAtProvider(t *testing.T) {
	cfg := testConfig(t)
	reg := testRegistry(t)
	pool, _ := newPool(t, cfg, reg)

	plan, err := discovery.NewPlanner(cfg, nil).Plan([]domain.Scenario{
		scenario(t, reg, "broken-provider"), scenario(t, reg, "pass"),
	})
	require.NoError(t, err)

	results, _, err := pool.ExecutePlan(context.Background(), plan, &domain.Fixture{}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestWorkerPool_ExecutePlan_Fallback(t *testing.T) {
	cfg := testConfig(t)
	cfg.Email = "config@example.com"
	reg := testRegistry(t)
	pool, _ := newPool(t, cfg, reg)

	plan, err := discovery.NewPlanner(cfg, nil).Plan([]domain.Scenario{scenario(t, reg, "consumer")})
	require.NoError(t, err)

	fixture := &domain.Fixture{}
	results, _, err := pool.ExecutePlan(context.Background(), plan, fixture, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success, "%v", results[0].Error)
	assert.Equal(t, "config@example.com", fixture.Identity.Email)
}
