package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KanavDutta/cmdcooldown/core"
	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
)

// registryProvider serves configs straight from a registry
type registryProvider struct {
	reg *cooldown.Registry
	err error
}

func (p *registryProvider) Config(_ context.Context, guildID string) (*cooldown.GuildConfig, error) {
	if p.err != nil {
		return nil, p.err
	}
	guild, ok := p.reg.Get(guildID)
	if !ok {
		return nil, cooldown.ErrConfigNotFound
	}
	return guild, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []string
	notices  []bool
}

func (r *fakeRecorder) RecordEvaluation(_, _, _ string, res core.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, res.Outcome())
}

func (r *fakeRecorder) RecordNotice(sent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, sent)
}

func newTestProvider(t *testing.T) *registryProvider {
	t.Helper()
	reg := cooldown.NewRegistry()
	_, err := reg.CreateConfig("g1", cooldown.ConfigSpec{
		{Name: "ping", Record: cooldown.Limit(2, 10)},
		{Name: "off", Record: cooldown.Disabled()},
		{Name: "fun", Record: cooldown.GluedGroup(1, 60, "cat", "dog")},
	}, nil)
	require.NoError(t, err)
	return &registryProvider{reg: reg}
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestGate_Check(t *testing.T) {
	gate := NewGate(newTestProvider(t), nil, WithClock(fixedClock(0)))
	ctx := context.Background()
	inv := Invocation{GuildID: "g1", Command: "ping", UserID: "u1"}

	d, err := gate.Check(ctx, inv)
	require.NoError(t, err)
	assert.True(t, d.Configured)
	assert.True(t, d.Allowed())
	assert.Equal(t, 1, d.UsesLeft)
	assert.Equal(t, 2, d.Limit)
	assert.Equal(t, 10, d.Window)

	_, err = gate.Check(ctx, inv)
	require.NoError(t, err)

	d, err = gate.Check(ctx, inv)
	require.NoError(t, err)
	assert.False(t, d.Allowed())
	assert.Equal(t, int64(10), d.Result.SecondsLeft)
	assert.ErrorIs(t, d.Err(), ErrOnCooldown)

	// explicit timestamp wins over the clock
	inv.At = time.UnixMilli(11_000)
	d, err = gate.Check(ctx, inv)
	require.NoError(t, err)
	assert.True(t, d.Allowed())
	assert.Equal(t, 1, d.UsesLeft)
}

func TestGate_Unconfigured(t *testing.T) {
	gate := NewGate(newTestProvider(t), nil)
	ctx := context.Background()

	d, err := gate.Check(ctx, Invocation{GuildID: "g1", Command: "nope", UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, d.Configured)
	assert.True(t, d.Allowed())
	assert.NoError(t, d.Err())

	d, err = gate.Check(ctx, Invocation{GuildID: "other", Command: "ping", UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, d.Configured)
}

func TestGate_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	gate := NewGate(&registryProvider{err: boom}, nil)

	_, err := gate.Check(context.Background(), Invocation{GuildID: "g1", Command: "ping"})
	assert.ErrorIs(t, err, boom)

	called := false
	err = gate.Wrap(func(context.Context, Invocation) error {
		called = true
		return nil
	})(context.Background(), Invocation{GuildID: "g1", Command: "ping"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestGate_Inspect(t *testing.T) {
	provider := newTestProvider(t)
	gate := NewGate(provider, nil, WithClock(fixedClock(0)))
	ctx := context.Background()
	inv := Invocation{GuildID: "g1", Command: "ping", UserID: "u1"}

	for i := 0; i < 3; i++ {
		d, err := gate.Inspect(ctx, inv)
		require.NoError(t, err)
		assert.True(t, d.Allowed())
	}

	guild, _ := provider.reg.Get("g1")
	state, _ := guild.UserState("ping", "u1")
	assert.Equal(t, 2, state.UsesLeft)
}

func TestGate_WrapSuppressesRepeatNotices(t *testing.T) {
	rec := &fakeRecorder{}
	var notified []cooldown.Result
	notifier := NotifierFunc(func(_ context.Context, _ Invocation, res cooldown.Result) error {
		notified = append(notified, res)
		return nil
	})

	gate := NewGate(newTestProvider(t), nil,
		WithClock(fixedClock(0)),
		WithNotifier(notifier),
		WithRecorder(rec),
	)

	runs := 0
	handler := gate.Wrap(func(context.Context, Invocation) error {
		runs++
		return nil
	})

	ctx := context.Background()
	inv := Invocation{GuildID: "g1", Command: "cat", UserID: "u1"}

	require.NoError(t, handler(ctx, inv))
	assert.ErrorIs(t, handler(ctx, inv), ErrOnCooldown)
	assert.ErrorIs(t, handler(ctx, Invocation{GuildID: "g1", Command: "dog", UserID: "u1"}), ErrOnCooldown)

	assert.Equal(t, 1, runs)
	require.Len(t, notified, 1, "second denial should be silent")
	assert.Equal(t, int64(60), notified[0].SecondsLeft)
	assert.Equal(t, []bool{true, false}, rec.notices)
	assert.Equal(t, []string{core.OutcomeAllowed, core.OutcomeCooldown, core.OutcomeCooldown}, rec.outcomes)
}

func TestGate_WrapBlocked(t *testing.T) {
	gate := NewGate(newTestProvider(t), nil)
	handler := gate.Wrap(func(context.Context, Invocation) error {
		t.Fatal("disabled command must not run")
		return nil
	})

	err := handler(context.Background(), Invocation{GuildID: "g1", Command: "off", UserID: "u1"})
	assert.ErrorIs(t, err, ErrCommandBlocked)
}

func TestGate_WrapPassesThroughHandlerError(t *testing.T) {
	gate := NewGate(newTestProvider(t), nil)
	want := errors.New("handler failed")

	err := gate.Wrap(func(context.Context, Invocation) error {
		return want
	})(context.Background(), Invocation{GuildID: "g1", Command: "unlimited", UserID: "u1"})
	assert.ErrorIs(t, err, want)
}

func TestGate_Append(t *testing.T) {
	provider := newTestProvider(t)
	gate := NewGate(provider, nil, WithClock(fixedClock(0)))
	ctx := context.Background()

	require.NoError(t, gate.AppendUses(ctx, "g1", "ping", "u1", 3))
	require.NoError(t, gate.AppendSeconds(ctx, "g1", "ping", "u1", 20))

	guild, _ := provider.reg.Get("g1")
	state, ok := guild.UserState("ping", "u1")
	require.True(t, ok)
	assert.Equal(t, 5, state.UsesLeft)
	assert.Equal(t, int64(20_000), state.LastTimestamp)

	err := gate.AppendUses(ctx, "missing", "ping", "u1", 1)
	assert.ErrorIs(t, err, cooldown.ErrConfigNotFound)

	err = gate.AppendSeconds(ctx, "g1", "nope", "u1", 5)
	assert.ErrorIs(t, err, ErrNotLimited)
}

func TestGate_ConcurrentChecksRespectAllowance(t *testing.T) {
	reg := cooldown.NewRegistry()
	_, err := reg.CreateConfig("g1", cooldown.ConfigSpec{
		{Name: "ping", Record: cooldown.Limit(50, 60)},
	}, nil)
	require.NoError(t, err)

	gate := NewGate(&registryProvider{reg: reg}, nil, WithClock(fixedClock(0)))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := gate.Check(context.Background(), Invocation{GuildID: "g1", Command: "ping", UserID: "u1"})
			if err == nil && d.Allowed() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}
