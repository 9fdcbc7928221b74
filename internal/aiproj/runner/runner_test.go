package runner

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/longkey1/aiproj/internal/aiproj"
	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/longkey1/aiproj/internal/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCredential struct{}

func (staticCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "tok", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

// fakeOp returns a fixed outcome and counts its calls
type fakeOp struct {
	name   string
	output string
	err    error
	panic  bool
	delay  time.Duration
	calls  atomic.Int32
}

func (o *fakeOp) Name() string  { return o.name }
func (o *fakeOp) Title() string { return "Running " + o.name }

func (o *fakeOp) Run(ctx context.Context, cfg config.Configuration, client *foundry.Client) (string, error) {
	o.calls.Add(1)
	if o.delay > 0 {
		time.Sleep(o.delay)
	}
	if o.panic {
		panic("boom")
	}
	return o.output, o.err
}

func testSet() *config.Set {
	return config.ResolveAll(config.MapSource{
		"PROJECT_ENDPOINT_TEST": "https://x",
		"CHAT_MODEL_TEST":       "gpt-4",
	}, []string{"TEST", "DEV"})
}

// countingFactory records every client it builds
func countingFactory(built *[]*foundry.Client) Factory {
	inner := NewClientFactory(staticCredential{})
	return func(cfg config.Configuration) (*foundry.Client, error) {
		c, err := inner(cfg)
		if err == nil {
			*built = append(*built, c)
		}
		return c, err
	}
}

func TestRun_SelectionFailure(t *testing.T) {
	var built []*foundry.Client
	var out bytes.Buffer
	op := &fakeOp{name: "chat"}

	report := New(countingFactory(&built), WithOutput(&out)).Run(context.Background(), testSet(), "DEV", []Operation{op})

	var selErr *aiproj.SelectionError
	require.True(t, errors.As(report.Err, &selErr))
	assert.Equal(t, "DEV", selErr.Config)
	assert.Equal(t, []string{"TEST"}, selErr.Available)
	assert.Equal(t, StateIdle, report.State)
	assert.Empty(t, report.Results)
	assert.Empty(t, built, "no client must be constructed")
	assert.Zero(t, op.calls.Load())
	assert.Contains(t, out.String(), "Selected configuration 'DEV' is not available")
}

func TestRun_IsolatesFailures(t *testing.T) {
	var built []*foundry.Client
	var out bytes.Buffer
	ops := []Operation{
		&fakeOp{name: "chat", output: "Response: hi"},
		&fakeOp{name: "agent", err: errors.New("agent not found")},
		&fakeOp{name: "upload", err: Skip("No connection name configured for TEST, skipping dataset upload")},
		&fakeOp{name: "explode", panic: true},
		&fakeOp{name: "history", output: "[t] user: q"},
	}

	report := New(countingFactory(&built), WithOutput(&out)).Run(context.Background(), testSet(), "TEST", ops)

	require.NoError(t, report.Err)
	assert.Equal(t, StateOperationsComplete, report.State)
	require.Len(t, report.Results, 5)

	statuses := make([]Status, 0, len(report.Results))
	for _, res := range report.Results {
		statuses = append(statuses, res.Status)
		assert.Equal(t, "TEST", res.Config)
	}
	assert.Equal(t, []Status{StatusSucceeded, StatusFailed, StatusSkipped, StatusFailed, StatusSucceeded}, statuses)

	var opErr *aiproj.OperationError
	require.True(t, errors.As(report.Results[1].Err, &opErr))
	assert.Equal(t, "agent", opErr.Operation)
	assert.EqualError(t, opErr.Err, "agent not found")
	assert.Contains(t, report.Results[3].Err.Error(), "panic: boom")
	assert.Len(t, report.Failed(), 2)

	for _, op := range ops {
		assert.Equal(t, int32(1), op.(*fakeOp).calls.Load())
	}

	text := out.String()
	assert.Contains(t, text, "=== Running chat with TEST ===")
	assert.Contains(t, text, "Response: hi")
	assert.Contains(t, text, "Error with TEST (agent): agent not found")
	assert.Contains(t, text, "skipping dataset upload")

	// One client, closed once the operations finished
	require.Len(t, built, 1)
	_, err := built[0].CreateThread(context.Background())
	assert.ErrorIs(t, err, foundry.ErrClosed)
}

func TestRun_ParallelKeepsOrder(t *testing.T) {
	var built []*foundry.Client
	ops := []Operation{
		&fakeOp{name: "slow", output: "1", delay: 30 * time.Millisecond},
		&fakeOp{name: "fast", output: "2"},
		&fakeOp{name: "fails", err: errors.New("nope")},
	}

	report := New(countingFactory(&built), WithParallel(true)).Run(context.Background(), testSet(), "TEST", ops)

	require.Len(t, report.Results, 3)
	assert.Equal(t, "slow", report.Results[0].Operation)
	assert.Equal(t, "1", report.Results[0].Output)
	assert.Equal(t, "fast", report.Results[1].Operation)
	assert.Equal(t, StatusFailed, report.Results[2].Status)
	assert.Len(t, built, 1)
}

func TestRun_FactoryError(t *testing.T) {
	factory := func(config.Configuration) (*foundry.Client, error) {
		return nil, errors.New("no credential available")
	}
	op := &fakeOp{name: "chat"}

	report := New(factory).Run(context.Background(), testSet(), "TEST", []Operation{op})

	require.Error(t, report.Err)
	assert.Equal(t, StateConfigSelected, report.State)
	assert.Zero(t, op.calls.Load())
}

func TestNewClientFactory(t *testing.T) {
	cfg := config.Configuration{Name: "TEST", Endpoint: "https://x/api/projects/p", ChatModel: "gpt-4", APIVersion: "2024-12-01-preview"}

	client, err := NewClientFactory(staticCredential{})(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://x/api/projects/p", client.Endpoint())
	assert.Equal(t, "2024-12-01-preview", client.APIVersion())

	_, err = NewClientFactory(nil)(cfg)
	assert.Error(t, err)
}

func TestParseOperationNames(t *testing.T) {
	got, err := ParseOperationNames([]string{"chat, History", "upload"})
	require.NoError(t, err)
	assert.Equal(t, []string{"chat", "history", "upload"}, got)

	got, err = ParseOperationNames(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseOperationNames([]string{"deploy"})
	assert.Error(t, err)
}
