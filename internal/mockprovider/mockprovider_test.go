package mockprovider_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/frontier/internal/mockprovider"
	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/provider"
	"github.com/seantiz/frontier/internal/scenario"
)

func newClient(t *testing.T, family string, opts mockprovider.Options, key string) (*provider.Client, *mockprovider.Server) {
	t.Helper()
	mock := mockprovider.New(opts)
	ts := httptest.NewServer(mock)
	t.Cleanup(ts.Close)

	reg := provider.NewDefaultRegistry()
	reg.RegisterProvider(provider.Provider{Name: "mock", Family: family, BaseURL: ts.URL, APIKey: key})
	return provider.NewClient(reg, nil, 5*time.Second), mock
}

func TestAnswersBothFamilies(t *testing.T) {
	for _, family := range []string{provider.FamilyOpenAICompatible, provider.FamilyAnthropic} {
		t.Run(family, func(t *testing.T) {
			c, mock := newClient(t, family, mockprovider.Options{
				APIKey: "secret",
				Answer: func(prompt string) string { return "echo: " + prompt },
			}, "secret")

			resp, err := c.Complete(context.Background(), model.Model{ID: "m", Provider: "mock", Name: "m-1"}, "hello")
			require.NoError(t, err)
			assert.Equal(t, "echo: hello", resp.Answer)
			assert.Equal(t, 2, resp.Usage.InputTokens)
			assert.Positive(t, resp.Usage.OutputTokens)
			assert.Equal(t, 1, mock.Requests())
		})
	}
}

func TestRejectsBadKey(t *testing.T) {
	c, _ := newClient(t, provider.FamilyAnthropic, mockprovider.Options{APIKey: "secret"}, "wrong")

	_, err := c.Complete(context.Background(), model.Model{ID: "m", Provider: "mock", Name: "m-1"}, "hi")
	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, provider.ClassTerminal, perr.Class)
}

func TestRateLimitsEveryNth(t *testing.T) {
	c, mock := newClient(t, provider.FamilyOpenAICompatible, mockprovider.Options{
		RateLimitEvery: 2,
		RetryAfter:     7 * time.Second,
	}, "k")
	m := model.Model{ID: "m", Provider: "mock", Name: "m-1"}

	_, err := c.Complete(context.Background(), m, "one")
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), m, "two")
	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, provider.ClassRateLimited, perr.Class)
	assert.Equal(t, 7*time.Second, perr.RetryAfter)
	assert.Equal(t, 1, mock.RateLimited())
}

func TestOracle(t *testing.T) {
	set, err := scenario.NewLoader(scenario.GeneratedSource{}).Load(11, scenario.SuiteSize)
	require.NoError(t, err)

	perfect := mockprovider.Oracle(set, 1)
	never := mockprovider.Oracle(set, 0)
	partial := mockprovider.Oracle(set, 0.5)

	right := 0
	for _, sc := range set.Scenarios {
		assert.True(t, scenario.Score(sc, perfect(sc.Prompt)), "scenario %s", sc.ID)
		assert.False(t, scenario.Score(sc, never(sc.Prompt)), "scenario %s", sc.ID)
		if scenario.Score(sc, partial(sc.Prompt)) {
			right++
		}
	}
	assert.Greater(t, right, 0)
	assert.Less(t, right, set.Len())
	assert.Equal(t, "I don't know", perfect("not a scenario"))
}
