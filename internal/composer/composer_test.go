package composer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGen struct {
	out     string
	err     error
	prompts []string
	panics  bool
}

func (f *fakeGen) Generate(ctx context.Context, prompt string, _ float32) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.panics {
		panic("unexpected response shape")
	}
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("missing deadline")
	}
	return f.out, f.err
}

func TestCompose_DisabledIsDeterministic(t *testing.T) {
	c := New(nil, "", 0)

	first := c.Compose(context.Background(), "Diwali", "Festival of Lights")
	second := c.Compose(context.Background(), "Diwali", "something else entirely")

	assert.Equal(t, first, second)
	assert.Contains(t, first, "Diwali")
	assert.Equal(t, Template("Diwali", "Digital Labour"), first)
}

func TestCompose_FailuresFallBackToTemplate(t *testing.T) {
	cases := map[string]*fakeGen{
		"error":  {err: errors.New("quota exceeded")},
		"empty":  {out: "   \n"},
		"panics": {panics: true},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			c := New(gen, "Acme", time.Second)
			got := c.Compose(context.Background(), "Holi", "Festival of Colors")
			assert.Equal(t, Template("Holi", "Acme"), got)
		})
	}
}

func TestCompose_UsesGeneratedText(t *testing.T) {
	gen := &fakeGen{out: "  A bright Holi to all!  "}
	c := New(gen, "Acme", time.Second)

	got := c.Compose(context.Background(), "Holi", "Festival of Colors")
	assert.Equal(t, "A bright Holi to all!", got)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Holi")
	assert.Contains(t, gen.prompts[0], "Context: Festival of Colors")
	assert.Contains(t, gen.prompts[0], "Acme community")
}

func TestEnhance_ReturnsInputOnFailure(t *testing.T) {
	msg := "Server maintenance at 10pm"

	assert.Equal(t, msg, New(nil, "", 0).Enhance(context.Background(), msg))
	assert.Equal(t, msg, New(&fakeGen{err: errors.New("down")}, "", time.Second).Enhance(context.Background(), msg))
	assert.Equal(t, "🔧 Maintenance tonight", New(&fakeGen{out: "🔧 Maintenance tonight"}, "", time.Second).Enhance(context.Background(), msg))
}

func TestNewGemini_PlaceholderKeyDisables(t *testing.T) {
	g, err := NewGemini(context.Background(), "your_api_key_here", "gemini-2.0-flash")
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = NewGemini(context.Background(), "", "gemini-2.0-flash")
	require.NoError(t, err)
	assert.Nil(t, g)
}
