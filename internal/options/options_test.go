package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	size  int
	label string
}

func TestApply(t *testing.T) {
	t.Run("Applies in order", func(t *testing.T) {
		cfg := &testConfig{}
		err := Apply(cfg,
			New(func(c *testConfig) error { c.size = 10; return nil }),
			NoError(func(c *testConfig) { c.label = "set" }),
			New(func(c *testConfig) error { c.size *= 2; return nil }),
		)
		require.NoError(t, err)
		require.Equal(t, 20, cfg.size)
		require.Equal(t, "set", cfg.label)
	})

	t.Run("Stops at first error", func(t *testing.T) {
		boom := errors.New("boom")
		cfg := &testConfig{}
		err := Apply(cfg,
			New(func(c *testConfig) error { c.size = 1; return nil }),
			New(func(c *testConfig) error { return boom }),
			New(func(c *testConfig) error { c.size = 99; return nil }),
		)
		require.ErrorIs(t, err, boom)
		require.Equal(t, 1, cfg.size)
	})

	t.Run("Nil options are skipped", func(t *testing.T) {
		cfg := &testConfig{}
		err := Apply(cfg, nil, NoError(func(c *testConfig) { c.size = 5 }))
		require.NoError(t, err)
		require.Equal(t, 5, cfg.size)
	})

	t.Run("No options", func(t *testing.T) {
		cfg := &testConfig{size: 7}
		require.NoError(t, Apply(cfg))
		require.Equal(t, 7, cfg.size)
	})
}
