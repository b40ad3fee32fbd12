package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j4b6ski/oioioi/cmd/server/internal/cli"
	"github.com/j4b6ski/oioioi/internal/exiterr"
	"github.com/j4b6ski/oioioi/internal/policy"
)

func TestLoadBindings(t *testing.T) {
	a := uuid.MustParse("0190a4c2-0000-7000-8000-000000000001")
	b := uuid.MustParse("0190a4c2-0000-7000-8000-000000000002")

	t.Run("Valid", func(t *testing.T) {
		raw := []byte("contests:\n  " + b.String() + ": acm\n  " + a.String() + ": default\n")

		bindings, err := cli.LoadBindings(policy.Builtin(), raw)
		require.NoError(t, err)
		assert.Equal(t, []cli.Binding{
			{ContestID: a, Policy: policy.RuleSetDefault},
			{ContestID: b, Policy: policy.RuleSetACM},
		}, bindings)
	})

	t.Run("ReportsEveryProblem", func(t *testing.T) {
		raw := []byte("contests:\n  foobar: acm\n  " + a.String() + ": no-such-policy\n")

		_, err := cli.LoadBindings(policy.Builtin(), raw)
		require.ErrorIs(t, err, cli.ErrInvalidBindings)
		assert.Contains(t, err.Error(), `contest "foobar": not a uuid`)
		assert.Contains(t, err.Error(), `unknown policy "no-such-policy"`)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := cli.LoadBindings(policy.Builtin(), []byte("contests: {}\n"))
		require.ErrorIs(t, err, cli.ErrInvalidBindings)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		_, err := cli.LoadBindings(policy.Builtin(), []byte("contest:\n  x: acm\n"))
		require.ErrorIs(t, err, cli.ErrInvalidBindings)
	})
}

func run(t *testing.T, args ...string) (string, error) {
	served := false
	cmd := cli.New(func(context.Context) error {
		served = true
		return nil
	})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())
	assert.False(t, served, "subcommands never serve")
	return out.String(), err
}

func TestPoliciesList(t *testing.T) {
	out, err := run(t, "policies", "list")
	require.NoError(t, err)

	for _, name := range policy.Builtin().Names() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, policy.MixinPreparationWindow)
}

func TestPoliciesBindDryRun(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	require.NoError(t, os.WriteFile(valid, []byte("contests:\n  "+uuid.NewString()+": best-of\n"), 0o600))

	out, err := run(t, "policies", "bind", "--dry-run", valid)
	require.NoError(t, err)
	assert.Equal(t, "1 bindings valid\n", out)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("contests:\n  foobar: acm\n"), 0o600))

	_, err = run(t, "policies", "bind", "--dry-run", invalid)
	assert.Equal(t, exiterr.CodeUsage, exiterr.Code(err))

	_, err = run(t, "policies", "bind", "--dry-run", filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, exiterr.CodeUsage, exiterr.Code(err))
}

func TestRecomputeRejectsBadID(t *testing.T) {
	_, err := run(t, "recompute", "foobar")
	assert.Equal(t, exiterr.CodeUsage, exiterr.Code(err))
}

func TestServeByDefault(t *testing.T) {
	served := false
	cmd := cli.New(func(context.Context) error {
		served = true
		return nil
	})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.ExecuteContext(t.Context()))
	assert.True(t, served)
}
