package emailgate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lgl-sync/internal/service/emailgate"
)

func TestParseWhitelist(t *testing.T) {
	got, err := emailgate.ParseWhitelist(`
# staff
Bob@Example.org, alice@example.org
alice@example.org; "Carol" <carol@example.org>

`)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.org", "bob@example.org", "carol@example.org"}, got)
}

func TestParseWhitelist_Invalid(t *testing.T) {
	_, err := emailgate.ParseWhitelist("ok@example.org\nnot-an-address")
	require.ErrorIs(t, err, emailgate.ErrInvalidAddress)
	assert.Contains(t, err.Error(), "not-an-address")
}

func TestWhitelistRoundTrip(t *testing.T) {
	f := setupGate(t, development)
	ctx := context.Background()

	n, err := f.gate.ImportWhitelist(ctx, "b@example.org\na@example.org\nB@example.org")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	exported, err := f.gate.ExportWhitelist(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@example.org\nb@example.org\n", exported)

	_, err = f.gate.ImportWhitelist(ctx, exported)
	require.NoError(t, err)
	again, err := f.gate.ExportWhitelist(ctx)
	require.NoError(t, err)
	assert.Equal(t, exported, again)
}

func TestFormatWhitelist_Empty(t *testing.T) {
	assert.Equal(t, "", emailgate.FormatWhitelist(nil))
}
