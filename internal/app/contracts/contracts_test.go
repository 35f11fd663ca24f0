package contracts

import (
	"path/filepath"
	"testing"

	"github.com/form3tech-oss/pact-orders/pkg/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantNamesFollowOneConvention(t *testing.T) {
	for _, name := range []string{FulfilmentAPI, OrdersAPI, OrdersMessaging} {
		assert.NoError(t, contract.ValidateName(name), name)
	}
}

func TestOrderExists(t *testing.T) {
	state, params := OrderExists(1)

	assert.Equal(t, OrderExistsState, state)
	assert.Equal(t, map[string]string{"id": "1"}, params)
}

func TestPactDirDefaultsToCheckedInDirectory(t *testing.T) {
	t.Setenv("PACT_DIR", "")

	dir, err := PactDir()
	require.NoError(t, err)

	assert.Equal(t, "pacts", filepath.Base(dir))
	assert.FileExists(t, filepath.Join(dir, contract.FileName(FulfilmentAPI, OrdersAPI)))
}

func TestPactDirFromEnv(t *testing.T) {
	t.Setenv("PACT_DIR", "/tmp/pacts")

	dir, err := PactDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pacts", dir)
}
