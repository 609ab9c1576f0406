package position

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_String(t *testing.T) {
	assert.Equal(t, "BUY", Buy.String())
	assert.Equal(t, "SELL", Sell.String())
	assert.Equal(t, "HOLD", Hold.String())
	assert.Equal(t, "NONE", None.String())
}

func TestAction_JSON(t *testing.T) {
	out, err := json.Marshal(map[string]Action{"action": Sell})

	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"SELL"}`, string(out))
}
