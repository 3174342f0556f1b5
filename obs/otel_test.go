package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "drivebook", "", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
