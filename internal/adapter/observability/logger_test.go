package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-trainer/internal/config"
)

func TestSetupLogger_DevAndProd(t *testing.T) {
	require.NotNil(t, SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "svc"}))
	require.NotNil(t, SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "svc"}))
}

func TestNewLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	lg := newLogger(&buf, config.Config{AppEnv: "prod", OTELServiceName: "trainer"})
	lg.Debug("hidden")
	lg.Info("hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "trainer", rec["service"])
	assert.Equal(t, "prod", rec["env"])
}

func TestNewLogger_DevDebug(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, config.Config{AppEnv: "dev"}).Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
