package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightrec/core/monitoring"
	"github.com/kilianp07/freightrec/core/recommend"
)

// setup writes a CSV dataset and a config pointing at it.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("Frete Carreteiro;Data Saída;ORIGEN;DESTINO;KM\n")
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "%d;10/%02d/2024;-25.5163,-54.5854;-23.5505,-46.6333;%d\n", 4000+50*i, i%12+1, 1000+5*i)
	}
	data := filepath.Join(dir, "routes.csv")
	require.NoError(t, os.WriteFile(data, []byte(b.String()), 0o600))

	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(fmt.Sprintf(`dataset:
  type: csv
  conf:
    path: %q
model:
  dir: %q
log_level: error
`, data, filepath.Join(dir, "model"))), 0o600))
	t.Cleanup(monitoring.Reset)
	return cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	predictOpts.in, predictOpts.out, predictOpts.origin, predictOpts.dest = "", "", "", ""
	predictOpts.km, predictOpts.month = 0, 0
	evalOpts.out = ""
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := Execute()
	return out.String(), err
}

func TestFitPredictEvaluate(t *testing.T) {
	cfg := setup(t)

	out, err := execute(t, "fit", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "15 samples")

	out, err = execute(t, "predict", "-c", cfg, "--origin", "-25.5163,-54.5854", "--dest", "-23.5505,-46.6333", "--km", "1030", "--month", "5")
	require.NoError(t, err)
	var resp recommend.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.RecommendedPrice)
	assert.Equal(t, 4350.0, *resp.RecommendedPrice)
	assert.NotEmpty(t, resp.RequestID)

	reqFile := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(reqFile, []byte(`{"originLat":"-25,5163","originLng":-54.5854,"destinationLat":-23.5505,"destinationLng":-46.6333,"totalDistance":"1030"}`), 0o600))
	outFile := filepath.Join(t.TempDir(), "resp.json")
	_, err = execute(t, "predict", "-c", cfg, "--in", reqFile, "--out", outFile)
	require.NoError(t, err)
	b, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &resp))
	assert.True(t, resp.Success)

	out, err = execute(t, "evaluate", "-c", cfg, "--format", "csv", "--scenarios", "-1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 16)
	assert.True(t, strings.HasPrefix(lines[0], "scenario,"))

	out, err = execute(t, "state", "-c", cfg)
	require.NoError(t, err)
	var st map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, true, st["trained"])
}

func TestPredict_InvalidFlags(t *testing.T) {
	cfg := setup(t)
	_, err := execute(t, "predict", "-c", cfg)
	assert.ErrorContains(t, err, "--origin")

	_, err = execute(t, "predict", "-c", cfg, "--origin", "north", "--dest", "-23.5,-46.6")
	assert.ErrorContains(t, err, "--origin")

	_, err = execute(t, "evaluate", "-c", cfg, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestMissingConfig(t *testing.T) {
	_, err := execute(t, "state", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "load config")
}
