package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdrpinto/roboroute"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadRequest_JSONAndYAML(t *testing.T) {
	jsonFile := writeFile(t, "req.json", `{"grid": [[0, 0], [1, 0]], "start": [0, 0], "goal": [1, 1]}`)
	yamlFile := writeFile(t, "req.yaml", "grid:\n  - [0, 0]\n  - [1, 0]\nstart: [0, 0]\ngoal: [1, 1]\nheuristic: manhattan\n")

	fromJSON, err := readRequest(jsonFile)
	require.NoError(t, err)
	fromYAML, err := readRequest(yamlFile)
	require.NoError(t, err)

	assert.Equal(t, fromJSON.Grid, fromYAML.Grid)
	assert.Equal(t, roboroute.Cell{Row: 1, Col: 1}, *fromYAML.Goal)
	assert.Equal(t, "manhattan", fromYAML.Heuristic)
}

func TestReadRequest_Malformed(t *testing.T) {
	_, err := readRequest(writeFile(t, "bad.json", `{"grid": `))
	assert.ErrorIs(t, err, roboroute.ErrInvalidInput)

	_, err = readRequest(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSolveFiles_KeepsArgumentOrder(t *testing.T) {
	files := []string{
		writeFile(t, "a.json", `{"grid": [[0, 0, 0]], "start": [0, 0], "goal": [0, 2]}`),
		writeFile(t, "b.json", `{"grid": [[0, 1, 0]], "start": [0, 0], "goal": [0, 2]}`),
		writeFile(t, "c.json", `{"grid": [[0]], "goal": [0, 0]}`),
	}
	outcomes := solveFiles(context.Background(), roboroute.NewPathfinder(), files, 0)
	require.Len(t, outcomes, 3)

	assert.NoError(t, outcomes[0].err)
	assert.Equal(t, 2, outcomes[0].result.Steps)
	assert.ErrorIs(t, outcomes[1].err, roboroute.ErrNoPath)
	assert.ErrorIs(t, outcomes[2].err, roboroute.ErrInvalidInput)
	for i, o := range outcomes {
		assert.Equal(t, files[i], o.file)
	}
}

func TestRenderOutcome(t *testing.T) {
	color.NoColor = true
	file := writeFile(t, "r.json", `{"grid": [[0, 0], [1, 0]], "start": [0, 0], "goal": [1, 1]}`)
	outcomes := solveFiles(context.Background(), roboroute.NewPathfinder(), []string{file}, 0)

	var out bytes.Buffer
	renderOutcome(&out, outcomes[0], true)
	assert.Contains(t, out.String(), "2 steps")
	assert.Contains(t, out.String(), "(0,0) -> (0,1) -> (1,1)")
	assert.Contains(t, out.String(), "S*\n#G\n")
}

func TestRenderOutcomeJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, renderOutcomeJSON(&out, solveOutcome{file: "x.json", err: roboroute.ErrNoPath}))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	assert.Equal(t, false, payload["found"])
	assert.Equal(t, "no path found", payload["error"])
	assert.NotContains(t, payload, "result")
}

func TestSolveFiles_HeuristicOverrideKeepsBase(t *testing.T) {
	file := writeFile(t, "m.yaml", "grid:\n  - [0, 0, 0]\n  - [0, 0, 0]\nstart: [0, 0]\ngoal: [1, 2]\nheuristic: manhattan\n")
	base := roboroute.NewPathfinder(roboroute.WithSearchOptions(roboroute.WithWorkers(2)))

	outcomes := solveFiles(context.Background(), base, []string{file}, 0)
	require.NoError(t, outcomes[0].err)
	assert.Equal(t, roboroute.HeuristicManhattan, outcomes[0].result.Heuristic)
	assert.Equal(t, 3, outcomes[0].result.Steps)
	assert.Equal(t, roboroute.HeuristicEuclidean, base.Heuristic())
}
