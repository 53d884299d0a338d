package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/haatos/secpipe/internal/engine"
	"github.com/haatos/secpipe/internal/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Generate(t *testing.T) {
	t.Run("success - present and absent artifacts both listed", func(t *testing.T) {
		// arrange
		run := &engine.PipelineRun{
			RunID:    "run-1",
			Pipeline: "release-scan",
			Status:   engine.RunPartialFailure,
			Stages: []engine.StageResult{
				{
					Stage: "audit",
					Artifacts: []engine.ArtifactRef{
						{
							Label:       "Dependency Check Report",
							Path:        "reports/deps.json",
							ArchivePath: "archives/depsjson.zip",
							Present:     true,
						},
					},
				},
				{
					Stage: "zap",
					Artifacts: []engine.ArtifactRef{
						{Label: "ZAP Report", Path: "reports/zap.html"},
					},
				},
			},
		}
		p := &spec.Pipeline{
			Name:         "release-scan",
			DashboardURL: "https://dashboard.example.com/release-scan",
		}
		outPath := filepath.Join(t.TempDir(), "aggregate-report.html")

		// act
		agg, err := Generate(run, p, outPath)

		// assert
		assert.NoError(t, err)
		require.Len(t, agg.Entries, 2)
		assert.True(t, agg.Entries[0].Present)
		assert.False(t, agg.Entries[1].Present)

		rendered, readErr := os.ReadFile(outPath)
		assert.NoError(t, readErr)
		html := string(rendered)
		assert.Contains(t, html, `<a href="archives/depsjson.zip">Dependency Check Report</a>`)
		assert.Contains(t, html, "ZAP Report: absent")
		assert.Contains(t, html, "https://dashboard.example.com/release-scan")
		assert.Contains(t, html, "partial-failure")
	})

	t.Run("success - run with no artifacts still renders", func(t *testing.T) {
		// arrange
		run := &engine.PipelineRun{RunID: "run-2", Status: engine.RunSuccess}
		p := &spec.Pipeline{Name: "empty"}
		outPath := filepath.Join(t.TempDir(), "aggregate-report.html")

		// act
		agg, err := Generate(run, p, outPath)

		// assert
		assert.NoError(t, err)
		assert.Empty(t, agg.Entries)
		exists, _ := os.Stat(outPath)
		assert.NotNil(t, exists)
	})
}
