// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archgraph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hami0095/ai-architecture/services/archgraph/config"
	"github.com/Hami0095/ai-architecture/services/archgraph/graph"
	"github.com/Hami0095/ai-architecture/services/archgraph/rules"
)

var layeredProject = map[string]string{
	"pkg/__init__.py":      "",
	"pkg/interface/api.py": "def handle():\n    return 1\n",
	"pkg/data/models.py":   "import pkg.interface.api\n\ndef load():\n    return api.handle()\n",
	"pkg/core/engine.py":   "import pkg.data.models\n\ndef run():\n    return models.load()\n",
}

const apiPatch = `--- a/pkg/interface/api.py
+++ b/pkg/interface/api.py
@@ -1,2 +1,2 @@
 def handle():
-    return 1
+    return 2
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func fixedChurn(n int) graph.ChurnSource {
	return graph.ChurnFunc(func(context.Context, string) (int, error) { return n, nil })
}

func newTestAnalyzer(opts ...Option) *Analyzer {
	return NewAnalyzer(append([]Option{WithLogger(quietLogger()), WithChurnSource(fixedChurn(7))}, opts...)...)
}

func TestAnalyzer_AnalyzeProject(t *testing.T) {
	root := writeProject(t, layeredProject)
	an, err := newTestAnalyzer().AnalyzeProject(context.Background(), root)
	require.NoError(t, err)

	assert.NotEmpty(t, an.ID)
	assert.Equal(t, []string{"pkg.__init__", "pkg.core.engine", "pkg.data.models", "pkg.interface.api"}, an.Graph().ModuleIDs())

	summary := an.Summary()
	assert.Equal(t, []graph.Relationship{
		{From: "pkg.core.engine", To: "pkg.data.models", Type: graph.RelationshipImport},
		{From: "pkg.data.models", To: "pkg.interface.api", Type: graph.RelationshipImport},
	}, summary.Relationships)
	require.NotNil(t, summary.Modules["pkg.interface.api"].Metrics)
	assert.Equal(t, 7, summary.Modules["pkg.interface.api"].Metrics.Churn)
}

func TestAnalysis_Queries(t *testing.T) {
	root := writeProject(t, layeredProject)
	an, err := newTestAnalyzer().AnalyzeProject(context.Background(), root)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("impact", func(t *testing.T) {
		scope := an.Impact(ctx, "handle", 1)
		assert.True(t, scope.Found)
		assert.Equal(t, []string{"pkg.data.models.load"}, scope.Names())

		scope = an.Impact(ctx, "handle", 2)
		assert.Equal(t, []string{"pkg.data.models.load", "pkg.core.engine.run"}, scope.Names())
	})

	t.Run("dependencies", func(t *testing.T) {
		scope := an.Dependencies(ctx, "pkg.core.engine", 5)
		assert.Equal(t, []string{"pkg.data.models", "pkg.interface.api"}, scope.Names())
	})

	t.Run("symbol metrics", func(t *testing.T) {
		m, ok := an.SymbolMetrics("handle")
		require.True(t, ok)
		assert.Equal(t, "pkg.interface.api", m.Module)
		assert.Equal(t, 1, m.FanIn)
		assert.Equal(t, 7, m.Churn)

		_, ok = an.SymbolMetrics("does_not_exist")
		assert.False(t, ok)
	})

	t.Run("validate", func(t *testing.T) {
		report := an.Validate(ctx)
		assert.False(t, report.Success)
		require.Len(t, report.Violations, 1)
		assert.Equal(t, rules.LayeredRuleName, report.Violations[0].Rule)
		assert.Contains(t, report.Violations[0].Message, "pkg.data.models")
		assert.Contains(t, report.Violations[0].Message, "pkg.interface.api")
		assert.Equal(t, 1, report.ProjectStats["Interface"])
	})

	t.Run("patch impact", func(t *testing.T) {
		pis, err := an.PatchImpact(ctx, []byte(apiPatch), 2)
		require.NoError(t, err)
		require.Len(t, pis, 1)
		assert.Equal(t, "pkg.interface.api", pis[0].Change.Module)
		assert.Equal(t, []string{"handle"}, pis[0].Change.Symbols)
		require.Len(t, pis[0].Scopes, 1)
		assert.Equal(t, []string{"pkg.data.models.load", "pkg.core.engine.run"}, pis[0].Scopes[0].Names())
	})
}

func TestAnalyzer_LazyBackImportIsNotACycle(t *testing.T) {
	root := writeProject(t, map[string]string{
		"pkg/__init__.py": "",
		"pkg/a.py":        "import pkg.b\n\ndef fa():\n    return b.fb()\n",
		"pkg/b.py":        "def fb():\n    import pkg.a\n    return 1\n",
	})
	an, err := newTestAnalyzer().AnalyzeProject(context.Background(), root)
	require.NoError(t, err)

	b, ok := an.Graph().Module("pkg.b")
	require.True(t, ok)
	assert.Empty(t, b.Imports)

	report := an.Validate(context.Background())
	for _, v := range report.Violations {
		assert.NotEqual(t, rules.CycleRuleName, v.Rule, v.Message)
	}
}

func TestAnalyzer_RootErrors(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.AnalyzeProject(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, graph.ErrRootNotFound))

	allowed := t.TempDir()
	a = newTestAnalyzer(WithAllowedRoots(allowed))
	_, err = a.AnalyzeProject(context.Background(), t.TempDir())
	assert.True(t, errors.Is(err, ErrRootNotAllowed))

	_, err = a.AnalyzeProject(context.Background(), allowed)
	assert.NoError(t, err)
}

func TestAnalyzer_Canceled(t *testing.T) {
	root := writeProject(t, layeredProject)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestAnalyzer().AnalyzeProject(ctx, root)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuildValidator(t *testing.T) {
	v, err := BuildValidator(config.PolicyConfig{
		Cycles: true,
		Forbidden: []config.ForbiddenRule{
			{From: "pkg/core/**", To: "pkg/data/**", Severity: "warning"},
		},
	})
	require.NoError(t, err)

	names := make([]string, 0)
	for _, r := range v.Rules() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{rules.CycleRuleName, "Forbidden pkg/core/** -> pkg/data/**"}, names)

	root := writeProject(t, layeredProject)
	an, err := newTestAnalyzer(WithValidator(v)).AnalyzeProject(context.Background(), root)
	require.NoError(t, err)
	report := an.Validate(context.Background())
	assert.True(t, report.Success, "warnings do not fail validation")
	require.Len(t, report.Violations, 1)
	assert.Equal(t, rules.SeverityWarning, report.Violations[0].Severity)

	_, err = BuildValidator(config.PolicyConfig{Forbidden: []config.ForbiddenRule{{From: "[", To: "x"}}})
	assert.True(t, errors.Is(err, rules.ErrInvalidPattern))

	_, err = BuildValidator(config.PolicyConfig{Forbidden: []config.ForbiddenRule{{From: "a", To: "b", Severity: "fatal"}}})
	assert.Error(t, err)
}

func TestNewAnalyzerFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Analysis.Churn = false
	cfg.Analysis.ImpactDepth = 6
	cfg.Analysis.IgnoreDirs = []string{"generated"}

	a, err := NewAnalyzerFromConfig(&cfg, nil, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 6, a.ImpactDepth())

	root := writeProject(t, map[string]string{
		"app/main.py":         "x = 1\n",
		"generated/schema.py": "y = 2\n",
	})
	an, err := a.AnalyzeProject(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.main"}, an.Graph().ModuleIDs())

	m, ok := an.SymbolMetrics("app.main")
	require.True(t, ok)
	assert.Equal(t, graph.DefaultChurn, m.Churn)

	out, err := a.Scan(context.Background(), root, 2)
	require.NoError(t, err)
	assert.Contains(t, out, "--- FILE: app/main.py ---")
}

func gitCommitAll(t *testing.T, dir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	base := []string{"-c", "user.name=archgraph", "-c", "user.email=archgraph@example.com", "-c", "commit.gpgsign=false"}
	for _, args := range [][]string{{"init", "-q"}, {"add", "."}, {"commit", "-q", "-m", "initial"}} {
		cmd := exec.Command("git", append(base, args...)...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
}

func TestAnalyzer_GitChurnReusedAcrossAnalyses(t *testing.T) {
	root := writeProject(t, layeredProject)
	gitCommitAll(t, root)

	a := NewAnalyzer(WithLogger(quietLogger()), WithGitChurn())
	first, err := a.AnalyzeProject(context.Background(), root)
	require.NoError(t, err)
	_, err = a.AnalyzeProject(context.Background(), root)
	require.NoError(t, err)

	src := a.gitChurnFor(first.Graph().Root)
	assert.Equal(t, int64(len(layeredProject)), src.GitRuns(), "git runs once per file")

	m, ok := first.SymbolMetrics("pkg.core.engine")
	require.True(t, ok)
	assert.Equal(t, 1, m.Churn)

	other := writeProject(t, map[string]string{"svc/app.py": "x = 1\n"})
	gitCommitAll(t, other)
	an, err := a.AnalyzeProject(context.Background(), other)
	require.NoError(t, err)
	assert.NotSame(t, src, a.gitChurnFor(an.Graph().Root), "each root has its own source")
}
