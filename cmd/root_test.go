package cmd

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pathmessages/pathmessages/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRules = `api-change:
  message: API changed.
  paths: |
    src/api/**
docs:
  message: Docs changed.
  paths: "*.md"
  except:
    also_changed: CHANGELOG.md
`

const testPatch = `diff --git a/README.md b/README.md
--- a/README.md
+++ b/README.md
@@ -1,2 +1,3 @@
 # Title
+new line
 text
diff --git a/src/api/v1.go b/src/api/v1.go
--- a/src/api/v1.go
+++ b/src/api/v1.go
@@ -10,3 +12,4 @@
 a
+b
 c
 d
`

const wantReport = `[{"file":"src/api/v1.go","line":2,"message":"API changed. (on src/api/v1.go)","type":"api-change"},` +
	`{"file":"README.md","line":2,"message":"Docs changed. (on README.md)","type":"docs"}]` + "\n"

// clearEnv unsets every variable the settings read.
func clearEnv(t *testing.T) {
	t.Helper()
	names := []string{"GITHUB_BASE_REF", "GITHUB_SHA", "LIFT_DST_SHA", "LIFT_SRC_SHA"}
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, config.EnvPrefix) {
			names = append(names, name)
		}
	}
	for _, name := range names {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

// writeFixtures writes the rule file and patch into a temp dir.
func writeFixtures(t *testing.T) (cfgPath, patchPath string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, config.DefaultPath)
	patchPath = filepath.Join(dir, "change.diff")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testRules), 0o644))
	require.NoError(t, os.WriteFile(patchPath, []byte(testPatch), 0o644))
	return cfgPath, patchPath
}

// executeArgs runs a fresh command tree and returns the exit code, stdout
// and stderr.
func executeArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	code := execute(root, args, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestLiftArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{name: "bare", args: []string{}, want: []string{}},
		{name: "plain subcommand", args: []string{"run"}, want: []string{"run"}},
		{name: "lift", args: []string{"/src", "abc123", "name"}, want: []string{"name"}},
		{name: "lift unknown command", args: []string{"/src", "abc123", "bogus"}, wantErr: true},
		{name: "three args with a flag", args: []string{"run", "--config", "x.yaml"}, want: []string{"run", "--config", "x.yaml"}},
		{name: "flags then a positional", args: []string{"--patch", "p.diff", "extra"}, want: []string{"--patch", "p.diff", "extra"}},
		{name: "four args", args: []string{"a", "b", "c", "d"}, want: []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := liftArgs(tt.args)
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInfoCommands(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"name"}, want: "PathMessages\n"},
		{args: []string{"version"}, want: "1\n"},
		{args: []string{"/src", "abc123", "name"}, want: "PathMessages\n"},
		{args: []string{"/src", "abc123", "version"}, want: "1\n"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			code, stdout, _ := executeArgs(t, tt.args...)
			assert.Equal(t, 0, code)
			assert.Equal(t, tt.want, stdout)
		})
	}
}

func TestApplicable(t *testing.T) {
	clearEnv(t)
	cfgPath, _ := writeFixtures(t)

	code, stdout, _ := executeArgs(t, "applicable", "--config", cfgPath)
	assert.Equal(t, 0, code)
	assert.Equal(t, "true\n", stdout)

	code, stdout, _ = executeArgs(t, "applicable", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 0, code)
	assert.Equal(t, "false\n", stdout)

	t.Setenv("PATHMESSAGES_CONFIG", cfgPath)
	code, stdout, _ = executeArgs(t, "/src", "abc123", "applicable")
	assert.Equal(t, 0, code)
	assert.Equal(t, "true\n", stdout)

	// settings unrelated to the rule file location do not matter
	t.Setenv("PATHMESSAGES_LINE_MODE", "x")
	t.Setenv("PATHMESSAGES_WORKERS", "0")
	code, stdout, _ = executeArgs(t, "applicable")
	assert.Equal(t, 0, code)
	assert.Equal(t, "true\n", stdout)

	code, stdout, _ = executeArgs(t, "/src", "abc123", "applicable")
	assert.Equal(t, 0, code)
	assert.Equal(t, "true\n", stdout)

	t.Setenv("PATHMESSAGES_CONFIG", "")
	code, stdout, _ = executeArgs(t, "applicable", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 0, code)
	assert.Equal(t, "false\n", stdout)
}

func TestInvalidInvocations(t *testing.T) {
	clearEnv(t)

	code, stdout, stderr := executeArgs(t, "/src", "abc123", "bogus")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Equal(t, "invalid command\n", stderr)

	code, _, _ = executeArgs(t, "run", "--no-such-flag")
	assert.Equal(t, 126, code)
}

func TestStrayArgumentsRunRules(t *testing.T) {
	clearEnv(t)
	cfgPath, patchPath := writeFixtures(t)

	for _, args := range [][]string{
		{"--config", cfgPath, "--patch", patchPath, "extra"},
		{"--config", cfgPath, "--patch", patchPath, "extra", "more"},
		{"a", "b", "--config", cfgPath, "--patch", patchPath},
		{"a", "b", "c", "d", "--config", cfgPath, "--patch", patchPath},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			code, stdout, stderr := executeArgs(t, args...)
			assert.Equal(t, 0, code, stderr)
			assert.Equal(t, wantReport, stdout)
		})
	}

	t.Setenv("PATHMESSAGES_CONFIG", cfgPath)
	t.Setenv("PATHMESSAGES_PATCH", patchPath)
	code, stdout, stderr := executeArgs(t, "bogus")
	assert.Equal(t, 0, code, stderr)
	assert.Equal(t, wantReport, stdout)
}

func TestRunWithPatch(t *testing.T) {
	clearEnv(t)
	cfgPath, patchPath := writeFixtures(t)

	for _, args := range [][]string{
		{"run", "--config", cfgPath, "--patch", patchPath},
		{"--config", cfgPath, "--patch", patchPath},
		{"run", "-c", cfgPath, "--patch", patchPath, "--workers", "4"},
	} {
		t.Run(strings.Join(args[:2], " "), func(t *testing.T) {
			code, stdout, _ := executeArgs(t, args...)
			require.Equal(t, 0, code)
			assert.Equal(t, wantReport, stdout)
		})
	}
}

func TestRunLineModeFile(t *testing.T) {
	clearEnv(t)
	cfgPath, patchPath := writeFixtures(t)

	code, stdout, _ := executeArgs(t, "run", "--config", cfgPath, "--patch", patchPath, "--line-mode", config.LineModeFile)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, `{"file":"src/api/v1.go","line":13,`)
	assert.Contains(t, stdout, `{"file":"README.md","line":2,`)
}

func TestRunExcluded(t *testing.T) {
	clearEnv(t)
	cfgPath, _ := writeFixtures(t)
	patchPath := filepath.Join(t.TempDir(), "change.diff")
	require.NoError(t, os.WriteFile(patchPath, []byte(testPatch+`diff --git a/CHANGELOG.md b/CHANGELOG.md
--- a/CHANGELOG.md
+++ b/CHANGELOG.md
@@ -1,1 +1,2 @@
 # Changes
+- more
`), 0o644))

	code, stdout, _ := executeArgs(t, "run", "--config", cfgPath, "--patch", patchPath)
	require.Equal(t, 0, code)
	assert.NotContains(t, stdout, `"type":"docs"`)
	assert.Contains(t, stdout, `"type":"api-change"`)
}

func TestRunReportOptions(t *testing.T) {
	clearEnv(t)
	cfgPath, patchPath := writeFixtures(t)

	reportPath := filepath.Join(t.TempDir(), "report.csv")
	code, stdout, _ := executeArgs(t, "run", "--config", cfgPath, "--patch", patchPath, "-f", "csv", "-r", reportPath)
	require.Equal(t, 0, code)
	assert.Empty(t, stdout)
	got, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Equal(t, "File,Line,Type,Message\n"+
		"src/api/v1.go,2,api-change,API changed. (on src/api/v1.go)\n"+
		"README.md,2,docs,Docs changed. (on README.md)\n", string(got))

	tmpl := filepath.Join(t.TempDir(), "list.tmpl")
	require.NoError(t, os.WriteFile(tmpl, []byte("{{ range . }}{{ .Type }}\n{{ end }}"), 0o644))
	code, stdout, _ = executeArgs(t, "run", "--config", cfgPath, "--patch", patchPath, "--report-template", tmpl)
	require.Equal(t, 0, code)
	assert.Equal(t, "api-change\ndocs\n", stdout)

	code, stdout, stderr := executeArgs(t, "run", "--config", cfgPath, "--patch", patchPath, "--verbose", "--no-color")
	require.Equal(t, 0, code)
	assert.Equal(t, wantReport, stdout)
	assert.Contains(t, stderr, "Type:        api-change\n")

	code, _, _ = executeArgs(t, "run", "--config", cfgPath, "--patch", patchPath, "-f", "junit")
	assert.Equal(t, 1, code)
}

func TestRunConfigErrors(t *testing.T) {
	clearEnv(t)
	_, patchPath := writeFixtures(t)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rule:\n  message: [unclosed\n"), 0o644))

	for name, cfgPath := range map[string]string{
		"invalid yaml": bad,
		"missing file": filepath.Join(t.TempDir(), "missing.yaml"),
	} {
		t.Run(name, func(t *testing.T) {
			code, stdout, stderr := executeArgs(t, "run", "--config", cfgPath, "--patch", patchPath)
			assert.Equal(t, 1, code)
			assert.Empty(t, stdout)
			assert.Equal(t, configLoadMessage+"\n", stderr)
		})
	}
}

func TestRunMissingRevisions(t *testing.T) {
	clearEnv(t)
	cfgPath, _ := writeFixtures(t)

	code, stdout, _ := executeArgs(t, "run", "--config", cfgPath)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
}

func TestRunLiftGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	clearEnv(t)

	dir := t.TempDir()
	gitRun := func(args ...string) string {
		t.Helper()
		c := exec.Command("git", args...)
		c.Dir = dir
		out, err := c.CombinedOutput()
		require.NoError(t, err, string(out))
		return strings.TrimSpace(string(out))
	}
	writeFile := func(path, content string) {
		t.Helper()
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	gitRun("init", "-q")
	gitRun("config", "user.email", "test@example.com")
	gitRun("config", "user.name", "Test User")
	gitRun("config", "commit.gpgsign", "false")
	writeFile(config.DefaultPath, testRules)
	writeFile("src/api/v1.go", "package api\n")
	gitRun("add", ".")
	gitRun("commit", "-q", "-m", "first")
	target := gitRun("rev-parse", "HEAD")

	writeFile("src/api/v1.go", "package api\n\nfunc A() {}\n")
	gitRun("commit", "-q", "-am", "second")
	source := gitRun("rev-parse", "HEAD")

	t.Setenv("GITHUB_BASE_REF", "does-not-exist")
	t.Setenv("LIFT_DST_SHA", target)
	t.Setenv("LIFT_SRC_SHA", source)
	t.Setenv("PATHMESSAGES_REPO", dir)
	t.Setenv("PATHMESSAGES_CONFIG", filepath.Join(dir, config.DefaultPath))

	code, stdout, _ := executeArgs(t, dir, source, "run")
	require.Equal(t, 0, code)
	assert.Equal(t, `[{"file":"src/api/v1.go","line":2,"message":"API changed. (on src/api/v1.go)","type":"api-change"}]`+"\n", stdout)

	t.Setenv("LIFT_DST_SHA", "does-not-exist")
	code, stdout, _ = executeArgs(t, dir, source, "run")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.23s", FormatDuration(1234*time.Millisecond))
	assert.Equal(t, "12.3ms", FormatDuration(12345*time.Microsecond))
}

func TestRunIgnoreFile(t *testing.T) {
	clearEnv(t)
	cfgPath, patchPath := writeFixtures(t)

	ignorePath := filepath.Join(t.TempDir(), ".pathmessagesignore")
	require.NoError(t, os.WriteFile(ignorePath, []byte("# reviewed\ndocs:README.md\n"), 0o644))

	code, stdout, _ := executeArgs(t, "run", "--config", cfgPath, "--patch", patchPath, "-i", ignorePath)
	require.Equal(t, 0, code)
	assert.Equal(t, `[{"file":"src/api/v1.go","line":2,"message":"API changed. (on src/api/v1.go)","type":"api-change"}]`+"\n", stdout)
}
