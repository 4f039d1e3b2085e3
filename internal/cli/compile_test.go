package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeQueryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "query.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

const sampleQuery = `
resource: orders
single: true
select:
  - id
  - "sum:total::numeric"
  - "data->>color"
filters:
  - column: status
    op: eq
    value: open
  - column: id
    op: in
    values: [1, 2]
  - column: deleted_at
    op: is
    negated: true
order:
  - column: created_at
    direction: desc
    nulls: nullslast
limit: 10
offset: 20
count: exact
profile: audit
`

func TestCompileTextOutput(t *testing.T) {
	path := writeQueryFile(t, sampleQuery)

	out, err := runCLI(t, "compile", path, "--decoded")
	require.NoError(t, err)

	assert.Contains(t, out, "resource: orders")
	assert.Contains(t, out,
		"query:    select=id,sum:total::numeric,data->>color&status=eq.open&id=in.(1,2)&deleted_at=not.is.null&order=created_at.desc.nullslast&limit=10&offset=20")
	assert.Contains(t, out, "header:   Accept: application/vnd.pgrst.object+json")
	assert.Contains(t, out, "header:   Prefer: count=exact")
	assert.Contains(t, out, "header:   Accept-Profile: audit")
}

func TestCompileJSONOutput(t *testing.T) {
	path := writeQueryFile(t, sampleQuery)

	out, err := runCLI(t, "compile", path, "--decoded", "--format", "json")
	require.NoError(t, err)

	var parsed struct {
		Resource    string              `json:"resource"`
		QueryString string              `json:"query_string"`
		Headers     map[string][]string `json:"headers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))

	assert.Equal(t, "orders", parsed.Resource)
	assert.Contains(t, parsed.QueryString, "status=eq.open")
	assert.Equal(t, []string{"application/vnd.pgrst.object+json"}, parsed.Headers["Accept"])
}

func TestCompileEncodedByDefault(t *testing.T) {
	path := writeQueryFile(t, sampleQuery)

	out, err := runCLI(t, "compile", path)
	require.NoError(t, err)
	// The select list separator is percent-encoded in the default output.
	assert.Contains(t, out, "%2C")
}

func TestCompileWriteMethodHeaders(t *testing.T) {
	path := writeQueryFile(t, `
resource: events
columns: [id, name]
resolution: merge-duplicates
on_conflict: id
returning: representation
`)

	out, err := runCLI(t, "compile", path, "--decoded", "--method", "POST")
	require.NoError(t, err)
	assert.Contains(t, out, "query:    on_conflict=id&columns=id,name")
	assert.Contains(t, out, "header:   Content-Type: application/json")
	assert.Contains(t, out, "header:   Prefer: return=representation,resolution=merge-duplicates")
}

func TestCompileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := runCLI(t, "compile", filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("missing resource", func(t *testing.T) {
		path := writeQueryFile(t, "single: true\n")
		_, err := runCLI(t, "compile", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must name a resource")
	})

	t.Run("unknown operator", func(t *testing.T) {
		path := writeQueryFile(t, `
resource: t
filters:
  - column: a
    op: contains
    value: x
`)
		_, err := runCLI(t, "compile", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown filter operator "contains"`)
	})

	t.Run("invalid format", func(t *testing.T) {
		path := writeQueryFile(t, "resource: t\n")
		_, err := runCLI(t, "compile", path, "--format", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid format")
	})
}
