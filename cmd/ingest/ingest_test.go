package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/usecase"
)

const validArtifact = `{
  "source": "shopify",
  "roaster_domain": "example-roasters.com",
  "scraped_at": "2025-03-01T10:00:00Z",
  "product": {
    "platform_product_id": "p-1",
    "title": "Ethiopia Guji",
    "source_url": "https://example-roasters.com/products/ethiopia-guji",
    "variants": [{"platform_variant_id": "v-1", "price": "18.00"}]
  }
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", validArtifact)
	bad := writeFile(t, dir, "bad.json", `{"source":"shopify"}`)

	tests := []struct {
		name     string
		args     []string
		wantErr  error
		contains []string
	}{
		{name: "valid", args: []string{good}, contains: []string{"good.json: valid", "1 checked, 1 valid, 0 invalid"}},
		{name: "mixed", args: []string{good, bad}, wantErr: errInvalidArtifacts,
			contains: []string{"bad.json: invalid", "missing-field", "2 checked, 1 valid, 1 invalid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs(append([]string{"validate"}, tt.args...))

			err := cmd.Execute()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			for _, c := range tt.contains {
				assert.Contains(t, out.String(), c)
			}
		})
	}
}

func TestRunCmd_RequiresFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "a.json"})

	assert.ErrorContains(t, cmd.Execute(), "required flag")
}

type fakeRunner struct {
	batch usecase.Batch
	job   *entity.IngestJob
}

func (f *fakeRunner) ProcessBatch(_ context.Context, b usecase.Batch) *usecase.BatchResult {
	f.batch = b
	return &usecase.BatchResult{RunID: "run-1"}
}

func (f *fakeRunner) ProcessJob(_ context.Context, job *entity.IngestJob) (*usecase.BatchResult, error) {
	f.job = job
	return &usecase.BatchResult{RunID: job.ID}, nil
}

func TestExecute(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.json", validArtifact)
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	t.Run("local files", func(t *testing.T) {
		r := &fakeRunner{}
		_, err := execute(cmd, r, &runOptions{roasterID: "r1", platform: "shopify", force: true}, []string{path})
		require.NoError(t, err)
		assert.Equal(t, "r1", r.batch.RoasterID)
		assert.True(t, r.batch.Force)
		require.Len(t, r.batch.Items, 1)
		assert.JSONEq(t, validArtifact, string(r.batch.Items[0]))
	})

	t.Run("missing local file", func(t *testing.T) {
		_, err := execute(cmd, &fakeRunner{}, &runOptions{}, []string{filepath.Join(dir, "missing.json")})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("from storage", func(t *testing.T) {
		r := &fakeRunner{}
		_, err := execute(cmd, r, &runOptions{roasterID: "r1", platform: "shopify", metadataOnly: true, fromStorage: true}, []string{"a.json"})
		require.NoError(t, err)
		require.NotNil(t, r.job)
		assert.Equal(t, []string{"a.json"}, r.job.Filenames)
		assert.True(t, r.job.MetadataOnly)
		assert.Empty(t, r.batch.Items)
	})
}

func TestPrintSummary(t *testing.T) {
	res := &usecase.BatchResult{
		RunID: "run-1",
		Stats: usecase.RunStats{
			Total:          4,
			Duration:       1500 * time.Millisecond,
			Outcomes:       map[entity.Outcome]int{entity.OutcomePersisted: 2, entity.OutcomeInvalid: 1, entity.OutcomeFailed: 1},
			ErrorCounts:    map[entity.ErrorCategory]int{entity.CategoryMissingField: 1},
			ErrorSamples:   map[entity.ErrorCategory][]string{entity.CategoryMissingField: {"product.title: field required"}},
			RecordFailures: map[string]int{"insert_price": 2},
		},
	}

	var out bytes.Buffer
	printSummary(&out, res)
	s := out.String()

	assert.Contains(t, s, "run run-1: 4 artifacts in 1.5s")
	assert.Regexp(t, `persisted\s+2`, s)
	assert.Regexp(t, `invalid\s+1`, s)
	assert.NotContains(t, s, "cancelled")
	assert.Contains(t, s, "insert_price: 2")
	assert.Contains(t, s, "missing-field (1)")
	assert.Contains(t, s, "- product.title: field required")
}
