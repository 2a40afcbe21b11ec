package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"legal-rag/chunk"
	"legal-rag/crossref"
	apperrors "legal-rag/errors"
	"legal-rag/extract"
	"legal-rag/rag"
	"legal-rag/vecindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// blockingEmbedder parks every Encode call until the context is cancelled,
// so tests can cancel a task before its first upsert.
type blockingEmbedder struct{}

func (blockingEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestManager(t *testing.T, embedder rag.Embedder, index vecindex.Index) (*Manager, string) {
	t.Helper()
	uploadDir := t.TempDir()
	graph := crossref.LoadGraph(filepath.Join(t.TempDir(), "graph.json"), zap.NewNop())
	engine := crossref.NewEngine(graph, index, zap.NewNop())

	m := NewManager(
		extract.New("", zap.NewNop()),
		chunk.NewChunker(1000, 200, zap.NewNop()),
		embedder,
		index,
		rag.NewCitationChain(),
		engine,
		uploadDir,
		100,
		zap.NewNop(),
	)
	return m, uploadDir
}

func waitTerminal(t *testing.T, m *Manager, taskID string) Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := m.Status(taskID)
		require.NoError(t, err)
		if task.State == StateCompleted || task.State == StateFailed {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task did not reach a terminal state in time")
	return Task{}
}

func TestSubmitProcessesTextUpload(t *testing.T) {
	index := vecindex.NewMemoryIndex(3)
	m, uploadDir := newTestManager(t, fixedEmbedder{}, index)

	content := "Statute 968.12 governs search warrants in Dane County. " +
		"Probable cause must be shown before issuance."
	taskID, err := m.Submit(strings.NewReader(content), "warrants.txt", nil)
	require.NoError(t, err)

	task := waitTerminal(t, m, taskID)
	require.Equal(t, StateCompleted, task.State, "error: %s", task.Error)
	assert.Equal(t, 100, task.Progress)
	assert.Equal(t, "warrants.txt", task.FileName)

	require.NotNil(t, task.Result)
	docID, _ := task.Result["document_id"].(string)
	assert.True(t, strings.HasPrefix(docID, "warrants_"))
	chunks, _ := task.Result["chunks_created"].(int)
	assert.Greater(t, chunks, 0)

	stats, err := index.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, chunks, stats.Count)

	// The task-scoped temp file is removed once processing ends.
	_, err = os.Stat(filepath.Join(uploadDir, taskID+"_warrants.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestSubmitAppliesMetadataOverrides(t *testing.T) {
	index := vecindex.NewMemoryIndex(3)
	m, _ := newTestManager(t, fixedEmbedder{}, index)

	meta := map[string]string{
		"document_type": "policy",
		"jurisdiction":  "federal",
		"law_status":    "pending",
	}
	taskID, err := m.Submit(strings.NewReader("1.1 Purpose\nThis policy governs traffic stops."), "policy.txt", meta)
	require.NoError(t, err)

	task := waitTerminal(t, m, taskID)
	require.Equal(t, StateCompleted, task.State, "error: %s", task.Error)
	assert.Equal(t, "policy", task.Result["document_type"])

	matches, err := index.List(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "federal", matches[0].Metadata["jurisdiction"])
	assert.Equal(t, "pending", matches[0].Metadata["law_status"])
}

func TestSubmitRejectsUnsupportedExtension(t *testing.T) {
	m, _ := newTestManager(t, fixedEmbedder{}, vecindex.NewMemoryIndex(3))

	_, err := m.Submit(strings.NewReader("binary"), "malware.exe", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnsupportedType(err))
}

func TestCancelBeforeUpsertLeavesIndexUntouched(t *testing.T) {
	index := vecindex.NewMemoryIndex(3)
	m, _ := newTestManager(t, blockingEmbedder{}, index)

	taskID, err := m.Submit(strings.NewReader("Statute 968.12 governs search warrants."), "doc.txt", nil)
	require.NoError(t, err)

	// Let the worker reach the embedding stage, then cancel.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, serr := m.Status(taskID)
		require.NoError(t, serr)
		if task.State == StateProcessing && task.Progress >= 50 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, m.Cancel(taskID))

	task := waitTerminal(t, m, taskID)
	assert.Equal(t, StateFailed, task.State)
	assert.Equal(t, apperrors.ErrTaskCancelled.Error(), task.Error)

	stats, err := index.Describe(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
}

func TestCancelFinishedTaskFails(t *testing.T) {
	m, _ := newTestManager(t, fixedEmbedder{}, vecindex.NewMemoryIndex(3))

	taskID, err := m.Submit(strings.NewReader("Probable cause is required."), "doc.txt", nil)
	require.NoError(t, err)
	task := waitTerminal(t, m, taskID)
	require.Equal(t, StateCompleted, task.State, "error: %s", task.Error)

	err = m.Cancel(taskID)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))

	// The terminal state must survive the cancel attempt.
	task, err = m.Status(taskID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, task.State)
}

func TestDeleteReturnsFileName(t *testing.T) {
	m, _ := newTestManager(t, fixedEmbedder{}, vecindex.NewMemoryIndex(3))

	taskID, err := m.Submit(strings.NewReader("Reasonable suspicion supports a stop."), "stops.txt", nil)
	require.NoError(t, err)
	waitTerminal(t, m, taskID)

	name, err := m.Delete(taskID)
	require.NoError(t, err)
	assert.Equal(t, "stops.txt", name)

	_, err = m.Status(taskID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListReturnsNewestFirst(t *testing.T) {
	m, _ := newTestManager(t, fixedEmbedder{}, vecindex.NewMemoryIndex(3))

	first, err := m.Submit(strings.NewReader("First document text."), "first.txt", nil)
	require.NoError(t, err)
	waitTerminal(t, m, first)
	time.Sleep(5 * time.Millisecond)

	second, err := m.Submit(strings.NewReader("Second document text."), "second.txt", nil)
	require.NoError(t, err)
	waitTerminal(t, m, second)

	tasks := m.List()
	require.Len(t, tasks, 2)
	assert.Equal(t, second, tasks[0].ID)
	assert.Equal(t, first, tasks[1].ID)
}

func TestStatusUnknownTask(t *testing.T) {
	m, _ := newTestManager(t, fixedEmbedder{}, vecindex.NewMemoryIndex(3))
	_, err := m.Status("no-such-task")
	assert.True(t, apperrors.IsNotFound(err))
}
