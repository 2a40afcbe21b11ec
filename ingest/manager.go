package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"legal-rag/chunk"
	"legal-rag/crossref"
	"legal-rag/errors"
	"legal-rag/extract"
	"legal-rag/legal"
	"legal-rag/rag"
	"legal-rag/utils"
	"legal-rag/vecindex"

	"go.uber.org/zap"
)

// Task states. Transitions are monotonic: uploaded -> processing ->
// completed | failed.
const (
	StateUploaded   = "uploaded"
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// Task is the record the manager keeps per submitted document.
type Task struct {
	ID        string            `json:"task_id"`
	FileName  string            `json:"file_name"`
	State     string            `json:"status"`
	Progress  int               `json:"progress"`
	Message   string            `json:"message,omitempty"`
	Result    map[string]any    `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type taskEntry struct {
	mu     sync.Mutex
	task   Task
	cancel context.CancelFunc
}

// Manager owns the ingestion pipeline: extract, chunk, embed, upsert,
// cross-reference. Each task runs on its own worker goroutine.
type Manager struct {
	extractor *extract.Extractor
	chunker   *chunk.Chunker
	embedder  rag.Embedder
	index     vecindex.Index
	chain     *rag.CitationChain
	crossrefs *crossref.Engine
	logger    *zap.Logger

	uploadDir string
	batchSize int

	mu    sync.RWMutex
	tasks map[string]*taskEntry
}

func NewManager(extractor *extract.Extractor, chunker *chunk.Chunker, embedder rag.Embedder, index vecindex.Index, chain *rag.CitationChain, crossrefs *crossref.Engine, uploadDir string, batchSize int, logger *zap.Logger) *Manager {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Manager{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		chain:     chain,
		crossrefs: crossrefs,
		logger:    logger,
		uploadDir: uploadDir,
		batchSize: batchSize,
		tasks:     make(map[string]*taskEntry),
	}
}

// Submit stores the uploaded bytes under a task-scoped temp name, records an
// uploaded task, and dispatches a worker. meta carries the uploader's
// document_type, jurisdiction, and law_status hints.
func (m *Manager) Submit(r io.Reader, filename string, meta map[string]string) (string, error) {
	safeName := utils.SanitizeFilename(filename)
	if safeName == "" {
		return "", errors.WrapError(errors.ErrInvalidInput, "filename is empty after sanitizing")
	}
	if !extract.Supported(safeName) {
		return "", errors.WrapErrorf(errors.ErrUnsupportedType, "unsupported file type: %s", filepath.Ext(safeName))
	}

	if err := os.MkdirAll(m.uploadDir, 0o755); err != nil {
		return "", errors.WrapError(err, "could not create upload directory")
	}

	taskID := utils.GenerateTaskID()
	tempPath := filepath.Join(m.uploadDir, taskID+"_"+safeName)

	f, err := os.Create(tempPath)
	if err != nil {
		return "", errors.WrapError(err, "could not create temp file")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", errors.WrapError(err, "could not write upload")
	}
	f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	entry := &taskEntry{
		task: Task{
			ID:        taskID,
			FileName:  safeName,
			State:     StateUploaded,
			Metadata:  meta,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.tasks[taskID] = entry
	m.mu.Unlock()

	go m.process(ctx, entry, tempPath)

	m.logger.Info("Ingestion task submitted",
		zap.String("task_id", taskID),
		zap.String("file", safeName))
	return taskID, nil
}

// Status returns a snapshot of one task.
func (m *Manager) Status(taskID string) (Task, error) {
	m.mu.RLock()
	entry, ok := m.tasks[taskID]
	m.mu.RUnlock()
	if !ok {
		return Task{}, errors.WrapErrorf(errors.ErrNotFound, "task %s", taskID)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.task, nil
}

// List returns snapshots of all tasks, newest first.
func (m *Manager) List() []Task {
	m.mu.RLock()
	entries := make([]*taskEntry, 0, len(m.tasks))
	for _, e := range m.tasks {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	tasks := make([]Task, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		tasks = append(tasks, e.task)
		e.mu.Unlock()
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

// Cancel aborts an in-flight task. Terminal tasks cannot be cancelled.
func (m *Manager) Cancel(taskID string) error {
	m.mu.RLock()
	entry, ok := m.tasks[taskID]
	m.mu.RUnlock()
	if !ok {
		return errors.WrapErrorf(errors.ErrNotFound, "task %s", taskID)
	}

	entry.mu.Lock()
	terminal := entry.task.State == StateCompleted || entry.task.State == StateFailed
	entry.mu.Unlock()
	if terminal {
		return errors.WrapErrorf(errors.ErrInvalidInput, "task %s already finished", taskID)
	}

	entry.cancel()
	return nil
}

// Delete removes a task record and returns its file name. In-flight tasks
// are cancelled first.
func (m *Manager) Delete(taskID string) (string, error) {
	m.mu.Lock()
	entry, ok := m.tasks[taskID]
	if ok {
		delete(m.tasks, taskID)
	}
	m.mu.Unlock()
	if !ok {
		return "", errors.WrapErrorf(errors.ErrNotFound, "task %s", taskID)
	}

	entry.cancel()
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.task.FileName, nil
}

func (m *Manager) process(ctx context.Context, entry *taskEntry, tempPath string) {
	defer os.Remove(tempPath)
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Ingestion worker panicked", zap.Any("panic", r))
			m.fail(entry, fmt.Sprintf("internal error: %v", r))
		}
	}()

	m.update(entry, StateProcessing, 10, "extracting text")

	task := m.snapshot(entry)
	text, fileMeta, err := m.extractor.Extract(tempPath, filepath.Ext(task.FileName))
	if err != nil {
		m.fail(entry, "extraction failed: "+err.Error())
		return
	}
	if cancelled(ctx) {
		m.fail(entry, errors.ErrTaskCancelled.Error())
		return
	}

	docType := task.Metadata["document_type"]
	if docType == "" {
		docType = chunk.DetectDocumentType(text)
	}
	jurisdiction := task.Metadata["jurisdiction"]
	if jurisdiction == "" {
		jurisdiction = legal.InferJurisdiction(text)
	}
	lawStatus := task.Metadata["law_status"]
	if lawStatus == "" {
		lawStatus = legal.InferLawStatus(text)
	}

	docID := documentID(task.FileName, text)
	m.update(entry, StateProcessing, 30, "chunking document")

	chunks, err := m.chunker.Chunk(docID, text, docType)
	if err != nil {
		m.fail(entry, "chunking failed: "+err.Error())
		return
	}
	if len(chunks) == 0 {
		m.fail(entry, "document produced no chunks")
		return
	}

	m.update(entry, StateProcessing, 50, "embedding chunks")
	if err := m.embedAndUpsert(ctx, entry, chunks, task.FileName, docID, docType, jurisdiction, lawStatus); err != nil {
		if errors.IsTaskCancelled(err) || cancelled(ctx) {
			m.fail(entry, errors.ErrTaskCancelled.Error())
		} else {
			m.fail(entry, "indexing failed: "+err.Error())
		}
		return
	}

	m.update(entry, StateProcessing, 90, "building cross-references")
	for _, c := range chunks {
		m.chain.Record(c.Content)
	}
	refs := m.crossrefs.FindCrossReferences(docID, text)

	entry.mu.Lock()
	entry.task.State = StateCompleted
	entry.task.Progress = 100
	entry.task.Message = "completed"
	entry.task.Result = map[string]any{
		"document_id":      docID,
		"chunks_created":   len(chunks),
		"file_name":        task.FileName,
		"document_type":    docType,
		"cross_references": len(refs),
		"pages":            fileMeta.PageCount,
	}
	entry.task.UpdatedAt = time.Now()
	entry.mu.Unlock()

	m.logger.Info("Ingestion completed",
		zap.String("task_id", task.ID),
		zap.String("document_id", docID),
		zap.Int("chunks", len(chunks)))
}

// embedAndUpsert pushes chunks to the index in bounded batches. The context
// is checked before each batch so cancellation before the first upsert
// leaves the index untouched.
func (m *Manager) embedAndUpsert(ctx context.Context, entry *taskEntry, chunks []chunk.Chunk, fileName, docID, docType, jurisdiction, lawStatus string) error {
	for start := 0; start < len(chunks); start += m.batchSize {
		if cancelled(ctx) {
			return errors.ErrTaskCancelled
		}
		end := start + m.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := m.embedder.Encode(ctx, texts)
		if err != nil {
			return err
		}

		items := make([]vecindex.Item, len(batch))
		for i, c := range batch {
			items[i] = vecindex.Item{
				ID:       c.ID,
				Values:   vectors[i],
				Metadata: chunkMetadata(c, fileName, docID, docType, jurisdiction, lawStatus),
			}
		}
		if err := m.index.Upsert(ctx, items); err != nil {
			return err
		}

		progress := 50 + 40*end/len(chunks)
		m.update(entry, StateProcessing, progress, fmt.Sprintf("indexed %d/%d chunks", end, len(chunks)))
	}
	return nil
}

func chunkMetadata(c chunk.Chunk, fileName, docID, docType, jurisdiction, lawStatus string) vecindex.Metadata {
	meta := vecindex.Metadata{
		"content":       c.Content,
		"file_name":     fileName,
		"document_id":   docID,
		"document_type": docType,
		"jurisdiction":  jurisdiction,
		"law_status":    lawStatus,
		"chunk_ordinal": fmt.Sprintf("%d", c.Ordinal),
	}
	if statutes := c.Metadata.Strings(chunk.MetaStatuteNumbers); len(statutes) > 0 {
		meta["statute_numbers"] = statutes
	}
	if citations := c.Metadata.Strings(chunk.MetaCaseCitations); len(citations) > 0 {
		meta["case_citations"] = citations
	}
	if section := c.Metadata.String(chunk.MetaSectionNumber); section != "" {
		meta["section_number"] = section
	}
	return meta
}

// documentID derives a stable id from the file stem and a content digest.
func documentID(fileName, text string) string {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	stem = strings.ReplaceAll(stem, " ", "_")
	sum := sha256.Sum256([]byte(text))
	return stem + "_" + hex.EncodeToString(sum[:])[:8]
}

func (m *Manager) snapshot(entry *taskEntry) Task {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.task
}

func (m *Manager) update(entry *taskEntry, state string, progress int, message string) {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.task.State == StateCompleted || entry.task.State == StateFailed {
		return
	}
	entry.task.State = state
	entry.task.Progress = progress
	entry.task.Message = message
	entry.task.UpdatedAt = time.Now()
}

func (m *Manager) fail(entry *taskEntry, reason string) {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.task.State == StateCompleted || entry.task.State == StateFailed {
		return
	}
	entry.task.State = StateFailed
	entry.task.Error = reason
	entry.task.Message = reason
	entry.task.UpdatedAt = time.Now()
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
