package recording

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/tebeka/atexit"
)

// ClickHouseRecorder is a high-throughput Recorder for a ClickHouse
// server. It avoids reflection on the hot path by batching rows into
// type-specific slices, and it normalizes processor names into a side
// table so span rows store a compact index instead of the full name.
type ClickHouseRecorder struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	execBatch      []ExecInfo
	spanBatch      []spanEntryDB
	sessionBatch   []sessionEntryDB
	processorBatch []processorEntry

	tables map[string]chTableType

	// processorInfo maps processor names to the index stored in span rows.
	processorInfo map[string]int

	entryCount int

	execLogger *ExecLogger
}

type chTableType int

const (
	chTableTypeExecInfo chTableType = iota
	chTableTypeSpan
	chTableTypeSession
	chTableTypeProcessor
)

// Internal row types matching the ClickHouse schemas.
type spanEntryDB struct {
	ID        string
	Kind      string
	What      string
	Processor string
	Handle    int64
	StartTime uint64
	EndTime   uint64
}

type sessionEntryDB struct {
	TableName    string
	SessionStart uint64
	SessionEnd   uint64
}

type processorEntry struct {
	ID   int32
	Name string
}

// NewClickHouseRecorder connects to a ClickHouse server and returns a
// Recorder writing to it. A zero batchSize selects a default.
func NewClickHouseRecorder(
	host string,
	port int,
	database string,
	username string,
	password string,
	batchSize int,
) Recorder {
	if batchSize == 0 {
		batchSize = 100000
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", host, port)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		BlockBufferSize:  10,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	if err := conn.Ping(context.Background()); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	recorder := &ClickHouseRecorder{
		conn:          conn,
		batchSize:     batchSize,
		tables:        make(map[string]chTableType),
		processorInfo: make(map[string]int),
	}

	recorder.CreateTable("processors", processorEntry{})

	atexit.Register(func() {
		recorder.Flush()
	})

	execLogger := NewExecLogger(recorder)
	execLogger.Start()
	recorder.execLogger = execLogger

	return recorder
}

// CreateTable creates a table with a ClickHouse-optimized schema.
func (r *ClickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var createSQL string
	var tType chTableType

	switch sampleEntry.(type) {
	case ExecInfo:
		tType = chTableTypeExecInfo
		createSQL = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				Property String,
				Value String
			) ENGINE = MergeTree()
			ORDER BY Property
		`, tableName)

	case processorEntry:
		tType = chTableTypeProcessor
		createSQL = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				ID Int32,
				Name String
			) ENGINE = MergeTree()
			ORDER BY ID
		`, tableName)

	default:
		createSQL, tType = r.detectTableTypeAndCreateSQL(tableName, sampleEntry)
	}

	err := r.conn.Exec(context.Background(), createSQL)
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = tType
}

func (r *ClickHouseRecorder) detectTableTypeAndCreateSQL(
	tableName string,
	sample any,
) (string, chTableType) {
	sampleStr := fmt.Sprintf("%T", sample)

	if strings.Contains(sampleStr, "spanTableEntry") ||
		strings.Contains(sampleStr, "spanEntry") {
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				ID String,
				Kind String,
				What String,
				Processor String,
				Handle Int64,
				StartTime UInt64,
				EndTime UInt64
			) ENGINE = MergeTree()
			ORDER BY (ID, StartTime)
		`, tableName), chTableTypeSpan
	}

	if strings.Contains(sampleStr, "sessionEntry") ||
		strings.Contains(sampleStr, "sessionTableEntry") {
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				TableName String,
				SessionStart UInt64,
				SessionEnd UInt64
			) ENGINE = MergeTree()
			ORDER BY SessionStart
		`, tableName), chTableTypeSession
	}

	panic(fmt.Sprintf("unknown table type: %T", sample))
}

// InsertData buffers one entry using a type-specific fast path.
func (r *ClickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()

	tType, exists := r.tables[tableName]
	if !exists {
		r.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	switch tType {
	case chTableTypeExecInfo:
		e, ok := entry.(ExecInfo)
		if !ok {
			r.mu.Unlock()
			panic(fmt.Sprintf("invalid entry type for exec info: %T", entry))
		}
		r.execBatch = append(r.execBatch, e)

	case chTableTypeSpan:
		converted := r.convertToSpanEntry(entry)
		converted.Processor = r.processorIndexLocked(converted.Processor)
		r.spanBatch = append(r.spanBatch, converted)

	case chTableTypeSession:
		r.sessionBatch = append(r.sessionBatch, r.convertToSessionEntry(entry))

	case chTableTypeProcessor:
		e, ok := entry.(processorEntry)
		if !ok {
			r.mu.Unlock()
			panic(fmt.Sprintf("invalid entry type for processors: %T", entry))
		}
		r.processorBatch = append(r.processorBatch, e)

	default:
		r.mu.Unlock()
		panic(fmt.Sprintf("unknown table type: %d", tType))
	}

	r.entryCount++

	if r.entryCount >= r.batchSize {
		r.mu.Unlock()
		r.Flush()
		return
	}

	r.mu.Unlock()
}

// processorIndexLocked swaps a processor name for its normalized index,
// assigning one and buffering a processors row on first sight.
func (r *ClickHouseRecorder) processorIndexLocked(name string) string {
	if idx, ok := r.processorInfo[name]; ok {
		return strconv.Itoa(idx)
	}

	idx := len(r.processorInfo) + 1
	r.processorInfo[name] = idx
	r.processorBatch = append(r.processorBatch, processorEntry{
		ID:   int32(idx),
		Name: name,
	})

	return strconv.Itoa(idx)
}

func (r *ClickHouseRecorder) convertToSpanEntry(entry any) spanEntryDB {
	if s, ok := entry.(spanEntryDB); ok {
		return s
	}

	v := reflect.ValueOf(entry)
	if v.Kind() != reflect.Struct {
		panic(fmt.Sprintf("expected struct for span entry, got %T", entry))
	}

	result := spanEntryDB{}

	if field := v.FieldByName("ID"); field.IsValid() {
		result.ID = field.String()
	}
	if field := v.FieldByName("Kind"); field.IsValid() {
		result.Kind = field.String()
	}
	if field := v.FieldByName("What"); field.IsValid() {
		result.What = field.String()
	}
	if field := v.FieldByName("Processor"); field.IsValid() {
		result.Processor = field.String()
	}
	if field := v.FieldByName("Handle"); field.IsValid() {
		result.Handle = field.Int()
	}
	if field := v.FieldByName("StartTime"); field.IsValid() {
		result.StartTime = field.Uint()
	}
	if field := v.FieldByName("EndTime"); field.IsValid() {
		result.EndTime = field.Uint()
	}

	return result
}

func (r *ClickHouseRecorder) convertToSessionEntry(entry any) sessionEntryDB {
	if s, ok := entry.(sessionEntryDB); ok {
		return s
	}

	v := reflect.ValueOf(entry)
	if v.Kind() != reflect.Struct {
		panic(fmt.Sprintf("expected struct for session entry, got %T", entry))
	}

	result := sessionEntryDB{}

	if field := v.FieldByName("TableName"); field.IsValid() {
		result.TableName = field.String()
	}
	if field := v.FieldByName("SessionStart"); field.IsValid() {
		result.SessionStart = field.Uint()
	}
	if field := v.FieldByName("SessionEnd"); field.IsValid() {
		result.SessionEnd = field.Uint()
	}

	return result
}

// ListTables returns all table names.
func (r *ClickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]string, 0, len(r.tables))
	for name := range r.tables {
		tables = append(tables, name)
	}

	return tables
}

// Flush writes all batched rows to ClickHouse using bulk inserts.
func (r *ClickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entryCount == 0 && len(r.processorBatch) == 0 {
		return
	}

	ctx := context.Background()

	for tableName, tType := range r.tables {
		switch tType {
		case chTableTypeExecInfo:
			if len(r.execBatch) > 0 {
				r.flushExecInfo(ctx, tableName)
			}
		case chTableTypeSpan:
			if len(r.spanBatch) > 0 {
				r.flushSpans(ctx, tableName)
			}
		case chTableTypeSession:
			if len(r.sessionBatch) > 0 {
				r.flushSessions(ctx, tableName)
			}
		case chTableTypeProcessor:
			if len(r.processorBatch) > 0 {
				r.flushProcessors(ctx, tableName)
			}
		}
	}

	r.entryCount = 0
}

func (r *ClickHouseRecorder) flushExecInfo(ctx context.Context, tableName string) {
	batch := r.mustPrepareBatch(ctx, tableName)

	for _, entry := range r.execBatch {
		r.mustAppend(batch.Append(entry.Property, entry.Value))
	}

	r.mustSend(batch)
	r.execBatch = r.execBatch[:0]
}

func (r *ClickHouseRecorder) flushSpans(ctx context.Context, tableName string) {
	batch := r.mustPrepareBatch(ctx, tableName)

	for _, entry := range r.spanBatch {
		r.mustAppend(batch.Append(
			entry.ID,
			entry.Kind,
			entry.What,
			entry.Processor,
			entry.Handle,
			entry.StartTime,
			entry.EndTime,
		))
	}

	r.mustSend(batch)
	r.spanBatch = r.spanBatch[:0]
}

func (r *ClickHouseRecorder) flushSessions(ctx context.Context, tableName string) {
	batch := r.mustPrepareBatch(ctx, tableName)

	for _, entry := range r.sessionBatch {
		r.mustAppend(batch.Append(
			entry.TableName,
			entry.SessionStart,
			entry.SessionEnd,
		))
	}

	r.mustSend(batch)
	r.sessionBatch = r.sessionBatch[:0]
}

func (r *ClickHouseRecorder) flushProcessors(ctx context.Context, tableName string) {
	batch := r.mustPrepareBatch(ctx, tableName)

	for _, entry := range r.processorBatch {
		r.mustAppend(batch.Append(entry.ID, entry.Name))
	}

	r.mustSend(batch)
	r.processorBatch = r.processorBatch[:0]
}

func (r *ClickHouseRecorder) mustPrepareBatch(
	ctx context.Context,
	tableName string,
) driver.Batch {
	batch, err := r.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", tableName))
	if err != nil {
		panic(fmt.Errorf("failed to prepare batch for %s: %w", tableName, err))
	}

	return batch
}

func (r *ClickHouseRecorder) mustAppend(err error) {
	if err != nil {
		panic(fmt.Errorf("failed to append to batch: %w", err))
	}
}

func (r *ClickHouseRecorder) mustSend(batch driver.Batch) {
	err := batch.Send()
	if err != nil {
		panic(fmt.Errorf("failed to send batch: %w", err))
	}
}

// Close flushes remaining data and closes the connection.
func (r *ClickHouseRecorder) Close() error {
	if r.execLogger != nil {
		r.execLogger.End()
	}

	r.Flush()

	err := r.conn.Close()
	if err != nil {
		return fmt.Errorf("failed to close ClickHouse connection: %w", err)
	}

	return nil
}
