package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/tebeka/atexit"
)

// ClickHouseOptions locate a ClickHouse server.
type ClickHouseOptions struct {
	Addr      string
	Database  string
	Username  string
	Password  string
	BatchSize int
}

// clickhouseWriter records into ClickHouse tables using the native protocol.
type clickhouseWriter struct {
	conn clickhouse.Conn

	mu         sync.Mutex
	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool
}

// NewClickHouseRecorder connects to a ClickHouse server. The recorder is
// flushed at exit.
func NewClickHouseRecorder(opts ClickHouseOptions) (DataRecorder, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = 100000
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	w := &clickhouseWriter{
		conn:      conn,
		tables:    make(map[string]*table),
		batchSize: opts.BatchSize,
	}

	atexit.Register(func() { w.Close() })

	return w, nil
}

func clickhouseColumnType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int8:
		return "Int8"
	case reflect.Int16:
		return "Int16"
	case reflect.Int32:
		return "Int32"
	case reflect.Int, reflect.Int64:
		return "Int64"
	case reflect.Uint8:
		return "UInt8"
	case reflect.Uint16:
		return "UInt16"
	case reflect.Uint32:
		return "UInt32"
	case reflect.Uint, reflect.Uint64:
		return "UInt64"
	case reflect.Float32:
		return "Float32"
	case reflect.Float64:
		return "Float64"
	case reflect.String:
		return "String"
	}

	return ""
}

func clickhouseCreateTableSQL(tableName string, sampleEntry any) (string, error) {
	err := checkStructFields(sampleEntry)
	if err != nil {
		return "", err
	}

	t := reflect.TypeOf(sampleEntry)
	columns := make([]string, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		columns = append(columns,
			field.Name+" "+clickhouseColumnType(field.Type.Kind()))
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = MergeTree()\nORDER BY tuple()",
		tableName, strings.Join(columns, ",\n\t")), nil
}

// clickhouseValues lists the field values of an entry, widening int and
// uint to the 64-bit types of their columns.
func clickhouseValues(entry any) []any {
	v := reflect.ValueOf(entry)
	values := make([]any, 0, v.NumField())

	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)

		switch f.Kind() {
		case reflect.Int:
			values = append(values, f.Int())
		case reflect.Uint:
			values = append(values, f.Uint())
		default:
			values = append(values, f.Interface())
		}
	}

	return values
}

func (w *clickhouseWriter) CreateTable(tableName string, sampleEntry any) {
	createSQL, err := clickhouseCreateTableSQL(tableName, sampleEntry)
	if err != nil {
		panic(err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	err = w.conn.Exec(context.Background(), createSQL)
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	w.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
}

func (w *clickhouseWriter) InsertData(tableName string, entry any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	table, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	table.entries = append(table.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.flush()
	}
}

func (w *clickhouseWriter) ListTables() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	tables := make([]string, 0, len(w.tables))
	for name := range w.tables {
		tables = append(tables, name)
	}

	sort.Strings(tables)

	return tables
}

func (w *clickhouseWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.flush()
}

func (w *clickhouseWriter) flush() {
	if w.entryCount == 0 {
		return
	}

	ctx := context.Background()

	for tableName, table := range w.tables {
		if len(table.entries) == 0 {
			continue
		}

		batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
		if err != nil {
			panic(fmt.Errorf("failed to prepare batch for %s: %w", tableName, err))
		}

		for _, entry := range table.entries {
			err = batch.Append(clickhouseValues(entry)...)
			if err != nil {
				panic(fmt.Errorf("failed to append to %s: %w", tableName, err))
			}
		}

		err = batch.Send()
		if err != nil {
			panic(fmt.Errorf("failed to send batch to %s: %w", tableName, err))
		}

		table.entries = nil
	}

	w.entryCount = 0
}

func (w *clickhouseWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.flush()

	return w.conn.Close()
}
