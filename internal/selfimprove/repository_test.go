package selfimprove

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/LerianStudio/midaz/common/mlog"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRabbitConnector lets repository tests exercise the best-effort
// publish path without dialing a real broker.
type fakeRabbitConnector struct {
	err error
}

func (f *fakeRabbitConnector) GetChannel(ctx context.Context) (*amqp.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}

	return nil, errors.New("fakeRabbitConnector has no real channel to return")
}

func TestFileBackedRepository_Insert_AppendsNDJSONLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.ndjson")

	repo, err := NewFileBackedRepository(path, nil, &mlog.NoneLogger{})
	require.NoError(t, err)

	record := ErrorRecord{RequestID: "req-1", ErrorCategory: "tool_execution_failure"}
	require.NoError(t, repo.Insert(context.Background(), record))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var got ErrorRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &got))
	assert.Equal(t, "req-1", got.RequestID)
	assert.False(t, scanner.Scan())
}

func TestFileBackedRepository_Insert_AppendsMultipleLinesInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.ndjson")

	repo, err := NewFileBackedRepository(path, nil, &mlog.NoneLogger{})
	require.NoError(t, err)

	require.NoError(t, repo.Insert(context.Background(), ErrorRecord{RequestID: "req-1"}))
	require.NoError(t, repo.Insert(context.Background(), ErrorRecord{RequestID: "req-2"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var first, second ErrorRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "req-1", first.RequestID)
	assert.Equal(t, "req-2", second.RequestID)
}

func TestFileBackedRepository_Insert_PublishFailureDoesNotFailInsert(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.ndjson")

	repo, err := NewFileBackedRepository(path, &fakeRabbitConnector{err: errors.New("broker unreachable")}, &mlog.NoneLogger{})
	require.NoError(t, err)

	err = repo.Insert(context.Background(), ErrorRecord{RequestID: "req-1", ErrorCategory: "unknown"})
	assert.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestFileBackedRepository_CreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "records.ndjson")

	_, err := NewFileBackedRepository(path, nil, &mlog.NoneLogger{})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Dir(path))
	assert.NoError(t, statErr)
}
