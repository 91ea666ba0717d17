package selfimprove

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/LerianStudio/midaz/common"
	"github.com/LerianStudio/midaz/common/mlog"
	"github.com/LerianStudio/midaz/common/mrabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// selfImproveExchange is the topic exchange accepted records are
// best-effort fanned out to, so an out-of-process adaptation worker can
// consume them without polling the NDJSON file.
const selfImproveExchange = "phoenix.self_improve"

// ErrorRecordRepository persists ErrorRecords. The only implementation
// shipped here is file-backed NDJSON, but the interface keeps the engine
// decoupled from that choice.
type ErrorRecordRepository interface {
	Insert(ctx context.Context, record ErrorRecord) error
}

// FileBackedRepository appends ErrorRecords as newline-delimited JSON to a
// single file, one record per line. Appends are serialized by a single
// mutex, and each append is fsynced before the mutex is released.
type FileBackedRepository struct {
	path string

	mu sync.Mutex

	rabbit mrabbitmqConnector
	logger mlog.Logger
}

// mrabbitmqConnector is the subset of *mrabbitmq.RabbitMQConnection the
// repository needs; narrowed to an interface so tests can swap in a fake
// instead of dialing a broker.
type mrabbitmqConnector interface {
	GetChannel(ctx context.Context) (*amqp.Channel, error)
}

// NewFileBackedRepository wires a FileBackedRepository against path.
// rabbit may be nil, in which case the best-effort publish step is
// skipped entirely (equivalent to SELF_IMPROVE_RABBITMQ_URI being unset).
func NewFileBackedRepository(path string, rabbit mrabbitmqConnector, logger mlog.Logger) (*FileBackedRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, common.New(common.KindIO, "failed to create self-improvement store directory").
				WithCause(err).WithContext("path", dir)
		}
	}

	return &FileBackedRepository{path: path, rabbit: rabbit, logger: logger}, nil
}

// Insert appends record as one NDJSON line and then best-effort publishes
// it to the self-improvement topic exchange. A publish failure is logged
// and reported but never returned: the NDJSON append is this component's
// durability guarantee, the queue publish is pure fan-out.
func (r *FileBackedRepository) Insert(ctx context.Context, record ErrorRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return common.New(common.KindProcessing, "failed to serialize error record").WithCause(err)
	}

	if err := r.appendLine(line); err != nil {
		return err
	}

	if r.rabbit != nil {
		if err := r.publish(ctx, record, line); err != nil {
			r.reportPublishFailure(record, err)
		}
	}

	return nil
}

func (r *FileBackedRepository) appendLine(line []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return common.New(common.KindIO, "failed to open self-improvement store").WithCause(err).WithContext("path", r.path)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return common.New(common.KindIO, "failed to append self-improvement record").WithCause(err).WithContext("path", r.path)
	}

	return f.Sync()
}

func (r *FileBackedRepository) publish(ctx context.Context, record ErrorRecord, body []byte) error {
	ch, err := r.rabbit.GetChannel(ctx)
	if err != nil {
		return common.New(common.KindCommunication, "failed to get rabbitmq channel for self-improvement publish").WithCause(err).WithTransient()
	}

	if err := ch.ExchangeDeclare(selfImproveExchange, "topic", true, false, false, false, nil); err != nil {
		return common.New(common.KindCommunication, "failed to declare self-improvement exchange").WithCause(err).WithTransient()
	}

	routingKey := record.ErrorCategory
	if routingKey == "" {
		routingKey = "unknown"
	}

	err = ch.PublishWithContext(ctx, selfImproveExchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return common.New(common.KindCommunication, "failed to publish self-improvement record").WithCause(err).WithTransient()
	}

	return nil
}

func (r *FileBackedRepository) reportPublishFailure(record ErrorRecord, err error) {
	if cpErr, ok := err.(*common.Error); ok {
		cpErr.WithContext("request_id", record.RequestID).Report(r.logger)
		return
	}

	r.logger.WithFields("request_id", record.RequestID).Warnf("self-improvement record publish failed: %v", err)
}
