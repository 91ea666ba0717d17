package mrabbitmq

import (
	"context"
	"errors"

	"github.com/LerianStudio/midaz/common/mlog"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQConnection is a hub which deals with rabbitmq connections, used by
// the self-improvement ingest pipeline to best-effort publish accepted
// error records for async downstream adaptation consumers.
type RabbitMQConnection struct {
	ConnectionStringSource string
	Consumer               string
	Producer               string
	Connection             *amqp.Connection
	Channel                *amqp.Channel
	Connected              bool
	Logger                 mlog.Logger
}

// Connect keeps a singleton connection with rabbitmq.
func (rc *RabbitMQConnection) Connect(ctx context.Context) error {
	rc.Logger.Info("Connecting on rabbitmq...")

	conn, err := amqp.Dial(rc.ConnectionStringSource)
	if err != nil {
		rc.Logger.Error("failed to connect on rabbitmq", zap.Error(err))
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		rc.Logger.Error("failed to open channel on rabbitmq", zap.Error(err))
		_ = conn.Close()

		return err
	}

	rc.Connection = conn
	rc.Channel = ch

	if !rc.healthCheck() {
		rc.Connected = false
		err := errors.New("can't connect rabbitmq")
		rc.Logger.Error("RabbitMQ.HealthCheck", zap.Error(err))

		return err
	}

	rc.Logger.Info("Connected on rabbitmq")

	rc.Connected = true

	return nil
}

// GetChannel returns the rabbitmq channel, initializing the connection if necessary.
func (rc *RabbitMQConnection) GetChannel(ctx context.Context) (*amqp.Channel, error) {
	if !rc.Connected {
		if err := rc.Connect(ctx); err != nil {
			rc.Logger.Infof("ERRCONECT %s", err)
			return nil, err
		}
	}

	return rc.Channel, nil
}

// healthCheck declares (passively) the well-known queue every deployment of
// this module provisions, confirming the channel can actually talk to the
// broker rather than just having dialed successfully.
func (rc *RabbitMQConnection) healthCheck() bool {
	_, err := rc.Channel.QueueDeclarePassive(
		"health_check_queue",
		true,
		false,
		false,
		false,
		nil,
	)

	if err != nil {
		rc.Logger.Error("rabbitmq unhealthy", zap.Error(err))
		return false
	}

	return true
}
