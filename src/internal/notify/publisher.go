package notify

import (
	"encoding/json"
	"fmt"
	"taskhub-collab-svc/src/internal/config"
	"taskhub-collab-svc/src/internal/models"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// Publisher pushes notification and activity messages onto the message bus.
// Delivery to offline users happens from the queue; live delivery goes over
// the realtime layer and does not pass through here.
type Publisher interface {
	PublishNotification(msg *models.NotificationMessage) error
	PublishActivity(userID, sessionID, action string) error
}

type publisher struct {
	channel *amqp.Channel
	cfg     *config.RabbitMQConfig
}

func NewPublisher(channel *amqp.Channel, cfg *config.Configuration) Publisher {
	return &publisher{
		channel: channel,
		cfg:     &cfg.Queue.RabbitMQ,
	}
}

func (p *publisher) PublishNotification(msg *models.NotificationMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification message: %w", err)
	}

	err = p.channel.Publish(
		p.cfg.Exchange,
		p.cfg.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		logrus.WithError(err).Error("Failed to publish notification message")
		return fmt.Errorf("failed to publish notification message: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     msg.UserID,
		"type":        msg.Type,
		"exchange":    p.cfg.Exchange,
		"routing_key": p.cfg.RoutingKey,
	}).Debug("Notification message published")

	return nil
}

func (p *publisher) PublishActivity(userID, sessionID, action string) error {
	message := models.ActivityMessage{
		UserID:      userID,
		SessionID:   sessionID,
		ServiceName: models.ServiceAuth,
		Action:      action,
		Timestamp:   time.Now(),
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal activity message: %w", err)
	}

	err = p.channel.Publish(
		p.cfg.Exchange,
		"activity.user",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		logrus.WithError(err).Error("Failed to publish activity message")
		return fmt.Errorf("failed to publish activity message: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sessionID,
		"action":     action,
	}).Debug("Activity message published")

	return nil
}
