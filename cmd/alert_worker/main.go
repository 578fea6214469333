package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/phq9-intake/config"
	"github.com/oksasatya/phq9-intake/pkg/helpers"
	"github.com/oksasatya/phq9-intake/pkg/mailer"
)

// errMalformed marks jobs that can never succeed and must not be requeued.
var errMalformed = errors.New("malformed job")

type action int

const (
	ack action = iota
	drop
	requeue
)

// settle decides what happens to a delivery after handle. A transient
// failure is retried once; a second failure drops the job.
func settle(err error, redelivered bool) action {
	switch {
	case err == nil:
		return ack
	case errors.Is(err, errMalformed), redelivered:
		return drop
	default:
		return requeue
	}
}

// handle renders and sends one queued job.
func handle(ctx context.Context, sender mailer.Sender, defaultTo string, body []byte) error {
	var job mailer.EmailJob
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber() // keep ids and scores as written
	if err := dec.Decode(&job); err != nil {
		return errors.Join(errMalformed, err)
	}
	if err := helpers.NormalizeJob(&job, defaultTo); err != nil {
		return errors.Join(errMalformed, err)
	}
	subject, text, html, err := helpers.RenderJob(job)
	if err != nil {
		return errors.Join(errMalformed, err)
	}
	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := sender.Send(c, job.To, subject, text, html); err != nil {
		if errors.Is(err, mailer.ErrRejected) {
			return errors.Join(errMalformed, err)
		}
		return err
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-alert-worker", cfg.Env)
	if !cfg.AlertsEnabled {
		logger.Info("ALERTS_ENABLED=false; alert worker disabled")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQAlertQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("amqp dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Fatal("amqp channel")
	}
	defer func() { _ = ch.Close() }()

	// bounded prefetch for fair dispatch between workers
	if err := ch.Qos(16, 0, false); err != nil {
		logger.WithError(err).Fatal("qos")
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQAlertQueue); err != nil {
		logger.WithError(err).Fatal("queue declare")
	}

	msgs, err := ch.Consume(cfg.RabbitMQAlertQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).Fatal("consume")
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			err := handle(ctx, mg, cfg.ClinicianAlertEmail, msg.Body)
			switch settle(err, msg.Redelivered) {
			case ack:
				helpers.LogInfo(logger, "risk alert sent", logrus.Fields{"delivery_tag": msg.DeliveryTag})
				_ = msg.Ack(false)
			case drop:
				helpers.LogError(logger, "dropping alert job", err, logrus.Fields{"redelivered": msg.Redelivered})
				_ = msg.Nack(false, false)
			case requeue:
				logger.WithError(err).Warn("send failed, requeueing")
				time.Sleep(time.Second)
				_ = msg.Nack(false, true)
			}
		}
	}()

	logger.Infof("alert worker listening on queue=%s", cfg.RabbitMQAlertQueue)
	<-stop
	logger.Info("shutting down...")
	cancel()
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
