package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/manuelcattigobetti/provaANPI/config"
	"github.com/manuelcattigobetti/provaANPI/pkg/helpers"
	"github.com/manuelcattigobetti/provaANPI/pkg/mailer"
	"github.com/manuelcattigobetti/provaANPI/pkg/mailer/templates"
)

// The worker drains the email queue and hands each job to Mailgun. Delivery is
// fire and forget: a failed send is logged and the message dropped, never
// requeued.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-emailworker", cfg.Env)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("rabbitmq dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbitmq channel failed: %v", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(cfg.RabbitMQEmailQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare failed: %v", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatalf("qos failed: %v", err)
	}

	deliveries, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume failed: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Infof("email worker consuming %q", cfg.RabbitMQEmailQueue)
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				logger.Warn("delivery channel closed, exiting")
				return
			}
			handle(d, mg, cfg.MailSendEnabled, logger)
		case <-quit:
			logger.Info("email worker shutting down")
			return
		}
	}
}

func handle(d amqp.Delivery, mg *mailer.Mailgun, sendEnabled bool, logger *logrus.Logger) {
	defer func() { _ = d.Ack(false) }()

	var job mailer.EmailJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logger.WithError(err).Warn("dropping malformed email job")
		return
	}

	subject, text := job.Subject, job.Text
	if job.Template != "" {
		var err error
		subject, text, err = templates.Render(job.Template, job.Data)
		if err != nil {
			logger.WithError(err).WithField("template", job.Template).Warn("dropping unrenderable email job")
			return
		}
	}

	if !sendEnabled {
		logger.WithField("to", job.To).Info("mail sending disabled, job dropped")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := mg.Send(ctx, job.To, subject, text); err != nil {
		logger.WithError(err).WithField("to", job.To).Error("email send failed")
		return
	}
	logger.WithField("to", job.To).Info("email sent")
}
