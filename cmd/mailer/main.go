package main // recovery mail and reset event worker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/lessons-api/internal/config"
	"github.com/iliyamo/lessons-api/internal/logging"
	"github.com/iliyamo/lessons-api/internal/queue"
)

func main() {
	_ = godotenv.Load()
	mc := config.LoadMailerConfig()
	log := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), "lessons-mailer")

	var mailer queue.Mailer = &queue.FileMailer{Dir: mc.LogDir}
	if mc.SMTPAddr != "" {
		mailer = queue.SMTPMailer{Addr: mc.SMTPAddr, User: mc.SMTPUser, Password: mc.SMTPPassword}
		log.Info("sending recovery mails via smtp", "addr", mc.SMTPAddr)
	} else {
		log.Info("no smtp relay configured, writing mails to file", "dir", mc.LogDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{
		URL:      config.AMQPURL(),
		Mailer:   mailer,
		From:     mc.From,
		LogDir:   mc.LogDir,
		Prefetch: mc.Prefetch,
		Log:      log,
	}
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", "err", err)
		os.Exit(1)
	}
	log.Info("consumer stopped")
}
