// gatewayclient connects a bot to the discord gateway and logs every event it receives.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/discordpkg/gatewayclient"
	"github.com/discordpkg/gatewayclient/event"
	"github.com/discordpkg/gatewayclient/intent"
	"github.com/discordpkg/gatewayclient/internal/config"
	"github.com/discordpkg/gatewayclient/rest"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var logLevel string
	var verbose bool

	flagSet := pflag.NewFlagSet("gatewayclient", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")
	flagSet.StringVar(&logLevel, "log-level", "", "overrides log_level from the configuration")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log every raw gateway payload")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	restTransport := newRESTTransport(cfg, logger)
	if cfg.AlertChannelID != "" {
		// the hook must not feed on its own transport's logs
		hook := newAlertHook(newRESTTransport(cfg, nil), cfg.AlertChannelID, 5*time.Second, 64)
		logger.AddHook(hook)
		defer hook.Close()
	}

	client, err := gatewayclient.NewClient(clientOptions(cfg, logger, restTransport)...)
	if err != nil {
		return fmt.Errorf("unable to configure gateway client. %w", err)
	}

	if verbose {
		client.OnRaw(func(payload *gatewayclient.Payload) {
			logger.WithFields(logrus.Fields{
				"op":    payload.Op,
				"event": payload.EventName,
				"seq":   payload.Seq,
			}).Debug(string(payload.Data))
		})
	}
	gatewayclient.On(client, event.Ready, func(ready *gatewayclient.Ready) {
		logger.WithField("session", ready.SessionID).Infof("ready with %d guilds", len(ready.Guilds))
	})
	client.On(event.Resumed, func(interface{}) {
		logger.Info("session resumed")
	})
	gatewayclient.On(client, event.GuildSync, func(sync *gatewayclient.GuildSync) {
		logger.WithField("guild", sync.ID).Infof("synced %d members", len(sync.Members))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = client.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		done := make(chan error, 1)
		go func() {
			done <- client.Close()
		}()
		select {
		case err = <-done:
		case <-time.After(cfg.ShutdownTimeout):
			err = errors.New("timed out closing the gateway connection")
		}
	}
	return err
}

func newLogger(level string) (*logrus.Logger, error) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(parsed)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger, nil
}

func newRESTTransport(cfg *config.Config, logger logrus.FieldLogger) *rest.Transport {
	options := []rest.Option{
		rest.WithBotToken(cfg.BotToken),
	}
	if logger != nil {
		options = append(options, rest.WithLogger(logger))
	}
	if cfg.REST.BaseURL != "" {
		options = append(options, rest.WithBaseURL(cfg.REST.BaseURL))
	}
	if cfg.REST.UserAgent != "" {
		options = append(options, rest.WithUserAgent(cfg.REST.UserAgent))
	}
	if cfg.REST.MaxFailures > 0 {
		options = append(options, rest.WithCircuitBreaker(cfg.REST.MaxFailures, cfg.REST.BreakerReset))
	}
	return rest.New(options...)
}

func clientOptions(cfg *config.Config, logger logrus.FieldLogger, restTransport *rest.Transport) []gatewayclient.Option {
	options := []gatewayclient.Option{
		gatewayclient.WithBotToken(cfg.BotToken),
		gatewayclient.WithLogger(logger),
		gatewayclient.WithRESTTransport(restTransport),
		gatewayclient.WithCompression(cfg.Compress),
		gatewayclient.WithLargeThreshold(cfg.LargeThreshold),
	}
	if cfg.GatewayURL != "" {
		options = append(options, gatewayclient.WithGatewayURL(cfg.GatewayURL))
	}
	if cfg.MaxReconnectAttempts > 0 {
		options = append(options, gatewayclient.WithMaxReconnectAttempts(cfg.MaxReconnectAttempts))
	}
	if cfg.Intents > 0 {
		options = append(options, gatewayclient.WithIntents(intent.Type(cfg.Intents)))
	}
	if len(cfg.GuildEvents) > 0 {
		options = append(options, gatewayclient.WithGuildEvents(toEvents(cfg.GuildEvents)...))
	}
	if len(cfg.DirectMessageEvents) > 0 {
		options = append(options, gatewayclient.WithDirectMessageEvents(toEvents(cfg.DirectMessageEvents)...))
	}
	return options
}

func toEvents(names []string) []event.Type {
	events := make([]event.Type, 0, len(names))
	for _, name := range names {
		events = append(events, event.Type(name))
	}
	return events
}
