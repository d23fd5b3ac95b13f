// sol2mqtt polls a SolMate and republishes its live values to an MQTT
// broker, one topic per field:
//
//	eet/solmate/<serial>/<field>   numeric value
//	eet/solmate/<serial>/online    true/false
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"solmate-sdk/internal/logger"
	"solmate-sdk/pkg/solmate"
)

func main() {
	var (
		serial   string
		password string
		uri      string
		broker   string
		clientID string
		interval time.Duration
		level    string
	)
	flag.StringVar(&serial, "serial", "", "SolMate serial number (required)")
	flag.StringVar(&password, "password", "", "user password")
	flag.StringVar(&uri, "uri", "", "endpoint URI, defaults to the public Sol endpoint")
	flag.StringVar(&broker, "broker", "tcp://mqtt.eclipseprojects.io:1883", "MQTT broker URL")
	flag.StringVar(&clientID, "client-id", "sol2mqtt", "MQTT client id")
	flag.DurationVar(&interval, "interval", 10*time.Second, "poll interval")
	flag.StringVar(&level, "log-level", "INFO", "log level")
	flag.Parse()

	if serial == "" {
		log.Fatalf("--serial is required")
	}
	logger.Initialize(logger.Config{Level: level})

	opts := []solmate.Option{}
	if uri != "" {
		opts = append(opts, solmate.WithURI(uri))
	}
	client := solmate.NewClient(serial, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := client.Quickstart(ctx, password); err != nil {
		log.Fatalf("quickstart: %v", err)
	}
	defer client.Close()

	mqttOpts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	mqttClient := mqtt.NewClient(mqttOpts)
	if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer mqttClient.Disconnect(250)
	slog.Info("bridging", "serial", serial, "broker", broker, "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := publishOnce(ctx, client, mqttClient, serial); err != nil {
			// transient failures are logged and retried next tick
			slog.Warn("publish failed", "err", err)
			if err := client.Quickstart(ctx, password); err != nil {
				slog.Warn("reconnect failed", "err", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func publishOnce(ctx context.Context, client *solmate.Client, mqttClient mqtt.Client, serial string) error {
	values, err := client.GetLiveValues(ctx)
	if err != nil {
		return err
	}
	for field := range values {
		v, ok := values.Float(field)
		if !ok {
			continue
		}
		topic := fmt.Sprintf("eet/solmate/%s/%s", serial, field)
		token := mqttClient.Publish(topic, 1, false, strconv.FormatFloat(v, 'f', -1, 64))
		if token.Wait() && token.Error() != nil {
			return token.Error()
		}
	}

	online, err := client.CheckOnline(ctx)
	if err != nil {
		return err
	}
	token := mqttClient.Publish(fmt.Sprintf("eet/solmate/%s/online", serial), 1, false, strconv.FormatBool(online))
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}
