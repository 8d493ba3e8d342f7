package ingestor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	config "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Config"
	"gitlab.com/terrasense1/env.sensor_server/src/production/ENV.IngestorService/client"
	logger "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Logger"
)

// brokerPayload is what the sensor firmware publishes: the same loose
// shape the API accepts, minus the auth header the bridge adds.
type brokerPayload struct {
	Temperature interface{} `json:"temperature"`
	Humidity    interface{} `json:"humidity"`
	CreatedAt   string      `json:"created_at"`
}

type queuedReading struct {
	payload    brokerPayload
	receivedAt time.Time
}

// Ingestor subscribes to the sensor topic and forwards each published
// reading to the API service. Validation stays on the API side; the
// bridge only shuttles bytes and owns producer-side retries.
type Ingestor struct {
	cfg        *config.IngestorConfig
	apiClient  *client.APIClient
	mqttClient mqtt.Client
	msgCh      chan queuedReading
	wg         sync.WaitGroup
	logger     *logger.Logger
}

func New(cfg *config.IngestorConfig, apiClient *client.APIClient, log *logger.Logger) *Ingestor {
	return &Ingestor{
		cfg:       cfg,
		apiClient: apiClient,
		msgCh:     make(chan queuedReading, 4096),
		logger:    log.WithComponent("mqtt-ingestor"),
	}
}

func (i *Ingestor) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(i.cfg.GetBrokerURL()).
		SetClientID(i.cfg.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(false)

	if i.cfg.BrokerUser != "" {
		opts.SetUsername(i.cfg.BrokerUser)
		opts.SetPassword(i.cfg.BrokerPass)
	}

	if i.cfg.UseTLS {
		tlsCfg, err := i.tlsConfig(i.cfg.CACertPath)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		i.logger.Logger.Error().Err(err).Msg("MQTT connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		topic := i.cfg.Topic
		if i.cfg.SharedGroup != "" {
			topic = fmt.Sprintf("$share/%s/%s", i.cfg.SharedGroup, i.cfg.Topic)
		}
		i.logger.Logger.Info().Str("topic", topic).Msg("MQTT connected, subscribing to topic")
		if token := c.Subscribe(topic, 1, i.onMessage); token.Wait() && token.Error() != nil {
			i.logger.Logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
		}
	}

	i.mqttClient = mqtt.NewClient(opts)
	if tk := i.mqttClient.Connect(); tk.Wait() && tk.Error() != nil {
		return tk.Error()
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.forwardLoop(ctx)
	}()

	return nil
}

func (i *Ingestor) Stop() {
	if i.mqttClient != nil && i.mqttClient.IsConnected() {
		i.mqttClient.Disconnect(500)
	}
	close(i.msgCh)
	i.wg.Wait()
}

func (i *Ingestor) IsConnected() bool {
	return i.mqttClient != nil && i.mqttClient.IsConnected()
}

func (i *Ingestor) onMessage(_ mqtt.Client, m mqtt.Message) {
	i.logger.Logger.Debug().Str("topic", m.Topic()).Str("payload", string(m.Payload())).Msg("Received MQTT message")

	var payload brokerPayload
	if err := json.Unmarshal(m.Payload(), &payload); err != nil {
		i.logger.Logger.Warn().Err(err).Str("topic", m.Topic()).Msg("Dropping non-JSON message")
		return
	}

	select {
	case i.msgCh <- queuedReading{payload: payload, receivedAt: time.Now().UTC()}:
	default:
		// Queue full: the API has been unreachable for a while. The
		// sensor publishes periodically, so dropping is safer than
		// blocking the paho callback.
		i.logger.Logger.Warn().Msg("Queue full, dropping reading")
	}
}

func (i *Ingestor) forwardLoop(ctx context.Context) {
	for reading := range i.msgCh {
		createdAt := reading.payload.CreatedAt
		if createdAt == "" {
			createdAt = reading.receivedAt.Format(time.RFC3339)
		}

		req := client.PushReadingRequest{
			CreatedAt: createdAt,
			Source:    i.cfg.SourceTag,
		}
		var ok bool
		if req.Temperature, ok = asFloat(reading.payload.Temperature); !ok {
			i.logger.Logger.Warn().Interface("temperature", reading.payload.Temperature).Msg("Dropping reading with non-numeric temperature")
			continue
		}
		if req.Humidity, ok = asFloat(reading.payload.Humidity); !ok {
			i.logger.Logger.Warn().Interface("humidity", reading.payload.Humidity).Msg("Dropping reading with non-numeric humidity")
			continue
		}

		err := i.apiClient.PushReading(ctx, req)
		switch {
		case err == nil:
			i.logger.Logger.Debug().Float64("temperature", req.Temperature).Float64("humidity", req.Humidity).Msg("Pushed reading")
		case client.IsPermanent(err):
			i.logger.Logger.Warn().Err(err).Msg("API rejected reading, dropping")
		default:
			i.logger.Logger.Error().Err(err).Msg("Failed to push reading")
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (i *Ingestor) tlsConfig(caPath string) (*tls.Config, error) {
	if caPath == "" {
		return &tls.Config{MinVersion: tls.VersionTLS12}, nil
	}

	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file %s: %w", caPath, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caPath)
	}

	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
