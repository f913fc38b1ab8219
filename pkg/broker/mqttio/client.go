package mqttio

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fitlab/doorman/pkg/broker"
)

const publishTimeout = 10 * time.Second

// Config contains the broker connection settings
type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	ClientID       string
	CAFile         string
	CertFile       string
	KeyFile        string
	KeepAlive      time.Duration
	QoS            byte
	ReconnectDelay time.Duration
}

type mqttClient struct {
	cfg    *Config
	client mqtt.Client

	filters []string
	handler broker.MessageHandler
}

// New connects to the MQTT broker and returns a broker transport. The
// underlying client reconnects on its own with the configured delay and
// restores all subscriptions on every reconnect.
func New(cfg *Config) (broker.Interface, error) {
	c := &mqttClient{cfg: cfg}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL(cfg)).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(cfg.KeepAlive).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(cfg.ReconnectDelay).
		SetOnConnectHandler(c.handleConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Error("broker connection lost: ", err)
		})

	if cfg.CertFile != "" {
		tlsConfig, err := newTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrap(token.Error(), "failed to connect to broker")
	}

	return c, nil
}

func (c *mqttClient) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, c.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timed out")
	}
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "failed to publish")
	}

	return nil
}

func (c *mqttClient) Subscribe(filters []string, handler broker.MessageHandler) error {
	c.filters = filters
	c.handler = handler

	return c.subscribe()
}

func (c *mqttClient) Close() {
	c.client.Disconnect(250)
}

// handleConnect runs on every (re)connect and restores the subscriptions,
// since the broker drops them together with the session.
func (c *mqttClient) handleConnect(_ mqtt.Client) {
	if c.handler == nil {
		return
	}

	log.Info("broker connected, restoring subscriptions")
	if err := c.subscribe(); err != nil {
		log.Error("broker failed to restore subscriptions: ", err)
	}
}

func (c *mqttClient) subscribe() error {
	topics := make(map[string]byte, len(c.filters))
	for _, filter := range c.filters {
		topics[filter] = c.cfg.QoS
	}

	token := c.client.SubscribeMultiple(topics, func(_ mqtt.Client, msg mqtt.Message) {
		c.handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return errors.Wrap(token.Error(), "failed to subscribe")
	}

	return nil
}

func brokerURL(cfg *Config) string {
	scheme := "tcp"
	if cfg.CertFile != "" {
		scheme = "ssl"
	}

	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)
}

func newTLSConfig(cfg *Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CAFile != "" {
		ca, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read broker CA file")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(ca) {
			return nil, errors.New("failed to parse broker CA file")
		}
		tlsConfig.RootCAs = pool
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load broker client certificate")
	}
	tlsConfig.Certificates = []tls.Certificate{cert}

	return tlsConfig, nil
}
