package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Default topics of the recommendation transport. The last segment of a
// request topic is the request identifier echoed on the response topic.
const (
	DefaultRequestTopic   = "freight/predict/request/+"
	DefaultResponsePrefix = "freight/predict/response/"

	// MaxRetriesLimit bounds max_retries.
	MaxRetriesLimit = 10
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled        bool            `json:"enabled"`
	Broker         string          `json:"broker"`
	ClientID       string          `json:"client_id"`
	Username       string          `json:"username"`
	Password       string          `json:"password"`
	RequestTopic   string          `json:"request_topic"`
	ResponsePrefix string          `json:"response_prefix"`
	UseTLS         bool            `json:"use_tls"`
	ClientCert     string          `json:"client_cert"`
	ClientKey      string          `json:"client_key"`
	CABundle       string          `json:"ca_bundle"`
	AuthMethod     string          `json:"auth_method"`
	QoS            map[string]byte `json:"qos"`
	LWTTopic       string          `json:"lwt_topic"`
	LWTPayload     string          `json:"lwt_payload"`
	LWTQoS         byte            `json:"lwt_qos"`
	LWTRetain      bool            `json:"lwt_retain"`
	MaxRetries     int             `json:"max_retries"`
	BackoffMS      int             `json:"backoff_ms"`
	TLSConfig      *tls.Config     `json:"-"`
}

// SetDefaults fills the topic names and retry policy.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "freightrec"
	}
	if c.RequestTopic == "" {
		c.RequestTopic = DefaultRequestTopic
	}
	if c.ResponsePrefix == "" {
		c.ResponsePrefix = DefaultResponsePrefix
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the settings needed to connect when the transport is
// enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	switch c.AuthMethod {
	case "", "username_password", "mtls", "both":
	default:
		return fmt.Errorf("mqtt: unknown auth_method %q", c.AuthMethod)
	}
	if (c.AuthMethod == "mtls" || c.AuthMethod == "both") && !c.UseTLS {
		return fmt.Errorf("mqtt: auth_method %q requires use_tls", c.AuthMethod)
	}
	if c.MaxRetries < 0 || c.MaxRetries > MaxRetriesLimit {
		return fmt.Errorf("mqtt: max_retries must be within [0,%d]", MaxRetriesLimit)
	}
	if c.BackoffMS < 0 {
		return fmt.Errorf("mqtt: backoff_ms must not be negative")
	}
	return nil
}

func (c Config) qos(name string) byte {
	if q, ok := c.QoS[name]; ok {
		return q
	}
	return 0
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	// Handlers publish replies and wait on the token.
	opts.SetOrderMatters(false)
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s has no certificates", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
