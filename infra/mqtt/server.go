package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/freightrec/core/monitoring"
	"github.com/kilianp07/freightrec/core/recommend"
	"github.com/kilianp07/freightrec/infra/logger"
)

// Recommender produces a recommendation for a decoded request.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) recommend.Response
}

// Server answers recommendation requests published on the request topic.
// Each reply is published on ResponsePrefix followed by the request id.
type Server struct {
	cfg    Config
	svc    Recommender
	logger logger.Logger

	cli     pahoClient
	base    context.Context
	backoff time.Duration

	// mu guards closing and every wg.Add so that Close never waits while a
	// handler is being admitted.
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// maxBackoff bounds the delay between two publish attempts.
const maxBackoff = 30 * time.Second

// NewServer returns a Server. Call Start or Run to connect.
func NewServer(cfg Config, svc Recommender, log logger.Logger) *Server {
	cfg.SetDefaults()
	if log == nil {
		log = logger.New("mqtt")
	}
	return &Server{
		cfg:     cfg,
		svc:     svc,
		logger:  log,
		base:    context.Background(),
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
}

// Start connects to the broker. The subscription is (re)established on every
// connection. Requests in flight keep running after ctx is done until Close.
func (s *Server) Start(ctx context.Context) error {
	opts, err := NewClientOptions(s.cfg)
	if err != nil {
		return err
	}
	s.base = context.WithoutCancel(ctx)
	opts.OnConnect = func(c paho.Client) {
		s.logger.Infof("MQTT connected, subscribing to %s", s.cfg.RequestTopic)
		if token := c.Subscribe(s.cfg.RequestTopic, s.cfg.qos("request"), s.handle); token.Wait() && token.Error() != nil {
			s.logger.Errorf("subscribe error: %v", token.Error())
			monitoring.CaptureException(token.Error(), map[string]string{"module": "mqtt", "topic": s.cfg.RequestTopic})
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		s.logger.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		s.logger.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", s.cfg.Broker, token.Error())
	}
	s.cli = c
	return nil
}

// Run starts the server and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Close()
	return nil
}

// Close stops accepting requests, waits for the requests in flight and
// disconnects. It is safe to call more than once.
func (s *Server) Close() {
	s.mu.Lock()
	already := s.closing
	s.closing = true
	s.mu.Unlock()
	if already {
		return
	}
	if s.cli != nil && s.cli.IsConnected() {
		if token := s.cli.Unsubscribe(s.cfg.RequestTopic); token.Wait() && token.Error() != nil {
			s.logger.Warnf("unsubscribe %s: %v", s.cfg.RequestTopic, token.Error())
		}
	}
	s.wg.Wait()
	if s.cli != nil && s.cli.IsConnected() {
		s.cli.Disconnect(250)
	}
}

// RequestID extracts the request identifier from a request topic.
func RequestID(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

func (s *Server) handle(_ paho.Client, msg paho.Message) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		s.logger.Debugf("dropping %s: server closing", msg.Topic())
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	id := RequestID(msg.Topic())
	if id == "" {
		id = uuid.NewString()
	}
	tags := map[string]string{"module": "mqtt", "topic": msg.Topic(), "request_id": id}
	defer func() {
		if v := recover(); v != nil {
			s.logger.Errorf("panic handling %s: %v", msg.Topic(), v)
			monitoring.CapturePanic(v, tags)
		}
	}()

	var resp recommend.Response
	var req recommend.Request
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		resp = recommend.Response{
			Error:     fmt.Sprintf("invalid request body: %v", err),
			ErrorKind: recommend.KindInputConversion,
			RequestID: id,
		}
	} else {
		ctx := recommend.WithTransport(recommend.WithRequestID(s.base, id), "mqtt")
		resp = s.svc.Recommend(ctx, req)
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Errorf("encode response %s: %v", id, err)
		monitoring.CaptureException(err, tags)
		return
	}
	if err := s.publish(s.cfg.ResponsePrefix+id, payload); err != nil {
		s.logger.Errorf("reply %s: %v", id, err)
		monitoring.CaptureException(err, tags)
	}
}

// publish sends payload, retrying with exponential backoff.
func (s *Server) publish(topic string, payload []byte) error {
	qos := s.cfg.qos("response")
	var errs []error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		token := s.cli.Publish(topic, qos, false, payload)
		token.Wait()
		err := token.Error()
		if err == nil {
			s.logger.Debugf("sent response on %s", topic)
			return nil
		}
		errs = append(errs, err)
		s.logger.Warnf("publish attempt %d failed: %v", attempt+1, err)
		if attempt == s.cfg.MaxRetries {
			break
		}
		time.Sleep(s.delay(attempt))
	}
	return fmt.Errorf("publish %s after %d attempt(s): %w", topic, len(errs), errors.Join(errs...))
}

// delay returns the exponential backoff before retry attempt+1, capped at
// maxBackoff.
func (s *Server) delay(attempt int) time.Duration {
	if s.backoff <= 0 {
		return 0
	}
	d := s.backoff
	for i := 0; i < attempt; i++ {
		if d >= maxBackoff/2 {
			return maxBackoff
		}
		d *= 2
	}
	return min(d, maxBackoff)
}
