package opcua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/ghalamif/airdaq/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session.
type Config struct {
	Endpoint        string `yaml:"endpoint"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	SecurityMode    string `yaml:"security_mode"`
	SecurityPolicy  string `yaml:"security_policy"`
	ApplicationName string `yaml:"application_name"`
}

// NodeConfig selects the node a sensor channel reads.
type NodeConfig struct {
	NodeID string `yaml:"node_id"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "airdaq"
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	return nil
}

type client interface {
	Read(ctx context.Context, req *ua.ReadRequest) (*ua.ReadResponse, error)
	Close(ctx context.Context) error
}

// Session is one OPC UA connection shared by every opcua channel. It
// connects lazily and drops the connection after a failed read so the next
// cycle reconnects.
type Session struct {
	cfg  Config
	dial func(ctx context.Context) (client, error)

	mu     sync.Mutex
	client client
}

func NewSession(cfg Config) (*Session, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{cfg: cfg}
	s.dial = s.connect
	return s, nil
}

func (s *Session) connect(ctx context.Context) (client, error) {
	c, err := opcua.NewClient(s.cfg.Endpoint, s.buildClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcua connect: %w", err)
	}
	return c, nil
}

// Open connects if not already connected.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.ensure(ctx)
	return err
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// ensure must be called with s.mu held.
func (s *Session) ensure(ctx context.Context) (client, error) {
	if s.client != nil {
		return s.client, nil
	}
	c, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	s.client = c
	return c, nil
}

func (s *Session) read(ctx context.Context, id *ua.NodeID) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.ensure(ctx)
	if err != nil {
		return 0, err
	}
	resp, err := c.Read(ctx, &ua.ReadRequest{
		MaxAge:             2000,
		NodesToRead:        []*ua.ReadValueID{{NodeID: id, AttributeID: ua.AttributeIDValue}},
		TimestampsToReturn: ua.TimestampsToReturnBoth,
	})
	if err != nil {
		s.drop()
		return 0, fmt.Errorf("opcua read %s: %w", id, err)
	}
	if len(resp.Results) == 0 {
		return 0, fmt.Errorf("opcua read %s: empty result", id)
	}
	res := resp.Results[0]
	if res.Status != ua.StatusOK {
		return 0, fmt.Errorf("opcua read %s: %s", id, res.Status)
	}
	v, ok := variantToFloat(res.Value)
	if !ok {
		return 0, fmt.Errorf("opcua read %s: value is not numeric", id)
	}
	return v, nil
}

// drop must be called with s.mu held.
func (s *Session) drop() {
	if s.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Close(ctx)
	s.client = nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.client.Close(ctx)
	s.client = nil
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Source reads the Value attribute of one node.
type Source struct {
	sess *Session
	node *ua.NodeID
}

func (s *Session) Source(node NodeConfig) (*Source, error) {
	id, err := ua.ParseNodeID(node.NodeID)
	if err != nil {
		return nil, fmt.Errorf("parse node id %q: %w", node.NodeID, err)
	}
	return &Source{sess: s, node: id}, nil
}

func (src *Source) Read(ctx context.Context) (float64, error) {
	return src.sess.read(ctx, src.node)
}

func (s *Session) buildClientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(s.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(s.cfg.SecurityPolicy)),
		opcua.ApplicationName(s.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if s.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(s.cfg.Username, s.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var (
	_ ports.SensorSource = (*Source)(nil)
	_ ports.Opener       = (*Session)(nil)
)
