package mqtt

import (
	"strings"
	"testing"

	"github.com/nerrad567/virtual-devices-core/internal/infrastructure/config"
)

func testMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "broker.local",
			Port:     1883,
			ClientID: "virtualdevices-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}
}

func TestBuildClientOptionsBrokerURL(t *testing.T) {
	opts := buildClientOptions(testMQTTConfig())

	if len(opts.Servers) != 1 {
		t.Fatalf("%d servers configured, want 1", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://broker.local:1883" {
		t.Errorf("broker URL = %q", got)
	}

	tlsCfg := testMQTTConfig()
	tlsCfg.Broker.TLS = true
	tlsCfg.Broker.Port = 8883
	opts = buildClientOptions(tlsCfg)
	if got := opts.Servers[0].String(); got != "ssl://broker.local:8883" {
		t.Errorf("TLS broker URL = %q", got)
	}
	if opts.TLSConfig == nil {
		t.Error("TLS enabled but no TLS config set")
	}
}

func TestBuildClientOptionsReconnectPolicy(t *testing.T) {
	opts := buildClientOptions(testMQTTConfig())

	if !opts.AutoReconnect {
		t.Error("auto-reconnect must be enabled")
	}
	if !opts.ConnectRetry {
		t.Error("connect retry must be enabled")
	}
	if opts.MaxReconnectInterval.Seconds() != 60 {
		t.Errorf("max reconnect interval = %v, want 60s", opts.MaxReconnectInterval)
	}
}

func TestBuildClientOptionsAuth(t *testing.T) {
	cfg := testMQTTConfig()
	cfg.Auth.Username = "svc"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	if opts.Username != "svc" || opts.Password != "secret" {
		t.Errorf("auth = %q/%q", opts.Username, opts.Password)
	}

	// No credentials: leave auth unset.
	opts = buildClientOptions(testMQTTConfig())
	if opts.Username != "" {
		t.Errorf("username set without credentials: %q", opts.Username)
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("vd-1")
	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, `"client_id":"vd-1"`) {
		t.Errorf("online payload = %s", online)
	}

	offline := buildOfflinePayload("vd-1")
	if !strings.Contains(offline, `"status":"offline"`) || !strings.Contains(offline, "graceful_shutdown") {
		t.Errorf("offline payload = %s", offline)
	}
}
