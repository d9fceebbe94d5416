package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"rc-physics-lab/internal/config"
	"rc-physics-lab/internal/models"
	"rc-physics-lab/internal/mqtt/homeassistant"
	"rc-physics-lab/internal/session"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

type Client struct {
	client mqtt.Client
	config *config.Config
	logger *logrus.Logger

	publishInterval time.Duration
	lastPublish     time.Time
	mutex           sync.Mutex

	onThrottle func(throttle float64)
	onCommand  func(cmd session.Command)
}

func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if !cfg.MQTT.Enabled() {
		return nil, fmt.Errorf("mqtt broker not configured")
	}

	c := &Client{
		config:          cfg,
		logger:          logger,
		publishInterval: time.Duration(cfg.MQTT.PublishInterval) * time.Millisecond,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)
	opts.SetUsername(cfg.MQTT.Username)
	opts.SetPassword(cfg.MQTT.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetOnConnectHandler(c.onConnect)

	c.client = mqtt.NewClient(opts)

	return c, nil
}

func (c *Client) Connect() error {
	c.logger.Info("Connecting to MQTT broker...")

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	c.logger.Info("Connected to MQTT broker")
	return nil
}

func (c *Client) Disconnect() {
	c.logger.Info("Disconnecting from MQTT broker...")
	c.client.Disconnect(250)
}

func (c *Client) SetCallbacks(onThrottle func(float64), onCommand func(session.Command)) {
	c.onThrottle = onThrottle
	c.onCommand = onCommand
}

func (c *Client) topic(name string) string {
	return c.config.MQTT.TopicPrefix + "/" + name
}

func (c *Client) StateTopic() string    { return c.topic("state") }
func (c *Client) LapTopic() string      { return c.topic("lap") }
func (c *Client) ThrottleTopic() string { return c.topic("throttle") }
func (c *Client) CommandTopic() string  { return c.topic("command") }

func (c *Client) onConnect(client mqtt.Client) {
	c.logger.Info("MQTT connected, subscribing to topics...")

	if token := client.Subscribe(c.ThrottleTopic(), 1, c.handleThrottleMessage); token.Wait() && token.Error() != nil {
		c.logger.Errorf("Failed to subscribe to throttle topic: %v", token.Error())
	} else {
		c.logger.Infof("Subscribed to throttle topic: %s", c.ThrottleTopic())
	}

	if token := client.Subscribe(c.CommandTopic(), 1, c.handleCommandMessage); token.Wait() && token.Error() != nil {
		c.logger.Errorf("Failed to subscribe to command topic: %v", token.Error())
	} else {
		c.logger.Infof("Subscribed to command topic: %s", c.CommandTopic())
	}

	if c.config.MQTT.HomeAssistant {
		items := homeassistant.CarSensors(c.config.MQTT.DeviceID, "RC Physics Lab", c.StateTopic())
		if err := homeassistant.SendConfigurationToHa(client, items, c.config.MQTT.DeviceID); err != nil {
			c.logger.Errorf("Failed to send Home Assistant discovery: %v", err)
		} else {
			c.logger.Infof("Sent %d Home Assistant sensor configs", len(items))
		}
	}
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	c.logger.Errorf("MQTT connection lost: %v", err)
}

func (c *Client) handleThrottleMessage(client mqtt.Client, msg mqtt.Message) {
	c.logger.Debugf("Received throttle message: %s", string(msg.Payload()))

	throttle, err := session.ParseThrottle(msg.Payload())
	if err != nil {
		c.logger.Errorf("Failed to parse throttle value: %v", err)
		return
	}

	c.logger.Infof("Remote throttle: %.2f", throttle)
	if c.onThrottle != nil {
		c.onThrottle(throttle)
	}
}

func (c *Client) handleCommandMessage(client mqtt.Client, msg mqtt.Message) {
	c.logger.Debugf("Received command message: %s", string(msg.Payload()))

	cmd, err := session.ParseCommand(msg.Payload())
	if err != nil {
		c.logger.Errorf("Failed to parse command: %v", err)
		return
	}

	c.logger.Infof("Remote command: %s", cmd)
	if c.onCommand != nil {
		c.onCommand(cmd)
	}
}

// shouldPublish rate-limits frame publication to publish_interval.
func (c *Client) shouldPublish(now time.Time) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if now.Sub(c.lastPublish) < c.publishInterval {
		return false
	}
	c.lastPublish = now
	return true
}

func (c *Client) publish(topic string, retained bool, v interface{}) error {
	if !c.client.IsConnected() {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	token := c.client.Publish(topic, 0, retained, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

// PublishFrame publishes at most one frame per publish_interval.
func (c *Client) PublishFrame(frame models.Frame) {
	if !c.shouldPublish(time.Now()) {
		return
	}
	if err := c.publish(c.StateTopic(), false, frame); err != nil {
		c.logger.Errorf("Failed to publish frame: %v", err)
	}
}

func (c *Client) PublishLap(lap session.LapRecord) {
	if err := c.publish(c.LapTopic(), false, lap); err != nil {
		c.logger.Errorf("Failed to publish lap %d: %v", lap.Lap, err)
	}
}
