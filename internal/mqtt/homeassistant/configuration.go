package homeassistant

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the subset of mqtt.Client used for discovery.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type Device struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
}

type ConfigurationItem struct {
	DeviceClass       DeviceClass `json:"device_class,omitempty"`
	UnitOfMeasurement Unit        `json:"unit_of_measurement,omitempty"`
	Device            Device      `json:"device"`
	StateClass        string      `json:"state_class,omitempty"`
	UniqueId          string      `json:"unique_id"`
	Name              string      `json:"name"`
	StateTopic        string      `json:"state_topic"`
	ValueTemplate     string      `json:"value_template,omitempty"`
}

type sensor struct {
	name        string
	field       string
	deviceClass DeviceClass
	unit        Unit
	stateClass  string
}

var carSensors = []sensor{
	{"Velocity", "state.velocity", Speed, MetersPerSecond, "measurement"},
	{"Position", "state.position", Distance, Meters, "measurement"},
	{"Battery Charge", "state.battery_charge", Battery, Percent, "measurement"},
	{"Total Energy", "state.total_energy", Energy, J, "total_increasing"},
	{"Lap Count", "state.lap_count", NoDeviceClass, None, "total_increasing"},
	{"Lap Time", "state.lap_time", Duration, Seconds, "measurement"},
	{"Best Lap Time", "state.best_lap_time", Duration, Seconds, "measurement"},
	{"Throttle", "effective_throttle", NoDeviceClass, None, "measurement"},
	{"Battery Voltage", "parameters.battery_voltage", Voltage, V, "measurement"},
	{"Battery Current", "parameters.battery_current", Current, A, "measurement"},
}

// CarSensors describes the frame fields exposed as Home Assistant sensors.
func CarSensors(deviceID, deviceName, stateTopic string) []ConfigurationItem {
	device := Device{Identifiers: []string{deviceID}, Name: deviceName}
	items := make([]ConfigurationItem, 0, len(carSensors))
	for _, s := range carSensors {
		items = append(items, ConfigurationItem{
			DeviceClass:       s.deviceClass,
			UnitOfMeasurement: s.unit,
			Device:            device,
			StateClass:        s.stateClass,
			UniqueId:          deviceID + "_" + objectID(s.name),
			Name:              s.name,
			StateTopic:        stateTopic,
			ValueTemplate:     "{{ value_json." + s.field + " }}",
		})
	}
	return items
}

func objectID(name string) string {
	return strings.Replace(strings.ToLower(name), " ", "_", -1)
}

// SendConfigurationToHa publishes retained discovery configs.
func SendConfigurationToHa(client Publisher, config []ConfigurationItem, globalName string) error {
	for _, configItem := range config {
		b, err := json.Marshal(configItem)
		if err != nil {
			return fmt.Errorf("encode %s: %w", configItem.Name, err)
		}
		name := globalName + "_" + objectID(configItem.Name)
		token := client.Publish("homeassistant/sensor/"+name+"/config", 0, true, b)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("publish %s: %w", name, token.Error())
		}
	}
	return nil
}
