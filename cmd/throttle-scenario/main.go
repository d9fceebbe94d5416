package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"rc-physics-lab/internal/config"
	"rc-physics-lab/internal/models"
	"rc-physics-lab/internal/session"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
)

type step struct {
	name     string
	command  string
	throttle *float64
	wait     time.Duration
	expected string
}

func throttle(v float64) *float64 { return &v }

var scenario = []step{
	{"1. Reset", "reset", nil, 1 * time.Second, "Car stopped at position 0"},
	{"2. Start", "start", nil, 1 * time.Second, "Clock running, no throttle"},
	{"3. Half throttle", "", throttle(0.5), 8 * time.Second, "Car accelerates towards terminal speed"},
	{"4. Full throttle", "", throttle(1.0), 8 * time.Second, "Higher speed, faster drain"},
	{"5. Coast", "", throttle(0), 5 * time.Second, "Friction and drag slow the car"},
	{"6. Stop", "stop", nil, 1 * time.Second, "Clock frozen"},
}

func main() {
	var (
		broker      string
		prefix      string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "throttle-scenario",
		Short: "Replay a scripted throttle scenario against a running rclab over MQTT",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if broker == "" {
				broker = cfg.MQTT.Broker
			}
			if broker == "" {
				broker = "tcp://localhost:1883"
			}
			if prefix == "" {
				prefix = cfg.MQTT.TopicPrefix
			}

			opts := mqtt.NewClientOptions()
			opts.AddBroker(broker)
			opts.SetClientID("rclab-scenario")
			opts.SetUsername(cfg.MQTT.Username)
			opts.SetPassword(cfg.MQTT.Password)

			client := mqtt.NewClient(opts)
			if token := client.Connect(); token.Wait() && token.Error() != nil {
				fmt.Printf("❌ Cannot connect to MQTT (%s)\n", broker)
				fmt.Println("💡 Start a broker first:")
				fmt.Println("   docker run -it -p 1883:1883 eclipse-mosquitto:2.0")
				return token.Error()
			}
			defer client.Disconnect(250)

			fmt.Printf("✅ Connected to %s, topic prefix %q\n\n", broker, prefix)

			client.Subscribe(prefix+"/state", 0, func(_ mqtt.Client, msg mqtt.Message) {
				var frame models.Frame
				if err := json.Unmarshal(msg.Payload(), &frame); err != nil {
					return
				}
				fmt.Printf("   📡 v=%5.2fm/s  x=%6.2fm  lap=%d  battery=%5.1f%%\n",
					frame.State.Velocity, frame.State.Position, frame.State.LapCount, frame.State.BatteryCharge)
			})
			client.Subscribe(prefix+"/lap", 0, func(_ mqtt.Client, msg mqtt.Message) {
				var lap session.LapRecord
				if err := json.Unmarshal(msg.Payload(), &lap); err != nil {
					return
				}
				fmt.Printf("   🏁 lap %d in %.2fs (best: %v)\n", lap.Lap, lap.LapTime, lap.IsBest)
			})

			for _, s := range scenario {
				fmt.Printf("📊 %s\n", s.name)
				fmt.Printf("   Expected: %s\n", s.expected)
				if s.command != "" {
					publish(client, prefix+"/command", session.CommandMessage{Command: s.command})
				}
				if s.throttle != nil {
					publish(client, prefix+"/throttle", session.ThrottleMessage{Throttle: *s.throttle})
				}
				time.Sleep(s.wait)
				fmt.Println()
			}

			fmt.Println("✅ Scenario complete")

			if interactive {
				interactiveMode(client, prefix)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&broker, "broker", "", "MQTT broker URL (default from config or tcp://localhost:1883)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Topic prefix (default from config)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Read throttle values and commands from stdin after the scenario")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func publish(client mqtt.Client, topic string, v interface{}) {
	payload, _ := json.Marshal(v)
	token := client.Publish(topic, 1, false, payload)
	token.Wait()
	fmt.Printf("   → %s %s\n", topic, payload)
}

func interactiveMode(client mqtt.Client, prefix string) {
	fmt.Println()
	fmt.Println("🎮 Interactive mode")
	fmt.Println("   <0..1>              - set throttle")
	fmt.Println("   start | stop | reset")
	fmt.Println("   quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case "":
			continue
		case "quit", "exit", "q":
			return
		case "start", "stop", "reset":
			publish(client, prefix+"/command", session.CommandMessage{Command: input})
		default:
			v, err := strconv.ParseFloat(input, 64)
			if err != nil {
				fmt.Println("❌ Unknown command")
				continue
			}
			publish(client, prefix+"/throttle", session.ThrottleMessage{Throttle: v})
		}
	}
}
