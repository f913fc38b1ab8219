package config

// Config contains all application settings
type Config struct {
	BindPort      int    `mapstructure:"PORT" yaml:"port"`
	BindHost      string `mapstructure:"HOST" yaml:"host"`
	DatabaseURL   string `mapstructure:"DATABASE_URL" yaml:"database_url"`
	NATSServerURL string `mapstructure:"NATS_URL" yaml:"nats_url"`

	// MQTT broker connection
	MQTTHost           string `mapstructure:"ACS_MQTT_HOST" yaml:"acs_mqtt_host"`
	MQTTPort           int    `mapstructure:"ACS_MQTT_PORT" yaml:"acs_mqtt_port"`
	MQTTUsername       string `mapstructure:"ACS_MQTT_USERNAME" yaml:"acs_mqtt_username"`
	MQTTPassword       string `mapstructure:"ACS_MQTT_PASSWORD" yaml:"acs_mqtt_password"`
	MQTTClientID       string `mapstructure:"ACS_MQTT_CLIENT_ID" yaml:"acs_mqtt_client_id"`
	MQTTCAFile         string `mapstructure:"ACS_MQTT_CA_FILE" yaml:"acs_mqtt_ca_file"`
	MQTTCertFile       string `mapstructure:"ACS_MQTT_CERT_FILE" yaml:"acs_mqtt_cert_file"`
	MQTTKeyFile        string `mapstructure:"ACS_MQTT_KEY_FILE" yaml:"acs_mqtt_key_file"`
	MQTTKeepAlive      int    `mapstructure:"ACS_MQTT_KEEPALIVE" yaml:"acs_mqtt_keepalive"`
	MQTTQoS            int    `mapstructure:"ACS_MQTT_QOS" yaml:"acs_mqtt_qos"`
	MQTTReconnectDelay int    `mapstructure:"ACS_MQTT_RECONNECT_DELAY" yaml:"acs_mqtt_reconnect_delay"`

	// Command protocol
	AckTimeout int `mapstructure:"ACS_MQTT_ACK_TIMEOUT" yaml:"acs_mqtt_ack_timeout"`

	// Presence
	DeviceOfflineAfter int `mapstructure:"ACS_DEVICE_OFFLINE_AFTER" yaml:"acs_device_offline_after"`

	// Version
	BuildVersion string `yaml:"-"`
	BuildHash    string `yaml:"-"`
	BuildTime    string `yaml:"-"`
}
