package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fitlab/doorman/config"
	"github.com/fitlab/doorman/pkg/cmd/cli"
)

var cfgFile string
var c = new(config.Config)
var cmdHandler = cli.NewHandler(c)

var (
	Version   = "dev-master"
	BuildTime = "undefined"
	GitHash   = "undefined"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "doorman",
	Short: "Project Doorman (Access Control)",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	},
}

// Execute runs the doorman and is called by main.main()
func Execute() {
	c.BuildTime = BuildTime
	c.BuildVersion = Version
	c.BuildHash = GitHash

	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// enable ability to specify config file via flag
		viper.SetConfigFile(cfgFile)
	} else {
		path := absPathify("$HOME")
		if _, err := os.Stat(filepath.Join(path, ".doorman.yml")); err != nil {
			_, _ = os.Create(filepath.Join(path, ".doorman.yml"))
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName(".doorman") // name of config file (without extension)
		viper.AddConfigPath("$HOME")    // adding home directory as first search path
	}
	viper.AutomaticEnv() // read in environment variables that match

	// Fetch settings
	viper.BindEnv("PORT")
	viper.SetDefault("PORT", 8080)

	viper.BindEnv("HOST")
	viper.SetDefault("HOST", "")

	viper.BindEnv("DATABASE_URL")
	viper.SetDefault("DATABASE_URL", "")

	viper.BindEnv("NATS_URL")
	viper.SetDefault("NATS_URL", "nats://nats:4222")

	viper.BindEnv("ACS_MQTT_HOST")
	viper.SetDefault("ACS_MQTT_HOST", "localhost")

	viper.BindEnv("ACS_MQTT_PORT")
	viper.SetDefault("ACS_MQTT_PORT", 8883)

	viper.BindEnv("ACS_MQTT_USERNAME")
	viper.SetDefault("ACS_MQTT_USERNAME", "")

	viper.BindEnv("ACS_MQTT_PASSWORD")
	viper.SetDefault("ACS_MQTT_PASSWORD", "")

	viper.BindEnv("ACS_MQTT_CLIENT_ID")
	viper.SetDefault("ACS_MQTT_CLIENT_ID", "doorman")

	viper.BindEnv("ACS_MQTT_CA_FILE")
	viper.SetDefault("ACS_MQTT_CA_FILE", "")

	viper.BindEnv("ACS_MQTT_CERT_FILE")
	viper.SetDefault("ACS_MQTT_CERT_FILE", "")

	viper.BindEnv("ACS_MQTT_KEY_FILE")
	viper.SetDefault("ACS_MQTT_KEY_FILE", "")

	viper.BindEnv("ACS_MQTT_KEEPALIVE")
	viper.SetDefault("ACS_MQTT_KEEPALIVE", 30)

	viper.BindEnv("ACS_MQTT_QOS")
	viper.SetDefault("ACS_MQTT_QOS", 1)

	viper.BindEnv("ACS_MQTT_RECONNECT_DELAY")
	viper.SetDefault("ACS_MQTT_RECONNECT_DELAY", 1)

	viper.BindEnv("ACS_MQTT_ACK_TIMEOUT")
	viper.SetDefault("ACS_MQTT_ACK_TIMEOUT", 10)

	viper.BindEnv("ACS_DEVICE_OFFLINE_AFTER")
	viper.SetDefault("ACS_DEVICE_OFFLINE_AFTER", 120)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf(`Config file not found because "%s"`, err)
		fmt.Println("")
	}

	if err := viper.Unmarshal(c); err != nil {
		log.Fatal(fmt.Sprintf("Could not read config because %s.", err))
	}
}

func absPathify(inPath string) string {
	if strings.HasPrefix(inPath, "$HOME") {
		inPath = userHomeDir() + inPath[5:]
	}

	if strings.HasPrefix(inPath, "$") {
		end := strings.Index(inPath, string(os.PathSeparator))
		inPath = os.Getenv(inPath[1:end]) + inPath[end:]
	}

	if filepath.IsAbs(inPath) {
		return filepath.Clean(inPath)
	}

	p, err := filepath.Abs(inPath)
	if err == nil {
		return filepath.Clean(p)
	}
	return ""
}

func userHomeDir() string {
	if runtime.GOOS == "windows" {
		home := os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
		if home == "" {
			home = os.Getenv("USERPROFILE")
		}
		return home
	}
	return os.Getenv("HOME")
}
