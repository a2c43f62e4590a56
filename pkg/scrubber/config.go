package scrubber

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/omriharel/scrubber/pkg/scrubber/util"
)

// CanonicalConfig provides application-wide access to configuration fields,
// as well as loading/file watching logic for scrubber's configuration file
type CanonicalConfig struct {
	Range struct {
		Minimum float64
		Maximum float64
	}

	InitialValue float64
	Continuous   bool

	// nil when config.yaml doesn't mention them, so saved preferences stay in charge
	ScrubbingSpeeds               []float64
	ScrubbingSpeedChangePositions []float64

	Geometry struct {
		SliderWidth  float64
		SliderHeight float64
		ThumbWidth   float64
		ThumbHeight  float64
		HitSlop      float64
		CellWidth    float64
		CellHeight   float64
	}

	ConnectionInfo struct {
		COMPort  string
		BaudRate int
	}

	UdpConnectionInfo struct {
		UdpPort int
	}

	WebsocketInfo struct {
		Address string
		Path    string
	}

	AudioCues bool

	logger             *zap.SugaredLogger
	notifier           Notifier
	stopWatcherChannel chan bool

	reloadConsumers []chan bool

	userConfig *viper.Viper
}

const (
	userConfigFilepath = "config.yaml"
	userConfigName     = "config"
	userConfigPath     = "."

	configType = "yaml"

	configKeyMinimumValue                  = "minimum_value"
	configKeyMaximumValue                  = "maximum_value"
	configKeyInitialValue                  = "initial_value"
	configKeyContinuous                    = "continuous"
	configKeyScrubbingSpeeds               = "scrubbing_speeds"
	configKeyScrubbingSpeedChangePositions = "scrubbing_speed_change_positions"
	configKeySliderWidth                   = "slider_width"
	configKeySliderHeight                  = "slider_height"
	configKeyThumbWidth                    = "thumb_width"
	configKeyThumbHeight                   = "thumb_height"
	configKeyHitSlop                       = "hit_slop"
	configKeyCellWidth                     = "cell_width"
	configKeyCellHeight                    = "cell_height"
	configKeyCOMPort                       = "com_port"
	configKeyBaudRate                      = "baud_rate"
	configKeyUdpPort                       = "udp_port"
	configKeyWebsocketAddress              = "websocket_address"
	configKeyWebsocketPath                 = "websocket_path"
	configKeyAudioCues                     = "audio_cues"

	defaultMinimumValue  = 0.0
	defaultMaximumValue  = 1000.0
	defaultInitialValue  = 500.0
	defaultSliderWidth   = 320.0
	defaultSliderHeight  = 31.0
	defaultThumbSize     = 31.0
	defaultHitSlop       = 10.0
	defaultCellWidth     = 8.0
	defaultCellHeight    = 16.0
	defaultBaudRate      = 9600
	defaultWebsocketPath = "/ws"
)

// NewConfig creates a config instance for the scrubber object and sets up viper for the user's config file
func NewConfig(logger *zap.SugaredLogger, notifier Notifier) (*CanonicalConfig, error) {
	logger = logger.Named("config")

	cc := &CanonicalConfig{
		logger:             logger,
		notifier:           notifier,
		reloadConsumers:    []chan bool{},
		stopWatcherChannel: make(chan bool),
	}

	userConfig := viper.New()
	userConfig.SetConfigName(userConfigName)
	userConfig.SetConfigType(configType)
	userConfig.AddConfigPath(userConfigPath)

	userConfig.SetDefault(configKeyMinimumValue, defaultMinimumValue)
	userConfig.SetDefault(configKeyMaximumValue, defaultMaximumValue)
	userConfig.SetDefault(configKeyInitialValue, defaultInitialValue)
	userConfig.SetDefault(configKeyContinuous, true)
	userConfig.SetDefault(configKeySliderWidth, defaultSliderWidth)
	userConfig.SetDefault(configKeySliderHeight, defaultSliderHeight)
	userConfig.SetDefault(configKeyThumbWidth, defaultThumbSize)
	userConfig.SetDefault(configKeyThumbHeight, defaultThumbSize)
	userConfig.SetDefault(configKeyHitSlop, defaultHitSlop)
	userConfig.SetDefault(configKeyCellWidth, defaultCellWidth)
	userConfig.SetDefault(configKeyCellHeight, defaultCellHeight)
	userConfig.SetDefault(configKeyCOMPort, "")
	userConfig.SetDefault(configKeyBaudRate, defaultBaudRate)
	userConfig.SetDefault(configKeyUdpPort, 0)
	userConfig.SetDefault(configKeyWebsocketAddress, "")
	userConfig.SetDefault(configKeyWebsocketPath, defaultWebsocketPath)
	userConfig.SetDefault(configKeyAudioCues, false)

	cc.userConfig = userConfig

	logger.Debug("Created config instance")

	return cc, nil
}

// Load reads scrubber's config file from disk and tries to parse it
func (cc *CanonicalConfig) Load() error {
	cc.logger.Debugw("Loading config", "path", userConfigFilepath)

	// make sure it exists
	if !util.FileExists(userConfigFilepath) {
		cc.logger.Warnw("Config file not found", "path", userConfigFilepath)
		cc.notifier.Notify("Can't find configuration!",
			fmt.Sprintf("%s must be in the same directory as scrubber. Please re-launch", userConfigFilepath))

		return fmt.Errorf("config file doesn't exist: %s", userConfigFilepath)
	}

	if err := cc.userConfig.ReadInConfig(); err != nil {
		cc.logger.Warnw("Viper failed to read user config", "error", err)

		// if the error is yaml-format-related, show a sensible error. otherwise, show 'em to the logs
		if strings.Contains(err.Error(), "yaml:") {
			cc.notifier.Notify("Invalid configuration!",
				fmt.Sprintf("Please make sure %s is in a valid YAML format.", userConfigFilepath))
		} else {
			cc.notifier.Notify("Error loading configuration!", "Please check scrubber's logs for more details.")
		}

		return fmt.Errorf("read user config: %w", err)
	}

	// canonize the configuration with viper's helpers
	if err := cc.populateFromVipers(); err != nil {
		cc.logger.Warnw("Failed to populate config fields", "error", err)
		return fmt.Errorf("populate config fields: %w", err)
	}

	cc.logger.Info("Loaded config successfully")
	cc.logger.Infow("Config values",
		"range", cc.Range,
		"scrubbingSpeeds", cc.ScrubbingSpeeds,
		"scrubbingSpeedChangePositions", cc.ScrubbingSpeedChangePositions,
		"connectionInfo", cc.ConnectionInfo,
		"udpPort", cc.UdpConnectionInfo.UdpPort,
		"websocket", cc.WebsocketInfo)

	return nil
}

// SubscribeToChanges allows external components to receive updates when the config is reloaded
func (cc *CanonicalConfig) SubscribeToChanges() chan bool {
	c := make(chan bool)
	cc.reloadConsumers = append(cc.reloadConsumers, c)

	return c
}

// WatchConfigFileChanges starts watching for configuration file changes
// and attempts reloading the config when they happen
func (cc *CanonicalConfig) WatchConfigFileChanges() {
	cc.logger.Debugw("Starting to watch user config file for changes", "path", userConfigFilepath)

	const (
		minTimeBetweenReloadAttempts = time.Millisecond * 500
		delayBetweenEventAndReload   = time.Millisecond * 50
	)

	lastAttemptedReload := time.Now()

	// establish watch using viper as opposed to doing it ourselves, though our internal cooldown is still required
	cc.userConfig.WatchConfig()
	cc.userConfig.OnConfigChange(func(event fsnotify.Event) {

		// when we get a write event...
		if event.Op&fsnotify.Write == fsnotify.Write {

			now := time.Now()

			// ... check if it's not a duplicate (many editors will write to a file twice)
			if lastAttemptedReload.Add(minTimeBetweenReloadAttempts).Before(now) {

				// and attempt reload if appropriate
				cc.logger.Debugw("Config file modified, attempting reload", "event", event)

				// wait a bit to let the editor actually flush the new file contents to disk
				<-time.After(delayBetweenEventAndReload)

				if err := cc.Load(); err != nil {
					cc.logger.Warnw("Failed to reload config file", "error", err)
				} else {
					cc.logger.Info("Reloaded config successfully")
					cc.notifier.Notify("Configuration reloaded!", "Your changes have been applied.")

					cc.onConfigReloaded()
				}

				// don't forget to update the time
				lastAttemptedReload = now
			}
		}
	})

	// wait till they stop us
	<-cc.stopWatcherChannel
	cc.logger.Debug("Stopping user config file watcher")
	cc.userConfig.OnConfigChange(nil)
}

// StopWatchingConfigFile signals our filesystem watcher to stop
func (cc *CanonicalConfig) StopWatchingConfigFile() {
	cc.stopWatcherChannel <- true
}

func (cc *CanonicalConfig) populateFromVipers() error {
	cc.Range.Minimum = cc.userConfig.GetFloat64(configKeyMinimumValue)
	cc.Range.Maximum = cc.userConfig.GetFloat64(configKeyMaximumValue)

	if cc.Range.Maximum <= cc.Range.Minimum {
		cc.logger.Warnw("Invalid value range specified, using default range",
			"minimum", cc.Range.Minimum,
			"maximum", cc.Range.Maximum,
			"defaultMinimum", defaultMinimumValue,
			"defaultMaximum", defaultMaximumValue)

		cc.Range.Minimum = defaultMinimumValue
		cc.Range.Maximum = defaultMaximumValue
	}

	cc.InitialValue = cc.userConfig.GetFloat64(configKeyInitialValue)
	cc.Continuous = cc.userConfig.GetBool(configKeyContinuous)

	// unlike the rest, these are only taken when the user actually wrote them down
	cc.ScrubbingSpeeds = cc.floatsFromConfig(configKeyScrubbingSpeeds, func(v float64) bool {
		return util.Finite(v) && v >= 0
	})

	cc.ScrubbingSpeedChangePositions = cc.floatsFromConfig(configKeyScrubbingSpeedChangePositions, util.Finite)

	cc.Geometry.SliderWidth = cc.positiveFloat(configKeySliderWidth, defaultSliderWidth)
	cc.Geometry.SliderHeight = cc.positiveFloat(configKeySliderHeight, defaultSliderHeight)
	cc.Geometry.ThumbWidth = cc.positiveFloat(configKeyThumbWidth, defaultThumbSize)
	cc.Geometry.ThumbHeight = cc.positiveFloat(configKeyThumbHeight, defaultThumbSize)
	cc.Geometry.HitSlop = cc.userConfig.GetFloat64(configKeyHitSlop)
	cc.Geometry.CellWidth = cc.positiveFloat(configKeyCellWidth, defaultCellWidth)
	cc.Geometry.CellHeight = cc.positiveFloat(configKeyCellHeight, defaultCellHeight)

	cc.ConnectionInfo.COMPort = cc.userConfig.GetString(configKeyCOMPort)

	cc.ConnectionInfo.BaudRate = cc.userConfig.GetInt(configKeyBaudRate)
	if cc.ConnectionInfo.BaudRate <= 0 {
		cc.logger.Warnw("Invalid baud rate specified, using default value",
			"key", configKeyBaudRate,
			"invalidValue", cc.ConnectionInfo.BaudRate,
			"defaultValue", defaultBaudRate)

		cc.ConnectionInfo.BaudRate = defaultBaudRate
	}

	cc.UdpConnectionInfo.UdpPort = cc.userConfig.GetInt(configKeyUdpPort)
	if cc.UdpConnectionInfo.UdpPort < 0 || cc.UdpConnectionInfo.UdpPort > 65535 {
		cc.logger.Warnw("Invalid UDP port specified, disabling UDP input",
			"key", configKeyUdpPort,
			"invalidValue", cc.UdpConnectionInfo.UdpPort)

		cc.UdpConnectionInfo.UdpPort = 0
	}

	cc.WebsocketInfo.Address = cc.userConfig.GetString(configKeyWebsocketAddress)
	cc.WebsocketInfo.Path = cc.userConfig.GetString(configKeyWebsocketPath)
	if !strings.HasPrefix(cc.WebsocketInfo.Path, "/") {
		cc.WebsocketInfo.Path = "/" + cc.WebsocketInfo.Path
	}

	cc.AudioCues = cc.userConfig.GetBool(configKeyAudioCues)

	cc.logger.Debug("Populated config fields from vipers")

	return nil
}

// floatsFromConfig reads a numeric list, dropping entries that fail keep.
// A missing or malformed list yields nil
func (cc *CanonicalConfig) floatsFromConfig(key string, keep func(float64) bool) []float64 {
	if !cc.userConfig.InConfig(key) {
		return nil
	}

	rawValues, err := cast.ToSliceE(cc.userConfig.Get(key))
	if err != nil {
		cc.logger.Warnw("Ignoring malformed list", "key", key, "error", err)
		return nil
	}

	values := make([]float64, 0, len(rawValues))
	for _, rawValue := range rawValues {
		value, err := cast.ToFloat64E(rawValue)
		if err != nil {
			cc.logger.Warnw("Ignoring malformed list", "key", key, "entry", rawValue, "error", err)
			return nil
		}

		values = append(values, value)
	}

	kept := funk.Filter(values, keep).([]float64)
	if len(kept) != len(values) {
		cc.logger.Warnw("Dropped invalid list entries", "key", key, "given", values, "kept", kept)
	}

	return kept
}

func (cc *CanonicalConfig) positiveFloat(key string, fallback float64) float64 {
	value := cc.userConfig.GetFloat64(key)
	if value <= 0 || !util.Finite(value) {
		cc.logger.Warnw("Invalid size specified, using default value",
			"key", key,
			"invalidValue", value,
			"defaultValue", fallback)

		return fallback
	}

	return value
}

func (cc *CanonicalConfig) onConfigReloaded() {
	cc.logger.Debug("Notifying consumers about configuration reload")

	for _, consumer := range cc.reloadConsumers {
		consumer <- true
	}
}
