package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HEATCAP_"

// LoadEnvFile loads a dotenv file into the process environment. Variables
// already set win over the file.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides c with HEATCAP_* variables looked up through getenv
// (os.Getenv when nil). Malformed numbers and booleans are errors.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	e := envReader{get: getenv}

	e.stringVar("PATH", &c.Path)
	e.intVar("DELAY", &c.Delay)
	e.intVar("DURATION", &c.Duration)
	e.boolVar("CLEAN", &c.Clean)

	e.stringVar("ADBLOCK", &c.Browser.Extension)
	e.stringVar("USER_AGENT", &c.Browser.UserAgent)
	e.stringVar("BROWSER_REMOTE", &c.Browser.Remote)
	e.stringVar("BROWSER_BIN", &c.Browser.Bin)
	e.boolVar("BROWSER_STEALTH", &c.Browser.Stealth)
	e.boolVar("BROWSER_NO_SANDBOX", &c.Browser.NoSandbox)
	e.durationVar("BROWSER_RECYCLE_INTERVAL", &c.Browser.RecycleInterval)

	e.stringVar("MARKET_TIMEZONE", &c.Market.Timezone)
	e.stringVar("MARKET_OPEN", &c.Market.Open)
	e.stringVar("MARKET_CLOSE", &c.Market.Close)
	e.stringVar("MARKET_EARLY_CLOSE", &c.Market.EarlyClose)
	e.durationVar("MARKET_RECHECK_AFTER_CLOSE", &c.Market.RecheckAfterClose)
	e.boolVar("MARKET_CALENDAR", &c.Market.Calendar)

	e.intVar("CAPTURE_RETRIES", &c.Capture.Retries)
	e.durationVar("CAPTURE_WAIT_TIMEOUT", &c.Capture.WaitTimeout)

	e.stringVar("JOURNAL", &c.Journal.Path)
	e.stringVar("STATUS_ADDR", &c.Status.Addr)
	if url := getenv(EnvPrefix + "WEBHOOK"); url != "" {
		c.Sinks = append(c.Sinks, SinkConfig{Type: "webhook", URL: url})
	}
	return e.err
}

// envReader keeps the first parse error so ApplyEnv reads as a flat list.
type envReader struct {
	get func(string) string
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := e.get(EnvPrefix + key)
	return v, v != ""
}

func (e *envReader) fail(key, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, key, v, err)
	}
}

func (e *envReader) stringVar(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) intVar(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) boolVar(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = b
}

func (e *envReader) durationVar(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}
