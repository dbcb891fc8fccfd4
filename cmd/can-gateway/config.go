package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	canIf           string
	canFD           bool
	canFilters      string
	errMask         string
	loopback        bool
	recvOwn         bool
	joinFilters     bool
	listenAddr      string
	serialDev       string
	baud            int
	serialReadTO    time.Duration
	logFormat       string
	logLevel        string
	metricsAddr     string
	hubBuffer       int
	hubPolicy       string
	logMetricsEvery time.Duration
	maxClients      int
	clientReadTO    time.Duration
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	canIf := flag.String("can-if", "can0", "SocketCAN interface to bridge")
	canFD := flag.Bool("can-fd", true, "Open an FD-capable socket (false = classic frames only)")
	canFilters := flag.String("can-filters", "", "Receive filters, candump syntax: id:mask match, id~mask inverted, comma separated; empty accepts all")
	errMask := flag.String("err-mask", "", "Error class mask as hex, or 'all'; empty disables error frames")
	loopback := flag.Bool("loopback", true, "Enable local loopback of sent frames")
	recvOwn := flag.Bool("recv-own", false, "Receive frames sent by this socket")
	joinFilters := flag.Bool("join-filters", false, "AND the receive filters instead of ORing them")
	listen := flag.String("listen", ":20000", "TCP listen address for SLCAN clients")
	serialDev := flag.String("serial", "", "Optional serial device for an SLCAN sink; empty disables")
	baud := flag.Int("baud", 115200, "Serial baud rate")
	serialReadTO := flag.Duration("serial-read-timeout", 50*time.Millisecond, "Serial read timeout")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	hubBuf := flag.Int("hub-buffer", 512, "Per-client hub buffer (frames)")
	hubPolicy := flag.String("hub-policy", "drop", "Backpressure policy: drop|kick")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	maxClients := flag.Int("max-clients", 0, "Maximum simultaneous TCP clients (0 = unlimited)")
	clientReadTO := flag.Duration("client-read-timeout", 60*time.Second, "Per-connection read deadline")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default can-gateway-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Track which flags were explicitly set to give them precedence over env.
	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })
	cfg.canIf = *canIf
	cfg.canFD = *canFD
	cfg.canFilters = *canFilters
	cfg.errMask = *errMask
	cfg.loopback = *loopback
	cfg.recvOwn = *recvOwn
	cfg.joinFilters = *joinFilters
	cfg.listenAddr = *listen
	cfg.serialDev = *serialDev
	cfg.baud = *baud
	cfg.serialReadTO = *serialReadTO
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.hubBuffer = *hubBuf
	cfg.hubPolicy = *hubPolicy
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.maxClients = *maxClients
	cfg.clientReadTO = *clientReadTO
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate checks values and ranges only; it does not open devices or listeners.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if c.canIf == "" {
		return errors.New("can-if must not be empty")
	}
	if _, err := parseFilterSpec(c.canFilters); err != nil {
		return fmt.Errorf("invalid can-filters: %w", err)
	}
	if _, err := parseErrMask(c.errMask); err != nil {
		return fmt.Errorf("invalid err-mask: %w", err)
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	switch c.hubPolicy {
	case "drop", "kick":
	default:
		return fmt.Errorf("invalid hub-policy: %s", c.hubPolicy)
	}
	if c.hubBuffer <= 0 {
		return fmt.Errorf("hub-buffer must be > 0 (got %d)", c.hubBuffer)
	}
	if c.baud <= 0 {
		return fmt.Errorf("baud must be > 0 (got %d)", c.baud)
	}
	if c.serialReadTO <= 0 {
		return fmt.Errorf("serial-read-timeout must be > 0")
	}
	if c.clientReadTO <= 0 {
		return fmt.Errorf("client-read-timeout must be > 0")
	}
	if c.maxClients < 0 {
		return fmt.Errorf("max-clients must be >= 0")
	}
	return nil
}

// applyEnvOverrides maps CAN_GATEWAY_* environment variables to config fields
// unless a corresponding flag was explicitly set. Empty values are ignored.
// Durations accept Go time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	str := func(name, env string, dst *string) {
		if _, ok := set[name]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(name, env string, dst *bool) {
		if _, ok := set[name]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	duration := func(name, env string, dst *time.Duration, min time.Duration) {
		if _, ok := set[name]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= min {
				*dst = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid %s: %w", env, err)
			}
		}
	}
	integer := func(name, env string, dst *int, min int) {
		if _, ok := set[name]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= min {
				*dst = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid %s: %w", env, err)
			}
		}
	}

	str("can-if", "CAN_GATEWAY_IF", &c.canIf)
	boolean("can-fd", "CAN_GATEWAY_FD", &c.canFD)
	str("can-filters", "CAN_GATEWAY_FILTERS", &c.canFilters)
	str("err-mask", "CAN_GATEWAY_ERR_MASK", &c.errMask)
	boolean("loopback", "CAN_GATEWAY_LOOPBACK", &c.loopback)
	boolean("recv-own", "CAN_GATEWAY_RECV_OWN", &c.recvOwn)
	boolean("join-filters", "CAN_GATEWAY_JOIN_FILTERS", &c.joinFilters)
	str("listen", "CAN_GATEWAY_LISTEN", &c.listenAddr)
	str("serial", "CAN_GATEWAY_SERIAL", &c.serialDev)
	integer("baud", "CAN_GATEWAY_BAUD", &c.baud, 1)
	duration("serial-read-timeout", "CAN_GATEWAY_SERIAL_READ_TIMEOUT", &c.serialReadTO, time.Millisecond)
	str("log-format", "CAN_GATEWAY_LOG_FORMAT", &c.logFormat)
	str("log-level", "CAN_GATEWAY_LOG_LEVEL", &c.logLevel)
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("CAN_GATEWAY_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	integer("hub-buffer", "CAN_GATEWAY_HUB_BUFFER", &c.hubBuffer, 1)
	str("hub-policy", "CAN_GATEWAY_HUB_POLICY", &c.hubPolicy)
	duration("log-metrics-interval", "CAN_GATEWAY_LOG_METRICS_INTERVAL", &c.logMetricsEvery, 0)
	integer("max-clients", "CAN_GATEWAY_MAX_CLIENTS", &c.maxClients, 0)
	duration("client-read-timeout", "CAN_GATEWAY_CLIENT_READ_TIMEOUT", &c.clientReadTO, time.Millisecond)
	boolean("mdns-enable", "CAN_GATEWAY_MDNS_ENABLE", &c.mdnsEnable)
	str("mdns-name", "CAN_GATEWAY_MDNS_NAME", &c.mdnsName)
	return firstErr
}
