package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/ambiyansyah-risyal/apiclient"
	"github.com/ambiyansyah-risyal/apiclient/cachestore"
	"github.com/ambiyansyah-risyal/apiclient/config"
	"github.com/ambiyansyah-risyal/apiclient/tokenstore"
)

const usage = `usage: apiclient [flags] <command> [args]

commands:
  get|post|patch|delete ENDPOINT [key=value ...]   call the API and print the JSON body
  token [VALUE]                                     print, set or (with "") clear the stored token
  whoami                                            restore the session from the stored token
  logout                                            end the session and clear the stored token
  version                                           print version information
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("apiclient", flag.ContinueOnError)
	envFile := fs.String("env", ".env", "dotenv file to load before reading the environment")
	useCache := fs.Bool("cache", false, "serve GET requests through the configured cache")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage); fs.PrintDefaults() }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	if fs.Arg(0) == "version" {
		_, err := fmt.Fprintln(out, apiclient.GetVersion())
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := newLogger(cfg.Log)

	tokens, closeTokens, err := newTokenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeTokens()

	opts := []apiclient.Option{
		apiclient.WithLogger(logger),
		apiclient.WithReporter(apiclient.NewLogReporter(logger)),
		apiclient.WithHeaders(withUserAgent(cfg.Headers)),
	}
	if cache := newCache(cfg, logger); cache != nil {
		opts = append(opts, apiclient.WithCache(cache))
	}
	if jar, ok := tokens.medium.(*tokenstore.JarCookies); ok {
		opts = append(opts, apiclient.WithHTTPClient(&http.Client{Timeout: apiclient.RequestTimeout, Jar: jar.Jar()}))
	}
	if cfg.Metrics {
		opts = append(opts, apiclient.WithMetrics())
	}

	client := apiclient.New(cfg.APIURL, tokens.store, opts...)
	if !client.IsValid() {
		return client.ValidationError()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*apiclient.RequestTimeout)
	defer cancel()

	cmd, rest := strings.ToLower(fs.Arg(0)), fs.Args()[1:]
	switch cmd {
	case "get", "post", "patch", "delete":
		if len(rest) == 0 {
			return errors.New("missing endpoint")
		}
		params, err := parseParams(rest[1:])
		if err != nil {
			return err
		}
		payload, err := client.Request(ctx, strings.ToUpper(cmd), rest[0], params, &apiclient.RequestOptions{Cache: *useCache})
		if err != nil {
			return err
		}
		return printJSON(out, payload)
	case "token":
		if len(rest) > 0 {
			client.SetAuthToken(rest[0])
			return nil
		}
		_, err := fmt.Fprintln(out, client.AuthToken())
		return err
	case "whoami":
		session := apiclient.NewSession(client, apiclient.NewMapState(), nil)
		payload, err := session.Restore(ctx)
		if err != nil {
			return err
		}
		if payload == nil {
			return errors.New("not signed in")
		}
		return printJSON(out, payload.Object("user"))
	case "logout":
		apiclient.NewSession(client, apiclient.NewMapState(), nil).Logout(ctx)
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

type tokenSetup struct {
	store  apiclient.TokenStore
	medium tokenstore.CookieMedium
}

// newTokenStore picks the credential medium. The CLI has no browser, so the
// cookie variant lives in a jar shared with the transport and the storage
// variant in a bbolt file.
func newTokenStore(cfg *config.Config, logger logrus.FieldLogger) (tokenSetup, func(), error) {
	switch cfg.TokenStore {
	case "storage":
		storage, err := tokenstore.OpenBoltStorage(cfg.Storage.Path, cfg.Storage.Bucket)
		if err != nil {
			return tokenSetup{}, nil, fmt.Errorf("open token storage: %w", err)
		}
		store := tokenstore.NewStorageStore(storage, cfg.Storage.Key, logger)
		return tokenSetup{store: store}, func() { _ = storage.Close() }, nil
	default:
		jar, err := tokenstore.NewJarCookies(cfg.APIURL)
		if err != nil {
			return tokenSetup{}, nil, fmt.Errorf("create cookie jar: %w", err)
		}
		secure := cfg.CookieSecure()
		if secure && !strings.HasPrefix(strings.ToLower(cfg.APIURL), "https://") {
			logger.WithField("api_url", cfg.APIURL).Warn("secure token cookie will not be sent over plain http")
		}
		store := tokenstore.NewCookieStore(jar, tokenstore.CookieOptions{
			Name:   cfg.Cookie.Name,
			Domain: cfg.Cookie.Domain,
			Path:   cfg.Cookie.Path,
			Secure: secure,
		})
		return tokenSetup{store: store, medium: jar}, func() {}, nil
	}
}

func newCache(cfg *config.Config, logger logrus.FieldLogger) apiclient.Cache {
	switch cfg.Cache.Backend {
	case "memory":
		return apiclient.NewInMemoryCache(cfg.Cache.TTL)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return cachestore.NewRedisCache(rdb, cfg.Redis.Prefix, cfg.Cache.TTL, logger)
	case "memcache":
		mc := memcache.New(cfg.Memcache.Servers...)
		mc.Timeout = time.Second
		return cachestore.NewMemcacheCache(mc, cfg.Memcache.Prefix, cfg.Cache.TTL, logger)
	default:
		return nil
	}
}

func withUserAgent(headers map[string]string) apiclient.Headers {
	out := apiclient.Headers{"User-Agent": apiclient.UserAgent()}
	for k, v := range headers {
		out[k] = v
	}
	return out
}

// parseParams turns key=value arguments into Params. Values that parse as
// JSON keep their JSON type; anything else is a string.
func parseParams(args []string) (apiclient.Params, error) {
	params := apiclient.Params{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", arg)
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			params[k] = decoded
		} else {
			params[k] = v
		}
	}
	return params, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
