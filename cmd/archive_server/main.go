package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mindvessel/bluebucket/api/webserver"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/logging"
	"github.com/mindvessel/bluebucket/common/runtime"
	"github.com/mindvessel/bluebucket/common/version"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/mindvessel/bluebucket/pool"
	"github.com/mindvessel/bluebucket/redislib"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.StringP("config", "c", "bluebucket.yaml", "The path to the configuration file or directory")
	versionFlag := flag.BoolP("version", "v", false, "Prints the version and exits")
	flag.Parse()

	if *versionFlag {
		version.Print(false)
		return // exit 0
	}

	// Override config path with config for Docker users
	configEnv := os.Getenv("BLUEBUCKET_CONFIG")
	if configEnv != "" {
		configPath = &configEnv
	}

	config.Path = *configPath
	if config.Get().Sentry.Enabled {
		logrus.Info("Setting up Sentry for debugging...")
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.Get().Sentry.Dsn,
			Environment: config.Get().Sentry.Environment,
			Debug:       config.Get().Sentry.Debug,
			Release:     fmt.Sprintf("%s-%s", version.Version, version.GitCommit),
		})
		if err != nil {
			panic(err)
		}
	}
	defer sentry.Flush(2 * time.Second)
	defer sentry.Recover()

	err := logging.Setup(config.Get().General, config.Get().Archive.Bucket)
	if err != nil {
		panic(err)
	}

	logrus.Info("Starting up...")
	pool.Init()
	services := runtime.RunStartupSequence()

	logrus.Info("Starting event listeners...")
	feeds := startEventFeeds(services)

	logrus.Info("Starting config watcher...")
	watcher := config.Watch()
	defer watcher.Close()
	reloads := setupReloads(services)

	logrus.Info("Starting archive server...")
	metrics.Init()
	web := webserver.Init(services)

	// Set up a function to stop everything
	stopAllButWeb := func() {
		logrus.Info("Stopping reload watchers...")
		close(reloads)

		logrus.Info("Stopping event listeners...")
		feeds.Stop()

		logrus.Info("Stopping metrics...")
		metrics.Stop()

		logrus.Info("Waiting for running invocations...")
		pool.Drain()

		logrus.Info("Closing redis connections...")
		redislib.Stop()
	}

	// Set up a listener for SIGINT
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	selfStop := false
	go func() {
		<-stop
		selfStop = true

		logrus.Warn("Stop signal received")
		logrus.Info("Stopping web server...")
		webserver.Stop()
	}()

	// Wait for the web server to exit nicely
	web.Wait()
	stopAllButWeb()
	if !selfStop {
		logrus.Warn("Web server stopped unexpectedly")
	}

	// For debugging
	logrus.Info("Goodbye!")
}
