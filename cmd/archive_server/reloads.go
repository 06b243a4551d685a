package main

import (
	"github.com/mindvessel/bluebucket/api/webserver"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/logging"
	"github.com/mindvessel/bluebucket/common/runtime"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/mindvessel/bluebucket/pool"
	"github.com/mindvessel/bluebucket/redislib"
	"github.com/sirupsen/logrus"
)

// setupReloads applies config reloads until the returned channel is closed.
func setupReloads(services *runtime.Services) chan struct{} {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case ev := <-config.ReloadChan:
				applyReload(services, ev)
			}
		}
	}()
	return done
}

func applyReload(services *runtime.Services, ev config.ReloadEvent) {
	if ev.WebserverChanged() {
		logrus.Info("Restarting web server")
		webserver.Reload()
	}
	if ev.MetricsChanged() {
		logrus.Info("Restarting metrics listener")
		metrics.Reload()
	}
	if ev.WorkersChanged() {
		logrus.Infof("Resizing invocation queue to %d workers", ev.Current.Workers.NumWorkers)
		pool.AdjustSize()
	}
	if ev.Previous.General.LogLevel != ev.Current.General.LogLevel {
		logrus.Info("Changing log level to ", ev.Current.General.LogLevel)
		if err := logging.SetLevel(ev.Current.General.LogLevel); err != nil {
			logrus.Error("Keeping previous log level: ", err)
		}
	}
	if ev.RedisChanged() {
		logrus.Info("Reconnecting to redis")
		redislib.Reconnect()
	}

	// The site config is read from the archive again on next use
	services.Archivist.ForgetSiteConfig()
}
