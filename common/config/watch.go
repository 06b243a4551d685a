package config

import (
	"reflect"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

var ReloadChan = make(chan ReloadEvent, 1)

type ReloadEvent struct {
	Previous *ArchiveConfig
	Current  *ArchiveConfig
}

func (e ReloadEvent) WebserverChanged() bool {
	return e.Previous.General.BindAddress != e.Current.General.BindAddress ||
		e.Previous.General.Port != e.Current.General.Port
}

func (e ReloadEvent) MetricsChanged() bool {
	return e.Previous.Metrics.Enabled != e.Current.Metrics.Enabled ||
		e.Previous.Metrics.BindAddress != e.Current.Metrics.BindAddress ||
		e.Previous.Metrics.Port != e.Current.Metrics.Port
}

func (e ReloadEvent) WorkersChanged() bool {
	return e.Previous.Workers.NumWorkers != e.Current.Workers.NumWorkers
}

func Watch() *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Fatal(err)
	}

	err = watcher.Add(Path)
	if err != nil {
		logrus.Fatal(err)
	}

	go func() {
		debounced := debounce.New(1 * time.Second)
		for {
			select {
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				debounced(onFileChanged)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Error("error in config watcher:", err)
			}
		}
	}()

	return watcher
}

func onFileChanged() {
	logrus.Info("Config file change detected - reloading")
	configNow := Get()
	configNew, err := reloadConfig()
	if err != nil {
		logrus.Error("Error reloading configuration - ignoring")
		logrus.Error(err)
		return
	}

	if configNew.Archive.Bucket != configNow.Archive.Bucket || configNew.DataStore.Type != configNow.DataStore.Type {
		logrus.Warn("Archive bucket and datastore changes require a restart to take effect")
	}

	logrus.Info("Applying reloaded config live")
	Set(configNew)

	select {
	case ReloadChan <- ReloadEvent{Previous: configNow, Current: configNew}:
	default:
		logrus.Warn("Dropping config reload notification - a previous one is still pending")
	}
}

func (e ReloadEvent) RedisChanged() bool {
	return !reflect.DeepEqual(e.Previous.Redis, e.Current.Redis)
}
