package config

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var Path = "bluebucket.yaml"

var instance *ArchiveConfig
var singletonLock = &sync.Once{}
var instanceLock = &sync.RWMutex{}

func reloadConfig() (*ArchiveConfig, error) {
	c := NewDefaultConfig()

	// Write a default config if the one given doesn't exist
	_, err := os.Stat(Path)
	exists := err == nil || !os.IsNotExist(err)
	if !exists {
		fmt.Println("Generating new configuration...")
		configBytes, err := yaml.Marshal(c)
		if err != nil {
			return nil, err
		}

		if err = os.WriteFile(Path, configBytes, 0644); err != nil {
			return nil, err
		}
	}

	// Get new info about the possible directory after creating
	info, err := os.Stat(Path)
	if err != nil {
		return nil, err
	}

	pathsOrdered := make([]string, 0)
	if info.IsDir() {
		logrus.Info("Config is a directory - loading all files over top of each other")

		files, err := os.ReadDir(Path)
		if err != nil {
			return nil, err
		}

		for _, f := range files {
			pathsOrdered = append(pathsOrdered, path.Join(Path, f.Name()))
		}

		sort.Strings(pathsOrdered)
	} else {
		pathsOrdered = append(pathsOrdered, Path)
	}

	for _, p := range pathsOrdered {
		logrus.Info("Loading config file: ", p)
		buffer, err := readFile(p)
		if err != nil {
			return nil, err
		}
		if err = yaml.Unmarshal(buffer, &c); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", p, err)
		}
	}

	return &c, nil
}

func readFile(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func Get() *ArchiveConfig {
	instanceLock.RLock()
	c := instance
	instanceLock.RUnlock()
	if c != nil {
		return c
	}

	singletonLock.Do(func() {
		loaded, err := reloadConfig()
		if err != nil {
			logrus.Fatal(err)
		}
		instanceLock.Lock()
		instance = loaded
		instanceLock.Unlock()
	})

	instanceLock.RLock()
	defer instanceLock.RUnlock()
	return instance
}

// Set replaces the active configuration. Used by tests and by the reload watcher.
func Set(c *ArchiveConfig) {
	instanceLock.Lock()
	instance = c
	instanceLock.Unlock()
}
