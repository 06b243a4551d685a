package logging

import (
	"os"
	"path"
	"time"

	rotatelogs "github.com/lestrrat/go-file-rotatelogs"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05.000 Z07:00"

type utcFormatter struct {
	logrus.Formatter
}

func (f utcFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	entry.Time = entry.Time.UTC()
	return f.Formatter.Format(entry)
}

// bucketHook tags every line with the archive bucket, so logs from several
// archives can share one sink.
type bucketHook struct {
	bucket string
}

func (h *bucketHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *bucketHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["bucket"]; !ok {
		entry.Data["bucket"] = h.bucket
	}
	return nil
}

// Setup configures the standard logger from the general config. Lines also go
// to a daily rotated file named for the bucket unless the directory is empty
// or "-".
func Setup(general config.GeneralConfig, bucket string) error {
	if err := SetLevel(general.LogLevel); err != nil {
		return err
	}

	var lineFormatter logrus.Formatter
	if general.JsonLogs {
		lineFormatter = &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		}
	} else {
		lineFormatter = &logrus.TextFormatter{
			TimestampFormat:  timestampFormat,
			FullTimestamp:    true,
			ForceColors:      general.LogColors,
			DisableColors:    !general.LogColors,
			QuoteEmptyFields: true,
		}
	}
	formatter := &utcFormatter{lineFormatter}
	logrus.SetFormatter(formatter)
	logrus.SetOutput(os.Stdout)

	hooks := make(logrus.LevelHooks)
	if bucket != "" {
		hooks.Add(&bucketHook{bucket: bucket})
	}
	defer logrus.StandardLogger().ReplaceHooks(hooks)

	dir := general.LogDirectory
	if dir == "" || dir == "-" {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	name := "bluebucket.log"
	if bucket != "" {
		name = "bluebucket-" + bucket + ".log"
	}
	logFile := path.Join(dir, name)
	writer, err := rotatelogs.New(
		logFile+".%Y%m%d%H%M",
		rotatelogs.WithLinkName(logFile),
		rotatelogs.WithMaxAge((24*time.Hour)*14),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return err
	}

	hooks.Add(lfshook.NewHook(lfshook.WriterMap{
		logrus.DebugLevel: writer,
		logrus.InfoLevel:  writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
		logrus.FatalLevel: writer,
		logrus.PanicLevel: writer,
	}, formatter))
	return nil
}

// SetLevel changes the standard logger level. An empty level means info.
func SetLevel(level string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	return nil
}

// SendToDebugLogger adapts logrus to the Printf-style loggers used by ants.
type SendToDebugLogger struct{}

func (*SendToDebugLogger) Printf(format string, v ...interface{}) {
	logrus.Debugf(format, v...)
}
