package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/l3uddz/delugetools/stringutils"
)

var (
	loggingFilePath string
	root            = logrus.New()
)

/* Public */

// Init configures the shared logger. verbosity 0 is info, 1 is debug and anything higher is trace.
// An empty logFilePath disables the log file.
func Init(verbosity int, logFilePath string) error {
	var useLevel logrus.Level
	switch verbosity {
	case 0:
		useLevel = logrus.InfoLevel
	case 1:
		useLevel = logrus.DebugLevel
	default:
		useLevel = logrus.TraceLevel
	}

	var out io.Writer = os.Stderr
	if logFilePath != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    5,
			MaxAge:     14,
			MaxBackups: 5,
		})
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(useLevel)
	l.SetFormatter(&prefixed.TextFormatter{
		ForceColors:      true,
		ForceFormatting:  true,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
		TimestampFormat:  "2006-01-02 15:04:05",
	})

	root = l
	loggingFilePath = logFilePath
	return nil
}

// GetLogger returns an entry tagged with prefix. Components receive the entry from their caller.
func GetLogger(prefix string) *logrus.Entry {
	return root.WithField("prefix", prefix)
}

// Discard returns an entry that drops everything written to it.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func ShowUsing() {
	log := GetLogger("log")
	log.Infof("Using %s = %s", stringutils.LeftJust("LOG_LEVEL", " ", 10), root.GetLevel())
	if loggingFilePath != "" {
		log.Infof("Using %s = %s", stringutils.LeftJust("LOG", " ", 10), fmt.Sprintf("%q", loggingFilePath))
	}
}
