// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"path"
	"runtime"
	"strings"

	"github.com/orandin/lumberjackrus"
	log "github.com/sirupsen/logrus"
)

// MaxFileSize is the rotation threshold of the log file, in megabytes.
const MaxFileSize = 50

// Setup sets the level and formatter of the standard logger. When file is
// not empty, entries are also written there as JSON with rotation.
func Setup(level, file string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}

	logger := log.StandardLogger()
	logger.ReplaceHooks(make(log.LevelHooks))
	logger.SetLevel(lvl)
	logger.SetReportCaller(lvl >= log.DebugLevel)
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:    true,
		CallerPrettyfier: prettyCaller,
	})

	if file == "" {
		return nil
	}
	hook, err := lumberjackrus.NewHook(
		&lumberjackrus.LogFile{
			Filename:   file,
			MaxSize:    MaxFileSize,
			MaxBackups: 1,
			MaxAge:     7,
			Compress:   false,
			LocalTime:  false,
		},
		lvl,
		&log.JSONFormatter{},
		nil,
	)
	if err != nil {
		return fmt.Errorf("log file hook: %w", err)
	}
	logger.AddHook(hook)
	return nil
}

func prettyCaller(f *runtime.Frame) (string, string) {
	fn := f.Function
	if i := strings.LastIndex(fn, "."); i >= 0 {
		fn = fn[i+1:]
	}
	return fmt.Sprintf("%s()", fn), fmt.Sprintf("%s:%d", path.Base(f.File), f.Line)
}
