/*
Copyright 2026 The rhino-pack Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package rhino

import (
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/ambraproject/rhino-pack/logger"
)

// newLeveledLogger returns a retryablehttp.LeveledLogger writing to the
// given logr.Logger. Request tracing is only visible at trace level.
func newLeveledLogger(log logr.Logger) retryablehttp.LeveledLogger {
	return &leveledLogger{log: log}
}

// leveledLogger is a wrapper around logr.Logger that implements the
// retryablehttp.LeveledLogger interface.
type leveledLogger struct {
	log logr.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.V(logger.DebugLevel).Info(msg, keysAndValues...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.V(logger.TraceLevel).Info(msg, keysAndValues...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}
