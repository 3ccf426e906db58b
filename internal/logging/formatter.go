package logging

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is the layout used for the leading timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// TextFormatter renders entries as
//
//	<timestamp> <LEVEL> <component>: <message> key=value ...
type TextFormatter struct {
	DisableTimestamp bool
	Color            bool
}

// Format renders a single log entry.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	if !f.DisableTimestamp {
		b.WriteString(entry.Time.UTC().Format(TimestampFormat))
		b.WriteString(" ")
	}

	b.WriteString(f.level(entry.Level))

	if component, ok := entry.Data[ComponentKey]; ok {
		b.WriteString(fmt.Sprintf(" %v:", component))
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if key != ComponentKey {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteString(fmt.Sprintf(" %s=%v", key, entry.Data[key]))
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}

func (f *TextFormatter) level(level logrus.Level) string {
	levelStr := level.String()
	if levelStr == "warning" {
		levelStr = "warn"
	}
	levelStr = strings.ToUpper(levelStr)
	if !f.Color {
		return levelStr
	}

	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return "\033[31m" + levelStr + "\033[0m"
	case logrus.WarnLevel:
		return "\033[33m" + levelStr + "\033[0m"
	case logrus.DebugLevel, logrus.TraceLevel:
		return "\033[2m" + levelStr + "\033[0m"
	default:
		return "\033[36m" + levelStr + "\033[0m"
	}
}
