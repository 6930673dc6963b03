package main

import (
	"bufio"
	"encoding/json"
	"io"

	log "github.com/sirupsen/logrus"
)

// relayLog reads a child's JSON encoded log lines and logs them again with the
// child's name as an additional field, until r is closed.
func relayLog(r io.ReadCloser, child string) {
	defer func() { _ = r.Close() }()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		relayLogLine(scanner.Bytes(), child)
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).WithField("child", child).Error("Scanner failed")
	}
}

// relayLogLine logs a single JSON record as emitted by logrus.JSONFormatter.
func relayLogLine(line []byte, child string) {
	childLogRecord := make(map[string]any)

	if err := json.Unmarshal(line, &childLogRecord); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"child": child,
			"msg":   string(line),
		}).Warn("Unparsable child message")
		return
	}

	logger := log.WithField("child", child)
	for k, v := range childLogRecord {
		switch k {
		case log.FieldKeyTime, log.FieldKeyLevel, log.FieldKeyMsg:
		default:
			logger = logger.WithField(k, v)
		}
	}

	levelVal, ok := childLogRecord[log.FieldKeyLevel].(string)
	if !ok {
		log.WithFields(log.Fields{
			"child": child,
			"msg":   string(line),
		}).Warn("Child message misses level")
		return
	}

	level, err := log.ParseLevel(levelVal)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"child": child,
			"msg":   string(line),
		}).Warn("Failed to parse child's log level")
		return
	}
	// Entry.Log panics on PanicLevel.
	if level == log.PanicLevel {
		level = log.FatalLevel
	}

	msg, _ := childLogRecord[log.FieldKeyMsg].(string)
	logger.Log(level, msg)
}
