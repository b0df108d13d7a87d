// Package log4j decodes the log4j XML event schema emitted by the NLog
// viewer target and by log4net's XmlLayoutSchemaLog4j layout.
package log4j

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tinytelemetry/lookout/internal/logparse"
	"github.com/tinytelemetry/lookout/internal/model"
)

// EventEndTag terminates one event on a stream.
const EventEndTag = "</log4j:event>"

type xmlEvent struct {
	Logger     string        `xml:"logger,attr"`
	Level      string        `xml:"level,attr"`
	Timestamp  string        `xml:"timestamp,attr"`
	Thread     string        `xml:"thread,attr"`
	Message    string        `xml:"message"`
	Throwable  string        `xml:"throwable"`
	NDC        string        `xml:"NDC"`
	Locations  []xmlLocation `xml:"locationInfo"`
	Properties []xmlData     `xml:"properties>data"`
}

type xmlLocation struct {
	Class  string `xml:"class,attr"`
	Method string `xml:"method,attr"`
	File   string `xml:"file,attr"`
	Line   string `xml:"line,attr"`
}

type xmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Decode parses every event in payload. Records decoded before a syntax
// error are returned together with the error.
func Decode(payload string) ([]*model.LogRecord, error) {
	dec := xml.NewDecoder(strings.NewReader(payload))
	dec.Strict = false

	var records []*model.LogRecord
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, fmt.Errorf("log4j: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "event" {
			continue
		}
		var ev xmlEvent
		if err := dec.DecodeElement(&ev, &start); err != nil {
			return records, fmt.Errorf("log4j: decode event: %w", err)
		}
		records = append(records, ev.record())
	}
}

func (ev xmlEvent) record() *model.LogRecord {
	rec := &model.LogRecord{
		Timestamp:  parseTimestamp(ev.Timestamp),
		Level:      logparse.NormalizeSeverity(ev.Level),
		Message:    ev.Message,
		Logger:     ev.Logger,
		Thread:     ev.Thread,
		Exception:  strings.TrimSpace(ev.Throwable),
		Attributes: map[string]string{},
	}
	if ev.NDC != "" {
		rec.Attributes["ndc"] = ev.NDC
	}
	for _, loc := range ev.Locations {
		if loc.Class == "" && loc.Method == "" {
			continue
		}
		rec.Attributes["class"] = loc.Class
		rec.Attributes["method"] = loc.Method
		if loc.File != "" {
			rec.Attributes["file"] = loc.File + ":" + loc.Line
		}
		break
	}
	for _, d := range ev.Properties {
		switch d.Name {
		case "log4jmachinename", "log4net:HostName":
			rec.Hostname = d.Value
		case "log4japp":
			rec.Service = d.Value
		default:
			rec.Attributes[d.Name] = d.Value
		}
	}
	return rec
}

// parseTimestamp reads milliseconds since the epoch; anything else is "now".
func parseTimestamp(s string) time.Time {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || ms <= 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}

// SplitEvents is a bufio.SplitFunc that frames a TCP stream into single
// events. Neither NLog nor log4net delimit events on a stream.
func SplitEvents(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && isSpace(data[start]) {
		start++
	}
	if i := bytes.Index(data[start:], []byte(EventEndTag)); i >= 0 {
		end := start + i + len(EventEndTag)
		return end, data[start:end], nil
	}
	if atEOF {
		if start < len(data) {
			return len(data), data[start:], nil
		}
		return len(data), nil, nil
	}
	return start, nil, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}
