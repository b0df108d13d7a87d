// Package otlplog converts OTLP log payloads into model records.
package otlplog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/tinytelemetry/lookout/internal/logparse"
	"github.com/tinytelemetry/lookout/internal/model"
)

var jsonOptions = protojson.UnmarshalOptions{DiscardUnknown: true}

// DecodeJSON parses one OTLP/JSON ExportLogsServiceRequest.
func DecodeJSON(line string) ([]*model.LogRecord, error) {
	var req collogspb.ExportLogsServiceRequest
	if err := jsonOptions.Unmarshal([]byte(line), &req); err != nil {
		return nil, fmt.Errorf("otlplog: decode json: %w", err)
	}
	return FromRequest(&req), nil
}

// FromRequest flattens resource and scope attributes onto each log record.
func FromRequest(req *collogspb.ExportLogsServiceRequest) []*model.LogRecord {
	var records []*model.LogRecord
	for _, rl := range req.GetResourceLogs() {
		resourceAttrs := attributes(rl.GetResource().GetAttributes())
		for _, sl := range rl.GetScopeLogs() {
			scope := sl.GetScope().GetName()
			for _, lr := range sl.GetLogRecords() {
				records = append(records, convert(lr, resourceAttrs, scope))
			}
		}
	}
	return records
}

func convert(lr *logspb.LogRecord, resourceAttrs map[string]string, scope string) *model.LogRecord {
	attrs := make(map[string]string, len(resourceAttrs)+len(lr.GetAttributes()))
	for k, v := range resourceAttrs {
		attrs[k] = v
	}
	for k, v := range attributes(lr.GetAttributes()) {
		attrs[k] = v
	}

	rec := &model.LogRecord{
		Timestamp:  timestamp(lr),
		Message:    anyValueString(lr.GetBody()),
		Logger:     scope,
		Service:    attrs["service.name"],
		Hostname:   attrs["host.name"],
		Exception:  attrs["exception.stacktrace"],
		Attributes: attrs,
	}
	if tid, ok := attrs["thread.id"]; ok {
		rec.Thread = tid
	}

	switch {
	case strings.TrimSpace(lr.GetSeverityText()) != "":
		rec.Level = logparse.NormalizeSeverity(lr.GetSeverityText())
	case lr.GetSeverityNumber() != logspb.SeverityNumber_SEVERITY_NUMBER_UNSPECIFIED:
		rec.Level = logparse.FromSeverityNumber(int32(lr.GetSeverityNumber()))
	default:
		rec.Level = logparse.ExtractSeverityFromText(rec.Message)
	}
	return rec
}

func timestamp(lr *logspb.LogRecord) time.Time {
	if ns := lr.GetTimeUnixNano(); ns > 0 {
		return time.Unix(0, int64(ns))
	}
	if ns := lr.GetObservedTimeUnixNano(); ns > 0 {
		return time.Unix(0, int64(ns))
	}
	return time.Now()
}

func attributes(kvs []*commonpb.KeyValue) map[string]string {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		if kv.GetKey() == "" {
			continue
		}
		out[kv.GetKey()] = anyValueString(kv.GetValue())
	}
	return out
}

func anyValueString(v *commonpb.AnyValue) string {
	if v == nil {
		return ""
	}
	switch val := v.GetValue().(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_BoolValue:
		return strconv.FormatBool(val.BoolValue)
	case *commonpb.AnyValue_IntValue:
		return strconv.FormatInt(val.IntValue, 10)
	case *commonpb.AnyValue_DoubleValue:
		return strconv.FormatFloat(val.DoubleValue, 'g', -1, 64)
	case nil:
		return ""
	default:
		return protojson.Format(v)
	}
}
