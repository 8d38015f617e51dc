// ABOUTME: Inbound payload shapes and their decoding from mappings or JSON
// ABOUTME: Field types are checked here so the store never sees a malformed value

package roster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/2389/coven-roster/internal/store"
)

// HostInfo is a host description reported by an agent. UID is empty when
// the agent has not been assigned one yet.
type HostInfo struct {
	UID        string
	Attributes store.Attributes
}

// TaskPayload is either a task to issue (Session and Task set, UID empty)
// or a result to record (UID set).
type TaskPayload struct {
	UID     string
	Session string
	Task    string
	Result  *string
}

// Completion reports whether the payload records a result rather than
// issuing a new task.
func (p TaskPayload) Completion() bool {
	return p.UID != ""
}

// DecodeHostInfo builds a HostInfo from a decoded mapping. Unknown keys are
// ignored and null values count as absent.
func DecodeHostInfo(m map[string]any) (HostInfo, error) {
	var info HostInfo
	if m == nil {
		return info, &InvalidInputError{Reason: "host description must be a mapping"}
	}

	var err error
	if info.UID, err = optString(m, "uid"); err != nil {
		return HostInfo{}, err
	}

	a := &info.Attributes
	textFields := []struct {
		key string
		dst **string
	}{
		{"public_ip", &a.PublicIP},
		{"mac_address", &a.MACAddress},
		{"local_ip", &a.LocalIP},
		{"username", &a.Username},
		{"platform", &a.Platform},
		{"device", &a.Device},
		{"architecture", &a.Architecture},
		{"owner", &a.Owner},
	}
	for _, f := range textFields {
		if *f.dst, err = optStringPtr(m, f.key); err != nil {
			return HostInfo{}, err
		}
	}
	if a.Administrator, err = optBool(m, "administrator"); err != nil {
		return HostInfo{}, err
	}
	if a.Latitude, err = optFloat(m, "latitude"); err != nil {
		return HostInfo{}, err
	}
	if a.Longitude, err = optFloat(m, "longitude"); err != nil {
		return HostInfo{}, err
	}
	return info, nil
}

// ParseHostInfo decodes a JSON object into a HostInfo.
func ParseHostInfo(data []byte) (HostInfo, error) {
	m, err := parseObject(data)
	if err != nil {
		return HostInfo{}, err
	}
	return DecodeHostInfo(m)
}

// DecodeTaskPayload builds a TaskPayload from a decoded mapping. A payload
// without uid must carry both session and task.
func DecodeTaskPayload(m map[string]any) (TaskPayload, error) {
	var p TaskPayload
	if m == nil {
		return p, &InvalidInputError{Reason: "task payload must be a mapping"}
	}

	var err error
	if p.UID, err = optString(m, "uid"); err != nil {
		return TaskPayload{}, err
	}
	if p.Session, err = optString(m, "session"); err != nil {
		return TaskPayload{}, err
	}
	if p.Task, err = optString(m, "task"); err != nil {
		return TaskPayload{}, err
	}
	if p.Result, err = optStringPtr(m, "result"); err != nil {
		return TaskPayload{}, err
	}

	if err := p.validate(); err != nil {
		return TaskPayload{}, err
	}
	return p, nil
}

// ParseTaskPayload decodes a JSON object into a TaskPayload.
func ParseTaskPayload(data []byte) (TaskPayload, error) {
	m, err := parseObject(data)
	if err != nil {
		return TaskPayload{}, err
	}
	return DecodeTaskPayload(m)
}

func (p TaskPayload) validate() error {
	if p.Completion() {
		return nil
	}
	if p.Session == "" {
		return invalidField("session", "is required to issue a task")
	}
	if p.Task == "" {
		return invalidField("task", "is required to issue a task")
	}
	return nil
}

func parseObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("expected a JSON object, got %T", v)}
	}
	return m, nil
}

func optString(m map[string]any, key string) (string, error) {
	p, err := optStringPtr(m, key)
	if err != nil || p == nil {
		return "", err
	}
	return *p, nil
}

func optStringPtr(m map[string]any, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, invalidField(key, "must be a string, got %T", v)
	}
	return &s, nil
}

// optBool accepts booleans and the integers 0 and 1.
func optBool(m map[string]any, key string) (*bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}

	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case json.Number, int, int64, float64:
		n, err := toFloat(t)
		if err != nil || (n != 0 && n != 1) {
			return nil, invalidField(key, "must be a boolean, got %v", v)
		}
		b = n == 1
	default:
		return nil, invalidField(key, "must be a boolean, got %T", v)
	}
	return &b, nil
}

// optFloat accepts any JSON number or a numeric string.
func optFloat(m map[string]any, key string) (*float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return nil, invalidField(key, "must be a number, got %v", v)
	}
	return &f, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(t, 64)
	}
	return 0, fmt.Errorf("not a number: %T", v)
}
