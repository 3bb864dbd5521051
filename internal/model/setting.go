package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SettingID is the identifier of a Setting record. Only enumerated values
// are valid.
type SettingID string

const (
	SettingUserEmail    SettingID = "User Email"
	SettingUserPassword SettingID = "User Password"

	SettingProjectURL    SettingID = "Project URL"
	SettingProjectAPIKey SettingID = "Project API Key"

	SettingAIAPIKey     SettingID = "AI API Key"
	SettingSystemPrompt SettingID = "System Prompt"
	SettingUserPrompt   SettingID = "User Prompt"
	SettingMaxTokens    SettingID = "Max Tokens"
	SettingModelName    SettingID = "Model Name"

	SettingConsoleLogs          SettingID = "Console Logs"
	SettingInfoMessages         SettingID = "Info Messages"
	SettingLogRetentionDuration SettingID = "Log Rentention Duration"
)

// SettingIDs lists the full settings enumeration in display order.
var SettingIDs = []SettingID{
	SettingUserEmail,
	SettingUserPassword,
	SettingProjectURL,
	SettingProjectAPIKey,
	SettingAIAPIKey,
	SettingSystemPrompt,
	SettingUserPrompt,
	SettingMaxTokens,
	SettingModelName,
	SettingConsoleLogs,
	SettingInfoMessages,
	SettingLogRetentionDuration,
}

// Valid reports whether id is a member of the settings enumeration.
func (id SettingID) Valid() bool {
	for _, known := range SettingIDs {
		if id == known {
			return true
		}
	}
	return false
}

// LookupSettingID finds the SettingID whose name matches name, ignoring
// case.
func LookupSettingID(name string) (SettingID, bool) {
	for _, id := range SettingIDs {
		if strings.EqualFold(string(id), name) {
			return id, true
		}
	}
	return "", false
}

// ValueKind tags the variant held by a SettingValue.
type ValueKind uint8

const (
	ValueInvalid ValueKind = iota
	ValueBool
	ValueString
	ValueNumber
)

func (k ValueKind) String() string {
	switch k {
	case ValueBool:
		return "boolean"
	case ValueString:
		return "string"
	case ValueNumber:
		return "number"
	default:
		return "invalid"
	}
}

// SettingValue is a boolean, string or number. The zero value is invalid
// and encodes as JSON null.
type SettingValue struct {
	kind ValueKind
	b    bool
	s    string
	n    float64
}

// Bool returns a boolean setting value.
func Bool(b bool) SettingValue { return SettingValue{kind: ValueBool, b: b} }

// String returns a string setting value.
func String(s string) SettingValue { return SettingValue{kind: ValueString, s: s} }

// Number returns a numeric setting value.
func Number(n float64) SettingValue { return SettingValue{kind: ValueNumber, n: n} }

// Kind returns the variant tag.
func (v SettingValue) Kind() ValueKind { return v.kind }

// IsValid reports whether the value holds one of the three variants.
func (v SettingValue) IsValid() bool { return v.kind != ValueInvalid }

// AsBool returns the boolean and whether the value is a boolean.
func (v SettingValue) AsBool() (bool, bool) { return v.b, v.kind == ValueBool }

// AsString returns the string and whether the value is a string.
func (v SettingValue) AsString() (string, bool) { return v.s, v.kind == ValueString }

// AsNumber returns the number and whether the value is a number.
func (v SettingValue) AsNumber() (float64, bool) { return v.n, v.kind == ValueNumber }

// Any returns the held value as bool, string, float64, or nil when invalid.
func (v SettingValue) Any() any {
	switch v.kind {
	case ValueBool:
		return v.b
	case ValueString:
		return v.s
	case ValueNumber:
		return v.n
	default:
		return nil
	}
}

// String renders the value for display.
func (v SettingValue) String() string {
	switch v.kind {
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueString:
		return v.s
	case ValueNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes the held variant.
func (v SettingValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes a JSON boolean, string or number.
func (v *SettingValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("setting value: empty input")
	}
	switch data[0] {
	case 'n':
		*v = SettingValue{}
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("setting value: %w", err)
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("setting value: %w", err)
		}
		*v = String(s)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("setting value: must be boolean, string or number: %w", err)
		}
		*v = Number(n)
	}
	return nil
}

// ParseSettingValue interprets user input: "true"/"false" become booleans,
// numeric literals become numbers, anything else is kept as a string.
func ParseSettingValue(s string) SettingValue {
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return Bool(b)
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(n)
	}
	return String(s)
}

// Setting is a single configuration record.
type Setting struct {
	ID    SettingID    `json:"id"`
	Value SettingValue `json:"value"`
}

// RecordID implements Record.
func (s Setting) RecordID() string { return string(s.ID) }

// Default prompt configuration for the image analysis call.
const (
	DefaultSystemPrompt = "You are an AI that detects and identifies every distinct item in an image for an inventory and cataloging system. Do not summarize or group results. Your output response must always be a stringified JSON object. Dont include any text outside of the JSON."
	DefaultUserPrompt   = "Analyze this image and return a stringified JSON object with every individual item in a root property called `items` with the following sub properties: `type` (what type of item is it), `brand` (item brand if known, empty string if not), `label` (descriptive label for the item if it was on a store shelf), `description` (description of the item and its appearance), and `categories` (organizational categories and tags that would apply to the item). Also include a `visible_text` root property on the JSON object that contains an array of strings of written text found in the image."
	DefaultMaxTokens    = 2048
	DefaultModelName    = "gpt-4-turbo"
)

// DefaultSettings returns a fresh copy of the hard-coded default value for
// every SettingID.
func DefaultSettings() map[SettingID]SettingValue {
	return map[SettingID]SettingValue{
		SettingUserEmail:    String(""),
		SettingUserPassword: String(""),

		SettingProjectURL:    String(""),
		SettingProjectAPIKey: String(""),

		SettingAIAPIKey:     String(""),
		SettingSystemPrompt: String(DefaultSystemPrompt),
		SettingUserPrompt:   String(DefaultUserPrompt),
		SettingMaxTokens:    Number(DefaultMaxTokens),
		SettingModelName:    String(DefaultModelName),

		SettingConsoleLogs:          Bool(false),
		SettingInfoMessages:         Bool(true),
		SettingLogRetentionDuration: String(string(DurationSixMonths)),
	}
}
