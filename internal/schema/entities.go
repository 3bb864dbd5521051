package schema

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/catalog/internal/model"
)

// text normalizes a user or model supplied string.
func text(s string) string {
	return strings.TrimSpace(norm.NFC.String(validUTF8(s)))
}

// validUTF8 replaces every invalid byte with U+FFFD, as encoding/json does
// when the record is stored.
func validUTF8(s string) string {
	return string([]rune(s))
}

// payload returns m in the form it has after a JSON round trip: numbers
// become float64 and an empty object becomes nil.
func payload(field string, m map[string]any) (map[string]any, []Violation) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, []Violation{{Path: field, Message: "must be JSON encodable: " + err.Error()}}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, []Violation{{Path: field, Message: "must be a JSON object"}}
	}
	return out, nil
}

func texts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, text(s))
	}
	return out
}

func checkID(field, id string) []Violation {
	if id == "" {
		return []Violation{{Path: field, Message: "is required"}}
	}
	if !model.ValidID(id) {
		return []Violation{{Path: field, Message: "Invalid Id"}}
	}
	return nil
}

// Setting validates a Setting record.
func Setting(s model.Setting) (model.Setting, error) {
	var goViolations []Violation
	if !s.ID.Valid() {
		goViolations = append(goViolations, Violation{Path: "id", Message: "unknown setting " + strconv.Quote(string(s.ID))})
	}
	if v, ok := s.Value.AsString(); ok {
		s.Value = model.String(validUTF8(v))
	}
	if !s.Value.IsValid() {
		goViolations = append(goViolations, Violation{Path: "value", Message: "must be a boolean, string or number"})
		// null would only repeat the same failure in CUE
		return result("Setting", s, nil, goViolations)
	}
	cueViolations, err := check("#Setting", s)
	if err != nil {
		return s, err
	}
	return result("Setting", s, cueViolations, goViolations)
}

// Log validates a Log record.
func Log(l model.Log) (model.Log, error) {
	l.Label = text(l.Label)
	goViolations := checkID("id", l.ID)
	details, bad := payload("details", l.Details)
	if len(bad) > 0 {
		return result("Log", l, nil, append(goViolations, bad...))
	}
	l.Details = details
	cueViolations, err := check("#Log", l)
	if err != nil {
		return l, err
	}
	return result("Log", l, cueViolations, goViolations)
}

// Image validates an Image record.
func Image(img model.Image) (model.Image, error) {
	img.Name = text(img.Name)
	if img.VisibleText == nil {
		img.VisibleText = []string{}
	} else {
		img.VisibleText = texts(img.VisibleText)
	}
	var goViolations []Violation
	goViolations = append(goViolations, checkID("id", img.ID)...)
	if len(img.File) == 0 {
		goViolations = append(goViolations, Violation{Path: "file", Message: "is required"})
	}
	if img.LastChild != nil {
		goViolations = append(goViolations, checkID("lastChild.id", img.LastChild.ID)...)
	}
	cueViolations, err := check("#Image", img)
	if err != nil {
		return img, err
	}
	return result("Image", img, cueViolations, goViolations)
}

// Item validates an Item record.
func Item(it model.Item) (model.Item, error) {
	it.Type = text(it.Type)
	it.Brand = text(it.Brand)
	it.Label = text(it.Label)
	it.Description = text(it.Description)
	if it.Categories == nil {
		it.Categories = []string{}
	} else {
		it.Categories = texts(it.Categories)
	}
	goViolations := checkID("id", it.ID)
	goViolations = append(goViolations, checkID("imageId", it.ImageID)...)
	cueViolations, err := check("#Item", it)
	if err != nil {
		return it, err
	}
	return result("Item", it, cueViolations, goViolations)
}

// Prompt validates a Prompt record.
func Prompt(p model.Prompt) (model.Prompt, error) {
	p.Model = text(p.Model)
	p.SystemPrompt = validUTF8(p.SystemPrompt)
	p.UserPrompt = validUTF8(p.UserPrompt)
	goViolations := checkID("id", p.ID)
	goViolations = append(goViolations, checkID("imageId", p.ImageID)...)
	data, bad := payload("responseData", p.ResponseData)
	if len(bad) > 0 {
		return result("Prompt", p, nil, append(goViolations, bad...))
	}
	p.ResponseData = data
	cueViolations, err := check("#Prompt", p)
	if err != nil {
		return p, err
	}
	return result("Prompt", p, cueViolations, goViolations)
}

// Compile-time validator signatures.
var (
	_ Validator[model.Setting] = Setting
	_ Validator[model.Log]     = Log
	_ Validator[model.Image]   = Image
	_ Validator[model.Item]    = Item
	_ Validator[model.Prompt]  = Prompt
)
