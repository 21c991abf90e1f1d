// Package schema validates command request bodies before they reach the
// dispatcher.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/urmzd/glowcup/pkg/cup"
)

//go:embed commands/*.json
var commandSchemas embed.FS

// Request is a validated command plus the optional explicit targets.
type Request struct {
	Command cup.Command
	Targets []string
}

// Validator compiles the command schemas once and validates payloads
// against them.
type Validator struct {
	once     sync.Once
	err      error
	compiled map[cup.CommandKind]*jsonschema.Schema
}

// NewValidator creates a Validator. Schemas compile on first use.
func NewValidator() *Validator {
	return &Validator{}
}

var kinds = []cup.CommandKind{
	cup.CommandSetColor,
	cup.CommandSetBrightness,
	cup.CommandSetMode,
	cup.CommandQueryBattery,
}

func (v *Validator) compile() error {
	v.once.Do(func() {
		c := jsonschema.NewCompiler()
		v.compiled = make(map[cup.CommandKind]*jsonschema.Schema, len(kinds))
		for _, kind := range kinds {
			name := "commands/" + string(kind) + ".json"
			raw, err := commandSchemas.ReadFile(name)
			if err != nil {
				v.err = err
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
			if err != nil {
				v.err = fmt.Errorf("failed to unmarshal schema %s: %w", name, err)
				return
			}
			if err := c.AddResource(name, doc); err != nil {
				v.err = fmt.Errorf("failed to add resource %s: %w", name, err)
				return
			}
			s, err := c.Compile(name)
			if err != nil {
				v.err = fmt.Errorf("failed to compile %s: %w", name, err)
				return
			}
			v.compiled[kind] = s
		}
	})
	return v.err
}

// Validate checks payload, a decoded JSON value, against the schema for kind.
func (v *Validator) Validate(kind cup.CommandKind, payload any) error {
	if err := v.compile(); err != nil {
		return err
	}
	s, ok := v.compiled[kind]
	if !ok {
		return fmt.Errorf("%w: unknown command kind %q", cup.ErrInvalidCommand, kind)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if err := s.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v", cup.ErrInvalidCommand, err)
	}
	return nil
}

// DecodeJSON validates a raw request body and builds the command.
// An empty body is treated as {}.
func (v *Validator) DecodeJSON(kind cup.CommandKind, body []byte) (Request, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return Request{}, fmt.Errorf("%w: malformed JSON: %v", cup.ErrInvalidCommand, err)
	}
	return v.Decode(kind, doc)
}

// Decode validates payload, such as tool arguments, and builds the command.
func (v *Validator) Decode(kind cup.CommandKind, payload any) (Request, error) {
	if err := v.Validate(kind, payload); err != nil {
		return Request{}, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", cup.ErrInvalidCommand, err)
	}
	var body struct {
		Hex     string   `json:"hex"`
		R       int      `json:"r"`
		G       int      `json:"g"`
		B       int      `json:"b"`
		Level   int      `json:"level"`
		Mode    string   `json:"mode"`
		Targets []string `json:"targets"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Request{}, fmt.Errorf("%w: %v", cup.ErrInvalidCommand, err)
	}

	req := Request{Targets: body.Targets}
	switch kind {
	case cup.CommandSetColor:
		c := cup.Color{R: body.R, G: body.G, B: body.B}
		if body.Hex != "" {
			if c, err = cup.ParseColor(body.Hex); err != nil {
				return Request{}, err
			}
		}
		req.Command = cup.SetColor(c)
	case cup.CommandSetBrightness:
		req.Command = cup.SetBrightness(body.Level)
	case cup.CommandSetMode:
		m, err := cup.ParseMode(body.Mode)
		if err != nil {
			return Request{}, err
		}
		req.Command = cup.SetMode(m)
	case cup.CommandQueryBattery:
		req.Command = cup.QueryBattery()
	}
	return req, req.Command.Validate()
}
