package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	DefaultNameTemplate = "@user's channel"
	// Discord acepta 0..99 en user_limit de voz (0 = sin límite).
	MaxUserLimit = 99
)

// VoiceConfig es la config de un canal "trigger": al entrar se crea una sala nueva.
// Los nombres json son los de los archivos viejos (name/limit/top/category).
type VoiceConfig struct {
	NameTemplate string `json:"name,omitempty"`
	UserLimit    int    `json:"limit"`
	MoveToTop    bool   `json:"top"`
	CategoryID   string `json:"category,omitempty"`
}

// DefaultVoiceConfig es lo que crea `create` si no se pasa template.
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{NameTemplate: DefaultNameTemplate}
}

// Normalize aplica defaults y límites; se llama al leer del store.
func (c VoiceConfig) Normalize() VoiceConfig {
	// un template vacío no produce un nombre de canal válido, así que también
	// cae al default (no sólo cuando falta la clave)
	if strings.TrimSpace(c.NameTemplate) == "" {
		c.NameTemplate = DefaultNameTemplate
	}
	if c.UserLimit < 0 {
		c.UserLimit = 0
	}
	if c.UserLimit > MaxUserLimit {
		c.UserLimit = MaxUserLimit
	}
	c.CategoryID = strings.TrimSpace(c.CategoryID)
	return c
}

// HasCategory indica si la config fija una categoría distinta a la del trigger.
func (c VoiceConfig) HasCategory() bool { return c.CategoryID != "" }

func (c *VoiceConfig) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name     string          `json:"name"`
		Limit    json.Number     `json:"limit"`
		Top      bool            `json:"top"`
		Category json.RawMessage `json:"category"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := VoiceConfig{NameTemplate: raw.Name, MoveToTop: raw.Top}
	if raw.Limit != "" {
		n, err := raw.Limit.Int64()
		if err != nil {
			return fmt.Errorf("limit: %w", err)
		}
		out.UserLimit = int(n)
	}
	cat, err := snowflake(raw.Category)
	if err != nil {
		return fmt.Errorf("category: %w", err)
	}
	out.CategoryID = cat
	*c = out
	return nil
}

func snowflake(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
