// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package config

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// INI implements koanf.Parser for INI documents. Sections become the first
// level of the key path and names are lower-cased, so [SERVER] port is
// addressed as "server.port".
type INI struct{}

// INIParser returns a koanf parser for INI files.
func INIParser() *INI {
	return &INI{}
}

// Unmarshal parses an INI document into a nested map.
func (p *INI) Unmarshal(b []byte) (map[string]interface{}, error) {
	f, err := ini.Load(b)
	if err != nil {
		return nil, fmt.Errorf("parse ini: %w", err)
	}

	out := make(map[string]interface{})
	for _, section := range f.Sections() {
		keys := section.Keys()
		if len(keys) == 0 {
			continue
		}

		values := make(map[string]interface{}, len(keys))
		for _, key := range keys {
			values[strings.ToLower(key.Name())] = key.String()
		}

		if strings.EqualFold(section.Name(), ini.DefaultSection) {
			for k, v := range values {
				out[k] = v
			}
			continue
		}
		out[strings.ToLower(section.Name())] = values
	}
	return out, nil
}

// Marshal renders a nested map as an INI document.
func (p *INI) Marshal(o map[string]interface{}) ([]byte, error) {
	f := ini.Empty()
	for name, v := range o {
		values, ok := v.(map[string]interface{})
		if !ok {
			if _, err := f.Section(ini.DefaultSection).NewKey(name, fmt.Sprint(v)); err != nil {
				return nil, err
			}
			continue
		}
		section, err := f.NewSection(strings.ToUpper(name))
		if err != nil {
			return nil, err
		}
		for k, val := range values {
			if _, err := section.NewKey(k, fmt.Sprint(val)); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
