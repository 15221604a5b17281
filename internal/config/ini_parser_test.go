// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package config

import (
	"strings"
	"testing"
)

func TestINIParser_Unmarshal(t *testing.T) {
	t.Parallel()

	out, err := INIParser().Unmarshal([]byte("top = 1\n[Server]\nAddress = 0.0.0.0\nport = 3000\n[EMPTY]\n"))
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if out["top"] != "1" {
		t.Errorf("default section key top = %v, want 1", out["top"])
	}
	server, ok := out["server"].(map[string]interface{})
	if !ok {
		t.Fatalf("server section missing or wrong type: %#v", out)
	}
	if server["address"] != "0.0.0.0" || server["port"] != "3000" {
		t.Errorf("server section = %v", server)
	}
	if _, ok := out["empty"]; ok {
		t.Error("sections without keys should be omitted")
	}
}

func TestINIParser_Marshal(t *testing.T) {
	t.Parallel()

	b, err := INIParser().Marshal(map[string]interface{}{
		"server": map[string]interface{}{"port": 4000},
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	text := string(b)
	if !strings.Contains(text, "[SERVER]") || !strings.Contains(text, "4000") {
		t.Errorf("Marshal() = %q", text)
	}

	back, err := INIParser().Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal(Marshal()) error = %v", err)
	}
	if back["server"].(map[string]interface{})["port"] != "4000" {
		t.Errorf("round trip lost port: %v", back)
	}
}
