package helper

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrInvalidNodeConfig = errors.New("invalid node config")

	nodeIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	versionPattern = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)
	phonePattern   = regexp.MustCompile(`^\d{2,3}-\d{3,4}-\d{4}$`)
)

// IsValidNodeID reports whether a flowchart node ID uses only letters, digits
// and underscores.
func IsValidNodeID(nodeID string) bool {
	return nodeIDPattern.MatchString(nodeID)
}

// IsValidVersion reports whether a version string looks like 1.0 or 2.1.3.
func IsValidVersion(version string) bool {
	return versionPattern.MatchString(version)
}

// IsValidPhone checks the NN[N]-NNN[N]-NNNN phone format used by input nodes.
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func IsValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}

// IsAllowedAudioFile checks the upload extension against the audio whitelist.
func IsAllowedAudioFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav", ".mp3", ".flac", ".ogg":
		return true
	}
	return false
}

type branchEntry struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Target string `json:"target"`
}

// ValidateNodeConfig checks the per-type config payload of a scenario node.
// Branch nodes need at least one branch with key and target, message nodes
// need text, input nodes an input_type, transfer nodes a target.
func ValidateNodeConfig(nodeType string, raw json.RawMessage) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch nodeType {
	case "branch":
		var cfg struct {
			Branches []branchEntry `json:"branches"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidNodeConfig, err)
		}
		if len(cfg.Branches) == 0 {
			return fmt.Errorf("%w: branch node needs at least one branch", ErrInvalidNodeConfig)
		}
		for _, b := range cfg.Branches {
			if b.Key == "" || b.Target == "" {
				return fmt.Errorf("%w: every branch needs key and target", ErrInvalidNodeConfig)
			}
		}

	case "message":
		var cfg struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidNodeConfig, err)
		}
		if strings.TrimSpace(cfg.Text) == "" {
			return fmt.Errorf("%w: message node needs text", ErrInvalidNodeConfig)
		}

	case "input":
		var cfg struct {
			InputType string `json:"input_type"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidNodeConfig, err)
		}
		switch cfg.InputType {
		case "text", "number", "phone":
		default:
			return fmt.Errorf("%w: input_type must be text, number or phone", ErrInvalidNodeConfig)
		}

	case "transfer":
		var cfg struct {
			Target string `json:"target"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidNodeConfig, err)
		}
		if cfg.Target == "" {
			return fmt.Errorf("%w: transfer node needs a target", ErrInvalidNodeConfig)
		}
	}

	return nil
}

// ValidateVoiceSettings bounds-checks the speed/pitch knobs of a TTS script.
func ValidateVoiceSettings(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}

	var settings struct {
		Speed *float64 `json:"speed"`
		Pitch *float64 `json:"pitch"`
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return fmt.Errorf("invalid voice_settings: %v", err)
	}

	if settings.Speed != nil && (*settings.Speed < 0.5 || *settings.Speed > 2.0) {
		return errors.New("voice_settings.speed must be between 0.5 and 2.0")
	}
	if settings.Pitch != nil && (*settings.Pitch < 0.5 || *settings.Pitch > 2.0) {
		return errors.New("voice_settings.pitch must be between 0.5 and 2.0")
	}

	return nil
}
