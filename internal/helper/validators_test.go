package helper_test

import (
	"encoding/json"
	"testing"

	"ars-backend/internal/helper"

	"github.com/stretchr/testify/assert"
)

func TestIsValidNodeID(t *testing.T) {
	assert.True(t, helper.IsValidNodeID("welcome_1"))
	assert.True(t, helper.IsValidNodeID("NODE2"))
	assert.False(t, helper.IsValidNodeID("has space"))
	assert.False(t, helper.IsValidNodeID("dash-id"))
	assert.False(t, helper.IsValidNodeID(""))
}

func TestIsValidVersion(t *testing.T) {
	assert.True(t, helper.IsValidVersion("1.0"))
	assert.True(t, helper.IsValidVersion("2.11.3"))
	assert.False(t, helper.IsValidVersion("v1.0"))
	assert.False(t, helper.IsValidVersion("1"))
	assert.False(t, helper.IsValidVersion("1.0.0.0"))
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, helper.IsValidPhone("010-1234-5678"))
	assert.True(t, helper.IsValidPhone("02-555-1234"))
	assert.False(t, helper.IsValidPhone("01012345678"))
	assert.False(t, helper.IsValidPhone("010-12-5678"))
}

func TestIsAllowedAudioFile(t *testing.T) {
	assert.True(t, helper.IsAllowedAudioFile("sample.wav"))
	assert.True(t, helper.IsAllowedAudioFile("SAMPLE.MP3"))
	assert.True(t, helper.IsAllowedAudioFile("x.flac"))
	assert.False(t, helper.IsAllowedAudioFile("script.sh"))
	assert.False(t, helper.IsAllowedAudioFile("noext"))
}

func TestValidateNodeConfig(t *testing.T) {
	tests := []struct {
		name     string
		nodeType string
		config   string
		wantErr  bool
	}{
		{"branch ok", "branch", `{"branches":[{"key":"1","label":"Billing","target":"n2"}]}`, false},
		{"branch empty", "branch", `{"branches":[]}`, true},
		{"branch missing target", "branch", `{"branches":[{"key":"1"}]}`, true},
		{"message ok", "message", `{"text":"Welcome"}`, false},
		{"message blank", "message", `{"text":"  "}`, true},
		{"input ok", "input", `{"input_type":"phone"}`, false},
		{"input bad type", "input", `{"input_type":"email"}`, true},
		{"transfer ok", "transfer", `{"target":"billing"}`, false},
		{"transfer missing", "transfer", `{}`, true},
		{"start ignores config", "start", `{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := helper.ValidateNodeConfig(tt.nodeType, json.RawMessage(tt.config))
			if tt.wantErr {
				assert.ErrorIs(t, err, helper.ErrInvalidNodeConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateVoiceSettings(t *testing.T) {
	assert.NoError(t, helper.ValidateVoiceSettings(nil))
	assert.NoError(t, helper.ValidateVoiceSettings(json.RawMessage(`{"speed":1.2,"pitch":0.9}`)))
	assert.Error(t, helper.ValidateVoiceSettings(json.RawMessage(`{"speed":3.0}`)))
	assert.Error(t, helper.ValidateVoiceSettings(json.RawMessage(`{"pitch":0.1}`)))
	assert.Error(t, helper.ValidateVoiceSettings(json.RawMessage(`not json`)))
}
