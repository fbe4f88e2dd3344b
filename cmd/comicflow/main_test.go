package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/comicflow/config"
	"github.com/spetersoncode/comicflow/story"
)

const request = `[
	{"category": "character", "description": "a lonely astronaut"},
	{"category": "setting", "description": "an abandoned moon base"},
	{"category": "plot_twist", "description": "the radio signal is her own voice"}
]`

func offlineEnv(t *testing.T) {
	t.Helper()
	t.Setenv("COMICFLOW_PROVIDER", "offline")
	t.Setenv("COMICFLOW_LOG_LEVEL", "error")
}

func TestRun_Stdin(t *testing.T) {
	offlineEnv(t)

	var stdout bytes.Buffer
	err := run(context.Background(), []string{"-scenes", "2"}, strings.NewReader(request), &stdout)
	require.NoError(t, err)

	var out story.FinalOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Len(t, out.Scenes, 2)
	assert.Equal(t, 1, out.Scenes[0].SceneNumber)
	assert.Equal(t, 2, out.Scenes[1].SceneNumber)
	assert.NotEmpty(t, out.Title)
}

func TestRun_Files(t *testing.T) {
	offlineEnv(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "request.json")
	outPath := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"audience_inputs":`+request+`}`), 0o644))

	err := run(context.Background(),
		[]string{"-input", in, "-output", outPath, "-mode", "fanout", "-visuals=false", "-pretty=false"},
		strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)

	b, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var out story.FinalOutput
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Len(t, out.Scenes, 3)
	for _, s := range out.Scenes {
		assert.Empty(t, s.ImagePrompt)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
		want  string
	}{
		{"bad mode", []string{"-mode", "parallel"}, request, "scene_mode"},
		{"bad scene count", []string{"-scenes", "-1"}, request, "scene_count"},
		{"missing input file", []string{"-input", "does-not-exist.json"}, "", "read input"},
		{"invalid request", nil, `"just a string"`, "invalid audience input"},
		{"unknown flag", []string{"-nope"}, request, "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offlineEnv(t)
			err := run(context.Background(), tt.args, strings.NewReader(tt.stdin), &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOptionsApply_OnlySetFlags(t *testing.T) {
	o, fs, err := parseFlags([]string{"-critique=false"})
	require.NoError(t, err)

	cfg := config.Default()
	o.apply(fs, &cfg)
	assert.False(t, cfg.Story.Critique)
	assert.True(t, cfg.Story.Visuals)
	assert.Equal(t, story.DefaultConfig().SceneCount, cfg.Story.SceneCount)
}
