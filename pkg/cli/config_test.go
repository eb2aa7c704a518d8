package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfig_ActiveProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {
				CustomerID: "C0001",
				Output:     "table",
			},
			"staging": {
				CustomerID: "C0002",
				Endpoint:   "https://staging.example.com/",
				Output:     "json",
			},
		},
	}

	tests := []struct {
		name         string
		override     string
		wantCustomer string
		wantErr      string
	}{
		{
			name:         "uses current profile",
			override:     "",
			wantCustomer: "C0001",
		},
		{
			name:         "override to staging",
			override:     "staging",
			wantCustomer: "C0002",
		},
		{
			name:     "nonexistent profile returns error",
			override: "nonexistent",
			wantErr:  `profile "nonexistent" not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := cfg.ActiveProfile(tt.override)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCustomer, p.CustomerID)
		})
	}
}

func TestUserConfig_ActiveProfile_MissingCurrent(t *testing.T) {
	cfg := &UserConfig{CurrentProfile: "gone", Profiles: map[string]Profile{}}
	p, err := cfg.ActiveProfile("")
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)
}

func TestLoadSaveUserConfig(t *testing.T) {
	// Override config path for testing
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfg := &UserConfig{
		CurrentProfile: "test",
		Profiles: map[string]Profile{
			"test": {
				Home:       "/opt/cigroups",
				CustomerID: "C0003",
			},
		},
	}
	require.NoError(t, SaveUserConfig(cfg))

	configPath := filepath.Join(dir, ".cigroups", "config.yaml")
	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", loaded.CurrentProfile)
	require.Contains(t, loaded.Profiles, "test")
	assert.Equal(t, "/opt/cigroups", loaded.Profiles["test"].Home)
	assert.Equal(t, "C0003", loaded.Profiles["test"].CustomerID)
}

func TestLoadUserConfig_NotFound(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	_, err := LoadUserConfig()
	require.Error(t, err)
}

func TestLoadUserConfig_YAMLKeys(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	writeFile(t, filepath.Join(dir, ".cigroups", "config.yaml"), `current-profile: work
profiles:
  work:
    customer-id: C0004
    endpoint: http://localhost:9000/
`)

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	p, err := cfg.ActiveProfile("")
	require.NoError(t, err)
	assert.Equal(t, "C0004", p.CustomerID)
	assert.Equal(t, "http://localhost:9000/", p.Endpoint)
}

func TestLoadUserConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	writeFile(t, filepath.Join(dir, ".cigroups", "config.yaml"), "profiles: [unclosed")

	_, err := LoadUserConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
