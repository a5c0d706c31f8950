package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
port: "8080"
logLevel: info
dataDir: uploads
jwtSecret: yaml-secret
sessionTTL: 168h
maxUploadBytes: 1073741824
storageLimitBytes: 1073741824
trustedProxyCidrs:
  - 10.0.0.0/8
`

func TestLoadFromYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.JWTSecret != "yaml-secret" || cfg.DataDir != "uploads" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.StorageLimitBytes != 1<<30 {
		t.Fatalf("storageLimitBytes = %d", cfg.StorageLimitBytes)
	}
	if len(cfg.TrustedProxyCIDRs) != 1 || cfg.TrustedProxyCIDRs[0] != "10.0.0.0/8" {
		t.Fatalf("trustedProxyCidrs = %v", cfg.TrustedProxyCIDRs)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("STORAGE_LIMIT_BYTES", "2048")
	t.Setenv("TRUSTED_PROXY_CIDRS", "10.0.0.0/8, 192.168.0.0/16")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("jwtSecret = %q", cfg.JWTSecret)
	}
	if cfg.StorageLimitBytes != 2048 {
		t.Fatalf("storageLimitBytes = %d", cfg.StorageLimitBytes)
	}
	if len(cfg.TrustedProxyCIDRs) != 2 || cfg.TrustedProxyCIDRs[1] != "192.168.0.0/16" {
		t.Fatalf("trustedProxyCidrs = %v", cfg.TrustedProxyCIDRs)
	}
}

func TestLoadValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing port",
			yaml: "dataDir: uploads\njwtSecret: s\n",
			want: "port is required",
		},
		{
			name: "missing session backend",
			yaml: "port: \"8080\"\ndataDir: uploads\n",
			want: "jwtSecret or redisAddr",
		},
		{
			name: "missing data dir",
			yaml: "port: \"8080\"\njwtSecret: s\n",
			want: "dataDir is required",
		},
		{
			name: "minio endpoint without bucket",
			yaml: "port: \"8080\"\njwtSecret: s\nminioEndpoint: localhost:9000\n",
			want: "minioBucket is required",
		},
		{
			name: "negative limit",
			yaml: "port: \"8080\"\ndataDir: uploads\njwtSecret: s\nstorageLimitBytes: -1\n",
			want: "byte limits",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got: %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseSessionTTL(t *testing.T) {
	if d, err := ParseSessionTTL(""); err != nil || d != 0 {
		t.Fatalf("empty: d=%v err=%v", d, err)
	}
	if d, err := ParseSessionTTL("168h"); err != nil || d != 7*24*time.Hour {
		t.Fatalf("168h: d=%v err=%v", d, err)
	}
	if _, err := ParseSessionTTL("not-a-duration"); err == nil {
		t.Fatalf("expected parse error")
	}
}
