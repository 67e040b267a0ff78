package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// withHome points HOME at a fresh temp dir and returns ~/.pufrecon.
func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return filepath.Join(home, ".pufrecon")
}

func writeDotEnv(t *testing.T, dir, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDotEnv_NotExist(t *testing.T) {
	withHome(t)

	m, err := LoadDotEnv()
	if err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if len(m) != 0 {
		t.Fatalf("expected empty map, got %v", m)
	}
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	dir := withHome(t)
	writeDotEnv(t, dir, "# comment\nA=1\n\n  B =two\nnoequals\n=skip\n")

	m, err := LoadDotEnv()
	if err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if m["A"] != "1" || m["B"] != "two" {
		t.Fatalf("unexpected map: %v", m)
	}
	if len(m) != 2 {
		t.Fatalf("expected 2 keys, got %v", m)
	}
}

func TestGetConfigValue_EnvOverridesDotEnv(t *testing.T) {
	dir := withHome(t)
	writeDotEnv(t, dir, "K=fromdotenv\nONLY=dotenv\n")
	t.Setenv("K", "fromenv")

	v, err := GetConfigValue("K")
	if err != nil {
		t.Fatalf("GetConfigValue: %v", err)
	}
	if v != "fromenv" {
		t.Fatalf("expected env override, got %q", v)
	}
	v, err = GetConfigValue("ONLY")
	if err != nil {
		t.Fatalf("GetConfigValue: %v", err)
	}
	if v != "dotenv" {
		t.Fatalf("expected dotenv value, got %q", v)
	}
}

func TestEnsureDotEnvTemplate_DoesNotOverwrite(t *testing.T) {
	dir := withHome(t)
	p := writeDotEnv(t, dir, "PUFRECON_WORKERS=4\n")

	if err := EnsureDotEnvTemplate(); err != nil {
		t.Fatalf("EnsureDotEnvTemplate: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "PUFRECON_WORKERS=4\n" {
		t.Fatalf("template overwrote existing file: %q", string(b))
	}
}

func TestEnsureDotEnvTemplate_CreatesWhenMissing(t *testing.T) {
	dir := withHome(t)

	if err := EnsureDotEnvTemplate(); err != nil {
		t.Fatalf("EnsureDotEnvTemplate: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{EnvOutputDir, EnvMinioAccessKey, EnvMinioSecretKey} {
		if !strings.Contains(string(b), k+"=") {
			t.Fatalf("template missing %s: %q", k, string(b))
		}
	}
}

func TestLoadDotEnv_ExportAndQuotes(t *testing.T) {
	dir := withHome(t)
	writeDotEnv(t, dir, "export PUFRECON_BUCKET=puf-images\n"+
		"PUFRECON_MINIO_SECRET_KEY=\"s3cr=t \"\n"+
		"PUFRECON_MINIO_ACCESS_KEY='admin'\n"+
		"PUFRECON_ENDPOINT=\"unbalanced\n")

	m, err := LoadDotEnv()
	if err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	want := map[string]string{
		EnvBucket:         "puf-images",
		EnvMinioSecretKey: "s3cr=t ",
		EnvMinioAccessKey: "admin",
		EnvEndpoint:       "\"unbalanced",
	}
	for k, v := range want {
		if m[k] != v {
			t.Fatalf("%s = %q, want %q", k, m[k], v)
		}
	}
}

func TestEnsureDotEnvTemplate_LoadsAsEmptyValues(t *testing.T) {
	withHome(t)
	if err := EnsureDotEnvTemplate(); err != nil {
		t.Fatalf("EnsureDotEnvTemplate: %v", err)
	}
	m, err := LoadDotEnv()
	if err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if len(m) != len(dotEnvKeys) {
		t.Fatalf("expected %d keys, got %v", len(dotEnvKeys), m)
	}
	for _, e := range dotEnvKeys {
		if v, ok := m[e.key]; !ok || v != "" {
			t.Fatalf("%s: got %q (present=%v)", e.key, v, ok)
		}
	}
}
