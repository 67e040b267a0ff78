package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// dotEnvKeys are written to the template in this order, each preceded by its
// help line.
var dotEnvKeys = []struct {
	key, help string
}{
	{EnvOutputDir, "where images and segment files are written (overrides output.dir)"},
	{EnvOutputSink, "file, s3 or minio (overrides output.sink)"},
	{EnvBucket, "object-store bucket for the s3 and minio sinks"},
	{EnvEndpoint, "MinIO endpoint, host:port"},
	{EnvWorkers, "decode/aggregate goroutines, 0 = one per CPU"},
	{EnvLogLevel, "debug, info, warn or error"},
	{EnvMinioAccessKey, "MinIO credentials; never stored in pufrecon.yaml"},
	{EnvMinioSecretKey, ""},
}

// DotEnvPath returns ~/.pufrecon/.env.
func DotEnvPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".env"), nil
}

// LoadDotEnv reads ~/.pufrecon/.env. A missing file yields an empty map.
func LoadDotEnv() (map[string]string, error) {
	p, err := DotEnvPath()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open dotenv file %s: %w", p, err)
	}
	defer f.Close()

	out, err := parseDotEnv(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read dotenv file %s: %w", p, err)
	}
	return out, nil
}

// parseDotEnv accepts KEY=VALUE lines, optionally prefixed with "export ".
// Comments, blank lines and lines without a key are skipped. One pair of
// matching single or double quotes around VALUE is removed; nothing else is
// unescaped.
func parseDotEnv(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		if n := len(v); n >= 2 && (v[0] == '"' || v[0] == '\'') && v[n-1] == v[0] {
			v = v[1 : n-1]
		}
		out[k] = v
	}
	return out, sc.Err()
}

// GetConfigValue returns key from the process environment, or from
// ~/.pufrecon/.env when the environment leaves it empty.
func GetConfigValue(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	dotenv, err := LoadDotEnv()
	if err != nil {
		return "", err
	}
	return dotenv[key], nil
}

// EnsureDotEnvTemplate writes a commented ~/.pufrecon/.env listing every
// PUFRECON_* key with an empty value. An existing file is left alone.
func EnsureDotEnvTemplate() error {
	p, err := DotEnvPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot stat dotenv file %s: %w", p, err)
	}

	var body strings.Builder
	body.WriteString("# pufrecon overrides. The process environment wins over this file.\n")
	for _, e := range dotEnvKeys {
		if e.help != "" {
			fmt.Fprintf(&body, "\n# %s\n", e.help)
		}
		body.WriteString(e.key + "=\n")
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, []byte(body.String()), 0o600); err != nil {
		return fmt.Errorf("cannot write dotenv template %s: %w", p, err)
	}
	return nil
}
