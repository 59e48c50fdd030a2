package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// wellKnownNames are the filenames probed inside the keys directory, in
// priority order, before falling back to the client_secret*.json glob that
// matches Google's downloaded credential files.
var wellKnownNames = []string{
	"oauth_client.json",
	"google_oauth.json",
	"client_secret.json",
	"oauth.json",
}

// Resolver supplies the OAuth client id/secret, in priority order: explicit
// environment configuration, then a named client-secrets file, then
// well-known files under the keys directory. The result is cached; a watcher
// on the keys directory invalidates the cache when credential files change.
type Resolver struct {
	ClientID     string
	ClientSecret string
	SecretsFile  string
	KeysDir      string

	mu     sync.Mutex
	cached *clientCredentials
}

type clientCredentials struct {
	id     string
	secret string
}

// Resolve returns the client id and secret, or a ConfigError when none of
// the sources yield a usable pair.
func (r *Resolver) Resolve(_ context.Context) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil {
		return r.cached.id, r.cached.secret, nil
	}

	id := strings.TrimSpace(r.ClientID)
	secret := strings.TrimSpace(r.ClientSecret)
	if id != "" && secret != "" {
		r.cached = &clientCredentials{id: id, secret: secret}
		return id, secret, nil
	}

	for _, path := range r.candidateFiles() {
		fid, fsecret, ok := readClientSecretsFile(path)
		if ok {
			r.cached = &clientCredentials{id: fid, secret: fsecret}
			return fid, fsecret, nil
		}
	}

	return "", "", &ConfigError{Reason: "client id/secret missing: set GOOGLE_OAUTH_CLIENT_ID and GOOGLE_OAUTH_CLIENT_SECRET, or point GOOGLE_OAUTH_CLIENT_SECRETS_FILE at your downloaded OAuth client JSON"}
}

func (r *Resolver) candidateFiles() []string {
	var candidates []string

	if p := strings.TrimSpace(r.SecretsFile); p != "" {
		candidates = append(candidates, p)
	}

	dir := strings.TrimSpace(r.KeysDir)
	if dir == "" {
		return candidates
	}
	for _, name := range wellKnownNames {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	if matches, err := filepath.Glob(filepath.Join(dir, "client_secret*.json")); err == nil {
		sort.Strings(matches)
		candidates = append(candidates, matches...)
	}
	return candidates
}

// Watch starts an fsnotify watcher on the keys directory so that dropping a
// credentials file in takes effect without a restart. Best effort: a missing
// directory or watcher failure only logs.
func (r *Resolver) Watch(ctx context.Context) {
	dir := strings.TrimSpace(r.KeysDir)
	if dir == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("credentials watcher unavailable", slog.String("error", err.Error()))
		return
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		slog.Debug("credentials watcher: keys dir not watchable", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Ext(ev.Name) != ".json" {
					continue
				}
				r.mu.Lock()
				r.cached = nil
				r.mu.Unlock()
				slog.Info("oauth credentials cache invalidated", slog.String("file", filepath.Base(ev.Name)))
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

// readClientSecretsFile parses a downloaded Google OAuth client JSON, which
// nests the credentials under either a "web" or "installed" block.
func readClientSecretsFile(path string) (id, secret string, ok bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", false
	}

	var doc struct {
		Web       *clientSecretsBlock `json:"web"`
		Installed *clientSecretsBlock `json:"installed"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", "", false
	}

	block := doc.Web
	if block == nil {
		block = doc.Installed
	}
	if block == nil {
		return "", "", false
	}

	id = strings.TrimSpace(block.ClientID)
	secret = strings.TrimSpace(block.ClientSecret)
	if id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}

type clientSecretsBlock struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}
