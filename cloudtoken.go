package main

import (
	"fmt"

	"github.com/edgeshadow/syncagent/internal/tokenfile"
)

// cachedTokenSource implements cloudshadow.TokenSource by re-reading the
// on-disk token file on every call, so an external provisioning process can
// refresh the token without restarting the daemon.
type cachedTokenSource struct {
	path string
}

func newCachedTokenSource(path string) (*cachedTokenSource, error) {
	if _, _, err := tokenfile.Load(path); err != nil {
		return nil, err
	}

	return &cachedTokenSource{path: path}, nil
}

func (c *cachedTokenSource) Token() (string, error) {
	tok, _, err := tokenfile.Load(c.path)
	if err != nil {
		return "", fmt.Errorf("reading cloud token file %s: %w", c.path, err)
	}

	if tok == nil {
		return "", fmt.Errorf("no cloud token saved at %s", c.path)
	}

	return tok.AccessToken, nil
}
