package main

import (
	"net/http"
	"testing"

	"github.com/apada-appleid/biosell-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_WriteTimeoutOutlastsCheckout(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	srv := newServer(cfg, http.NotFoundHandler())

	assert.Equal(t, ":"+cfg.HTTPPort, srv.Addr)
	assert.Greater(t, srv.WriteTimeout, cfg.AddressTimeout+cfg.OrderTimeout)
	assert.GreaterOrEqual(t, srv.WriteTimeout, cfg.RequestTimeout)
}
