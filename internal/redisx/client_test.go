package redisx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rushinski/rdk-webstore-sub003/internal/redisx"
)

func TestNewAppliesTimeouts(t *testing.T) {
	c := redisx.New("localhost:6379")
	defer c.Close()

	opts := c.Options()
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
	assert.Equal(t, 2*time.Second, opts.ReadTimeout)
	assert.Equal(t, 2*time.Second, opts.WriteTimeout)
}
