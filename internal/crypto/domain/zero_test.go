package domain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	t.Run("scrubs every byte", func(t *testing.T) {
		buf := bytes.Repeat([]byte{0xA5}, KeySize)
		Zero(buf)
		assert.Equal(t, make([]byte, KeySize), buf)
	})

	t.Run("leaves length and capacity alone", func(t *testing.T) {
		buf := make([]byte, KeySize, KeySize*2)
		Zero(buf)
		assert.Len(t, buf, KeySize)
		assert.Equal(t, KeySize*2, cap(buf))
	})

	t.Run("nil and empty are no-ops", func(t *testing.T) {
		assert.NotPanics(t, func() { Zero(nil) })
		assert.NotPanics(t, func() { Zero([]byte{}) })
	})
}
