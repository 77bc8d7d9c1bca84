package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmaccleaning/cleanbook/internal/api"
	"github.com/jmaccleaning/cleanbook/internal/payments"
)

type recordingConfirmer struct {
	calls int
}

func (r *recordingConfirmer) Confirm(context.Context, api.PaymentIntent) error {
	r.calls++
	return nil
}

func TestPromptConfirmerYesProceeds(t *testing.T) {
	next := &recordingConfirmer{}
	var out bytes.Buffer
	p := NewPromptConfirmer(next, strings.NewReader("y\n"), &out)

	err := p.Confirm(context.Background(), api.PaymentIntent{})
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Contains(t, out.String(), "[y/N]")
}

func TestPromptConfirmerDefaultIsCancel(t *testing.T) {
	for _, input := range []string{"\n", "n\n", "nope\n", ""} {
		next := &recordingConfirmer{}
		p := NewPromptConfirmer(next, strings.NewReader(input), &bytes.Buffer{})

		err := p.Confirm(context.Background(), api.PaymentIntent{})
		assert.ErrorIs(t, err, payments.ErrCancelled)
		assert.Zero(t, next.calls)
	}
}

func TestSplitAddOns(t *testing.T) {
	assert.Nil(t, splitAddOns(""))
	assert.Equal(t, []string{"windows", "stove"}, splitAddOns("windows, stove"))
	assert.Equal(t, []string{"windows"}, splitAddOns("windows,"))
}
