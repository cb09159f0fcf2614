package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcwalker/prchecks/internal/application"
)

func TestFollowRejectsJSONAndCount(t *testing.T) {
	// The usage check runs before repo detection, config loading or any
	// network activity, so a bare flags struct is enough.
	for _, f := range []*flags{
		{follow: true, jsonOut: true},
		{follow: true, countOut: true},
		{follow: true, jsonOut: true, countOut: true},
	} {
		err := run(context.Background(), f)
		require.Error(t, err)
		assert.ErrorIs(t, err, application.ErrUsage)
	}
}
