/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteDeskEvictsLeastRecentlyUsed(t *testing.T) {
	desk, err := newQuoteDesk(newTestConfig(""), 2)
	require.NoError(t, err)

	ann := desk.refresher("ann")
	bob := desk.refresher("bob")

	assert.Same(t, ann, desk.refresher("ann"))

	// bob is now the least recently used player and is the only one evicted.
	desk.refresher("cat")

	assert.Same(t, ann, desk.refresher("ann"))
	assert.NotSame(t, bob, desk.refresher("bob"))
}

func TestQuoteDeskRejectsEmptySize(t *testing.T) {
	_, err := newQuoteDesk(newTestConfig(""), 0)

	assert.Error(t, err)
}
